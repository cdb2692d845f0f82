package logics

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// BlobStore is the narrow surface of the object store the item service
// depends on. The store is opaque and key-addressed; only keys, URLs and
// sizes cross into the item layer.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
	NewObjectKey(ownerID int64, fileName string) string
}

// StorageService implements BlobStore on top of S3.
type StorageService struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
}

func NewStorageService(s3Client *s3.Client, bucketName string) *StorageService {
	return &StorageService{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
	}
}

// NewObjectKey mints the object key for a direct upload. Each file item
// owns exactly one key for its lifetime, so keys embed a fresh UUID and
// are never shared between items.
func (ss *StorageService) NewObjectKey(ownerID int64, fileName string) string {
	return fmt.Sprintf("%d/%s-%s", ownerID, uuid.New().String(), fileName)
}

// NewPresignObjectKey mints the object key handed out with a presigned
// upload URL.
func (ss *StorageService) NewPresignObjectKey(ownerID int64, fileName string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate object key: %w", err)
	}
	return fmt.Sprintf("%d/%s-%s", ownerID, id, fileName), nil
}

// Put uploads body under key and returns the object's base URL.
func (ss *StorageService) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(ss.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPrivate,
	}

	if _, err := ss.s3Client.PutObject(ctx, putInput); err != nil {
		return "", fmt.Errorf("failed to upload object to s3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", ss.bucketName, key), nil
}

// Delete removes the object stored under key.
func (ss *StorageService) Delete(ctx context.Context, key string) error {
	deleteInput := &s3.DeleteObjectInput{
		Bucket: aws.String(ss.bucketName),
		Key:    aws.String(key),
	}
	if _, err := ss.s3Client.DeleteObject(ctx, deleteInput); err != nil {
		return fmt.Errorf("failed to delete object from s3: %w", err)
	}
	return nil
}

// PresignGet generates a presigned download URL for the object under key.
func (ss *StorageService) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	getInput := &s3.GetObjectInput{
		Bucket: aws.String(ss.bucketName),
		Key:    aws.String(key),
	}
	result, err := ss.presignClient.PresignGetObject(ctx, getInput, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned GET URL: %w", err)
	}
	return result.URL, nil
}

// PresignPut generates a presigned upload URL for the object under key.
func (ss *StorageService) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(ss.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	result, err := ss.presignClient.PresignPutObject(ctx, putInput, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}
	return result.URL, nil
}
