package repositories

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"dopple-server/configs"
	"dopple-server/internal/loggers"
	"dopple-server/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type dbs struct {
	Postgres *gorm.DB
	Redis    *redis.Client
	S3       *s3.Client
}

// DBS holds the process-wide connections, initialized once at startup.
var DBS dbs

func Init() {
	initPostgres()
	initRedis()
	initS3()
}

func initPostgres() {
	host, port, err := net.SplitHostPort(configs.Configs.Postgres.Address)
	if err != nil {
		configs.Logger.Fatal("Invalid Postgres address", zap.Error(err))
		return
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s",
		host,
		configs.Configs.Postgres.Username,
		configs.Configs.Postgres.Password,
		configs.Configs.Postgres.Database,
		port,
	)

	gormLogger := loggers.NewZapGormLogger(
		logger.Warn,
		200*time.Millisecond,
		true,
	)

	// TranslateError turns driver-specific unique violations into
	// gorm.ErrDuplicatedKey, which the naming retry loop depends on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		configs.Logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		return
	}

	// Users before items: items carry a foreign key to their owner.
	if err := db.AutoMigrate(&models.User{}, &models.Item{}); err != nil {
		configs.Logger.Fatal("Failed to migrate database", zap.Error(err))
		return
	}

	DBS.Postgres = db
	configs.Logger.Info("PostgreSQL connected successfully")
}

func initRedis() {
	opt := &redis.Options{
		Addr:     configs.Configs.Redis.Addresses[0],
		Username: configs.Configs.Redis.Username,
		Password: configs.Configs.Redis.Password,
		DB:       configs.Configs.Redis.Database,
	}
	if configs.Configs.Redis.Tls {
		opt.TLSConfig = &tls.Config{}
	}

	DBS.Redis = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := DBS.Redis.Ping(ctx).Result()
	if err != nil {
		configs.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
		return
	}
	configs.Logger.Info("Redis connected successfully", zap.String("result", result))
}

func initS3() {
	creds := credentials.NewStaticCredentialsProvider(
		configs.Configs.S3.AccessKey,
		configs.Configs.S3.SecretKey,
		"",
	)

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(configs.Configs.S3.Region),
		awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(creds)),
	)
	if err != nil {
		configs.Logger.Fatal("Failed to load AWS config", zap.Error(err))
		return
	}

	DBS.S3 = s3.NewFromConfig(cfg)
	configs.Logger.Info("S3 client initialized", zap.String("bucket", configs.Configs.S3.BucketName))
}
