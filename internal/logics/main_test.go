package logics_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"dopple-server/configs"
	"dopple-server/internal/logics"
	"dopple-server/internal/models"
	"dopple-server/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	configs.InitForTesting()
	os.Exit(m.Run())
}

// newTestDB opens an isolated in-memory database with the same error
// translation the production connection uses.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single connection keeps the in-memory database alive and shared.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Item{}))
	return db
}

// fakeBlobStore records puts and deletes in memory.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	counter int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string]string{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = contentType
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

func (f *fakeBlobStore) NewObjectKey(ownerID int64, fileName string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return fmt.Sprintf("%d/%d-%s", ownerID, f.counter, fileName)
}

func (f *fakeBlobStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// fakeRedis is a map-backed stand-in for the redis commands the search
// cache issues.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

type testEnv struct {
	db      *gorm.DB
	items   *logics.ItemService
	listing *logics.ListingService
	blob    *fakeBlobStore
	cleanup *logics.CleanupService
	redis   *fakeRedis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	blob := newFakeBlobStore()
	fr := newFakeRedis()
	cache := logics.NewSearchCache(fr)

	cleanup := logics.NewCleanupService(blob, 1, 64)
	cleanup.Start(context.Background())
	t.Cleanup(cleanup.Stop)

	paths := logics.NewPathService(db)
	return &testEnv{
		db:      db,
		items:   logics.NewItemService(db, paths, blob, cleanup, cache),
		listing: logics.NewListingService(db, utils.NewCursorManager(), cache),
		blob:    blob,
		cleanup: cleanup,
		redis:   fr,
	}
}

func (env *testEnv) mustFolder(t *testing.T, ownerID int64, name string, parentID *int64) *models.Item {
	t.Helper()
	folder, err := env.items.CreateFolder(context.Background(), ownerID, name, parentID)
	require.NoError(t, err)
	return folder
}

func (env *testEnv) mustFile(t *testing.T, ownerID int64, name string, parentID *int64) *models.Item {
	t.Helper()
	key := env.blob.NewObjectKey(ownerID, name)
	file, err := env.items.CreateFile(context.Background(), ownerID, logics.FileCreateInput{
		Name:     name,
		MimeType: "text/plain",
		ParentID: parentID,
		Key:      key,
		FileURL:  "https://blobs.test/" + key,
		Size:     3,
	})
	require.NoError(t, err)
	return file
}

// reload fetches the current row, including soft-deleted ones.
func (env *testEnv) reload(t *testing.T, id int64) *models.Item {
	t.Helper()
	var item models.Item
	require.NoError(t, env.db.Unscoped().First(&item, "id = ?", id).Error)
	return &item
}
