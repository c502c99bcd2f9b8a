package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/user/wisepick/internal/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func sampleBooks() []model.EnrichedItem {
	return []model.EnrichedItem{
		{
			Kind:  model.KindBook,
			Title: "The Hobbit",
			BookDetails: &model.BookDetails{
				Author:        "J.R.R. Tolkien",
				CoverImageURL: "http://books.google.com/cover/hobbit",
				PreviewURL:    "http://books.google.com/preview/hobbit",
			},
		},
		{
			Kind:  model.KindBook,
			Title: "Dune",
			BookDetails: &model.BookDetails{
				Author:        "Frank Herbert",
				CoverImageURL: "http://books.google.com/cover/dune",
				PreviewURL:    "http://books.google.com/preview/dune",
			},
		},
	}
}

func TestLookupMissReturnsNil(t *testing.T) {
	repo := NewQueryCacheRepository(openTestDB(t))

	row, err := repo.Lookup(context.Background(), model.KindBook, "fantasy adventure")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestStoreThenLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	stored, err := repo.Store(ctx, model.KindBook, "fantasy adventure", sampleBooks())
	require.NoError(t, err)
	assert.Equal(t, 1, stored.HitCount)
	assert.NotZero(t, stored.ID)

	found, err := repo.Lookup(ctx, model.KindBook, "fantasy adventure")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, found.HitCount)

	items, err := found.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "The Hobbit", items[0].Title)
	assert.Equal(t, "J.R.R. Tolkien", items[0].Author)
	assert.Nil(t, items[0].MovieDetails)
}

func TestLookupIsScopedByKind(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	_, err := repo.Store(ctx, model.KindBook, "space opera", sampleBooks())
	require.NoError(t, err)

	row, err := repo.Lookup(ctx, model.KindMovie, "space opera")
	require.NoError(t, err)
	assert.Nil(t, row)

	_, err = repo.Store(ctx, model.KindMovie, "space opera", nil)
	require.NoError(t, err)
}

func TestStoreDuplicateReturnsErrDuplicateKey(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	_, err := repo.Store(ctx, model.KindBook, "cozy mysteries", sampleBooks())
	require.NoError(t, err)

	_, err = repo.Store(ctx, model.KindBook, "cozy mysteries", sampleBooks())
	require.ErrorIs(t, err, ErrDuplicateKey)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRecordHitIncrementsAndTouches(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	stored, err := repo.Store(ctx, model.KindBook, "fantasy adventure", sampleBooks())
	require.NoError(t, err)

	repo.now = func() time.Time { return base.Add(time.Hour) }
	updated, err := repo.RecordHit(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.HitCount)
	assert.True(t, updated.LastAccessedAt.After(stored.LastAccessedAt))

	updated, err = repo.RecordHit(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.HitCount)
}

func TestRecordHitConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	stored, err := repo.Store(ctx, model.KindBook, "fantasy adventure", sampleBooks())
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordHit(ctx, stored)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	row, err := repo.Lookup(ctx, model.KindBook, "fantasy adventure")
	require.NoError(t, err)
	assert.Equal(t, n+1, row.HitCount)
}

func TestConcurrentStoreOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	const n = 10
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Store(ctx, model.KindBook, "race condition", sampleBooks())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			assert.ErrorIs(t, err, ErrDuplicateKey)
			duplicates++
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, duplicates)
}

func TestRecordHitOnEvictedRow(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	_, err := repo.RecordHit(ctx, &model.CachedQuery{ID: 42})
	require.ErrorIs(t, err, ErrEntryGone)

	_, err = repo.RecordHit(ctx, nil)
	require.ErrorIs(t, err, ErrEntryGone)
}

func TestPopularOrdersByHitCount(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	rare, err := repo.Store(ctx, model.KindBook, "rare query", sampleBooks())
	require.NoError(t, err)
	common, err := repo.Store(ctx, model.KindBook, "common query", sampleBooks())
	require.NoError(t, err)
	_, err = repo.Store(ctx, model.KindMovie, "movie query", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = repo.RecordHit(ctx, common)
		require.NoError(t, err)
	}
	_, err = repo.RecordHit(ctx, rare)
	require.NoError(t, err)

	popular, err := repo.Popular(ctx, model.KindBook, 5)
	require.NoError(t, err)
	require.Len(t, popular, 2)
	assert.Equal(t, "common query", popular[0].QueryText)
	assert.Equal(t, 4, popular[0].HitCount)
	assert.Equal(t, "rare query", popular[1].QueryText)
	assert.Equal(t, model.KindBook, popular[1].Kind)
}

func TestDeleteStale(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }
	_, err := repo.Store(ctx, model.KindBook, "old query", sampleBooks())
	require.NoError(t, err)

	repo.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, err = repo.Store(ctx, model.KindBook, "fresh query", sampleBooks())
	require.NoError(t, err)

	removed, err := repo.DeleteStale(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	row, err := repo.Lookup(ctx, model.KindBook, "old query")
	require.NoError(t, err)
	assert.Nil(t, row)

	row, err = repo.Lookup(ctx, model.KindBook, "fresh query")
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestTrimToSizeKeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewQueryCacheRepository(openTestDB(t))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		repo.now = func() time.Time { return at }
		_, err := repo.Store(ctx, model.KindBook, fmt.Sprintf("query %d", i), sampleBooks())
		require.NoError(t, err)
	}

	removed, err := repo.TrimToSize(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	for _, q := range []string{"query 3", "query 4"} {
		row, err := repo.Lookup(ctx, model.KindBook, q)
		require.NoError(t, err)
		assert.NotNil(t, row, q)
	}

	removed, err = repo.TrimToSize(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintError(fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isUniqueConstraintError(fmt.Errorf("UNIQUE constraint failed: cached_queries.kind")))
	assert.False(t, isUniqueConstraintError(fmt.Errorf("connection refused")))
}
