package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/user/wisepick/internal/model"
	"github.com/user/wisepick/internal/repository"
)

type fakeGenerator struct {
	calls      atomic.Int32
	candidates []model.Candidate
	err        error
	lastCount  atomic.Int32
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, count int, _ model.ContentKind) ([]model.Candidate, error) {
	f.calls.Add(1)
	f.lastCount.Store(int32(count))
	if f.err != nil {
		return nil, f.err
	}
	if count < len(f.candidates) {
		return f.candidates[:count], nil
	}
	return f.candidates, nil
}

type fakeBooks struct {
	mu      sync.Mutex
	calls   int
	matches map[string]*BookMatch
	errs    map[string]error
}

func (f *fakeBooks) SearchBook(_ context.Context, title string) (*BookMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[title]; err != nil {
		return nil, err
	}
	return f.matches[title], nil
}

func (f *fakeBooks) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMovies struct {
	matches map[string]*MovieMatch
}

func (f *fakeMovies) SearchMovie(_ context.Context, title string) (*MovieMatch, error) {
	return f.matches[title], nil
}

type fakeTrailers struct {
	links map[string]string
}

func (f *fakeTrailers) TrailerURL(_ context.Context, title string) string {
	return f.links[title]
}

func bookMatch(title, author string) *BookMatch {
	return &BookMatch{
		VolumeID:      "vol-" + title,
		Title:         title,
		Author:        author,
		CoverImageURL: "http://books.google.com/cover/" + title,
		PreviewURL:    "http://books.google.com/preview/" + title,
	}
}

func openServiceDB(t *testing.T) *repository.QueryCacheRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.InitDB("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repository.NewQueryCacheRepository(db)
}
