package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONDecodesAndSendsParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "intitle:Dune", r.URL.Query().Get("q"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems": 1}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(time.Second)
	var out struct {
		TotalItems int `json:"totalItems"`
	}
	err := client.GetJSON(context.Background(), srv.URL, url.Values{"q": {"intitle:Dune"}},
		map[string]string{"Authorization": "Bearer token"}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, out.TotalItems)
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	var out map[string]any
	err := NewHTTPClient(time.Second).GetJSON(context.Background(), srv.URL, nil, nil, &out)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestGetJSONHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out map[string]any
	err := NewHTTPClient(time.Second).GetJSON(ctx, srv.URL, nil, nil, &out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
