package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), logger.NewNoopLogger())
	require.NoError(t, err)

	key := "firms/a/engagements/b/c/plan.pdf"
	require.NoError(t, store.Put(ctx, key, "application/pdf", strings.NewReader("hello"), 5))

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.True(t, errors.IsNotFoundError(err))
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), logger.NewNoopLogger())
	require.NoError(t, err)

	err = store.Put(context.Background(), "../outside.txt", "text/plain", strings.NewReader("x"), 1)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))
}

// fakeS3 serves path-style object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		f.types[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", f.types[path])
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewDocumentStore(ctx, &config.StorageConfig{
		Backend: "s3",
		S3: config.S3StorageConfig{
			Bucket:          "docs",
			Region:          "us-east-1",
			Endpoint:        srv.URL,
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			UsePathStyle:    true,
		},
	}, logger.NewNoopLogger())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "firms/a/doc.txt", "text/plain", bytes.NewReader([]byte("hello s3")), 8))
	assert.Equal(t, []byte("hello s3"), fake.objects["/docs/firms/a/doc.txt"])
	assert.Equal(t, "text/plain", fake.types["/docs/firms/a/doc.txt"])

	rc, err := store.Get(ctx, "firms/a/doc.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "hello s3", string(data))

	require.NoError(t, store.Delete(ctx, "firms/a/doc.txt"))
	_, err = store.Get(ctx, "firms/a/doc.txt")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestNewDocumentStore_UnknownBackend(t *testing.T) {
	_, err := NewDocumentStore(context.Background(), &config.StorageConfig{Backend: "gcs"}, logger.NewNoopLogger())
	assert.Error(t, err)
}
