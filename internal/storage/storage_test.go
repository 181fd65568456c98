// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	source      string
}

// fakeObjectServer accepts S3-style path requests and records them
func fakeObjectServer(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)

		mu.Lock()
		requests = append(requests, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			source:      r.Header.Get("X-Amz-Meta-Source"),
		})
		mu.Unlock()

		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func findPut(requests []recordedRequest, path string) (recordedRequest, bool) {
	for _, req := range requests {
		if req.method == http.MethodPut && req.path == path {
			return req, true
		}
	}
	return recordedRequest{}, false
}

func TestDatedKey(t *testing.T) {
	now := time.Date(2024, 6, 3, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "knowledge-base/wind-turbine-services-20240603.json",
		DatedKey(KnowledgeBasePrefix, "wind-turbine-services", now))
	assert.Equal(t, "azure-search/docker-manifest-20240603.json",
		DatedKey(SearchFormatPrefix, "Docker Manifest", now))
	assert.Equal(t, "knowledge-base/knowledge-20240603.json", DatedKey(KnowledgeBasePrefix, "///", now))
}

func TestNewObjectStore(t *testing.T) {
	ctx := context.Background()

	_, err := NewObjectStore(ctx, config.StorageConfig{Backend: "gcs"})
	assert.Error(t, err)

	_, err = NewObjectStore(ctx, config.StorageConfig{Backend: BackendS3, Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrMissingBucket)

	_, err = NewObjectStore(ctx, config.StorageConfig{Backend: BackendMinIO, Endpoint: "localhost:9000"})
	assert.ErrorIs(t, err, ErrMissingBucket)

	store, err := NewObjectStore(ctx, config.StorageConfig{Backend: BackendLocal, LocalPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewLocalStore(root)
	require.NoError(t, err)
	require.NoError(t, store.Ping(ctx))

	location, err := store.PutObject(ctx, "knowledge-base/kb-20240603.json", []byte(`{"a":1}`),
		"application/json", map[string]string{"version": "1.0"})
	require.NoError(t, err)

	path := filepath.Join(root, "knowledge-base", "kb-20240603.json")
	assert.Equal(t, "file://"+path, location)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))

	raw, err := os.ReadFile(path + ".meta.json")
	require.NoError(t, err)
	var sidecar struct {
		ContentType string            `json:"content_type"`
		Metadata    map[string]string `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(raw, &sidecar))
	assert.Equal(t, "application/json", sidecar.ContentType)
	assert.Equal(t, "1.0", sidecar.Metadata["version"])

	_, err = store.PutObject(ctx, "../escape.json", nil, "application/json", nil)
	assert.Error(t, err)
}

func TestS3Store_PutObject(t *testing.T) {
	server, requests := fakeObjectServer(t)

	store, err := NewS3Store(context.Background(), config.StorageConfig{
		Bucket:          "swire-knowledge-base",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	location, err := store.PutObject(context.Background(), "knowledge-base/kb-20240603.json",
		[]byte(`{"value": []}`), "application/json", map[string]string{"source": "swire-intelligence-assistant"})
	require.NoError(t, err)
	assert.Equal(t, "s3://swire-knowledge-base/knowledge-base/kb-20240603.json", location)

	put, ok := findPut(requests(), "/swire-knowledge-base/knowledge-base/kb-20240603.json")
	require.True(t, ok)
	assert.Equal(t, "application/json", put.contentType)
	assert.Equal(t, "swire-intelligence-assistant", put.source)

	require.NoError(t, store.Ping(context.Background()))
}

func TestMinIOStore_PutObject(t *testing.T) {
	server, requests := fakeObjectServer(t)

	store, err := NewMinIOStore(config.StorageConfig{
		Bucket:          "swire-knowledge-base",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
	})
	require.NoError(t, err)

	location, err := store.PutObject(context.Background(), "azure-search/kb-20240603.json",
		[]byte(`{"documents": []}`), "application/json", map[string]string{"source": "swire-intelligence-assistant"})
	require.NoError(t, err)
	assert.Equal(t, "s3://swire-knowledge-base/azure-search/kb-20240603.json", location)

	put, ok := findPut(requests(), "/swire-knowledge-base/azure-search/kb-20240603.json")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(put.contentType, "application/json"))
	assert.Equal(t, "swire-intelligence-assistant", put.source)
}
