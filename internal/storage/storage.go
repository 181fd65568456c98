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

// Package storage publishes knowledge base files to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
)

// Supported backends
const (
	BackendS3    = "s3"
	BackendMinIO = "minio"
	BackendLocal = "local"
)

// Key prefixes for the published files
const (
	KnowledgeBasePrefix = "knowledge-base"
	SearchFormatPrefix  = "azure-search"
)

// ErrMissingBucket is returned when a remote backend has no bucket configured
var ErrMissingBucket = errors.New("storage bucket is required")

// ObjectStore stores whole objects under a key
type ObjectStore interface {
	// PutObject writes body under key and returns the object location
	PutObject(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (string, error)
	// Ping checks the bucket is reachable
	Ping(ctx context.Context) error
}

// NewObjectStore selects the backend named by cfg.Backend
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case BackendS3, "":
		return NewS3Store(ctx, cfg)
	case BackendMinIO:
		return NewMinIOStore(cfg)
	case BackendLocal:
		return NewLocalStore(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// DatedKey builds "<prefix>/<name>-YYYYMMDD.json"
func DatedKey(prefix, name string, now time.Time) string {
	slug := strings.Trim(unsafeKeyChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "knowledge"
	}
	return fmt.Sprintf("%s/%s-%s.json", prefix, slug, now.Format("20060102"))
}
