// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Publisher uploads a processed image and returns where it went.
type Publisher interface {
	Publish(ctx context.Context, localPath, object string) (string, error)
}

// GCSPublisher uploads processed images to a Cloud Storage bucket.
type GCSPublisher struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSPublisher creates a publisher for bucket. Objects are written
// under prefix. An empty credentialsFile uses application default
// credentials.
func NewGCSPublisher(ctx context.Context, bucket, prefix, credentialsFile string) (*GCSPublisher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("service account key not accessible at %s: %w", credentialsFile, err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSPublisher{client: client, bucket: bucket, prefix: prefix}, nil
}

// Publish implements Publisher. It returns the gs:// URL of the object.
func (p *GCSPublisher) Publish(ctx context.Context, localPath, object string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open the local file %s: %w", localPath, err)
	}
	defer f.Close()

	name := path.Join(p.prefix, object)
	w := p.client.Bucket(p.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "image/png"
	w.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to copy %s to gs://%s/%s: %w", localPath, p.bucket, name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	return fmt.Sprintf("gs://%s/%s", p.bucket, name), nil
}

// Close releases the storage client.
func (p *GCSPublisher) Close() error {
	return p.client.Close()
}
