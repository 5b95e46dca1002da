package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient hosts chat images on any S3-compatible object store.
type MinioClient struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinioClient(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %v", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %v", bucket, err)
		}
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}

	return &MinioClient{
		client:    client,
		bucket:    bucket,
		publicURL: fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(endpoint, "/"), bucket),
	}, nil
}

func (m *MinioClient) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	name := objectName(filename, contentType, time.Now())

	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %v", name, err)
	}

	return m.publicURL + "/" + name, nil
}
