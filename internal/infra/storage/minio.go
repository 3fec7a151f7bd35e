package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New connects to MinIO and ensures the bucket exists
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// IssueUploadTarget returns a presigned PUT URL the client uploads raw bytes
// to. The URL alone grants no read access.
func (s *Store) IssueUploadTarget(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucketName, ref, ttl)
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", ref, err)
	}
	return u.String(), nil
}

// ResolveURL returns a presigned GET URL for an existing object. Fails when
// the object is missing so callers can distinguish a dangling ref from a
// presign error.
func (s *Store) ResolveURL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	if _, err := s.client.StatObject(ctx, s.bucketName, ref, minio.StatObjectOptions{}); err != nil {
		return "", fmt.Errorf("stat %s: %w", ref, err)
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, ref, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", ref, err)
	}
	return u.String(), nil
}

// Delete removes the backing object
func (s *Store) Delete(ctx context.Context, ref string) error {
	return s.client.RemoveObject(ctx, s.bucketName, ref, minio.RemoveObjectOptions{})
}

// Healthy pings the bucket, used by the health endpoint
func (s *Store) Healthy(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
