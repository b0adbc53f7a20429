package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/repository"
)

type mapKeys map[string]string

func (m mapKeys) PrimaryObjectKey(_ context.Context, userID string) (string, error) {
	k, ok := m[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return k, nil
}

type failingSigner struct{}

func (failingSigner) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", errors.New("signer down")
}

func TestPhotoResolver(t *testing.T) {
	t.Parallel()

	r := NewPhotoResolver(mapKeys{"u1": "avatars/u1.jpg"}, PublicURLs{Base: "https://cdn.example/media/"})
	ctx := context.Background()

	u, ok, err := r.PrimaryPhotoURL(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("PrimaryPhotoURL: %v %v", ok, err)
	}
	if u != "https://cdn.example/media/avatars/u1.jpg" {
		t.Fatalf("url: %q", u)
	}

	if _, ok, err := r.PrimaryPhotoURL(ctx, "u2"); ok || err != nil {
		t.Fatalf("missing photo: ok=%v err=%v", ok, err)
	}

	bad := NewPhotoResolver(mapKeys{"u1": "k"}, failingSigner{})
	if _, _, err := bad.PrimaryPhotoURL(ctx, "u1"); err == nil {
		t.Fatalf("expected signer error")
	}
}

func TestPresignGetWithMinioClient(t *testing.T) {
	t.Parallel()

	s, err := NewS3Storage(S3Config{
		Endpoint:  "localhost:9000",
		Bucket:    "media",
		AccessKey: "minio",
		SecretKey: "minio123",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewS3Storage: %v", err)
	}
	u, err := s.PresignGet(context.Background(), "avatars/u1.jpg", PhotoURLTTL)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	if !strings.Contains(u, "/media/avatars/u1.jpg") || !strings.Contains(u, "X-Amz-Signature=") {
		t.Fatalf("unexpected presigned url: %s", u)
	}
}

func TestLoadS3ConfigFromEnv(t *testing.T) {
	t.Setenv("S3_ENDPOINT", "")
	if _, err := LoadS3ConfigFromEnv(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_BUCKET", "media")
	t.Setenv("S3_ACCESS_KEY", "a")
	t.Setenv("S3_SECRET_KEY", "b")
	t.Setenv("S3_USE_SSL", "maybe")
	if _, err := LoadS3ConfigFromEnv(); err == nil {
		t.Fatalf("expected S3_USE_SSL parse error")
	}
	t.Setenv("S3_USE_SSL", "true")
	cfg, err := LoadS3ConfigFromEnv()
	if err != nil || !cfg.UseSSL || cfg.Bucket != "media" {
		t.Fatalf("cfg: %+v err=%v", cfg, err)
	}
}
