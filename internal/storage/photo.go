package storage

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/tapin-reveal/internal/repository"
)

// PhotoURLTTL is how long a presigned primary photo URL stays valid.
const PhotoURLTTL = 15 * time.Minute

// KeyLookup finds the object key of a user's primary photo.
type KeyLookup interface {
	PrimaryObjectKey(ctx context.Context, userID string) (string, error)
}

// Presigner turns an object key into a download URL.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PhotoResolver answers "what is this user's primary photo URL".
type PhotoResolver struct {
	keys   KeyLookup
	signer Presigner
	ttl    time.Duration
}

func NewPhotoResolver(keys KeyLookup, signer Presigner) *PhotoResolver {
	return &PhotoResolver{keys: keys, signer: signer, ttl: PhotoURLTTL}
}

// PrimaryPhotoURL returns ok=false when the user has no primary photo.
func (r *PhotoResolver) PrimaryPhotoURL(ctx context.Context, userID string) (string, bool, error) {
	key, err := r.keys.PrimaryObjectKey(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	u, err := r.signer.PresignGet(ctx, key, r.ttl)
	if err != nil {
		return "", false, err
	}
	return u, true, nil
}
