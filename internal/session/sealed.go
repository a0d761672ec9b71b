package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/scibee/farmwiz/internal/wizard"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnsealable is returned for stored data that fails authentication.
var ErrUnsealable = errors.New("record cannot be unsealed")

// SealedBackend encrypts every record before it reaches the inner backend.
// Registration records hold passwords; sealing keeps them opaque at rest.
type SealedBackend struct {
	inner wizard.Backend
	key   [32]byte
}

// Sealed wraps inner, deriving the box key from secret.
func Sealed(inner wizard.Backend, secret string) (*SealedBackend, error) {
	if secret == "" {
		return nil, errors.New("seal key is empty")
	}
	b := &SealedBackend{inner: inner}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("farmwiz-records-v1"))
	if _, err := io.ReadFull(kdf, b.key[:]); err != nil {
		return nil, fmt.Errorf("deriving seal key: %w", err)
	}
	return b, nil
}

func (b *SealedBackend) Get(ctx context.Context, key string) ([]byte, error) {
	box, err := b.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, ErrUnsealable
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &b.key)
	if !ok {
		return nil, ErrUnsealable
	}
	return plain, nil
}

func (b *SealedBackend) Put(ctx context.Context, key string, data []byte) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], data, &nonce, &b.key)
	return b.inner.Put(ctx, key, box)
}

func (b *SealedBackend) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, key)
}
