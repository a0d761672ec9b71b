package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/scibee/farmwiz/internal/wizard"
)

// KVBackend stores records in a JetStream key/value bucket.
type KVBackend struct {
	kv jetstream.KeyValue
}

// NewKVBackend wraps an existing bucket.
func NewKVBackend(kv jetstream.KeyValue) *KVBackend {
	return &KVBackend{kv: kv}
}

func (b *KVBackend) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, wizard.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s from bucket: %w", key, err)
	}
	return entry.Value(), nil
}

func (b *KVBackend) Put(ctx context.Context, key string, data []byte) error {
	if _, err := b.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s to bucket: %w", key, err)
	}
	return nil
}

func (b *KVBackend) Delete(ctx context.Context, key string) error {
	if err := b.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("deleting %s from bucket: %w", key, err)
	}
	return nil
}
