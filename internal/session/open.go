// Package session holds the storage backends behind wizard records and the
// helpers that name and open them.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/scibee/farmwiz/internal/config"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/nats"
	"github.com/scibee/farmwiz/internal/wizard"
)

// Backends is the opened storage for one process.
type Backends struct {
	// Records stores wizard and auth records.
	Records wizard.Backend
	// JetStream is set for the nats store; the journal uses it.
	JetStream jetstream.JetStream
	// Kind is the configured store kind.
	Kind string

	closers []func() error
}

// Open builds the backend selected by cfg.Store and wraps it with Sealed
// when cfg.SealKey is set.
func Open(ctx context.Context, cfg *config.Config) (*Backends, error) {
	log := logger.With("session")
	b := &Backends{Kind: cfg.Store}

	switch cfg.Store {
	case config.StoreNATS:
		emb, err := nats.Start(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("starting embedded nats: %w", err)
		}
		b.closers = append(b.closers, emb.Close)
		kv, err := nats.SetupRecordBucket(ctx, emb.JetStream, cfg.RecordTTL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Records = NewKVBackend(kv)
		b.JetStream = emb.JetStream
	case config.StoreRedis:
		rb, err := NewRedisBackend(ctx, cfg.RedisURL, cfg.RecordTTL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, rb.Close)
		b.Records = rb
	case config.StoreFile:
		b.Records = NewFileBackend(filepath.Join(cfg.DataDir, "records"))
	case config.StoreMemory:
		b.Records = wizard.NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.SealKey != "" {
		sealed, err := Sealed(b.Records, cfg.SealKey)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.Records = sealed
	}

	log.Info("Opened %s record store", cfg.Store)
	return b, nil
}

// Close releases every resource in reverse order of acquisition.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
