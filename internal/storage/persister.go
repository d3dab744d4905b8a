package storage

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/account-monitor/internal/errors"
	"github.com/account-monitor/internal/logging"
)

// Persister flushes and loads the whole store through a codec and a backend
type Persister struct {
	codec  Codec
	blobs  BlobStore
	logger *logging.Logger
}

// NewPersister joins codec and blobs
func NewPersister(codec Codec, blobs BlobStore, logger *logging.Logger) *Persister {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Persister{codec: codec, blobs: blobs, logger: logger}
}

// Load decodes the stored blob, or returns an empty store when none exists
func (p *Persister) Load(ctx context.Context) (*AccountStore, error) {
	data, err := p.blobs.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			p.logger.Info("No saved store found, starting empty")
			return NewAccountStore(), nil
		}
		return nil, apperrors.NewPersistenceError("load", err)
	}

	state, err := p.codec.Decode(data)
	if err != nil {
		return nil, apperrors.NewPersistenceError("decode", err)
	}

	store, err := RestoreAccountStore(state)
	if err != nil {
		return nil, apperrors.NewPersistenceError("restore", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"format":   p.codec.Name(),
		"bytes":    len(data),
		"accounts": len(state.Accounts),
	}).Info("Loaded saved store")
	return store, nil
}

// Save encodes shared under its read lock and writes the blob after releasing it
func (p *Persister) Save(ctx context.Context, shared *SharedStore) error {
	start := time.Now()

	var data []byte
	err := shared.Read(func(store *AccountStore) error {
		var encErr error
		data, encErr = p.codec.Encode(store.State())
		return encErr
	})
	if err != nil {
		return apperrors.NewPersistenceError("encode", err)
	}

	if err := p.blobs.Put(ctx, data); err != nil {
		return apperrors.NewPersistenceError("save", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"format":   p.codec.Name(),
		"bytes":    len(data),
		"duration": time.Since(start).String(),
	}).Debug("Saved store")
	return nil
}

// Close releases the backend
func (p *Persister) Close() error {
	return p.blobs.Close()
}
