// Package device provides the stable per-install device identifier used to
// stamp outgoing field updates.
package device

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bujoapp/journalsync/internal/metadata"
)

const idKey = "device_id"

// Provider loads or mints the device id. The id is generated once per install
// and persisted through the metadata repository; every later call returns the
// same value.
type Provider struct {
	meta metadata.Repository
}

func NewProvider(meta metadata.Repository) *Provider {
	return &Provider{meta: meta}
}

// ID returns the persisted device id, creating one on first use.
func (p *Provider) ID(ctx context.Context) (string, error) {
	value, err := p.meta.Get(ctx, idKey)
	if err != nil {
		return "", fmt.Errorf("loading device id: %w", err)
	}
	if len(value) > 0 {
		return string(value), nil
	}

	id := uuid.NewString()
	if err := p.meta.Set(ctx, idKey, []byte(id)); err != nil {
		return "", fmt.Errorf("persisting device id: %w", err)
	}
	return id, nil
}
