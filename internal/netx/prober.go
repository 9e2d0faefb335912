// Package netx provides connectivity probing for the sync engine's
// reachability gate.
package netx

import (
	"context"
	"time"
)

// Pinger is anything that can answer a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober answers "is the backend reachable right now" with a bounded probe.
type Prober struct {
	pinger  Pinger
	timeout time.Duration
}

func NewProber(pinger Pinger, timeout time.Duration) *Prober {
	return &Prober{pinger: pinger, timeout: timeout}
}

// Reachable runs one probe. It never blocks longer than the configured timeout.
func (p *Prober) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.pinger.Ping(ctx) == nil
}
