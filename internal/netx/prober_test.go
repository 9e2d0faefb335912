package netx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err   error
	block bool
}

func (f *fakePinger) Ping(ctx context.Context) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func TestReachable(t *testing.T) {
	p := NewProber(&fakePinger{}, time.Second)
	assert.True(t, p.Reachable(context.Background()))
}

func TestReachable_PingFails(t *testing.T) {
	p := NewProber(&fakePinger{err: errors.New("connection refused")}, time.Second)
	assert.False(t, p.Reachable(context.Background()))
}

func TestReachable_Timeout(t *testing.T) {
	p := NewProber(&fakePinger{block: true}, 10*time.Millisecond)

	start := time.Now()
	ok := p.Reachable(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}
