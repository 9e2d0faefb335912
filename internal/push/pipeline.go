// Package push drains the outbox to the remote merge endpoints. Mutations are
// sent tier by tier so parents reach the server before the rows that
// reference them; kinds within a tier push in parallel, mutations of one kind
// strictly in enqueue order.
package push

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/logging"
	"github.com/bujoapp/journalsync/internal/outbox"
	"github.com/bujoapp/journalsync/internal/registry"
	"github.com/bujoapp/journalsync/internal/remote"
	"github.com/bujoapp/journalsync/internal/wire"
)

// Repository is the slice of the outbox the pipeline needs.
type Repository interface {
	DrainBatch(ctx context.Context, limit int) ([]*outbox.Mutation, error)
	Acknowledge(ctx context.Context, id int64) error
}

// Stats counts one push run's outcomes.
type Stats struct {
	// Pushed mutations were accepted by the merge endpoint and acknowledged.
	Pushed int
	// Dropped mutations were discarded: undecodable payloads or permanent
	// endpoint rejections. Each drop is logged before acknowledgment.
	Dropped int
	// Failed mutations hit a transient error and stay queued for the next run.
	// Per-mutation transient failures are part of a completed run and never
	// surface as a Run error; only cycle-level faults (unreachable endpoint,
	// drain or acknowledge failures) do.
	Failed int
}

func (s *Stats) add(o Stats) {
	s.Pushed += o.Pushed
	s.Dropped += o.Dropped
	s.Failed += o.Failed
}

// Pipeline pushes pending mutations to the backend.
type Pipeline struct {
	outbox    Repository
	remote    remote.Client
	log       logging.Logger
	userID    string
	batchSize int
}

func NewPipeline(ob Repository, rc remote.Client, userID string, batchSize int, log logging.Logger) *Pipeline {
	return &Pipeline{
		outbox:    ob,
		remote:    rc,
		log:       log,
		userID:    userID,
		batchSize: batchSize,
	}
}

// Run drains the outbox until it is empty or progress stops. Mutations that
// hit a per-mutation transient failure stay queued and are counted in
// Stats.Failed; the run itself still completes with a nil error. A returned
// error means the cycle could not run at all: the endpoint is unreachable or
// the outbox itself failed.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var total Stats
	for {
		batch, err := p.outbox.DrainBatch(ctx, p.batchSize)
		if err != nil {
			return total, fmt.Errorf("draining outbox: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		stats, err := p.pushBatch(ctx, batch)
		total.add(stats)
		if err != nil {
			return total, err
		}
		// failed mutations sit at the head of their kind's queue; draining
		// again in the same run would just retry them immediately
		if stats.Failed > 0 || len(batch) < p.batchSize {
			return total, nil
		}
	}
}

// pushBatch walks the tier-ordered batch: each tier completes before the next
// starts, kinds within a tier run concurrently.
func (p *Pipeline) pushBatch(ctx context.Context, batch []*outbox.Mutation) (Stats, error) {
	var total Stats
	var firstErr error

	for start := 0; start < len(batch); {
		tier := tierOf(batch[start].EntityType)
		end := start
		for end < len(batch) && tierOf(batch[end].EntityType) == tier {
			end++
		}

		stats, err := p.pushTier(ctx, batch[start:end])
		total.add(stats)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		start = end
	}
	return total, firstErr
}

func (p *Pipeline) pushTier(ctx context.Context, muts []*outbox.Mutation) (Stats, error) {
	byKind := make(map[registry.Kind][]*outbox.Mutation)
	var order []registry.Kind
	for _, m := range muts {
		if _, seen := byKind[m.EntityType]; !seen {
			order = append(order, m.EntityType)
		}
		byKind[m.EntityType] = append(byKind[m.EntityType], m)
	}

	results := make([]Stats, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range order {
		queue := byKind[kind]
		g.Go(func() error {
			stats, err := p.pushQueue(gctx, queue)
			results[i] = stats
			return err
		})
	}
	err := g.Wait()

	var total Stats
	for _, s := range results {
		total.add(s)
	}
	return total, err
}

// pushQueue sends one kind's mutations in enqueue order. A per-mutation
// transient failure stops the queue so the failed mutation retries before
// anything behind it, but is not an error: the rest of the run proceeds. An
// unreachable endpoint or a failing acknowledge aborts the whole run.
func (p *Pipeline) pushQueue(ctx context.Context, queue []*outbox.Mutation) (Stats, error) {
	var stats Stats
	for i, m := range queue {
		proc, params, err := p.buildCall(m)
		if err != nil {
			p.log.Warn(ctx, "dropping malformed outbox mutation",
				"id", m.ID, "entity_type", m.EntityType, "entity_id", m.EntityID, "error", err)
			if err := p.outbox.Acknowledge(ctx, m.ID); err != nil {
				return stats, fmt.Errorf("acknowledging mutation %d: %w", m.ID, err)
			}
			stats.Dropped++
			continue
		}

		if err := p.remote.Merge(ctx, proc, params); err != nil {
			if remote.IsPermanent(err) {
				p.log.Error(ctx, "merge endpoint rejected mutation, dropping",
					"id", m.ID, "proc", proc, "entity_id", m.EntityID, "error", err)
				if err := p.outbox.Acknowledge(ctx, m.ID); err != nil {
					return stats, fmt.Errorf("acknowledging mutation %d: %w", m.ID, err)
				}
				stats.Dropped++
				continue
			}
			stats.Failed += len(queue) - i
			if errors.Is(err, common.ErrEndpointUnreachable) || ctx.Err() != nil {
				return stats, fmt.Errorf("pushing mutation %d (%s): %w", m.ID, proc, err)
			}
			p.log.Warn(ctx, "transient failure, mutation stays queued",
				"id", m.ID, "proc", proc, "entity_id", m.EntityID, "error", err)
			return stats, nil
		}

		if err := p.outbox.Acknowledge(ctx, m.ID); err != nil {
			return stats, fmt.Errorf("acknowledging mutation %d: %w", m.ID, err)
		}
		stats.Pushed++
	}
	return stats, nil
}

func (p *Pipeline) buildCall(m *outbox.Mutation) (string, map[string]any, error) {
	rec, err := wire.DecodeRecord(m.RecordData)
	if err != nil {
		return "", nil, err
	}
	return wire.BuildMergeCall(m.EntityType, rec, p.userID)
}

func tierOf(k registry.Kind) int {
	if info, ok := registry.Lookup(k); ok {
		return info.Tier
	}
	return int(^uint(0) >> 1)
}
