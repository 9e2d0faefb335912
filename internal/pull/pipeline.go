// Package pull applies remote changes to the local mirror. Each table is read
// incrementally: rows with revision above the stored cursor, ascending, in
// batches. Tombstones delete locally, live rows overwrite, malformed rows are
// logged and skipped without blocking the cursor.
package pull

import (
	"context"
	"errors"
	"fmt"

	"github.com/bujoapp/journalsync/internal/common"
	"github.com/bujoapp/journalsync/internal/journal"
	"github.com/bujoapp/journalsync/internal/logging"
	"github.com/bujoapp/journalsync/internal/registry"
	"github.com/bujoapp/journalsync/internal/remote"
	"github.com/bujoapp/journalsync/internal/wire"
)

// Store is the local mirror the pipeline writes into. Get returns
// common.ErrNotFound for ids without a mirror row.
type Store interface {
	Get(ctx context.Context, kind registry.Kind, id string) (journal.Entity, error)
	Put(ctx context.Context, e journal.Entity) error
	Delete(ctx context.Context, kind registry.Kind, id string) error
}

// Cursors tracks the per-table high-water mark.
type Cursors interface {
	Get(ctx context.Context, table string) (int64, error)
	Advance(ctx context.Context, table string, revision int64) error
}

// Stats counts one pull run's outcomes.
type Stats struct {
	Applied int
	Deleted int
	Skipped int
}

func (s *Stats) add(o Stats) {
	s.Applied += o.Applied
	s.Deleted += o.Deleted
	s.Skipped += o.Skipped
}

// Pipeline pulls remote rows into the local mirror.
type Pipeline struct {
	remote    remote.Client
	store     Store
	cursors   Cursors
	log       logging.Logger
	batchSize int
}

func NewPipeline(rc remote.Client, store Store, cursors Cursors, batchSize int, log logging.Logger) *Pipeline {
	return &Pipeline{
		remote:    rc,
		store:     store,
		cursors:   cursors,
		log:       log,
		batchSize: batchSize,
	}
}

// Run pulls every table to its current head. A transport failure stops the
// run; cursors already advanced stay advanced, so the next run resumes where
// this one left off.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var total Stats
	for _, info := range registry.Ordered() {
		stats, err := p.pullTable(ctx, info)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (p *Pipeline) pullTable(ctx context.Context, info registry.Info) (Stats, error) {
	var total Stats
	for {
		after, err := p.cursors.Get(ctx, info.Table)
		if err != nil {
			return total, fmt.Errorf("reading cursor for %s: %w", info.Table, err)
		}

		rows, err := p.remote.Pull(ctx, info.Table, after, p.batchSize)
		if err != nil {
			return total, fmt.Errorf("pulling %s: %w", info.Table, err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		stats, maxRev, err := p.applyBatch(ctx, info, rows)
		total.add(stats)
		if err != nil {
			return total, err
		}

		// the cursor moves past skipped rows too; a malformed row is never
		// re-fetched forever
		if maxRev > after {
			if err := p.cursors.Advance(ctx, info.Table, maxRev); err != nil {
				return total, fmt.Errorf("advancing cursor for %s: %w", info.Table, err)
			}
		}
		if len(rows) < p.batchSize || maxRev <= after {
			return total, nil
		}
	}
}

func (p *Pipeline) applyBatch(ctx context.Context, info registry.Info, rows []wire.Row) (Stats, int64, error) {
	var stats Stats
	var maxRev int64

	for _, row := range rows {
		rev, err := wire.RowRevision(row)
		if err != nil {
			p.log.Warn(ctx, "skipping row without readable revision",
				"table", info.Table, "error", err)
			stats.Skipped++
			continue
		}
		if rev > maxRev {
			maxRev = rev
		}

		if wire.RowDeleted(row) {
			id, ok := row["id"].(string)
			if !ok || id == "" {
				p.log.Warn(ctx, "skipping tombstone without id",
					"table", info.Table, "revision", rev)
				stats.Skipped++
				continue
			}
			if err := p.store.Delete(ctx, info.Kind, id); err != nil {
				return stats, maxRev, fmt.Errorf("deleting %s %s: %w", info.Table, id, err)
			}
			stats.Deleted++
			continue
		}

		if err := p.applyRow(ctx, info, row); err != nil {
			if errors.Is(err, common.ErrMalformedRecord) {
				p.log.Warn(ctx, "skipping malformed row",
					"table", info.Table, "revision", rev, "error", err)
				stats.Skipped++
				continue
			}
			return stats, maxRev, err
		}
		stats.Applied++
	}
	return stats, maxRev, nil
}

// applyRow reconciles one live row with the mirror: an unseen id is parsed
// into a fresh entity, a known id has its fields overwritten in place.
func (p *Pipeline) applyRow(ctx context.Context, info registry.Info, row wire.Row) error {
	id, _ := row["id"].(string)
	existing, err := p.store.Get(ctx, info.Kind, id)
	switch {
	case errors.Is(err, common.ErrNotFound):
		e, err := wire.ParseRow(info.Kind, row)
		if err != nil {
			return err
		}
		if err := p.store.Put(ctx, e); err != nil {
			return fmt.Errorf("storing %s %s: %w", info.Table, e.EntityID(), err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("loading %s %s: %w", info.Table, id, err)
	}

	live, err := wire.ApplyRow(row, existing)
	if err != nil {
		return err
	}
	if !live {
		// a tombstone never reaches here, applyBatch deletes those first
		return fmt.Errorf("%w: unexpected tombstone for %s %s", common.ErrMalformedRecord, info.Table, id)
	}
	if err := p.store.Put(ctx, existing); err != nil {
		return fmt.Errorf("storing %s %s: %w", info.Table, id, err)
	}
	return nil
}
