package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cloakforge/cloak/internal/pipeline"
)

// RunStats aggregates one run's results. Encoded as msgpack into the
// runs.stats column when the run finishes.
type RunStats struct {
	Functions int            `msgpack:"functions"`
	Results   int            `msgpack:"results"`
	Modified  int            `msgpack:"modified"`
	Failures  int            `msgpack:"failures"`
	PerPass   map[string]int `msgpack:"per_pass"`
}

// Writer records one run. It implements pipeline.Sink; results arrive
// already stamped and in seq order. Not safe for concurrent use, matching
// the pipeline's single stamping goroutine.
type Writer struct {
	store *Store
	runID string
	stats RunStats
	funcs map[string]bool
}

// BeginRun inserts the run row and returns a Writer for its results.
// The run id is a UUIDv7, so ids sort by creation time.
func (s *Store) BeginRun(ctx context.Context, module string, seed int64) (*Writer, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, module, seed, created)
		VALUES (?, ?, ?, ?)
	`, id.String(), module, seed, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Writer{
		store: s,
		runID: id.String(),
		stats: RunStats{PerPass: make(map[string]int)},
		funcs: make(map[string]bool),
	}, nil
}

// RunID returns the identifier of the run being written.
func (w *Writer) RunID() string {
	return w.runID
}

// WriteResult inserts one result row. Duplicate (run, seq) writes are
// silently ignored for idempotency.
func (w *Writer) WriteResult(ctx context.Context, r pipeline.Result) error {
	_, err := w.store.db.ExecContext(ctx, `
		INSERT INTO results (run_id, seq, func, pass, modified, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, w.runID, r.Seq, r.Func, r.Pass, boolToInt(r.Modified), r.Err)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	w.stats.Results++
	if r.Modified {
		w.stats.Modified++
		w.stats.PerPass[r.Pass]++
	}
	if r.Err != "" {
		w.stats.Failures++
	}
	if !w.funcs[r.Func] {
		w.funcs[r.Func] = true
		w.stats.Functions++
	}
	return nil
}

// Finish encodes the accumulated stats onto the run row.
func (w *Writer) Finish(ctx context.Context) error {
	blob, err := msgpack.Marshal(&w.stats)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	_, err = w.store.db.ExecContext(ctx,
		`UPDATE runs SET stats = ? WHERE id = ?`, blob, w.runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Stats returns the accumulated counters so far.
func (w *Writer) Stats() RunStats {
	return w.stats
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
