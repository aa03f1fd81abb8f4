package report

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/cloakforge/cloak/internal/pipeline"
)

// Run is one recorded pipeline invocation. Stats is nil for runs that
// never finished.
type Run struct {
	ID      string
	Module  string
	Seed    int64
	Created int64
	Stats   *RunStats
}

// Runs returns every recorded run, newest first (UUIDv7 ids sort by
// creation time).
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, module, seed, created, stats
		FROM runs
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Module, &r.Seed, &r.Created, &blob); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if len(blob) > 0 {
			var st RunStats
			if err := msgpack.Unmarshal(blob, &st); err != nil {
				return nil, fmt.Errorf("list runs: decode stats for %s: %w", r.ID, err)
			}
			r.Stats = &st
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Results returns a run's result rows in seq order.
func (s *Store) Results(ctx context.Context, runID string) ([]pipeline.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, func, pass, modified, error
		FROM results
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	defer rows.Close()

	var results []pipeline.Result
	for rows.Next() {
		var r pipeline.Result
		var modified int
		if err := rows.Scan(&r.Seq, &r.Func, &r.Pass, &modified, &r.Err); err != nil {
			return nil, fmt.Errorf("read results: %w", err)
		}
		r.Modified = modified != 0
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return results, nil
}
