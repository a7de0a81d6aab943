package database

import (
	"context"
	"fmt"
	"time"
)

// StartRun opens a new scrape run for the given city.
func (db *DB) StartRun(ctx context.Context, city string) (*Run, error) {
	run := &Run{
		City:      city,
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
	}

	if err := db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("create run for city %q: %w", city, err)
	}
	return run, nil
}

// FinishRun closes a run with its final counters.
func (db *DB) FinishRun(ctx context.Context, run *Run, status string, found, upserted, failed int) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = status
	run.ListingsFound = found
	run.ListingsUpserted = upserted
	run.ListingsFailed = failed

	if err := db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("finish run %d: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the most recent completed run, or nil when none exists.
func (db *DB) LatestRun(ctx context.Context) (*Run, error) {
	var runs []Run
	err := db.WithContext(ctx).
		Where("status = ?", RunStatusCompleted).
		Order("started_at DESC").
		Limit(1).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("fetch latest run: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
