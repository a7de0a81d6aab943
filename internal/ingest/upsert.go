package ingest

import (
	"context"
	"log"
	"strings"
	"time"

	"gorm.io/gorm/clause"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

// Upserter writes mapped rows in fixed-size batches with bounded retry.
// A batch that exhausts its retries is logged and skipped; the rest of the
// run continues. Ingesting as much as possible beats atomicity here.
type Upserter struct {
	db         *database.DB
	batchSize  int
	retries    int
	baseDelay  time.Duration
	batchPause time.Duration
}

func NewUpserter(db *database.DB, batchSize, retries, baseDelayMs, batchPauseMs int) *Upserter {
	if batchSize < 1 {
		batchSize = 100
	}
	if retries < 1 {
		retries = 3
	}

	return &Upserter{
		db:         db,
		batchSize:  batchSize,
		retries:    retries,
		baseDelay:  time.Duration(baseDelayMs) * time.Millisecond,
		batchPause: time.Duration(batchPauseMs) * time.Millisecond,
	}
}

// Result summarizes an upsert call so callers and tests can see which rows
// made it without reading logs.
type Result struct {
	Succeeded []string
	Failed    []string
	Skipped   int
	Batches   int
}

// UpsertListings validates, deduplicates, and writes rows keyed by zpid.
// Rows without an ID are dropped. When the same zpid appears more than once
// in the input, the later occurrence wins (paginated re-scrapes overlap and
// later pages carry fresher data).
func (u *Upserter) UpsertListings(ctx context.Context, rows []*database.Listing) *Result {
	result := &Result{}

	deduped := dedupeLastWins(rows, result)
	if len(deduped) == 0 {
		log.Printf("[upsert] Nothing to write (%d rows skipped)", result.Skipped)
		return result
	}

	batches := partition(deduped, u.batchSize)
	log.Printf("[upsert] Writing %d rows in %d batches of up to %d",
		len(deduped), len(batches), u.batchSize)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			log.Printf("[upsert] Aborting before batch %d/%d: %v", i+1, len(batches), err)
			for _, row := range batches[i:] {
				for _, l := range row {
					result.Failed = append(result.Failed, l.Zpid)
				}
			}
			return result
		}

		result.Batches++

		if err := u.writeBatchWithRetry(ctx, batch); err != nil {
			log.Printf("[upsert] Batch %d/%d failed permanently (size=%d): %v",
				i+1, len(batches), len(batch), err)
			for _, l := range batch {
				result.Failed = append(result.Failed, l.Zpid)
			}
			continue
		}

		for _, l := range batch {
			result.Succeeded = append(result.Succeeded, l.Zpid)
		}

		// Pause between successful batches to avoid hammering the write
		// target. Retry waits are handled separately.
		if i < len(batches)-1 && u.batchPause > 0 {
			time.Sleep(u.batchPause)
		}
	}

	log.Printf("[upsert] Done: %d succeeded, %d failed, %d skipped, %d batches",
		len(result.Succeeded), len(result.Failed), result.Skipped, result.Batches)
	return result
}

func (u *Upserter) writeBatchWithRetry(ctx context.Context, batch []*database.Listing) error {
	var lastErr error

	for attempt := 1; attempt <= u.retries; attempt++ {
		lastErr = u.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "zpid"}},
				UpdateAll: true,
			}).
			Create(batch).Error
		if lastErr == nil {
			return nil
		}

		if attempt < u.retries {
			delay := backoffDelay(u.baseDelay, attempt)
			log.Printf("[upsert] Batch write failed (attempt %d/%d): %v, retrying in %v",
				attempt, u.retries, lastErr, delay)
			time.Sleep(delay)
		}
	}

	return lastErr
}

// backoffDelay grows quadratically with the attempt number.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt*attempt)
}

// dedupeLastWins drops rows without an ID and collapses duplicate zpids,
// keeping the values of the last occurrence while preserving first-seen
// input order.
func dedupeLastWins(rows []*database.Listing, result *Result) []*database.Listing {
	index := make(map[string]int, len(rows))
	deduped := make([]*database.Listing, 0, len(rows))

	for _, row := range rows {
		if row == nil || strings.TrimSpace(row.Zpid) == "" {
			result.Skipped++
			continue
		}

		if pos, seen := index[row.Zpid]; seen {
			deduped[pos] = row
			continue
		}

		index[row.Zpid] = len(deduped)
		deduped = append(deduped, row)
	}

	return deduped
}

func partition(rows []*database.Listing, size int) [][]*database.Listing {
	var batches [][]*database.Listing
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end])
	}
	return batches
}
