// Package blockres maps calendar dates to chain block numbers.
package blockres

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"marketlens/internal/model"
)

// Granularity values accepted by BlockByDate.
const (
	GranularityYears   = "years"
	GranularityMonths  = "months"
	GranularityWeeks   = "weeks"
	GranularityDays    = "days"
	GranularityHours   = "hours"
	GranularityMinutes = "minutes"
)

const lastMonthDays = 31

// HeaderReader provides the block header lookups the resolver needs.
type HeaderReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestampByNumber(ctx context.Context, number uint64) (uint64, error)
}

// Resolver finds the nearest block at or after a calendar date by binary
// search over block timestamps.
type Resolver struct {
	chain  HeaderReader
	logger *zap.Logger
}

func NewResolver(chain HeaderReader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{chain: chain, logger: logger}
}

// BlockByDate returns the first block whose timestamp is at or after the
// date, truncated to the granularity boundary. Any lookup failure yields
// ok=false; callers substitute the open range sentinels, never a hard error.
func (r *Resolver) BlockByDate(ctx context.Context, date time.Time, granularity string) (uint64, bool) {
	target, err := truncate(date.UTC(), granularity)
	if err != nil {
		r.logger.Warn("block by date", zap.Error(err))
		return 0, false
	}

	block, err := r.search(ctx, uint64(target.Unix()))
	if err != nil {
		r.logger.Warn("block by date", zap.Time("date", target), zap.Error(err))
		return 0, false
	}
	return block, true
}

// RangeForDates resolves a date range to a block range. When both dates are
// nil the range defaults to the last 31 days. Unresolvable ends fall back to
// the open sentinels.
func (r *Resolver) RangeForDates(ctx context.Context, fromDate, toDate *time.Time) model.BlockRange {
	if fromDate == nil && toDate == nil {
		now := time.Now().UTC()
		from := now.AddDate(0, 0, -lastMonthDays)
		fromDate, toDate = &from, &now
	}

	blockRange := model.BlockRange{From: model.BlockEarliest, To: model.BlockLatest}
	if fromDate != nil {
		if block, ok := r.BlockByDate(ctx, *fromDate, GranularityDays); ok {
			blockRange.From = hexutil.EncodeUint64(block)
		}
	}
	if toDate != nil {
		if block, ok := r.BlockByDate(ctx, *toDate, GranularityDays); ok {
			blockRange.To = hexutil.EncodeUint64(block)
		}
	}
	return blockRange
}

// search finds the lowest block with timestamp >= target.
func (r *Resolver) search(ctx context.Context, target uint64) (uint64, error) {
	latest, err := r.chain.LatestBlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("latest block: %w", err)
	}

	latestTs, err := r.chain.BlockTimestampByNumber(ctx, latest)
	if err != nil {
		return 0, fmt.Errorf("timestamp %d: %w", latest, err)
	}
	if latestTs < target {
		return 0, fmt.Errorf("no block at or after %d (chain head %d)", target, latestTs)
	}

	lo, hi := uint64(0), latest
	for lo < hi {
		mid := lo + (hi-lo)/2
		ts, err := r.chain.BlockTimestampByNumber(ctx, mid)
		if err != nil {
			return 0, fmt.Errorf("timestamp %d: %w", mid, err)
		}
		if ts < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func truncate(date time.Time, granularity string) (time.Time, error) {
	switch granularity {
	case GranularityYears:
		return time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case GranularityMonths:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case GranularityWeeks:
		day := date.Truncate(24 * time.Hour)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case GranularityDays:
		return date.Truncate(24 * time.Hour), nil
	case GranularityHours:
		return date.Truncate(time.Hour), nil
	case GranularityMinutes:
		return date.Truncate(time.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported granularity: %s", granularity)
	}
}
