package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRollup struct {
	homeID   string
	dayStart int64
	dayEnd   int64
	day      string
}

type fakeRollup struct {
	calls []recordedRollup
}

func (f *fakeRollup) RollupDaily(ctx context.Context, homeID string, dayStart, dayEnd int64, day string) error {
	f.calls = append(f.calls, recordedRollup{homeID: homeID, dayStart: dayStart, dayEnd: dayEnd, day: day})
	return nil
}

func TestRollupDayBounds(t *testing.T) {
	rollup := &fakeRollup{}
	s := NewScheduler(rollup, "home-1", zap.NewNop())

	s.RollupDay(time.Date(2026, 3, 2, 15, 42, 0, 0, time.UTC))

	require.Len(t, rollup.calls, 1)
	call := rollup.calls[0]
	assert.Equal(t, "home-1", call.homeID)
	assert.Equal(t, "2026-03-02", call.day)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), call.dayStart)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC).UnixMilli(), call.dayEnd)
}
