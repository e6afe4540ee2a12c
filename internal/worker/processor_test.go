package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProcessor_RunOnceAnalyzesFromSeasonStartThenLookback(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock := &MockRatings{}
	p := NewProcessor(ProcessorConfig{
		Ratings:  mock,
		Analyzer: mock,
		Lookback: time.Hour,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return now },
	})

	p.RunOnce(context.Background())
	p.RunOnce(context.Background())

	since := mock.Since()
	require.Len(t, since, 2)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), since[0])
	assert.Equal(t, now.Add(-time.Hour), since[1])
}

func TestProcessor_SkipsAnalysisWhenRatingPassFails(t *testing.T) {
	mock := &MockRatings{Err: errors.New("db down")}
	p := NewProcessor(ProcessorConfig{Ratings: mock, Analyzer: mock, Logger: zap.NewNop()})

	p.RunOnce(context.Background())

	assert.Equal(t, 1, mock.Runs())
	assert.Empty(t, mock.Since())
}

func TestProcessor_StartRunsImmediatelyAndOnTrigger(t *testing.T) {
	mock := &MockRatings{}
	p := NewProcessor(ProcessorConfig{Interval: time.Hour, Ratings: mock, Logger: zap.NewNop()})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return mock.Runs() == 1 }, time.Second, time.Millisecond)

	p.Trigger()
	require.Eventually(t, func() bool { return mock.Runs() == 2 }, time.Second, time.Millisecond)

	p.Stop()
}
