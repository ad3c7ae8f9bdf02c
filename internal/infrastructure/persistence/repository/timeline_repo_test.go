package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

func TestTimelineRepository_AppendAssignsSeq(t *testing.T) {
	db := openTestDB(t)
	requests := NewRequestRepository(db, zap.NewNop())
	timeline := NewTimelineRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, requests.Create(ctx, sampleRequest("apr-1")))
	require.NoError(t, requests.Create(ctx, sampleRequest("apr-2")))

	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i, action := range []string{entity.ActionCreate, entity.ActionSubmit, entity.ActionApprove} {
		entry := &entity.TimelineEntry{
			RequestID: "apr-1",
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
			Actor:     "requester-1",
			Action:    action,
			Severity:  entity.SeverityInfo,
		}
		require.NoError(t, timeline.Append(ctx, entry))
		assert.Equal(t, i+1, entry.Seq)
	}

	// Seq is per request, not global
	other := &entity.TimelineEntry{
		RequestID: "apr-2",
		Timestamp: ts,
		Actor:     "requester-2",
		Action:    entity.ActionCreate,
		Severity:  entity.SeverityInfo,
	}
	require.NoError(t, timeline.Append(ctx, other))
	assert.Equal(t, 1, other.Seq)
}

func TestTimelineRepository_OrderingBreaksTiesBySeq(t *testing.T) {
	db := openTestDB(t)
	requests := NewRequestRepository(db, zap.NewNop())
	timeline := NewTimelineRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, requests.Create(ctx, sampleRequest("apr-1")))

	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Same timestamp for all three: ordering must fall back to insertion order
	for _, action := range []string{entity.ActionCreate, entity.ActionSubmit, entity.ActionApprove} {
		require.NoError(t, timeline.Append(ctx, &entity.TimelineEntry{
			RequestID: "apr-1",
			Timestamp: ts,
			Actor:     "requester-1",
			Action:    action,
			Severity:  entity.SeverityInfo,
		}))
	}

	entries, err := timeline.GetByRequestID(ctx, "apr-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	actions := []string{entries[0].Action, entries[1].Action, entries[2].Action}
	assert.Equal(t, []string{entity.ActionCreate, entity.ActionSubmit, entity.ActionApprove}, actions)
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Seq, entries[1].Seq, entries[2].Seq})
}

func TestTimelineRepository_EmptyTimeline(t *testing.T) {
	db := openTestDB(t)
	timeline := NewTimelineRepository(db, zap.NewNop())

	entries, err := timeline.GetByRequestID(context.Background(), "apr-none")

	require.NoError(t, err)
	assert.Empty(t, entries)
}
