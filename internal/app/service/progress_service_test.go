package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastActivity(t *testing.T, fx *progressFixture) model.ProgressActivity {
	t.Helper()
	list, _, err := fx.activities.ListByOrder(1, repository.ActivityFilter{Limit: 1})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	return list[0]
}

func newItemRequest(fx *progressFixture) progress.ItemRequest {
	return progress.ItemRequest{
		MainID:          200,
		OrderItemSizeID: 1,
		UserID:          9,
		Amount:          5,
		Fee:             fee(1500),
		DeadlineAt:      fx.now.Add(72 * time.Hour),
	}
}

func TestProgressService_LoadAggregates(t *testing.T) {
	fx := setupProgressServiceTest(t)

	state, err := fx.service.Load(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, state.Stages, 2)
	assert.Len(t, state.StageItems(100), 2)
	assert.Len(t, state.Details[10], 1)
	assert.Len(t, state.Roster, 3)
	assert.Equal(t, fx.now, state.LoadedAt)

	summary := state.Summary()
	assert.Equal(t, 71, summary.Stages[0].Percent)
	assert.Equal(t, 36, summary.Percent)
}

func TestProgressService_LoadUsesCache(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()

	_, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)
	reads := fx.backend.itemReads

	_, err = fx.service.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, reads, fx.backend.itemReads, "second load is served from the snapshot")

	watched, err := fx.snapshots.Watched(ctx, fx.now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, watched)
}

func TestProgressService_LoadUnknownOrder(t *testing.T) {
	fx := setupProgressServiceTest(t)

	_, err := fx.service.Load(context.Background(), 404)
	assert.ErrorIs(t, err, upstream.ErrNotFound)
}

func TestProgressService_Sizes(t *testing.T) {
	fx := setupProgressServiceTest(t)

	overview, err := fx.service.Sizes(context.Background(), 1, 100)
	require.NoError(t, err)
	assert.Len(t, overview.Groups, 2)
	assert.Empty(t, overview.Assignable, "cutting is fully assigned")

	overview, err = fx.service.Sizes(context.Background(), 1, 200)
	require.NoError(t, err)
	assert.Empty(t, overview.Groups)
	assert.Len(t, overview.Assignable, 2)

	_, err = fx.service.Sizes(context.Background(), 1, 999)
	assert.ErrorIs(t, err, progress.ErrStageNotFound)
}

func TestProgressService_CreateItem(t *testing.T) {
	fx := setupProgressServiceTest(t)

	result, err := fx.service.CreateItem(context.Background(), 1, newItemRequest(fx))

	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Equal(t, 1, fx.backend.writeCount())
	assert.Equal(t, 1, fx.publisher.count())

	var sewing progress.StageSummary
	for _, st := range result.Summary.Stages {
		if st.MainID == 200 {
			sewing = st
		}
	}
	assert.Equal(t, 1, sewing.ItemCount)
	assert.Equal(t, 5, sewing.Capacities[0].Remaining)

	activity := lastActivity(t, fx)
	assert.Equal(t, model.ActivityItemCreated, activity.Action)
	assert.Equal(t, model.OutcomeConfirmed, activity.Outcome)
	assert.NotZero(t, activity.ItemID)
	assert.Equal(t, []string{"Sewing"}, []string(activity.StageLabels))

	cached, ok, err := fx.snapshots.Get(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cached.StageItems(200), 1)
}

func TestProgressService_CreateItemExceedingRemainingNeverWrites(t *testing.T) {
	fx := setupProgressServiceTest(t)
	req := newItemRequest(fx)
	req.MainID = 100
	req.Amount = 1

	_, err := fx.service.CreateItem(context.Background(), 1, req)

	assert.ErrorIs(t, err, progress.ErrQuantityExceedsRemaining)
	var verr *progress.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Zero(t, fx.backend.writeCount())
	assert.Zero(t, fx.publisher.count())
	assert.Equal(t, model.OutcomeRejected, lastActivity(t, fx).Outcome)
}

func TestProgressService_PendingOrderRejectsEveryMutation(t *testing.T) {
	fx := setupProgressServiceTest(t)
	fx.backend.order.ApprovalStatus = progress.ApprovalPending
	ctx := context.Background()
	finished := fx.now

	_, err := fx.service.CreateItem(ctx, 1, newItemRequest(fx))
	assert.ErrorIs(t, err, progress.ErrOrderNotInProgress)

	_, err = fx.service.DeleteItem(ctx, 1, 10, true)
	assert.ErrorIs(t, err, progress.ErrOrderNotInProgress)

	_, err = fx.service.CreateDetail(ctx, 1, progress.DetailRequest{ItemID: 10, Amount: 1, FinishedAt: finished})
	assert.ErrorIs(t, err, progress.ErrOrderNotInProgress)

	_, err = fx.service.UpdateDetail(ctx, 1, progress.DetailRequest{ItemID: 10, DetailID: 1, Amount: 1, FinishedAt: finished})
	assert.ErrorIs(t, err, progress.ErrOrderNotInProgress)

	_, err = fx.service.DeleteDetail(ctx, 1, 10, 1, true)
	assert.ErrorIs(t, err, progress.ErrOrderNotInProgress)

	assert.Zero(t, fx.backend.writeCount())
}

func TestProgressService_CreateItemUnconfirmed(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()
	_, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)
	fx.backend.invisible = true
	readsBefore := fx.backend.itemReads

	result, err := fx.service.CreateItem(ctx, 1, newItemRequest(fx))

	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.False(t, result.Confirmed)
	assert.Equal(t, 36, result.Summary.Percent, "last known state is returned")
	assert.Equal(t, 2+3, fx.backend.itemReads-readsBefore, "one read per stage before the write, then the configured polls")
	assert.Equal(t, model.OutcomeUnconfirmed, lastActivity(t, fx).Outcome)
	assert.Zero(t, fx.publisher.count())

	_, ok, err := fx.snapshots.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "cached state is dropped")
}

func TestProgressService_MutationsIgnoreStaleSnapshot(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()
	_, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)

	fx.backend.mu.Lock()
	fx.backend.order.ApprovalStatus = progress.ApprovalDone
	fx.backend.mu.Unlock()

	_, err = fx.service.CreateItem(ctx, 1, newItemRequest(fx))
	assert.ErrorIs(t, err, progress.ErrOrderNotInProgress)
	_, err = fx.service.CreateDetail(ctx, 1, progress.DetailRequest{ItemID: 10, Amount: 1, FinishedAt: fx.now})
	assert.ErrorIs(t, err, progress.ErrOrderNotInProgress)
	assert.Zero(t, fx.backend.writeCount())
}

func TestProgressService_ItemDeleteSeesLockSetElsewhere(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()
	_, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)

	fx.backend.mu.Lock()
	fx.backend.order.IsLockProgress = 1
	fx.backend.mu.Unlock()

	_, err = fx.service.DeleteItem(ctx, 1, 11, true)
	assert.ErrorIs(t, err, progress.ErrProgressLocked)
	assert.Zero(t, fx.backend.writeCount())
}

func TestProgressService_ConcurrentCreatesRespectCapacity(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()
	_, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)

	req := newItemRequest(fx)
	req.OrderItemSizeID = 2
	req.Amount = 3

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.service.CreateItem(ctx, 1, req)
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, progress.ErrQuantityExceedsRemaining)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "size L has 4 pieces, only one assignment of 3 fits")
	assert.Equal(t, 1, fx.backend.writeCount())
}

func TestProgressService_CreateItemBackendFailure(t *testing.T) {
	fx := setupProgressServiceTest(t)
	fx.backend.writeErr = &upstream.APIError{StatusCode: 503, Message: "maintenance", Err: upstream.ErrUnavailable}

	_, err := fx.service.CreateItem(context.Background(), 1, newItemRequest(fx))

	assert.ErrorIs(t, err, upstream.ErrUnavailable)
	assert.Equal(t, "maintenance", upstream.MessageOf(err, ""))
	activity := lastActivity(t, fx)
	assert.Equal(t, model.OutcomeFailed, activity.Outcome)
	assert.Contains(t, activity.Message, "maintenance")
}

func TestProgressService_CreateItemRecordsActor(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := model.WithActor(context.Background(), model.Actor{ID: 3, Name: "admin", RequestID: "req-1"})

	_, err := fx.service.CreateItem(ctx, 1, newItemRequest(fx))
	require.NoError(t, err)

	activity := lastActivity(t, fx)
	assert.Equal(t, int64(3), activity.ActorID)
	assert.Equal(t, "admin", activity.ActorName)
	assert.Equal(t, "req-1", activity.RequestID)
}

func TestProgressService_CreateDetail(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()

	_, err := fx.service.CreateDetail(ctx, 1, progress.DetailRequest{ItemID: 10, Amount: 5, FinishedAt: fx.now})
	assert.ErrorIs(t, err, progress.ErrQuantityExceedsRemaining)
	assert.Zero(t, fx.backend.writeCount())

	result, err := fx.service.CreateDetail(ctx, 1, progress.DetailRequest{ItemID: 10, Amount: 4, FinishedAt: fx.now})
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Equal(t, 100, result.Summary.Stages[0].Percent)

	activity := lastActivity(t, fx)
	assert.Equal(t, model.ActivityDetailCreated, activity.Action)
	assert.Equal(t, int64(100), activity.MainID)
	assert.NotZero(t, activity.DetailID)
}

func TestProgressService_CreateDetailUnknownItem(t *testing.T) {
	fx := setupProgressServiceTest(t)

	_, err := fx.service.CreateDetail(context.Background(), 1, progress.DetailRequest{ItemID: 77, Amount: 1, FinishedAt: fx.now})

	assert.ErrorIs(t, err, progress.ErrProgressItemNotFound)
	assert.NotErrorIs(t, err, progress.ErrStageNotFound)
}

func TestProgressService_UpdateDetailExcludesOwnAmount(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()

	result, err := fx.service.UpdateDetail(ctx, 1, progress.DetailRequest{ItemID: 10, DetailID: 1, Amount: 10, FinishedAt: fx.now})
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Equal(t, 100, result.Summary.Stages[0].Percent)

	_, err = fx.service.UpdateDetail(ctx, 1, progress.DetailRequest{ItemID: 10, DetailID: 1, Amount: 11, FinishedAt: fx.now})
	assert.ErrorIs(t, err, progress.ErrQuantityExceedsRemaining)
	assert.Equal(t, 1, fx.backend.writeCount())
}

func TestProgressService_DeleteItem(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()

	_, err := fx.service.DeleteItem(ctx, 1, 11, false)
	assert.ErrorIs(t, err, progress.ErrConfirmationRequired)
	assert.Zero(t, fx.backend.writeCount())

	result, err := fx.service.DeleteItem(ctx, 1, 11, true)
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Equal(t, 1, result.Summary.Stages[0].ItemCount)

	state, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, state.FindItem(11))
	assert.NotContains(t, state.Details, int64(11))
}

func TestProgressService_LockBlocksItemDeleteOnly(t *testing.T) {
	fx := setupProgressServiceTest(t)
	fx.backend.order.IsLockProgress = 1
	ctx := context.Background()

	_, err := fx.service.DeleteItem(ctx, 1, 10, true)
	assert.ErrorIs(t, err, progress.ErrProgressLocked)
	assert.Zero(t, fx.backend.writeCount())

	result, err := fx.service.DeleteDetail(ctx, 1, 10, 1, true)
	require.NoError(t, err)
	assert.True(t, result.Confirmed)
	assert.Equal(t, 1, fx.backend.writeCount())
}

func TestProgressService_DeleteDetailRequiresConfirmation(t *testing.T) {
	fx := setupProgressServiceTest(t)

	_, err := fx.service.DeleteDetail(context.Background(), 1, 10, 1, false)

	assert.ErrorIs(t, err, progress.ErrConfirmationRequired)
	assert.Zero(t, fx.backend.writeCount())
}

func TestProgressService_RefreshWatched(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()
	_, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)

	fx.backend.mu.Lock()
	fx.backend.details[10] = append(fx.backend.details[10], progress.ProgressDetail{ID: 50, ItemID: 10, Amount: 4})
	fx.backend.mu.Unlock()

	count, err := fx.service.RefreshWatched(ctx, fx.now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, fx.publisher.count())

	state, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, state.Summary().Stages[0].Percent, "change made elsewhere is picked up")
}

func TestProgressService_RefreshWatchedSkipsFinishedOrders(t *testing.T) {
	fx := setupProgressServiceTest(t)
	ctx := context.Background()
	_, err := fx.service.Load(ctx, 1)
	require.NoError(t, err)

	fx.backend.mu.Lock()
	fx.backend.order.ApprovalStatus = progress.ApprovalDone
	fx.backend.mu.Unlock()
	readsBefore := fx.backend.itemReads

	count, err := fx.service.RefreshWatched(ctx, fx.now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, fx.publisher.count())
	assert.Equal(t, readsBefore, fx.backend.itemReads, "no stage reads for a finished order")

	_, ok, err := fx.snapshots.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok, "stale in-progress snapshot is dropped")
}

func TestPollUntil(t *testing.T) {
	calls := 0
	err := pollUntil(context.Background(), "thing", 4, time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return calls == 2, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = pollUntil(context.Background(), "thing", 3, time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return false, errors.New("boom")
	})
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 3, calls)
}

func TestPollUntil_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := pollUntil(ctx, "thing", 5, time.Hour, func(context.Context) (bool, error) {
		calls++
		cancel()
		return false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
