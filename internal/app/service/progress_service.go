package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/konveksi/admin-gateway/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultFetchLimit = 8

// ProgressConfig tunes loading and read-after-write confirmation.
type ProgressConfig struct {
	ConfirmAttempts int
	ConfirmBackoff  time.Duration
	Location        *time.Location
	// FetchLimit caps concurrent per-stage and per-item reads during a load
	FetchLimit int
}

// MutationResult is the state after a write. Confirmed is false when the
// write succeeded but the change was not observed in time; Summary is then
// the last state known before the write.
type MutationResult struct {
	Summary   progress.Summary `json:"summary"`
	Confirmed bool             `json:"confirmed"`
}

// SizeOverview backs the size picker of the assignment form for one stage.
type SizeOverview struct {
	MainID     int64                   `json:"opmId"`
	Groups     []progress.SizeGroup    `json:"groups"`
	Assignable []progress.SizeCapacity `json:"assignable"`
}

type ProgressService interface {
	Load(ctx context.Context, orderID int64) (progress.State, error)
	Refresh(ctx context.Context, orderID int64) (progress.State, error)
	Summary(ctx context.Context, orderID int64) (progress.Summary, error)
	Sizes(ctx context.Context, orderID, mainID int64) (*SizeOverview, error)

	CreateItem(ctx context.Context, orderID int64, req progress.ItemRequest) (MutationResult, error)
	DeleteItem(ctx context.Context, orderID, itemID int64, confirmed bool) (MutationResult, error)
	CreateDetail(ctx context.Context, orderID int64, req progress.DetailRequest) (MutationResult, error)
	UpdateDetail(ctx context.Context, orderID int64, req progress.DetailRequest) (MutationResult, error)
	DeleteDetail(ctx context.Context, orderID, itemID, detailID int64, confirmed bool) (MutationResult, error)

	// RefreshWatched reloads every in-progress order viewed since the given
	// time and returns how many were refreshed.
	RefreshWatched(ctx context.Context, since time.Time) (int, error)
}

type progressService struct {
	backend    Backend
	snapshots  repository.SnapshotRepository
	activities ActivityService
	publisher  ProgressPublisher
	cfg        ProgressConfig
	now        func() time.Time

	// writeLocks serialises mutations per order within this process.
	writeLocks sync.Map
}

func NewProgressService(
	backend Backend,
	snapshots repository.SnapshotRepository,
	activities ActivityService,
	publisher ProgressPublisher,
	cfg ProgressConfig,
) ProgressService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &progressService{
		backend:    backend,
		snapshots:  snapshots,
		activities: activities,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Load serves the cached state when there is one and fetches otherwise.
func (s *progressService) Load(ctx context.Context, orderID int64) (progress.State, error) {
	if err := s.snapshots.Touch(ctx, orderID, s.now()); err != nil {
		logger.Warn("Failed to mark order as watched", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}

	state, ok, err := s.snapshots.Get(ctx, orderID)
	if err != nil {
		logger.Warn("Snapshot read failed, loading from backend", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}
	if ok {
		logger.Debug("Serving cached progress state", map[string]interface{}{
			"order_id":  orderID,
			"loaded_at": state.LoadedAt,
		})
		return state, nil
	}
	return s.Refresh(ctx, orderID)
}

// Refresh always loads from the backend and replaces the cached state.
func (s *progressService) Refresh(ctx context.Context, orderID int64) (progress.State, error) {
	state, err := s.fetch(ctx, orderID)
	if err != nil {
		logger.Error("Failed to load order progress", err, map[string]interface{}{
			"order_id": orderID,
		})
		return progress.State{}, err
	}
	s.store(ctx, state)
	return state, nil
}

// loadForWrite takes the order's write lock and reads the order from the
// backend, so mutation rules never run against a cached snapshot.
func (s *progressService) loadForWrite(ctx context.Context, orderID int64) (progress.State, func(), error) {
	v, _ := s.writeLocks.LoadOrStore(orderID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	state, err := s.Refresh(ctx, orderID)
	if err != nil {
		mu.Unlock()
		return progress.State{}, nil, err
	}
	return state, mu.Unlock, nil
}

func (s *progressService) Summary(ctx context.Context, orderID int64) (progress.Summary, error) {
	state, err := s.Load(ctx, orderID)
	if err != nil {
		return progress.Summary{}, err
	}
	return state.Summary(), nil
}

func (s *progressService) Sizes(ctx context.Context, orderID, mainID int64) (*SizeOverview, error) {
	state, err := s.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if state.Stage(mainID) == nil {
		return nil, fmt.Errorf("%w: stage %d on order %d", progress.ErrStageNotFound, mainID, orderID)
	}

	items := state.StageItems(mainID)
	groups := progress.GroupBySize(items)
	if groups == nil {
		groups = []progress.SizeGroup{}
	}
	return &SizeOverview{
		MainID:     mainID,
		Groups:     groups,
		Assignable: progress.Assignable(state.Order.Sizes(), items),
	}, nil
}

// fetch builds a complete State: order, stages and roster first, then every
// stage's items, then every item's details.
func (s *progressService) fetch(ctx context.Context, orderID int64) (progress.State, error) {
	var (
		order  progress.Order
		stages []progress.ProgressMain
		users  []progress.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.backend.GetOrder(gctx, orderID)
		return err
	})
	g.Go(func() error {
		var err error
		stages, err = s.backend.ListProgressMains(gctx, orderID)
		return err
	})
	g.Go(func() error {
		env, err := s.backend.ListUsers(gctx, upstream.All())
		if err != nil {
			// The roster is filled from assignments as well, so a failed user
			// list only degrades the assignee picker.
			logger.Warn("Failed to load user roster", map[string]interface{}{
				"order_id": orderID,
				"error":    err.Error(),
			})
			return nil
		}
		users = env.Items
		return nil
	})
	if err := g.Wait(); err != nil {
		return progress.State{}, err
	}

	state := progress.Apply(progress.NewState(order),
		progress.StagesLoaded{Stages: stages},
		progress.RosterMerged{Users: users},
	)

	stageItems := make([][]progress.ProgressItem, len(state.Stages))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchLimit)
	for i, st := range state.Stages {
		i, mainID := i, st.ID
		g.Go(func() error {
			items, err := s.backend.ListProgressItems(gctx, mainID)
			if err != nil {
				return fmt.Errorf("failed to load items of stage %d: %w", mainID, err)
			}
			stageItems[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return progress.State{}, err
	}
	for i, st := range state.Stages {
		state = progress.Apply(state, progress.StageItemsLoaded{MainID: st.ID, Items: stageItems[i]})
	}

	var itemIDs []int64
	for _, st := range state.Stages {
		for _, it := range state.StageItems(st.ID) {
			itemIDs = append(itemIDs, it.ID)
		}
	}
	itemDetails := make([][]progress.ProgressDetail, len(itemIDs))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchLimit)
	for i, itemID := range itemIDs {
		i, itemID := i, itemID
		g.Go(func() error {
			details, err := s.backend.ListProgressDetails(gctx, itemID)
			if err != nil {
				return fmt.Errorf("failed to load details of item %d: %w", itemID, err)
			}
			itemDetails[i] = details
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return progress.State{}, err
	}
	for i, itemID := range itemIDs {
		state = progress.Apply(state, progress.ItemDetailsLoaded{ItemID: itemID, Details: itemDetails[i]})
	}

	state = progress.Apply(state, progress.Stamped{At: s.now()})

	logger.Debug("Order progress loaded", map[string]interface{}{
		"order_id": orderID,
		"stages":   len(state.Stages),
		"items":    len(itemIDs),
		"roster":   len(state.Roster),
	})
	return state, nil
}

func (s *progressService) store(ctx context.Context, state progress.State) {
	if err := s.snapshots.Put(ctx, state); err != nil {
		logger.Warn("Failed to cache progress state", map[string]interface{}{
			"order_id": state.Order.ID,
			"error":    err.Error(),
		})
	}
}

// commit stores a confirmed state and pushes it to live subscribers.
func (s *progressService) commit(ctx context.Context, state progress.State) MutationResult {
	state = progress.Apply(state, progress.Stamped{At: s.now()})
	s.store(ctx, state)
	summary := state.Summary()
	s.publisher.PublishProgress(state.Order.ID, summary)
	return MutationResult{Summary: summary, Confirmed: true}
}

// unconfirmed drops the cached state so the next read goes to the backend.
func (s *progressService) unconfirmed(ctx context.Context, before progress.State) MutationResult {
	if err := s.snapshots.Invalidate(ctx, before.Order.ID); err != nil {
		logger.Warn("Failed to invalidate progress state", map[string]interface{}{
			"order_id": before.Order.ID,
			"error":    err.Error(),
		})
	}
	return MutationResult{Summary: before.Summary(), Confirmed: false}
}

func outcomeOf(err error) model.ActivityOutcome {
	var verr *progress.ValidationError
	switch {
	case err == nil:
		return model.OutcomeConfirmed
	case errors.Is(err, ErrNotConfirmed):
		return model.OutcomeUnconfirmed
	case errors.As(err, &verr):
		return model.OutcomeRejected
	case isNetworkFailure(err):
		return model.OutcomeFailed
	default:
		return model.OutcomeRejected
	}
}

func (s *progressService) journal(ctx context.Context, entry model.ProgressActivity, state progress.State, err error) {
	entry.Outcome = outcomeOf(err)
	if err != nil {
		entry.Message = err.Error()
	}
	if st := state.Stage(entry.MainID); st != nil {
		entry.StageLabels = []string{st.Stage.String()}
	}
	s.activities.Record(ctx, entry)
}

// CreateItem assigns part of a size's quantity in one stage to a worker.
func (s *progressService) CreateItem(ctx context.Context, orderID int64, req progress.ItemRequest) (MutationResult, error) {
	entry := model.ProgressActivity{
		OrderID: orderID,
		Action:  model.ActivityItemCreated,
		MainID:  req.MainID,
		Amount:  req.Amount,
	}

	state, unlock, err := s.loadForWrite(ctx, orderID)
	if err != nil {
		return MutationResult{}, err
	}
	defer unlock()

	stage := state.Stage(req.MainID)
	if err := progress.ValidateItem(state.Order, stage, state.StageItems(req.MainID), req, s.now(), s.cfg.Location); err != nil {
		logger.Warn("Progress item rejected by validation", map[string]interface{}{
			"order_id": orderID,
			"opm_id":   req.MainID,
			"error":    err.Error(),
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	known := make(map[int64]bool)
	for _, it := range state.StageItems(req.MainID) {
		known[it.ID] = true
	}

	err = s.backend.CreateProgressItem(ctx, req.MainID, upstream.NewProgressItem{
		OrderItemSizeID: req.OrderItemSizeID,
		UserID:          req.UserID,
		Amount:          req.Amount,
		Fee:             *req.Fee,
		DeadlineAt:      req.DeadlineAt,
	})
	if err != nil {
		logger.Error("Failed to create progress item", err, map[string]interface{}{
			"order_id": orderID,
			"opm_id":   req.MainID,
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	var observed []progress.ProgressItem
	err = pollUntil(ctx, "progress item", s.cfg.ConfirmAttempts, s.cfg.ConfirmBackoff, func(ctx context.Context) (bool, error) {
		items, err := s.backend.ListProgressItems(ctx, req.MainID)
		if err != nil {
			return false, err
		}
		for _, it := range items {
			if !known[it.ID] && it.OrderItemSizeID == req.OrderItemSizeID && it.UserID == req.UserID {
				entry.ItemID = it.ID
				observed = items
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		logger.Warn("Progress item created but not confirmed", map[string]interface{}{
			"order_id": orderID,
			"opm_id":   req.MainID,
			"error":    err.Error(),
		})
		s.journal(ctx, entry, state, err)
		return s.unconfirmed(ctx, state), err
	}

	next := progress.Apply(state, progress.StageItemsLoaded{MainID: req.MainID, Items: observed})
	if stages, err := s.backend.ListProgressMains(ctx, orderID); err == nil {
		next = progress.Apply(next, progress.StagesLoaded{Stages: stages})
	} else {
		logger.Warn("Failed to refresh stages after item create", map[string]interface{}{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}

	logger.Info("Progress item created", map[string]interface{}{
		"order_id": orderID,
		"opm_id":   req.MainID,
		"op_id":    entry.ItemID,
		"amount":   req.Amount,
	})
	s.journal(ctx, entry, next, nil)
	return s.commit(ctx, next), nil
}

// DeleteItem removes a work assignment together with its reports.
func (s *progressService) DeleteItem(ctx context.Context, orderID, itemID int64, confirmed bool) (MutationResult, error) {
	entry := model.ProgressActivity{
		OrderID: orderID,
		Action:  model.ActivityItemDeleted,
		ItemID:  itemID,
	}

	state, unlock, err := s.loadForWrite(ctx, orderID)
	if err != nil {
		return MutationResult{}, err
	}
	defer unlock()

	item := state.FindItem(itemID)
	if item != nil {
		entry.MainID = item.MainID
		entry.Amount = item.Amount
	}
	if err := progress.ValidateItemDelete(state.Order, item, confirmed); err != nil {
		logger.Warn("Progress item delete rejected", map[string]interface{}{
			"order_id": orderID,
			"op_id":    itemID,
			"error":    err.Error(),
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	if err := s.backend.DeleteProgressItem(ctx, itemID); err != nil {
		logger.Error("Failed to delete progress item", err, map[string]interface{}{
			"order_id": orderID,
			"op_id":    itemID,
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	var observed []progress.ProgressItem
	err = pollUntil(ctx, "progress item removal", s.cfg.ConfirmAttempts, s.cfg.ConfirmBackoff, func(ctx context.Context) (bool, error) {
		items, err := s.backend.ListProgressItems(ctx, item.MainID)
		if err != nil {
			return false, err
		}
		for _, it := range items {
			if it.ID == itemID {
				return false, nil
			}
		}
		observed = items
		return true, nil
	})
	if err != nil {
		s.journal(ctx, entry, state, err)
		return s.unconfirmed(ctx, state), err
	}

	next := progress.Apply(state,
		progress.StageItemsLoaded{MainID: item.MainID, Items: observed},
		progress.ItemRemoved{MainID: item.MainID, ItemID: itemID},
	)

	logger.Info("Progress item deleted", map[string]interface{}{
		"order_id": orderID,
		"op_id":    itemID,
	})
	s.journal(ctx, entry, next, nil)
	return s.commit(ctx, next), nil
}

// CreateDetail reports a finished quantity against an assignment.
func (s *progressService) CreateDetail(ctx context.Context, orderID int64, req progress.DetailRequest) (MutationResult, error) {
	req.DetailID = 0
	entry := model.ProgressActivity{
		OrderID: orderID,
		Action:  model.ActivityDetailCreated,
		ItemID:  req.ItemID,
		Amount:  req.Amount,
	}

	state, unlock, err := s.loadForWrite(ctx, orderID)
	if err != nil {
		return MutationResult{}, err
	}
	defer unlock()
	item, stage := s.resolveItem(state, &req)
	entry.MainID = req.MainID

	details := state.Details[req.ItemID]
	if err := progress.ValidateDetail(state.Order, stage, item, details, req); err != nil {
		logger.Warn("Progress detail rejected by validation", map[string]interface{}{
			"order_id": orderID,
			"op_id":    req.ItemID,
			"error":    err.Error(),
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	known := make(map[int64]bool, len(details))
	for _, d := range details {
		known[d.ID] = true
	}

	input := upstream.ProgressDetailInput{Amount: req.Amount, FinishedAt: req.FinishedAt}
	if err := s.backend.CreateProgressDetail(ctx, req.ItemID, input); err != nil {
		logger.Error("Failed to create progress detail", err, map[string]interface{}{
			"order_id": orderID,
			"op_id":    req.ItemID,
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	var observed []progress.ProgressDetail
	err = pollUntil(ctx, "progress detail", s.cfg.ConfirmAttempts, s.cfg.ConfirmBackoff, func(ctx context.Context) (bool, error) {
		fresh, err := s.backend.ListProgressDetails(ctx, req.ItemID)
		if err != nil {
			return false, err
		}
		for _, d := range fresh {
			if !known[d.ID] && d.Amount == req.Amount {
				entry.DetailID = d.ID
				observed = fresh
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		s.journal(ctx, entry, state, err)
		return s.unconfirmed(ctx, state), err
	}

	next := state
	if items, err := s.backend.ListProgressItems(ctx, req.MainID); err == nil {
		next = progress.Apply(next, progress.StageItemsLoaded{MainID: req.MainID, Items: items})
	} else {
		logger.Warn("Failed to refresh stage items after detail create", map[string]interface{}{
			"order_id": orderID,
			"opm_id":   req.MainID,
			"error":    err.Error(),
		})
	}
	next = progress.Apply(next, progress.ItemDetailsLoaded{ItemID: req.ItemID, Details: observed})

	logger.Info("Progress detail created", map[string]interface{}{
		"order_id": orderID,
		"op_id":    req.ItemID,
		"opd_id":   entry.DetailID,
		"amount":   req.Amount,
	})
	s.journal(ctx, entry, next, nil)
	return s.commit(ctx, next), nil
}

// UpdateDetail edits a finished report. The report's own previous amount
// does not count against the assignment's remaining quantity.
func (s *progressService) UpdateDetail(ctx context.Context, orderID int64, req progress.DetailRequest) (MutationResult, error) {
	entry := model.ProgressActivity{
		OrderID:  orderID,
		Action:   model.ActivityDetailUpdated,
		ItemID:   req.ItemID,
		DetailID: req.DetailID,
		Amount:   req.Amount,
	}

	state, unlock, err := s.loadForWrite(ctx, orderID)
	if err != nil {
		return MutationResult{}, err
	}
	defer unlock()
	item, stage := s.resolveItem(state, &req)
	entry.MainID = req.MainID

	if req.DetailID == 0 {
		err := &progress.ValidationError{Fields: []progress.FieldError{{
			Field: "opdId", Message: "progress detail is required", Err: progress.ErrRequiredField,
		}}}
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}
	if err := progress.ValidateDetail(state.Order, stage, item, state.Details[req.ItemID], req); err != nil {
		logger.Warn("Progress detail edit rejected by validation", map[string]interface{}{
			"order_id": orderID,
			"opd_id":   req.DetailID,
			"error":    err.Error(),
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	input := upstream.ProgressDetailInput{Amount: req.Amount, FinishedAt: req.FinishedAt}
	if err := s.backend.UpdateProgressDetail(ctx, req.DetailID, input); err != nil {
		logger.Error("Failed to update progress detail", err, map[string]interface{}{
			"order_id": orderID,
			"opd_id":   req.DetailID,
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	var observed []progress.ProgressDetail
	err = pollUntil(ctx, "progress detail edit", s.cfg.ConfirmAttempts, s.cfg.ConfirmBackoff, func(ctx context.Context) (bool, error) {
		fresh, err := s.backend.ListProgressDetails(ctx, req.ItemID)
		if err != nil {
			return false, err
		}
		for _, d := range fresh {
			if d.ID == req.DetailID && d.Amount == req.Amount {
				observed = fresh
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		s.journal(ctx, entry, state, err)
		return s.unconfirmed(ctx, state), err
	}

	next := progress.Apply(state, progress.ItemDetailsLoaded{ItemID: req.ItemID, Details: observed})

	logger.Info("Progress detail updated", map[string]interface{}{
		"order_id": orderID,
		"opd_id":   req.DetailID,
		"amount":   req.Amount,
	})
	s.journal(ctx, entry, next, nil)
	return s.commit(ctx, next), nil
}

// DeleteDetail removes a finished report. Unlike assignments, reports can be
// removed while progress is locked.
func (s *progressService) DeleteDetail(ctx context.Context, orderID, itemID, detailID int64, confirmed bool) (MutationResult, error) {
	entry := model.ProgressActivity{
		OrderID:  orderID,
		Action:   model.ActivityDetailDeleted,
		ItemID:   itemID,
		DetailID: detailID,
	}

	state, unlock, err := s.loadForWrite(ctx, orderID)
	if err != nil {
		return MutationResult{}, err
	}
	defer unlock()
	if item := state.FindItem(itemID); item != nil {
		entry.MainID = item.MainID
	}

	detail := state.Detail(itemID, detailID)
	if detail != nil {
		entry.Amount = detail.Amount
	}
	if err := progress.ValidateDetailDelete(state.Order, detail, confirmed); err != nil {
		logger.Warn("Progress detail delete rejected", map[string]interface{}{
			"order_id": orderID,
			"opd_id":   detailID,
			"error":    err.Error(),
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	if err := s.backend.DeleteProgressDetail(ctx, detailID); err != nil {
		logger.Error("Failed to delete progress detail", err, map[string]interface{}{
			"order_id": orderID,
			"opd_id":   detailID,
		})
		s.journal(ctx, entry, state, err)
		return MutationResult{}, err
	}

	var observed []progress.ProgressDetail
	err = pollUntil(ctx, "progress detail removal", s.cfg.ConfirmAttempts, s.cfg.ConfirmBackoff, func(ctx context.Context) (bool, error) {
		fresh, err := s.backend.ListProgressDetails(ctx, itemID)
		if err != nil {
			return false, err
		}
		for _, d := range fresh {
			if d.ID == detailID {
				return false, nil
			}
		}
		observed = fresh
		return true, nil
	})
	if err != nil {
		s.journal(ctx, entry, state, err)
		return s.unconfirmed(ctx, state), err
	}

	next := progress.Apply(state, progress.ItemDetailsLoaded{ItemID: itemID, Details: observed})

	logger.Info("Progress detail deleted", map[string]interface{}{
		"order_id": orderID,
		"opd_id":   detailID,
	})
	s.journal(ctx, entry, next, nil)
	return s.commit(ctx, next), nil
}

// resolveItem finds the addressed assignment and fills in its stage when the
// request did not name one.
func (s *progressService) resolveItem(state progress.State, req *progress.DetailRequest) (*progress.ProgressItem, *progress.ProgressMain) {
	var item *progress.ProgressItem
	if req.MainID != 0 {
		item = state.Item(req.MainID, req.ItemID)
	} else {
		item = state.FindItem(req.ItemID)
	}
	if item == nil {
		return nil, nil
	}
	req.MainID = item.MainID
	return item, state.Stage(item.MainID)
}

func (s *progressService) RefreshWatched(ctx context.Context, since time.Time) (int, error) {
	orderIDs, err := s.snapshots.Watched(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list watched orders: %w", err)
	}

	refreshed := make([]bool, len(orderIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FetchLimit)
	for i, orderID := range orderIDs {
		i, orderID := i, orderID
		g.Go(func() error {
			// One unreachable order must not stop the others.
			order, err := s.backend.GetOrder(gctx, orderID)
			if err != nil {
				logger.Warn("Scheduled progress refresh failed", map[string]interface{}{
					"order_id": orderID,
					"error":    err.Error(),
				})
				return nil
			}
			if order.ApprovalStatus != progress.ApprovalInProgress {
				// Progress only moves while an order is in progress; the
				// next view reloads it.
				if err := s.snapshots.Invalidate(gctx, orderID); err != nil {
					logger.Warn("Failed to invalidate progress state", map[string]interface{}{
						"order_id": orderID,
						"error":    err.Error(),
					})
				}
				logger.Debug("Skipping refresh of order not in progress", map[string]interface{}{
					"order_id": orderID,
					"status":   order.ApprovalStatus.String(),
				})
				return nil
			}

			state, err := s.fetch(gctx, orderID)
			if err != nil {
				logger.Warn("Scheduled progress refresh failed", map[string]interface{}{
					"order_id": orderID,
					"error":    err.Error(),
				})
				return nil
			}
			s.store(gctx, state)
			s.publisher.PublishProgress(orderID, state.Summary())
			refreshed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for _, ok := range refreshed {
		if ok {
			count++
		}
	}
	return count, nil
}
