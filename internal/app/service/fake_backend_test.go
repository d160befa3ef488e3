package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/konveksi/admin-gateway/internal/app/repository"
	"github.com/konveksi/admin-gateway/internal/db"
	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/internal/upstream"
	"github.com/stretchr/testify/require"
)

var jakarta = time.FixedZone("WIB", 7*60*60)

// fakeBackend plays the REST backend in memory. Writes are counted so tests
// can prove validation failures never reach it.
type fakeBackend struct {
	mu sync.Mutex

	order   progress.Order
	mains   []progress.ProgressMain
	items   map[int64][]progress.ProgressItem
	details map[int64][]progress.ProgressDetail
	users   []progress.User

	categories    []upstream.Category
	subcategories []upstream.Subcategory
	products      []upstream.Product

	nextID      int64
	writes      int
	itemReads   int
	detailReads int
	transitions []upstream.OrderAction

	// writeErr is returned by every write when set
	writeErr error
	// invisible makes writes succeed without ever becoming visible
	invisible bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		order: progress.Order{
			ID:             1,
			Code:           "PO-1",
			ApprovalStatus: progress.ApprovalInProgress,
			PaymentStatus:  progress.PaymentUnpaid,
			DeadlineAt:     progress.NewTimestamp(time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)),
			Items: []progress.OrderItem{{
				ID:          5,
				ProductName: "Kaos Polo",
				Sizes: []progress.OrderItemSize{
					{ID: 1, OrderItemID: 5, SizeName: "M", Amount: 10},
					{ID: 2, OrderItemID: 5, SizeName: "L", Amount: 4},
				},
			}},
		},
		mains: []progress.ProgressMain{
			{ID: 100, OrderID: 1, Stage: progress.StageCutting, AmountTotal: 14},
			{ID: 200, OrderID: 1, Stage: progress.StageSewing, AmountTotal: 14},
		},
		items: map[int64][]progress.ProgressItem{
			100: {
				{ID: 10, MainID: 100, OrderItemSizeID: 1, UserID: 7, Amount: 10, Fee: 1000},
				{ID: 11, MainID: 100, OrderItemSizeID: 2, UserID: 8, Amount: 4, Fee: 1000},
			},
		},
		details: map[int64][]progress.ProgressDetail{
			10: {{ID: 1, ItemID: 10, Amount: 6}},
			11: {{ID: 2, ItemID: 11, Amount: 4}},
		},
		users: []progress.User{
			{ID: 7, Name: "Sari"},
			{ID: 8, Name: "Budi"},
			{ID: 9, Name: "Tono"},
		},
		nextID: 1000,
	}
}

func (f *fakeBackend) write() error {
	f.writes++
	return f.writeErr
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) ListOrders(_ context.Context, q upstream.ListQuery) (upstream.Envelope[progress.Order], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return upstream.Envelope[progress.Order]{
		Kind:       upstream.KindPaginated,
		Items:      []progress.Order{f.order},
		Pagination: upstream.Pagination{PageNumber: 1, PageLimit: q.PageLimit, PageLast: 1, Total: 1},
	}, nil
}

func (f *fakeBackend) GetOrder(_ context.Context, orderID int64) (progress.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if orderID != f.order.ID {
		return progress.Order{}, upstream.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeBackend) TransitionOrder(_ context.Context, _ int64, action upstream.OrderAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(); err != nil {
		return err
	}
	f.transitions = append(f.transitions, action)
	switch action {
	case upstream.ActionApprove:
		f.order.ApprovalStatus = progress.ApprovalInProgress
	case upstream.ActionLockProgress:
		f.order.IsLockProgress = 1
	case upstream.ActionUnlockProgress:
		f.order.IsLockProgress = 0
	case upstream.ActionDone:
		f.order.ApprovalStatus = progress.ApprovalDone
	}
	return nil
}

func (f *fakeBackend) ListProgressMains(_ context.Context, orderID int64) ([]progress.ProgressMain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]progress.ProgressMain(nil), f.mains...), nil
}

func (f *fakeBackend) ListProgressItems(_ context.Context, mainID int64) ([]progress.ProgressItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemReads++
	return append([]progress.ProgressItem{}, f.items[mainID]...), nil
}

func (f *fakeBackend) ListProgressDetails(_ context.Context, itemID int64) ([]progress.ProgressDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailReads++
	return append([]progress.ProgressDetail{}, f.details[itemID]...), nil
}

func (f *fakeBackend) CreateProgressItem(_ context.Context, mainID int64, item upstream.NewProgressItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(); err != nil {
		return err
	}
	if f.invisible {
		return nil
	}
	f.items[mainID] = append(f.items[mainID], progress.ProgressItem{
		ID:              f.id(),
		MainID:          mainID,
		OrderItemSizeID: item.OrderItemSizeID,
		UserID:          item.UserID,
		User:            &progress.User{ID: item.UserID, Name: "Worker"},
		Amount:          item.Amount,
		Fee:             item.Fee,
		DeadlineAt:      progress.NewTimestamp(item.DeadlineAt),
	})
	return nil
}

func (f *fakeBackend) DeleteProgressItem(_ context.Context, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(); err != nil {
		return err
	}
	if f.invisible {
		return nil
	}
	for mainID, list := range f.items {
		kept := list[:0:0]
		for _, it := range list {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		f.items[mainID] = kept
	}
	delete(f.details, itemID)
	return nil
}

func (f *fakeBackend) CreateProgressDetail(_ context.Context, itemID int64, detail upstream.ProgressDetailInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(); err != nil {
		return err
	}
	if f.invisible {
		return nil
	}
	f.details[itemID] = append(f.details[itemID], progress.ProgressDetail{
		ID:         f.id(),
		ItemID:     itemID,
		Amount:     detail.Amount,
		FinishedAt: progress.NewTimestamp(detail.FinishedAt),
	})
	return nil
}

func (f *fakeBackend) UpdateProgressDetail(_ context.Context, detailID int64, detail upstream.ProgressDetailInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(); err != nil {
		return err
	}
	if f.invisible {
		return nil
	}
	for itemID, list := range f.details {
		updated := append([]progress.ProgressDetail(nil), list...)
		for i := range updated {
			if updated[i].ID == detailID {
				updated[i].Amount = detail.Amount
				updated[i].FinishedAt = progress.NewTimestamp(detail.FinishedAt)
			}
		}
		f.details[itemID] = updated
	}
	return nil
}

func (f *fakeBackend) DeleteProgressDetail(_ context.Context, detailID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write(); err != nil {
		return err
	}
	if f.invisible {
		return nil
	}
	for itemID, list := range f.details {
		kept := list[:0:0]
		for _, d := range list {
			if d.ID != detailID {
				kept = append(kept, d)
			}
		}
		f.details[itemID] = kept
	}
	return nil
}

func (f *fakeBackend) ListProducts(_ context.Context, q upstream.ListQuery) (upstream.Envelope[upstream.Product], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return upstream.Envelope[upstream.Product]{Kind: upstream.KindPlain, Items: f.products}, nil
}

func (f *fakeBackend) ListCategories(context.Context) ([]upstream.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.categories, nil
}

func (f *fakeBackend) ListSubcategories(context.Context) ([]upstream.Subcategory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subcategories, nil
}

func (f *fakeBackend) ListUsers(context.Context, upstream.ListQuery) (upstream.Envelope[progress.User], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return upstream.Envelope[progress.User]{Kind: upstream.KindPlain, Items: append([]progress.User(nil), f.users...)}, nil
}

func (f *fakeBackend) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type recordingPublisher struct {
	mu        sync.Mutex
	summaries []progress.Summary
}

func (p *recordingPublisher) PublishProgress(_ int64, summary progress.Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.summaries)
}

type progressFixture struct {
	service    *progressService
	backend    *fakeBackend
	publisher  *recordingPublisher
	snapshots  repository.SnapshotRepository
	activities repository.ActivityRepository
	now        time.Time
}

func setupProgressServiceTest(t *testing.T) *progressFixture {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	backend := newFakeBackend()
	publisher := &recordingPublisher{}
	snapshots := repository.NewMemorySnapshotRepository(time.Hour)
	activityRepo := repository.NewActivityRepository(testDB)

	svc := NewProgressService(backend, snapshots, NewActivityService(activityRepo), publisher, ProgressConfig{
		ConfirmAttempts: 3,
		ConfirmBackoff:  time.Millisecond,
		Location:        jakarta,
	}).(*progressService)

	now := time.Date(2026, 10, 16, 9, 0, 0, 0, jakarta)
	svc.now = func() time.Time { return now }

	return &progressFixture{
		service:    svc,
		backend:    backend,
		publisher:  publisher,
		snapshots:  snapshots,
		activities: activityRepo,
		now:        now,
	}
}

func fee(v float64) *float64 { return &v }
