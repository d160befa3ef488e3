package repository

import (
	"testing"
	"time"

	"github.com/konveksi/admin-gateway/internal/app/model"
	"github.com/konveksi/admin-gateway/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupActivityTest(t *testing.T) (*gorm.DB, ActivityRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB, NewActivityRepository(testDB)
}

func TestActivityRepository_CreateAndList(t *testing.T) {
	_, repo := setupActivityTest(t)
	base := time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

	entries := []*model.ProgressActivity{
		{CreatedAt: base, OrderID: 1, Action: model.ActivityItemCreated, Outcome: model.OutcomeConfirmed, ItemID: 10, Amount: 5, StageLabels: []string{"Cutting"}, ActorName: "sari"},
		{CreatedAt: base.Add(time.Minute), OrderID: 1, Action: model.ActivityDetailCreated, Outcome: model.OutcomeUnconfirmed, ItemID: 10, Amount: 2},
		{CreatedAt: base.Add(2 * time.Minute), OrderID: 1, Action: model.ActivityItemDeleted, Outcome: model.OutcomeRejected, ItemID: 11},
		{CreatedAt: base, OrderID: 2, Action: model.ActivityItemCreated, Outcome: model.OutcomeConfirmed},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(e))
		assert.NotZero(t, e.ID)
	}

	list, total, err := repo.ListByOrder(1, ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 3)
	assert.Equal(t, model.ActivityItemDeleted, list[0].Action, "newest first")
	assert.Equal(t, []string{"Cutting"}, []string(list[2].StageLabels))
	assert.NotNil(t, list[1].StageLabels, "empty labels are stored as an empty array")
}

func TestActivityRepository_Filters(t *testing.T) {
	_, repo := setupActivityTest(t)

	for i := 0; i < 4; i++ {
		outcome := model.OutcomeConfirmed
		if i%2 == 1 {
			outcome = model.OutcomeFailed
		}
		require.NoError(t, repo.Create(&model.ProgressActivity{OrderID: 7, Action: model.ActivityDetailUpdated, Outcome: outcome}))
	}
	require.NoError(t, repo.Create(&model.ProgressActivity{OrderID: 7, Action: model.ActivityOrderAction, Outcome: model.OutcomeConfirmed}))

	list, total, err := repo.ListByOrder(7, ActivityFilter{Action: model.ActivityDetailUpdated, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total, "total ignores pagination")
	assert.Len(t, list, 3)

	list, total, err = repo.ListByOrder(7, ActivityFilter{Outcome: model.OutcomeFailed})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	counts, err := repo.CountByOutcome(7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[model.OutcomeConfirmed])
	assert.Equal(t, int64(2), counts[model.OutcomeFailed])
	assert.Zero(t, counts[model.OutcomeUnconfirmed])
}

func TestReportRepository(t *testing.T) {
	testDB, _ := setupActivityTest(t)
	repo := NewReportRepository(testDB)

	require.NoError(t, repo.Create(&model.ReportExport{OrderID: 3, ObjectKey: "recaps/a.xlsx", URL: "https://cdn/a.xlsx", SizeBytes: 512}))
	require.NoError(t, repo.Create(&model.ReportExport{OrderID: 3, ObjectKey: "recaps/b.xlsx", URL: "https://cdn/b.xlsx"}))
	require.NoError(t, repo.Create(&model.ReportExport{OrderID: 4, ObjectKey: "recaps/c.xlsx", URL: "https://cdn/c.xlsx"}))

	exports, err := repo.ListByOrder(3, 1)
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, "recaps/b.xlsx", exports[0].ObjectKey)
}
