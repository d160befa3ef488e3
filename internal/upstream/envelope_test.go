package upstream

import (
	"testing"
	"time"

	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestDecode_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind Kind
		wantIDs  []int64
		wantLast int
	}{
		{
			name:     "nested paginated",
			body:     `{"data":{"listData":[{"id":1},{"id":2}],"pagination":{"pageNumber":1,"pageLimit":2,"pageLast":3,"total":6}}}`,
			wantKind: KindPaginated,
			wantIDs:  []int64{1, 2},
			wantLast: 3,
		},
		{
			name:     "data array",
			body:     `{"data":[{"id":3},{"id":1}]}`,
			wantKind: KindPlain,
			wantIDs:  []int64{3, 1},
		},
		{
			name:     "top level paginated",
			body:     `{"listData":[{"id":9}],"pagination":{"pageLast":1}}`,
			wantKind: KindPaginated,
			wantIDs:  []int64{9},
			wantLast: 1,
		},
		{
			name:     "bare array",
			body:     ` [{"id":4}] `,
			wantKind: KindPlain,
			wantIDs:  []int64{4},
		},
		{name: "unknown object", body: `{"message":"ok"}`, wantKind: KindEmpty},
		{name: "null data", body: `{"data":null}`, wantKind: KindEmpty},
		{name: "malformed", body: `{"data":[`, wantKind: KindEmpty},
		{name: "empty body", body: ``, wantKind: KindEmpty},
		{name: "scalar", body: `42`, wantKind: KindEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Decode[row]([]byte(tt.body))

			assert.Equal(t, tt.wantKind, env.Kind)
			require.NotNil(t, env.Items)
			ids := make([]int64, 0, len(env.Items))
			for _, r := range env.Items {
				ids = append(ids, r.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantIDs, ids)
			}
			assert.Equal(t, tt.wantLast, env.Pagination.PageLast)
		})
	}
}

func TestDecode_SkipsOnlyUndecodableRecords(t *testing.T) {
	env := Decode[row]([]byte(`{"data":{"listData":[{"id":1},{"id":"x"},{"id":3}],"pagination":{"pageLast":2}}}`))

	assert.Equal(t, KindPaginated, env.Kind)
	require.Len(t, env.Items, 2)
	assert.Equal(t, int64(1), env.Items[0].ID)
	assert.Equal(t, int64(3), env.Items[1].ID)
	assert.Equal(t, 2, env.Pagination.PageLast)
}

func TestExtract_ProgressItemsWithLooseFields(t *testing.T) {
	body := `{"data":{"listData":[
		{"opId":1,"opmId":100,"oisId":1,"uId":7,"opAmount":10,"opFee":1000,"opDeadlineAt":"2026-10-20T10:00:00+07:00"},
		{"opId":2,"opmId":100,"oisId":2,"uId":8,"opAmount":"4","opFee":"1500.00","opDeadlineAt":"2026-10-20 10:00:00+07"},
		{"opId":3,"opmId":100,"oisId":2,"uId":8,"opAmount":null,"opFee":null,"opDeadlineAt":null}
	]}}`

	items := Extract[progress.ProgressItem]([]byte(body))

	require.Len(t, items, 3)
	assert.Equal(t, 1500.0, items[1].Fee)
	assert.Equal(t, 4, items[1].Amount)
	assert.True(t, items[0].DeadlineAt.Equal(items[1].DeadlineAt.Time))
	assert.True(t, time.Date(2026, 10, 20, 3, 0, 0, 0, time.UTC).Equal(items[1].DeadlineAt.Time))
	assert.Zero(t, items[2].Amount)
	assert.True(t, items[2].DeadlineAt.IsZero())
}

func TestExtract_EmptyListIsNotNil(t *testing.T) {
	items := Extract[row]([]byte(`{"data":[]}`))
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestDecodeObject(t *testing.T) {
	got, ok := DecodeObject[row]([]byte(`{"data":{"id":7,"name":"PO-7"}}`))
	require.True(t, ok)
	assert.Equal(t, "PO-7", got.Name)

	got, ok = DecodeObject[row]([]byte(`{"id":8}`))
	require.True(t, ok)
	assert.Equal(t, int64(8), got.ID)

	_, ok = DecodeObject[row]([]byte(`{"data":[{"id":1}]}`))
	assert.False(t, ok)

	_, ok = DecodeObject[row]([]byte(`[]`))
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "paginated", KindPaginated.String())
	assert.Equal(t, "plain", KindPlain.String())
	assert.Equal(t, "empty", KindEmpty.String())
}
