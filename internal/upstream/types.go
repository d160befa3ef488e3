package upstream

import (
	"strconv"
	"time"
)

// ListQuery is the backend's common list contract. PageLimit -1 fetches
// every row.
type ListQuery struct {
	PageLimit  int
	PageNumber int
	Search     string
	Filters    map[string]string
}

// All asks for every row in one page.
func All() ListQuery {
	return ListQuery{PageLimit: -1, PageNumber: 1}
}

func (q ListQuery) params() map[string]string {
	limit := q.PageLimit
	if limit == 0 {
		limit = 10
	}
	page := q.PageNumber
	if page < 1 {
		page = 1
	}
	out := map[string]string{
		"pageLimit":  strconv.Itoa(limit),
		"pageNumber": strconv.Itoa(page),
	}
	if q.Search != "" {
		out["search"] = q.Search
	}
	for k, v := range q.Filters {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// NewProgressItem is the body of a new work assignment.
type NewProgressItem struct {
	OrderItemSizeID int64     `json:"oisId"`
	UserID          int64     `json:"uId"`
	Amount          int       `json:"opAmount"`
	Fee             float64   `json:"opFee"`
	DeadlineAt      time.Time `json:"opDeadlineAt"`
}

// ProgressDetailInput is the body of a new or edited finished report.
type ProgressDetailInput struct {
	Amount     int       `json:"opdAmount"`
	FinishedAt time.Time `json:"opdFinishedAt"`
}

// OrderAction is one of the order workflow endpoints under /api/order.
type OrderAction string

const (
	ActionApprove        OrderAction = "approve"
	ActionReject         OrderAction = "reject"
	ActionDone           OrderAction = "done"
	ActionLockProgress   OrderAction = "lock-progress"
	ActionUnlockProgress OrderAction = "unlock-progress"
	ActionDownPayment    OrderAction = "down-payment"
	ActionSettlement     OrderAction = "settlement"
)

type Product struct {
	ID            int64   `json:"cpId"`
	Name          string  `json:"cpName"`
	Price         float64 `json:"cpPrice"`
	CategoryID    int64   `json:"ccId"`
	SubcategoryID int64   `json:"csId"`
	ImageURL      string  `json:"cpImage,omitempty"`
}

type Category struct {
	ID   int64  `json:"ccId"`
	Name string `json:"ccName"`
}

type Subcategory struct {
	ID         int64  `json:"csId"`
	CategoryID int64  `json:"ccId"`
	Name       string `json:"csName"`
}
