package model

import (
	"time"

	"github.com/lib/pq"
)

type ActivityAction string

const (
	ActivityItemCreated   ActivityAction = "item_created"
	ActivityItemDeleted   ActivityAction = "item_deleted"
	ActivityDetailCreated ActivityAction = "detail_created"
	ActivityDetailUpdated ActivityAction = "detail_updated"
	ActivityDetailDeleted ActivityAction = "detail_deleted"
	ActivityOrderAction   ActivityAction = "order_action"
	ActivityRecapExported ActivityAction = "recap_exported"
)

type ActivityOutcome string

const (
	// OutcomeConfirmed means the change was visible on the backend after the write
	OutcomeConfirmed ActivityOutcome = "confirmed"
	// OutcomeUnconfirmed means the write succeeded but polling never observed it
	OutcomeUnconfirmed ActivityOutcome = "unconfirmed"
	// OutcomeRejected means validation or the backend refused the change
	OutcomeRejected ActivityOutcome = "rejected"
	// OutcomeFailed means the backend could not be reached
	OutcomeFailed ActivityOutcome = "failed"
)

// ProgressActivity is one journal entry for a mutation made through the gateway.
type ProgressActivity struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	OrderID int64           `gorm:"not null;index" json:"order_id"`
	Action  ActivityAction  `gorm:"type:varchar(50);not null;index" json:"action"`
	Outcome ActivityOutcome `gorm:"type:varchar(20);not null" json:"outcome"`

	// 0 when the action has no such target
	MainID   int64 `json:"main_id,omitempty"`
	ItemID   int64 `json:"item_id,omitempty"`
	DetailID int64 `json:"detail_id,omitempty"`
	Amount   int   `json:"amount,omitempty"`

	// Stages the change touched, by display name
	StageLabels pq.StringArray `gorm:"type:text[];default:'{}';not null" json:"stage_labels"`

	ActorID   int64  `gorm:"index" json:"actor_id,omitempty"`
	ActorName string `gorm:"type:varchar(100)" json:"actor_name,omitempty"`
	RequestID string `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	Message   string `gorm:"type:text" json:"message,omitempty"`
}

func (ProgressActivity) TableName() string {
	return "progress_activities"
}
