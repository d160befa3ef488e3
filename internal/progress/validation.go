package progress

import "time"

// ItemRequest is a new work assignment as submitted from the edit-order form.
type ItemRequest struct {
	MainID          int64
	OrderItemSizeID int64
	UserID          int64
	Amount          int
	Fee             *float64
	DeadlineAt      time.Time
}

// DetailRequest reports a finished quantity. DetailID is set for edits.
type DetailRequest struct {
	MainID     int64
	ItemID     int64
	DetailID   int64
	Amount     int
	FinishedAt time.Time
}

// CheckMutable is the gate shared by every progress mutation.
func CheckMutable(order Order) error {
	if order.ApprovalStatus != ApprovalInProgress {
		return &ValidationError{Fields: []FieldError{notInProgress(order)}}
	}
	return nil
}

func notInProgress(order Order) FieldError {
	return FieldError{
		Field:   "oApprovalStatus",
		Message: "order is " + order.ApprovalStatus.String() + ", progress can only change while it is in progress",
		Err:     ErrOrderNotInProgress,
	}
}

// ValidateItem checks a new assignment against the order, the stage it goes
// into and the assignments already in that stage.
func ValidateItem(order Order, stage *ProgressMain, stageItems []ProgressItem, req ItemRequest, now time.Time, loc *time.Location) error {
	v := &validator{}

	if order.ApprovalStatus != ApprovalInProgress {
		v.fields = append(v.fields, notInProgress(order))
	}

	if req.MainID == 0 {
		v.add("opmId", ErrRequiredField, "stage is required")
	} else if stage == nil || stage.ID != req.MainID {
		v.add("opmId", ErrStageNotFound, "stage %d does not belong to order %d", req.MainID, order.ID)
	}
	if req.UserID == 0 {
		v.add("uId", ErrRequiredField, "assigned user is required")
	}
	if req.Fee == nil {
		v.add("opFee", ErrRequiredField, "fee is required")
	} else if *req.Fee < 0 {
		v.add("opFee", ErrInvalidAmount, "fee cannot be negative")
	}

	switch {
	case req.Amount == 0:
		v.add("opAmount", ErrRequiredField, "quantity is required")
	case req.Amount < 0:
		v.add("opAmount", ErrInvalidAmount, "quantity must be positive")
	}

	if req.OrderItemSizeID == 0 {
		v.add("oisId", ErrRequiredField, "order item size is required")
	} else if remaining, ok := RemainingForSize(order.Sizes(), stageItems, req.OrderItemSizeID); !ok {
		v.add("oisId", ErrOrderItemSizeNotFound, "order item size %d is not part of order %d", req.OrderItemSizeID, order.ID)
	} else if req.Amount > remaining {
		v.add("opAmount", ErrQuantityExceedsRemaining, "quantity %d exceeds the %d still unassigned", req.Amount, remaining)
	}

	if req.DeadlineAt.IsZero() {
		v.add("opDeadlineAt", ErrRequiredField, "deadline is required")
	} else {
		if req.DeadlineAt.Before(now) {
			v.add("opDeadlineAt", ErrDeadlineInPast, "deadline cannot be in the past")
		}
		if limit := OrderDeadline(order, loc); !limit.IsZero() && req.DeadlineAt.After(limit) {
			v.add("opDeadlineAt", ErrDeadlineAfterOrder, "deadline cannot be after the order deadline %s", limit.Format("2006-01-02"))
		}
	}

	return v.err()
}

// ValidateDetail checks a finished-quantity report (new or edited) against
// its progress item and the details already recorded for it.
func ValidateDetail(order Order, stage *ProgressMain, item *ProgressItem, details []ProgressDetail, req DetailRequest) error {
	v := &validator{}

	if order.ApprovalStatus != ApprovalInProgress {
		v.fields = append(v.fields, notInProgress(order))
	}
	if item == nil {
		v.add("opId", ErrProgressItemNotFound, "progress item %d not found in stage", req.ItemID)
	} else if stage == nil || stage.ID != item.MainID {
		v.add("opmId", ErrStageNotFound, "stage %d does not belong to order %d", item.MainID, order.ID)
	}
	if req.DetailID != 0 && !containsDetail(details, req.DetailID) {
		v.add("opdId", ErrProgressDetailNotFound, "progress detail %d not found", req.DetailID)
	}
	if req.FinishedAt.IsZero() {
		v.add("opdFinishedAt", ErrRequiredField, "finish date is required")
	}

	switch {
	case req.Amount == 0:
		v.add("opdAmount", ErrRequiredField, "finished quantity is required")
	case req.Amount < 0:
		v.add("opdAmount", ErrInvalidAmount, "finished quantity must be positive")
	case item != nil:
		if remaining := ItemRemaining(*item, details, req.DetailID); req.Amount > remaining {
			v.add("opdAmount", ErrQuantityExceedsRemaining, "finished quantity %d exceeds the %d still open", req.Amount, remaining)
		}
	}

	return v.err()
}

// ValidateItemDelete guards removal of a work assignment.
func ValidateItemDelete(order Order, item *ProgressItem, confirmed bool) error {
	v := &validator{}
	if order.ApprovalStatus != ApprovalInProgress {
		v.fields = append(v.fields, notInProgress(order))
	}
	if order.Locked() {
		v.add("oIsLockProgress", ErrProgressLocked, "progress of order %d is locked", order.ID)
	}
	if item == nil {
		v.add("opId", ErrProgressItemNotFound, "progress item not found")
	}
	if !confirmed {
		v.add("confirm", ErrConfirmationRequired, "deletion must be confirmed")
	}
	return v.err()
}

// ValidateDetailDelete guards removal of a finished-quantity report.
func ValidateDetailDelete(order Order, detail *ProgressDetail, confirmed bool) error {
	v := &validator{}
	if order.ApprovalStatus != ApprovalInProgress {
		v.fields = append(v.fields, notInProgress(order))
	}
	if detail == nil {
		v.add("opdId", ErrProgressDetailNotFound, "progress detail not found")
	}
	if !confirmed {
		v.add("confirm", ErrConfirmationRequired, "deletion must be confirmed")
	}
	return v.err()
}

func containsDetail(details []ProgressDetail, id int64) bool {
	for _, d := range details {
		if d.ID == id {
			return true
		}
	}
	return false
}
