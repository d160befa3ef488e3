package progress

import "sort"

// SizeGroup sums the assignments made against one order-item-size.
type SizeGroup struct {
	OrderItemSizeID int64 `json:"oisId"`
	Amount          int   `json:"opAmount"`
	AmountDone      int   `json:"opAmountDone"`
}

// GroupBySize sums opAmount and opAmountDone per oisId. Groups come back
// ordered by oisId.
func GroupBySize(items []ProgressItem) []SizeGroup {
	index := make(map[int64]int)
	var groups []SizeGroup
	for _, item := range items {
		i, ok := index[item.OrderItemSizeID]
		if !ok {
			i = len(groups)
			index[item.OrderItemSizeID] = i
			groups = append(groups, SizeGroup{OrderItemSizeID: item.OrderItemSizeID})
		}
		groups[i].Amount += item.Amount
		groups[i].AmountDone += item.AmountDone
	}
	sort.Slice(groups, func(a, b int) bool {
		return groups[a].OrderItemSizeID < groups[b].OrderItemSizeID
	})
	return groups
}

// SizeCapacity is a size's target against what is already assigned.
type SizeCapacity struct {
	Size      OrderItemSize `json:"size"`
	Assigned  int           `json:"assigned"`
	Remaining int           `json:"remaining"`
}

// Capacities computes, for every size, how much can still be assigned given
// the stage's current items. Remaining never goes below zero.
func Capacities(sizes []OrderItemSize, items []ProgressItem) []SizeCapacity {
	assigned := make(map[int64]int)
	for _, g := range GroupBySize(items) {
		assigned[g.OrderItemSizeID] = g.Amount
	}
	out := make([]SizeCapacity, 0, len(sizes))
	for _, s := range sizes {
		remaining := s.Amount - assigned[s.ID]
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, SizeCapacity{Size: s, Assigned: assigned[s.ID], Remaining: remaining})
	}
	return out
}

// Assignable keeps only the sizes that still have capacity; it backs the
// size picker of the assignment form.
func Assignable(sizes []OrderItemSize, items []ProgressItem) []SizeCapacity {
	var out []SizeCapacity
	for _, c := range Capacities(sizes, items) {
		if c.Remaining > 0 {
			out = append(out, c)
		}
	}
	return out
}

// RemainingForSize is the capacity left on one size; ok is false when the
// size is not part of sizes.
func RemainingForSize(sizes []OrderItemSize, items []ProgressItem, sizeID int64) (remaining int, ok bool) {
	for _, c := range Capacities(sizes, items) {
		if c.Size.ID == sizeID {
			return c.Remaining, true
		}
	}
	return 0, false
}

// Clamp bounds a requested quantity to [0, remaining].
func Clamp(requested, remaining int) int {
	if remaining < 0 {
		remaining = 0
	}
	switch {
	case requested < 0:
		return 0
	case requested > remaining:
		return remaining
	default:
		return requested
	}
}

// FinishedAmount sums the opdAmount of details.
func FinishedAmount(details []ProgressDetail) int {
	total := 0
	for _, d := range details {
		total += d.Amount
	}
	return total
}

// ItemRemaining is what can still be reported finished against item.
// excludeDetailID drops one existing detail from the sum so an edit can be
// validated against its own previous value; pass 0 to count every detail.
func ItemRemaining(item ProgressItem, details []ProgressDetail, excludeDetailID int64) int {
	done := 0
	for _, d := range details {
		if excludeDetailID != 0 && d.ID == excludeDetailID {
			continue
		}
		done += d.Amount
	}
	remaining := item.Amount - done
	if remaining < 0 {
		return 0
	}
	return remaining
}
