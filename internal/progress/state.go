package progress

import (
	"sort"
	"time"
)

// State is the aggregated progress of one order. It is a value: transitions
// return a new State and never modify the one they were given, so a State
// may be shared between goroutines and cached as-is.
type State struct {
	Order    Order                      `json:"order"`
	Stages   []ProgressMain             `json:"stages"`
	Items    map[int64][]ProgressItem   `json:"items"`   // keyed by opmId
	Details  map[int64][]ProgressDetail `json:"details"` // keyed by opId
	Roster   []User                     `json:"roster"`
	LoadedAt time.Time                  `json:"loadedAt"`
}

// Event is a transition applied to a State.
type Event interface {
	apply(State) State
}

// NewState starts an empty aggregate for order.
func NewState(order Order) State {
	return State{
		Order:   order,
		Items:   map[int64][]ProgressItem{},
		Details: map[int64][]ProgressDetail{},
	}
}

// Apply runs events in order and returns the resulting State.
func Apply(s State, events ...Event) State {
	for _, e := range events {
		s = e.apply(s)
	}
	return s
}

// OrderLoaded replaces the order header.
type OrderLoaded struct {
	Order Order
}

func (e OrderLoaded) apply(s State) State {
	s.Order = e.Order
	return s
}

// StagesLoaded replaces the stage list. Items and details of stages that
// disappeared are dropped.
type StagesLoaded struct {
	Stages []ProgressMain
}

func (e StagesLoaded) apply(s State) State {
	stages := append([]ProgressMain(nil), e.Stages...)
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].Stage != stages[j].Stage {
			return stages[i].Stage < stages[j].Stage
		}
		return stages[i].ID < stages[j].ID
	})

	keep := make(map[int64]bool, len(stages))
	for _, st := range stages {
		keep[st.ID] = true
	}
	items := make(map[int64][]ProgressItem, len(s.Items))
	details := cloneDetails(s.Details)
	for mainID, list := range s.Items {
		if keep[mainID] {
			items[mainID] = list
			continue
		}
		for _, it := range list {
			delete(details, it.ID)
		}
	}

	s.Stages = stages
	s.Items = items
	s.Details = details
	return s
}

// StageItemsLoaded replaces one stage's assignments with a fresh fetch.
// Details of assignments no longer present are dropped and the assigned
// users are merged into the roster.
type StageItemsLoaded struct {
	MainID int64
	Items  []ProgressItem
}

func (e StageItemsLoaded) apply(s State) State {
	fresh := make([]ProgressItem, 0, len(e.Items))
	present := make(map[int64]bool, len(e.Items))
	var users []User
	for _, it := range e.Items {
		if it.MainID == 0 {
			it.MainID = e.MainID
		}
		fresh = append(fresh, it)
		present[it.ID] = true
		if it.User != nil {
			users = append(users, *it.User)
		}
	}

	details := cloneDetails(s.Details)
	for _, old := range s.Items[e.MainID] {
		if !present[old.ID] {
			delete(details, old.ID)
		}
	}

	items := cloneItems(s.Items)
	items[e.MainID] = fresh
	s.Items = items
	s.Details = details
	s.Roster = mergeRoster(s.Roster, users)
	return s
}

// ItemDetailsLoaded replaces one assignment's finished reports.
type ItemDetailsLoaded struct {
	ItemID  int64
	Details []ProgressDetail
}

func (e ItemDetailsLoaded) apply(s State) State {
	fresh := make([]ProgressDetail, 0, len(e.Details))
	for _, d := range e.Details {
		if d.ItemID == 0 {
			d.ItemID = e.ItemID
		}
		fresh = append(fresh, d)
	}
	details := cloneDetails(s.Details)
	details[e.ItemID] = fresh
	s.Details = details
	return s
}

// ItemRemoved drops an assignment and its reports without a re-fetch.
type ItemRemoved struct {
	MainID int64
	ItemID int64
}

func (e ItemRemoved) apply(s State) State {
	items := cloneItems(s.Items)
	kept := make([]ProgressItem, 0, len(items[e.MainID]))
	for _, it := range items[e.MainID] {
		if it.ID != e.ItemID {
			kept = append(kept, it)
		}
	}
	items[e.MainID] = kept
	details := cloneDetails(s.Details)
	delete(details, e.ItemID)
	s.Items = items
	s.Details = details
	return s
}

// RosterMerged adds users to the roster, deduplicated by user id. A later
// entry for a known id refreshes its name fields.
type RosterMerged struct {
	Users []User
}

func (e RosterMerged) apply(s State) State {
	s.Roster = mergeRoster(s.Roster, e.Users)
	return s
}

// Stamped records when the state was last confirmed against the backend.
type Stamped struct {
	At time.Time
}

func (e Stamped) apply(s State) State {
	s.LoadedAt = e.At
	return s
}

func mergeRoster(roster, users []User) []User {
	if len(users) == 0 {
		return roster
	}
	out := append([]User(nil), roster...)
	index := make(map[int64]int, len(out))
	for i, u := range out {
		index[u.ID] = i
	}
	for _, u := range users {
		if u.ID == 0 {
			continue
		}
		if i, ok := index[u.ID]; ok {
			out[i] = u
			continue
		}
		index[u.ID] = len(out)
		out = append(out, u)
	}
	return out
}

func cloneItems(in map[int64][]ProgressItem) map[int64][]ProgressItem {
	out := make(map[int64][]ProgressItem, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneDetails(in map[int64][]ProgressDetail) map[int64][]ProgressDetail {
	out := make(map[int64][]ProgressDetail, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Stage returns a copy of the stage row with the given opmId.
func (s State) Stage(mainID int64) *ProgressMain {
	for _, st := range s.Stages {
		if st.ID == mainID {
			st := st
			return &st
		}
	}
	return nil
}

// StageItems returns the assignments of one stage.
func (s State) StageItems(mainID int64) []ProgressItem {
	return s.Items[mainID]
}

// Item finds an assignment within a stage.
func (s State) Item(mainID, itemID int64) *ProgressItem {
	for _, it := range s.Items[mainID] {
		if it.ID == itemID {
			it := it
			return &it
		}
	}
	return nil
}

// FindItem finds an assignment in any stage.
func (s State) FindItem(itemID int64) *ProgressItem {
	for mainID := range s.Items {
		if it := s.Item(mainID, itemID); it != nil {
			return it
		}
	}
	return nil
}

// Detail finds a finished report of an assignment.
func (s State) Detail(itemID, detailID int64) *ProgressDetail {
	for _, d := range s.Details[itemID] {
		if d.ID == detailID {
			d := d
			return &d
		}
	}
	return nil
}

// StageSummary is the derived view of one stage.
type StageSummary struct {
	MainID         int64          `json:"opmId"`
	Stage          Stage          `json:"opmStage"`
	StageName      string         `json:"stageName"`
	AmountTotal    int            `json:"opmAmountTotal"`
	AmountFinished int            `json:"amountFinished"`
	Percent        int            `json:"percent"`
	ItemCount      int            `json:"itemCount"`
	Capacities     []SizeCapacity `json:"capacities"`
}

// Summary is what the dashboard renders for an order.
type Summary struct {
	OrderID        int64          `json:"oId"`
	ApprovalStatus ApprovalStatus `json:"oApprovalStatus"`
	Locked         bool           `json:"locked"`
	Mutable        bool           `json:"mutable"`
	Percent        int            `json:"percent"`
	Stages         []StageSummary `json:"stages"`
	Roster         []User         `json:"roster"`
	LoadedAt       time.Time      `json:"loadedAt"`
}

// Summary derives per-stage percentages and capacities and the order
// percentage (finished over target, summed across stages).
func (s State) Summary() Summary {
	sizes := s.Order.Sizes()
	out := Summary{
		OrderID:        s.Order.ID,
		ApprovalStatus: s.Order.ApprovalStatus,
		Locked:         s.Order.Locked(),
		Mutable:        s.Order.ApprovalStatus == ApprovalInProgress,
		Stages:         make([]StageSummary, 0, len(s.Stages)),
		Roster:         s.Roster,
		LoadedAt:       s.LoadedAt,
	}
	if out.Roster == nil {
		out.Roster = []User{}
	}

	var done, total int
	for _, st := range s.Stages {
		items := s.Items[st.ID]
		finished := StageFinished(st, items, s.Details)
		out.Stages = append(out.Stages, StageSummary{
			MainID:         st.ID,
			Stage:          st.Stage,
			StageName:      st.Stage.String(),
			AmountTotal:    st.AmountTotal,
			AmountFinished: finished,
			Percent:        Percent(finished, st.AmountTotal),
			ItemCount:      len(items),
			Capacities:     Capacities(sizes, items),
		})
		if st.AmountTotal > 0 {
			done += finished
			total += st.AmountTotal
		}
	}
	out.Percent = Percent(done, total)
	return out
}
