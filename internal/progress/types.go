// Package progress aggregates an order's production progress: stages,
// work assignments within a stage and the finished-quantity reports against
// each assignment. Everything here is pure; fetching and submitting belong
// to the service layer.
package progress

// ApprovalStatus is the backend's oApprovalStatus.
type ApprovalStatus int

const (
	ApprovalPending    ApprovalStatus = 1
	ApprovalInProgress ApprovalStatus = 2
	ApprovalDone       ApprovalStatus = 3
	ApprovalRejected   ApprovalStatus = 4
)

func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalPending:
		return "pending"
	case ApprovalInProgress:
		return "in_progress"
	case ApprovalDone:
		return "done"
	case ApprovalRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// PaymentStatus is the backend's oPaymentStatus.
type PaymentStatus int

const (
	PaymentUnpaid      PaymentStatus = 1
	PaymentDownPayment PaymentStatus = 2
	PaymentSettled     PaymentStatus = 3
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentUnpaid:
		return "unpaid"
	case PaymentDownPayment:
		return "down_payment"
	case PaymentSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Stage is one of the fixed production stages a ProgressMain row tracks.
type Stage int

const (
	StageCutting Stage = iota + 1
	StageEmbroidery
	StagePrinting
	StageSewing
	StageOverdeck
	StageButtonhole
	StageButtoning
	StageQualityControl
	StageThreadTrimming
	StageIroning
	StagePacking
	StageDelivery
)

var stageNames = map[Stage]string{
	StageCutting:        "Cutting",
	StageEmbroidery:     "Embroidery",
	StagePrinting:       "Printing",
	StageSewing:         "Sewing",
	StageOverdeck:       "Overdeck",
	StageButtonhole:     "Buttonhole",
	StageButtoning:      "Buttoning",
	StageQualityControl: "Quality control",
	StageThreadTrimming: "Thread trimming",
	StageIroning:        "Ironing",
	StagePacking:        "Packing",
	StageDelivery:       "Delivery",
}

// Stages lists every stage in production order.
func Stages() []Stage {
	out := make([]Stage, 0, len(stageNames))
	for s := StageCutting; s <= StageDelivery; s++ {
		out = append(out, s)
	}
	return out
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown stage"
}

func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

type Order struct {
	ID             int64          `json:"oId"`
	Code           string         `json:"oCode"`
	CustomerName   string         `json:"oCustomerName"`
	ApprovalStatus ApprovalStatus `json:"oApprovalStatus"`
	PaymentStatus  PaymentStatus  `json:"oPaymentStatus"`
	DeadlineAt     Timestamp      `json:"oDeadlineAt"`
	IsLockProgress int            `json:"oIsLockProgress"`
	Progress       int            `json:"oProgress"`
	Items          []OrderItem    `json:"orderItems,omitempty"`
}

// Locked reports whether progress deletion is frozen for the order.
func (o Order) Locked() bool {
	return o.IsLockProgress != 0
}

// Sizes flattens every order-item-size of the order.
func (o Order) Sizes() []OrderItemSize {
	var out []OrderItemSize
	for _, item := range o.Items {
		out = append(out, item.Sizes...)
	}
	return out
}

type OrderItem struct {
	ID          int64           `json:"oiId"`
	ProductName string          `json:"cpName"`
	Sizes       []OrderItemSize `json:"orderItemSizes"`
}

type OrderItemSize struct {
	ID          int64  `json:"oisId"`
	OrderItemID int64  `json:"oiId"`
	SizeName    string `json:"oisSize"`
	ProductName string `json:"cpName,omitempty"`
	Amount      int    `json:"oisAmount"`
}

// Label is the picker text for a size: "<product> - <size>".
func (s OrderItemSize) Label() string {
	if s.ProductName == "" {
		return s.SizeName
	}
	return s.ProductName + " - " + s.SizeName
}

// ProgressMain is a server-owned stage row, created when the order is approved.
type ProgressMain struct {
	ID              int64 `json:"opmId"`
	OrderID         int64 `json:"oId"`
	Stage           Stage `json:"opmStage"`
	AmountTotal     int   `json:"opmAmountTotal"`
	AmountTotalDone int   `json:"opmAmountTotalDone"`
}

// ProgressItem is a work assignment within a stage.
type ProgressItem struct {
	ID              int64     `json:"opId"`
	MainID          int64     `json:"opmId"`
	OrderItemSizeID int64     `json:"oisId"`
	UserID          int64     `json:"uId"`
	User            *User     `json:"user,omitempty"`
	Amount          int       `json:"opAmount"`
	AmountDone      int       `json:"opAmountDone"`
	Fee             float64   `json:"opFee"`
	DeadlineAt      Timestamp `json:"opDeadlineAt"`
}

// ProgressDetail is a finished-quantity report against a ProgressItem.
type ProgressDetail struct {
	ID         int64     `json:"opdId"`
	ItemID     int64     `json:"opId"`
	Amount     int       `json:"opdAmount"`
	FinishedAt Timestamp `json:"opdFinishedAt"`
}

type User struct {
	ID       int64  `json:"uId"`
	Name     string `json:"uName"`
	Username string `json:"uUsername,omitempty"`
	RoleName string `json:"rName,omitempty"`
}
