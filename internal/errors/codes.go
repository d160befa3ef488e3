package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. The dashboard maps messages from these.

const (
	// ==================== Auth (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED" // no or unreadable token
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"
	AuthForbidden    = "AUTH_FORBIDDEN" // backend refused the token

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// ==================== Orders (ORDER_) ====================
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderNotInProgress     = "ORDER_NOT_IN_PROGRESS"
	OrderUnknownAction     = "ORDER_UNKNOWN_ACTION"
	OrderActionNotAllowed  = "ORDER_ACTION_NOT_ALLOWED"

	// ==================== Progress (PROGRESS_) ====================
	ProgressStageNotFound  = "PROGRESS_STAGE_NOT_FOUND"
	ProgressItemNotFound   = "PROGRESS_ITEM_NOT_FOUND"
	ProgressDetailNotFound = "PROGRESS_DETAIL_NOT_FOUND"
	ProgressLocked         = "PROGRESS_LOCKED"
	ProgressExceeded       = "PROGRESS_QUANTITY_EXCEEDED"
	ProgressUnconfirmed    = "PROGRESS_UNCONFIRMED" // write accepted, not yet visible
	ProgressConfirmDelete  = "PROGRESS_CONFIRMATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND"

	// ==================== Reports (REPORT_) ====================
	ReportStorageDisabled = "REPORT_STORAGE_DISABLED"
	ReportRenderFailed    = "REPORT_RENDER_FAILED"

	// ==================== Upstream backend (UPSTREAM_) ====================
	UpstreamRejected    = "UPSTREAM_REJECTED"    // 4xx from the backend
	UpstreamUnavailable = "UPSTREAM_UNAVAILABLE" // 5xx, timeout or network

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
)
