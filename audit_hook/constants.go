package audithook

// Action constants for audit events.
const (
	// Sale actions
	ActionSaleCommitted = "sale.committed"

	// Inventory actions
	ActionStockReceived = "stock.received"
	ActionStockLow      = "stock.low"

	// Failure actions
	ActionCommitFailed = "commit.failed"
)

// Resource constants for audit events.
const (
	ResourceSale    = "sale"
	ResourceReceipt = "receipt"
	ResourceProduct = "product"
)

// Category constants for audit events.
const (
	CategorySales     = "sales"
	CategoryInventory = "inventory"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
