package models

import "time"

// ScanJobStatus is the lifecycle state of a ScanJob.
type ScanJobStatus string

// Scan job statuses. Terminal: completed, failed.
const (
	ScanQueued     ScanJobStatus = "queued"
	ScanProcessing ScanJobStatus = "processing"
	ScanCompleted  ScanJobStatus = "completed"
	ScanFailed     ScanJobStatus = "failed"
)

// ScanFilters describes the transaction subset a ScanJob should cover.
type ScanFilters struct {
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	MinAmount *float64  `json:"min_amount,omitempty"`
	MaxAmount *float64  `json:"max_amount,omitempty"`
	Status   string     `json:"status,omitempty"`
}

// ScanJob is a queued fraud-detection batch scan.
type ScanJob struct {
	JobID                 string        `json:"job_id"`
	Status                ScanJobStatus `json:"status"`
	Priority              int           `json:"priority"`
	Filters               ScanFilters   `json:"filters"`
	CreatedBy             string        `json:"created_by,omitempty"`
	WorkerID              string        `json:"worker_id,omitempty"`
	ClaimedAt             *time.Time    `json:"claimed_at,omitempty"`
	StartedAt             *time.Time    `json:"started_at,omitempty"`
	CompletedAt           *time.Time    `json:"completed_at,omitempty"`
	Progress              float64       `json:"progress"`
	TransactionsTotal     int           `json:"transactions_total"`
	TransactionsProcessed int           `json:"transactions_processed"`
	TransactionsFlagged   int           `json:"transactions_flagged"`
	Error                 string        `json:"error,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
}

// FraudRuleType identifies the evaluator a FraudRule dispatches to.
type FraudRuleType string

// Supported fraud rule types.
const (
	FraudRuleThreshold FraudRuleType = "threshold"
	FraudRulePattern   FraudRuleType = "pattern"
	FraudRuleVelocity  FraudRuleType = "velocity"
)

// FraudRule is a priority-ordered rule the scan worker evaluates against
// each transaction.
type FraudRule struct {
	RuleID          string        `json:"rule_id"`
	Name            string        `json:"name"`
	Definition      string        `json:"definition"`
	Type            FraudRuleType `json:"type"`
	Severity        Severity      `json:"severity"`
	Priority        int           `json:"priority"`
	Enabled         bool          `json:"enabled"`
	AlertCount      int           `json:"alert_count"`
	LastTriggeredAt *time.Time    `json:"last_triggered_at,omitempty"`
}

// Transaction is the minimal record the scan worker evaluates fraud
// rules against.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	FromAccount   string    `json:"from_account"`
	ToAccount     string    `json:"to_account"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"created_at"`
}

// FraudAlertStatus is the lifecycle state of a FraudAlert.
type FraudAlertStatus string

// Fraud alert statuses.
const (
	FraudAlertOpen      FraudAlertStatus = "open"
	FraudAlertDismissed FraudAlertStatus = "dismissed"
	FraudAlertConfirmed FraudAlertStatus = "confirmed"
)

// FraudAlert is produced when a FraudRule fires against a Transaction.
type FraudAlert struct {
	AlertID           string           `json:"alert_id"`
	TransactionID     string           `json:"transaction_id"`
	RuleID            string           `json:"rule_id"`
	Severity          Severity         `json:"severity"`
	Status            FraudAlertStatus `json:"status"`
	FlaggedAmount     float64          `json:"flagged_amount"`
	FlaggedCurrency   string           `json:"flagged_currency"`
	FromAccount       string           `json:"from_account"`
	ToAccount         string           `json:"to_account"`
	TransactionType   string           `json:"transaction_type"`
	Message           string           `json:"message,omitempty"`
	DetectedAt        time.Time        `json:"detected_at"`
}

// CreateScanJobRequest is the input to queue a new ScanJob.
type CreateScanJobRequest struct {
	Filters   ScanFilters `json:"filters"`
	Priority  int         `json:"priority"`
	CreatedBy string      `json:"created_by,omitempty"`
}
