package models

import "time"

// Transaction types for a due.
const (
	TransactionFixed        = "fixed"
	TransactionSubscription = "subscription"
)

// Due is a demand for payment issued by a creator against a customer.
// Fixed dues are one-off; subscription dues recur monthly for Months cycles.
type Due struct {
	ID              int64      `json:"id"`
	InvoiceNum      int64      `json:"invoice_num"`
	Name            string     `json:"name"`
	Amount          float64    `json:"amount"`
	TransactionType string     `json:"transaction_type"`
	DueDate         *time.Time `json:"due_date"`
	Months          int        `json:"months"`
	IsCancelled     bool       `json:"is_cancelled"`
	GatewayRef      string     `json:"gateway_ref"`
	CustomerID      int64      `json:"customer_id"`
	CreatorID       int64      `json:"creator_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

const DueTable = "dues"

var DueWritable = []string{
	"name", "amount", "transaction_type", "due_date",
	"months", "is_cancelled", "customer_id", "creator_id",
}

// Payment records a settled amount against a due, keyed by the gateway's
// reference id. Rows are written by the payment webhook, never by clients.
type Payment struct {
	ID         int64     `json:"id"`
	GatewayRef string    `json:"gateway_ref"`
	DueID      int64     `json:"due_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const PaymentTable = "payments"

var PaymentWritable = []string{"gateway_ref", "due_id"}
