package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CODStatus is the state of a cash-on-delivery order.
type CODStatus string

const (
	CODAwaitingConfirmation CODStatus = "AwaitingConfirmation"
	CODConfirmed            CODStatus = "Confirmed"
	CODCancelled            CODStatus = "Cancelled"
)

// CODOrder is a cash-on-delivery order awaiting customer confirmation.
type CODOrder struct {
	ID            string          `json:"id" db:"id"`
	OrderID       string          `json:"orderId" db:"order_id"`
	OrderNo       string          `json:"orderNo" db:"order_no"`
	CustomerName  string          `json:"customerName" db:"customer_name"`
	CustomerEmail string          `json:"customerEmail" db:"customer_email"`
	CustomerPhone string          `json:"customerPhone" db:"customer_phone"`
	InvoiceID     string          `json:"invoiceId" db:"invoice_id"`
	InvoiceURL    string          `json:"invoiceUrl,omitempty" db:"invoice_url"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        CODStatus       `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// CODWithKits is the create response: the order and the kits already sold
// under its orderId.
type CODWithKits struct {
	Order *CODOrder `json:"order"`
	Kits  []Kit     `json:"kits"`
}
