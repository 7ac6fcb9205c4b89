package integration

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// BillingClient talks to the invoicing platform.
type BillingClient struct {
	c *client
}

// NewBillingClient creates a billing client authenticated with apiKey.
func NewBillingClient(baseURL, apiKey string, timeout time.Duration) *BillingClient {
	return &BillingClient{c: newClient("billing", baseURL, timeout, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})}
}

type paymentRequest struct {
	Amount  string `json:"amount"`
	Mode    string `json:"payment_mode"`
	Date    string `json:"date"`
	Comment string `json:"description,omitempty"`
}

// MarkInvoicePaid records a cash payment of amount against the invoice.
func (b *BillingClient) MarkInvoicePaid(ctx context.Context, invoiceID string, amount decimal.Decimal) error {
	return b.c.postJSON(ctx, "/invoices/"+url.PathEscape(invoiceID)+"/payments", paymentRequest{
		Amount:  amount.StringFixed(2),
		Mode:    "cash",
		Date:    time.Now().UTC().Format("2006-01-02"),
		Comment: "Cash on delivery confirmed",
	}, nil)
}
