package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"kitstock-api/pkg/uid"
)

// KitStatus is the lifecycle state of a kit.
type KitStatus string

const (
	KitAvailable KitStatus = "available"
	KitSold      KitStatus = "sold"
)

// Kit is a physical inventory unit, or a sold aggregate of units merged
// under one order.
type Kit struct {
	ID            string     `json:"id" db:"id"`
	SerialNumbers StringList `json:"serialNumbers" db:"serial_numbers"`
	BatchNumbers  StringList `json:"batchNumbers" db:"batch_numbers"`
	Status        KitStatus  `json:"status" db:"status"`
	OrderID       string     `json:"orderId" db:"order_id"`
	InvoiceURL    string     `json:"invoiceUrl" db:"invoice_url"`
	InvoiceID     string     `json:"invoiceId" db:"invoice_id"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// SaleStamp carries the order linkage written onto sold kits.
type SaleStamp struct {
	OrderID    string
	InvoiceURL string
	InvoiceID  string
}

// NewAvailableKit builds a fresh available unit with a new id.
func NewAvailableKit(serials, batches []string) *Kit {
	now := time.Now().UTC()
	return &Kit{
		ID:            uid.New(),
		SerialNumbers: StringList(Unique(serials)),
		BatchNumbers:  StringList(Unique(batches)),
		Status:        KitAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsAvailable reports whether the kit can be sold or deleted.
func (k *Kit) IsAvailable() bool {
	return k.Status == KitAvailable
}

// KitCounts holds per-status inventory counts.
type KitCounts struct {
	Available int64 `json:"available"`
	Sold      int64 `json:"sold"`
	Total     int64 `json:"total"`
}

// Unique returns the non-empty values of in, in first-seen order, without
// duplicates.
func Unique(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitGroups cuts serials into consecutive groups of size n. The last group
// may be shorter. n < 1 is treated as 1.
func SplitGroups(serials []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	groups := make([][]string, 0, (len(serials)+n-1)/n)
	for start := 0; start < len(serials); start += n {
		end := start + n
		if end > len(serials) {
			end = len(serials)
		}
		group := make([]string, end-start)
		copy(group, serials[start:end])
		groups = append(groups, group)
	}
	return groups
}

// StringList is a list of strings stored as a JSON array in SQL columns.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported type %T for StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode string list: %w", err)
	}
	*l = StringList(out)
	return nil
}

// MarshalJSON renders a nil list as [].
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}
