package payments

import (
	"encoding/json"
	"errors"
	"strings"
)

// Event types dispatched by the webhook classifier.
const (
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// Metadata keys recognized as a variant SKU on an invoice line.
const (
	metadataKeyVariantSKU = "variant_sku"
	metadataKeySKU        = "sku"
)

const defaultCurrency = "usd"

// Event is the verified webhook envelope. Data.Object stays raw until the
// classifier knows which shape to decode it into.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a webhook envelope from the raw signed body. Only an
// unparseable body is an error; an envelope without a type is returned as is
// and lands in the classifier's unhandled branch.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	event.Type = strings.TrimSpace(event.Type)
	return &event, nil
}

// Invoice is the provider invoice object carried by payment events. Optional
// fields are pointers or zero values; the Effective* accessors apply the
// documented precedence rules instead of ad hoc nil chains at call sites.
type Invoice struct {
	ID            string `json:"id"`
	CustomerID    string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	AmountPaid    int64  `json:"amount_paid"`
	Total         int64  `json:"total"`
	Currency      string `json:"currency"`
	Lines         struct {
		Data []InvoiceLine `json:"data"`
	} `json:"lines"`
}

// InvoiceLine is one priced entry within an invoice.
type InvoiceLine struct {
	Description string            `json:"description"`
	Amount      int64             `json:"amount"`
	Quantity    *int              `json:"quantity"`
	Metadata    map[string]string `json:"metadata"`
	Price       *LinePrice        `json:"price"`
}

// LinePrice is the structured price attached to a line, when present.
type LinePrice struct {
	UnitAmount int64             `json:"unit_amount"`
	Nickname   string            `json:"nickname"`
	Metadata   map[string]string `json:"metadata"`
}

// ParseInvoice decodes the invoice object out of an event envelope.
func ParseInvoice(raw json.RawMessage) (*Invoice, error) {
	if len(raw) == 0 {
		return nil, errors.New("event carries no invoice object")
	}
	var invoice Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return nil, err
	}
	if strings.TrimSpace(invoice.ID) == "" {
		return nil, errors.New("invoice object missing id")
	}
	return &invoice, nil
}

// EffectiveTotal prefers the amount actually paid, falls back to the invoice
// total, and defaults to 0.
func (inv *Invoice) EffectiveTotal() int64 {
	if inv.AmountPaid != 0 {
		return inv.AmountPaid
	}
	return inv.Total
}

// EffectiveCurrency defaults to "usd" when the invoice omits a currency.
func (inv *Invoice) EffectiveCurrency() string {
	if cur := strings.TrimSpace(inv.Currency); cur != "" {
		return strings.ToLower(cur)
	}
	return defaultCurrency
}

// EffectiveQuantity defaults to 1 when the line carries no quantity.
func (ln *InvoiceLine) EffectiveQuantity() int {
	if ln.Quantity == nil || *ln.Quantity == 0 {
		return 1
	}
	return *ln.Quantity
}

// EffectiveUnitPrice prefers the structured price's unit amount, falls back to
// the flat line amount, and defaults to 0.
func (ln *InvoiceLine) EffectiveUnitPrice() int64 {
	if ln.Price != nil && ln.Price.UnitAmount != 0 {
		return ln.Price.UnitAmount
	}
	return ln.Amount
}

// EffectiveMetadata prefers price-level metadata over line-level metadata and
// never returns nil.
func (ln *InvoiceLine) EffectiveMetadata() map[string]string {
	if ln.Price != nil && ln.Price.Metadata != nil {
		return ln.Price.Metadata
	}
	if ln.Metadata != nil {
		return ln.Metadata
	}
	return map[string]string{}
}

// VariantSKU extracts the variant SKU from metadata under either recognized
// key. An empty result means the line does not participate in inventory
// reconciliation.
func (ln *InvoiceLine) VariantSKU() string {
	md := ln.EffectiveMetadata()
	if sku := strings.TrimSpace(md[metadataKeyVariantSKU]); sku != "" {
		return sku
	}
	return strings.TrimSpace(md[metadataKeySKU])
}

// DisplayName prefers the line description, then the price nickname.
func (ln *InvoiceLine) DisplayName() string {
	if name := strings.TrimSpace(ln.Description); name != "" {
		return name
	}
	if ln.Price != nil {
		if name := strings.TrimSpace(ln.Price.Nickname); name != "" {
			return name
		}
	}
	return "Item"
}
