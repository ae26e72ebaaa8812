package payments

import "github.com/nutriware/shopcore/app/models"

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// ItemOutcome reports the inventory reconciliation attempt for one order item.
// Applied is false when the decrement failed or matched no variant.
type ItemOutcome struct {
	SKU       string
	Requested int
	Applied   bool
	Err       error
}

// ProcessResult is the two-phase outcome of handling a paid invoice: the order
// is recorded first, then each SKU-carrying item is reconciled independently.
// Partial success is expected and observable here rather than only in logs.
type ProcessResult struct {
	Order *models.Order
	Items []ItemOutcome
}

// Attempted counts the inventory decrement attempts that were issued.
func (r *ProcessResult) Attempted() int {
	return len(r.Items)
}

// Failed counts items whose decrement did not apply.
func (r *ProcessResult) Failed() int {
	n := 0
	for _, it := range r.Items {
		if !it.Applied {
			n++
		}
	}
	return n
}
