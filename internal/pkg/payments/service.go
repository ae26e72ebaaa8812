package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nutriware/shopcore/app/models"
	"gorm.io/gorm"
)

// Service materializes orders from verified payment events and reconciles
// catalog inventory. The order write and each inventory decrement are
// independent atomic operations, not one transaction: payment success is
// authoritative and a catalog-side failure never undoes a recorded order.
type Service struct {
	repo            Repository
	customers       CustomerRetriever
	invalidateCache func(slug string)
}

// NewService creates a payments service from injected collaborators. The
// customer retriever and cache invalidator may be nil.
func NewService(repo Repository, customers CustomerRetriever) *Service {
	return &Service{repo: repo, customers: customers}
}

// NewServiceFromDB creates a payments service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, customers CustomerRetriever) *Service {
	return NewService(NewRepository(db), customers)
}

// WithCacheInvalidator registers a callback invoked with the product slug
// after a successful inventory decrement.
func (s *Service) WithCacheInvalidator(fn func(slug string)) *Service {
	s.invalidateCache = fn
	return s
}

// RecordWebhookEvent persists webhook payloads idempotently. The second
// return reports whether this delivery was the first one seen.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.PaymentWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.PaymentWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ProcessInvoicePaid converts a paid invoice into a persisted order, then
// best-effort decrements inventory per SKU-carrying item. The returned error
// is non-nil only when the order itself could not be recorded; reconciliation
// failures are reported per item inside the result.
func (s *Service) ProcessInvoicePaid(ctx context.Context, invoice *Invoice) (*ProcessResult, error) {
	if invoice == nil {
		return nil, errors.New("invoice is required")
	}

	order := &models.Order{
		OrderNumber:       newOrderNumber(time.Now()),
		CustomerEmail:     s.resolveCustomerEmail(ctx, invoice),
		Items:             mapInvoiceLines(invoice.Lines.Data),
		TotalAmount:       invoice.EffectiveTotal(),
		Currency:          invoice.EffectiveCurrency(),
		Status:            models.OrderStatusPaid,
		Source:            models.OrderSourceStripe,
		ProviderInvoiceID: invoice.ID,
	}

	if err := s.repo.CreateOrder(order); err != nil {
		return nil, fmt.Errorf("persist order for invoice %s: %w", invoice.ID, err)
	}

	result := &ProcessResult{Order: order}
	for _, item := range order.Items {
		if item.VariantSKU == "" {
			continue
		}
		result.Items = append(result.Items, s.reconcileItem(item))
	}
	return result, nil
}

// resolveCustomerEmail prefers the email embedded in the invoice and falls
// back to a provider customer lookup. Lookup failures degrade to an empty
// email; the payment already cleared, so the order must still be recorded.
func (s *Service) resolveCustomerEmail(ctx context.Context, invoice *Invoice) string {
	if email := strings.TrimSpace(invoice.CustomerEmail); email != "" {
		return email
	}
	if invoice.CustomerID == "" || s.customers == nil {
		return ""
	}
	customer, err := s.customers.RetrieveCustomer(ctx, invoice.CustomerID)
	if err != nil {
		log.Printf("payments: could not fetch customer %s email: %v", invoice.CustomerID, err)
		return ""
	}
	return strings.TrimSpace(customer.Email)
}

func (s *Service) reconcileItem(item models.OrderItem) ItemOutcome {
	outcome := ItemOutcome{SKU: item.VariantSKU, Requested: item.Quantity}
	if outcome.Requested < 0 {
		outcome.Requested = 0
	}

	rows, err := s.repo.DecrementVariantInventory(outcome.SKU, outcome.Requested)
	if err != nil {
		log.Printf("payments: inventory decrement failed for sku %s: %v", outcome.SKU, err)
		outcome.Err = err
		return outcome
	}
	if rows == 0 {
		log.Printf("payments: no variant found for sku %s, inventory not adjusted", outcome.SKU)
		return outcome
	}

	outcome.Applied = true
	if s.invalidateCache != nil {
		if slug, err := s.repo.ProductSlugForSKU(outcome.SKU); err == nil && slug != "" {
			s.invalidateCache(slug)
		}
	}
	return outcome
}

// mapInvoiceLines converts invoice lines into order items using the
// precedence rules documented on InvoiceLine.
func mapInvoiceLines(lines []InvoiceLine) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for i := range lines {
		ln := &lines[i]
		items = append(items, models.OrderItem{
			Name:       ln.DisplayName(),
			VariantSKU: ln.VariantSKU(),
			UnitPrice:  ln.EffectiveUnitPrice(),
			Quantity:   ln.EffectiveQuantity(),
			Metadata:   ln.EffectiveMetadata(),
		})
	}
	return items
}

// newOrderNumber derives an order number from the current time plus a random
// suffix so concurrent webhook deliveries cannot collide.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}
