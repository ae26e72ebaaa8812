package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nutriware/shopcore/app/models"
	"github.com/nutriware/shopcore/internal/pkg/catalog"
	"github.com/nutriware/shopcore/internal/pkg/database"
	"github.com/nutriware/shopcore/internal/pkg/env"
	"github.com/nutriware/shopcore/internal/pkg/payments"
)

// HandleStripeWebhook receives payment provider events. The signature covers
// the exact request bytes, so the body must stay unparsed until verification
// passes. Past the signature gate only an unparseable body earns a 400;
// everything else acknowledges with {"received": true}, because the provider
// cannot fix our processing errors and must not retry on them.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !payments.VerifyStripeWebhookSignature(rawBody, signature, secret) {
		log.Print("stripe webhook: signature verification failed")
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: signature verification failed")
	}

	event, err := payments.ParseEvent(rawBody)
	if err != nil {
		log.Printf("stripe webhook: unparseable event payload: %v", err)
		return c.Status(fiber.StatusBadRequest).SendString("Webhook Error: invalid payload")
	}

	svc := payments.NewServiceFromDB(database.GetDB(), payments.NewStripeClientFromEnv()).
		WithCacheInvalidator(catalog.InvalidateProductCache)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	created, stored, err := svc.RecordWebhookEvent(ctx, payments.WebhookEventInput{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	var recordID uint
	switch {
	case err != nil:
		// The event row is an audit record, not a gate: a paid invoice still
		// becomes an order even when the record cannot be written.
		log.Printf("stripe webhook: could not record event %q, processing anyway: %v", event.ID, err)
	case !created:
		// Redelivery of an event we already saw; never materialize twice.
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	default:
		recordID = stored.ID
	}

	switch event.Type {
	case payments.EventInvoicePaymentSucceeded:
		processInvoicePaid(ctx, svc, recordID, event)
	case payments.EventInvoicePaymentFailed:
		// No order-side handling for failed payments yet.
		markEventProcessed(ctx, svc, recordID, nil)
	default:
		log.Printf("stripe webhook: unhandled event type %q", event.Type)
		markEventProcessed(ctx, svc, recordID, nil)
	}

	return c.JSON(fiber.Map{"received": true})
}

func markEventProcessed(ctx context.Context, svc *payments.Service, eventID uint, procErr error) {
	if eventID == 0 {
		return
	}
	if err := svc.MarkWebhookProcessed(ctx, eventID, procErr); err != nil {
		log.Printf("stripe webhook: could not mark event %d processed: %v", eventID, err)
	}
}

func processInvoicePaid(ctx context.Context, svc *payments.Service, eventID uint, event *payments.Event) {
	invoice, err := payments.ParseInvoice(event.Data.Object)
	if err != nil {
		log.Printf("stripe webhook: invalid invoice object on event %s: %v", event.ID, err)
		markEventProcessed(ctx, svc, eventID, err)
		return
	}

	result, procErr := svc.ProcessInvoicePaid(ctx, invoice)
	markEventProcessed(ctx, svc, eventID, procErr)
	if procErr != nil {
		log.Printf("stripe webhook: order materialization failed for invoice %s: %v", invoice.ID, procErr)
		return
	}

	log.Printf("stripe webhook: created order %s from invoice %s (%d items, %d inventory updates, %d failed)",
		result.Order.OrderNumber, invoice.ID, len(result.Order.Items), result.Attempted()-result.Failed(), result.Failed())
}
