package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/nutriware/shopcore/app/models"
	"github.com/nutriware/shopcore/internal/pkg/database"
)

func newWebhookTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/webhooks/stripe", HandleStripeWebhook)
	return app
}

// openTestDB installs an in-memory database as the shared handle for the
// duration of one test. The DSN is derived from the test name so tests never
// share state.
func openTestDB(t *testing.T, migrate ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("migrate test database: %v", err)
		}
	}
	prev := database.GetDB()
	database.SetDB(db)
	t.Cleanup(func() { database.SetDB(prev) })
	return db
}

func signBody(body []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/webhooks/stripe", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(respBody)
}

// Signature failures must fail closed before any persistence is attempted;
// these tests run without a database on purpose.
func TestHandleStripeWebhook_MissingSignature(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	app := newWebhookTestApp()

	status, body := postWebhook(t, app, []byte(`{}`), "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "Webhook Error")
}

func TestHandleStripeWebhook_TamperedPayload(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	app := newWebhookTestApp()

	signed := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)
	tampered := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded","data":{}}`)

	status, _ := postWebhook(t, app, tampered, signBody(signed, "whsec_test"))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleStripeWebhook_MissingSecret(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	app := newWebhookTestApp()

	body := []byte(`{"id":"evt_1","type":"invoice.payment_succeeded"}`)
	status, _ := postWebhook(t, app, body, signBody(body, "whsec_other"))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleStripeWebhook_MalformedEventPayload(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	app := newWebhookTestApp()

	body := []byte(`not json at all`)
	status, _ := postWebhook(t, app, body, signBody(body, "whsec_test"))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

// A validly signed envelope with no recognizable type is still an event the
// provider delivered in good faith: it gets recorded and acknowledged, never
// rejected.
func TestHandleStripeWebhook_SignedUntypedEventAcks(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	db := openTestDB(t, &models.PaymentWebhookEvent{})
	app := newWebhookTestApp()

	payload := []byte(`{"id":"evt_untyped"}`)
	status, body := postWebhook(t, app, payload, signBody(payload, "whsec_test"))
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"received":true}`, body)

	var stored models.PaymentWebhookEvent
	assert.NoError(t, db.Where("provider_event_id = ?", "evt_untyped").First(&stored).Error)
	assert.Equal(t, "", stored.EventType)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestHandleStripeWebhook_PaidInvoiceCreatesOrder(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	db := openTestDB(t, &models.PaymentWebhookEvent{}, &models.Order{}, &models.OrderItem{})
	app := newWebhookTestApp()

	payload := []byte(`{
		"id": "evt_paid_1",
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"id": "in_1",
			"customer_email": "jo@example.com",
			"amount_paid": 2000,
			"lines": {"data": [{"description": "Whey Protein 1kg", "amount": 2000}]}
		}}
	}`)
	signature := signBody(payload, "whsec_test")

	status, body := postWebhook(t, app, payload, signature)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"received":true}`, body)

	var order models.Order
	assert.NoError(t, db.Preload("Items").Where("provider_invoice_id = ?", "in_1").First(&order).Error)
	assert.Equal(t, int64(2000), order.TotalAmount)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, "jo@example.com", order.CustomerEmail)
	assert.Len(t, order.Items, 1)

	// Redelivery of the same event must not materialize a second order.
	status, body = postWebhook(t, app, payload, signature)
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, body)

	var count int64
	assert.NoError(t, db.Model(&models.Order{}).Where("provider_invoice_id = ?", "in_1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// The event row is audit, not a gate: when it cannot be written the paid
// invoice must still become an order.
func TestHandleStripeWebhook_EventRecordFailureStillCreatesOrder(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	// No payment_webhook_events table, so recording the event fails.
	db := openTestDB(t, &models.Order{}, &models.OrderItem{})
	app := newWebhookTestApp()

	payload := []byte(`{
		"id": "evt_norecord",
		"type": "invoice.payment_succeeded",
		"data": {"object": {"id": "in_2", "customer_email": "sam@example.com", "amount_paid": 500, "lines": {"data": []}}}
	}`)
	status, body := postWebhook(t, app, payload, signBody(payload, "whsec_test"))
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"received":true}`, body)

	var count int64
	assert.NoError(t, db.Model(&models.Order{}).Where("provider_invoice_id = ?", "in_2").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
