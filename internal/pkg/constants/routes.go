package constants

// Static route constants
const (
	StripeWebhookRoute = "/api/webhooks/stripe"
	APIRoute           = "/api"
	AdminRoute         = "/admin"
)
