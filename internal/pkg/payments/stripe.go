package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nutriware/shopcore/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// CustomerRetriever is the slice of the provider client the webhook service
// needs: resolving a customer record by ID when the invoice omits the email.
type CustomerRetriever interface {
	RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error)
}

// StripeClient talks to the payment provider's REST API. It is constructed
// explicitly and passed into handlers; there is no shared module-level client.
type StripeClient struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// Customer is the subset of the provider customer object we consume.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Subscription is the subset of the provider subscription object we consume.
type Subscription struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	LatestInvoice *struct {
		PaymentIntent *struct {
			ClientSecret string `json:"client_secret"`
		} `json:"payment_intent"`
	} `json:"latest_invoice"`
}

// ClientSecret returns the payment intent client secret when the provider
// expanded it onto the subscription, or "".
func (s *Subscription) ClientSecret() string {
	if s.LatestInvoice == nil || s.LatestInvoice.PaymentIntent == nil {
		return ""
	}
	return s.LatestInvoice.PaymentIntent.ClientSecret
}

func NewStripeClientFromEnv() *StripeClient {
	return &StripeClient{
		APIKey:     strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// RetrieveCustomer fetches a customer record by provider ID.
func (c *StripeClient) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, errors.New("customer id is required")
	}
	var out Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrCreateCustomer resolves a customer by email, creating one if none
// exists yet.
func (c *StripeClient) GetOrCreateCustomer(ctx context.Context, email string) (*Customer, error) {
	addr := strings.TrimSpace(email)
	if addr == "" {
		return nil, errors.New("email is required")
	}

	var list struct {
		Data []Customer `json:"data"`
	}
	q := url.Values{}
	q.Set("email", addr)
	q.Set("limit", "1")
	if err := c.do(ctx, http.MethodGet, "/customers?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	if len(list.Data) > 0 {
		return &list.Data[0], nil
	}

	form := url.Values{}
	form.Set("email", addr)
	var created Customer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// AttachPaymentMethod attaches a payment method to a customer and makes it the
// default for invoices.
func (c *StripeClient) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	pm := strings.TrimSpace(paymentMethodID)
	cust := strings.TrimSpace(customerID)
	if pm == "" || cust == "" {
		return errors.New("payment method id and customer id are required")
	}

	form := url.Values{}
	form.Set("customer", cust)
	if err := c.do(ctx, http.MethodPost, "/payment_methods/"+url.PathEscape(pm)+"/attach", form, nil); err != nil {
		return err
	}

	form = url.Values{}
	form.Set("invoice_settings[default_payment_method]", pm)
	return c.do(ctx, http.MethodPost, "/customers/"+url.PathEscape(cust), form, nil)
}

// CreateSubscription creates a subscription for the customer on the given
// price, expanding the payment intent so the caller can hand its client secret
// to the frontend.
func (c *StripeClient) CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error) {
	cust := strings.TrimSpace(customerID)
	price := strings.TrimSpace(priceID)
	if cust == "" || price == "" {
		return nil, errors.New("customer id and price id are required")
	}

	form := url.Values{}
	form.Set("customer", cust)
	form.Set("items[0][price]", price)
	form.Add("expand[]", "latest_invoice.payment_intent")
	form.Set("metadata[shop]", "nutrition-shop")

	var out Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *StripeClient) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("STRIPE_SECRET_KEY is not configured")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.APIBaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("stripe request %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(payload))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}
