package address

import (
	"bytes"
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

const defaultValidationAPIBaseURL = "https://addressvalidation.googleapis.com"

// Validator is the slice of the client handlers depend on.
type Validator interface {
	Validate(ctx context.Context, address string) (*ValidationResult, error)
}

// GoogleClient talks to the Google Address Validation API.
// See https://developers.google.com/maps/documentation/address-validation
type GoogleClient struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// ValidationResult carries the normalized address and deliverability verdict.
type ValidationResult struct {
	Verdict struct {
		AddressComplete          bool   `json:"addressComplete"`
		ValidationGranularity    string `json:"validationGranularity"`
		HasUnconfirmedComponents bool   `json:"hasUnconfirmedComponents"`
	} `json:"verdict"`
	Address struct {
		FormattedAddress string `json:"formattedAddress"`
	} `json:"address"`
}

func NewGoogleClientFromEnv() *GoogleClient {
	return &GoogleClient{
		APIKey:     strings.TrimSpace(env.GetEnv("GOOGLE_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("GOOGLE_API_BASE_URL", defaultValidationAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Validate submits a free-form address for normalization and deliverability
// checking.
func (c *GoogleClient) Validate(ctx context.Context, address string) (*ValidationResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("address is required")
	}
	if c.APIKey == "" {
		return nil, errors.New("address validation api key is not configured")
	}

	reqBody, err := json.Marshal(map[string]interface{}{
		"address":        map[string]interface{}{"addressLines": []string{address}},
		"enableUspsCass": false,
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.APIBaseURL + "/v1:validateAddress?key=" + url.QueryEscape(c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("address validation api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Result ValidationResult `json:"result"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode address validation response: %w", err)
	}
	return &out.Result, nil
}
