package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/nutriware/shopcore/internal/pkg/address"
)

type fakeAddressValidator struct {
	result *address.ValidationResult
	err    error
}

func (f *fakeAddressValidator) Validate(_ context.Context, _ string) (*address.ValidationResult, error) {
	return f.result, f.err
}

func newAddressTestApp(t *testing.T, fake *fakeAddressValidator) *fiber.App {
	t.Helper()
	prev := newAddressValidator
	newAddressValidator = func() address.Validator { return fake }
	t.Cleanup(func() { newAddressValidator = prev })

	app := fiber.New()
	app.Post("/api/addresses/validate", HandleValidateAddress)
	return app
}

func postAddress(t *testing.T, app *fiber.App, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/addresses/validate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	assert.NoError(t, err)
	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(respBody)
}

func TestHandleValidateAddress_MissingAddress(t *testing.T) {
	app := newAddressTestApp(t, &fakeAddressValidator{})

	status, body := postAddress(t, app, `{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "address required")
}

func TestHandleValidateAddress_ReturnsResult(t *testing.T) {
	result := &address.ValidationResult{}
	result.Verdict.AddressComplete = true
	result.Address.FormattedAddress = "1 Main St, Springfield, IL 62701, USA"
	app := newAddressTestApp(t, &fakeAddressValidator{result: result})

	status, body := postAddress(t, app, `{"address":"1 main st springfield"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"ok":true`)
	assert.Contains(t, body, "1 Main St, Springfield, IL 62701, USA")
}

func TestHandleValidateAddress_UpstreamFailure(t *testing.T) {
	app := newAddressTestApp(t, &fakeAddressValidator{err: errors.New("api unreachable")})

	status, body := postAddress(t, app, `{"address":"1 main st"}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Contains(t, body, "Address validation failed")
}
