package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nutriware/shopcore/internal/pkg/address"
)

// newAddressValidator builds the validation client; swapped in tests.
var newAddressValidator = func() address.Validator {
	return address.NewGoogleClientFromEnv()
}

// HandleValidateAddress normalizes a free-form shipping address and reports
// its deliverability, for checkout-time validation.
func HandleValidateAddress(c *fiber.Ctx) error {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Address) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "address required"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := newAddressValidator().Validate(ctx, req.Address)
	if err != nil {
		log.Printf("addresses: validation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Address validation failed"})
	}
	return c.JSON(fiber.Map{"ok": true, "result": result})
}
