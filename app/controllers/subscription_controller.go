package controllers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nutriware/shopcore/internal/pkg/payments"
)

// CreateSubscriptionRequest is the frontend checkout payload.
type CreateSubscriptionRequest struct {
	Email           string `json:"email" validate:"required,email"`
	PriceID         string `json:"price_id" validate:"required"`
	PaymentMethodID string `json:"payment_method_id"`
}

// HandleCreateSubscription creates a provider subscription for a customer,
// creating the customer and attaching the payment method as needed.
func HandleCreateSubscription(c *fiber.Ctx) error {
	var req CreateSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing fields"})
	}

	client := payments.NewStripeClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	customer, err := client.GetOrCreateCustomer(ctx, req.Email)
	if err != nil {
		log.Printf("subscriptions: customer resolution failed for %s: %v", req.Email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Subscription creation failed"})
	}

	if req.PaymentMethodID != "" {
		if err := client.AttachPaymentMethod(ctx, req.PaymentMethodID, customer.ID); err != nil {
			log.Printf("subscriptions: attaching payment method failed for customer %s: %v", customer.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Subscription creation failed"})
		}
	}

	subscription, err := client.CreateSubscription(ctx, customer.ID, req.PriceID)
	if err != nil {
		log.Printf("subscriptions: creation failed for customer %s: %v", customer.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Subscription creation failed"})
	}

	return c.JSON(fiber.Map{
		"subscription_id": subscription.ID,
		"client_secret":   subscription.ClientSecret(),
		"status":          subscription.Status,
	})
}
