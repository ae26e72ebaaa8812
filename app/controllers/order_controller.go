package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nutriware/shopcore/app/models"
	"github.com/nutriware/shopcore/internal/pkg/database"
)

const orderListLimit = 50

// HandleListOrders returns recent orders for a customer email. Consumed by
// the storefront's account dashboard.
func HandleListOrders(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email query parameter is required"})
	}

	orders, err := models.FindOrdersByCustomerEmail(database.GetDB(), email, orderListLimit)
	if err != nil {
		log.Printf("orders: list failed for %s: %v", email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load orders"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// HandleGetOrder returns a single order by its public order number.
func HandleGetOrder(c *fiber.Ctx) error {
	number := strings.TrimSpace(c.Params("number"))
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order number is required"})
	}

	order, err := models.FindOrderByNumber(database.GetDB(), number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		log.Printf("orders: lookup failed for %s: %v", number, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load order"})
	}
	return c.JSON(fiber.Map{"order": order})
}

// HandleAdminListOrders returns the latest orders across all customers for
// the admin dashboard.
func HandleAdminListOrders(c *fiber.Ctx) error {
	orders, err := models.FindRecentOrders(database.GetDB(), 100)
	if err != nil {
		log.Printf("orders: admin list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load orders"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}
