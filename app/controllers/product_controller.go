package controllers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nutriware/shopcore/internal/pkg/catalog"
	"github.com/nutriware/shopcore/internal/pkg/database"
)

// HandleGetProduct serves a catalog product by slug, cache-first.
func HandleGetProduct(c *fiber.Ctx) error {
	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "product slug is required"})
	}

	product, err := catalog.GetProductBySlug(database.GetDB(), slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		log.Printf("catalog: product lookup failed for %s: %v", slug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not load product"})
	}
	return c.JSON(fiber.Map{"product": product})
}
