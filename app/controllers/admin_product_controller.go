package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nutriware/shopcore/app/models"
	"github.com/nutriware/shopcore/internal/pkg/catalog"
	"github.com/nutriware/shopcore/internal/pkg/database"
	"github.com/nutriware/shopcore/internal/pkg/middleware"
)

// AdminProductUpdateRequest carries the admin-editable product fields. Pointer
// fields distinguish "not sent" from "set to zero value" so only submitted
// fields are written.
type AdminProductUpdateRequest struct {
	Title            *string                  `json:"title" validate:"omitempty,max=255"`
	Slug             *string                  `json:"slug" validate:"omitempty,max=255"`
	Price            *int64                   `json:"price" validate:"omitempty,min=0"`
	Variants         []models.ProductVariant  `json:"variants" validate:"omitempty,dive"`
	Allergens        []string                 `json:"allergens"`
	Certifications   []string                 `json:"certifications"`
	Dosage           *models.Dosage           `json:"dosage"`
	IngredientList   *string                  `json:"ingredient_list"`
	NutritionalFacts *models.NutritionalFacts `json:"nutritional_facts"`
	ComplianceText   *string                  `json:"compliance_text"`
	Images           []models.ProductImage    `json:"images"`
}

// HandleAdminUpdateProduct updates the allowed product fields only. Unknown
// or protected fields in the request body are ignored.
func HandleAdminUpdateProduct(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product id"})
	}

	var req AdminProductUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validator.New().Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	db := database.GetDB()
	product, err := models.FindProductByID(db, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		log.Printf("admin products: lookup failed for id %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Update failed"})
	}

	oldSlug := product.Slug
	applyProductUpdate(product, &req)

	// A submitted variants list replaces the stored one wholesale, so variants
	// omitted from the request are deleted rather than left live with stale
	// SKUs. The delete and the save share one transaction.
	err = db.Transaction(func(tx *gorm.DB) error {
		if req.Variants != nil {
			if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductVariant{}).Error; err != nil {
				return err
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(product).Error
	})
	if err != nil {
		log.Printf("admin products: update failed for id %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Update failed"})
	}

	catalog.InvalidateProductCache(oldSlug)
	if product.Slug != oldSlug {
		catalog.InvalidateProductCache(product.Slug)
	}
	return c.JSON(fiber.Map{"ok": true, "product": product})
}

func applyProductUpdate(product *models.Product, req *AdminProductUpdateRequest) {
	if req.Title != nil {
		product.Title = *req.Title
	}
	if req.Slug != nil {
		product.Slug = *req.Slug
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Variants != nil {
		for i := range req.Variants {
			req.Variants[i].ProductID = product.ID
		}
		product.Variants = req.Variants
	}
	if req.Allergens != nil {
		product.Allergens = req.Allergens
	}
	if req.Certifications != nil {
		product.Certifications = req.Certifications
	}
	if req.Dosage != nil {
		product.Dosage = *req.Dosage
	}
	if req.IngredientList != nil {
		product.IngredientList = *req.IngredientList
	}
	if req.NutritionalFacts != nil {
		product.NutritionalFacts = *req.NutritionalFacts
	}
	if req.ComplianceText != nil {
		product.ComplianceText = *req.ComplianceText
	}
	if req.Images != nil {
		product.Images = req.Images
	}
}

// HandleAdminAllergenWarning removes the allergen warning from a product and
// records who did it, when, and why.
func HandleAdminAllergenWarning(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product id"})
	}

	var req struct {
		Reason string `json:"reason" validate:"max=1000"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	adminUser, _ := c.Locals(middleware.LocalsAdminEmail).(string)
	if adminUser == "" {
		adminUser = "system"
	}

	db := database.GetDB()
	product, err := models.FindProductByID(db, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
		}
		log.Printf("admin products: lookup failed for id %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update allergen warning"})
	}

	now := time.Now()
	product.AllergenWarningRemoved = true
	product.AllergenWarningAudit = models.AllergenAudit{
		RemovedBy: adminUser,
		RemovedAt: &now,
		Reason:    req.Reason,
	}

	if err := db.Save(product).Error; err != nil {
		log.Printf("admin products: allergen warning update failed for id %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not update allergen warning"})
	}

	catalog.InvalidateProductCache(product.Slug)
	return c.JSON(fiber.Map{"ok": true, "product": product})
}
