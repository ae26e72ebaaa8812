package models

import (
	"time"

	"gorm.io/gorm"
)

// Dosage describes recommended intake for a supplement product.
type Dosage struct {
	Amount       float64 `json:"amount,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
}

// NutritionalFacts holds the structured label data shown on product pages.
type NutritionalFacts struct {
	ImageURL string  `json:"image_url,omitempty"`
	Protein  float64 `json:"protein,omitempty"`
	Carbs    float64 `json:"carbs,omitempty"`
	Fat      float64 `json:"fat,omitempty"`
	Calories float64 `json:"calories,omitempty"`
}

// AllergenAudit records who removed the allergen warning and why.
type AllergenAudit struct {
	RemovedBy string     `json:"removed_by,omitempty"`
	RemovedAt *time.Time `json:"removed_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// ProductImage is one catalog image with display metadata.
type ProductImage struct {
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	HighRes   bool   `json:"highres,omitempty"`
	SortOrder int    `json:"sort_order,omitempty"`
}

// Product is a catalog entity owned by the catalog subsystem. The webhook flow
// only ever performs conditional inventory decrements on its variants.
type Product struct {
	ID                     uint             `gorm:"primaryKey" json:"id"`
	Title                  string           `gorm:"type:varchar(255);not null" json:"title" validate:"required,max=255"`
	Slug                   string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug" validate:"required,max=255"`
	Price                  int64            `gorm:"type:bigint;not null;default:0" json:"price"` // minor currency units
	Variants               []ProductVariant `gorm:"foreignKey:ProductID" json:"variants"`
	Allergens              []string         `gorm:"serializer:json" json:"allergens"`
	Certifications         []string         `gorm:"serializer:json" json:"certifications"`
	Dosage                 Dosage           `gorm:"serializer:json" json:"dosage"`
	IngredientList         string           `gorm:"type:text" json:"ingredient_list"`
	NutritionalFacts       NutritionalFacts `gorm:"serializer:json" json:"nutritional_facts"`
	ComplianceText         string           `gorm:"type:text" json:"compliance_text"`
	AllergenWarningRemoved bool             `gorm:"default:false" json:"allergen_warning_removed"`
	AllergenWarningAudit   AllergenAudit    `gorm:"serializer:json" json:"allergen_warning_audit"`
	Images                 []ProductImage   `gorm:"serializer:json" json:"images"`
	CreatedAt              time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// ProductVariant is a purchasable option of a product (flavor, size). The SKU
// is globally unique and is the key the inventory reconciler decrements by.
type ProductVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	SKU       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku" validate:"required,max=100"`
	Label     string    `gorm:"type:varchar(150)" json:"label"`
	Price     int64     `gorm:"type:bigint;not null;default:0" json:"price"` // minor currency units
	Inventory int       `gorm:"type:int;not null;default:0" json:"inventory"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ProductVariant) TableName() string {
	return "product_variants"
}

// FindProductBySlug loads a product with its variants by catalog slug.
func FindProductBySlug(db *gorm.DB, slug string) (*Product, error) {
	var product Product
	result := db.Preload("Variants").Where("slug = ?", slug).First(&product)
	return &product, result.Error
}

// FindProductByID loads a product with its variants by primary key.
func FindProductByID(db *gorm.DB, id uint) (*Product, error) {
	var product Product
	result := db.Preload("Variants").First(&product, id)
	return &product, result.Error
}

// FindVariantBySKU returns the variant carrying the given SKU.
func FindVariantBySKU(db *gorm.DB, sku string) (*ProductVariant, error) {
	var variant ProductVariant
	result := db.Where("sku = ?", sku).First(&variant)
	return &variant, result.Error
}
