package payments

import (
	"time"

	"github.com/nutriware/shopcore/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the payments service.
type Repository interface {
	CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	CreateOrder(order *models.Order) error
	DecrementVariantInventory(sku string, quantity int) (int64, error)
	ProductSlugForSKU(sku string) (string, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.PaymentWebhookEvent) (bool, *models.PaymentWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) CreateOrder(order *models.Order) error {
	return r.db.Create(order).Error
}

// DecrementVariantInventory atomically decrements the inventory of the first
// variant matching the SKU, floored at zero inside the UPDATE itself so
// concurrent deliveries cannot race past zero. Returns rows affected.
func (r *gormRepository) DecrementVariantInventory(sku string, quantity int) (int64, error) {
	tx := r.db.Exec(
		"UPDATE product_variants SET inventory = GREATEST(inventory - ?, 0), updated_at = ? WHERE sku = ? LIMIT 1",
		quantity, time.Now(), sku,
	)
	return tx.RowsAffected, tx.Error
}

func (r *gormRepository) ProductSlugForSKU(sku string) (string, error) {
	var slug string
	err := r.db.Model(&models.Product{}).
		Joins("JOIN product_variants ON product_variants.product_id = products.id").
		Where("product_variants.sku = ?", sku).
		Limit(1).
		Pluck("products.slug", &slug).Error
	return slug, err
}
