package models

import (
	"time"

	"gorm.io/gorm"
)

// Order status constants. Orders created by the payment webhook start out as
// "paid"; "created" is used by flows that persist an order before the charge
// clears (e.g. manual admin entry).
const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
)

// Order source constants.
const (
	OrderSourceStripe = "stripe"
)

// Order is the persisted aggregate materialized from a provider invoice. It is
// written exactly once per processed payment event and never mutated by the
// webhook flow afterwards; status transitions happen in the admin dashboard.
type Order struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	OrderNumber       string      `gorm:"type:varchar(64);not null;index" json:"order_number"`
	CustomerEmail     string      `gorm:"type:varchar(200);default:''" json:"customer_email"`
	Items             []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount       int64       `gorm:"type:bigint;not null;default:0" json:"total_amount"` // minor currency units
	Currency          string      `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	Status            string      `gorm:"type:varchar(32);not null;default:'created';index" json:"status"`
	Source            string      `gorm:"type:varchar(20);not null;default:''" json:"source"`
	ProviderInvoiceID string      `gorm:"type:varchar(191);index" json:"provider_invoice_id"`
	CreatedAt         time.Time   `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is one invoice line mapped into the order. Items are exclusively
// owned by their order and have no lifecycle of their own.
type OrderItem struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	OrderID    uint              `gorm:"index;not null" json:"order_id"`
	ProductID  *uint             `gorm:"index;default:null" json:"product_id,omitempty"`
	VariantSKU string            `gorm:"type:varchar(100);default:'';index" json:"variant_sku"`
	Name       string            `gorm:"type:varchar(255);not null" json:"name"`
	UnitPrice  int64             `gorm:"type:bigint;not null;default:0" json:"unit_price"` // minor currency units
	Quantity   int               `gorm:"type:int;not null;default:1" json:"quantity"`
	Metadata   map[string]string `gorm:"serializer:json" json:"metadata"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// FindOrdersByCustomerEmail returns recent orders for a customer, newest first.
func FindOrdersByCustomerEmail(db *gorm.DB, email string, limit int) ([]Order, error) {
	var orders []Order
	result := db.Preload("Items").
		Where("customer_email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders)
	return orders, result.Error
}

// FindOrderByNumber looks up a single order by its public order number.
func FindOrderByNumber(db *gorm.DB, orderNumber string) (*Order, error) {
	var order Order
	result := db.Preload("Items").Where("order_number = ?", orderNumber).First(&order)
	return &order, result.Error
}

// FindRecentOrders returns the latest orders across all customers.
func FindRecentOrders(db *gorm.DB, limit int) ([]Order, error) {
	var orders []Order
	result := db.Preload("Items").Order("created_at DESC").Limit(limit).Find(&orders)
	return orders, result.Error
}

// CountOrdersByInvoiceID reports how many orders reference a provider invoice.
func CountOrdersByInvoiceID(db *gorm.DB, invoiceID string) (int64, error) {
	var count int64
	err := db.Model(&Order{}).Where("provider_invoice_id = ?", invoiceID).Count(&count).Error
	return count, err
}
