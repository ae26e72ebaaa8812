package catalog

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nutriware/shopcore/app/models"
	"github.com/nutriware/shopcore/internal/pkg/cache"
	"gorm.io/gorm"
)

const productCacheTTL = 10 * time.Minute

func productCacheKey(slug string) string {
	return "product:slug:" + slug
}

// GetProductBySlug serves a product from the cache when possible, falling
// back to the database and repopulating the cache. Cache failures are logged
// and never surface to the caller.
func GetProductBySlug(db *gorm.DB, slug string) (*models.Product, error) {
	if raw, err := cache.Get(productCacheKey(slug)); err == nil && raw != "" {
		var product models.Product
		if err := json.Unmarshal([]byte(raw), &product); err == nil {
			return &product, nil
		}
		// Corrupt entry, drop it and fall through to the DB.
		_ = cache.Delete(productCacheKey(slug))
	}

	product, err := models.FindProductBySlug(db, slug)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(product); err == nil {
		if err := cache.Set(productCacheKey(slug), string(raw), productCacheTTL); err != nil {
			log.Printf("catalog: could not cache product %s: %v", slug, err)
		}
	}
	return product, nil
}

// InvalidateProductCache drops the cached entry for a product slug. Called
// after admin updates and inventory decrements.
func InvalidateProductCache(slug string) {
	if slug == "" {
		return
	}
	if err := cache.Delete(productCacheKey(slug)); err != nil {
		log.Printf("catalog: could not invalidate product cache for %s: %v", slug, err)
	}
}
