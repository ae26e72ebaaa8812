package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/nutriware/shopcore/app/controllers"
	"github.com/nutriware/shopcore/internal/pkg/constants"
	"github.com/nutriware/shopcore/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// The webhook endpoint sits outside the rate limiter: the provider's own
	// retry policy governs redelivery and must not be throttled away.
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)

	api := app.Group(constants.APIRoute, limiter.New())

	api.Get("/products/:slug", controllers.HandleGetProduct)
	api.Get("/orders", controllers.HandleListOrders)
	api.Get("/orders/:number", controllers.HandleGetOrder)
	api.Post("/subscriptions", controllers.HandleCreateSubscription)
	api.Post("/addresses/validate", controllers.HandleValidateAddress)

	admin := api.Group(constants.AdminRoute, middleware.AdminAuthMiddleware())
	admin.Get("/orders", controllers.HandleAdminListOrders)
	admin.Put("/products/:id", controllers.HandleAdminUpdateProduct)
	admin.Post("/products/:id/allergen-warning", controllers.HandleAdminAllergenWarning)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
