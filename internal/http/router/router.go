package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/rogerio-castellano/warehouse-ledger/docs"
	"github.com/rogerio-castellano/warehouse-ledger/internal/http/handlers"
	mw "github.com/rogerio-castellano/warehouse-ledger/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mw.RateLimitMiddleware)

	r.Post("/login", handlers.LoginHandler)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handlers.GetProductsHandler)
			r.Post("/", handlers.CreateProductHandler)
			r.Get("/{id}", handlers.GetProductByIDHandler)
			r.Get("/{id}/stock", handlers.GetProductStockHandler)
			r.Get("/{id}/events", handlers.GetProductEventsHandler)
			r.With(mw.RequireAdmin).Post("/{id}/archive", handlers.ArchiveProductHandler)
			r.With(mw.RequireAdmin).Post("/{id}/unarchive", handlers.UnarchiveProductHandler)
		})

		r.Get("/locations", handlers.GetLocationsHandler)
		r.With(mw.RequireAdmin).Post("/locations", handlers.CreateLocationHandler)
		r.Get("/locations/{code}/stock", handlers.GetLocationStockHandler)

		r.Get("/stock", handlers.GetStockHandler)
		r.Post("/moves", handlers.MoveHandler)
		r.Post("/adjustments", handlers.AdjustmentHandler)
		r.Post("/imports", handlers.ImportHandler)
		r.Post("/imports/csv", handlers.ImportCSVHandler)

		r.Get("/events", handlers.GetEventsHandler)
		r.Get("/events/export", handlers.ExportEventsHandler)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", handlers.OpenSessionHandler)
			r.Get("/{id}", handlers.GetSessionHandler)
			r.Put("/{id}/counts", handlers.RecordCountsHandler)
			r.Post("/{id}/commit", handlers.CommitSessionHandler)
			r.Post("/{id}/abort", handlers.AbortSessionHandler)
		})

		r.Get("/metrics/dashboard", handlers.GetDashboardMetricsHandler)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			r.Get("/notify/rules", handlers.GetRulesHandler)
			r.Put("/notify/rules", handlers.PutRuleHandler)
			r.Delete("/notify/rules/{id}", handlers.DeleteRuleHandler)
			r.Post("/admin/users", handlers.CreateUserHandler)
		})
	})

	return r
}
