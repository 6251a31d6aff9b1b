package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	Logger         zerolog.Logger
	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(opts.Logger))
	r.Use(Recoverer)
	r.Use(Timeout(timeout))
	r.Use(CORS(opts.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Message: "Route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Message: "Method not allowed"})
	})

	r.Get("/healthz", handler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/purchase", func(r chi.Router) {
			r.Get("/list", handler.ListPurchaseLists)
			r.Post("/create", handler.CreatePurchaseList)
			r.Post("/import-items", handler.ImportPurchaseItems)
			r.Put("/update/{id}", handler.UpdatePurchaseList)
			r.Delete("/delete/{id}", handler.DeletePurchaseList)
			r.Get("/{id}", handler.GetPurchaseDetails)
			r.Get("/{id}/export", handler.ExportPurchaseDetails)
		})

		r.Route("/supplier", func(r chi.Router) {
			r.Get("/list", handler.ListSuppliers)
			r.Post("/create", handler.CreateSupplier)
			r.Put("/update/{id}", handler.UpdateSupplier)
			r.Delete("/delete/{id}", handler.DeleteSupplier)
		})

		r.Route("/medicine", func(r chi.Router) {
			r.Get("/list", handler.ListMedicines)
			r.Post("/create", handler.CreateMedicine)
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/list", handler.ListStock)
			r.Get("/low", handler.ListLowStock)
			r.Get("/expiring", handler.ListExpiringItems)
			r.Post("/dispense", handler.DispenseStock)
		})
	})

	return r
}
