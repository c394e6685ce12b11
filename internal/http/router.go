package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/billfold/internal/http/category"
	"github.com/MrJamesThe3rd/billfold/internal/http/importing"
	"github.com/MrJamesThe3rd/billfold/internal/http/middleware"
	"github.com/MrJamesThe3rd/billfold/internal/http/transaction"
)

func New(
	jwtSecret string,
	transactionsV1 *transaction.Handler,
	categoriesV1 *category.Handler,
	importV1 *importing.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))

		r.Route("/transactions", func(r chi.Router) {
			r.Use(chimiddleware.AllowContentType("application/json"))
			transactionsV1.Routes(r)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(chimiddleware.AllowContentType("application/json"))
			categoriesV1.Routes(r)
		})

		r.Route("/import", importV1.Routes)
	})

	return router
}
