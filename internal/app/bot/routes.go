package bot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/quiz-access-bot/docs"

	"github.com/magabrotheeeer/quiz-access-bot/internal/config"
	"github.com/magabrotheeeer/quiz-access-bot/internal/http/handlers/access/check"
	"github.com/magabrotheeeer/quiz-access-bot/internal/http/handlers/health"
	planslist "github.com/magabrotheeeer/quiz-access-bot/internal/http/handlers/plans/list"
	"github.com/magabrotheeeer/quiz-access-bot/internal/http/handlers/sets/cards"
	setslist "github.com/magabrotheeeer/quiz-access-bot/internal/http/handlers/sets/list"
	"github.com/magabrotheeeer/quiz-access-bot/internal/http/middlewarectx"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/access"
)

// RegisterRoutes регистрирует маршруты API чтения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg config.HTTPServer, store Store, gate *access.Gate, checker health.Checker) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, checker).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit, cfg.RateBurst))
		r.Get("/plans", planslist.New(logger, store).ServeHTTP)
		r.Get("/sets", setslist.New(logger, store).ServeHTTP)
		r.Get("/sets/{id}/cards", cards.New(logger, store).ServeHTTP)
		r.Get("/access/{userID}", check.New(logger, gate).ServeHTTP)
	})
}
