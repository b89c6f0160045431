// Package health отвечает на проверку живости сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/quiz-access-bot/internal/http/response"
	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
)

// Checker проверяет готовность хранилища. Может быть nil.
type Checker interface {
	CheckDatabaseReady(ctx context.Context) error
}

// Status данные ответа проверки живости.
type Status struct {
	Status string `json:"status" example:"ok"`
}

// Handler обрабатывает GET /health.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

// New создаёт Handler.
func New(log *slog.Logger, checker Checker) *Handler {
	return &Handler{
		log:     log,
		checker: checker,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	if h.checker != nil {
		if err := h.checker.CheckDatabaseReady(r.Context()); err != nil {
			h.log.Error("storage is not ready", slog.String("op", op), sl.Err(err))
			response.Fail(w, r, http.StatusServiceUnavailable, "storage is not ready")
			return
		}
	}
	response.OK(w, r, Status{Status: "ok"})
}
