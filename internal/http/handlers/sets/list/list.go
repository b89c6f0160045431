// Package list реализует HTTP-обработчик списка наборов карточек.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/quiz-access-bot/internal/http/response"
	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// Service описывает чтение наборов.
type Service interface {
	ListSets(ctx context.Context) ([]models.ContentSet, error)
}

// SetsResult данные ответа со списком наборов.
type SetsResult struct {
	Count int                 `json:"count" example:"1"`
	Sets  []models.ContentSet `json:"sets"`
}

// Handler обрабатывает GET /api/v1/sets.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP возвращает наборы, новые первыми.
//
// @Summary      Список наборов карточек
// @Tags         sets
// @Produce      json
// @Success      200  {object}  response.Response{data=list.SetsResult}
// @Failure      429  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Router       /sets [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sets.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sets, err := h.service.ListSets(r.Context())
	if err != nil {
		log.Error("failed to list sets", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to list sets")
		return
	}
	if sets == nil {
		sets = []models.ContentSet{}
	}

	response.OK(w, r, SetsResult{Count: len(sets), Sets: sets})
}
