// Package list реализует HTTP-обработчик списка тарифов.
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

// Service описывает чтение тарифов.
type Service interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
}

// PlansResult данные ответа со списком тарифов.
type PlansResult struct {
	Count int           `json:"count" example:"2"`
	Plans []models.Plan `json:"plans"`
}

// Handler обрабатывает GET /api/v1/plans.
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

// ServeHTTP возвращает тарифы по возрастанию цены.
//
// @Summary      Список тарифов
// @Tags         plans
// @Produce      json
// @Success      200  {object}  response.Response{data=list.PlansResult}
// @Failure      429  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Router       /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plans.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}

	log.Debug("list plans", slog.Int("count", len(plans)))
	response.OK(w, r, PlansResult{Count: len(plans), Plans: plans})
}
