// Package cards реализует HTTP-обработчик карточек набора.
//
// Handler извлекает ID набора из URL, проверяет, что набор существует,
// и возвращает его карточки в порядке добавления.
package cards

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/quiz-access-bot/internal/http/response"
	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/models"
)

// Service описывает чтение набора и его карточек.
type Service interface {
	GetSet(ctx context.Context, id int64) (*models.ContentSet, error)
	ListCards(ctx context.Context, setID int64) ([]models.Card, error)
}

// Result данные ответа: набор и его карточки.
type Result struct {
	Set   *models.ContentSet `json:"set"`
	Count int                `json:"count" example:"1"`
	Cards []models.Card      `json:"cards"`
}

type params struct {
	SetID int64 `validate:"gt=0"`
}

// Handler обрабатывает GET /api/v1/sets/{id}/cards.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP возвращает карточки набора в порядке добавления.
//
// @Summary      Карточки набора
// @Tags         sets
// @Produce      json
// @Param        id   path      int  true  "ID набора"
// @Success      200  {object}  response.Response{data=cards.Result}
// @Failure      400  {object}  response.ErrorResponse
// @Failure      404  {object}  response.ErrorResponse
// @Failure      429  {object}  response.ErrorResponse
// @Failure      500  {object}  response.ErrorResponse
// @Router       /sets/{id}/cards [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.sets.cards"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "failed to decode id from url")
		return
	}
	if err := h.validate.Struct(params{SetID: id}); err != nil {
		var verrs validator.ValidationErrors
		errors.As(err, &verrs)
		response.Invalid(w, r, verrs)
		return
	}

	set, err := h.service.GetSet(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		response.Fail(w, r, http.StatusNotFound, "set not found")
		return
	}
	if err != nil {
		log.Error("failed to read set", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not read set")
		return
	}

	cards, err := h.service.ListCards(r.Context(), id)
	if err != nil {
		log.Error("failed to list cards", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not list cards")
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}

	response.OK(w, r, Result{Set: set, Count: len(cards), Cards: cards})
}
