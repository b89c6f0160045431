// Package check реализует HTTP-обработчик проверки доступа пользователя.
package check

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/quiz-access-bot/internal/http/response"
	"github.com/magabrotheeeer/quiz-access-bot/internal/lib/sl"
	"github.com/magabrotheeeer/quiz-access-bot/internal/services/access"
)

// Service описывает проверку доступа.
type Service interface {
	CheckAccess(ctx context.Context, userID int64) (access.Decision, error)
}

// Result данные ответа: решение о доступе для пользователя.
type Result struct {
	UserID   int64           `json:"user_id" example:"100500"`
	Decision access.Decision `json:"decision"`
}

// Handler обрабатывает GET /api/v1/access/{userID}.
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

// ServeHTTP сообщает, есть ли у пользователя действующий доступ.
//
// @Summary      Проверка доступа
// @Tags         access
// @Produce      json
// @Param        userID  path      int  true  "ID пользователя"
// @Success      200     {object}  response.Response{data=check.Result}
// @Failure      400     {object}  response.ErrorResponse
// @Failure      429     {object}  response.ErrorResponse
// @Failure      500     {object}  response.ErrorResponse
// @Router       /access/{userID} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.check"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		log.Error("failed to decode user id from url", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "failed to decode user id from url")
		return
	}

	d, err := h.service.CheckAccess(r.Context(), userID)
	if err != nil {
		log.Error("failed to check access", sl.UserID(userID), sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not check access")
		return
	}

	response.OK(w, r, Result{UserID: userID, Decision: d})
}
