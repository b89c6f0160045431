// Package response формирует JSON-ответы API чтения в едином конверте.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response конверт успешного ответа. Data зависит от маршрута.
type Response struct {
	Status string `json:"status" example:"OK"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse конверт ответа с ошибкой, он же тип @Failure в аннотациях.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"set not found"`
}

// StatusOKWithData оборачивает данные в успешный конверт.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error оборачивает сообщение в конверт ошибки.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// OK пишет 200 с данными.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.JSON(w, r, StatusOKWithData(data))
}

// Fail пишет ошибку с указанным HTTP-статусом.
func Fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// Invalid пишет 400 с перечнем нарушений валидации.
func Invalid(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ValidationError(errs))
}

// ValidationError собирает нарушения валидации в одно сообщение через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, describe(err))
	}
	return Error(strings.Join(msgs, ", "))
}

func describe(err validator.FieldError) string {
	switch err.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", err.Field())
	case "numeric":
		return fmt.Sprintf("field %s can contain only numbers", err.Field())
	case "gt":
		return fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param())
	}
	return fmt.Sprintf("field %s is not a valid", err.Field())
}
