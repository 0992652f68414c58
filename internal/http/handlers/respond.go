package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/roadwatch/internal/apperr"
	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Msg    string `json:"msg"`
	Data   any    `json:"data"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func RespondSuccess(ctx *gin.Context, key, msg string, data any) {
	if data == nil {
		data = gin.H{}
	}

	ctx.JSON(http.StatusOK, Envelope{Status: statusSuccess, Key: key, Msg: msg, Data: data})
}

// RespondError writes the envelope for err. Untyped errors are reported as a
// storage failure; the cause is never sent to the client.
func RespondError(ctx *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(apperr.Wrap(err), &e) {
		e = apperr.Storage(err)
	}

	var data any = gin.H{}
	if len(e.Data) > 0 {
		data = e.Data
	}

	ctx.JSON(statusFor(e.Kind), Envelope{
		Status: statusError,
		Key:    e.Kind.Key(),
		Msg:    e.Message,
		Data:   data,
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	if details == nil {
		details = gin.H{}
	}

	ctx.JSON(http.StatusBadRequest, Envelope{
		Status: statusError,
		Key:    "INVALID_DATA",
		Msg:    message,
		Data:   details,
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindIncompleteInput, apperr.KindPasswordReuse:
		return http.StatusBadRequest
	case apperr.KindIncorrectCredentials:
		return http.StatusUnauthorized
	case apperr.KindAccountDeactivated, apperr.KindAccessRights:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respond finishes an account operation and counts its outcome.
func respond(ctx *gin.Context, prom *observability.Prom, op, key, msg string, data any, err error) {
	if err != nil {
		prom.ObserveAuth(op, keyOf(err))
		RespondError(ctx, err)
		return
	}

	prom.ObserveAuth(op, key)
	RespondSuccess(ctx, key, msg, data)
}

func keyOf(err error) string {
	return apperr.KindOf(apperr.Wrap(err)).Key()
}
