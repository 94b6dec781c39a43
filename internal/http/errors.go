package http

import (
	"errors"
	"net/http"

	"gastos/internal/api"
	"gastos/internal/auth"
	"gastos/internal/core"
	"gastos/internal/log"
	"gastos/internal/view"
)

const (
	msgBusy        = "Ya hay una operación en curso"
	msgUnreachable = "No se pudo conectar con el servidor"
	msgUnexpected  = "Ocurrió un error inesperado"
)

// errorStatus maps the error taxonomy onto response codes.
func errorStatus(err error) int {
	var ve *core.ValidationError
	var ae *auth.Error
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, view.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &ae):
		return http.StatusBadRequest
	case api.IsTransport(err):
		return http.StatusBadGateway
	}
	if _, ok := api.IsRemote(err); ok {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown inline for err. Server and provider
// messages are shown verbatim.
func userMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *core.ValidationError
	var ae *auth.Error
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, view.ErrBusy):
		return msgBusy
	case errors.As(err, &ae):
		return ae.Message
	case api.IsTransport(err):
		return msgUnreachable
	}
	if re, ok := api.IsRemote(err); ok {
		return re.Message
	}
	return msgUnexpected
}

// errorField names the input a validation error belongs to.
func errorField(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

func errorType(err error) string {
	var ae *auth.Error
	switch {
	case errors.Is(err, core.ErrNotReady):
		return log.ErrorTypeNotReady
	case errors.As(err, &ae):
		return log.ErrorTypeAuth
	}
	switch errorStatus(err) {
	case http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	case http.StatusBadGateway:
		return log.ErrorTypeNetwork
	case http.StatusBadRequest:
		return log.ErrorTypeRemote
	}
	return log.ErrorTypeInternal
}
