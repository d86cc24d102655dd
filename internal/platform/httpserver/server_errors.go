package httpserver

import (
	"errors"
	"net/http"

	orderbrokererrors "orderbridge/contexts/order-broker/domain/errors"
	ticketmappingerrors "orderbridge/contexts/ticket-mapping/domain/errors"
)

type errorEnvelope struct {
	Error string `json:"error"`
}

func writeOrderBrokerErrorBody(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: message})
}

func writeOrderBrokerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orderbrokererrors.ErrValidation):
		writeOrderBrokerErrorBody(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orderbrokererrors.ErrUnknownType):
		writeOrderBrokerErrorBody(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orderbrokererrors.ErrDepthExceeded):
		writeOrderBrokerErrorBody(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orderbrokererrors.ErrNotFound):
		writeOrderBrokerErrorBody(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orderbrokererrors.ErrAlreadyDone):
		writeOrderBrokerErrorBody(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orderbrokererrors.ErrStorage):
		writeOrderBrokerErrorBody(w, http.StatusInternalServerError, err.Error())
	default:
		writeOrderBrokerErrorBody(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeTicketMappingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ticketmappingerrors.ErrValidation):
		writeOrderBrokerErrorBody(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ticketmappingerrors.ErrNotFound):
		writeOrderBrokerErrorBody(w, http.StatusNotFound, err.Error())
	default:
		writeOrderBrokerErrorBody(w, http.StatusInternalServerError, "internal server error")
	}
}
