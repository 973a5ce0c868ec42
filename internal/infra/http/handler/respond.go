package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ledgerkit/walletcore/internal/domain"
	"github.com/rs/zerolog/log"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps the error taxonomy onto HTTP status codes.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrWalletNotFound), errors.Is(err, domain.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrWalletAlreadyExists), errors.Is(err, domain.ErrWalletNotEmpty),
		errors.Is(err, domain.ErrDuplicateOperation), errors.Is(err, domain.ErrConcurrencyConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrSelfTransfer):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQueueDispatch):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
