package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	domainErrors "github.com/saintber/extensions/internal/domain/errors"
	"github.com/saintber/extensions/internal/repository/postgres"
	extErrors "github.com/saintber/extensions/pkg/errors"
	"github.com/saintber/extensions/pkg/transactions"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrCounterNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrInvalidDelta, http.StatusBadRequest, "invalid_delta"},
	{domainErrors.ErrOptimisticLockFailed, http.StatusConflict, "conflict"},
	{extErrors.ErrTransactionAborted, http.StatusServiceUnavailable, extErrors.CodeTransactionAborted},
	{extErrors.ErrOperationCancelled, http.StatusRequestTimeout, extErrors.CodeOperationCancelled},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			if m.err == domainErrors.ErrOptimisticLockFailed {
				resp.Error = "concurrent modification, please retry"
			}
			writeJSON(w, m.status, resp)
			return
		}
	}

	if postgres.IsUnavailable(err) {
		resp.Code = "database_unavailable"
		resp.Error = "database unavailable, please retry later"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if transactions.IsSerializationFailure(err) {
		resp.Code = "conflict"
		resp.Error = "concurrent modification, please retry"
		writeJSON(w, http.StatusConflict, resp)
		return
	}

	var domainErr *extErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}
