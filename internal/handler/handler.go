package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"storefront/internal/model"
	"storefront/internal/validation"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

// writeError maps err onto a status and a structured body.
// Internal failures are logged and never expose their cause.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	kind := model.KindOf(err)
	resp := model.ErrorResponse{
		Error:     model.CodeOf(err),
		Message:   err.Error(),
		RequestID: chimw.GetReqID(r.Context()),
	}

	var (
		validationErr *model.ValidationError
		stockErr      *model.StockConflictError
		domainErr     *model.DomainError
	)
	switch {
	case errors.As(err, &validationErr):
		resp.Message = "request validation failed"
		resp.Fields = validationErr.Fields
	case errors.As(err, &stockErr):
		resp.Violations = stockErr.Violations
	case errors.As(err, &domainErr):
		resp.Message = domainErr.Message
	}

	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", resp.RequestID).
			Msg("handler error")
		resp.Message = "internal server error"
	} else {
		logger.Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	}

	writeJSON(w, status, resp)
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindConflict:
		return http.StatusConflict
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindUnauthorised:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

var errInvalidJSON = model.NewDomainError(model.KindValidation, model.ErrCodeInvalidJSON, "invalid request body")

// decodeJSON reads a size-limited JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errInvalidJSON
		}
		return model.NewDomainError(model.KindValidation, model.ErrCodeInvalidJSON, fmt.Sprintf("invalid request body: %v", err))
	}
	return validation.Struct(dst)
}

// uuidParam parses a chi path parameter as a UUID.
func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &model.ValidationError{Fields: []model.FieldError{
			{Field: name, Message: "must be a valid UUID"},
		}}
	}
	return id, nil
}

// pagination reads limit and offset query parameters. Absent values are zero
// and the services apply their defaults.
func pagination(r *http.Request) (limit, offset int, err error) {
	var fields []model.FieldError
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			fields = append(fields, model.FieldError{Field: "limit", Message: "must be a non-negative integer"})
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			fields = append(fields, model.FieldError{Field: "offset", Message: "must be a non-negative integer"})
		}
	}
	if len(fields) > 0 {
		return 0, 0, &model.ValidationError{Fields: fields}
	}
	return limit, offset, nil
}
