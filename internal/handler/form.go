package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Form entry points answer with 303 See Other back to a page, carrying the
// outcome in the query string so the page can show it inline.

func redirectSuccess(w http.ResponseWriter, r *http.Request, target, message string) {
	redirectWith(w, r, target, "success", message)
}

func redirectError(w http.ResponseWriter, r *http.Request, target string, err error, logger zerolog.Logger) {
	message := err.Error()
	var (
		domainErr     *model.DomainError
		validationErr *model.ValidationError
	)
	switch {
	case errors.As(err, &domainErr):
		message = domainErr.Message
	case errors.As(err, &validationErr):
		parts := make([]string, len(validationErr.Fields))
		for i, f := range validationErr.Fields {
			parts[i] = f.Field + " " + f.Message
		}
		message = strings.Join(parts, "; ")
	}

	if model.KindOf(err) == model.KindInternal {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("form submission failed")
		message = "Something went wrong, please try again"
	}
	redirectWith(w, r, target, "error", message)
}

func redirectWith(w http.ResponseWriter, r *http.Request, target, status, message string) {
	q := url.Values{}
	q.Set("status", status)
	q.Set("message", message)
	http.Redirect(w, r, target+"?"+q.Encode(), http.StatusSeeOther)
}

// formQuantity reads a positive quantity field, defaulting to 1 when absent.
func formQuantity(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		return 1, nil
	}
	qty, err := strconv.Atoi(raw)
	if err != nil || qty < 1 {
		return 0, model.ErrInvalidQuantity
	}
	return qty, nil
}

func formDetails(r *http.Request) model.CheckoutDetails {
	return model.CheckoutDetails{
		FullName:   r.PostFormValue("full_name"),
		Email:      r.PostFormValue("email"),
		Phone:      r.PostFormValue("phone"),
		Address:    r.PostFormValue("address"),
		City:       r.PostFormValue("city"),
		State:      r.PostFormValue("state"),
		PostalCode: r.PostFormValue("postal_code"),
	}
}
