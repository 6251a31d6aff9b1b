package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"pharmacy/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: data, Message: message})
}

// writeError maps any error onto the envelope. Persistence failures are logged
// with their cause and answered with the generic message only.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	logger := zerolog.Ctx(r.Context())
	if appErr.Kind == apperr.KindPersistence {
		logger.Error().Err(appErr.Err).Msg("request failed")
	} else {
		logger.Debug().Str("kind", appErr.Kind.String()).Msg(appErr.Message)
	}
	writeJSON(w, appErr.Status, envelope{OK: false, Message: appErr.Message})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required")
		}
		return apperr.Validation("Invalid JSON body: %s", strings.TrimPrefix(err.Error(), "json: "))
	}
	if err := validate.Struct(out); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError lists every failed field as field:tag.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation("Invalid request: %v", err)
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), rootNamespace(fe))
		parts = append(parts, fmt.Sprintf("%s:%s", field, fe.Tag()))
	}
	return apperr.Validation("Invalid request: %s", strings.Join(parts, ", "))
}

func rootNamespace(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[:idx+1]
	}
	return ""
}

func parseOptionalInt(raw string, defaultValue int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, apperr.Validation("invalid integer: %s", raw)
	}
	if parsed < 0 {
		return 0, apperr.Validation("value cannot be negative")
	}
	return parsed, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperr.Validation("Invalid id %q", raw)
	}
	return id, nil
}
