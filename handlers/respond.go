package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"autonomeal/apperr"
	"autonomeal/utils"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// maxJSONBody bounds JSON request bodies; uploads have their own limit.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"success": false, "error": msg}.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr := logError(r, logger, err)
	writeJSON(w, appErr.StatusCode(), map[string]any{
		"success": false,
		"error":   appErr.Message,
	})
}

// writeBareError renders err as {"error": msg}, the shape the ask server uses.
func writeBareError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr := logError(r, logger, err)
	writeJSON(w, appErr.StatusCode(), map[string]string{"error": appErr.Message})
}

func logError(r *http.Request, logger *zap.Logger, err error) *apperr.Error {
	appErr := apperr.From(err)
	fields := []zap.Field{
		zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("kind", string(appErr.Kind)),
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		logger.Error(appErr.Message, append(fields, zap.Error(appErr.Cause))...)
	} else {
		logger.Debug(appErr.Message, fields...)
	}
	return appErr
}

// decodeJSON reads a JSON body into dst and runs its validate tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.BadRequest("Request body too large")
		}
		return apperr.BadRequest("Invalid request data")
	}
	return nil
}

func validateStruct(v any, message string) error {
	if err := utils.Validator().Struct(v); err != nil {
		return apperr.BadRequest(message)
	}
	return nil
}
