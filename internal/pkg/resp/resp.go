/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.

Every response shares one envelope with a business code, a message and optional data.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"santorini/internal/pkg/errs"
)

// JSONResponse defines the standardized JSON response structure returned to clients.
type JSONResponse struct {
	// Code is the business status code (0 for success, others see package errs).
	Code int `json:"code"`

	// Message is the client-facing status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data any `json:"data,omitempty"`
}

// RespondJSON sets the content headers and writes payload with the given status.
// Encoding failures are logged on the request-scoped logger.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	body, err := json.Marshal(payload)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Int("http_status", httpStatus).
			Msg("Error encoding JSON response")

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(body); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Failed to write response body")
	}
}

// RespondSuccess sends data wrapped in a success envelope (HTTP 200).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError sends customErr with its HTTP status. A nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
