package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	// maxRequestBodyBytes bounds POST bodies
	maxRequestBodyBytes = 64 * 1024
)

// Response is the envelope every JSON route answers with
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// respondJSON writes data as JSON with the given status code
func (a *API) respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response already started, can't send error to client
		a.logger.Errorw("Failed to encode JSON response",
			"error", err,
			"data_type", fmt.Sprintf("%T", data))
	}
}

// respondSuccess wraps data in a success envelope
func (a *API) respondSuccess(w http.ResponseWriter, message string, data interface{}) {
	a.respondJSON(w, Response{Status: statusSuccess, Message: message, Data: data}, http.StatusOK)
}

// respondError writes an error envelope without logging
func (a *API) respondError(w http.ResponseWriter, statusCode int, message string) {
	a.respondJSON(w, Response{Status: statusError, Message: sanitizeErrorMessage(message)}, statusCode)
}

// writeError logs the full error internally and sends a sanitized message to the client.
// Client errors are logged at Warn, server errors at Error.
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		fields := []interface{}{"status_code", statusCode}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}
		if statusCode >= http.StatusInternalServerError {
			logger.Errorw(message, fields...)
		} else {
			logger.Warnw(message, fields...)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(Response{Status: statusError, Message: sanitizeErrorMessage(message)})
}

// decodeJSONBodyWithLimit decodes a JSON request body with a size limit.
// On failure it has already written the error response.
func (a *API) decodeJSONBodyWithLimit(w http.ResponseWriter, r *http.Request, dst interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	decoder := json.NewDecoder(r.Body)

	err := decoder.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON syntax at byte offset %d", syntaxError.Offset), err, a.logger)
		case errors.As(err, &unmarshalTypeError):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid type for field '%s': expected %s", unmarshalTypeError.Field, unmarshalTypeError.Type), err, a.logger)
		case errors.As(err, &maxBytesError):
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err, a.logger)
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Request body is empty", err, a.logger)
		default:
			writeError(w, http.StatusBadRequest, "Invalid JSON body", err, a.logger)
		}
		return err
	}

	return nil
}
