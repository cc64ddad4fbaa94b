package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/turtacn/molgraph/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeAppError renders err with the status mapped from its code. Errors
// without a code, and every 5xx detail, are masked.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		err = errors.New(errors.ErrCodeTimeout, errors.DefaultMessage(errors.ErrCodeTimeout))
	case stderrors.Is(err, context.Canceled):
		err = errors.New(errors.ErrCodeServiceUnavailable, "request cancelled")
	}

	var ae *errors.AppError
	if !stderrors.As(err, &ae) {
		ae = errors.Internal(errors.DefaultMessage(errors.ErrCodeInternal))
	}

	status := errors.HTTPStatus(ae.Code)
	resp := ErrorResponse{Code: string(ae.Code), Message: ae.Message}
	if status < http.StatusInternalServerError {
		resp.Detail = ae.Detail
	}
	if resp.Message == "" {
		resp.Message = errors.DefaultMessage(ae.Code)
	}
	writeJSON(w, status, resp)
}

// decodeJSON decodes a request body of at most maxBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	body := io.Reader(r.Body)
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.New(errors.ErrCodeBadRequest, "request body too large").WithCause(err)
		}
		return errors.New(errors.ErrCodeBadRequest, "malformed request body").WithDetail(err.Error()).WithCause(err)
	}
	return nil
}
