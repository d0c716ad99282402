package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps ledger errors onto HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, contentledger.ErrNotFound):
		return http.StatusNotFound, "no_content_present"
	case errors.Is(err, contentledger.ErrAlreadyExists):
		return http.StatusConflict, "content_already_exists"
	case errors.Is(err, contentledger.ErrOverflow):
		return http.StatusConflict, "overflow"
	case errors.Is(err, contentledger.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, contentledger.ErrInvalidContributionSplit):
		return http.StatusBadRequest, "invalid_contribution_split"
	case errors.Is(err, contentledger.ErrInvalidKey):
		return http.StatusBadRequest, "invalid_key"
	case errors.Is(err, contentledger.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "An internal server error occurred"
	}
	writeErrorCode(w, r, status, code, message)
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID, _ := r.Context().Value(RequestIDKey).(string)
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{Code: code, Message: message, RequestID: requestID}})
}
