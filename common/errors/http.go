package errors

import (
	"encoding/json"
	"errors"
	"net/http"
)

type httpErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// WriteHTTP reports an error to the client, mapping the AppError code to an
// HTTP status. Non-AppError values are reported as a generic internal error
// so infrastructure detail never leaks to the caller.
func WriteHTTP(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Wrap(err, CodeInternalServer, "internal server error")
	}

	status := mapErrorCodeToHTTP(appErr.Code)
	body := httpErrorBody{
		Error:  appErr.Code,
		Detail: appErr.Message,
	}
	if status == http.StatusInternalServerError {
		body.Detail = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func mapErrorCodeToHTTP(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeInvalidInput, CodeInvalidState, CodePolicyViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
