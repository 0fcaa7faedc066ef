package services

import "net/http"

// Result is what every account operation returns: an HTTP-like status, a
// message for the client and an optional payload. Faults never escape as
// errors; they come back as 5xx results.
type Result struct {
	Status  int
	Message string
	Payload map[string]any
}

func (r *Result) OK() bool {
	return r != nil && r.Status < 400
}

func ok(message string, payload map[string]any) *Result {
	return &Result{Status: http.StatusOK, Message: message, Payload: payload}
}

func fail(status int, message string) *Result {
	return &Result{Status: status, Message: message}
}

func serverError(message string) *Result {
	return fail(http.StatusInternalServerError, message)
}
