package httpapi

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/bookkeeping/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Entity string `json:"entity,omitempty"`
	ID     string `json:"id,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "bad_request")
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrIllegalState), errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes a service error. An immutability violation means a caller
// bypassed the lifecycle rules, so it surfaces as a 500 and is logged at
// ERROR along with anything unclassified.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Code: errs.KindOf(err)}
	if e, ok := errs.As(err); ok {
		resp.Entity = e.Entity
		resp.ID = e.ID
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			"req_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"kind", resp.Code,
			"err", err,
		)
		if resp.Code == "internal" {
			resp.Error = "internal error"
		}
	}
	toJSON(w, status, resp)
}
