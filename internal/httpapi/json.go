package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/bookkeeping/internal/errs"
	"github.com/tinoosan/bookkeeping/internal/ledger"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a strict JSON body into dst. It writes the 400 or 415
// itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	mime := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
	if mime != "application/json" {
		writeErr(w, http.StatusUnsupportedMediaType, "content type must be application/json", "unsupported_media_type")
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// idParam parses a uuid path parameter, answering 400 when it is malformed.
func idParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// optionalID parses an optional uuid query parameter.
func optionalID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid "+name)
		return nil, false
	}
	return &id, true
}

// optionalDate parses an optional YYYY-MM-DD query parameter.
func optionalDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	d, err := ledger.ParseDate(raw)
	if err != nil {
		badRequest(w, "invalid "+name+": expected YYYY-MM-DD")
		return nil, false
	}
	return &d, true
}

// parseDate parses a body date field. An empty string yields the zero time.
func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		return time.Time{}, errs.Invalid(field, s, "expected YYYY-MM-DD")
	}
	return d, nil
}

// parseMoney parses a decimal string in the business currency. An empty
// string yields the zero value, which services treat as "not set".
func parseMoney(biz ledger.Business, field, s string) (money.Amount, error) {
	if strings.TrimSpace(s) == "" {
		return money.Amount{}, nil
	}
	a, err := ledger.ParseAmount(biz.Currency, strings.TrimSpace(s))
	if err != nil {
		return money.Amount{}, errs.Invalid(field, s, "%v", err)
	}
	return a, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ledger.FormatDate(t)
}
