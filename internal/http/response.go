package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"moneylog/internal/backup"
	"moneylog/internal/core"
	"moneylog/internal/exchange"
	"moneylog/internal/ledger"
	applog "moneylog/internal/log"
	"moneylog/internal/middleware/trace"
	"moneylog/internal/report"
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
	errNoRemote   = errors.New("remote backup is not configured")
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptySource),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, exchange.ErrInvalidFormat),
		errors.Is(err, report.ErrUnknownPeriod):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound), errors.Is(err, backup.ErrNoBackup):
		return http.StatusNotFound
	case errors.Is(err, backup.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotReady), errors.Is(err, errNoRemote):
		return http.StatusServiceUnavailable
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	requestID := trace.GetRequestID(r.Context())
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, operation,
			applog.FieldRequestID, requestID,
			applog.FieldError, err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, RequestID: requestID})
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields and
// bodies over the server limit.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return err
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDate):
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single object", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(p *string) {
	if p != nil {
		*p = sanitizeInput(*p)
	}
}
