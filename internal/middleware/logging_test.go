package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestLogging_SuccessfulRequest(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/checkout/sessions", nil))

	entry := decodeLogLine(t, &buf)
	if entry["level"] != "INFO" {
		t.Errorf("expected INFO, got %v", entry["level"])
	}
	if entry["method"] != "POST" || entry["path"] != "/checkout/sessions" {
		t.Errorf("unexpected request fields in %v", entry)
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Errorf("expected status 201, got %v", entry["status"])
	}
	if entry["size"] != float64(len("created")) {
		t.Errorf("expected size %d, got %v", len("created"), entry["size"])
	}
}

func TestLogging_ErrorCodeFromHandlerContext(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetErrorCode(r.Context(), "not_found")
		UpdateResponseContext(w, ctx)
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/x", nil))

	entry := decodeLogLine(t, &buf)
	if entry["level"] != "WARN" {
		t.Errorf("expected WARN for 4xx, got %v", entry["level"])
	}
	if entry["error_code"] != "not_found" {
		t.Errorf("expected error_code not_found, got %v", entry["error_code"])
	}
}

func TestLogging_ServerErrorLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	handler := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	entry := decodeLogLine(t, &buf)
	if entry["level"] != "ERROR" {
		t.Errorf("expected ERROR for 5xx, got %v", entry["level"])
	}
}

func TestLogging_IncludesRequestIDAndRepresentative(t *testing.T) {
	var buf bytes.Buffer
	inner := Logging(captureLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(w, r.WithContext(SetRepresentative(r.Context(), "clerk")))
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	entry := decodeLogLine(t, &buf)
	if entry["request_id"] != "req-1" {
		t.Errorf("expected request_id req-1, got %v", entry["request_id"])
	}
	if entry["representative"] != "clerk" {
		t.Errorf("expected representative clerk, got %v", entry["representative"])
	}
}

func TestResponseWriter_FirstWriteHeaderWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)

	if rw.statusCode != http.StatusTeapot {
		t.Errorf("expected 418 recorded, got %d", rw.statusCode)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418 written, got %d", rec.Code)
	}
}

func TestNewLogger(t *testing.T) {
	if NewLogger("production") == nil {
		t.Error("expected a production logger")
	}
	if NewLogger("development") == nil {
		t.Error("expected a development logger")
	}
}
