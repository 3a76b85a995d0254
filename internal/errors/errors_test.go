package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"pharmaflow/internal/analytics"
)

func TestFromAnalysis(t *testing.T) {
	insufficient := &analytics.InsufficientDataError{Analysis: "forecast", Minimum: 5, Got: 2}

	tests := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"insufficient data", insufficient, CodeInsufficientData, http.StatusUnprocessableEntity},
		{"wrapped insufficient data", fmt.Errorf("overview: %w", insufficient), CodeInsufficientData, http.StatusUnprocessableEntity},
		{"app error passes through", BadRequestWrap(io.EOF, "bad"), CodeBadRequest, http.StatusBadRequest},
		{"unknown error", io.ErrUnexpectedEOF, CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromAnalysis(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
		})
	}

	if FromAnalysis(nil) != nil {
		t.Error("FromAnalysis(nil) should be nil")
	}
}

func TestFromAnalysis_Message(t *testing.T) {
	got := FromAnalysis(&analytics.InsufficientDataError{Analysis: "pricing analysis", Minimum: 3, Got: 1})

	want := "Not enough data: at least 3 records required, found 1"
	if got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}
	if got.Details != "pricing analysis" {
		t.Errorf("Details = %q", got.Details)
	}
}

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()

	WriteError(w, logger, &analytics.InsufficientDataError{Analysis: "freight analysis", Minimum: 3, Got: 0}, "req-1")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	var body struct {
		Error struct {
			Code      string `json:"code"`
			RequestID string `json:"request_id"`
		} `json:"error"`
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Error("success should be false")
	}
	if body.Error.Code != string(CodeInsufficientData) {
		t.Errorf("code = %s", body.Error.Code)
	}
	if body.Error.RequestID != "req-1" {
		t.Errorf("request_id = %s", body.Error.RequestID)
	}
}
