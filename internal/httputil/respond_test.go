package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["n"] != 1 {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUnauthorized_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Unauthorized(rec, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Fatal("expected a default error message")
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	var v struct{}
	if DecodeJSON(rec, req, &v) {
		t.Fatal("expected decode failure")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReadAllWithLimit_Truncates(t *testing.T) {
	data, truncated, err := ReadAllWithLimit(strings.NewReader("hello world"), 5)
	if err != nil {
		t.Fatalf("ReadAllWithLimit: %v", err)
	}
	if !truncated {
		t.Fatal("expected truncation")
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected data: %q", data)
	}
}

func TestReadAllStrict_RejectsOversize(t *testing.T) {
	if _, err := ReadAllStrict(strings.NewReader("hello world"), 5); err == nil {
		t.Fatal("expected error for oversize body")
	}
	data, err := ReadAllStrict(strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatalf("ReadAllStrict: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected data: %q", data)
	}
}
