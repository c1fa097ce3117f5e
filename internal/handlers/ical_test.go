package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func TestICalHandler_Feed(t *testing.T) {
	_, tracker := setupTrackerHandler(t)
	ctx := context.Background()

	if _, err := tracker.LogConsumption(ctx, "Oběd", 650); err != nil {
		t.Fatalf("logging: %v", err)
	}
	weight := 80.5
	if err := tracker.SetWeight(ctx, &weight); err != nil {
		t.Fatalf("setting weight: %v", err)
	}

	handler := NewICalHandler(tracker)
	router := chi.NewRouter()
	router.Get("/export/ical", handler.Feed)

	request := httptest.NewRequest(http.MethodGet, "/export/ical", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if contentType := recorder.Header().Get("Content-Type"); !strings.HasPrefix(contentType, "text/calendar") {
		t.Errorf("expected text/calendar content type, got %q", contentType)
	}

	body := recorder.Body.String()
	if !strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(body, "END:VCALENDAR\r\n") {
		t.Error("feed must be a complete VCALENDAR")
	}

	today := time.Now().Format("2006-01-02")
	if !strings.Contains(body, "UID:day-"+today+"@kaloricka-kalkulacka\r\n") {
		t.Errorf("expected an event for %s in feed:\n%s", today, body)
	}
	if !strings.Contains(body, "SUMMARY:650 kcal / 80.5 kg\r\n") {
		t.Errorf("expected day summary line in feed:\n%s", body)
	}
	if !strings.Contains(body, "DTSTART;VALUE=DATE:"+strings.ReplaceAll(today, "-", "")+"\r\n") {
		t.Errorf("expected all-day DTSTART in feed:\n%s", body)
	}
}

func TestEscapeICalText(t *testing.T) {
	escaped := escapeICalText("a;b,c\\d\ne")
	if escaped != "a\\;b\\,c\\\\d\\ne" {
		t.Errorf("unexpected escaping: %q", escaped)
	}
}
