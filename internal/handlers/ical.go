package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/saolinek/kaloricka-kalkulacka/internal/services"
)

// ICalHandler exports archived days as an all-day-event calendar feed, so the
// history can be overlaid on whatever calendar app the user already reads.
type ICalHandler struct {
	tracker *services.TrackerService
}

func NewICalHandler(tracker *services.TrackerService) *ICalHandler {
	return &ICalHandler{tracker: tracker}
}

func (handler *ICalHandler) Feed(w http.ResponseWriter, r *http.Request) {
	handler.tracker.ReconcileDay(r.Context())
	days := handler.tracker.History()

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=kaloricka.ics")

	var builder strings.Builder
	builder.WriteString("BEGIN:VCALENDAR\r\n")
	builder.WriteString("VERSION:2.0\r\n")
	builder.WriteString("PRODID:-//Kaloricka Kalkulacka//Kaloricka Kalkulacka//EN\r\n")
	builder.WriteString("CALSCALE:GREGORIAN\r\n")
	builder.WriteString("METHOD:PUBLISH\r\n")
	builder.WriteString("X-WR-CALNAME:Kaloricka Kalkulacka\r\n")

	stamp := time.Now().UTC().Format("20060102T150405Z")

	for _, day := range days {
		parsedDate, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			continue
		}

		summary := fmt.Sprintf("%.0f kcal", day.TotalCalories)
		if day.WeightKg != nil {
			summary += fmt.Sprintf(" / %.1f kg", *day.WeightKg)
		}

		builder.WriteString("BEGIN:VEVENT\r\n")
		builder.WriteString(fmt.Sprintf("UID:day-%s@kaloricka-kalkulacka\r\n", day.Date))
		builder.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(summary)))
		builder.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", strings.ReplaceAll(day.Date, "-", "")))
		// End date is the next day for all-day events per iCal spec
		builder.WriteString(fmt.Sprintf("DTEND;VALUE=DATE:%s\r\n", parsedDate.AddDate(0, 0, 1).Format("20060102")))
		builder.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", stamp))
		builder.WriteString("END:VEVENT\r\n")
	}

	builder.WriteString("END:VCALENDAR\r\n")

	w.Write([]byte(builder.String()))
}

func escapeICalText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ";", "\\;")
	text = strings.ReplaceAll(text, ",", "\\,")
	text = strings.ReplaceAll(text, "\n", "\\n")
	return text
}
