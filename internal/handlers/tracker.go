package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saolinek/kaloricka-kalkulacka/internal/models"
	"github.com/saolinek/kaloricka-kalkulacka/internal/services"
)

// TrackerHandler exposes the ledger to the browser View as a JSON API. The
// handler validates nothing the service doesn't; it only translates the
// service's rejections into status codes the View can show feedback for.
type TrackerHandler struct {
	tracker *services.TrackerService
}

func NewTrackerHandler(tracker *services.TrackerService) *TrackerHandler {
	return &TrackerHandler{tracker: tracker}
}

// stateResponse is the wire shape of a snapshot, mirroring the persisted
// document so the View renders the same thing a disk inspection shows.
type stateResponse struct {
	CurrentDate    *string                          `json:"currentDate"`
	Items          []models.ConsumptionEntry        `json:"items"`
	DailyWeightKg  *float64                         `json:"dailyWeightKg"`
	TargetCalories int                              `json:"targetCalories"`
	Recipes        []models.Recipe                  `json:"recipes"`
	History        map[string]models.HistoryRecord  `json:"history"`
	ActiveView     string                           `json:"activeView"`
	TotalCalories  float64                          `json:"totalCalories"`
}

func (handler *TrackerHandler) State(w http.ResponseWriter, r *http.Request) {
	handler.tracker.ReconcileDay(r.Context())
	snapshot := handler.tracker.Snapshot()

	response := stateResponse{
		Items:          snapshot.Items,
		DailyWeightKg:  snapshot.DailyWeightKg,
		TargetCalories: snapshot.TargetCalories,
		Recipes:        snapshot.Recipes,
		History:        snapshot.History,
		ActiveView:     snapshot.ActiveView,
		TotalCalories:  snapshot.TotalCalories(),
	}
	if snapshot.CurrentDate != "" {
		response.CurrentDate = &snapshot.CurrentDate
	}
	writeJSON(w, http.StatusOK, response)
}

func (handler *TrackerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	handler.tracker.ReconcileDay(r.Context())
	writeJSON(w, http.StatusOK, handler.tracker.Summary())
}

func (handler *TrackerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	handler.tracker.ReconcileDay(r.Context())
	writeJSON(w, http.StatusOK, handler.tracker.Summary())
}

func (handler *TrackerHandler) LogItem(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name string  `json:"name"`
		Kcal float64 `json:"kcal"`
	}
	if !decodeBody(w, r, &request) {
		return
	}

	entry, err := handler.tracker.LogConsumption(r.Context(), request.Name, request.Kcal)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (handler *TrackerHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := handler.tracker.RemoveConsumption(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *TrackerHandler) SetWeight(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Value *float64 `json:"value"`
	}
	if !decodeBody(w, r, &request) {
		return
	}

	if err := handler.tracker.SetWeight(r.Context(), request.Value); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handler.tracker.Summary())
}

func (handler *TrackerHandler) SetTarget(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Value float64 `json:"value"`
	}
	if !decodeBody(w, r, &request) {
		return
	}

	if err := handler.tracker.SetTarget(r.Context(), request.Value); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handler.tracker.Summary())
}

type recipeRequest struct {
	Name        string              `json:"name"`
	Ingredients []models.Ingredient `json:"ingredients"`
}

func (handler *TrackerHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var request recipeRequest
	if !decodeBody(w, r, &request) {
		return
	}

	recipe, err := handler.tracker.CreateRecipe(r.Context(), request.Name, request.Ingredients)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

func (handler *TrackerHandler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	var request recipeRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if err := handler.tracker.UpdateRecipe(r.Context(), chi.URLParam(r, "id"), request.Name, request.Ingredients); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *TrackerHandler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	if err := handler.tracker.DeleteRecipe(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *TrackerHandler) ConsumeRecipe(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Grams float64 `json:"grams"`
	}
	if !decodeBody(w, r, &request) {
		return
	}

	entry, err := handler.tracker.ConsumeRecipePortion(r.Context(), chi.URLParam(r, "id"), request.Grams)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (handler *TrackerHandler) History(w http.ResponseWriter, r *http.Request) {
	handler.tracker.ReconcileDay(r.Context())
	writeJSON(w, http.StatusOK, handler.tracker.History())
}

func (handler *TrackerHandler) DeleteHistoryDay(w http.ResponseWriter, r *http.Request) {
	if err := handler.tracker.DeleteHistoryDay(r.Context(), chi.URLParam(r, "date")); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *TrackerHandler) DeleteHistoryWeight(w http.ResponseWriter, r *http.Request) {
	if err := handler.tracker.DeleteHistoryWeight(r.Context(), chi.URLParam(r, "date")); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (handler *TrackerHandler) SwitchView(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &request) {
		return
	}

	if err := handler.tracker.SwitchView(r.Context(), request.Name); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset is the external maintenance collaborator: full erasure, no partial
// form. Confirmation is the View's job.
func (handler *TrackerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := handler.tracker.Reset(r.Context()); err != nil {
		slog.Error("resetting tracker", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reset"})
		return
	}
	writeJSON(w, http.StatusOK, handler.tracker.Summary())
}

func decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrNotPortionable):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		slog.Error("ledger operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
