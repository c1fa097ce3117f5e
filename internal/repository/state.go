package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/saolinek/kaloricka-kalkulacka/internal/models"
)

// StateKey is the row key the tracker document lives under, kept identical to
// the localStorage key of the original web app so a disk inspection reads the
// same either way.
const StateKey = "kaloricka_kalkulacka_state"

type StateRepository interface {
	Load(ctx context.Context) (models.AppState, error)
	Save(ctx context.Context, state models.AppState) error
	Wipe(ctx context.Context) error
}

type SQLiteStateRepository struct {
	database *sql.DB
}

func NewStateRepository(database *sql.DB) *SQLiteStateRepository {
	return &SQLiteStateRepository{database: database}
}

// Load reads the persisted document, migrates it forward and repairs any
// malformed fields. It only fails on storage errors; a corrupt document is
// recovered field by field, never rejected wholesale.
func (repository *SQLiteStateRepository) Load(ctx context.Context) (models.AppState, error) {
	var value string
	err := repository.database.QueryRowContext(ctx,
		"SELECT value FROM app_state WHERE key = ?", StateKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewAppState(), nil
	}
	if err != nil {
		return models.AppState{}, fmt.Errorf("loading state: %w", err)
	}

	return DecodeDocument([]byte(value)), nil
}

// Save re-derives today's history record from the live day and writes the
// full document back. Called after every mutating operation.
func (repository *SQLiteStateRepository) Save(ctx context.Context, state models.AppState) error {
	state.SyncTodayHistory()

	encoded, err := EncodeDocument(state)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	_, err = repository.database.ExecContext(ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		StateKey, string(encoded), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

// Wipe removes the document entirely. This is the all-or-nothing maintenance
// reset; there is no partial form.
func (repository *SQLiteStateRepository) Wipe(ctx context.Context) error {
	_, err := repository.database.ExecContext(ctx,
		"DELETE FROM app_state WHERE key = ?", StateKey,
	)
	if err != nil {
		return fmt.Errorf("wiping state: %w", err)
	}
	return nil
}

// flexID tolerates the original app's numeric ids (Date.now() millis)
// alongside the string ids this build writes.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*id = flexID(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*id = flexID(asNumber.String())
		return nil
	}
	return errors.New("id is neither string nor number")
}

type wireEntry struct {
	ID   flexID  `json:"id"`
	Name string  `json:"name"`
	Kcal float64 `json:"kcal"`
}

// DecodeDocument turns raw persisted bytes into an AppState. Unparseable
// documents become first-run defaults; individually malformed fields are
// replaced with their defaults while well-formed siblings survive. Unknown
// top-level fields are carried in Extra.
func DecodeDocument(raw []byte) models.AppState {
	state := models.NewAppState()

	var document map[string]json.RawMessage
	if err := json.Unmarshal(raw, &document); err != nil || document == nil {
		slog.Warn("persisted state unreadable, starting from defaults", "error", err)
		return state
	}

	document = migrateDocument(document)

	state.CurrentDate = decodeCurrentDate(document["currentDate"])
	state.Items = decodeItems(document["items"])
	state.DailyWeightKg = decodeWeight(document["dailyWeightKg"])
	state.TargetCalories = decodeTarget(document["targetCalories"])
	state.Recipes = decodeRecipes(document["recipes"])
	state.History = decodeHistory(document["history"])
	state.ActiveView = decodeView(document["activeView"])

	for key, value := range document {
		if !knownDocumentFields[key] {
			state.Extra[key] = value
		}
	}

	return state
}

// EncodeDocument serializes the full document, merging retained unknown
// fields back in so they round-trip.
func EncodeDocument(state models.AppState) ([]byte, error) {
	document := make(map[string]json.RawMessage, len(state.Extra)+8)
	for key, value := range state.Extra {
		document[key] = value
	}

	setField := func(key string, value interface{}) error {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding field %s: %w", key, err)
		}
		document[key] = encoded
		return nil
	}

	var currentDate interface{}
	if state.CurrentDate != "" {
		currentDate = state.CurrentDate
	}

	items := state.Items
	if items == nil {
		items = []models.ConsumptionEntry{}
	}
	recipes := state.Recipes
	if recipes == nil {
		recipes = []models.Recipe{}
	}
	history := state.History
	if history == nil {
		history = map[string]models.HistoryRecord{}
	}

	fields := map[string]interface{}{
		"schemaVersion":  documentVersion,
		"currentDate":    currentDate,
		"items":          items,
		"dailyWeightKg":  state.DailyWeightKg,
		"targetCalories": state.TargetCalories,
		"recipes":        recipes,
		"history":        history,
		"activeView":     state.ActiveView,
	}
	for key, value := range fields {
		if err := setField(key, value); err != nil {
			return nil, err
		}
	}

	return json.Marshal(document)
}

var knownDocumentFields = map[string]bool{
	"schemaVersion":  true,
	"currentDate":    true,
	"items":          true,
	"dailyWeightKg":  true,
	"targetCalories": true,
	"recipes":        true,
	"history":        true,
	"activeView":     true,
}

func decodeCurrentDate(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var date string
	if err := json.Unmarshal(raw, &date); err != nil {
		return ""
	}
	if _, err := time.Parse(models.DayFormat, date); err != nil {
		return ""
	}
	return date
}

func decodeItems(raw json.RawMessage) []models.ConsumptionEntry {
	items := []models.ConsumptionEntry{}
	if raw == nil {
		return items
	}
	var wire []wireEntry
	if err := json.Unmarshal(raw, &wire); err != nil {
		slog.Warn("persisted items malformed, dropping", "error", err)
		return items
	}
	for _, entry := range wire {
		if math.IsNaN(entry.Kcal) || math.IsInf(entry.Kcal, 0) {
			continue
		}
		items = append(items, models.ConsumptionEntry{
			ID:   string(entry.ID),
			Name: entry.Name,
			Kcal: entry.Kcal,
		})
	}
	return items
}

func decodeWeight(raw json.RawMessage) *float64 {
	if raw == nil {
		return nil
	}
	var weight *float64
	if err := json.Unmarshal(raw, &weight); err != nil {
		return nil
	}
	return weight
}

func decodeTarget(raw json.RawMessage) int {
	if raw == nil {
		return models.DefaultTargetCalories
	}
	var target float64
	if err := json.Unmarshal(raw, &target); err != nil || target < 1 {
		return models.DefaultTargetCalories
	}
	return int(target)
}

// decodeRecipes keeps every persisted recipe. A recipe without a well-formed
// ingredient list (including the original app's fixed-kcal recipes) is tagged
// incompatible rather than dropped, so the user can inspect and delete it.
func decodeRecipes(raw json.RawMessage) []models.Recipe {
	recipes := []models.Recipe{}
	if raw == nil {
		return recipes
	}
	var wire []json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		slog.Warn("persisted recipes malformed, dropping", "error", err)
		return recipes
	}
	for _, rawRecipe := range wire {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rawRecipe, &fields); err != nil {
			continue
		}

		recipe := models.Recipe{Ingredients: []models.Ingredient{}}

		var id flexID
		if rawID, ok := fields["id"]; ok {
			if err := json.Unmarshal(rawID, &id); err == nil {
				recipe.ID = string(id)
			}
		}
		if rawName, ok := fields["name"]; ok {
			json.Unmarshal(rawName, &recipe.Name)
		}
		if rawFlag, ok := fields["incompatible"]; ok {
			json.Unmarshal(rawFlag, &recipe.Incompatible)
		}

		var ingredients []models.Ingredient
		rawIngredients, hasIngredients := fields["ingredients"]
		if hasIngredients {
			if err := json.Unmarshal(rawIngredients, &ingredients); err != nil {
				hasIngredients = false
			}
		}
		if !hasIngredients || len(ingredients) == 0 {
			recipe.Incompatible = true
		} else {
			recipe.Ingredients = ingredients
		}

		recipes = append(recipes, recipe)
	}
	return recipes
}

func decodeHistory(raw json.RawMessage) map[string]models.HistoryRecord {
	history := map[string]models.HistoryRecord{}
	if raw == nil {
		return history
	}
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		slog.Warn("persisted history malformed, dropping", "error", err)
		return history
	}
	for date, rawRecord := range wire {
		var record models.HistoryRecord
		if err := json.Unmarshal(rawRecord, &record); err != nil {
			continue
		}
		history[date] = record
	}
	return history
}

func decodeView(raw json.RawMessage) string {
	if raw == nil {
		return models.DefaultView
	}
	var view string
	if err := json.Unmarshal(raw, &view); err != nil || view == "" {
		return models.DefaultView
	}
	return view
}
