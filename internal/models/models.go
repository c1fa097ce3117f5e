package models

import (
	"encoding/json"
	"time"
)

const (
	// DayFormat is the calendar-date key used for the tracked day and for
	// history entries. Always derived in the observer's local timezone,
	// never from UTC truncation.
	DayFormat = "2006-01-02"

	// DefaultTargetCalories is the daily goal used until the user sets one.
	DefaultTargetCalories = 2200

	// DefaultView is the view restored when the document carries none.
	DefaultView = "overview"
)

// ConsumptionEntry is one logged food item for the tracked day. Entries are
// append-only and immutable apart from deletion; at rollover they are
// summarized into history and discarded.
type ConsumptionEntry struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Kcal float64 `json:"kcal"`
}

// Ingredient is one row of a recipe: a food with a caloric density and the
// amount of it that goes into the recipe.
type Ingredient struct {
	Name        string  `json:"name"`
	KcalPer100g float64 `json:"kcalPer100g"`
	Grams       float64 `json:"grams"`
}

// Recipe is a reusable ingredient list used to log scaled portions.
// A recipe persisted by an older app version has no ingredient detail; it is
// retained with Incompatible set and excluded from portioning until the user
// edits or deletes it.
type Recipe struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Ingredients  []Ingredient `json:"ingredients"`
	Incompatible bool         `json:"incompatible,omitempty"`
}

// HistoryRecord is the archived summary of one day. Once the tracked day has
// advanced past the date, the record is only changed by explicit user
// deletion.
type HistoryRecord struct {
	TotalCalories float64  `json:"totalCalories"`
	WeightKg      *float64 `json:"weightKg"`
}

// DayRecord is a HistoryRecord together with its date key, used where history
// is presented as an ordered list.
type DayRecord struct {
	Date          string   `json:"date"`
	TotalCalories float64  `json:"totalCalories"`
	WeightKg      *float64 `json:"weightKg"`
}

// DaySummary is the dashboard projection of the tracked day.
type DaySummary struct {
	Date           string   `json:"date"`
	TotalCalories  float64  `json:"totalCalories"`
	TargetCalories int      `json:"targetCalories"`
	DailyWeightKg  *float64 `json:"dailyWeightKg"`
}

// AppState is the single persisted aggregate: everything the tracker knows.
// CurrentDate is empty only before first run. Items holds the tracked day's
// entries in insertion order. History is keyed by date, at most one record
// per day.
type AppState struct {
	CurrentDate    string
	Items          []ConsumptionEntry
	DailyWeightKg  *float64
	TargetCalories int
	Recipes        []Recipe
	History        map[string]HistoryRecord
	ActiveView     string

	// Extra holds top-level document fields this build does not know about,
	// so documents written by newer builds round-trip without loss.
	Extra map[string]json.RawMessage
}

// NewAppState returns the first-run default state.
func NewAppState() AppState {
	return AppState{
		Items:          []ConsumptionEntry{},
		TargetCalories: DefaultTargetCalories,
		Recipes:        []Recipe{},
		History:        map[string]HistoryRecord{},
		ActiveView:     DefaultView,
		Extra:          map[string]json.RawMessage{},
	}
}

// TotalCalories sums the tracked day's entries.
func (state *AppState) TotalCalories() float64 {
	var total float64
	for _, item := range state.Items {
		total += item.Kcal
	}
	return total
}

// SyncTodayHistory mirrors the live day into history so statistics views show
// partial progress before rollover. A day with nothing logged and no weight
// has no record; keeping the mapping two-way makes deleting today's history
// stick instead of resurrecting a zero record on the next save.
func (state *AppState) SyncTodayHistory() {
	if state.CurrentDate == "" {
		return
	}
	if len(state.Items) == 0 && state.DailyWeightKg == nil {
		delete(state.History, state.CurrentDate)
		return
	}
	state.History[state.CurrentDate] = HistoryRecord{
		TotalCalories: state.TotalCalories(),
		WeightKg:      state.DailyWeightKg,
	}
}

// Clone returns a copy that shares no mutable structure with the receiver,
// safe to hand to a View while ledger operations continue.
func (state *AppState) Clone() AppState {
	clone := *state

	clone.Items = make([]ConsumptionEntry, len(state.Items))
	copy(clone.Items, state.Items)

	clone.Recipes = make([]Recipe, len(state.Recipes))
	for i, recipe := range state.Recipes {
		clone.Recipes[i] = recipe
		clone.Recipes[i].Ingredients = make([]Ingredient, len(recipe.Ingredients))
		copy(clone.Recipes[i].Ingredients, recipe.Ingredients)
	}

	clone.History = make(map[string]HistoryRecord, len(state.History))
	for date, record := range state.History {
		if record.WeightKg != nil {
			weight := *record.WeightKg
			record.WeightKg = &weight
		}
		clone.History[date] = record
	}

	if state.DailyWeightKg != nil {
		weight := *state.DailyWeightKg
		clone.DailyWeightKg = &weight
	}

	clone.Extra = make(map[string]json.RawMessage, len(state.Extra))
	for key, value := range state.Extra {
		clone.Extra[key] = value
	}

	return clone
}

// User is a signed-in identity, kept for display only. Sign-in never gates
// tracker behavior.
type User struct {
	ID          string    `json:"id"`
	OIDCSubject string    `json:"-"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatarUrl"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}
