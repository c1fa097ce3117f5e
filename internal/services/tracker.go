package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saolinek/kaloricka-kalkulacka/internal/models"
	"github.com/saolinek/kaloricka-kalkulacka/internal/repository"
)

// TrackerService owns the tracker state and is the only writer of it. Every
// ledger operation runs under one mutex, so operations are serialized exactly
// like the single-threaded event loop of the original app. The clock is
// injected so tests can move the calendar; it must return local time, since
// the tracked day is the observer's calendar day.
type TrackerService struct {
	mu    sync.Mutex
	repo  repository.StateRepository
	clock func() time.Time
	state models.AppState
}

func NewTrackerService(ctx context.Context, repo repository.StateRepository, clock func() time.Time) (*TrackerService, error) {
	if clock == nil {
		clock = time.Now
	}
	state, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tracker state: %w", err)
	}
	return &TrackerService{repo: repo, clock: clock, state: state}, nil
}

// ReconcileDay advances the tracked day if the local calendar has moved on,
// archiving the outgoing day into history exactly once and resetting the
// per-day fields. Idempotent: called at boot, on resume-from-background and
// defensively before any operation that touches "today".
func (service *TrackerService) ReconcileDay(ctx context.Context) {
	service.mu.Lock()
	defer service.mu.Unlock()
	service.reconcileLocked(ctx)
}

func (service *TrackerService) reconcileLocked(ctx context.Context) {
	today := service.clock().Format(models.DayFormat)

	switch service.state.CurrentDate {
	case today:
		return
	case "":
		// First run: nothing to archive.
		service.state.CurrentDate = today
	default:
		// The record for the outgoing day is finalized here; future saves
		// only ever touch the new current day. Days skipped entirely (the
		// process slept through them) are never materialized.
		service.state.History[service.state.CurrentDate] = models.HistoryRecord{
			TotalCalories: service.state.TotalCalories(),
			WeightKg:      service.state.DailyWeightKg,
		}
		service.state.Items = []models.ConsumptionEntry{}
		service.state.DailyWeightKg = nil
		service.state.CurrentDate = today
	}

	service.persist(ctx)
}

// LogConsumption appends an entry for the tracked day. The name must be
// non-empty after trimming and kcal a finite non-negative number.
func (service *TrackerService) LogConsumption(ctx context.Context, name string, kcal float64) (models.ConsumptionEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" || math.IsNaN(kcal) || math.IsInf(kcal, 0) || kcal < 0 {
		return models.ConsumptionEntry{}, ErrInvalidInput
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	service.reconcileLocked(ctx)
	return service.logLocked(ctx, name, kcal), nil
}

func (service *TrackerService) logLocked(ctx context.Context, name string, kcal float64) models.ConsumptionEntry {
	entry := models.ConsumptionEntry{
		ID:   uuid.New().String(),
		Name: name,
		Kcal: kcal,
	}
	service.state.Items = append(service.state.Items, entry)
	service.persist(ctx)
	return entry
}

// RemoveConsumption deletes the entry with the given id from the tracked day.
func (service *TrackerService) RemoveConsumption(ctx context.Context, id string) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	for i, item := range service.state.Items {
		if item.ID == id {
			service.state.Items = append(service.state.Items[:i], service.state.Items[i+1:]...)
			service.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// SetWeight records (or, given nil, clears) the tracked day's weight.
func (service *TrackerService) SetWeight(ctx context.Context, value *float64) error {
	if value != nil && (math.IsNaN(*value) || math.IsInf(*value, 0)) {
		return ErrInvalidInput
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	service.reconcileLocked(ctx)

	if value == nil {
		service.state.DailyWeightKg = nil
	} else {
		weight := *value
		service.state.DailyWeightKg = &weight
	}
	service.persist(ctx)
	return nil
}

// SetTarget sets the daily calorie goal. Non-positive or non-finite input is
// ignored and the existing target stands.
func (service *TrackerService) SetTarget(ctx context.Context, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 1 {
		return ErrInvalidInput
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	service.state.TargetCalories = int(value)
	service.persist(ctx)
	return nil
}

// CreateRecipe adds a recipe from the submitted ingredient rows. Malformed
// rows are dropped rather than failing the whole submission; a submission
// with no usable row is rejected.
func (service *TrackerService) CreateRecipe(ctx context.Context, name string, ingredients []models.Ingredient) (models.Recipe, error) {
	name = strings.TrimSpace(name)
	usable := usableIngredients(ingredients)
	if name == "" || len(usable) == 0 {
		return models.Recipe{}, ErrInvalidInput
	}

	service.mu.Lock()
	defer service.mu.Unlock()

	recipe := models.Recipe{
		ID:          uuid.New().String(),
		Name:        name,
		Ingredients: usable,
	}
	service.state.Recipes = append(service.state.Recipes, recipe)
	service.persist(ctx)
	return recipe, nil
}

// UpdateRecipe replaces a recipe's name and ingredients in place, keeping its
// id and position. Editing a legacy recipe with usable ingredients makes it
// portionable again.
func (service *TrackerService) UpdateRecipe(ctx context.Context, id string, name string, ingredients []models.Ingredient) error {
	name = strings.TrimSpace(name)
	usable := usableIngredients(ingredients)
	if name == "" || len(usable) == 0 {
		return ErrInvalidInput
	}

	service.mu.Lock()
	defer service.mu.Unlock()

	for i := range service.state.Recipes {
		if service.state.Recipes[i].ID == id {
			service.state.Recipes[i].Name = name
			service.state.Recipes[i].Ingredients = usable
			service.state.Recipes[i].Incompatible = false
			service.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteRecipe removes a recipe. Entries already logged from it are
// independent copies and stay untouched.
func (service *TrackerService) DeleteRecipe(ctx context.Context, id string) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	for i := range service.state.Recipes {
		if service.state.Recipes[i].ID == id {
			service.state.Recipes = append(service.state.Recipes[:i], service.state.Recipes[i+1:]...)
			service.persist(ctx)
			return nil
		}
	}
	return ErrNotFound
}

// ConsumeRecipePortion logs gramsEaten of the recipe as a consumption entry,
// scaling calories by the recipe's per-gram ratio.
func (service *TrackerService) ConsumeRecipePortion(ctx context.Context, recipeID string, gramsEaten float64) (models.ConsumptionEntry, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	var recipe *models.Recipe
	for i := range service.state.Recipes {
		if service.state.Recipes[i].ID == recipeID {
			recipe = &service.state.Recipes[i]
			break
		}
	}
	if recipe == nil {
		return models.ConsumptionEntry{}, ErrNotFound
	}

	kcal, err := PortionCalories(*recipe, gramsEaten)
	if err != nil {
		return models.ConsumptionEntry{}, err
	}

	service.reconcileLocked(ctx)
	return service.logLocked(ctx, recipe.Name, kcal), nil
}

// DeleteHistoryDay removes a day's record entirely. Deleting the current
// day's record also clears the live items and weight, otherwise the next save
// would simply rebuild it.
func (service *TrackerService) DeleteHistoryDay(ctx context.Context, date string) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	if _, ok := service.state.History[date]; !ok {
		return ErrNotFound
	}
	delete(service.state.History, date)
	if date == service.state.CurrentDate {
		service.state.Items = []models.ConsumptionEntry{}
		service.state.DailyWeightKg = nil
	}
	service.persist(ctx)
	return nil
}

// DeleteHistoryWeight clears the weight on a day's record without removing
// the record, and clears the live weight too when the day is current.
func (service *TrackerService) DeleteHistoryWeight(ctx context.Context, date string) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	record, inHistory := service.state.History[date]
	if inHistory {
		record.WeightKg = nil
		service.state.History[date] = record
	}
	if date == service.state.CurrentDate {
		service.state.DailyWeightKg = nil
	} else if !inHistory {
		return ErrNotFound
	}
	service.persist(ctx)
	return nil
}

// SwitchView remembers which view the user has open so a reload restores it.
// Purely presentational; persisted verbatim.
func (service *TrackerService) SwitchView(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidInput
	}

	service.mu.Lock()
	defer service.mu.Unlock()
	service.state.ActiveView = name
	service.persist(ctx)
	return nil
}

// Reset erases all persisted and in-memory state. All-or-nothing: the next
// state is a first run reconciled to today.
func (service *TrackerService) Reset(ctx context.Context) error {
	service.mu.Lock()
	defer service.mu.Unlock()

	if err := service.repo.Wipe(ctx); err != nil {
		return fmt.Errorf("resetting tracker: %w", err)
	}
	service.state = models.NewAppState()
	service.reconcileLocked(ctx)
	return nil
}

// Snapshot returns a read-only copy of the full state for the View.
func (service *TrackerService) Snapshot() models.AppState {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.state.Clone()
}

// Summary projects the tracked day for the dashboard.
func (service *TrackerService) Summary() models.DaySummary {
	service.mu.Lock()
	defer service.mu.Unlock()

	summary := models.DaySummary{
		Date:           service.state.CurrentDate,
		TotalCalories:  service.state.TotalCalories(),
		TargetCalories: service.state.TargetCalories,
	}
	if service.state.DailyWeightKg != nil {
		weight := *service.state.DailyWeightKg
		summary.DailyWeightKg = &weight
	}
	return summary
}

// History lists archived days newest first, the order the statistics view
// shows them.
func (service *TrackerService) History() []models.DayRecord {
	service.mu.Lock()
	defer service.mu.Unlock()

	records := make([]models.DayRecord, 0, len(service.state.History))
	for date, record := range service.state.History {
		day := models.DayRecord{Date: date, TotalCalories: record.TotalCalories}
		if record.WeightKg != nil {
			weight := *record.WeightKg
			day.WeightKg = &weight
		}
		records = append(records, day)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Date > records[j].Date
	})
	return records
}

// persist mirrors today into history and writes the document. A failed write
// is logged and otherwise ignored: the in-memory state stays correct and the
// next successful save catches up.
func (service *TrackerService) persist(ctx context.Context) {
	service.state.SyncTodayHistory()
	if err := service.repo.Save(ctx, service.state); err != nil {
		slog.Error("saving tracker state", "error", err)
	}
}

func usableIngredients(ingredients []models.Ingredient) []models.Ingredient {
	usable := make([]models.Ingredient, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if strings.TrimSpace(ingredient.Name) == "" {
			continue
		}
		if math.IsNaN(ingredient.KcalPer100g) || math.IsInf(ingredient.KcalPer100g, 0) || ingredient.KcalPer100g < 0 {
			continue
		}
		if math.IsNaN(ingredient.Grams) || math.IsInf(ingredient.Grams, 0) || ingredient.Grams <= 0 {
			continue
		}
		ingredient.Name = strings.TrimSpace(ingredient.Name)
		usable = append(usable, ingredient)
	}
	return usable
}
