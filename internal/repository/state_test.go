package repository_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/saolinek/kaloricka-kalkulacka/internal/models"
	"github.com/saolinek/kaloricka-kalkulacka/internal/repository"
	"github.com/saolinek/kaloricka-kalkulacka/internal/testutil"
)

func seedDocument(t *testing.T, db *sql.DB, raw string) {
	t.Helper()
	_, err := db.Exec(
		"INSERT INTO app_state (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		repository.StateKey, raw,
	)
	if err != nil {
		t.Fatalf("seeding document: %v", err)
	}
}

func TestStateRepository_LoadEmpty(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	stateRepo := repository.NewStateRepository(db)

	state, err := stateRepo.Load(context.Background())
	if err != nil {
		t.Fatalf("loading empty store: %v", err)
	}

	if state.CurrentDate != "" {
		t.Errorf("expected no current date before first run, got %q", state.CurrentDate)
	}
	if state.TargetCalories != 2200 {
		t.Errorf("expected default target 2200, got %d", state.TargetCalories)
	}
	if len(state.Items) != 0 || len(state.Recipes) != 0 || len(state.History) != 0 {
		t.Errorf("expected empty collections, got %d items, %d recipes, %d history",
			len(state.Items), len(state.Recipes), len(state.History))
	}
	if state.ActiveView != "overview" {
		t.Errorf("expected default view 'overview', got %q", state.ActiveView)
	}
}

func TestStateRepository_SaveLoadRoundTrip(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	stateRepo := repository.NewStateRepository(db)
	ctx := context.Background()

	weight := 72.4
	pastWeight := 73.0
	state := models.NewAppState()
	state.CurrentDate = "2026-08-31"
	state.Items = []models.ConsumptionEntry{
		{ID: "a", Name: "Rohlík", Kcal: 150},
		{ID: "b", Name: "Sýr", Kcal: 220.5},
	}
	state.DailyWeightKg = &weight
	state.TargetCalories = 1900
	state.Recipes = []models.Recipe{
		{ID: "r1", Name: "Guláš", Ingredients: []models.Ingredient{
			{Name: "Hovězí", KcalPer100g: 250, Grams: 400},
			{Name: "Cibule", KcalPer100g: 40, Grams: 200},
		}},
	}
	state.History = map[string]models.HistoryRecord{
		"2026-08-30": {TotalCalories: 2100, WeightKg: &pastWeight},
	}
	state.ActiveView = "stats"

	if err := stateRepo.Save(ctx, state); err != nil {
		t.Fatalf("saving state: %v", err)
	}

	loaded, err := stateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("loading state: %v", err)
	}

	if loaded.CurrentDate != "2026-08-31" {
		t.Errorf("expected current date 2026-08-31, got %q", loaded.CurrentDate)
	}
	if len(loaded.Items) != 2 || loaded.Items[0].Name != "Rohlík" || loaded.Items[1].Kcal != 220.5 {
		t.Errorf("items did not round-trip: %+v", loaded.Items)
	}
	if loaded.DailyWeightKg == nil || *loaded.DailyWeightKg != 72.4 {
		t.Errorf("weight did not round-trip: %v", loaded.DailyWeightKg)
	}
	if loaded.TargetCalories != 1900 {
		t.Errorf("target did not round-trip: %d", loaded.TargetCalories)
	}
	if len(loaded.Recipes) != 1 || len(loaded.Recipes[0].Ingredients) != 2 {
		t.Fatalf("recipes did not round-trip: %+v", loaded.Recipes)
	}
	if loaded.Recipes[0].Incompatible {
		t.Error("well-formed recipe must not be tagged incompatible")
	}
	if loaded.ActiveView != "stats" {
		t.Errorf("view did not round-trip: %q", loaded.ActiveView)
	}

	record, ok := loaded.History["2026-08-30"]
	if !ok || record.TotalCalories != 2100 || record.WeightKg == nil || *record.WeightKg != 73.0 {
		t.Errorf("archived record did not round-trip: %+v", record)
	}

	// Save mirrors the live day into history, so the loaded document also
	// carries a deterministic record for the current date.
	today, ok := loaded.History["2026-08-31"]
	if !ok {
		t.Fatal("expected today's partial record after save")
	}
	if today.TotalCalories != 370.5 {
		t.Errorf("expected today's total 370.5, got %v", today.TotalCalories)
	}
	if today.WeightKg == nil || *today.WeightKg != 72.4 {
		t.Errorf("expected today's weight 72.4, got %v", today.WeightKg)
	}

	// A second round trip is a fixpoint.
	if err := stateRepo.Save(ctx, loaded); err != nil {
		t.Fatalf("re-saving state: %v", err)
	}
	reloaded, err := stateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("re-loading state: %v", err)
	}
	if len(reloaded.History) != len(loaded.History) || len(reloaded.Items) != len(loaded.Items) {
		t.Errorf("second round trip changed the document")
	}
}

func TestStateRepository_SaveRemovesEmptyTodayRecord(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	stateRepo := repository.NewStateRepository(db)
	ctx := context.Background()

	state := models.NewAppState()
	state.CurrentDate = "2026-08-31"
	state.History["2026-08-31"] = models.HistoryRecord{TotalCalories: 500}

	if err := stateRepo.Save(ctx, state); err != nil {
		t.Fatalf("saving state: %v", err)
	}

	loaded, err := stateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("loading state: %v", err)
	}
	if _, ok := loaded.History["2026-08-31"]; ok {
		t.Error("expected no record for a current day with nothing logged")
	}
}

func TestDecodeDocument_Unparseable(t *testing.T) {
	state := repository.DecodeDocument([]byte("{not json"))

	if state.TargetCalories != 2200 {
		t.Errorf("expected defaults, got target %d", state.TargetCalories)
	}
	if len(state.Items) != 0 || len(state.Recipes) != 0 || len(state.History) != 0 {
		t.Error("expected empty collections for unparseable document")
	}
}

func TestDecodeDocument_MalformedFieldIsolation(t *testing.T) {
	raw := `{
		"currentDate": "2026-08-30",
		"items": [{"id": "x", "name": "Polévka", "kcal": 300}],
		"recipes": "this is not a list",
		"history": 42,
		"targetCalories": 0
	}`

	state := repository.DecodeDocument([]byte(raw))

	if len(state.Items) != 1 || state.Items[0].Name != "Polévka" {
		t.Errorf("well-formed items must survive, got %+v", state.Items)
	}
	if state.Recipes == nil || len(state.Recipes) != 0 {
		t.Errorf("malformed recipes must decode as empty, got %+v", state.Recipes)
	}
	if state.History == nil || len(state.History) != 0 {
		t.Errorf("malformed history must decode as empty, got %+v", state.History)
	}
	if state.TargetCalories != 2200 {
		t.Errorf("non-positive target must fall back to default, got %d", state.TargetCalories)
	}
	if state.CurrentDate != "2026-08-30" {
		t.Errorf("valid current date must survive, got %q", state.CurrentDate)
	}
}

func TestDecodeDocument_LegacyDocument(t *testing.T) {
	// Verbatim shape of a document written by the original web app.
	raw := `{
		"date": "2024-03-01",
		"items": [{"id": 1709280000000, "name": "Chleba", "kcal": 250}],
		"weight": 80.5,
		"target": 2000,
		"recipes": [{"id": 1709112345678, "name": "Svíčková", "kcal": 650}],
		"history": {"2024-02-29": {"total": 1800, "weight": 80.9}},
		"activeView": "foods"
	}`

	state := repository.DecodeDocument([]byte(raw))

	if state.CurrentDate != "2024-03-01" {
		t.Errorf("expected legacy date renamed, got %q", state.CurrentDate)
	}
	if state.DailyWeightKg == nil || *state.DailyWeightKg != 80.5 {
		t.Errorf("expected legacy weight renamed, got %v", state.DailyWeightKg)
	}
	if state.TargetCalories != 2000 {
		t.Errorf("expected legacy target renamed, got %d", state.TargetCalories)
	}

	if len(state.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(state.Items))
	}
	if state.Items[0].ID != "1709280000000" {
		t.Errorf("expected numeric item id stringified, got %q", state.Items[0].ID)
	}

	record, ok := state.History["2024-02-29"]
	if !ok {
		t.Fatal("expected legacy history record")
	}
	if record.TotalCalories != 1800 {
		t.Errorf("expected legacy total renamed, got %v", record.TotalCalories)
	}
	if record.WeightKg == nil || *record.WeightKg != 80.9 {
		t.Errorf("expected legacy record weight renamed, got %v", record.WeightKg)
	}
}

func TestDecodeDocument_LegacyRecipeNeverVanishes(t *testing.T) {
	raw := `{"recipes": [{"id": 7, "name": "Old", "kcal": 300}]}`

	state := repository.DecodeDocument([]byte(raw))

	if len(state.Recipes) != 1 {
		t.Fatalf("legacy recipe must be kept, got %d recipes", len(state.Recipes))
	}
	recipe := state.Recipes[0]
	if recipe.ID != "7" {
		t.Errorf("expected id '7', got %q", recipe.ID)
	}
	if recipe.Name != "Old" {
		t.Errorf("expected name 'Old', got %q", recipe.Name)
	}
	if !recipe.Incompatible {
		t.Error("recipe without ingredients must be tagged incompatible")
	}
	if recipe.Ingredients == nil || len(recipe.Ingredients) != 0 {
		t.Errorf("expected empty ingredient list, got %+v", recipe.Ingredients)
	}
}

func TestDecodeDocument_EmptyIngredientListIsIncompatible(t *testing.T) {
	raw := `{"recipes": [{"id": "r1", "name": "Hollow", "ingredients": []}]}`

	state := repository.DecodeDocument([]byte(raw))

	if len(state.Recipes) != 1 || !state.Recipes[0].Incompatible {
		t.Errorf("recipe with zero ingredients must be incompatible: %+v", state.Recipes)
	}
}

func TestStateRepository_UnknownFieldsRoundTrip(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	stateRepo := repository.NewStateRepository(db)
	ctx := context.Background()

	seedDocument(t, db, `{"currentDate": "2026-08-31", "futureFeature": {"nested": [1, 2, 3]}}`)

	state, err := stateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("loading state: %v", err)
	}
	if _, ok := state.Extra["futureFeature"]; !ok {
		t.Fatal("expected unknown field retained in Extra")
	}

	if err := stateRepo.Save(ctx, state); err != nil {
		t.Fatalf("saving state: %v", err)
	}

	var value string
	if err := db.QueryRow("SELECT value FROM app_state WHERE key = ?", repository.StateKey).Scan(&value); err != nil {
		t.Fatalf("reading raw document: %v", err)
	}

	var document map[string]json.RawMessage
	if err := json.Unmarshal([]byte(value), &document); err != nil {
		t.Fatalf("parsing raw document: %v", err)
	}
	if string(document["futureFeature"]) != `{"nested":[1,2,3]}` {
		t.Errorf("unknown field did not round-trip, got %s", document["futureFeature"])
	}
}

func TestStateRepository_Wipe(t *testing.T) {
	db := testutil.NewTestDatabase(t)
	stateRepo := repository.NewStateRepository(db)
	ctx := context.Background()

	state := models.NewAppState()
	state.CurrentDate = "2026-08-31"
	state.Items = []models.ConsumptionEntry{{ID: "a", Name: "Jablko", Kcal: 80}}
	if err := stateRepo.Save(ctx, state); err != nil {
		t.Fatalf("saving state: %v", err)
	}

	if err := stateRepo.Wipe(ctx); err != nil {
		t.Fatalf("wiping state: %v", err)
	}

	loaded, err := stateRepo.Load(ctx)
	if err != nil {
		t.Fatalf("loading after wipe: %v", err)
	}
	if loaded.CurrentDate != "" || len(loaded.Items) != 0 {
		t.Errorf("expected pristine state after wipe, got %+v", loaded)
	}
}
