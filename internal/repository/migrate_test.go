package repository

import (
	"encoding/json"
	"testing"
)

func rawDocument(t *testing.T, source string) map[string]json.RawMessage {
	t.Helper()
	var document map[string]json.RawMessage
	if err := json.Unmarshal([]byte(source), &document); err != nil {
		t.Fatalf("parsing document fixture: %v", err)
	}
	return document
}

func TestMigrateDocument_RenamesLegacyFields(t *testing.T) {
	document := rawDocument(t, `{
		"date": "2024-03-01",
		"weight": 80.5,
		"target": 2000,
		"history": {"2024-02-29": {"total": 1800, "weight": 80.9}}
	}`)

	migrated := migrateDocument(document)

	for _, gone := range []string{"date", "weight", "target"} {
		if _, ok := migrated[gone]; ok {
			t.Errorf("legacy field %q must be renamed away", gone)
		}
	}
	if string(migrated["currentDate"]) != `"2024-03-01"` {
		t.Errorf("unexpected currentDate: %s", migrated["currentDate"])
	}
	if string(migrated["dailyWeightKg"]) != "80.5" {
		t.Errorf("unexpected dailyWeightKg: %s", migrated["dailyWeightKg"])
	}
	if string(migrated["targetCalories"]) != "2000" {
		t.Errorf("unexpected targetCalories: %s", migrated["targetCalories"])
	}

	var history map[string]map[string]float64
	if err := json.Unmarshal(migrated["history"], &history); err != nil {
		t.Fatalf("parsing migrated history: %v", err)
	}
	record := history["2024-02-29"]
	if record["totalCalories"] != 1800 || record["weightKg"] != 80.9 {
		t.Errorf("history record keys not renamed: %v", record)
	}
}

func TestMigrateDocument_CurrentDocumentUntouched(t *testing.T) {
	source := `{
		"schemaVersion": 1,
		"currentDate": "2026-08-31",
		"dailyWeightKg": 72.0,
		"targetCalories": 2200,
		"history": {"2026-08-30": {"totalCalories": 2100, "weightKg": 73.0}}
	}`
	document := rawDocument(t, source)

	migrated := migrateDocument(document)

	if string(migrated["currentDate"]) != `"2026-08-31"` {
		t.Errorf("current document must pass through unchanged, got %s", migrated["currentDate"])
	}
	if _, ok := migrated["date"]; ok {
		t.Error("no legacy field should appear")
	}
}

func TestMigrateDocument_MixedKeysPreferNew(t *testing.T) {
	// Both spellings present (a partially migrated document): the new key
	// wins, the old one is discarded.
	document := rawDocument(t, `{"date": "2020-01-01", "currentDate": "2026-08-31"}`)

	migrated := migrateDocument(document)

	if string(migrated["currentDate"]) != `"2026-08-31"` {
		t.Errorf("new key must win, got %s", migrated["currentDate"])
	}
	if _, ok := migrated["date"]; ok {
		t.Error("old key must be removed")
	}
}

func TestMigrateDocument_NegativeVersionTreatedAsZero(t *testing.T) {
	document := rawDocument(t, `{"schemaVersion": -3, "target": 1800}`)

	migrated := migrateDocument(document)

	if string(migrated["targetCalories"]) != "1800" {
		t.Errorf("migration must still run, got %s", migrated["targetCalories"])
	}
}
