package repository

import (
	"encoding/json"
)

// documentMigrations upgrades a persisted document one schema version at a
// time. Each step is a pure transformation of the raw field map: version N of
// the document is the result of applying the first N steps to a version-0
// document. New schema changes append a step here and nowhere else.
var documentMigrations = []func(map[string]json.RawMessage) map[string]json.RawMessage{
	renameLegacyFields,
}

// documentVersion is the schema version this build writes.
var documentVersion = len(documentMigrations)

// migrateDocument brings a raw document up to the current schema version.
// Documents without a schemaVersion field are treated as version 0, which
// covers everything the original web app ever wrote.
func migrateDocument(document map[string]json.RawMessage) map[string]json.RawMessage {
	version := 0
	if raw, ok := document["schemaVersion"]; ok {
		json.Unmarshal(raw, &version)
	}
	if version < 0 {
		version = 0
	}
	for ; version < len(documentMigrations); version++ {
		document = documentMigrations[version](document)
	}
	return document
}

// renameLegacyFields (v0 -> v1) maps the original app's terse field names
// onto the current ones: date/weight/target at the top level, and
// total/weight inside each history record. A field is only renamed when the
// new name is absent, so re-running on an already-current document changes
// nothing.
func renameLegacyFields(document map[string]json.RawMessage) map[string]json.RawMessage {
	renameField(document, "date", "currentDate")
	renameField(document, "weight", "dailyWeightKg")
	renameField(document, "target", "targetCalories")

	rawHistory, ok := document["history"]
	if !ok {
		return document
	}
	var history map[string]map[string]json.RawMessage
	if err := json.Unmarshal(rawHistory, &history); err != nil {
		return document
	}
	for _, record := range history {
		renameField(record, "total", "totalCalories")
		renameField(record, "weight", "weightKg")
	}
	if migrated, err := json.Marshal(history); err == nil {
		document["history"] = migrated
	}
	return document
}

func renameField(fields map[string]json.RawMessage, from, to string) {
	value, hasOld := fields[from]
	if !hasOld {
		return
	}
	if _, hasNew := fields[to]; !hasNew {
		fields[to] = value
	}
	delete(fields, from)
}
