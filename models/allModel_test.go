package models_test

import (
	"sync"
	"testing"

	"github.com/darzisoft/tailorpos-migrator/models"
	"gorm.io/gorm/schema"
)

// The declared table-name list must track ManagedModels exactly, or the
// migration runner plans against tables the baseline never creates.
func TestManagedTableNamesCoverManagedModels(t *testing.T) {
	managed := models.ManagedModels()
	names := models.ManagedTableNames()
	if len(names) != len(managed) {
		t.Fatalf("ManagedTableNames has %d entries, ManagedModels has %d", len(names), len(managed))
	}
	cache := &sync.Map{}
	for i, model := range managed {
		parsed, err := schema.Parse(model, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("parse model %d: %v", i, err)
		}
		if parsed.Table != names[i] {
			t.Fatalf("entry %d: model table %q, declared name %q", i, parsed.Table, names[i])
		}
	}
}
