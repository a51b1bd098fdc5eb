package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codyseavey/tcg-signals/internal/models"
)

func TestImportLegacyIdentityCache(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// An existing binding must survive the import.
	if err := db.Create(&models.CardIdentity{Name: "Pikachu", CatalogID: "111"}).Error; err != nil {
		t.Fatalf("seed identity: %v", err)
	}

	path := filepath.Join(t.TempDir(), "cache_tcg_ids.json")
	content := `{"Pikachu": "999", "Parasol Lady 255/182": "642113", "Empty": ""}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	inserted, err := ImportLegacyIdentityCache(db, path)
	if err != nil {
		t.Fatalf("ImportLegacyIdentityCache() error = %v", err)
	}
	if inserted != 1 {
		t.Errorf("ImportLegacyIdentityCache() inserted = %d, want 1", inserted)
	}

	var pikachu models.CardIdentity
	db.First(&pikachu, "name = ?", "Pikachu")
	if pikachu.CatalogID != "111" {
		t.Errorf("Pikachu catalog id = %q, want existing %q", pikachu.CatalogID, "111")
	}

	var lady models.CardIdentity
	db.First(&lady, "name = ?", "Parasol Lady 255/182")
	if lady.CatalogID != "642113" || lady.Source != models.IdentitySourceImport {
		t.Errorf("imported identity = %+v, want id 642113 from import", lady)
	}
}

func TestImportLegacyIdentityCacheCorrupt(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "cache_tcg_ids.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	if _, err := ImportLegacyIdentityCache(db, path); err == nil {
		t.Error("ImportLegacyIdentityCache() on corrupt file should fail")
	}
}

func TestRunMigrationsClosesInterruptedRuns(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	db.Create(&models.DatasetRun{ID: "run-1", Status: models.RunStatusRunning})
	db.Create(&models.DatasetRun{ID: "run-2", Status: models.RunStatusCompleted})

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	var run models.DatasetRun
	db.First(&run, "id = ?", "run-1")
	if run.Status != models.RunStatusFailed {
		t.Errorf("interrupted run status = %q, want %q", run.Status, models.RunStatusFailed)
	}
	var done models.DatasetRun
	db.First(&done, "id = ?", "run-2")
	if done.Status != models.RunStatusCompleted {
		t.Errorf("completed run status = %q, want %q", done.Status, models.RunStatusCompleted)
	}
}
