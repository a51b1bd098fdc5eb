package database

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-signals/internal/models"
)

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	// Rows written before the source column existed came from search.
	if db.Migrator().HasColumn(&models.CardIdentity{}, "source") {
		result := db.Exec(`UPDATE card_identities SET source = ? WHERE source IS NULL OR source = ''`, models.IdentitySourceSearch)
		if result.Error != nil {
			zap.L().Warn("failed to normalize identity sources", zap.Error(result.Error))
		}
	}

	// Runs that were mid-flight when the process died will never finish.
	result := db.Model(&models.DatasetRun{}).
		Where("status IN ?", []models.RunStatus{models.RunStatusQueued, models.RunStatusRunning}).
		Updates(map[string]any{"status": models.RunStatusFailed, "error": "interrupted"})
	if result.Error != nil {
		return fmt.Errorf("failed to close interrupted runs: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		zap.L().Info("marked interrupted dataset runs as failed", zap.Int64("runs", result.RowsAffected))
	}
	return nil
}

// ImportLegacyIdentityCache copies a flat name -> id JSON cache file into the
// card_identities table. Existing rows win; the import never rebinds a name.
// Returns the number of new rows.
func ImportLegacyIdentityCache(db *gorm.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read identity cache %s: %w", path, err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("failed to parse identity cache %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	identities := make([]models.CardIdentity, 0, len(names))
	for _, name := range names {
		id := strings.TrimSpace(entries[name])
		if name == "" || id == "" {
			continue
		}
		identities = append(identities, models.CardIdentity{
			Name:      name,
			CatalogID: id,
			Source:    models.IdentitySourceImport,
		})
	}
	if len(identities) == 0 {
		return 0, nil
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(identities, 100)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to import identities: %w", result.Error)
	}

	zap.L().Info("imported legacy identity cache",
		zap.String("path", path),
		zap.Int("entries", len(identities)),
		zap.Int64("inserted", result.RowsAffected))
	return int(result.RowsAffected), nil
}
