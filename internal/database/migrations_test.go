package database

import (
	"path/filepath"
	"testing"

	"github.com/citypulselabs/citypulse/backend/internal/reviews"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsTrimsCityWhitespace(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&reviews.Review{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	padded := reviews.Review{
		City:       "  Mumbai ",
		Rating:     5,
		Title:      "Padded",
		ReviewText: "Written by an older client.",
	}
	if err := database.Create(&padded).Error; err != nil {
		testContext.Fatalf("failed to insert review: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored reviews.Review
	if err := database.Where("id = ?", padded.ID).Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload review: %v", err)
	}
	if stored.City != "Mumbai" {
		testContext.Fatalf("expected trimmed city, got %q", stored.City)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationTrimCityWhitespace).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	// A second pass must be a recorded no-op.
	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}
	var count int64
	if err := database.Model(&migrationRecord{}).Where("name = ?", migrationTrimCityWhitespace).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migration records: %v", err)
	}
	if count != 1 {
		testContext.Fatalf("expected a single migration record, got %d", count)
	}
}

func TestOpenSQLiteRequiresPath(testContext *testing.T) {
	if _, err := OpenSQLite("", zap.NewNop()); err == nil {
		testContext.Fatalf("expected error for empty database path")
	}
}
