package auth

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/learncard/internal/config"
	"github.com/mrlokans/learncard/internal/database/users"
	"github.com/mrlokans/learncard/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuthConfig(mode config.AuthMode) config.Auth {
	return config.Auth{
		Mode:              mode,
		SessionLifetime:   24 * time.Hour,
		SecureCookies:     false,
		BcryptCost:        4, // Low cost for faster tests
		MinPasswordLength: 8,
		MaxLoginAttempts:  3,
		LockoutDuration:   time.Hour,
	}
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&entities.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func setupService(t *testing.T, mode config.AuthMode) (*Service, *gorm.DB) {
	t.Helper()
	db := setupDB(t)
	return NewService(users.NewRepository(db), testAuthConfig(mode)), db
}

// extractField pulls a top-level field out of a flat JSON object as text.
func extractField(t *testing.T, body, field string) string {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("invalid JSON %q: %v", body, err)
	}
	return fmt.Sprint(payload[field])
}
