//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"coachapp/internal/catalog"
	"coachapp/internal/config"
	"coachapp/internal/database"
	"coachapp/internal/observability"

	"github.com/stretchr/testify/require"
)

// learnerTables are emptied between tests; catalog rows are kept and re-seeded
var learnerTables = []string{
	"sent_notifications",
	"interactions",
	"roadmap_items",
	"study_roadmaps",
	"user_progress",
	"user_profiles",
}

// SharedTestDBSetup returns a migrated database with no learner data and the
// default catalog seeded. It fails the test when TEST_DATABASE_URL is unset.
func SharedTestDBSetup(t *testing.T) *sql.DB {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	db, err := database.NewManager(logger).InitDB(databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(learnerTables, ", ")+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	c, err := catalog.Default()
	require.NoError(t, err)
	_, _, err = NewCatalogServiceWithLogger(db, &config.Config{}, logger).Seed(ctx, c)
	require.NoError(t, err)

	return db
}
