package commands

import (
	"context"
	"fmt"

	contextutils "coachapp/internal/utils"

	"github.com/spf13/cobra"
)

// statTables are counted by `db stats`, in display order
var statTables = []string{
	"subjects",
	"topics",
	"user_profiles",
	"user_progress",
	"study_roadmaps",
	"roadmap_items",
	"interactions",
	"sent_notifications",
}

// TableCount is one row of `db stats`
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// DatabaseCommands returns the database management commands
func DatabaseCommands(deps *Deps) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  stats  - Show row counts for every coach table`,
	}

	dbCmd.AddCommand(statsCmd(deps))
	return dbCmd
}

func statsCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if deps.DB == nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "database connection not available")
			}

			deps.Logger.Info(ctx, "Diagnostic info", map[string]interface{}{
				"database": getDatabaseInfo(ctx, deps.DB),
			})

			counts, err := countTables(ctx, deps)
			if err != nil {
				return err
			}
			return deps.emit(counts, []string{"TABLE", "ROWS"}, func() [][]string {
				rows := make([][]string, 0, len(counts))
				for _, c := range counts {
					rows = append(rows, []string{c.Table, fmt.Sprint(c.Rows)})
				}
				return rows
			})
		},
	}
}

func countTables(ctx context.Context, deps *Deps) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(statTables))
	for _, table := range statTables {
		var n int64
		// table names come from the fixed list above
		if err := deps.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrDatabaseQuery, "failed to count %s: %v", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}
