// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"coachapp/internal/config"
	"coachapp/internal/observability"
	"coachapp/internal/services"
	"coachapp/internal/services/mailer"
	contextutils "coachapp/internal/utils"

	"golang.org/x/term"
)

// Deps carries the services every admin command may need
type Deps struct {
	Config   *config.Config
	Logger   *observability.Logger
	DB       *sql.DB
	Users    services.UserServiceInterface
	Catalog  services.CatalogServiceInterface
	Progress services.ProgressServiceInterface
	Roadmaps services.RoadmapServiceInterface
	Mailer   mailer.Mailer
	Out      io.Writer
	// JSON forces JSON output even on a terminal.
	JSON bool
}

func (d *Deps) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return os.Stdout
}

// wantJSON reports whether output should be JSON: forced by flag, or
// because stdout is not a terminal.
func (d *Deps) wantJSON() bool {
	if d.JSON {
		return true
	}
	if f, ok := d.out().(*os.File); ok {
		return !term.IsTerminal(int(f.Fd()))
	}
	return true
}

// emit writes v as indented JSON, or as a table built by rows
func (d *Deps) emit(v interface{}, headers []string, rows func() [][]string) error {
	if d.wantJSON() {
		enc := json.NewEncoder(d.out())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return writeTable(d.out(), headers, rows())
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func parseUserID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "user id must be a positive integer, got %q", arg)
	}
	return id, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// maskDatabaseURL masks credentials in the database URL for display
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

// getDatabaseInfo returns database connection information
func getDatabaseInfo(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "Not connected"
	}

	var dbName string
	if err := db.QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return "Connected (unknown database)"
	}
	return fmt.Sprintf("Connected to %s", dbName)
}
