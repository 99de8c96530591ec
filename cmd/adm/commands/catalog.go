package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"coachapp/internal/catalog"
	"coachapp/internal/models"
	contextutils "coachapp/internal/utils"

	"github.com/spf13/cobra"
)

// CatalogCommands returns the topic catalog commands
func CatalogCommands(deps *Deps) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Topic catalog commands",
		Long: `Topic catalog commands.

Available commands:
  seed  - Load the embedded subject and topic catalog
  list  - List subjects, or the topics of one subject`,
	}

	catalogCmd.AddCommand(catalogSeedCmd(deps))
	catalogCmd.AddCommand(catalogListCmd(deps))
	return catalogCmd
}

func catalogSeedCmd(deps *Deps) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the catalog",
		Long:  `Insert any subjects and topics that are missing. Existing rows are left untouched, so seeding twice is safe.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				c   *catalog.Catalog
				err error
			)
			if file != "" {
				data, readErr := os.ReadFile(file)
				if readErr != nil {
					return contextutils.WrapErrorf(readErr, "failed to read %s", file)
				}
				c, err = catalog.Parse(data)
			} else {
				c, err = catalog.Default()
			}
			if err != nil {
				return contextutils.WrapError(err, "failed to load catalog")
			}

			subjects, topics, err := deps.Catalog.Seed(ctx, c)
			if err != nil {
				deps.Logger.Error(ctx, "Catalog seed failed", err, nil)
				return contextutils.WrapError(err, "failed to seed catalog")
			}

			result := map[string]int{"subjects_inserted": subjects, "topics_inserted": topics}
			return deps.emit(result, []string{"SUBJECTS INSERTED", "TOPICS INSERTED"}, func() [][]string {
				return [][]string{{fmt.Sprint(subjects), fmt.Sprint(topics)}}
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Seed from this catalog YAML instead of the embedded one")
	return cmd
}

func catalogListCmd(deps *Deps) *cobra.Command {
	var track string
	cmd := &cobra.Command{
		Use:   "list [subject-id]",
		Short: "List subjects or topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				return listTopics(ctx, deps, args[0])
			}

			subjects, err := deps.Catalog.ListSubjects(ctx, models.ExamTrack(strings.ToUpper(track)))
			if err != nil {
				return contextutils.WrapError(err, "failed to list subjects")
			}
			return deps.emit(subjects, []string{"ID", "NAME", "EXAMS"}, func() [][]string {
				rows := make([][]string, 0, len(subjects))
				for _, s := range subjects {
					rows = append(rows, []string{s.ID, s.Name, string(s.ExamApplicability)})
				}
				return rows
			})
		},
	}
	cmd.Flags().StringVar(&track, "track", "", "Only subjects for this exam track (JEE or NEET)")
	return cmd
}

func listTopics(ctx context.Context, deps *Deps, subjectID string) error {
	topics, err := deps.Catalog.ListTopics(ctx, subjectID)
	if err != nil {
		return contextutils.WrapError(err, "failed to list topics")
	}
	return deps.emit(topics, []string{"ID", "NAME", "CHAPTER", "DIFFICULTY", "IMPORTANCE", "HOURS"}, func() [][]string {
		rows := make([][]string, 0, len(topics))
		for _, t := range topics {
			rows = append(rows, []string{
				t.ID, t.Name, t.Chapter,
				fmt.Sprint(t.Difficulty), fmt.Sprint(t.Importance), formatFloat(t.EstimatedHours),
			})
		}
		return rows
	})
}
