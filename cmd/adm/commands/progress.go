package commands

import (
	"fmt"

	"coachapp/internal/models"
	contextutils "coachapp/internal/utils"

	"github.com/spf13/cobra"
)

// ProgressCommands returns the topic progress commands
func ProgressCommands(deps *Deps) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Topic progress commands",
	}
	progressCmd.AddCommand(progressShowCmd(deps))
	progressCmd.AddCommand(progressSetCmd(deps))
	return progressCmd
}

func progressShowCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a learner's progress per topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			records, err := deps.Progress.GetProgress(cmd.Context(), userID)
			if err != nil {
				return contextutils.WrapError(err, "failed to load progress")
			}
			return emitProgress(deps, records, records)
		},
	}
}

func progressSetCmd(deps *Deps) *cobra.Command {
	var update models.ProgressUpdate

	cmd := &cobra.Command{
		Use:   "set <user-id> <topic-id>",
		Short: "Overwrite a learner's progress snapshot for one topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			if update.MasteryLevel < 0 || update.MasteryLevel > 1 {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "mastery must be between 0 and 1, got %v", update.MasteryLevel)
			}
			if update.CorrectAnswers > update.Attempts {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "correct answers (%d) exceed attempts (%d)", update.CorrectAnswers, update.Attempts)
			}
			update.TopicID = args[1]

			record, err := deps.Progress.UpsertProgress(cmd.Context(), userID, update)
			if err != nil {
				return contextutils.WrapError(err, "failed to update progress")
			}
			return emitProgress(deps, record, []models.ProgressRecord{*record})
		},
	}

	cmd.Flags().Float64Var(&update.MasteryLevel, "mastery", 0, "Mastery level between 0 and 1")
	cmd.Flags().IntVar(&update.TimeSpentMinutes, "minutes", 0, "Total minutes spent on the topic")
	cmd.Flags().IntVar(&update.Attempts, "attempts", 0, "Total attempts")
	cmd.Flags().IntVar(&update.CorrectAnswers, "correct", 0, "Total correct answers")
	_ = cmd.MarkFlagRequired("mastery")
	return cmd
}

func emitProgress(deps *Deps, v interface{}, records []models.ProgressRecord) error {
	headers := []string{"TOPIC", "SUBJECT", "MASTERY", "STATUS", "ATTEMPTS", "CORRECT", "MINUTES"}
	return deps.emit(v, headers, func() [][]string {
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				r.TopicID, r.SubjectID, formatFloat(r.MasteryLevel), string(r.Status),
				fmt.Sprint(r.Attempts), fmt.Sprint(r.CorrectAnswers), fmt.Sprint(r.TimeSpentMinutes),
			})
		}
		return rows
	})
}
