package commands

import (
	"database/sql"
	"fmt"
	"strings"

	"coachapp/internal/models"
	contextutils "coachapp/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the learner profile commands
func UserCommands(deps *Deps) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Learner profile commands",
		Long: `Learner profile commands.

Available commands:
  create  - Create a learner profile
  show    - Show one learner profile
  list    - List all learners`,
	}

	userCmd.AddCommand(userCreateCmd(deps))
	userCmd.AddCommand(userShowCmd(deps))
	userCmd.AddCommand(userListCmd(deps))
	return userCmd
}

func userCreateCmd(deps *Deps) *cobra.Command {
	var (
		email         string
		track         string
		targetYear    int
		hoursPerDay   int
		preferredTime string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a learner profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			profile := &models.UserProfile{
				Name:               args[0],
				ExamTrack:          models.ExamTrack(strings.ToUpper(track)),
				TargetExamYear:     targetYear,
				StudyHoursPerDay:   hoursPerDay,
				PreferredStudyTime: models.StudyTime(preferredTime),
			}
			if email != "" {
				profile.Email = sql.NullString{String: email, Valid: true}
			}

			created, err := deps.Users.CreateUser(ctx, profile)
			if err != nil {
				return contextutils.WrapError(err, "failed to create learner")
			}
			deps.Logger.Info(ctx, "Learner created", map[string]interface{}{"user_id": created.ID})
			return emitProfiles(deps, created, []models.UserProfile{*created})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address for weekly digests")
	cmd.Flags().StringVar(&track, "track", "", "Exam track: JEE or NEET")
	cmd.Flags().IntVar(&targetYear, "year", 0, "Target exam year")
	cmd.Flags().IntVar(&hoursPerDay, "hours", 0, "Study hours per day (default 6)")
	cmd.Flags().StringVar(&preferredTime, "time", "", "Preferred study time: morning, afternoon, evening or night")
	_ = cmd.MarkFlagRequired("track")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func userShowCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a learner profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			profile, err := deps.Users.GetUser(cmd.Context(), userID)
			if err != nil {
				return contextutils.WrapError(err, "failed to load learner")
			}
			return emitProfiles(deps, profile, []models.UserProfile{*profile})
		},
	}
}

func userListCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all learners",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps.Logger.Info(ctx, "Admin command diagnostics", map[string]interface{}{
				"database_url": maskDatabaseURL(deps.Config.Database.URL),
			})

			profiles, err := deps.Users.ListUsers(ctx)
			if err != nil {
				return contextutils.WrapError(err, "failed to list learners")
			}
			return emitProfiles(deps, profiles, profiles)
		},
	}
}

func emitProfiles(deps *Deps, v interface{}, profiles []models.UserProfile) error {
	headers := []string{"ID", "NAME", "EMAIL", "TRACK", "YEAR", "HOURS", "TIME", "WEAK", "STRONG"}
	return deps.emit(v, headers, func() [][]string {
		rows := make([][]string, 0, len(profiles))
		for _, p := range profiles {
			rows = append(rows, []string{
				fmt.Sprint(p.ID), p.Name, p.Email.String, string(p.ExamTrack),
				fmt.Sprint(p.TargetExamYear), fmt.Sprint(p.StudyHoursPerDay), string(p.PreferredStudyTime),
				strings.Join(p.WeakSubjects, ","), strings.Join(p.StrongSubjects, ","),
			})
		}
		return rows
	})
}
