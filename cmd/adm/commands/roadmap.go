package commands

import (
	"fmt"

	"coachapp/internal/models"
	contextutils "coachapp/internal/utils"

	"github.com/spf13/cobra"
)

// RoadmapCommands returns the weekly roadmap commands
func RoadmapCommands(deps *Deps) *cobra.Command {
	roadmapCmd := &cobra.Command{
		Use:   "roadmap",
		Short: "Weekly roadmap commands",
		Long: `Weekly roadmap commands.

Available commands:
  generate   - Generate (or fetch) a learner's roadmap for a week
  show       - Show a stored roadmap
  analytics  - Completion rates over recent weeks
  adapt      - Suggest adjustments from recent completion, optionally applying them`,
	}

	roadmapCmd.AddCommand(roadmapGenerateCmd(deps))
	roadmapCmd.AddCommand(roadmapShowCmd(deps))
	roadmapCmd.AddCommand(roadmapAnalyticsCmd(deps))
	roadmapCmd.AddCommand(roadmapAdaptCmd(deps))
	return roadmapCmd
}

func roadmapGenerateCmd(deps *Deps) *cobra.Command {
	var weekOffset int
	cmd := &cobra.Command{
		Use:   "generate <user-id>",
		Short: "Generate a weekly roadmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			roadmap, err := deps.Roadmaps.GenerateWeeklyRoadmap(cmd.Context(), userID, weekOffset)
			if err != nil {
				return contextutils.WrapError(err, "failed to generate roadmap")
			}
			return emitRoadmap(deps, roadmap)
		},
	}
	cmd.Flags().IntVar(&weekOffset, "week", 0, "Week offset from the current week")
	return cmd
}

func roadmapShowCmd(deps *Deps) *cobra.Command {
	var weekOffset int
	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a stored roadmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			roadmap, err := deps.Roadmaps.GetRoadmap(cmd.Context(), userID, weekOffset)
			if err != nil {
				return contextutils.WrapError(err, "failed to load roadmap")
			}
			if roadmap == nil {
				return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "no roadmap for learner %d at week offset %d", userID, weekOffset)
			}
			return emitRoadmap(deps, roadmap)
		},
	}
	cmd.Flags().IntVar(&weekOffset, "week", 0, "Week offset from the current week")
	return cmd
}

func roadmapAnalyticsCmd(deps *Deps) *cobra.Command {
	var weeksBack int
	cmd := &cobra.Command{
		Use:   "analytics <user-id>",
		Short: "Show completion analytics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			analytics, err := deps.Roadmaps.GetRoadmapAnalytics(cmd.Context(), userID, weeksBack)
			if err != nil {
				return contextutils.WrapError(err, "failed to load analytics")
			}
			headers := []string{"WEEK", "START", "COMPLETED", "PENDING", "SKIPPED", "TOTAL", "RATE"}
			return deps.emit(analytics, headers, func() [][]string {
				rows := make([][]string, 0, len(analytics.WeeklyStats)+1)
				for _, w := range analytics.WeeklyStats {
					rows = append(rows, []string{
						w.Week, w.WeekStart.Format("2006-01-02"),
						fmt.Sprint(w.Completed), fmt.Sprint(w.Pending), fmt.Sprint(w.Skipped), fmt.Sprint(w.Total),
						formatFloat(w.CompletionRate),
					})
				}
				rows = append(rows, []string{"average", "", "", "", "", fmt.Sprint(analytics.TotalWeeksTracked), formatFloat(analytics.AvgCompletionRate)})
				return rows
			})
		},
	}
	cmd.Flags().IntVar(&weeksBack, "weeks", 0, "Weeks to look back (default from config)")
	return cmd
}

func roadmapAdaptCmd(deps *Deps) *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "adapt <user-id>",
		Short: "Suggest adjustments from recent completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			directives, err := deps.Roadmaps.AdaptRoadmapBasedOnPerformance(ctx, userID)
			if err != nil {
				return contextutils.WrapError(err, "failed to compute adaptations")
			}
			if apply && len(directives) > 0 {
				if _, err := deps.Users.ApplyDirectives(ctx, userID, directives); err != nil {
					return contextutils.WrapError(err, "failed to apply adaptations")
				}
				deps.Logger.Info(ctx, "Adaptations applied", map[string]interface{}{
					"user_id":    userID,
					"directives": len(directives),
				})
			}
			return emitDirectives(deps, directives)
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the suggested adjustments to the learner's profile")
	return cmd
}

func emitRoadmap(deps *Deps, roadmap *models.Roadmap) error {
	headers := []string{"DAY", "SUBJECT", "TOPIC", "ACTIVITY", "HOURS", "PRIORITY", "STATUS"}
	return deps.emit(roadmap, headers, func() [][]string {
		rows := make([][]string, 0, len(roadmap.Items))
		for _, item := range roadmap.Items {
			rows = append(rows, []string{
				fmt.Sprint(item.DayOfWeek), item.SubjectID, item.TopicName, string(item.ActivityType),
				formatFloat(item.StudyHours), fmt.Sprint(item.Priority), string(item.Status),
			})
		}
		return rows
	})
}

func emitDirectives(deps *Deps, directives []models.Directive) error {
	headers := []string{"TYPE", "SUBJECT", "REASON", "ACTION"}
	return deps.emit(directives, headers, func() [][]string {
		rows := make([][]string, 0, len(directives))
		for _, d := range directives {
			rows = append(rows, []string{string(d.Type), d.SubjectID, d.Reason, d.Action})
		}
		return rows
	})
}
