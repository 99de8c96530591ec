package commands

import (
	"coachapp/internal/services"
	contextutils "coachapp/internal/utils"

	"github.com/spf13/cobra"
)

// EmailCommands returns the email commands
func EmailCommands(deps *Deps) *cobra.Command {
	emailCmd := &cobra.Command{
		Use:   "email",
		Short: "Email commands",
	}
	emailCmd.AddCommand(emailTestCmd(deps))
	return emailCmd
}

func emailTestCmd(deps *Deps) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "test <address>",
		Short: "Send a test email to check SMTP settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !deps.Mailer.IsEnabled() {
				return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable, "email is disabled in the configuration")
			}
			data := services.TestEmailData(args[0], message)
			if err := deps.Mailer.SendEmail(ctx, args[0], "Learning coach SMTP check", services.TemplateTestEmail, data); err != nil {
				return contextutils.WrapError(err, "failed to send test email")
			}
			deps.Logger.Info(ctx, "Test email sent", map[string]interface{}{"to": args[0]})
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "This is a test message from the learning coach.", "Body text")
	return cmd
}
