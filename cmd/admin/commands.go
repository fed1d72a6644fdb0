package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

func newCreateAdminCmd(c *cli) *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account. The password is read from the terminal
without echo, or from the first line of stdin when stdin is not a terminal.

Examples:
  admin create-admin --username root --email root@example.com
  echo "$ADMIN_PASSWORD" | admin create-admin --username root --email root@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			// The CLI runs with operator privileges, so the HTTP bootstrap
			// switch does not apply here.
			result, err := c.app.Auth.RegisterAdmin(cmd.Context(), ports.SignUpRequest{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", result.User.Username, result.User.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username (4-20 characters)")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSweepCmd(c *cli) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Renew or expire overdue subscriptions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Cron.JobTimeout)
			defer cancel()

			if batchSize <= 0 {
				batchSize = c.cfg.Cron.SweepBatchSize
			}
			result, err := c.app.Subscriptions.SweepRenewals(ctx, batchSize)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d renewed=%d expired=%d skipped=%d failed=%d\n",
				result.ProcessedCount, result.RenewedCount, result.ExpiredCount, result.SkippedCount, result.FailedCount)
			for _, e := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", e.SubscriptionID, e.Error)
			}
			if result.FailedCount > 0 {
				return fmt.Errorf("%d subscriptions failed", result.FailedCount)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "maximum subscriptions to process (default RENEWAL_SWEEP_BATCH_SIZE)")
	return cmd
}

func newRemindCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send due renewal reminders once",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), c.cfg.Cron.JobTimeout)
			defer cancel()

			result, err := c.app.Reminders.DispatchDueReminders(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d sent=%d skipped=%d failed=%d\n",
				result.ScannedCount, result.SentCount, result.SkippedCount, result.FailedCount)
			if result.FailedCount > 0 {
				return fmt.Errorf("%d reminders failed", result.FailedCount)
			}
			return nil
		},
	}
}

// readPassword prompts on a terminal, otherwise reads one line from in
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

