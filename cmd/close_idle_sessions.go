package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/psds-microservice/portal-service/internal/config"
	"github.com/psds-microservice/portal-service/internal/database"
	"github.com/psds-microservice/portal-service/internal/service"
	"github.com/spf13/cobra"
)

var closeIdleAfter time.Duration

// There is no automatic idle-session policy in the API; this command is the
// explicit operator-driven alternative, run from cron or by hand.
var closeIdleSessionsCmd = &cobra.Command{
	Use:   "close-idle-sessions",
	Short: "Close active chat sessions with no activity for the given duration",
	RunE:  runCloseIdleSessions,
}

func init() {
	closeIdleSessionsCmd.Flags().DurationVar(&closeIdleAfter, "idle", 72*time.Hour, "close sessions idle for at least this long")
	rootCmd.AddCommand(closeIdleSessionsCmd)
}

func runCloseIdleSessions(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	closed, err := service.NewChatService(db).CloseIdleSessions(ctx, closeIdleAfter)
	if err != nil {
		return fmt.Errorf("close idle sessions: %w", err)
	}
	log.Printf("close-idle-sessions: closed %d sessions idle longer than %s", closed, closeIdleAfter)
	return nil
}
