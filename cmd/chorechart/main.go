package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/backup"
	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/config"
	"github.com/dukerupert/chorechart/internal/database"
	"github.com/dukerupert/chorechart/internal/logging"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/push"
	"github.com/dukerupert/chorechart/internal/schedule"
	"github.com/dukerupert/chorechart/internal/server"
	"github.com/dukerupert/chorechart/internal/store"
)

var envFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config, installs the logger and opens the database. The
// caller must close the returned db.
func setup() (config.Config, *slog.Logger, *sql.DB, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return cfg, logger, nil, fmt.Errorf("opening database: %w", err)
	}
	return cfg, logger, db, nil
}

var rootCmd = &cobra.Command{
	Use:          "chorechart",
	Short:        "Shared chore chart for two",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()

		participants := store.NewParticipantStore(db)
		for p, name := range cfg.DisplayNames {
			if name == "" {
				continue
			}
			if err := participants.SetDisplayName(cmd.Context(), p, name); err != nil {
				return fmt.Errorf("setting display name for %s: %w", p, err)
			}
		}

		srv := server.New(db, cfg, calendar.SystemClock{Location: cfg.Location}, logger)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if n := srv.Notifier(); n != nil {
			n.Start(ctx)
			defer n.Stop()
		} else {
			logger.Info("push notifications disabled, VAPID keys not configured")
		}

		if b := srv.BackupManager(); b.Enabled() {
			b.Start(ctx)
			defer b.Stop()
		}

		// Background cleanup: expired sessions and stale rate limiter entries
		go func() {
			ticker := time.NewTicker(1 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if n, err := srv.SessionStore().DeleteExpired(ctx); err != nil {
						logger.Error("cleanup expired sessions", "error", err)
					} else if n > 0 {
						logger.Info("cleaned up expired sessions", "count", n)
					}
					srv.RateLimiter().Cleanup()
				case <-ctx.Done():
					return
				}
			}
		}()

		httpServer := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("chorechart starting", "addr", httpServer.Addr, "timezone", cfg.Location.String())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		}

		logger.Info("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and print the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()

		v, err := database.Version(db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database at version %d\n", v)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [YYYY-MM]",
	Short: "Print the chore assignments for a month",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		month := calendar.YearMonthOf(calendar.SystemClock{Location: cfg.Location}.Now())
		if len(args) == 1 {
			month = args[0]
		}
		first, err := calendar.ParseYearMonth(month)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, a := range schedule.ForMonth(first) {
			name := cfg.DisplayNames[a.Participant]
			if name == "" {
				name = string(a.Participant)
			}
			fmt.Fprintf(out, "%s  %-3s  %-22s %s\n", a.Date, a.Date.Weekday().String()[:3], a.Label, name)
		}
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <participant>",
	Short: "Set a participant's login password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := model.ParseParticipant(args[0])
		if err != nil {
			return err
		}

		password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		_, _, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.NewParticipantStore(db).SetPasswordHash(cmd.Context(), p, hash); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password set for %s\n", p)
		return nil
	},
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise, so the command also works with piped input.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all chore, tally and strike records and reset participant flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return errors.New("reset deletes all activity; pass --yes to confirm")
		}

		_, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := store.NewParticipantStore(db).ResetActivity(cmd.Context()); err != nil {
			return err
		}
		logger.Info("activity reset")
		fmt.Fprintln(cmd.OutOrStdout(), "All activity deleted")
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload an encrypted database snapshot to the S3 bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, db, err := setup()
		if err != nil {
			return err
		}
		defer db.Close()

		mgr := backup.NewManager(cfg.Backup, db, calendar.SystemClock{Location: cfg.Location}, nil, logger.With("component", "backup"))
		key, err := mgr.RunNow(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", key)

		if prune, _ := cmd.Flags().GetBool("prune"); prune {
			n, err := mgr.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d old snapshots\n", n)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [key]",
	Short: "Replace the database with a snapshot; stop the server first",
	Long:  "Without a key, lists the stored snapshots. With a key, downloads, decrypts and validates it, then replaces the database file.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)
		mgr := backup.NewManager(cfg.Backup, nil, calendar.SystemClock{Location: cfg.Location}, nil, logger.With("component", "backup"))

		if len(args) == 0 {
			snaps, err := mgr.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %8d  %s\n", s.CreatedAt.Format(time.RFC3339), s.SizeBytes, s.Key)
			}
			return nil
		}

		if err := mgr.Restore(cmd.Context(), args[0], cfg.DBPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %s into %s\n", args[0], cfg.DBPath)
		return nil
	},
}

var vapidCmd = &cobra.Command{
	Use:   "vapid",
	Short: "Generate a VAPID key pair for push notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "CHORECHART_VAPID_PUBLIC_KEY=%s\n", pub)
		fmt.Fprintf(out, "CHORECHART_VAPID_PRIVATE_KEY=%s\n", priv)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading CHORECHART_* variables")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().Bool("yes", false, "Confirm deletion")
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().Bool("prune", false, "Delete snapshots older than the retention period")
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(vapidCmd)
}
