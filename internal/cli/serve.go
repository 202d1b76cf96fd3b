package cli

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/alphabot-ai/forum/internal/auth"
	"github.com/alphabot-ai/forum/internal/config"
	httpapp "github.com/alphabot-ai/forum/internal/http"
	"github.com/alphabot-ai/forum/internal/jobs"
	"github.com/alphabot-ai/forum/internal/store/sqlite"
)

// serveFlags maps command line flags onto config keys.
var serveFlags = map[string]string{
	"addr":        "addr",
	"db":          "db",
	"log-level":   "log_level",
	"log-format":  "log_format",
	"cors-origin": "cors_origin",
	"max-conns":   "max_conns",
}

func initServeCommand() *cobra.Command {
	serveCommand := &cobra.Command{
		Use:   "serve",
		Short: "Run the forum API server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addServeFlags(serveCommand)
	return serveCommand
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "Listen address (default :$PORT or :3000)")
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().String("log-level", "", "Log level")
	cmd.Flags().String("log-format", "", "Log format: text or json")
	cmd.Flags().String("cors-origin", "", "Origin allowed to call the API from a browser")
	cmd.Flags().Int("max-conns", 0, "Database connection pool size")
}

// loadConfig merges defaults, the config file, FORUM_* variables and the
// flags that were set on cmd, in increasing priority.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v, err := config.New(configFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.FromViper(v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flag, key := range serveFlags {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := cfg.Logger()
	if cfg.UsingDefaultSecret() {
		log.Warn("signing tokens with the built-in development secret; set FORUM_SECRET")
	}

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()
	st.SetPoolSize(cfg.MaxConns)

	authSvc := auth.NewService([]byte(cfg.Secret), cfg.TokenTTL)
	server := httpapp.NewServer(st, authSvc, cfg, log)

	scheduler, err := jobs.New(st, server.Metrics().Entities, log, jobs.Schedules{
		Stats:    cfg.StatsSchedule,
		Optimize: cfg.OptimizeSchedule,
	})
	if err != nil {
		return err
	}
	if err := scheduler.RefreshCounts(cmd.Context()); err != nil {
		log.WithError(err).Warn("initial stats refresh failed")
	}
	scheduler.Start()
	defer scheduler.Stop()

	errLog := log.WriterLevel(logrus.ErrorLevel)
	defer errLog.Close()
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ErrorLog:          stdlog.New(errLog, "", 0),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": cfg.Addr, "db": cfg.DBPath}).Info("forum listening")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func initTokenCommand() *cobra.Command {
	var userID int64
	tokenCommand := &cobra.Command{
		Use:   "token",
		Short: "Sign a session token for a user id with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user-id must be positive")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			token, err := auth.NewService([]byte(cfg.Secret), cfg.TokenTTL).Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCommand.Flags().Int64Var(&userID, "user-id", 0, "User id to embed in the token (required)")
	return tokenCommand
}
