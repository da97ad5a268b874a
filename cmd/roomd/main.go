// Command roomd serves the poker room over HTTP. State lives in Postgres
// when a database URL is configured, in memory otherwise.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cardroom/engine/internal/api"
	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/ledger"
	"github.com/cardroom/engine/internal/persistence"
	"github.com/cardroom/engine/internal/room"
	"github.com/cardroom/engine/internal/rules"
)

const envPrefix = "ROOMD"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "roomd",
		Short:         "Poker room daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("database-url", "", "Postgres connection URL; empty runs in memory")
	flags.String("admin-token", "", "bearer token for the admin endpoints")
	flags.Int64("card-seed", 0, "seeded card source for local play; 0 uses crypto randomness")
	flags.String("log-level", "info", "zerolog level")
	flags.Bool("log-pretty", false, "human-readable console log output")
	flags.StringSlice("seed-account", nil, "account to fund at startup, as name=balance")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	log, err := newLogger(v.GetString("log-level"), v.GetBool("log-pretty"))
	if err != nil {
		return err
	}

	repo, cleanup, err := newRepository(ctx, v.GetString("database-url"), log)
	if err != nil {
		return err
	}
	defer cleanup()

	funds := ledger.NewInMemory()
	if err := seedAccounts(funds, v.GetStringSlice("seed-account")); err != nil {
		return err
	}

	var source rules.CardSource
	if seed := v.GetInt64("card-seed"); seed != 0 {
		log.Warn().Int64("seed", seed).Msg("using a seeded card source, unfit for real play")
		source = rules.NewSeededSource(seed)
	}

	adminToken := v.GetString("admin-token")
	if adminToken == "" {
		log.Warn().Msg("no admin token configured, admin endpoints are disabled")
	}

	r, err := room.New(repo, funds, source, room.NewStaticTokenAuthorizer(adminToken), log)
	if err != nil {
		return err
	}
	restored, err := r.Restore()
	if err != nil {
		return fmt.Errorf("restore tables: %w", err)
	}
	if restored > 0 {
		log.Info().Int("tables", restored).Msg("restored persisted tables")
	}

	addr := v.GetString("addr")
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(r, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("roomd listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(level string, pretty bool) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log := zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Logger()
	if pretty {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log, nil
}

func newRepository(ctx context.Context, databaseURL string, log zerolog.Logger) (persistence.Repository, func(), error) {
	if databaseURL == "" {
		log.Info().Msg("no database configured, state is in memory only")
		return persistence.NewInMemoryRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := persistence.MigratePostgres(pingCtx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("database migration failed: %w", err)
	}

	log.Info().Msg("connected to postgres")
	return persistence.NewPostgresRepository(db), func() { _ = db.Close() }, nil
}

// seedAccounts funds ledger accounts from name=balance pairs. The in-process
// ledger stands in for external custody.
func seedAccounts(funds *ledger.InMemory, pairs []string) error {
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid seed-account %q, want name=balance", pair)
		}
		balance, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid balance in seed-account %q: %w", pair, err)
		}
		if domain.Chips(balance) > domain.MaxChips {
			return fmt.Errorf("seed-account %q exceeds the chip bound", pair)
		}
		funds.Seed(name, domain.Chips(balance))
	}
	return nil
}
