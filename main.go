// main.go
//
// codebreaker server entrypoint.
//   codebreaker serve    -> run the HTTP API
//   codebreaker migrate  -> apply the schema of a SQL store and exit
//
// Settings come from flags or CODEBREAKER_* environment variables; a
// .env file is loaded first when present.

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/codebreaker/internal/config"
	"github.com/robalobadob/codebreaker/internal/engine"
	"github.com/robalobadob/codebreaker/internal/httpserver"
	"github.com/robalobadob/codebreaker/internal/identity"
	"github.com/robalobadob/codebreaker/internal/store"
	"github.com/robalobadob/codebreaker/internal/words"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	if err := newCmd(&config.Config{}).Execute(); err != nil {
		log.Fatal().Err(err).Msg("codebreaker exited")
	}
}

func newCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "codebreaker",
		Short:         "Team word-guessing game server.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cfg)
			return nil
		},
	}
	config.BindFlags(root.PersistentFlags(), cfg)

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBDriver == store.DriverMemory {
				log.Info().Msg("memory store: nothing to migrate")
				return nil
			}
			if err := store.Migrate(cmd.Context(), cfg.DBDriver, cfg.DBDSN); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DBDriver).Msg("migrations applied")
			return nil
		},
	})

	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetHelpCommand(&cobra.Command{Hidden: true})
	return root
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	lib, err := words.Load(cfg.WordsDir)
	if err != nil {
		return err
	}
	for _, d := range lib.Decks() {
		log.Debug().Str("deck", d.ID).Str("lang", d.Language).Int("words", d.Size).Msg("deck loaded")
	}

	eng := engine.New(st, lib, engine.WithPanicOnInvariant(cfg.PanicOnInvariant))
	srv := httpserver.New(eng, identity.NewIssuer(cfg.JWTSecret, cfg.TokenTTL), lib, httpserver.Options{
		ClientOrigin:   cfg.ClientOrigin,
		PublicURL:      cfg.PublicURL,
		RequestTimeout: cfg.RequestTimeout,
		SecureCookies:  cfg.SecureCookies,
	})

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info().Str("driver", cfg.DBDriver).Str("version", version).Msg("starting codebreaker")

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}
