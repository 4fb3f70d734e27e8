package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pairquiz-backend/api"
	"pairquiz-backend/internal/auth"
	"pairquiz-backend/internal/config"
	"pairquiz-backend/internal/handlers"
	"pairquiz-backend/internal/middleware"
	"pairquiz-backend/internal/questions"
	"pairquiz-backend/internal/store"
	"pairquiz-backend/internal/telemetry"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the http and websocket server",
	Long: `Start the server. Routes:

  GET  /ws                          realtime socket
  GET  /questions?stage=N           active questions of a stage
  POST /results                     store one player's answer sheet
  GET  /results/{quizSessionId}     compatibility of both sheets

Migrations are applied on start. An empty question bank is filled with
the embedded default bank.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	bank, err := loadBank(ctx, st)
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Error("tracing shutdown", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokens(cfg.JWTSecret)
	srv := http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(cfg, st, questions.NewCategories(bank), tokens),
		ReadHeaderTimeout: 15 * time.Second,
		// Cancelled on shutdown so open sockets stop their read loops.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", slog.String("addr", srv.Addr), slog.Bool("tokens", tokens.Enabled()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newMux(cfg config.Config, st *store.Store, categories questions.Categories, tokens *auth.Tokens) *http.ServeMux {
	comps := handlers.NewComponents(cfg, st, st, clock.New())
	defaults := middleware.Defaults(cfg.Debug)

	mux := http.NewServeMux()
	mux.Handle("GET /ws", middleware.Subprotocols(middleware.Chain(handlers.NewDuelHandler(cfg, comps, tokens), defaults...)))
	mux.Handle("GET /questions", middleware.Chain(handlers.QuestionsHandler(st), defaults...))
	mux.Handle("POST /results", middleware.Chain(handlers.SaveResultHandler(st, tokens), defaults...))
	mux.Handle("GET /results/{quizSessionId}", middleware.Chain(handlers.ResultsHandler(st, categories), defaults...))

	return mux
}

// loadBank returns every active question of the store, seeding the
// embedded bank into an empty store first.
func loadBank(ctx context.Context, st *store.Store) ([]api.Question, error) {
	bank, err := storedBank(ctx, st)
	if err != nil {
		return nil, err
	}
	if len(bank) > 0 {
		return bank, nil
	}

	defaults, err := questions.Load("")
	if err != nil {
		return nil, err
	}
	n, err := st.ReplaceQuestions(ctx, defaults)
	if err != nil {
		return nil, err
	}
	slog.Info("seeded default question bank", slog.Int("questions", n))

	return storedBank(ctx, st)
}

func storedBank(ctx context.Context, st *store.Store) ([]api.Question, error) {
	var bank []api.Question
	for stage := questions.MinStage; stage <= questions.MaxStage; stage++ {
		qs, err := st.QuestionsByStage(ctx, stage)
		if err != nil {
			return nil, err
		}
		bank = append(bank, qs...)
	}
	return bank, nil
}
