package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"TradingGuide/internal/api"
	"TradingGuide/internal/notifier"
	"TradingGuide/internal/recorder"
	"TradingGuide/internal/scheduler"
)

var runOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, watchlist schedule and Telegram bot",
	Long: `Starts the HTTP API (/api/forecast/{ticker}, /api/capm, /metrics), runs
watchlist forecasts on the configured cron schedule and, when a bot token
is configured, answers /forecast and /capm commands over Telegram.

Example:
  forecaster serve --config configs/config.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "forecast the watchlist immediately")
	rootCmd.AddCommand(serveCmd)
}

// logSender stands in for Telegram when no bot is configured.
type logSender struct{ log zerolog.Logger }

func (l logSender) SendWithRetry(_ context.Context, text string, _ int) error {
	l.log.Info().Str("message", text).Msg("notification")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	cfg, log := a.cfg, a.log
	ctx := cmd.Context()

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	var sender scheduler.Sender = logSender{log: log}
	var tn *notifier.TelegramNotifier
	if err := cfg.ValidateNotifier(); err == nil {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		sender = tn
	} else {
		log.Warn().Err(err).Msg("telegram disabled")
	}

	sched := scheduler.NewScheduler(ctx, a.pipeline, a.capm, sender, rec, cfg.Watchlist, cfg.Schedule.Parallelism, log)
	if err := sched.RegisterAll(cfg.Schedule.ForecastCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(sched, a.capm), a.metrics.Handler(), log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if tn != nil {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
	}
	if runOnStart {
		g.Go(func() error {
			reports, failures := sched.RunWatchlist(gctx)
			if err := sender.SendWithRetry(gctx, notifier.FormatWatchlistSummary(reports, failures), 3); err != nil {
				log.Error().Err(err).Msg("send watchlist summary")
			}
			return nil
		})
	}

	log.Info().Strs("watchlist", cfg.Watchlist).Msg("trading guide is running, press Ctrl+C to stop")
	err = g.Wait()
	log.Info().Msg("trading guide stopped")
	return err
}
