package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"google.golang.org/api/option"

	"calendar_bot/internal/config"
	"calendar_bot/internal/discord"
	"calendar_bot/internal/domain"
	"calendar_bot/internal/notify"
	"calendar_bot/internal/scheduler"
	"calendar_bot/internal/service"
	"calendar_bot/internal/source/gcal"
	"calendar_bot/internal/source/youtube"
	"calendar_bot/internal/storage/file"
	"calendar_bot/internal/storage/postgres"
	"calendar_bot/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var db *sqlx.DB
	if cfg.Database.Enabled() {
		conn, err := sqlx.Connect("postgres", cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer conn.Close()
		db = conn
		logger.Info("connected to database")
	}

	repo, err := settingsRepository(cfg, db)
	if err != nil {
		return err
	}
	settings, err := config.NewStore(ctx, repo, cfg.Defaults, logger)
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	notifier, closeNotifier, err := newNotifier(cfg, session, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	// Every poller gets its own delivery log writer when a database is available.
	notifierFor := func(poller string) service.Notifier {
		if db == nil {
			return notifier
		}
		return notify.NewRecorder(notifier, postgres.NewNotificationLog(db), poller, logger)
	}

	retryCfg := cfg.Google.Retry
	var jobs []scheduler.Job

	var (
		calendar discord.Calendar
		forcer   discord.SummaryForcer = calendarUnavailable{}
	)

	tokens, err := gcal.NewFileTokenSource(ctx, cfg.Google.CalendarTokenFile, logger)
	if err != nil {
		logger.Warn("calendar disabled, run calendar-auth to authorize", "token_file", cfg.Google.CalendarTokenFile, "error", err)
	} else {
		calSource, err := gcal.New(ctx, gcal.Config{
			MaxAttempts:    retryCfg.MaxAttempts,
			InitialBackoff: retryCfg.InitialBackoff,
			MaxBackoff:     retryCfg.MaxBackoff,
		}, logger, option.WithTokenSource(tokens))
		if err != nil {
			return err
		}

		summary := service.NewSummaryService(calSource, notifierFor(service.SummaryPollerName), settings, logger)
		calendar, forcer = calSource, summary
		jobs = append(jobs,
			service.NewEventService(calSource, notifierFor(service.EventPollerName), settings, logger, time.Now()),
			summary,
		)
	}

	if cfg.Google.YouTubeAPIKey != "" {
		ytSource, err := youtube.New(ctx, youtube.Config{
			MaxAttempts:    retryCfg.MaxAttempts,
			InitialBackoff: retryCfg.InitialBackoff,
			MaxBackoff:     retryCfg.MaxBackoff,
		}, logger, option.WithAPIKey(cfg.Google.YouTubeAPIKey))
		if err != nil {
			return err
		}

		jobs = append(jobs, service.NewLivestreamService(ytSource, notifierFor(service.LivestreamPollerName), settings, logger,
			service.LivestreamOptions{
				MaxResults:  cfg.Pollers.LiveMaxResults,
				StaleMargin: cfg.Pollers.StaleMargin,
			}))
	} else {
		logger.Warn("livestream monitor disabled, no youtube api key configured")
	}

	bot := discord.NewBot(session, settings, forcer, calendar, discord.Options{
		GuildID: cfg.Discord.GuildID,
		OwnerID: cfg.Discord.OwnerID,
	}, logger)

	session.AddHandler(bot.HandleInteraction(ctx))
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("connected to discord", "user", r.User.Username, "guilds", len(r.Guilds))
		if err := bot.Register(r.User.ID); err != nil {
			logger.Error("failed to register commands", "error", err)
		}
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer session.Close()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr, logger)
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		runner := scheduler.NewRunner(job, scheduler.Options{
			Backoff:         cfg.Pollers.Backoff,
			DisabledRecheck: cfg.Pollers.DisabledRecheck,
		}, logger)

		wg.Go(func() {
			if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("poller stopped", "poller", job.Name(), "error", err)
			}
		})
	}

	logger.Info("calendar bot started",
		"pollers", len(jobs),
		"notifier", cfg.Notifier.Driver,
		"settings_backend", cfg.Settings.Backend,
	)

	<-ctx.Done()
	wg.Wait()
	logger.Info("calendar bot stopped")

	return nil
}

func settingsRepository(cfg *config.Config, db *sqlx.DB) (config.SettingsRepository, error) {
	switch cfg.Settings.Backend {
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("settings backend postgres needs a database: %w", domain.ErrConfigInvalid)
		}
		return postgres.NewSettingsStore(db, postgres.NewTransactionManager(db)), nil
	case "file":
		return file.NewSettingsStore(cfg.Settings.Path), nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q: %w", cfg.Settings.Backend, domain.ErrConfigInvalid)
	}
}

func newNotifier(cfg *config.Config, session *discordgo.Session, logger *slog.Logger) (service.Notifier, func(), error) {
	switch cfg.Notifier.Driver {
	case "discord":
		return discord.NewNotifier(session, logger), func() {}, nil
	case "rabbitmq":
		rabbitMQ, err := notify.NewRabbitMQ(notify.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return rabbitMQ, func() { rabbitMQ.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier driver %q: %w", cfg.Notifier.Driver, domain.ErrConfigInvalid)
	}
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}

// calendarUnavailable answers forced summaries while no calendar credentials are loaded.
type calendarUnavailable struct{}

func (calendarUnavailable) Force(context.Context) error {
	return fmt.Errorf("calendar not authorized: %w", domain.ErrSourceUnavailable)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
