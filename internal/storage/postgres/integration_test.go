//go:build integration

package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"calendar_bot/internal/config"
	"calendar_bot/internal/domain"
	"calendar_bot/testdata/utils"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_settings.up.sql"),
			filepath.Join(migrationsPath, "002_create_notification_log.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM settings_history")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM bot_settings")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM notification_log")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestSettingsStore_LoadEmpty() {
	store := NewSettingsStore(s.db, NewTransactionManager(s.db))

	settings, err := store.Load(s.ctx)
	s.NoError(err)
	s.Nil(settings)
}

func (s *PostgresIntegrationSuite) TestSettingsStore_SaveAndLoad() {
	store := NewSettingsStore(s.db, NewTransactionManager(s.db))

	settings := config.DefaultSettings()
	settings.CalendarID = "team@example.com"
	settings.DailySummaryTime = "10:30"
	settings.YouTubePlatformLinks = map[string]string{"Twitch": "https://twitch.tv/x"}

	s.Require().NoError(store.Save(s.ctx, &settings))

	loaded, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(loaded)
	s.Equal(settings, *loaded)
}

func (s *PostgresIntegrationSuite) TestSettingsStore_SaveOverwritesAndKeepsHistory() {
	store := NewSettingsStore(s.db, NewTransactionManager(s.db))

	first := config.DefaultSettings()
	second := config.DefaultSettings()
	second.DailySummaryEnabled = false

	s.Require().NoError(store.Save(s.ctx, &first))
	s.Require().NoError(store.Save(s.ctx, &second))

	loaded, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.False(loaded.DailySummaryEnabled)

	var rows, history int
	s.Require().NoError(s.db.GetContext(s.ctx, &rows, "SELECT COUNT(*) FROM bot_settings"))
	s.Require().NoError(s.db.GetContext(s.ctx, &history, "SELECT COUNT(*) FROM settings_history"))
	s.Equal(1, rows)
	s.Equal(2, history)
}

func (s *PostgresIntegrationSuite) TestSettingsStore_JoinsOuterTransaction() {
	tm := NewTransactionManager(s.db)
	store := NewSettingsStore(s.db, tm)
	settings := config.DefaultSettings()

	errAbort := errors.New("abort")
	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		s.Require().NoError(store.Save(ctx, &settings))
		return errAbort
	})
	s.ErrorIs(err, errAbort)

	loaded, err := store.Load(s.ctx)
	s.NoError(err)
	s.Nil(loaded)

	var history int
	s.Require().NoError(s.db.GetContext(s.ctx, &history, "SELECT COUNT(*) FROM settings_history"))
	s.Equal(0, history)
}

func (s *PostgresIntegrationSuite) TestSettingsStore_BacksConfigStore() {
	repo := NewSettingsStore(s.db, NewTransactionManager(s.db))

	store, err := config.NewStore(s.ctx, repo, config.DefaultSettings(), discardLogger())
	s.Require().NoError(err)

	_, err = store.Update(s.ctx, func(st *config.Settings) error {
		st.YouTubeChannelID = "UC123"
		return nil
	})
	s.Require().NoError(err)

	reopened, err := config.NewStore(s.ctx, repo, config.DefaultSettings(), discardLogger())
	s.Require().NoError(err)
	s.Equal("UC123", reopened.Current().YouTubeChannelID)
}

func (s *PostgresIntegrationSuite) TestNotificationLog_Record() {
	log := NewNotificationLog(s.db)

	sent := &domain.DeliveryRecord{
		Poller:      "daily_summary",
		Destination: "summary-channel",
		ItemID:      "2026-10-19",
		Status:      domain.DeliveryStatusSent,
	}
	failed := &domain.DeliveryRecord{
		Poller:      "youtube_live",
		Destination: "live-channel",
		ItemID:      "vid1",
		Status:      domain.DeliveryStatusFailed,
		Error:       utils.Ptr("delivery failed: 403 Forbidden"),
	}

	s.Require().NoError(log.Record(s.ctx, sent))
	s.Require().NoError(log.Record(s.ctx, failed))

	s.Greater(sent.ID, int64(0))
	s.Greater(failed.ID, sent.ID)
	s.False(sent.CreatedAt.IsZero())

	var stored []domain.DeliveryRecord
	err := s.db.SelectContext(s.ctx, &stored, `
		SELECT id, poller, destination, item_id, status, error, created_at
		FROM notification_log ORDER BY id`)
	s.Require().NoError(err)
	s.Require().Len(stored, 2)

	s.Nil(stored[0].Error)
	s.Equal("2026-10-19", stored[0].ItemID)
	s.Require().NotNil(stored[1].Error)
	s.Equal("delivery failed: 403 Forbidden", *stored[1].Error)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
