// Package cli wires the stores and services of the gym club and exposes them
// as one-shot subcommands.
//
// Wiring order matters:
//  1. Open both SQLite stores (creating their directories).
//  2. Attach query tracing when OpenTelemetry is enabled.
//  3. Migrate the schema of each store.
//  4. Build repositories (sharing one Metrics) and services on top.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/gymclub/internal/config"
	"github.com/tbourn/gymclub/internal/observability"
	"github.com/tbourn/gymclub/internal/repo"
	"github.com/tbourn/gymclub/internal/services"
)

// App holds the open stores and the services built on them.
type App struct {
	Gym  *gorm.DB
	Chat *gorm.DB

	MemberRepo *repo.MemberRepo
	ChatRepo   *repo.ChatRepo
	ClassRepo  *repo.ClassRepo

	Members    *services.MemberService
	Chats      *services.ChatService
	Enrollment *services.EnrollmentService

	// SeedPath is the fixture used by "seed" when -file is not given.
	SeedPath string
	// Out receives command output and error labels.
	Out io.Writer
}

// Open opens and migrates both stores and builds the services. m may be nil.
func Open(ctx context.Context, cfg config.Config, m *observability.Metrics, out io.Writer) (*App, error) {
	gym, err := openStore(cfg.GymDBPath, cfg, repo.MigrateGymStore)
	if err != nil {
		return nil, err
	}
	chat, err := openStore(cfg.ChatDBPath, cfg, repo.MigrateChatStore)
	if err != nil {
		_ = repo.Close(gym)
		return nil, err
	}

	members := repo.NewMemberRepo(gym, m)
	chats := repo.NewChatRepo(chat, members, m, cfg.WriteRetries)
	classes := repo.NewClassRepo(gym, m, cfg.WriteRetries)
	limiter := services.NewSendLimiter(cfg.Messages.RPS, cfg.Messages.Burst)

	zerolog.Ctx(ctx).Debug().
		Str("gym_db", cfg.GymDBPath).
		Str("chat_db", cfg.ChatDBPath).
		Int("write_retries", cfg.WriteRetries).
		Msg("stores ready")

	return &App{
		Gym:        gym,
		Chat:       chat,
		MemberRepo: members,
		ChatRepo:   chats,
		ClassRepo:  classes,
		Members:    services.NewMemberService(members),
		Chats:      services.NewChatService(chats, members, cfg.Messages.MaxRunes, limiter),
		Enrollment: services.NewEnrollmentService(classes, chats, members),
		SeedPath:   cfg.SeedPath,
		Out:        out,
	}, nil
}

// Close releases both stores.
func (a *App) Close() error {
	return errors.Join(repo.Close(a.Gym), repo.Close(a.Chat))
}

func openStore(path string, cfg config.Config, migrate func(*gorm.DB) error) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := repo.OpenSQLite(path, repo.Options{
		BusyTimeout: cfg.BusyTimeout,
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			_ = repo.Close(db)
			return nil, err
		}
	}
	if err := migrate(db); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	return db, nil
}
