// Package sqlite provides the SQLite-backed UserStore, used for local
// development and tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acme/user-service/internal/apperr"
	"github.com/acme/user-service/internal/config"
	"github.com/acme/user-service/internal/model"
	registrymigrate "github.com/acme/user-service/internal/registry/migrate"
	registrystore "github.com/acme/user-service/internal/registry/store"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "sqlite",
		Loader: func(ctx context.Context) (registrystore.UserStore, error) {
			cfg := config.FromContext(ctx)
			db, err := open(cfg.DBURL)
			if err != nil {
				return nil, err
			}
			return &Store{db: db}, nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &migrator{}})
}

func open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// In-memory databases exist per connection; pin the pool to one
	// connection so every query sees the same database.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

type migrator struct{}

func (m *migrator) Name() string { return "sqlite-schema" }

func (m *migrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.DBKind != "sqlite" {
		return nil
	}
	if !cfg.MigrateAtStart {
		return nil
	}
	log.Info("Running migration", "name", m.Name())
	db, err := open(cfg.DBURL)
	if err != nil {
		return fmt.Errorf("migration: failed to connect: %w", err)
	}
	return db.WithContext(ctx).AutoMigrate(&model.User{})
}

// Store implements registrystore.UserStore on SQLite via gorm.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an existing gorm connection. Used by tests that manage their
// own in-memory database.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// Open opens the database at dsn and runs the schema migration. Convenience
// for tests and tooling.
func Open(dsn string) (*Store, error) {
	db, err := open(dsn)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Create(ctx context.Context, user *model.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return mapError("create", user.Email, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("User", id.String())
	}
	if err != nil {
		return nil, apperr.NewRepository("get", "users", err)
	}
	return &user, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("email = ? AND deleted_at IS NULL", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("User", email)
	}
	if err != nil {
		return nil, apperr.NewRepository("getByEmail", "users", err)
	}
	return &user, nil
}

func (s *Store) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.User{}).Where("deleted_at IS NULL")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.NewRepository("list", "users", err)
	}

	var users []model.User
	err := q.Order("created_at ASC").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, apperr.NewRepository("list", "users", err)
	}
	return users, total, nil
}

func (s *Store) Update(ctx context.Context, user *model.User) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND deleted_at IS NULL", user.ID).
		Updates(map[string]any{
			"name":       user.Name,
			"email":      user.Email,
			"active":     user.Active,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return mapError("update", user.Email, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("User", user.ID.String())
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]any{"deleted_at": now, "updated_at": now})
	if res.Error != nil {
		return apperr.NewRepository("delete", "users", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("User", id.String())
	}
	return nil
}

func mapError(op, email string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return apperr.NewDuplicateEmail(email)
	}
	return apperr.NewRepository(op, "users", err)
}
