// Package postgres provides the PostgreSQL-backed UserStore.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/acme/user-service/internal/apperr"
	"github.com/acme/user-service/internal/config"
	"github.com/acme/user-service/internal/model"
	registrymigrate "github.com/acme/user-service/internal/registry/migrate"
	registrystore "github.com/acme/user-service/internal/registry/store"
	"github.com/acme/user-service/internal/web"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "postgres",
		Loader: func(ctx context.Context) (registrystore.UserStore, error) {
			cfg := config.FromContext(ctx)
			db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{})
			if err != nil {
				return nil, fmt.Errorf("failed to connect to postgres: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("failed to get underlying db: %w", err)
			}
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
			if web.DBPoolMaxConnections != nil {
				web.DBPoolMaxConnections.Set(float64(cfg.DBMaxOpenConns))
			}

			// Periodically update the open connections gauge.
			go func() {
				ticker := time.NewTicker(15 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if web.DBPoolOpenConnections != nil {
							web.DBPoolOpenConnections.Set(float64(sqlDB.Stats().OpenConnections))
						}
					}
				}
			}()

			return &Store{db: db}, nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &migrator{}})
}

type migrator struct{}

func (m *migrator) Name() string { return "postgres-schema" }

func (m *migrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.DBKind != "postgres" {
		return nil
	}
	if !cfg.MigrateAtStart {
		return nil
	}
	log.Info("Running migration", "name", m.Name())
	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("migration: failed to connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return db.WithContext(ctx).AutoMigrate(&model.User{})
}

// Store implements registrystore.UserStore on PostgreSQL via gorm.
type Store struct {
	db *gorm.DB
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

// mapError classifies a write failure: unique violations on the email index
// become the duplicate-email conflict kind, everything else is wrapped as a
// repository failure.
func mapError(op, email string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.NewDuplicateEmail(email)
	}
	return apperr.NewRepository(op, "users", err)
}
