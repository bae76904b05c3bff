// Package service implements the user business logic between the HTTP
// handlers and the store.
package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/acme/user-service/internal/apperr"
	"github.com/acme/user-service/internal/model"
	"github.com/acme/user-service/internal/registry/store"
	"github.com/google/uuid"
)

const serviceName = "UserService"

const maxNameLength = 100

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// UserService owns validation and domain rules for users. Expected failures
// are raised as apperr kinds; anything unexpected from the store is wrapped
// so callers only ever see domain-shaped errors.
type UserService struct {
	store           store.UserStore
	defaultPageSize int
	maxPageSize     int
}

// NewUserService returns a UserService backed by the given store.
func NewUserService(s store.UserStore, defaultPageSize, maxPageSize int) *UserService {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &UserService{store: s, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

// Create validates and persists a new user.
func (s *UserService) Create(ctx context.Context, name, email string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validateUser(name, email); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, s.wrap("Create", err)
	}
	return user, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, rawID string) (*model.User, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.wrap("Get", err)
	}
	return user, nil
}

// GetByEmail returns the user with the given email address.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.NewArgument("email", "Email cannot be empty.")
	}
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.wrap("GetByEmail", err)
	}
	return user, nil
}

// List returns a page of users plus the total live-user count. Limit is
// clamped to the configured maximum; non-positive values fall back to the
// default page size.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]model.User, int64, error) {
	if offset < 0 {
		return nil, 0, apperr.NewArgument("offset", "Offset cannot be negative.")
	}
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	users, total, err := s.store.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, s.wrap("List", err)
	}
	return users, total, nil
}

// Update replaces the name and email of an active user. Inactive users must
// be reactivated through a dedicated flow before edits are accepted.
func (s *UserService) Update(ctx context.Context, rawID, name, email string) (*model.User, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.wrap("Update", err)
	}
	if !user.Active {
		return nil, apperr.NewBusinessRule(
			"ActiveUserRequired",
			"Inactive users cannot be updated.",
			map[string]any{"userId": id.String()},
		)
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validateUser(name, email); err != nil {
		return nil, err
	}

	user.Name = name
	user.Email = email
	if err := s.store.Update(ctx, user); err != nil {
		return nil, s.wrap("Update", err)
	}
	return s.store.Get(ctx, id)
}

// Deactivate marks an active user inactive.
func (s *UserService) Deactivate(ctx context.Context, rawID string) (*model.User, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.wrap("Deactivate", err)
	}
	if !user.Active {
		return nil, apperr.NewBusinessRule(
			"UserAlreadyInactive",
			"The user is already inactive.",
			map[string]any{"userId": id.String()},
		)
	}
	user.Active = false
	if err := s.store.Update(ctx, user); err != nil {
		return nil, s.wrap("Deactivate", err)
	}
	return s.store.Get(ctx, id)
}

// Delete soft-deletes the user with the given id.
func (s *UserService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.wrap("Delete", err)
	}
	return nil
}

func parseID(rawID string) (uuid.UUID, error) {
	if strings.TrimSpace(rawID) == "" {
		return uuid.Nil, apperr.NewArgument("id", "User ID cannot be empty.")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, apperr.NewArgument("id", "User ID must be a valid UUID.")
	}
	return id, nil
}

func validateUser(name, email string) error {
	v := apperr.NewValidation("User")
	if name == "" {
		v.Add("Name", "Name is required and cannot be empty.")
	} else if len(name) > maxNameLength {
		v.Add("Name", "Name cannot be longer than 100 characters.")
	}
	if email == "" {
		v.Add("Email", "Email is required and cannot be empty.")
	} else if !emailPattern.MatchString(email) {
		v.Add("Email", "Email is not a valid email address.")
	}
	return v.Err()
}

// wrap keeps classified failures as-is and turns anything else into a
// service-operation failure so lower-level causes never cross the boundary
// unwrapped.
func (s *UserService) wrap(op string, err error) error {
	if err == nil || apperr.Classified(err) {
		return err
	}
	return apperr.NewService(serviceName, op, err)
}
