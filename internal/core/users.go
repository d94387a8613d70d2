package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrInvalidInput   = errors.New("invalid input")
)

// ValidationError lists request fields that failed validation.
// errors.Is(err, ErrInvalidInput) holds for it.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// CreateUserRequest is the body of a create-user call.
type CreateUserRequest struct {
	FullName     string `json:"fullName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Phone        string `json:"phone" validate:"required"`
	Role         Role   `json:"role" validate:"required,role"`
	Address      string `json:"address"`
	IsActive     *bool  `json:"isActive"`
	DepartmentID string `json:"departmentId"`
	ManagerID    string `json:"managerId"`
	Notes        string `json:"notes"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged.
type UpdateUserRequest struct {
	FullName     *string `json:"fullName" validate:"omitempty,min=1"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Password     *string `json:"password" validate:"omitempty,min=6"`
	Phone        *string `json:"phone" validate:"omitempty,min=1"`
	Role         *Role   `json:"role" validate:"omitempty,role"`
	Address      *string `json:"address"`
	IsActive     *bool   `json:"isActive"`
	DepartmentID *string `json:"departmentId"`
	ManagerID    *string `json:"managerId"`
	Notes        *string `json:"notes"`
}

// StatsCache stores the last computed UserStats.
// Get reports ok=false on a miss.
type StatsCache interface {
	Get(ctx context.Context) (stats *UserStats, ok bool, err error)
	Set(ctx context.Context, stats *UserStats) error
	Invalidate(ctx context.Context) error
}

// UserService implements user CRUD and the export dashboard counts.
type UserService struct {
	repo     UserRepository
	hasher   PasswordHasher
	validate *validator.Validate
	cache    StatsCache
	now      func() time.Time
}

// NewUserService creates the service. cache may be nil.
func NewUserService(repo UserRepository, hasher PasswordHasher, cache StatsCache) *UserService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := ParseRole(fl.Field().String())
		return ok
	})

	return &UserService{
		repo:     repo,
		hasher:   hasher,
		validate: v,
		cache:    cache,
		now:      time.Now,
	}
}

func (s *UserService) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describeTag(fe)
	}
	return &ValidationError{Fields: fields}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "role":
		return "must be one of " + strings.Join(RoleCodes(), ", ")
	default:
		return "failed " + fe.Tag()
	}
}

// Create adds a user. The email must not be in use.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.check(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, req.Email)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	u := &User{
		FullName:     req.FullName,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         req.Role,
		Address:      req.Address,
		IsActive:     active,
		DepartmentID: req.DepartmentID,
		ManagerID:    req.ManagerID,
		Notes:        req.Notes,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.InvalidateStats(ctx)
	return u, nil
}

// List returns users matching filter, sorted by full name.
func (s *UserService) List(ctx context.Context, filter UserFilter) ([]User, error) {
	users, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, strings.TrimSpace(email))
}

// Update applies the non-nil fields of req to the user with the given id.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != u.Email {
			if _, err := s.repo.FindByEmail(ctx, email); err == nil {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
			} else if !errors.Is(err, ErrUserNotFound) {
				return nil, err
			}
			u.Email = email
		}
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	setIf(&u.FullName, req.FullName)
	setIf(&u.Phone, req.Phone)
	setIf(&u.Address, req.Address)
	setIf(&u.DepartmentID, req.DepartmentID)
	setIf(&u.ManagerID, req.ManagerID)
	setIf(&u.Notes, req.Notes)
	if req.Role != nil {
		u.Role = *req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.InvalidateStats(ctx)
	return u, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateStats(ctx)
	return nil
}

// Stats returns the total user count and a count for every role,
// including roles with no users.
func (s *UserService) Stats(ctx context.Context) (*UserStats, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			slog.Warn("stats cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	var (
		total  int64
		byRole map[Role]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.Count(gctx)
		if err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.CountByRole(gctx)
		if err != nil {
			return fmt.Errorf("count users by role: %w", err)
		}
		byRole = counts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &UserStats{
		Total:       total,
		ByRole:      make(map[Role]int64, len(roleTable)),
		GeneratedAt: s.now(),
	}
	for _, r := range Roles() {
		stats.ByRole[r] = byRole[r]
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stats); err != nil {
			slog.Warn("stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

// InvalidateStats drops cached stats. Failures are logged, not returned.
func (s *UserService) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("stats cache invalidate failed", "error", err)
	}
}

// Ping checks that the backing store is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
