package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/models"
	"github.com/tahcohcat/xpboard/internal/validation"
)

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)

type UserService struct {
	db     *database.DB
	engine *AchievementEngine
	log    *logger.Log
	now    func() time.Time
}

func NewUserService(db *database.DB, engine *AchievementEngine) *UserService {
	return &UserService{
		db:     db,
		engine: engine,
		log:    logger.Named("users"),
		now:    utcNow,
	}
}

// CreateUser creates a new user account and zeroes its progress counters
func (s *UserService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	if exists, err := s.UsernameExists(ctx, req.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("username %q: %w", req.Username, apperr.ErrConflict)
	}

	user := &models.User{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		CreatedAt:   s.now(),
	}
	if user.DisplayName == "" {
		user.DisplayName = req.Username
	}

	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `INSERT INTO users (username, password_hash, display_name, xp, created_at)
			  VALUES (?, ?, ?, 0, ?) RETURNING id`

	err := s.db.GetContext(ctx, &user.ID, s.db.Rebind(query), user.Username, user.Password, user.DisplayName, user.CreatedAt)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("username %q: %w", req.Username, apperr.ErrConflict)
	} else if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.engine != nil {
		if err := s.engine.InitializeUserProgress(ctx, user.ID); err != nil {
			// Counters are created lazily by RecordProgress anyway.
			s.log.With("user_id", user.ID).WithError(err).Warn("failed to initialize progress")
		}
	}

	s.log.With("user_id", user.ID).Info("user created")
	return user, nil
}

// Authenticate validates login credentials, stamps the login and counts it
// towards login_count achievements.
func (s *UserService) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errInvalidCredentials
	} else if err != nil {
		return nil, err
	}

	if !user.CheckPassword(req.Password) {
		return nil, errInvalidCredentials
	}

	if err := s.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.With("user_id", user.ID).WithError(err).Warn("failed to update last login")
	}

	if s.engine != nil {
		if _, err := s.engine.RecordProgress(ctx, user.ID, models.ConditionLoginCount, 1); err != nil {
			s.log.With("user_id", user.ID).WithError(err).Warn("failed to record login progress")
		}
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, display_name, xp, group_id, created_at, last_login_at
			  FROM users WHERE id = ?`

	err := s.db.GetContext(ctx, &user, s.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user including the password hash
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, password_hash, display_name, xp, group_id, created_at, last_login_at
			  FROM users WHERE username = ?`

	err := s.db.GetContext(ctx, &user, s.db.Rebind(query), username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, apperr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UsernameExists checks if a username is already taken
func (s *UserService) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM users WHERE username = ?`), username)
	return count > 0, err
}

func (s *UserService) UpdateLastLogin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET last_login_at = ? WHERE id = ?`), s.now(), userID)
	return err
}

// AwardXP adds amount to the user's XP total.
func (s *UserService) AwardXP(ctx context.Context, userID, amount int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("xp amount %d: %w", amount, apperr.ErrValidation)
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET xp = xp + ? WHERE id = ?`), amount, userID)
	if err != nil {
		return fmt.Errorf("failed to award xp: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to award xp: %w", err)
	} else if n == 0 {
		return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}
	return nil
}
