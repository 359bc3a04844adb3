package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/models"
)

// NotificationStore is the per-user inbox. Every statement filters on the
// owning user, so touching someone else's row reads as not found.
type NotificationStore struct {
	db  *database.DB
	now func() time.Time
}

func NewNotificationStore(db *database.DB) *NotificationStore {
	return &NotificationStore{db: db, now: utcNow}
}

func (s *NotificationStore) Create(ctx context.Context, userID int64, message string) (*models.Notification, error) {
	return s.CreateWith(ctx, s.db, userID, message)
}

// CreateWith inserts on q, letting callers make the row part of a wider transaction.
func (s *NotificationStore) CreateWith(ctx context.Context, q database.Queryer, userID int64, message string) (*models.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if message == "" {
		return nil, fmt.Errorf("notification message is empty: %w", apperr.ErrValidation)
	}

	n := &models.Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: s.now(),
	}

	query := `INSERT INTO notifications (user_id, message, created_at, is_read)
			  VALUES (?, ?, ?, FALSE) RETURNING id`
	if err := sqlx.GetContext(ctx, q, &n.ID, q.Rebind(query), n.UserID, n.Message, n.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) Get(ctx context.Context, id, userID int64) (*models.Notification, error) {
	var n models.Notification
	query := `SELECT id, user_id, message, created_at, is_read FROM notifications WHERE id = ? AND user_id = ?`

	err := s.db.GetContext(ctx, &n, s.db.Rebind(query), id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notification %d: %w", id, apperr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// MarkRead flags one of the user's notifications as read. Marking an
// already-read notification succeeds.
func (s *NotificationStore) MarkRead(ctx context.Context, id, userID int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	query := `UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`
	return s.execOwned(ctx, query, id, userID)
}

// MarkAllRead flags every unread notification of the user and reports how
// many changed. Repeated calls report zero.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE`

	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (s *NotificationStore) Delete(ctx context.Context, id, userID int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	query := `DELETE FROM notifications WHERE id = ? AND user_id = ?`
	return s.execOwned(ctx, query, id, userID)
}

// ListUnread returns unread notifications, newest first.
func (s *NotificationStore) ListUnread(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.list(ctx, `WHERE user_id = ? AND is_read = FALSE`, userID)
}

// ListAll returns every notification of the user, newest first.
func (s *NotificationStore) ListAll(ctx context.Context, userID int64) ([]models.Notification, error) {
	return s.list(ctx, `WHERE user_id = ?`, userID)
}

func (s *NotificationStore) list(ctx context.Context, where string, userID int64) ([]models.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	query := `SELECT id, user_id, message, created_at, is_read FROM notifications ` +
		where + ` ORDER BY created_at DESC, id DESC`

	notifications := []models.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, s.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationStore) execOwned(ctx context.Context, query string, id, userID int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
