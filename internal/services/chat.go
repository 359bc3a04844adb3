package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tahcohcat/xpboard/internal/apperr"
	"github.com/tahcohcat/xpboard/internal/database"
	"github.com/tahcohcat/xpboard/internal/logger"
	"github.com/tahcohcat/xpboard/internal/models"
	"github.com/tahcohcat/xpboard/internal/validation"
)

// ChatService owns study groups and their message history. A user belongs to
// at most one group at a time.
type ChatService struct {
	db     *database.DB
	engine *AchievementEngine
	log    *logger.Log
	now    func() time.Time
}

func NewChatService(db *database.DB, engine *AchievementEngine) *ChatService {
	return &ChatService{db: db, engine: engine, log: logger.Named("chat"), now: utcNow}
}

// CreateGroup creates a group and moves its creator into it.
func (s *ChatService) CreateGroup(ctx context.Context, userID int64, req *models.CreateGroupRequest) (*models.Group, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	g := &models.Group{Name: req.Name, CreatedBy: userID, CreatedAt: s.now()}
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `INSERT INTO study_groups (name, created_by, created_at) VALUES (?, ?, ?) RETURNING id`
		if err := tx.GetContext(ctx, &g.ID, tx.Rebind(query), g.Name, g.CreatedBy, g.CreatedAt); err != nil {
			return err
		}
		return setGroup(ctx, tx, userID, g.ID)
	})
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("group %q: %w", req.Name, apperr.ErrConflict)
	} else if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.log.With("group_id", g.ID).With("user_id", userID).Info("group created")
	return g, nil
}

func (s *ChatService) GetGroup(ctx context.Context, groupID int64) (*models.Group, error) {
	var g models.Group
	query := `SELECT id, name, created_by, created_at FROM study_groups WHERE id = ?`
	err := s.db.GetContext(ctx, &g, s.db.Rebind(query), groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %d: %w", groupID, apperr.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// JoinGroup moves the user into groupID, leaving any previous group.
func (s *ChatService) JoinGroup(ctx context.Context, userID, groupID int64) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}
	return setGroup(ctx, s.db, userID, groupID)
}

// CheckMembership fails with ErrNotFound for an unknown group and
// ErrForbidden when the user is not one of its members.
func (s *ChatService) CheckMembership(ctx context.Context, userID, groupID int64) error {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return err
	}

	var count int
	query := `SELECT COUNT(*) FROM users WHERE id = ? AND group_id = ?`
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(query), userID, groupID); err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("user %d is not a member of group %d: %w", userID, groupID, apperr.ErrForbidden)
	}
	return nil
}

// History returns the group's messages, oldest first.
func (s *ChatService) History(ctx context.Context, groupID int64) ([]models.ChatMessage, error) {
	query := `
		SELECT m.id, m.sender_id, COALESCE(NULLIF(u.display_name, ''), u.username) AS sender_name,
		       m.group_id, m.message, m.created_at
		FROM chat_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.group_id = ?
		ORDER BY m.created_at, m.id`

	messages := []models.ChatMessage{}
	if err := s.db.SelectContext(ctx, &messages, s.db.Rebind(query), groupID); err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return messages, nil
}

// PostMessage stores a message from a group member and counts it towards
// message_sent achievements. A progress failure is logged; the message stands.
func (s *ChatService) PostMessage(ctx context.Context, userID, groupID int64, req *models.PostMessageRequest) (*models.ChatMessage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := s.CheckMembership(ctx, userID, groupID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		SenderID:  userID,
		GroupID:   groupID,
		Message:   req.Message,
		CreatedAt: s.now(),
	}

	query := `INSERT INTO chat_messages (sender_id, group_id, message, created_at) VALUES (?, ?, ?, ?) RETURNING id`
	if err := s.db.GetContext(ctx, &msg.ID, s.db.Rebind(query), msg.SenderID, msg.GroupID, msg.Message, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	nameQuery := `SELECT COALESCE(NULLIF(display_name, ''), username) FROM users WHERE id = ?`
	if err := s.db.GetContext(ctx, &msg.SenderName, s.db.Rebind(nameQuery), userID); err != nil {
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}

	if s.engine != nil {
		if _, err := s.engine.RecordProgress(ctx, userID, models.ConditionMessageSent, 1); err != nil {
			s.log.With("user_id", userID).WithError(err).Warn("message stored but progress was not recorded")
		}
	}
	return msg, nil
}

func setGroup(ctx context.Context, q database.Queryer, userID, groupID int64) error {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE users SET group_id = ? WHERE id = ?`), groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to join group: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to join group: %w", err)
	} else if n == 0 {
		return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}
	return nil
}
