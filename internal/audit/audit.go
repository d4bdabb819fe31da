// Package audit keeps an append-only trail of sign-ins and directory mutations.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Actions recorded by the console.
const (
	ActionLogin      = "session.login"
	ActionLogout     = "session.logout"
	ActionUserUpdate = "user.update"
	ActionUserDelete = "user.delete"
)

// Entry is one audit record.
type Entry struct {
	Actor    string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Repository persists audit entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
}

// Service validates and stores audit entries. Callers treat storage failures as non-fatal.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a Service. A nil repository turns recording into logging only.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Record stores the entry, filling in the timestamp when missing.
func (s *Service) Record(ctx context.Context, entry Entry) error {
	if s == nil {
		return nil
	}
	if entry.Action == "" || entry.Entity == "" {
		return errors.New("audit: entry requires action and entity")
	}
	if entry.At.IsZero() {
		entry.At = s.now().UTC()
	}
	s.logger.Info("audit",
		slog.String("actor", entry.Actor),
		slog.String("action", entry.Action),
		slog.String("entity", entry.Entity),
		slog.String("entity_id", entry.EntityID),
	)
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.logger.Warn("audit insert", slog.String("action", entry.Action), slog.Any("error", err))
		return err
	}
	return nil
}
