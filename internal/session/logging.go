package session

import (
	"context"

	"qbank/internal/event"

	"github.com/sirupsen/logrus"
)

type Assembler interface {
	CreateSession(ctx context.Context, scope event.Scope, in CreateInput) (*Created, error)
	StartSession(ctx context.Context, scope event.Scope, id int64) (*Session, error)
	EndSession(ctx context.Context, scope event.Scope, id int64) (*Session, error)
	DeleteSession(ctx context.Context, scope event.Scope, id int64) error
	GetSession(ctx context.Context, scope event.Scope, id int64) (*Session, error)
	ListSessions(ctx context.Context, scope event.Scope) ([]Session, error)
}

// LoggingService logs failed session operations and passes results through.
type LoggingService struct {
	next Assembler
	log  logrus.FieldLogger
}

func NewLoggingService(next Assembler, log logrus.FieldLogger) *LoggingService {
	return &LoggingService{next: next, log: log}
}

func (s *LoggingService) entry(op string, scope event.Scope) *logrus.Entry {
	e := s.log.WithFields(logrus.Fields{"component": "session", "operation": op, "event_id": scope.EventID})
	if scope.Actor != nil {
		e = e.WithField("user_id", scope.Actor.ID)
	}
	return e
}

func (s *LoggingService) CreateSession(ctx context.Context, scope event.Scope, in CreateInput) (*Created, error) {
	out, err := s.next.CreateSession(ctx, scope, in)
	if err != nil {
		s.entry("create", scope).WithError(err).Warn("session operation failed")
		return nil, err
	}
	if out.Assigned < in.NumberOfQuestions {
		s.entry("create", scope).WithFields(logrus.Fields{
			"session_id": out.Session.ID,
			"requested":  in.NumberOfQuestions,
			"assigned":   out.Assigned,
		}).Info("session drew fewer questions than requested")
	}
	return out, nil
}

func (s *LoggingService) StartSession(ctx context.Context, scope event.Scope, id int64) (*Session, error) {
	out, err := s.next.StartSession(ctx, scope, id)
	if err != nil {
		s.entry("start", scope).WithField("session_id", id).WithError(err).Warn("session operation failed")
	}
	return out, err
}

func (s *LoggingService) EndSession(ctx context.Context, scope event.Scope, id int64) (*Session, error) {
	out, err := s.next.EndSession(ctx, scope, id)
	if err != nil {
		s.entry("end", scope).WithField("session_id", id).WithError(err).Warn("session operation failed")
	}
	return out, err
}

func (s *LoggingService) DeleteSession(ctx context.Context, scope event.Scope, id int64) error {
	err := s.next.DeleteSession(ctx, scope, id)
	if err != nil {
		s.entry("delete", scope).WithField("session_id", id).WithError(err).Warn("session operation failed")
	}
	return err
}

func (s *LoggingService) GetSession(ctx context.Context, scope event.Scope, id int64) (*Session, error) {
	out, err := s.next.GetSession(ctx, scope, id)
	if err != nil {
		s.entry("get", scope).WithField("session_id", id).WithError(err).Warn("session operation failed")
	}
	return out, err
}

func (s *LoggingService) ListSessions(ctx context.Context, scope event.Scope) ([]Session, error) {
	out, err := s.next.ListSessions(ctx, scope)
	if err != nil {
		s.entry("list", scope).WithError(err).Warn("session operation failed")
	}
	return out, err
}
