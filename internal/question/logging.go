package question

import (
	"context"

	"qbank/internal/event"

	"github.com/sirupsen/logrus"
)

// Lifecycle is the set of question operations exposed over HTTP.
type Lifecycle interface {
	AddQuestion(ctx context.Context, scope event.Scope, in AddInput) (*Question, error)
	UpdateQuestion(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Question, error)
	ChangeStatus(ctx context.Context, scope event.Scope, id int64, status string) error
	UpdateHasBeenAsked(ctx context.Context, scope event.Scope, id int64, asked bool) error
	DeleteQuestion(ctx context.Context, scope event.Scope, id int64) error
	GetQuestion(ctx context.Context, scope event.Scope, id int64) (*Question, error)
	ListQuestions(ctx context.Context, scope event.Scope, f ListFilter) (*Page, error)
}

// LoggingService records failed operations. Business code stays free of
// logging; callers still receive the original error.
type LoggingService struct {
	next Lifecycle
	log  logrus.FieldLogger
}

func NewLoggingService(next Lifecycle, log logrus.FieldLogger) *LoggingService {
	return &LoggingService{next: next, log: log}
}

func (s *LoggingService) fail(op string, scope event.Scope, err error, fields logrus.Fields) {
	entry := s.log.WithFields(logrus.Fields{
		"component": "question",
		"operation": op,
		"event_id":  scope.EventID,
	}).WithFields(fields)
	if scope.Actor != nil {
		entry = entry.WithField("user_id", scope.Actor.ID)
	}
	entry.WithError(err).Warn("question operation failed")
}

func (s *LoggingService) AddQuestion(ctx context.Context, scope event.Scope, in AddInput) (*Question, error) {
	q, err := s.next.AddQuestion(ctx, scope, in)
	if err != nil {
		s.fail("add", scope, err, logrus.Fields{"subject_id": in.SubjectID, "topic_id": in.TopicID})
	}
	return q, err
}

func (s *LoggingService) UpdateQuestion(ctx context.Context, scope event.Scope, id int64, in UpdateInput) (*Question, error) {
	q, err := s.next.UpdateQuestion(ctx, scope, id, in)
	if err != nil {
		s.fail("update", scope, err, logrus.Fields{"question_id": id})
	}
	return q, err
}

func (s *LoggingService) ChangeStatus(ctx context.Context, scope event.Scope, id int64, status string) error {
	err := s.next.ChangeStatus(ctx, scope, id, status)
	if err != nil {
		s.fail("change_status", scope, err, logrus.Fields{"question_id": id, "status": status})
	}
	return err
}

func (s *LoggingService) UpdateHasBeenAsked(ctx context.Context, scope event.Scope, id int64, asked bool) error {
	err := s.next.UpdateHasBeenAsked(ctx, scope, id, asked)
	if err != nil {
		s.fail("update_has_been_asked", scope, err, logrus.Fields{"question_id": id})
	}
	return err
}

func (s *LoggingService) DeleteQuestion(ctx context.Context, scope event.Scope, id int64) error {
	err := s.next.DeleteQuestion(ctx, scope, id)
	if err != nil {
		s.fail("delete", scope, err, logrus.Fields{"question_id": id})
	}
	return err
}

func (s *LoggingService) GetQuestion(ctx context.Context, scope event.Scope, id int64) (*Question, error) {
	q, err := s.next.GetQuestion(ctx, scope, id)
	if err != nil {
		s.fail("get", scope, err, logrus.Fields{"question_id": id})
	}
	return q, err
}

func (s *LoggingService) ListQuestions(ctx context.Context, scope event.Scope, f ListFilter) (*Page, error) {
	p, err := s.next.ListQuestions(ctx, scope, f)
	if err != nil {
		s.fail("list", scope, err, nil)
	}
	return p, err
}
