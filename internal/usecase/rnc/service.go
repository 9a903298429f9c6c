package rnc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rncflow/internal/bootstrap/logging"
	domainrnc "rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	statisticsBatch  = 500
)

type Options struct {
	// ActionTimeout bounds every mutating action. Zero disables the bound.
	ActionTimeout time.Duration
}

// Service is the workflow engine: it owns every transition of a report and
// hands committed transitions to the notifier.
type Service struct {
	repo          ports.RNCRepository
	parts         ports.PartRepository
	users         ports.UserRepository
	uow           ports.UnitOfWork
	seq           ports.Sequence
	notifier      ports.Notifier
	now           func() time.Time
	actionTimeout time.Duration
}

func NewService(
	repo ports.RNCRepository,
	parts ports.PartRepository,
	users ports.UserRepository,
	uow ports.UnitOfWork,
	seq ports.Sequence,
	notifier ports.Notifier,
	opts Options,
) *Service {
	return &Service{
		repo:          repo,
		parts:         parts,
		users:         users,
		uow:           uow,
		seq:           seq,
		notifier:      notifier,
		now:           time.Now,
		actionTimeout: opts.ActionTimeout,
	}
}

func (s *Service) checkReady(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return errors.New("rnc repository is required")
	}
	if s.uow == nil {
		return errors.New("rnc unit of work is required")
	}
	return nil
}

func (s *Service) withActionTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.actionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.actionTimeout)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// publish runs after commit. Delivery outcome never reaches the caller.
func (s *Service) publish(ctx context.Context, eventType domainrnc.EventType, item domainrnc.RNC) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(context.WithoutCancel(ctx), domainrnc.Event{
		Type: eventType,
		RNC:  domainrnc.NewSnapshot(item),
	})
}

func (s *Service) logger(ctx context.Context, action domainrnc.Action, actor domainrnc.Actor) context.Context {
	return logging.WithAttrs(
		ctx,
		slog.String("component", "usecase.rnc"),
		slog.String("action", string(action)),
		slog.Uint64("actor_id", actor.UserID),
		slog.String("actor_role", string(actor.Role)),
	)
}
