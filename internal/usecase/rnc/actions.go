package rnc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rncflow/internal/bootstrap/logging"
	domainrnc "rncflow/internal/domain/rnc"
	"rncflow/internal/ports"
)

func (s *Service) Analyze(ctx context.Context, number uint64, analysis domainrnc.Analysis, actor domainrnc.Actor) (domainrnc.RNC, error) {
	return s.transition(ctx, number, domainrnc.ActionAnalyze, actor, domainrnc.EventAnalysisCompleted, func(txCtx context.Context, item *domainrnc.RNC) error {
		if err := s.ensureUser(txCtx, analysis.ResponsibleID); err != nil {
			return err
		}
		return domainrnc.ApplyAnalysis(item, analysis, actor, s.clock())
	})
}

func (s *Service) Rework(ctx context.Context, number uint64, rework domainrnc.Rework, actor domainrnc.Actor) (domainrnc.RNC, error) {
	return s.transition(ctx, number, domainrnc.ActionRework, actor, domainrnc.EventReworkCompleted, func(txCtx context.Context, item *domainrnc.RNC) error {
		if err := s.ensureUser(txCtx, rework.ResponsibleID); err != nil {
			return err
		}
		return domainrnc.ApplyRework(item, rework, actor, s.clock())
	})
}

func (s *Service) Close(ctx context.Context, number uint64, note string, actor domainrnc.Actor) (domainrnc.RNC, error) {
	return s.transition(ctx, number, domainrnc.ActionClose, actor, domainrnc.EventClosed, func(_ context.Context, item *domainrnc.RNC) error {
		return domainrnc.ApplyClose(item, note, actor, s.clock())
	})
}

func (s *Service) Update(ctx context.Context, number uint64, update domainrnc.Update, actor domainrnc.Actor) (domainrnc.RNC, error) {
	return s.transition(ctx, number, domainrnc.ActionUpdate, actor, domainrnc.EventUpdated, func(txCtx context.Context, item *domainrnc.RNC) error {
		if err := s.ensureUser(txCtx, update.ResponsibleID); err != nil {
			return err
		}
		return domainrnc.ApplyUpdate(item, update, actor)
	})
}

// transition re-reads the report under a row lock, applies the rule and
// persists it in one transaction. Events are published only after commit; a
// transition that ends in FECHADO also announces the close.
func (s *Service) transition(
	ctx context.Context,
	number uint64,
	action domainrnc.Action,
	actor domainrnc.Actor,
	eventType domainrnc.EventType,
	apply func(txCtx context.Context, item *domainrnc.RNC) error,
) (domainrnc.RNC, error) {
	if err := s.checkReady(ctx); err != nil {
		return domainrnc.RNC{}, err
	}

	logCtx := logging.WithAttrs(s.logger(ctx, action, actor), slog.Uint64("num_rnc", number))
	ctx, cancel := s.withActionTimeout(ctx)
	defer cancel()

	var updated domainrnc.RNC
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.repo.FindByNumber(txCtx, number, true)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return fmt.Errorf("%w: %d", domainrnc.ErrRNCNotFound, number)
			}
			return err
		}
		if err := apply(txCtx, &item); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, item); err != nil {
			return err
		}
		updated = item
		return nil
	}); err != nil {
		return domainrnc.RNC{}, err
	}

	logging.Info(
		logCtx,
		"rnc transition committed",
		slog.String("status", string(updated.Status)),
		slog.String("condition", string(updated.Condition)),
	)
	s.publish(ctx, eventType, updated)
	if eventType != domainrnc.EventClosed && updated.Status == domainrnc.StatusClosed {
		s.publish(ctx, domainrnc.EventClosed, updated)
	}
	return updated, nil
}

func (s *Service) ensureUser(ctx context.Context, id *uint64) error {
	if id == nil || s.users == nil {
		return nil
	}
	if _, err := s.users.FindByID(ctx, *id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return fmt.Errorf("%w: responsible %d", domainrnc.ErrUserNotFound, *id)
		}
		return err
	}
	return nil
}
