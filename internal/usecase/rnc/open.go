package rnc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rncflow/internal/bootstrap/logging"
	domainrnc "rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

// Open allocates a number and creates a report in EM_ANALISE. The duplicate
// check, allocation and insert share one transaction; a unique violation from a
// concurrent writer is retried once, where it resolves into ErrPartHasOpenRNC.
func (s *Service) Open(ctx context.Context, draft domainrnc.Draft, actor domainrnc.Actor) (domainrnc.RNC, error) {
	if err := s.checkReady(ctx); err != nil {
		return domainrnc.RNC{}, err
	}
	if s.parts == nil || s.seq == nil {
		return domainrnc.RNC{}, errors.New("part repository and sequence are required")
	}
	if err := domainrnc.Authorize(domainrnc.ActionOpen, actor.Role); err != nil {
		return domainrnc.RNC{}, err
	}
	normalized, _, err := draft.Normalize()
	if err != nil {
		return domainrnc.RNC{}, err
	}

	logCtx := logging.WithAttrs(s.logger(ctx, domainrnc.ActionOpen, actor), slog.String("part_code", normalized.PartCode))
	ctx, cancel := s.withActionTimeout(ctx)
	defer cancel()

	var created domainrnc.RNC
	for attempt := 1; ; attempt++ {
		created, err = s.openOnce(ctx, normalized, actor)
		if err == nil || attempt >= 2 || !errors.Is(err, ports.ErrUniqueViolation) {
			break
		}
		logging.Warn(logCtx, "open raced with a concurrent writer, retrying", slog.Any("err", errs.Loggable(err)))
	}
	if err != nil {
		return domainrnc.RNC{}, err
	}

	logging.Info(logCtx, "rnc opened", slog.Uint64("num_rnc", created.Number))
	s.publish(ctx, domainrnc.EventCreated, created)
	return created, nil
}

func (s *Service) openOnce(ctx context.Context, draft domainrnc.Draft, actor domainrnc.Actor) (domainrnc.RNC, error) {
	var created domainrnc.RNC
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		part, err := s.parts.FindByCode(txCtx, draft.PartCode)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return fmt.Errorf("%w: %s", domainrnc.ErrPartNotFound, draft.PartCode)
			}
			return err
		}
		if !part.Active {
			return fmt.Errorf("%w: %s is inactive", domainrnc.ErrPartNotFound, draft.PartCode)
		}

		number, err := s.seq.Next(txCtx)
		if err != nil {
			return err
		}

		existing, found, err := s.repo.FindOpenByPartCode(txCtx, part.Code)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: part %s has rnc %d", domainrnc.ErrPartHasOpenRNC, part.Code, existing.Number)
		}

		item, err := domainrnc.NewRNC(number, draft, part, actor, s.clock())
		if err != nil {
			return err
		}
		created, err = s.repo.Insert(txCtx, item)
		return err
	})
	if err != nil {
		return domainrnc.RNC{}, err
	}
	return created, nil
}
