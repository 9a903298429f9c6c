package rnc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainrnc "rncflow/internal/domain/rnc"
	"rncflow/internal/errs"
	"rncflow/internal/ports"
)

type ListInput struct {
	Status    string
	Condition string
	OpenByID  *uint64
	Limit     int
	Offset    int
}

func (in ListInput) filter() (ports.RNCFilter, error) {
	var filter ports.RNCFilter

	if raw := strings.TrimSpace(in.Status); raw != "" {
		status, err := domainrnc.ParseStatus(raw)
		if err != nil {
			return ports.RNCFilter{}, err
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(in.Condition); raw != "" {
		condition, err := domainrnc.ParseCondition(raw)
		if err != nil {
			return ports.RNCFilter{}, err
		}
		filter.Condition = &condition
	}
	if in.Limit < 0 || in.Offset < 0 {
		return ports.RNCFilter{}, fmt.Errorf("%w: limit and offset must not be negative", domainrnc.ErrInvalidField)
	}

	filter.OpenByID = in.OpenByID
	filter.Limit = in.Limit
	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	filter.Offset = in.Offset
	return filter, nil
}

func (s *Service) List(ctx context.Context, input ListInput) ([]domainrnc.RNC, error) {
	if err := s.checkReady(ctx); err != nil {
		return nil, err
	}
	filter, err := input.filter()
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

// ListAs lists reports for an actor. Browsing every report needs the list
// role; restricting to the actor's own reports does not.
func (s *Service) ListAs(ctx context.Context, input ListInput, actor domainrnc.Actor) ([]domainrnc.RNC, error) {
	own := input.OpenByID != nil && *input.OpenByID == actor.UserID
	if !own {
		if err := domainrnc.Authorize(domainrnc.ActionList, actor.Role); err != nil {
			return nil, err
		}
	}
	return s.List(ctx, input)
}

func (s *Service) Get(ctx context.Context, number uint64) (domainrnc.RNC, error) {
	if err := s.checkReady(ctx); err != nil {
		return domainrnc.RNC{}, err
	}
	item, err := s.repo.FindByNumber(ctx, number, false)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return domainrnc.RNC{}, fmt.Errorf("%w: %d", domainrnc.ErrRNCNotFound, number)
		}
		return domainrnc.RNC{}, err
	}
	return item, nil
}

// CurrentByPart returns the open report of a part.
func (s *Service) CurrentByPart(ctx context.Context, partCode string) (domainrnc.RNC, error) {
	if err := s.checkReady(ctx); err != nil {
		return domainrnc.RNC{}, err
	}
	code := strings.TrimSpace(partCode)
	if code == "" {
		return domainrnc.RNC{}, fmt.Errorf("%w: part_code", domainrnc.ErrFieldRequired)
	}

	item, found, err := s.repo.FindOpenByPartCode(ctx, code)
	if err != nil {
		return domainrnc.RNC{}, err
	}
	if !found {
		return domainrnc.RNC{}, fmt.Errorf("%w: no open rnc for part %s", domainrnc.ErrRNCNotFound, code)
	}
	return item, nil
}

// Statistics is recomputed from the full set on every call.
func (s *Service) Statistics(ctx context.Context) (domainrnc.Statistics, error) {
	if err := s.checkReady(ctx); err != nil {
		return domainrnc.Statistics{}, err
	}

	builder := domainrnc.NewStatisticsBuilder()
	if err := s.repo.Scan(ctx, statisticsBatch, func(batch []domainrnc.RNC) error {
		for _, item := range batch {
			builder.Add(item)
		}
		return nil
	}); err != nil {
		return domainrnc.Statistics{}, errs.Wrap(err, "scan rncs for statistics")
	}
	return builder.Result(), nil
}
