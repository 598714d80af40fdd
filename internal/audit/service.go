package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/staffhub/staffhub/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	maxExportRows   = 10000
)

// Repository provides read access to persisted events.
type Repository interface {
	Query(ctx context.Context, filters Filters, limit, offset int) ([]Event, error)
}

// Gate answers the audit permission checks for the current actor.
type Gate interface {
	Err() error
	CanViewAudit() bool
	CanExportAudit() bool
}

// Service serves audit queries to compliance and reporting surfaces.
type Service struct {
	repo Repository
}

// NewService builds an audit query service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Events returns one page of events matching filters. The actor needs audit:view.
func (s *Service) Events(ctx context.Context, gate Gate, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, errors.New("audit: repository not configured")
	}
	if err := authorize(gate, Gate.CanViewAudit); err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Query(ctx, filters, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return Result{}, fmt.Errorf("audit: query events: %w", err)
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	if rows == nil {
		rows = []Event{}
	}
	return Result{Events: rows, Paging: paging}, nil
}

// Export returns every event matching filters, capped at maxExportRows. The
// actor needs audit:export.
func (s *Service) Export(ctx context.Context, gate Gate, filters Filters) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if err := authorize(gate, Gate.CanExportAudit); err != nil {
		return nil, err
	}
	rows, err := s.repo.Query(ctx, filters, maxExportRows, 0)
	if err != nil {
		return nil, fmt.Errorf("audit: export events: %w", err)
	}
	return rows, nil
}

func authorize(gate Gate, check func(Gate) bool) error {
	if gate == nil {
		return shared.ErrNoActor
	}
	if err := gate.Err(); err != nil {
		return err
	}
	if !check(gate) {
		return shared.ErrForbidden
	}
	return nil
}
