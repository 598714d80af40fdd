package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/staffhub/staffhub/internal/shared"
)

// MatrixStore serves the current matrix to concurrent readers. Reloads build a
// new matrix and swap it whole; readers never observe a partial mapping.
type MatrixStore struct {
	source  MatrixSource
	logger  *slog.Logger
	current atomic.Pointer[Matrix]
	version atomic.Int64
	group   singleflight.Group

	// generation is bumped by Invalidate. Builds only share work within one
	// generation, and a build never replaces the result of a newer one.
	generation atomic.Uint64
	mu         sync.Mutex
	applied    uint64
}

// NewMatrixStore loads the initial matrix from source.
func NewMatrixStore(ctx context.Context, source MatrixSource, logger *slog.Logger) (*MatrixStore, error) {
	if source == nil {
		return nil, errors.New("rbac: matrix source required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &MatrixStore{source: source, logger: logger}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore serves a fixed matrix. Reload is a no-op that keeps m.
func NewStaticStore(m *Matrix) *MatrixStore {
	s := &MatrixStore{source: staticSource{m: m}, logger: slog.Default()}
	s.current.Store(m)
	s.version.Store(1)
	return s
}

// Current returns the matrix in effect.
func (s *MatrixStore) Current() *Matrix {
	return s.current.Load()
}

// Version increases by one on every successful reload.
func (s *MatrixStore) Version() int64 {
	return s.version.Load()
}

// Invalidate marks every build started so far as stale. Call it after the
// source changed and before Reload, so the reload reads the new state instead
// of joining a build already in flight.
func (s *MatrixStore) Invalidate() {
	s.generation.Add(1)
}

// Reload rebuilds the matrix from the source. Concurrent calls within one
// generation share a build. On failure the previous matrix stays in effect.
func (s *MatrixStore) Reload(ctx context.Context) error {
	gen := s.generation.Load()
	_, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		defs, err := s.source.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("rbac: load matrix: %w", err)
		}
		m, err := BuildMatrix(defs)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen < s.applied {
			return nil, nil
		}
		s.applied = gen
		s.current.Store(m)
		v := s.version.Add(1)
		if ignored := m.Ignored(); len(ignored) > 0 {
			s.logger.Warn("rbac matrix entries ignored", slog.Any("entries", ignored))
		}
		s.logger.Info("rbac matrix loaded", slog.Int64("version", v))
		return nil, nil
	})
	return err
}

// PermissionsForRole resolves the permission set of role in the current matrix.
func (s *MatrixStore) PermissionsForRole(role shared.Role) (PermissionSet, error) {
	return s.Current().PermissionsForRole(role)
}

// RoleDisplayName returns the label of role in the current matrix.
func (s *MatrixStore) RoleDisplayName(role shared.Role) string {
	return s.Current().RoleDisplayName(role)
}

type staticSource struct {
	m *Matrix
}

func (s staticSource) Load(context.Context) ([]RoleDefinition, error) {
	defs := make([]RoleDefinition, 0, len(s.m.defs))
	for _, role := range shared.AllRoles() {
		defs = append(defs, s.m.defs[role])
	}
	return defs, nil
}
