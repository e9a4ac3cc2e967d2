package scanner

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"IDCIntel/internal/config"
	"IDCIntel/internal/domain"
)

// Request carries all parameters required to execute a scan of one source.
type Request struct {
	Day    time.Time
	Source config.Source
}

// Scanner captures a single strategy implementation (list pages, feeds, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.CandidateItem, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(s Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[s.Name()] = s
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if s, ok := r.scanners[name]; ok {
		return s, nil
	}
	return nil, eris.Errorf("scanner: %s is not registered", name)
}
