// Package registry assembles the service surface: one resource module per
// record definition plus the cross-collection reports.
package registry

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/records"
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/store"
)

// Registry holds the modules keyed by their HTTP path.
type Registry struct {
	modules map[string]*resource.Module
	order   []string
	reports *Reports
	logger  zerolog.Logger
}

// New binds every record definition to s. A nil s leaves the record
// operations failing with store.ErrUnavailable and the reports empty.
func New(s store.Store, logger zerolog.Logger) *Registry {
	return NewWithDefinitions(s, logger, records.All())
}

// NewWithDefinitions is New over an explicit definition list.
func NewWithDefinitions(s store.Store, logger zerolog.Logger, defs []*resource.Definition) *Registry {
	backing := s
	if backing == nil {
		logger.Warn().Msg("no store configured, record operations will be unavailable")
		backing = store.Unavailable{}
	}

	r := &Registry{
		modules: make(map[string]*resource.Module, len(defs)),
		reports: NewReports(s, defs, logger),
		logger:  logger,
	}
	for _, d := range defs {
		r.modules[d.Path] = resource.NewModule(d, backing)
		r.order = append(r.order, d.Path)
	}
	return r
}

// Module returns the module mounted at path, e.g. "/patients".
func (r *Registry) Module(path string) (*resource.Module, bool) {
	m, ok := r.modules[path]
	return m, ok
}

// Modules returns every module in mount order.
func (r *Registry) Modules() []*resource.Module {
	out := make([]*resource.Module, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.modules[p])
	}
	return out
}

func (r *Registry) Reports() *Reports {
	return r.reports
}

// RegisterRoutes mounts every module and the reports on api.
func (r *Registry) RegisterRoutes(api *echo.Group) {
	for _, m := range r.Modules() {
		resource.NewHandler(m).RegisterRoutes(api)
		r.logger.Debug().Str("path", m.Definition().Path).Str("collection", m.Definition().Collection).Msg("mounted record routes")
	}
	NewReportHandler(r.reports).RegisterRoutes(api)
}
