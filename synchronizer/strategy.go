package synchronizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaller93/es-middleware-sub003/coordinator"
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/kvcache"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/pgs"
	"github.com/khaller93/es-middleware-sub003/primary"
)

// Strategy names
const (
	StrategyFull        = "full"
	StrategyIncremental = "incremental"
)

const tracerName = "github.com/khaller93/es-middleware-sub003/synchronizer"

// Strategy brings the derived graph up to date with the primary store for
// the write identified by correlationID.
type Strategy interface {
	Name() string
	Synchronize(ctx context.Context, correlationID uint64) error
}

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (string, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case StrategyFull, "full-clone", "full_clone":
		return StrategyFull, nil
	case StrategyIncremental:
		return StrategyIncremental, nil
	default:
		return "", errors.WrapInvalid(fmt.Errorf("unknown strategy %q", name),
			"synchronizer", "ParseStrategy", "parse strategy")
	}
}

// Deps are the collaborators every strategy works against.
type Deps struct {
	Primary     primary.Store
	Graph       *pgraph.Handle
	Cache       kvcache.Cache
	Coordinator *coordinator.Coordinator
	// Projector returns the projector for one pass. Called once per pass
	// so pass-scoped blank node identities start fresh.
	Projector func() *pgs.Projector

	Logger *slog.Logger
	Tracer trace.Tracer
}

func (d *Deps) validate() error {
	switch {
	case d.Primary == nil:
		return errors.WrapInvalid(errors.ErrMissingConfig, "synchronizer", "Deps", "primary store required")
	case d.Graph == nil:
		return errors.WrapInvalid(errors.ErrMissingConfig, "synchronizer", "Deps", "graph handle required")
	case d.Coordinator == nil:
		return errors.WrapInvalid(errors.ErrMissingConfig, "synchronizer", "Deps", "coordinator required")
	}
	if d.Projector == nil {
		p := pgs.NewProjector(pgs.DefaultSchema(), nil)
		d.Projector = func() *pgs.Projector { return p }
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer(tracerName)
	}
	return nil
}

// NewStrategy returns the strategy with the given name.
func NewStrategy(name string, deps Deps) (Strategy, error) {
	n, err := ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if n == StrategyFull {
		return &FullClone{deps: deps}, nil
	}
	return &Incremental{deps: deps}, nil
}
