package synchronizer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaller93/es-middleware-sub003/coordinator"
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/rdf"
)

// FullClone rebuilds the derived graph from every triple of the primary
// store. The build runs off-lock on a private graph; only the swap and the
// cache invalidation of retired vertices run under the write lock.
type FullClone struct {
	deps Deps
}

// Name returns StrategyFull.
func (f *FullClone) Name() string { return StrategyFull }

// Synchronize rebuilds and swaps in the derived graph.
func (f *FullClone) Synchronize(ctx context.Context, correlationID uint64) error {
	ctx, span := f.deps.Tracer.Start(ctx, "synchronizer.full_clone",
		trace.WithAttributes(attribute.Int64("esm.correlation_id", int64(correlationID))))
	defer span.End()

	next, err := f.build(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return err
	}
	span.SetAttributes(attribute.Int("esm.graph.vertices", next.VertexCount()),
		attribute.Int("esm.graph.edges", next.EdgeCount()))

	err = f.deps.Coordinator.WithLock(ctx, "sync/full", func(ctx context.Context, _ *coordinator.Session) error {
		prev := f.deps.Graph.Swap(next)

		retired := make(map[string]struct{})
		for _, id := range prev.VertexIDs() {
			if _, ok := next.Vertex(id); !ok {
				retired[id] = struct{}{}
			}
		}
		n, err := invalidate(ctx, f.deps.Cache, retired)
		if err != nil {
			return errors.Wrap(err, "FullClone", "Synchronize", "invalidate cache")
		}
		f.deps.Logger.Debug("Derived graph swapped",
			"correlation_id", correlationID, "retired", len(retired), "invalidated", n)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap failed")
		return err
	}
	return nil
}

func (f *FullClone) build(ctx context.Context) (*pgraph.Graph, error) {
	p := f.deps.Projector()
	g := pgraph.New()
	err := f.deps.Primary.StreamAllTriples(ctx, func(t rdf.Triple) error {
		pr, err := project(p, []rdf.Triple{t})
		if err != nil {
			return err
		}
		return pr.add(g)
	})
	if err != nil {
		return nil, errors.Wrap(err, "FullClone", "Synchronize", "build working graph")
	}
	return g, nil
}
