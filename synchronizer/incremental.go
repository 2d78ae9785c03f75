package synchronizer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaller93/es-middleware-sub003/coordinator"
	"github.com/khaller93/es-middleware-sub003/errors"
)

// Incremental applies the delta of one write to the live derived graph
// under the write lock. Applying the same delta twice leaves the graph as
// applying it once.
type Incremental struct {
	deps Deps
}

// Name returns StrategyIncremental.
func (i *Incremental) Name() string { return StrategyIncremental }

// Synchronize fetches the delta of correlationID and applies it: removed
// edges first, then vertices left without incident edges, then added
// vertices and edges.
func (i *Incremental) Synchronize(ctx context.Context, correlationID uint64) error {
	ctx, span := i.deps.Tracer.Start(ctx, "synchronizer.incremental",
		trace.WithAttributes(attribute.Int64("esm.correlation_id", int64(correlationID))))
	defer span.End()

	delta, err := i.deps.Primary.ChangedTriples(ctx, correlationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delta unavailable")
		return errors.Wrap(err, "Incremental", "Synchronize", "fetch delta")
	}
	p := i.deps.Projector()
	removed, err := project(p, delta.Removed)
	if err != nil {
		return err
	}
	added, err := project(p, delta.Added)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("esm.delta.added", len(delta.Added)),
		attribute.Int("esm.delta.removed", len(delta.Removed)))

	err = i.deps.Coordinator.WithLock(ctx, "sync/incremental", func(ctx context.Context, _ *coordinator.Session) error {
		g := i.deps.Graph.Graph()

		candidates := make(map[string]struct{})
		for _, e := range removed.edges {
			if g.RemoveEdge(e) {
				candidates[e.From] = struct{}{}
				candidates[e.To] = struct{}{}
			}
		}
		// A removed triple whose edge was already gone may still leave an
		// orphan from an earlier partial application.
		for _, v := range removed.vertices {
			candidates[v.ID] = struct{}{}
		}
		for id := range candidates {
			if _, ok := g.Vertex(id); ok && g.Degree(id) == 0 {
				g.RemoveVertex(id)
			}
		}

		if err := added.add(g); err != nil {
			return errors.Wrap(err, "Incremental", "Synchronize", "add edges")
		}

		retired := make(map[string]struct{})
		for id := range candidates {
			if _, ok := g.Vertex(id); !ok {
				retired[id] = struct{}{}
			}
		}
		n, err := invalidate(ctx, i.deps.Cache, retired)
		if err != nil {
			return errors.Wrap(err, "Incremental", "Synchronize", "invalidate cache")
		}
		i.deps.Logger.Debug("Delta applied", "correlation_id", correlationID,
			"added", len(delta.Added), "removed", len(delta.Removed), "retired", len(retired), "invalidated", n)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		return err
	}
	return nil
}
