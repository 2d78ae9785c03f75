package synchronizer

import (
	"context"

	"github.com/khaller93/es-middleware-sub003/kvcache"
	"github.com/khaller93/es-middleware-sub003/pgraph"
	"github.com/khaller93/es-middleware-sub003/pgs"
	"github.com/khaller93/es-middleware-sub003/rdf"
)

// projection is the vertex and edge operations of a set of triples.
type projection struct {
	vertices []pgs.VertexOp
	edges    []pgraph.Edge
}

func project(p *pgs.Projector, triples []rdf.Triple) (projection, error) {
	var out projection
	for _, t := range triples {
		vops, eops, err := p.Project(t)
		if err != nil {
			return projection{}, err
		}
		out.vertices = append(out.vertices, vops...)
		for _, e := range eops {
			out.edges = append(out.edges, pgraph.Edge(e))
		}
	}
	return out, nil
}

// add inserts vertices before edges so every edge finds its endpoints.
func (pr projection) add(g pgraph.Store) error {
	for _, v := range pr.vertices {
		g.AddVertex(v)
	}
	for _, e := range pr.edges {
		if _, err := g.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

// invalidate deletes per-vertex cache entries of retired vertices.
func invalidate(ctx context.Context, cache kvcache.Cache, retired map[string]struct{}) (int, error) {
	if cache == nil || len(retired) == 0 {
		return 0, nil
	}
	keys, err := cache.Keys(ctx, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range keys {
		_, id, ok := kvcache.SplitVertexKey(k)
		if !ok {
			continue
		}
		if _, gone := retired[id]; !gone {
			continue
		}
		if err := cache.Delete(ctx, k); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
