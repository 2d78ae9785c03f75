package access

import (
	"context"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/status"
)

// StatusSource reports the current status of a DAO.
type StatusSource interface {
	CurrentStatus(dao status.DAO) status.DAOStatus
}

// Gate admits consumers of a DAO only while its data can be trusted.
// READY and SYNCHRONIZING are served; a synchronizing DAO is eventually
// consistent for readers that do not take the coordinator lock.
type Gate struct {
	statuses StatusSource
}

// NewGate returns a gate over statuses.
func NewGate(statuses StatusSource) *Gate {
	return &Gate{statuses: statuses}
}

// Check returns a *errors.StaleError when dao cannot serve consistent data.
func (g *Gate) Check(dao status.DAO) error {
	switch s := g.statuses.CurrentStatus(dao); s {
	case status.Ready, status.Synchronizing:
		return nil
	default:
		return &errors.StaleError{DAO: string(dao), Status: s.String()}
	}
}

// Serve runs fn when dao passes Check.
func Serve[T any](ctx context.Context, g *Gate, dao status.DAO, fn func(ctx context.Context) (T, error)) (T, error) {
	if err := g.Check(dao); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}

// Available returns the DAOs among daos that pass Check.
func (g *Gate) Available(daos ...status.DAO) []status.DAO {
	var out []status.DAO
	for _, d := range daos {
		if g.Check(d) == nil {
			out = append(out, d)
		}
	}
	return out
}
