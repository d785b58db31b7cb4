package benchmark

import (
	"fmt"
	"strings"

	engine "ormbench/benchmark/engines/abstract"
	"ormbench/benchmark/engines/gorm"
	"ormbench/benchmark/engines/pgx"
	"ormbench/benchmark/engines/sqldriver"
	"ormbench/benchmark/engines/sqlx"
	"ormbench/dbUtils"
)

// Adapter is a registered data-access strategy.
type Adapter struct {
	Name    string
	Factory engine.Factory
	// stores the adapter can run against
	Dialects []dbutils.Dialect
}

func (a Adapter) Supports(d dbutils.Dialect) bool {
	for _, x := range a.Dialects {
		if x == d {
			return true
		}
	}
	return false
}

// Registry maps adapter names to factories, in report order.
type Registry struct {
	adapters []Adapter
}

var bothDialects = []dbutils.Dialect{dbutils.Postgres, dbutils.SQLite}

// DefaultRegistry holds the six built in adapters.
func DefaultRegistry() *Registry {
	r := &Registry{}
	r.Register(Adapter{Name: sqldriver.Name, Factory: sqldriver.New, Dialects: bothDialects})
	r.Register(Adapter{Name: sqlx.Name, Factory: sqlx.New, Dialects: bothDialects})
	r.Register(Adapter{Name: gorm.TrackedName, Factory: gorm.NewTracked, Dialects: bothDialects})
	r.Register(Adapter{Name: gorm.NoTrackName, Factory: gorm.NewNoTrack, Dialects: bothDialects})
	r.Register(Adapter{Name: gorm.RawName, Factory: gorm.NewRaw, Dialects: bothDialects})
	r.Register(Adapter{Name: pgx.Name, Factory: pgx.New, Dialects: []dbutils.Dialect{dbutils.Postgres}})
	return r
}

// Register adds an adapter, replacing one with the same name.
func (r *Registry) Register(a Adapter) {
	for i, x := range r.adapters {
		if x.Name == a.Name {
			r.adapters[i] = a
			return
		}
	}
	r.adapters = append(r.adapters, a)
}

func (r *Registry) Lookup(name string) (Adapter, error) {
	for _, a := range r.adapters {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return Adapter{}, fmt.Errorf("%w: %s", engine.ErrUnknownAdapter, name)
}

// Names lists the adapters that run against the dialect.
func (r *Registry) Names(d dbutils.Dialect) []string {
	names := []string{}
	for _, a := range r.adapters {
		if a.Supports(d) {
			names = append(names, a.Name)
		}
	}
	return names
}

// Resolve returns the named adapters in the given order, or every adapter of the
// dialect when names is empty.
func (r *Registry) Resolve(names []string, d dbutils.Dialect) ([]Adapter, error) {
	if len(names) == 0 {
		names = r.Names(d)
	}
	adapters := []Adapter{}
	for _, name := range names {
		a, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		if !a.Supports(d) {
			return nil, fmt.Errorf("adapter %s does not support %s", a.Name, d)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
