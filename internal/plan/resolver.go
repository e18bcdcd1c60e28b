package plan

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"partial-generator/internal/analyze"
	"partial-generator/internal/diagnostic"
)

// Resolver runs Transform over every annotated type of a graph.
type Resolver struct {
	graph    *analyze.TypeGraph
	registry *Registry
	config   Config
}

// NewResolver creates a new Resolver.
func NewResolver(graph *analyze.TypeGraph, config Config) *Resolver {
	return &Resolver{
		graph:    graph,
		registry: NewRegistry(graph, config.Suffix),
		config:   config,
	}
}

// Registry returns the PartialOf registry built from the graph.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve transforms every annotated type, concurrently, and returns the
// plan. Schema errors are reported in the plan diagnostics; the returned
// error is only set when ctx is canceled.
//
// A type whose fields refer to a type that failed also fails, so the plan
// never names a generated type that will not exist.
func (r *Resolver) Resolve(ctx context.Context) (*ResolvedPlan, error) {
	schemas := r.graph.Ordered()
	results := make([]*GeneratedSchema, len(schemas))
	diags := make([]diagnostic.Diagnostics, len(schemas))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, s := range schemas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i], diags[i] = Transform(s, r.registry, r.config)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	plan := &ResolvedPlan{
		Graph:    r.graph,
		Registry: r.registry,
	}

	for i := range schemas {
		plan.Diagnostics.Merge(diags[i])
	}

	r.cascade(results, &plan.Diagnostics)

	for _, res := range results {
		if res != nil {
			plan.Schemas = append(plan.Schemas, res)
		}
	}

	return plan, nil
}

// cascade drops every schema that depends on a type that failed, until no
// more schemas fail.
func (r *Resolver) cascade(results []*GeneratedSchema, diags *diagnostic.Diagnostics) {
	failed := make(map[analyze.TypeID]bool)

	for _, s := range r.graph.Schemas {
		failed[s.ID] = true
	}

	for _, res := range results {
		if res != nil {
			delete(failed, res.Source.ID)

			for _, v := range res.Source.Variants {
				delete(failed, v.ID)
			}
		}
	}

	for changed := true; changed; {
		changed = false

		for i, res := range results {
			if res == nil {
				continue
			}

			dep, path, ok := firstFailedDependency(res, failed)
			if !ok {
				continue
			}

			diags.AddError(diagnostic.CodeNoPartialMapping,
				fmt.Sprintf("type %s has no partial form: its generation failed", dep),
				res.Source.ID.String(), path, res.Source.Pos)

			failed[res.Source.ID] = true
			for _, v := range res.Source.Variants {
				failed[v.ID] = true
			}

			results[i] = nil
			changed = true
		}
	}
}

func firstFailedDependency(s *GeneratedSchema, failed map[analyze.TypeID]bool) (analyze.TypeID, string, bool) {
	check := func(fields []GeneratedField, prefix string) (analyze.TypeID, string, bool) {
		for _, f := range fields {
			if f.Strategy == StrategyRequired {
				continue
			}

			var found *analyze.TypeID

			f.Source.Type.Walk(func(e *analyze.TypeExpr) {
				if found == nil && e.Kind == analyze.ExprNamed && failed[e.ID] {
					id := e.ID
					found = &id
				}
			})

			if found != nil {
				return *found, prefix + f.Source.Name, true
			}
		}

		return analyze.TypeID{}, "", false
	}

	if id, path, ok := check(s.Fields, ""); ok {
		return id, path, true
	}

	for _, v := range s.Variants {
		if id, path, ok := check(v.Fields, v.Source.ID.Name+"."); ok {
			return id, path, true
		}
	}

	return analyze.TypeID{}, "", false
}
