package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"partial-generator/internal/analyze"
	"partial-generator/internal/config"
	"partial-generator/internal/diagnostic"
	"partial-generator/internal/gen"
	"partial-generator/internal/plan"
)

// pipeline loads the annotated packages, resolves the plan and renders it.
type pipeline struct {
	cfg      *config.Config
	patterns []string
	logger   zerolog.Logger
}

func (p *pipeline) resolve(ctx context.Context) (*plan.ResolvedPlan, error) {
	leaves, err := p.cfg.LeafIDs()
	if err != nil {
		return nil, err
	}

	caps, err := p.cfg.Capabilities()
	if err != nil {
		return nil, err
	}

	graph, err := analyze.NewAnalyzer(analyze.Options{
		Leaves:        leaves,
		GeneratedFile: p.cfg.Output,
		Logger:        p.logger,
	}).LoadPackages(ctx, p.patterns...)
	if err != nil {
		return nil, err
	}

	return plan.NewResolver(graph, plan.Config{
		Suffix:        p.cfg.Suffix,
		Capabilities:  caps,
		Serialization: p.cfg.Serialization,
	}).Resolve(ctx)
}

// run resolves and renders. Types that failed are reported and left out;
// the returned error is set when any did.
func (p *pipeline) run(ctx context.Context) (*plan.ResolvedPlan, []gen.GeneratedFile, error) {
	resolved, err := p.resolve(ctx)
	if err != nil {
		return nil, nil, err
	}

	p.report(resolved.Diagnostics)

	files, err := gen.NewGenerator(gen.GeneratorConfig{
		Filename:         p.cfg.Output,
		DebugUnformatted: true,
	}, p.logger).Generate(resolved)
	if err != nil {
		return resolved, nil, err
	}

	if resolved.Diagnostics.HasErrors() {
		return resolved, files, fmt.Errorf("generation failed: %w", resolved.Diagnostics.Error())
	}

	return resolved, files, nil
}

func (p *pipeline) report(diags diagnostic.Diagnostics) {
	for _, d := range diags.All() {
		var ev *zerolog.Event

		switch d.Severity {
		case diagnostic.DiagnosticError:
			ev = p.logger.Error()
		case diagnostic.DiagnosticWarning:
			ev = p.logger.Warn()
		default:
			ev = p.logger.Info()
		}

		ev = ev.Str("code", d.Code).Str("type", d.Type)
		if d.FieldPath != "" {
			ev = ev.Str("field", d.FieldPath)
		}

		if d.Pos.IsValid() {
			ev = ev.Str("pos", d.Pos.String())
		}

		if len(d.Suggestions) > 0 {
			ev = ev.Strs("did_you_mean", d.Suggestions)
		}

		ev.Msg(d.Message)
	}
}

// dirs returns the directories of the packages in the plan.
func dirs(p *plan.ResolvedPlan) []string {
	var out []string

	for _, info := range p.Graph.Packages {
		if info.Dir != "" && !slices.Contains(out, info.Dir) {
			out = append(out, info.Dir)
		}
	}

	slices.Sort(out)

	return out
}
