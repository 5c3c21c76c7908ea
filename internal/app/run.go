package app

import (
	"context"
	"fmt"

	"github.com/vk/framegraph/internal/builder"
	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/hclgraph"
	"github.com/vk/framegraph/internal/memdoc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/vk/framegraph/internal/app")

// Run loads the configured graph files, compiles them into a fresh document
// and writes the report.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	ctx, span := tracer.Start(ctx, "app.Run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	model, err := hclgraph.NewLoader().Load(ctx, a.config.GraphPaths...)
	if err != nil {
		return fmt.Errorf("failed to load graph files: %w", err)
	}
	if len(model.Scopes) == 0 {
		a.logger.Warn("No scopes found in graph files, nothing to compile.", "paths", a.config.GraphPaths)
	}

	doc, err := memdoc.New()
	if err != nil {
		return err
	}
	graph, err := hclgraph.Apply(ctx, doc, model, builder.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("failed to compile graph: %w", err)
	}
	a.logger.Info("Graph compiled.", "scopes", len(graph.Scopes()), "kinds", len(model.Kinds))

	for i := range a.config.Recompile {
		if err := graph.Compile(ctx); err != nil {
			return fmt.Errorf("recompile %d failed: %w", i+1, err)
		}
	}
	if a.config.Recompile > 0 {
		a.logger.Info("Graph recompiled.", "times", a.config.Recompile)
	}
	span.SetAttributes(
		attribute.Int("framegraph.scopes", len(graph.Scopes())),
		attribute.Int("framegraph.recompiles", a.config.Recompile),
	)

	report := buildReport(doc, graph)
	if err := writeReport(a.outW, a.config.Output, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if a.config.Metrics {
		if err := a.writeMetrics(); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
