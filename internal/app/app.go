package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"penguincli/internal/config"
	"penguincli/internal/dataprocessing"
	apperrors "penguincli/internal/errors"
	"penguincli/internal/exporter"
	"penguincli/internal/infrastructure"
	"penguincli/internal/validation"
	"penguincli/pkg/contracts"
	"penguincli/pkg/contracts/domain"
)

const (
	AppName = "penguin-report"
	VERSION = contracts.Version
)

// Stage names used for spans, metrics and log fields.
const (
	StageLoad      = "load"
	StageAggregate = "aggregate"
	StageThreshold = "threshold"
	StageRender    = "render"
	StageExport    = "export"
)

// Application wires the pipeline together. It is built once per run by the
// entry point.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *infrastructure.PipelineMetrics
	Tracing *infrastructure.Tracing

	log       *slog.Logger
	validator *validation.FileValidator
}

// Result is what a successful run produced.
type Result struct {
	RunID      string
	Stats      dataprocessing.LoadStats
	Averages   dataprocessing.FlipperAverages
	Threshold  dataprocessing.ThresholdResult
	ReportPath string
	CSVPath    string
}

// NewApplication creates an application from a validated configuration. A nil
// logger falls back to the global one, a nil tracing to a no-op tracer.
func NewApplication(cfg *config.Config, logger *slog.Logger, tracing *infrastructure.Tracing) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if tracing == nil {
		var err error
		if tracing, err = infrastructure.NewTracing(nil); err != nil {
			return nil, err
		}
	}

	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Metrics:   infrastructure.NewPipelineMetrics(),
		Tracing:   tracing,
		log:       infrastructure.WithComponent(logger, "app"),
		validator: validation.NewFileValidator(logger),
	}, nil
}

// Run loads the input, computes both analyses and writes the report. A load
// failure stops the run before any analysis and nothing is written.
func (a *Application) Run(ctx context.Context) (*Result, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	result := &Result{RunID: infrastructure.GetTraceID(ctx)}

	ctx, span := a.Tracing.Tracer.Start(ctx, "pipeline", trace.WithAttributes(
		attribute.String("run.id", result.RunID),
		attribute.String("input.path", a.Config.Input.Path),
	))
	defer span.End()

	started := time.Now()
	a.log.InfoContext(ctx, "Pipeline starting",
		slog.String("app", AppName),
		slog.String("version", VERSION),
		slog.String("input", a.Config.Input.Path),
		slog.String("report", a.Config.Report.Path),
		slog.String("species", a.Config.Analysis.Species),
		slog.String("sex", a.Config.Analysis.Sex))

	collection, err := a.load(ctx, result)
	if err != nil {
		return nil, a.fail(ctx, span, StageLoad, err)
	}

	a.aggregate(ctx, collection, result)
	a.threshold(ctx, collection, result)

	if err := a.render(ctx, result); err != nil {
		return nil, a.fail(ctx, span, StageRender, err)
	}

	if a.Config.Report.CSVPath != "" {
		if err := a.export(ctx, result); err != nil {
			return nil, a.fail(ctx, span, StageExport, err)
		}
	}

	if path := a.Config.Telemetry.MetricsFile; path != "" {
		if err := a.Metrics.WriteTextfile(path); err != nil {
			a.log.WarnContext(ctx, "Failed to write metrics textfile",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}

	a.log.InfoContext(ctx, "Pipeline completed",
		slog.Int("records", result.Stats.Records),
		slog.Int("groups", result.Averages.Groups()),
		slog.Float64("percentage", result.Threshold.Percentage),
		slog.Duration("duration", time.Since(started)))

	return result, nil
}

func (a *Application) load(ctx context.Context, result *Result) (*domain.Collection, error) {
	ctx, span := a.Tracing.Tracer.Start(ctx, StageLoad)
	defer span.End()
	defer a.Metrics.ObserveStage(StageLoad, time.Now())

	in := a.Config.Input
	if err := a.validator.ValidateInputFile(ctx, in.Path); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	collection, stats, err := dataprocessing.LoadFile(ctx, in.Path, dataprocessing.LoadOptions{
		Format:          dataprocessing.Format(in.Format),
		Sheet:           in.Sheet,
		DuplicatePolicy: dataprocessing.DuplicatePolicy(in.DuplicatePolicy),
		Logger:          a.Logger,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result.Stats = stats
	a.Metrics.RecordsLoaded.Add(float64(stats.Records))
	a.Metrics.DuplicateIDs.Add(float64(stats.Duplicates))
	span.SetAttributes(
		attribute.Int("rows", stats.Rows),
		attribute.Int("records", stats.Records),
		attribute.Int("duplicates", stats.Duplicates),
	)
	return collection, nil
}

func (a *Application) aggregate(ctx context.Context, collection *domain.Collection, result *Result) {
	ctx, span := a.Tracing.Tracer.Start(ctx, StageAggregate)
	defer span.End()
	defer a.Metrics.ObserveStage(StageAggregate, time.Now())

	result.Averages = dataprocessing.CalculateFlipperAverages(collection)

	a.Metrics.FlipperGroups.Set(float64(result.Averages.Groups()))
	a.Metrics.RecordsSkipped.WithLabelValues(StageAggregate).Add(float64(result.Averages.Skipped))
	span.SetAttributes(
		attribute.Int("islands", len(result.Averages.Islands)),
		attribute.Int("groups", result.Averages.Groups()),
		attribute.Int("skipped", result.Averages.Skipped),
	)
	a.log.DebugContext(ctx, "Flipper length averages computed",
		slog.Int("groups", result.Averages.Groups()),
		slog.Int("skipped", result.Averages.Skipped))
}

func (a *Application) threshold(ctx context.Context, collection *domain.Collection, result *Result) {
	ctx, span := a.Tracing.Tracer.Start(ctx, StageThreshold)
	defer span.End()
	defer a.Metrics.ObserveStage(StageThreshold, time.Now())

	filter := dataprocessing.GroupFilter{
		Species: a.Config.Analysis.Species,
		Sex:     a.Config.Analysis.Sex,
	}
	result.Threshold = dataprocessing.CalculateAboveMeanPercentage(collection, filter)

	a.Metrics.ThresholdPercentage.Set(result.Threshold.Percentage)
	a.Metrics.RecordsSkipped.WithLabelValues(StageThreshold).Add(float64(result.Threshold.Skipped))
	span.SetAttributes(
		attribute.String("species", filter.Species),
		attribute.String("sex", filter.Sex),
		attribute.Int("size", result.Threshold.Size),
		attribute.Float64("percentage", result.Threshold.Percentage),
	)

	if result.Threshold.Empty() {
		a.log.WarnContext(ctx, "No records matched the analysis filter",
			slog.String("species", filter.Species),
			slog.String("sex", filter.Sex))
		return
	}
	a.log.DebugContext(ctx, "Above-mean percentage computed",
		slog.Int("size", result.Threshold.Size),
		slog.Int("above", result.Threshold.Above),
		slog.Float64("mean_body_mass_g", result.Threshold.MeanMass))
}

func (a *Application) render(ctx context.Context, result *Result) error {
	_, span := a.Tracing.Tracer.Start(ctx, StageRender)
	defer span.End()
	defer a.Metrics.ObserveStage(StageRender, time.Now())

	path := a.Config.Report.Path
	if err := exporter.WriteReport(path, result.Averages, result.Threshold); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	result.ReportPath = path
	span.SetAttributes(attribute.String("report.path", path))
	return nil
}

func (a *Application) export(ctx context.Context, result *Result) error {
	_, span := a.Tracing.Tracer.Start(ctx, StageExport)
	defer span.End()
	defer a.Metrics.ObserveStage(StageExport, time.Now())

	path := a.Config.Report.CSVPath
	if err := exporter.WriteGroupAveragesCSV(path, result.Averages); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return apperrors.NewStorageError("failed to export group averages", err).WithContext("path", path)
	}
	result.CSVPath = path
	return nil
}

func (a *Application) fail(ctx context.Context, span trace.Span, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	infrastructure.WithError(a.log, err).ErrorContext(ctx, "Pipeline failed",
		slog.String("stage", stage))
	return err
}
