package middleware

import (
	"context"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/pkg/fl"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ model.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    model.Service
}

func Tracing(tracer trace.Tracer, svc model.Service) model.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) BeginTrainingRound(ctx context.Context) (model.RoundResult, error) {
	ctx, span := tm.tracer.Start(ctx, "begin-training-round", trace.WithAttributes(
		attribute.Int64("version", tm.svc.ModelVersion()),
	))
	defer span.End()

	return tm.svc.BeginTrainingRound(ctx)
}

func (tm *tracing) ComputeDelta(ctx context.Context) (*fl.DeltaData, error) {
	ctx, span := tm.tracer.Start(ctx, "compute-delta")
	defer span.End()

	return tm.svc.ComputeDelta(ctx)
}

func (tm *tracing) MergeDelta(ctx context.Context, d *fl.DeltaData) (model.MergeResult, error) {
	var source int64
	if d != nil {
		source = d.SourceVersion()
	}
	ctx, span := tm.tracer.Start(ctx, "merge-delta", trace.WithAttributes(
		attribute.Int64("source_version", source),
		attribute.Int64("version", tm.svc.ModelVersion()),
	))
	defer span.End()

	return tm.svc.MergeDelta(ctx, d)
}

func (tm *tracing) ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) error {
	ctx, span := tm.tracer.Start(ctx, "replace-weights", trace.WithAttributes(
		attribute.Int64("version", version),
	))
	defer span.End()

	return tm.svc.ReplaceWeights(ctx, w, version)
}

func (tm *tracing) Resynchronize(ctx context.Context, desc fl.ModelDescriptor) error {
	ctx, span := tm.tracer.Start(ctx, "resynchronize", trace.WithAttributes(
		attribute.Int64("version", desc.Version()),
		attribute.Int("size", desc.Size()),
	))
	defer span.End()

	return tm.svc.Resynchronize(ctx, desc)
}

func (tm *tracing) Validate(ctx context.Context) (float64, error) {
	ctx, span := tm.tracer.Start(ctx, "validate")
	defer span.End()

	return tm.svc.Validate(ctx)
}

func (tm *tracing) TrainingData(ctx context.Context, d dataset.Descriptor) (dataset.TrainingData, error) {
	ctx, span := tm.tracer.Start(ctx, "training-data", trace.WithAttributes(
		attribute.Int("beginning", d.Beginning),
		attribute.Int("end", d.End),
	))
	defer span.End()

	return tm.svc.TrainingData(ctx, d)
}

func (tm *tracing) SetTrainingData(ctx context.Context, td dataset.TrainingData) error {
	ctx, span := tm.tracer.Start(ctx, "set-training-data", trace.WithAttributes(
		attribute.Int("num_data", td.NumData),
	))
	defer span.End()

	return tm.svc.SetTrainingData(ctx, td)
}

func (tm *tracing) Snapshot(ctx context.Context) (model.Snapshot, error) {
	ctx, span := tm.tracer.Start(ctx, "snapshot")
	defer span.End()

	return tm.svc.Snapshot(ctx)
}

func (tm *tracing) ModelVersion() int64 {
	return tm.svc.ModelVersion()
}

func (tm *tracing) ModelDescriptor() fl.ModelDescriptor {
	return tm.svc.ModelDescriptor()
}

func (tm *tracing) WeightsData() *fl.WeightsData {
	return tm.svc.WeightsData()
}

func (tm *tracing) NumberOfTrainingObjects() int {
	return tm.svc.NumberOfTrainingObjects()
}

func (tm *tracing) NumberOfTestingObjects() int {
	return tm.svc.NumberOfTestingObjects()
}
