package middleware

import (
	"context"
	"time"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/go-kit/kit/metrics"
)

var _ model.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	version metrics.Gauge
	svc     model.Service
}

// Metrics records call counts and latencies per method. version follows the
// model version after every mutating call.
func Metrics(counter metrics.Counter, latency metrics.Histogram, version metrics.Gauge, svc model.Service) model.Service {
	version.Set(float64(svc.ModelVersion()))

	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		version: version,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) observe(method string, begin time.Time) {
	mm.counter.With("method", method).Add(1)
	mm.latency.With("method", method).Observe(time.Since(begin).Seconds())
	mm.version.Set(float64(mm.svc.ModelVersion()))
}

func (mm *metricsMiddleware) BeginTrainingRound(ctx context.Context) (model.RoundResult, error) {
	defer mm.observe("begin-training-round", time.Now())

	return mm.svc.BeginTrainingRound(ctx)
}

func (mm *metricsMiddleware) ComputeDelta(ctx context.Context) (*fl.DeltaData, error) {
	defer mm.observe("compute-delta", time.Now())

	return mm.svc.ComputeDelta(ctx)
}

func (mm *metricsMiddleware) MergeDelta(ctx context.Context, d *fl.DeltaData) (model.MergeResult, error) {
	defer mm.observe("merge-delta", time.Now())

	return mm.svc.MergeDelta(ctx, d)
}

func (mm *metricsMiddleware) ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) error {
	defer mm.observe("replace-weights", time.Now())

	return mm.svc.ReplaceWeights(ctx, w, version)
}

func (mm *metricsMiddleware) Resynchronize(ctx context.Context, desc fl.ModelDescriptor) error {
	defer mm.observe("resynchronize", time.Now())

	return mm.svc.Resynchronize(ctx, desc)
}

func (mm *metricsMiddleware) Validate(ctx context.Context) (float64, error) {
	defer mm.observe("validate", time.Now())

	return mm.svc.Validate(ctx)
}

func (mm *metricsMiddleware) TrainingData(ctx context.Context, d dataset.Descriptor) (dataset.TrainingData, error) {
	defer mm.observe("training-data", time.Now())

	return mm.svc.TrainingData(ctx, d)
}

func (mm *metricsMiddleware) SetTrainingData(ctx context.Context, td dataset.TrainingData) error {
	defer mm.observe("set-training-data", time.Now())

	return mm.svc.SetTrainingData(ctx, td)
}

func (mm *metricsMiddleware) Snapshot(ctx context.Context) (model.Snapshot, error) {
	defer mm.observe("snapshot", time.Now())

	return mm.svc.Snapshot(ctx)
}

func (mm *metricsMiddleware) ModelVersion() int64 {
	return mm.svc.ModelVersion()
}

func (mm *metricsMiddleware) ModelDescriptor() fl.ModelDescriptor {
	return mm.svc.ModelDescriptor()
}

func (mm *metricsMiddleware) WeightsData() *fl.WeightsData {
	return mm.svc.WeightsData()
}

func (mm *metricsMiddleware) NumberOfTrainingObjects() int {
	return mm.svc.NumberOfTrainingObjects()
}

func (mm *metricsMiddleware) NumberOfTestingObjects() int {
	return mm.svc.NumberOfTestingObjects()
}
