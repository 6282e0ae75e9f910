package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/pkg/fl"
)

var _ model.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    model.Service
}

func Logging(logger *slog.Logger, svc model.Service) model.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) BeginTrainingRound(ctx context.Context) (resp model.RoundResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Training round failed", args...)

			return
		}
		args = append(args, slog.Group("round",
			slog.Int64("base_version", resp.BaseVersion),
			slog.Int64("version", resp.Version),
			slog.String("train_duration", resp.Duration.String()),
		))
		lm.logger.Info("Training round completed successfully", args...)
	}(time.Now())

	return lm.svc.BeginTrainingRound(ctx)
}

func (lm *loggingMiddleware) ComputeDelta(ctx context.Context) (resp *fl.DeltaData, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Compute delta failed", args...)

			return
		}
		args = append(args, slog.Int64("source_version", resp.SourceVersion()))
		lm.logger.Info("Compute delta completed successfully", args...)
	}(time.Now())

	return lm.svc.ComputeDelta(ctx)
}

func (lm *loggingMiddleware) MergeDelta(ctx context.Context, d *fl.DeltaData) (resp model.MergeResult, err error) {
	var source int64
	if d != nil {
		source = d.SourceVersion()
	}
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int64("source_version", source),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Merge delta failed", args...)

			return
		}
		args = append(args, slog.Group("merge",
			slog.Int64("previous_version", resp.PreviousVersion),
			slog.Int64("version", resp.Version),
			slog.Int64("staleness", resp.Staleness),
			slog.Float64("factor", resp.Factor),
		))
		lm.logger.Info("Merge delta completed successfully", args...)
	}(time.Now())

	return lm.svc.MergeDelta(ctx, d)
}

func (lm *loggingMiddleware) ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int64("version", version),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Replace weights failed", args...)

			return
		}
		lm.logger.Info("Replace weights completed successfully", args...)
	}(time.Now())

	return lm.svc.ReplaceWeights(ctx, w, version)
}

func (lm *loggingMiddleware) Resynchronize(ctx context.Context, desc fl.ModelDescriptor) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("descriptor",
				slog.Int64("version", desc.Version()),
				slog.Int("size", desc.Size()),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Resynchronize failed", args...)

			return
		}
		lm.logger.Info("Resynchronize completed successfully", args...)
	}(time.Now())

	return lm.svc.Resynchronize(ctx, desc)
}

func (lm *loggingMiddleware) Validate(ctx context.Context) (accuracy float64, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Validate model failed", args...)

			return
		}
		args = append(args, slog.Float64("accuracy", accuracy))
		lm.logger.Info("Validate model completed successfully", args...)
	}(time.Now())

	return lm.svc.Validate(ctx)
}

func (lm *loggingMiddleware) TrainingData(ctx context.Context, d dataset.Descriptor) (resp dataset.TrainingData, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("beginning", d.Beginning),
			slog.Int("end", d.End),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get training data failed", args...)

			return
		}
		lm.logger.Info("Get training data completed successfully", args...)
	}(time.Now())

	return lm.svc.TrainingData(ctx, d)
}

func (lm *loggingMiddleware) SetTrainingData(ctx context.Context, td dataset.TrainingData) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("num_data", td.NumData),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Set training data failed", args...)

			return
		}
		lm.logger.Info("Set training data completed successfully", args...)
	}(time.Now())

	return lm.svc.SetTrainingData(ctx, td)
}

func (lm *loggingMiddleware) Snapshot(ctx context.Context) (resp model.Snapshot, err error) {
	return lm.svc.Snapshot(ctx)
}

func (lm *loggingMiddleware) ModelVersion() int64 {
	return lm.svc.ModelVersion()
}

func (lm *loggingMiddleware) ModelDescriptor() fl.ModelDescriptor {
	return lm.svc.ModelDescriptor()
}

func (lm *loggingMiddleware) WeightsData() *fl.WeightsData {
	return lm.svc.WeightsData()
}

func (lm *loggingMiddleware) NumberOfTrainingObjects() int {
	return lm.svc.NumberOfTrainingObjects()
}

func (lm *loggingMiddleware) NumberOfTestingObjects() int {
	return lm.svc.NumberOfTestingObjects()
}
