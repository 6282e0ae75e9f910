package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
	pkgmqtt "github.com/absmach/fedasync/pkg/mqtt"
	"github.com/absmach/fedasync/pkg/storage"
	"github.com/google/uuid"
)

const defLivelinessInterval = 10 * time.Second

var _ Service = (*service)(nil)

type service struct {
	worker             Worker
	domainID           string
	channelID          string
	livelinessInterval time.Duration
	retain             int
	model              model.Service
	repo               storage.DescriptorRepository
	pubsub             pkgmqtt.PubSub
	logger             *slog.Logger
}

func NewService(cfg Config, m model.Service, repo storage.DescriptorRepository, pubsub pkgmqtt.PubSub, logger *slog.Logger) (Service, error) {
	if cfg.ID == "" {
		return nil, ErrEmptyID
	}
	interval := cfg.LivelinessInterval
	if interval <= 0 {
		interval = defLivelinessInterval
	}

	return &service{
		worker:             Worker{ID: cfg.ID, Name: cfg.Name},
		domainID:           cfg.DomainID,
		channelID:          cfg.ChannelID,
		livelinessInterval: interval,
		retain:             cfg.Retain,
		model:              m,
		repo:               repo,
		pubsub:             pubsub,
		logger:             logger,
	}, nil
}

// LoadModel restores the newest persisted descriptor. With nothing persisted
// it creates a fresh model from params and persists version 0.
func LoadModel(ctx context.Context, repo storage.DescriptorRepository, engine model.Engine, loader dataset.Loader, params model.Parameters, opts ...model.Option) (model.Service, error) {
	desc, err := repo.Latest(ctx)
	switch {
	case err == nil:
		return model.Restore(ctx, engine, loader, desc, opts...)
	case errors.Is(err, pkgerrors.ErrNotFound):
		m, err := model.New(ctx, engine, loader, params, opts...)
		if err != nil {
			return nil, err
		}
		if err := repo.Save(ctx, m.ModelDescriptor()); err != nil {
			return nil, fmt.Errorf("failed to persist initial model: %w", err)
		}

		return m, nil
	default:
		return nil, fmt.Errorf("failed to read persisted model: %w", err)
	}
}

func (svc *service) Status(ctx context.Context) (Status, error) {
	snap, err := svc.model.Snapshot(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{Worker: svc.worker, Model: snap}, nil
}

func (svc *service) Descriptor(_ context.Context) (fl.ModelDescriptor, error) {
	return svc.model.ModelDescriptor(), nil
}

func (svc *service) StoredDescriptor(ctx context.Context, version int64) (fl.ModelDescriptor, error) {
	return svc.repo.Get(ctx, version)
}

func (svc *service) ListDescriptors(ctx context.Context, offset, limit uint64) (storage.DescriptorPage, error) {
	return svc.repo.List(ctx, offset, limit)
}

func (svc *service) Delta(ctx context.Context) (DeltaMessage, error) {
	d, err := svc.model.ComputeDelta(ctx)
	if err != nil {
		return DeltaMessage{}, err
	}

	return svc.deltaMessage("", d)
}

func (svc *service) TrainRound(ctx context.Context, cmd RoundCommand) (RoundReport, error) {
	if cmd.RoundID == "" {
		cmd.RoundID = uuid.NewString()
	}
	if cmd.Data != nil {
		if _, err := svc.SelectTrainingData(ctx, *cmd.Data); err != nil {
			return RoundReport{}, err
		}
	}

	res, err := svc.model.BeginTrainingRound(ctx)
	if err != nil {
		return RoundReport{}, err
	}
	svc.persist(ctx)

	msg, err := svc.deltaMessage(cmd.RoundID, res.Delta)
	if err != nil {
		return RoundReport{}, err
	}
	report := RoundReport{
		RoundID:     cmd.RoundID,
		BaseVersion: res.BaseVersion,
		Version:     res.Version,
		Duration:    res.Duration,
		DeltaSize:   len(msg.Delta),
	}

	if err := svc.pubsub.Publish(ctx, svc.topic(deltasTopicTemplate), msg); err != nil {
		return report, fmt.Errorf("failed to publish delta: %w", err)
	}
	svc.publishResult(ctx, resultMessage{
		Kind:        roundResult,
		RoundID:     cmd.RoundID,
		BaseVersion: res.BaseVersion,
		Version:     res.Version,
		Duration:    res.Duration,
	})

	return report, nil
}

func (svc *service) ApplyDelta(ctx context.Context, msg DeltaMessage) (model.MergeResult, error) {
	d, err := msg.Decode()
	if err != nil {
		return model.MergeResult{}, err
	}

	res, err := svc.model.MergeDelta(ctx, d)
	if err != nil {
		return model.MergeResult{}, err
	}
	svc.persist(ctx)
	svc.publishResult(ctx, resultMessage{
		Kind:        mergeResult,
		RoundID:     msg.RoundID,
		From:        msg.WorkerID,
		BaseVersion: res.PreviousVersion,
		Version:     res.Version,
		Staleness:   res.Staleness,
		Factor:      res.Factor,
	})

	return res, nil
}

func (svc *service) Sync(ctx context.Context, msg SyncMessage) (model.Snapshot, error) {
	if err := msg.Validate(); err != nil {
		return model.Snapshot{}, err
	}
	previous := svc.model.ModelVersion()

	if err := svc.model.Resynchronize(ctx, fl.NewModelDescriptor(msg.Descriptor, msg.Version)); err != nil {
		return model.Snapshot{}, err
	}
	svc.persist(ctx)
	svc.publishResult(ctx, resultMessage{
		Kind:        syncResult,
		BaseVersion: previous,
		Version:     msg.Version,
	})

	return svc.model.Snapshot(ctx)
}

func (svc *service) ReplaceWeights(ctx context.Context, w *fl.WeightsData, version int64) (model.Snapshot, error) {
	if w == nil {
		return model.Snapshot{}, fmt.Errorf("%w: missing weights", pkgerrors.ErrInvalidData)
	}
	if err := svc.model.ReplaceWeights(ctx, w, version); err != nil {
		return model.Snapshot{}, err
	}
	svc.persist(ctx)

	return svc.model.Snapshot(ctx)
}

func (svc *service) SelectTrainingData(ctx context.Context, d dataset.Descriptor) (int, error) {
	td, err := svc.model.TrainingData(ctx, d)
	if err != nil {
		return 0, err
	}
	if err := svc.model.SetTrainingData(ctx, td); err != nil {
		return 0, err
	}

	return svc.model.NumberOfTrainingObjects(), nil
}

func (svc *service) Validate(ctx context.Context) (float64, error) {
	return svc.model.Validate(ctx)
}

func (svc *service) Subscribe(ctx context.Context) error {
	subscriptions := []struct {
		template string
		handler  pkgmqtt.Handler
	}{
		{roundTopicTemplate, svc.handleRoundCommand(ctx)},
		{deltasTopicTemplate, svc.handleDelta(ctx)},
		{syncTopicTemplate, svc.handleSync(ctx)},
	}
	for _, sub := range subscriptions {
		topic := svc.topic(sub.template)
		if err := svc.pubsub.Subscribe(ctx, topic, sub.handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	go svc.startLivelinessUpdates(ctx)

	return nil
}

// Rounds and syncs wait for the engine, so they run off the MQTT delivery
// goroutine. Deltas merge without the engine lock and keep arrival order.
func (svc *service) handleRoundCommand(ctx context.Context) pkgmqtt.Handler {
	return func(_ string, msg map[string]any) error {
		var cmd RoundCommand
		if err := decode(msg, &cmd); err != nil {
			return err
		}

		go func() {
			report, err := svc.TrainRound(ctx, cmd)
			if err != nil {
				svc.logger.Warn("Training round failed", slog.String("round_id", cmd.RoundID), slog.Any("error", err))

				return
			}
			svc.logger.Info("Training round published",
				slog.String("round_id", report.RoundID),
				slog.Int64("version", report.Version),
			)
		}()

		return nil
	}
}

func (svc *service) handleDelta(ctx context.Context) pkgmqtt.Handler {
	return func(_ string, msg map[string]any) error {
		var dm DeltaMessage
		if err := decode(msg, &dm); err != nil {
			return err
		}
		if dm.WorkerID == svc.worker.ID {
			return nil
		}

		_, err := svc.ApplyDelta(ctx, dm)

		return err
	}
}

func (svc *service) handleSync(ctx context.Context) pkgmqtt.Handler {
	return func(_ string, msg map[string]any) error {
		var sm SyncMessage
		if err := decode(msg, &sm); err != nil {
			return err
		}
		if err := sm.Validate(); err != nil {
			return err
		}

		go func() {
			if _, err := svc.Sync(ctx, sm); err != nil {
				svc.logger.Warn("Resynchronization failed", slog.Int64("version", sm.Version), slog.Any("error", err))
			}
		}()

		return nil
	}
}

func (svc *service) startLivelinessUpdates(ctx context.Context) {
	ticker := time.NewTicker(svc.livelinessInterval)
	defer ticker.Stop()

	topic := fmt.Sprintf(pkgmqtt.AliveTopicTemplate, svc.domainID, svc.channelID)
	for {
		select {
		case <-ctx.Done():
			svc.logger.Info("stopping liveliness updates")

			return
		case <-ticker.C:
			msg := aliveMessage{
				Status:   "alive",
				WorkerID: svc.worker.ID,
				Name:     svc.worker.Name,
				Version:  svc.model.ModelVersion(),
			}
			if err := svc.pubsub.Publish(ctx, topic, msg); err != nil {
				svc.logger.Error("failed to publish liveliness message", slog.Any("error", err))

				continue
			}

			svc.logger.Debug("Published liveliness message", slog.String("topic", topic))
		}
	}
}

func (svc *service) deltaMessage(roundID string, d *fl.DeltaData) (DeltaMessage, error) {
	payload, err := fl.EncodeDelta(d)
	if err != nil {
		return DeltaMessage{}, fmt.Errorf("failed to encode delta: %w", err)
	}

	return DeltaMessage{
		WorkerID:      svc.worker.ID,
		RoundID:       roundID,
		SourceVersion: d.SourceVersion(),
		Delta:         payload,
	}, nil
}

// persist stores the current descriptor. The commit already happened, so a
// storage failure is logged and does not fail the operation.
func (svc *service) persist(ctx context.Context) {
	desc := svc.model.ModelDescriptor()
	if err := svc.repo.Save(ctx, desc); err != nil {
		svc.logger.Warn("Failed to persist model descriptor", slog.Int64("version", desc.Version()), slog.Any("error", err))

		return
	}
	if svc.retain <= 0 {
		return
	}
	if err := svc.repo.Prune(ctx, svc.retain); err != nil {
		svc.logger.Warn("Failed to prune model descriptors", slog.Int("retain", svc.retain), slog.Any("error", err))
	}
}

func (svc *service) publishResult(ctx context.Context, msg resultMessage) {
	msg.WorkerID = svc.worker.ID
	if err := svc.pubsub.Publish(ctx, svc.topic(resultsTopicTemplate), msg); err != nil {
		svc.logger.Warn("Failed to publish result", slog.String("kind", string(msg.Kind)), slog.Any("error", err))
	}
}

func (svc *service) topic(template string) string {
	return fmt.Sprintf(template, svc.domainID, svc.channelID)
}
