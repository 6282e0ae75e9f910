package api

import (
	"context"
	"errors"

	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/worker"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

var (
	errInvalidVersion = errors.New("invalid model version")
	errMissingWeights = errors.New("missing weights")
)

func statusEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return statusResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		status, err := svc.Status(ctx)
		if err != nil {
			return statusResponse{}, err
		}

		return statusResponse{Status: status}, nil
	}
}

func descriptorEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return descriptorResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		desc, err := svc.Descriptor(ctx)
		if err != nil {
			return descriptorResponse{}, err
		}

		return descriptorResponse{
			Version:    desc.Version(),
			Size:       desc.Size(),
			Descriptor: desc.Binary(),
		}, nil
	}
}

func storedDescriptorEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(versionReq)
		if !ok {
			return descriptorResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return descriptorResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		desc, err := svc.StoredDescriptor(ctx, req.version)
		if err != nil {
			return descriptorResponse{}, err
		}

		return descriptorResponse{
			Version:    desc.Version(),
			Size:       desc.Size(),
			Descriptor: desc.Binary(),
		}, nil
	}
}

func listDescriptorsEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listDescriptorsReq)
		if !ok {
			return listDescriptorsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listDescriptorsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		page, err := svc.ListDescriptors(ctx, req.offset, req.limit)
		if err != nil {
			return listDescriptorsResponse{}, err
		}

		return listDescriptorsResponse{DescriptorPage: page}, nil
	}
}

func deltaEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return deltaResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		msg, err := svc.Delta(ctx)
		if err != nil {
			return deltaResponse{}, err
		}

		return deltaResponse{DeltaMessage: msg}, nil
	}
}

func replaceWeightsEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(replaceWeightsReq)
		if !ok {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		snap, err := svc.ReplaceWeights(ctx, req.Weights, req.Version)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{Snapshot: snap}, nil
	}
}

func trainRoundEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		report, err := svc.TrainRound(ctx, req.RoundCommand)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{RoundReport: report}, nil
	}
}

func applyDeltaEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(deltaReq)
		if !ok {
			return mergeResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return mergeResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		res, err := svc.ApplyDelta(ctx, req.DeltaMessage)
		if err != nil {
			return mergeResponse{}, err
		}

		return mergeResponse{MergeResult: res}, nil
	}
}

func syncEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(syncReq)
		if !ok {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		snap, err := svc.Sync(ctx, req.SyncMessage)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{Snapshot: snap}, nil
	}
}

func validateEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		if _, ok := request.(emptyReq); !ok {
			return validateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		acc, err := svc.Validate(ctx)
		if err != nil {
			return validateResponse{}, err
		}

		return validateResponse{Accuracy: acc}, nil
	}
}

func selectDataEndpoint(svc worker.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(dataReq)
		if !ok {
			return dataResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return dataResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		n, err := svc.SelectTrainingData(ctx, req.Descriptor)
		if err != nil {
			return dataResponse{}, err
		}

		return dataResponse{TrainingObjects: n}, nil
	}
}
