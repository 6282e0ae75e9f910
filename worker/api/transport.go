package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/fedasync/pkg/api"
	"github.com/absmach/fedasync/worker"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	svcName     = "worker"
	versionKey  = "version"
	maxBodySize = 1024 * 1024 * 64
)

func MakeHandler(svc worker.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Route("/model", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			statusEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-model").ServeHTTP)
		r.Get("/descriptor", otelhttp.NewHandler(kithttp.NewServer(
			descriptorEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-model-descriptor").ServeHTTP)
		r.Get("/delta", otelhttp.NewHandler(kithttp.NewServer(
			deltaEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-model-delta").ServeHTTP)
		r.Put("/weights", otelhttp.NewHandler(kithttp.NewServer(
			replaceWeightsEndpoint(svc),
			decodeReplaceWeightsReq,
			api.EncodeResponse,
			opts...,
		), "replace-weights").ServeHTTP)
	})

	mux.Route("/descriptors", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listDescriptorsEndpoint(svc),
			decodeListDescriptorsReq,
			api.EncodeResponse,
			opts...,
		), "list-descriptors").ServeHTTP)
		r.Get("/{version}", otelhttp.NewHandler(kithttp.NewServer(
			storedDescriptorEndpoint(svc),
			decodeVersionReq,
			api.EncodeResponse,
			opts...,
		), "get-descriptor").ServeHTTP)
	})

	mux.Post("/rounds", otelhttp.NewHandler(kithttp.NewServer(
		trainRoundEndpoint(svc),
		decodeRoundReq,
		api.EncodeResponse,
		opts...,
	), "train-round").ServeHTTP)

	mux.Post("/deltas", otelhttp.NewHandler(kithttp.NewServer(
		applyDeltaEndpoint(svc),
		decodeDeltaReq,
		api.EncodeResponse,
		opts...,
	), "apply-delta").ServeHTTP)

	mux.Post("/sync", otelhttp.NewHandler(kithttp.NewServer(
		syncEndpoint(svc),
		decodeSyncReq,
		api.EncodeResponse,
		opts...,
	), "sync").ServeHTTP)

	mux.Post("/validate", otelhttp.NewHandler(kithttp.NewServer(
		validateEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "validate").ServeHTTP)

	mux.Post("/data", otelhttp.NewHandler(kithttp.NewServer(
		selectDataEndpoint(svc),
		decodeDataReq,
		api.EncodeResponse,
		opts...,
	), "select-data").ServeHTTP)

	mux.Get("/health", supermq.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}

func decodeVersionReq(_ context.Context, r *http.Request) (any, error) {
	version, err := strconv.ParseInt(chi.URLParam(r, versionKey), 10, 64)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, errInvalidVersion)
	}

	return versionReq{version: version}, nil
}

func decodeListDescriptorsReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listDescriptorsReq{
		offset: o,
		limit:  l,
	}, nil
}

// decodeJSON reads a JSON body into v. When optional, an empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any, optional bool) error {
	if optional && r.ContentLength == 0 {
		return nil
	}
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}

		return errors.Join(err, apiutil.ErrValidation)
	}

	return nil
}

func decodeRoundReq(_ context.Context, r *http.Request) (any, error) {
	var req roundReq
	if err := decodeJSON(r, &req, true); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeDeltaReq(_ context.Context, r *http.Request) (any, error) {
	var req deltaReq
	if err := decodeJSON(r, &req, false); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeSyncReq(_ context.Context, r *http.Request) (any, error) {
	var req syncReq
	if err := decodeJSON(r, &req, false); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeReplaceWeightsReq(_ context.Context, r *http.Request) (any, error) {
	var req replaceWeightsReq
	if err := decodeJSON(r, &req, false); err != nil {
		return nil, err
	}

	return req, nil
}

func decodeDataReq(_ context.Context, r *http.Request) (any, error) {
	var req dataReq
	if err := decodeJSON(r, &req, false); err != nil {
		return nil, err
	}

	return req, nil
}
