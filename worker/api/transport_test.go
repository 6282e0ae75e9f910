package api_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	pkgerrors "github.com/absmach/fedasync/pkg/errors"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/absmach/fedasync/pkg/storage"
	"github.com/absmach/fedasync/worker"
	"github.com/absmach/fedasync/worker/api"
	"github.com/absmach/fedasync/worker/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const contentType = "application/json"

type testRequest struct {
	client      *http.Client
	method      string
	url         string
	contentType string
	body        io.Reader
}

func (tr testRequest) make() (*http.Response, error) {
	req, err := http.NewRequest(tr.method, tr.url, tr.body)
	if err != nil {
		return nil, err
	}
	if tr.contentType != "" {
		req.Header.Set("Content-Type", tr.contentType)
	}

	return tr.client.Do(req)
}

func newServer() (*httptest.Server, *mocks.MockService) {
	svc := new(mocks.MockService)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return httptest.NewServer(api.MakeHandler(svc, logger, "instance")), svc
}

func TestHandler(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc        string
		method      string
		path        string
		contentType string
		body        string
		setup       func(svc *mocks.MockService)
		status      int
		contains    []string
	}{
		{
			desc:   "get model status",
			method: http.MethodGet,
			path:   "/model",
			setup: func(svc *mocks.MockService) {
				svc.On("Status", mock.Anything).Return(worker.Status{
					Worker: worker.Worker{ID: "w1", Name: "alpha"},
					Model:  model.Snapshot{Version: 3, State: model.TrainedLocally, BaseVersion: 2},
				}, nil)
			},
			status:   http.StatusOK,
			contains: []string{`"id":"w1"`, `"version":3`, `"state":"trained_locally"`},
		},
		{
			desc:   "get current descriptor",
			method: http.MethodGet,
			path:   "/model/descriptor",
			setup: func(svc *mocks.MockService) {
				svc.On("Descriptor", mock.Anything).Return(fl.NewModelDescriptor([]byte("abc"), 2), nil)
			},
			status:   http.StatusOK,
			contains: []string{`"version":2`, `"size":3`, `"descriptor":"YWJj"`},
		},
		{
			desc:   "get delta without round",
			method: http.MethodGet,
			path:   "/model/delta",
			setup: func(svc *mocks.MockService) {
				svc.On("Delta", mock.Anything).Return(worker.DeltaMessage{}, pkgerrors.ErrNoSnapshot)
			},
			status: http.StatusConflict,
		},
		{
			desc:        "replace weights",
			method:      http.MethodPut,
			path:        "/model/weights",
			contentType: contentType,
			body:        `{"version":4,"weights":{"layers":[{"weights":[1,2],"biases":[0]}]}}`,
			setup: func(svc *mocks.MockService) {
				svc.On("ReplaceWeights", mock.Anything, mock.MatchedBy(func(w *fl.WeightsData) bool {
					got, err := w.LayerWeights(0)

					return err == nil && len(got) == 2 && got[1] == 2
				}), int64(4)).Return(model.Snapshot{Version: 4}, nil)
			},
			status:   http.StatusOK,
			contains: []string{`"version":4`},
		},
		{
			desc:        "replace weights without weights",
			method:      http.MethodPut,
			path:        "/model/weights",
			contentType: contentType,
			body:        `{"version":4}`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "replace weights with stale version",
			method:      http.MethodPut,
			path:        "/model/weights",
			contentType: contentType,
			body:        `{"version":1,"weights":{"layers":[{"weights":[1],"biases":[0]}]}}`,
			setup: func(svc *mocks.MockService) {
				svc.On("ReplaceWeights", mock.Anything, mock.Anything, int64(1)).Return(model.Snapshot{}, pkgerrors.ErrStaleVersion)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			desc:   "list descriptors",
			method: http.MethodGet,
			path:   "/descriptors?offset=1&limit=5",
			setup: func(svc *mocks.MockService) {
				svc.On("ListDescriptors", mock.Anything, uint64(1), uint64(5)).Return(storage.DescriptorPage{
					Offset: 1, Limit: 5, Total: 3, Versions: []int64{4, 5},
				}, nil)
			},
			status:   http.StatusOK,
			contains: []string{`"total":3`, `"versions":[4,5]`},
		},
		{
			desc:   "list descriptors with limit too large",
			method: http.MethodGet,
			path:   "/descriptors?limit=1000",
			status: http.StatusBadRequest,
		},
		{
			desc:   "list descriptors with invalid offset",
			method: http.MethodGet,
			path:   "/descriptors?offset=abc",
			status: http.StatusBadRequest,
		},
		{
			desc:   "get missing stored descriptor",
			method: http.MethodGet,
			path:   "/descriptors/7",
			setup: func(svc *mocks.MockService) {
				svc.On("StoredDescriptor", mock.Anything, int64(7)).Return(fl.ModelDescriptor{}, pkgerrors.ErrNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			desc:   "get stored descriptor with invalid version",
			method: http.MethodGet,
			path:   "/descriptors/seven",
			status: http.StatusBadRequest,
		},
		{
			desc:   "get stored descriptor with negative version",
			method: http.MethodGet,
			path:   "/descriptors/-1",
			status: http.StatusBadRequest,
		},
		{
			desc:   "train round without body",
			method: http.MethodPost,
			path:   "/rounds",
			setup: func(svc *mocks.MockService) {
				svc.On("TrainRound", mock.Anything, worker.RoundCommand{}).Return(worker.RoundReport{
					RoundID: "generated", BaseVersion: 0, Version: 1,
				}, nil)
			},
			status:   http.StatusCreated,
			contains: []string{`"round_id":"generated"`, `"version":1`},
		},
		{
			desc:        "train round while another runs",
			method:      http.MethodPost,
			path:        "/rounds",
			contentType: contentType,
			body:        `{"round_id":"r1","data":{"beginning":0,"end":8}}`,
			setup: func(svc *mocks.MockService) {
				cmd := worker.RoundCommand{RoundID: "r1", Data: &dataset.Descriptor{Beginning: 0, End: 8}}
				svc.On("TrainRound", mock.Anything, cmd).Return(worker.RoundReport{}, pkgerrors.ErrRoundInProgress)
			},
			status: http.StatusConflict,
		},
		{
			desc:        "train round with invalid range",
			method:      http.MethodPost,
			path:        "/rounds",
			contentType: contentType,
			body:        `{"data":{"beginning":8,"end":2}}`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "apply delta",
			method:      http.MethodPost,
			path:        "/deltas",
			contentType: contentType,
			body:        `{"worker_id":"b","source_version":2,"delta":"AQID"}`,
			setup: func(svc *mocks.MockService) {
				msg := worker.DeltaMessage{WorkerID: "b", SourceVersion: 2, Delta: []byte{1, 2, 3}}
				svc.On("ApplyDelta", mock.Anything, msg).Return(model.MergeResult{
					PreviousVersion: 5, Version: 6, Staleness: 3, Factor: 0.5,
				}, nil)
			},
			status:   http.StatusOK,
			contains: []string{`"staleness":3`, `"factor":0.5`, `"version":6`},
		},
		{
			desc:        "apply delta with wrong shape",
			method:      http.MethodPost,
			path:        "/deltas",
			contentType: contentType,
			body:        `{"worker_id":"b","source_version":2,"delta":"AQID"}`,
			setup: func(svc *mocks.MockService) {
				svc.On("ApplyDelta", mock.Anything, mock.Anything).Return(model.MergeResult{}, pkgerrors.ErrShapeMismatch)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			desc:        "apply empty delta",
			method:      http.MethodPost,
			path:        "/deltas",
			contentType: contentType,
			body:        `{"worker_id":"b","source_version":2}`,
			status:      http.StatusBadRequest,
		},
		{
			desc:   "apply delta with wrong content type",
			method: http.MethodPost,
			path:   "/deltas",
			body:   `{"worker_id":"b","source_version":2,"delta":"AQID"}`,
			status: http.StatusBadRequest,
		},
		{
			desc:        "apply delta with malformed body",
			method:      http.MethodPost,
			path:        "/deltas",
			contentType: contentType,
			body:        `{"worker_id":`,
			status:      http.StatusBadRequest,
		},
		{
			desc:        "sync with stale descriptor",
			method:      http.MethodPost,
			path:        "/sync",
			contentType: contentType,
			body:        `{"version":1,"descriptor":"AQID"}`,
			setup: func(svc *mocks.MockService) {
				msg := worker.SyncMessage{Version: 1, Descriptor: []byte{1, 2, 3}}
				svc.On("Sync", mock.Anything, msg).Return(model.Snapshot{}, pkgerrors.ErrStaleVersion)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			desc:        "sync",
			method:      http.MethodPost,
			path:        "/sync",
			contentType: contentType,
			body:        `{"version":9,"descriptor":"AQID"}`,
			setup: func(svc *mocks.MockService) {
				svc.On("Sync", mock.Anything, mock.Anything).Return(model.Snapshot{Version: 9}, nil)
			},
			status:   http.StatusOK,
			contains: []string{`"version":9`},
		},
		{
			desc:   "validate",
			method: http.MethodPost,
			path:   "/validate",
			setup: func(svc *mocks.MockService) {
				svc.On("Validate", mock.Anything).Return(0.75, nil)
			},
			status:   http.StatusOK,
			contains: []string{`"accuracy":0.75`},
		},
		{
			desc:        "select training data",
			method:      http.MethodPost,
			path:        "/data",
			contentType: contentType,
			body:        `{"beginning":0,"end":10}`,
			setup: func(svc *mocks.MockService) {
				svc.On("SelectTrainingData", mock.Anything, dataset.Descriptor{Beginning: 0, End: 10}).Return(10, nil)
			},
			status:   http.StatusOK,
			contains: []string{`"training_objects":10`},
		},
		{
			desc:        "select training data out of range",
			method:      http.MethodPost,
			path:        "/data",
			contentType: contentType,
			body:        `{"beginning":0,"end":1000}`,
			setup: func(svc *mocks.MockService) {
				svc.On("SelectTrainingData", mock.Anything, mock.Anything).Return(0, dataset.ErrInvalidRange)
			},
			status: http.StatusBadRequest,
		},
		{
			desc:   "health",
			method: http.MethodGet,
			path:   "/health",
			status: http.StatusOK,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ts, svc := newServer()
			defer ts.Close()
			if tc.setup != nil {
				tc.setup(svc)
			}

			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := testRequest{
				client:      ts.Client(),
				method:      tc.method,
				url:         ts.URL + tc.path,
				contentType: tc.contentType,
				body:        body,
			}
			res, err := req.make()
			require.NoError(t, err)
			defer res.Body.Close()

			data, err := io.ReadAll(res.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.StatusCode, string(data))
			for _, s := range tc.contains {
				assert.Contains(t, string(data), s)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRoundLocation(t *testing.T) {
	t.Parallel()

	ts, svc := newServer()
	defer ts.Close()
	svc.On("TrainRound", mock.Anything, mock.Anything).Return(worker.RoundReport{RoundID: "r"}, nil)

	res, err := ts.Client().Post(ts.URL+"/rounds", contentType, nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "/model/delta", res.Header.Get("Location"))
}
