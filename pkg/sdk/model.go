package sdk

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	modelEndpoint       = "/model"
	descriptorsEndpoint = "/descriptors"
	roundsEndpoint      = "/rounds"
	deltasEndpoint      = "/deltas"
	syncEndpoint        = "/sync"
	validateEndpoint    = "/validate"
	dataEndpoint        = "/data"
)

type LayerShape struct {
	Weights int `json:"weights"`
	Biases  int `json:"biases"`
}

type Snapshot struct {
	Version         int64        `json:"version"`
	State           string       `json:"state"`
	BaseVersion     int64        `json:"base_version,omitempty"`
	Shape           []LayerShape `json:"shape"`
	DescriptorSize  int          `json:"descriptor_size"`
	TrainingObjects int          `json:"training_objects"`
	TestingObjects  int          `json:"testing_objects"`
}

type Status struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Model Snapshot `json:"model"`
}

type Descriptor struct {
	Version    int64  `json:"version"`
	Size       int    `json:"size,omitempty"`
	Descriptor []byte `json:"descriptor"`
}

type DescriptorPage struct {
	PageMetadata
	Total    uint64  `json:"total"`
	Versions []int64 `json:"versions"`
}

type Delta struct {
	WorkerID      string `json:"worker_id"`
	RoundID       string `json:"round_id,omitempty"`
	SourceVersion int64  `json:"source_version"`
	Delta         []byte `json:"delta"`
}

type Layer struct {
	Weights []float32 `json:"weights"`
	Biases  []float32 `json:"biases"`
}

type Weights struct {
	Layers []Layer `json:"layers"`
}

type DataRange struct {
	Beginning int `json:"beginning"`
	End       int `json:"end"`
}

type RoundRequest struct {
	RoundID string     `json:"round_id,omitempty"`
	Data    *DataRange `json:"data,omitempty"`
}

type RoundReport struct {
	RoundID     string `json:"round_id"`
	BaseVersion int64  `json:"base_version"`
	Version     int64  `json:"version"`
	// Duration is in nanoseconds.
	Duration  int64 `json:"duration"`
	DeltaSize int   `json:"delta_size"`
}

type MergeResult struct {
	PreviousVersion int64   `json:"previous_version"`
	Version         int64   `json:"version"`
	Staleness       int64   `json:"staleness"`
	Factor          float64 `json:"factor"`
}

func (sdk *fedSDK) Status() (Status, error) {
	var s Status
	if err := sdk.call(http.MethodGet, modelEndpoint, nil, http.StatusOK, &s); err != nil {
		return Status{}, err
	}

	return s, nil
}

func (sdk *fedSDK) Descriptor() (Descriptor, error) {
	var d Descriptor
	if err := sdk.call(http.MethodGet, modelEndpoint+"/descriptor", nil, http.StatusOK, &d); err != nil {
		return Descriptor{}, err
	}

	return d, nil
}

func (sdk *fedSDK) StoredDescriptor(version int64) (Descriptor, error) {
	var d Descriptor
	path := fmt.Sprintf("%s/%d", descriptorsEndpoint, version)
	if err := sdk.call(http.MethodGet, path, nil, http.StatusOK, &d); err != nil {
		return Descriptor{}, err
	}

	return d, nil
}

func (sdk *fedSDK) ListDescriptors(offset, limit uint64) (DescriptorPage, error) {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	path := descriptorsEndpoint
	if len(queries) > 0 {
		path += "?" + strings.Join(queries, "&")
	}

	var page DescriptorPage
	if err := sdk.call(http.MethodGet, path, nil, http.StatusOK, &page); err != nil {
		return DescriptorPage{}, err
	}

	return page, nil
}

func (sdk *fedSDK) Delta() (Delta, error) {
	var d Delta
	if err := sdk.call(http.MethodGet, modelEndpoint+"/delta", nil, http.StatusOK, &d); err != nil {
		return Delta{}, err
	}

	return d, nil
}

func (sdk *fedSDK) TrainRound(req RoundRequest) (RoundReport, error) {
	var r RoundReport
	if err := sdk.call(http.MethodPost, roundsEndpoint, req, http.StatusCreated, &r); err != nil {
		return RoundReport{}, err
	}

	return r, nil
}

func (sdk *fedSDK) ApplyDelta(delta Delta) (MergeResult, error) {
	var r MergeResult
	if err := sdk.call(http.MethodPost, deltasEndpoint, delta, http.StatusOK, &r); err != nil {
		return MergeResult{}, err
	}

	return r, nil
}

func (sdk *fedSDK) Sync(desc Descriptor) (Snapshot, error) {
	req := struct {
		Version    int64  `json:"version"`
		Descriptor []byte `json:"descriptor"`
	}{desc.Version, desc.Descriptor}

	var s Snapshot
	if err := sdk.call(http.MethodPost, syncEndpoint, req, http.StatusOK, &s); err != nil {
		return Snapshot{}, err
	}

	return s, nil
}

func (sdk *fedSDK) ReplaceWeights(version int64, w Weights) (Snapshot, error) {
	req := struct {
		Version int64   `json:"version"`
		Weights Weights `json:"weights"`
	}{version, w}

	var s Snapshot
	if err := sdk.call(http.MethodPut, modelEndpoint+"/weights", req, http.StatusOK, &s); err != nil {
		return Snapshot{}, err
	}

	return s, nil
}

func (sdk *fedSDK) Validate() (float64, error) {
	var res struct {
		Accuracy float64 `json:"accuracy"`
	}
	if err := sdk.call(http.MethodPost, validateEndpoint, nil, http.StatusOK, &res); err != nil {
		return 0, err
	}

	return res.Accuracy, nil
}

func (sdk *fedSDK) SelectData(beginning, end int) (int, error) {
	var res struct {
		TrainingObjects int `json:"training_objects"`
	}
	req := DataRange{Beginning: beginning, End: end}
	if err := sdk.call(http.MethodPost, dataEndpoint, req, http.StatusOK, &res); err != nil {
		return 0, err
	}

	return res.TrainingObjects, nil
}
