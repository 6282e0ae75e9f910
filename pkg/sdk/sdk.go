package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const CTJSON string = "application/json"

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type SDK interface {
	// Status returns the worker identity and its model state.
	//
	// example:
	//  status, _ := sdk.Status()
	//  fmt.Println(status.Model.Version)
	Status() (Status, error)

	// Descriptor returns the serialized current model.
	//
	// example:
	//  desc, _ := sdk.Descriptor()
	//  os.WriteFile("model.cbor", desc.Descriptor, 0o644)
	Descriptor() (Descriptor, error)

	// StoredDescriptor returns a persisted model by version.
	//
	// example:
	//  desc, _ := sdk.StoredDescriptor(12)
	StoredDescriptor(version int64) (Descriptor, error)

	// ListDescriptors lists persisted model versions.
	//
	// example:
	//  page, _ := sdk.ListDescriptors(0, 10)
	//  fmt.Println(page.Versions)
	ListDescriptors(offset, limit uint64) (DescriptorPage, error)

	// Delta returns the update of the last local round.
	//
	// example:
	//  delta, _ := sdk.Delta()
	Delta() (Delta, error)

	// TrainRound runs one local training round on the worker.
	//
	// example:
	//  report, _ := sdk.TrainRound(sdk.RoundRequest{RoundID: "round-1"})
	//  fmt.Println(report.Version)
	TrainRound(req RoundRequest) (RoundReport, error)

	// ApplyDelta merges a delta produced by another worker.
	//
	// example:
	//  res, _ := sdk.ApplyDelta(delta)
	//  fmt.Println(res.Factor)
	ApplyDelta(delta Delta) (MergeResult, error)

	// Sync replaces the worker model with a serialized one.
	//
	// example:
	//  snap, _ := sdk.Sync(desc)
	Sync(desc Descriptor) (Snapshot, error)

	// ReplaceWeights installs weights at version.
	//
	// example:
	//  snap, _ := sdk.ReplaceWeights(10, sdk.Weights{Layers: layers})
	ReplaceWeights(version int64, w Weights) (Snapshot, error)

	// Validate evaluates the model on the worker's testing data.
	//
	// example:
	//  acc, _ := sdk.Validate()
	Validate() (float64, error)

	// SelectData picks the rows [beginning, end) of the training set.
	//
	// example:
	//  n, _ := sdk.SelectData(0, 1000)
	SelectData(beginning, end int) (int, error)
}

type fedSDK struct {
	workerURL string
	client    *http.Client
}

type Config struct {
	WorkerURL       string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &fedSDK{
		workerURL: cfg.WorkerURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

type errorRes struct {
	Err string `json:"error"`
}

func (sdk *fedSDK) processRequest(method, reqURL string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", CTJSON)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		var e errorRes
		if err := json.Unmarshal(body, &e); err == nil && e.Err != "" {
			return []byte{}, fmt.Errorf("unexpected response code: %d: %s", resp.StatusCode, e.Err)
		}

		return []byte{}, fmt.Errorf("unexpected response code: %d", resp.StatusCode)
	}

	return body, nil
}

// call sends req as JSON when it is not nil and decodes the response into res.
func (sdk *fedSDK) call(method, path string, req any, expectedRespCode int, res any) error {
	var data []byte
	if req != nil {
		var err error
		if data, err = json.Marshal(req); err != nil {
			return err
		}
	}

	body, err := sdk.processRequest(method, sdk.workerURL+path, data, expectedRespCode)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, res)
}
