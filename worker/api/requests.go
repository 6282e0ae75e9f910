package api

import (
	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/pkg/api"
	"github.com/absmach/fedasync/pkg/fl"
	"github.com/absmach/fedasync/worker"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type emptyReq struct{}

func (req emptyReq) validate() error {
	return nil
}

type versionReq struct {
	version int64
}

func (req versionReq) validate() error {
	if req.version < 0 {
		return errInvalidVersion
	}

	return nil
}

type listDescriptorsReq struct {
	offset, limit uint64
}

func (req listDescriptorsReq) validate() error {
	if req.limit > api.MaxLimitSize || req.limit < 1 {
		return apiutil.ErrLimitSize
	}

	return nil
}

type roundReq struct {
	worker.RoundCommand `json:",inline"`
}

func (req roundReq) validate() error {
	if req.Data != nil && (req.Data.Beginning < 0 || req.Data.End < req.Data.Beginning) {
		return dataset.ErrInvalidRange
	}

	return nil
}

type deltaReq struct {
	worker.DeltaMessage `json:",inline"`
}

func (req deltaReq) validate() error {
	return req.DeltaMessage.Validate()
}

type syncReq struct {
	worker.SyncMessage `json:",inline"`
}

func (req syncReq) validate() error {
	return req.SyncMessage.Validate()
}

type replaceWeightsReq struct {
	Version int64           `json:"version"`
	Weights *fl.WeightsData `json:"weights"`
}

func (req replaceWeightsReq) validate() error {
	if req.Weights == nil {
		return errMissingWeights
	}
	if req.Version < 0 {
		return errInvalidVersion
	}

	return nil
}

type dataReq struct {
	dataset.Descriptor `json:",inline"`
}

func (req dataReq) validate() error {
	if req.Beginning < 0 || req.End < req.Beginning {
		return dataset.ErrInvalidRange
	}

	return nil
}
