package api

import (
	"net/http"

	"github.com/absmach/fedasync/model"
	"github.com/absmach/fedasync/pkg/storage"
	"github.com/absmach/fedasync/worker"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*statusResponse)(nil)
	_ supermq.Response = (*modelResponse)(nil)
	_ supermq.Response = (*descriptorResponse)(nil)
	_ supermq.Response = (*listDescriptorsResponse)(nil)
	_ supermq.Response = (*deltaResponse)(nil)
	_ supermq.Response = (*roundResponse)(nil)
	_ supermq.Response = (*mergeResponse)(nil)
	_ supermq.Response = (*validateResponse)(nil)
	_ supermq.Response = (*dataResponse)(nil)
)

type statusResponse struct {
	worker.Status
}

func (res statusResponse) Code() int {
	return http.StatusOK
}

func (res statusResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res statusResponse) Empty() bool {
	return false
}

type modelResponse struct {
	model.Snapshot
}

func (res modelResponse) Code() int {
	return http.StatusOK
}

func (res modelResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res modelResponse) Empty() bool {
	return false
}

type descriptorResponse struct {
	Version    int64  `json:"version"`
	Size       int    `json:"size"`
	Descriptor []byte `json:"descriptor"`
}

func (res descriptorResponse) Code() int {
	return http.StatusOK
}

func (res descriptorResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res descriptorResponse) Empty() bool {
	return false
}

type listDescriptorsResponse struct {
	storage.DescriptorPage
}

func (res listDescriptorsResponse) Code() int {
	return http.StatusOK
}

func (res listDescriptorsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res listDescriptorsResponse) Empty() bool {
	return false
}

type deltaResponse struct {
	worker.DeltaMessage
}

func (res deltaResponse) Code() int {
	return http.StatusOK
}

func (res deltaResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res deltaResponse) Empty() bool {
	return false
}

type roundResponse struct {
	worker.RoundReport
}

func (res roundResponse) Code() int {
	return http.StatusCreated
}

func (res roundResponse) Headers() map[string]string {
	return map[string]string{
		"Location": "/model/delta",
	}
}

func (res roundResponse) Empty() bool {
	return false
}

type mergeResponse struct {
	model.MergeResult
}

func (res mergeResponse) Code() int {
	return http.StatusOK
}

func (res mergeResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res mergeResponse) Empty() bool {
	return false
}

type validateResponse struct {
	Accuracy float64 `json:"accuracy"`
}

func (res validateResponse) Code() int {
	return http.StatusOK
}

func (res validateResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res validateResponse) Empty() bool {
	return false
}

type dataResponse struct {
	TrainingObjects int `json:"training_objects"`
}

func (res dataResponse) Code() int {
	return http.StatusOK
}

func (res dataResponse) Headers() map[string]string {
	return map[string]string{}
}

func (res dataResponse) Empty() bool {
	return false
}
