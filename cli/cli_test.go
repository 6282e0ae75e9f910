package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/fedasync/pkg/sdk"
	"github.com/absmach/fedasync/pkg/sdk/mocks"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, s sdk.SDK, args ...string) (string, string) {
	t.Helper()

	SetSDK(s)

	root := &cobra.Command{Use: "fedasync-cli"}
	root.AddCommand(NewModelCmd())
	root.AddCommand(NewDescriptorsCmd())
	root.AddCommand(NewRoundsCmd())
	root.AddCommand(NewDeltasCmd())
	root.AddCommand(NewSyncCmd())
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewDataCmd())

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	require.NoError(t, root.Execute())

	return out.String(), errOut.String()
}

func TestModelCommands(t *testing.T) {
	dir := t.TempDir()
	weightsPath := filepath.Join(dir, "weights.json")
	require.NoError(t, os.WriteFile(weightsPath, []byte(`{"layers":[{"weights":[1,2],"biases":[3]}]}`), filePermission))
	descPath := filepath.Join(dir, "model.cbor")

	cases := []struct {
		desc    string
		args    []string
		setup   func(m *mocks.MockSDK)
		out     string
		errOut  string
		checkFn func(t *testing.T)
	}{
		{
			desc: "status",
			args: []string{"model", "status"},
			setup: func(m *mocks.MockSDK) {
				m.On("Status").Return(sdk.Status{ID: "w1", Model: sdk.Snapshot{Version: 12}}, nil)
			},
			out: "12",
		},
		{
			desc: "status with extra args",
			args: []string{"model", "status", "x"},
			out:  "usage",
		},
		{
			desc: "status error",
			args: []string{"model", "status"},
			setup: func(m *mocks.MockSDK) {
				m.On("Status").Return(sdk.Status{}, errors.New("unexpected response code: 500"))
			},
			errOut: "unexpected response code: 500",
		},
		{
			desc: "descriptor to file",
			args: []string{"model", "descriptor", "--out", descPath},
			setup: func(m *mocks.MockSDK) {
				m.On("Descriptor").Return(sdk.Descriptor{Version: 3, Descriptor: []byte{1, 2}}, nil)
			},
			out: "descriptor written",
			checkFn: func(t *testing.T) {
				data, err := os.ReadFile(descPath)
				require.NoError(t, err)
				assert.Equal(t, []byte{1, 2}, data)
			},
		},
		{
			desc: "delta",
			args: []string{"model", "delta"},
			setup: func(m *mocks.MockSDK) {
				m.On("Delta").Return(sdk.Delta{WorkerID: "w7", SourceVersion: 4}, nil)
			},
			out: "w7",
		},
		{
			desc: "replace weights",
			args: []string{"model", "weights", "5", weightsPath},
			setup: func(m *mocks.MockSDK) {
				w := sdk.Weights{Layers: []sdk.Layer{{Weights: []float32{1, 2}, Biases: []float32{3}}}}
				m.On("ReplaceWeights", int64(5), w).Return(sdk.Snapshot{Version: 5}, nil)
			},
			out: "version",
		},
		{
			desc:   "replace weights with invalid version",
			args:   []string{"model", "weights", "v5", weightsPath},
			errOut: "invalid version",
		},
		{
			desc:   "replace weights missing file",
			args:   []string{"model", "weights", "5", filepath.Join(dir, "missing.json")},
			errOut: "no such file",
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			outFile = ""
			m := new(mocks.MockSDK)
			if tc.setup != nil {
				tc.setup(m)
			}

			out, errOut := execute(t, m, tc.args...)
			if tc.out != "" {
				assert.Contains(t, out, tc.out)
			}
			if tc.errOut != "" {
				assert.Contains(t, errOut, tc.errOut)
			}
			if tc.checkFn != nil {
				tc.checkFn(t)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestDescriptorsCommands(t *testing.T) {
	m := new(mocks.MockSDK)
	m.On("ListDescriptors", uint64(2), uint64(5)).Return(sdk.DescriptorPage{Total: 9, Versions: []int64{4, 6}}, nil)
	m.On("StoredDescriptor", int64(6)).Return(sdk.Descriptor{Version: 6, Descriptor: []byte{8}}, nil)

	out, _ := execute(t, m, "descriptors", "list", "--offset", "2", "--limit", "5")
	assert.Contains(t, out, "versions")

	outFile = ""
	out, _ = execute(t, m, "descriptors", "view", "6")
	assert.Contains(t, out, "descriptor")

	_, errOut := execute(t, m, "descriptors", "view", "six")
	assert.Contains(t, errOut, "invalid version")
	m.AssertExpectations(t)
}

func TestRoundCommands(t *testing.T) {
	dir := t.TempDir()
	deltaPath := filepath.Join(dir, "delta.json")
	require.NoError(t, os.WriteFile(deltaPath, []byte(`{"worker_id":"w2","source_version":3,"delta":"AQI="}`), filePermission))
	descPath := filepath.Join(dir, "model.cbor")
	require.NoError(t, os.WriteFile(descPath, []byte{5, 6}, filePermission))

	m := new(mocks.MockSDK)
	m.On("TrainRound", sdk.RoundRequest{RoundID: "r1", Data: &sdk.DataRange{Beginning: 0, End: 50}}).
		Return(sdk.RoundReport{RoundID: "r1", Version: 2}, nil)
	m.On("ApplyDelta", sdk.Delta{WorkerID: "w2", SourceVersion: 3, Delta: []byte{1, 2}}).
		Return(sdk.MergeResult{Version: 4, Factor: 1}, nil)
	m.On("Sync", sdk.Descriptor{Version: 9, Descriptor: []byte{5, 6}}).Return(sdk.Snapshot{Version: 9}, nil)
	m.On("Validate").Return(0.5, nil)
	m.On("SelectData", 10, 20).Return(10, nil)

	out, _ := execute(t, m, "rounds", "train", "r1", "--begin", "0", "--end", "50")
	assert.Contains(t, out, "r1")

	out, _ = execute(t, m, "deltas", "apply", deltaPath)
	assert.Contains(t, out, "factor")

	out, _ = execute(t, m, "sync", "9", descPath)
	assert.Contains(t, out, "9")

	out, _ = execute(t, m, "validate")
	assert.Contains(t, out, "accuracy")

	out, _ = execute(t, m, "data", "select", "10", "20")
	assert.Contains(t, out, "training_objects")

	_, errOut := execute(t, m, "data", "select", "a", "20")
	assert.Contains(t, errOut, "invalid syntax")

	out, _ = execute(t, m, "sync", "9")
	assert.Contains(t, out, "usage")
	m.AssertExpectations(t)
}
