package cli

import (
	"os"
	"strconv"

	"github.com/absmach/fedasync/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	dataBegin = -1
	dataEnd   = -1
)

func NewRoundsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rounds [train]",
		Short: "Training rounds",
		Long:  `Run local training rounds on the worker.`,
	}

	trainCmd := &cobra.Command{
		Use:   "train [round_id]",
		Short: "Train one round",
		Long: `Run a local training round and publish its delta.

Examples:
  # Train on the currently selected data
  fedasync-cli rounds train

  # Select rows [0, 500) first
  fedasync-cli rounds train round-7 --begin 0 --end 500`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			req := sdk.RoundRequest{}
			if len(args) == 1 {
				req.RoundID = args[0]
			}
			if dataBegin >= 0 || dataEnd >= 0 {
				req.Data = &sdk.DataRange{Beginning: dataBegin, End: dataEnd}
			}

			r, err := wsdk.TrainRound(req)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}
	trainCmd.Flags().IntVar(&dataBegin, "begin", -1, "First training row")
	trainCmd.Flags().IntVar(&dataEnd, "end", -1, "Row after the last training row")

	cmd.AddCommand(trainCmd)

	return cmd
}

func NewDeltasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deltas [apply]",
		Short: "Peer deltas",
		Long:  `Merge deltas produced by other workers.`,
	}

	applyCmd := &cobra.Command{
		Use:   "apply <delta.json>",
		Short: "Apply delta",
		Long: `Merge a delta saved with "model delta" on another worker.

Examples:
  fedasync-cli deltas apply delta.json`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			var d sdk.Delta
			if err := readJSONFile(args[0], &d); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			res, err := wsdk.ApplyDelta(d)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}

	cmd.AddCommand(applyCmd)

	return cmd
}

func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <version> <descriptor-file>",
		Short: "Resynchronize model",
		Long: `Replace the worker model with a raw descriptor.

Examples:
  fedasync-cli sync 12 model.cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			version, err := parseVersion(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			s, err := wsdk.Sync(sdk.Descriptor{Version: version, Descriptor: data})
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}
}

func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate model",
		Long:  `Evaluate the model on the worker's testing data.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			acc, err := wsdk.Validate()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, map[string]float64{"accuracy": acc})
		},
	}
}

func NewDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data [select]",
		Short: "Training data",
		Long:  `Choose which training rows the worker uses.`,
	}

	selectCmd := &cobra.Command{
		Use:   "select <beginning> <end>",
		Short: "Select training rows",
		Long:  `Select the rows [beginning, end) of the training set.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			begin, err := strconv.Atoi(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			end, err := strconv.Atoi(args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			n, err := wsdk.SelectData(begin, end)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, map[string]int{"training_objects": n})
		},
	}

	cmd.AddCommand(selectCmd)

	return cmd
}
