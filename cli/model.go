package cli

import (
	"os"

	"github.com/absmach/fedasync/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	DefTLSVerification        = false
	DefWorkerURL              = "http://localhost:9010"
	defOffset          uint64 = 0
	defLimit           uint64 = 10
	outFile            string
)

var wsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	wsdk = s
}

func writeDescriptor(cmd cobra.Command, d sdk.Descriptor) {
	if outFile == "" {
		logJSONCmd(cmd, d)

		return
	}

	if err := os.WriteFile(outFile, d.Descriptor, filePermission); err != nil {
		logErrorCmd(cmd, err)

		return
	}
	logSuccessCmd(cmd, "descriptor written to "+outFile)
}

func NewModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model [status|descriptor|delta|weights]",
		Short: "Model state",
		Long:  `View the worker model, its latest delta, or replace its weights.`,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "View model status",
		Long:  `View worker identity, model version, state and shape.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := wsdk.Status()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}

	descriptorCmd := &cobra.Command{
		Use:   "descriptor",
		Short: "Download current model",
		Long: `Download the serialized current model.

Examples:
  # Print the descriptor as JSON
  fedasync-cli model descriptor

  # Save the raw descriptor
  fedasync-cli model descriptor --out model.cbor`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			d, err := wsdk.Descriptor()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			writeDescriptor(*cmd, d)
		},
	}
	descriptorCmd.Flags().StringVar(&outFile, "out", "", "File to write the raw descriptor to")

	deltaCmd := &cobra.Command{
		Use:   "delta",
		Short: "View latest delta",
		Long:  `View the delta produced by the last local training round.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			d, err := wsdk.Delta()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, d)
		},
	}

	weightsCmd := &cobra.Command{
		Use:   "weights <version> <weights.json>",
		Short: "Replace weights",
		Long: `Install weights from a JSON file at the given version.

Examples:
  fedasync-cli model weights 12 weights.json`,
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

			var w sdk.Weights
			if err := readJSONFile(args[1], &w); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			s, err := wsdk.ReplaceWeights(version, w)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	}

	cmd.AddCommand(statusCmd)
	cmd.AddCommand(descriptorCmd)
	cmd.AddCommand(deltaCmd)
	cmd.AddCommand(weightsCmd)

	return cmd
}

func NewDescriptorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "descriptors [list|view]",
		Short: "Stored models",
		Long:  `List and download persisted model versions.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored versions",
		Long:  `List stored model versions in ascending order.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := wsdk.ListDescriptors(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <version>",
		Short: "Download stored model",
		Long:  `Download a stored model by version.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			version, err := parseVersion(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			d, err := wsdk.StoredDescriptor(version)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			writeDescriptor(*cmd, d)
		},
	}
	viewCmd.Flags().StringVar(&outFile, "out", "", "File to write the raw descriptor to")

	cmd.AddCommand(listCmd)
	cmd.AddCommand(viewCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
