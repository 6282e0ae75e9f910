package main

import (
	"log"

	"github.com/absmach/fedasync/cli"
	"github.com/absmach/fedasync/pkg/sdk"
	"github.com/spf13/cobra"
)

func main() {
	var workerURL string

	rootCmd := &cobra.Command{
		Use:   "fedasync-cli",
		Short: "Fedasync CLI",
		Long:  `Fedasync CLI is a command line interface for interacting with asynchronous federated learning workers.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				WorkerURL:       workerURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&workerURL, "worker-url", "w", cli.DefWorkerURL, "Worker HTTP API URL")
	rootCmd.PersistentFlags().BoolVar(&cli.DefTLSVerification, "tls-verification", cli.DefTLSVerification, "Verify worker TLS certificates")

	rootCmd.AddCommand(cli.NewModelCmd())
	rootCmd.AddCommand(cli.NewDescriptorsCmd())
	rootCmd.AddCommand(cli.NewRoundsCmd())
	rootCmd.AddCommand(cli.NewDeltasCmd())
	rootCmd.AddCommand(cli.NewSyncCmd())
	rootCmd.AddCommand(cli.NewValidateCmd())
	rootCmd.AddCommand(cli.NewDataCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
