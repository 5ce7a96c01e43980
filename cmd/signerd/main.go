package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envPath string

	root := &cobra.Command{
		Use:           "signerd",
		Short:         "NIP-07 signer backed by a MeeSign threshold group",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envPath, "env", "", ".env file to load (default: .env in the working directory)")

	root.AddCommand(
		newServeCmd(&envPath),
		newPubkeyCmd(&envPath),
		newGroupsCmd(&envPath),
		newSignCmd(&envPath),
	)
	return root
}
