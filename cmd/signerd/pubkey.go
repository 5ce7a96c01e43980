package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPubkeyCmd(envPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "pubkey",
		Short: "Resolve the signing group and print its x-only public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDaemon(*envPath, false)
			if err != nil {
				return err
			}
			defer d.Close()

			pubkey, err := d.provider.GetPublicKey(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pubkey)
			return nil
		},
	}
}
