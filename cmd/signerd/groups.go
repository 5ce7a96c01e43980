package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/nostr-signerd/pkg/identity"
)

func newGroupsCmd(envPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List coordinator groups and mark the ones that can sign events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDaemon(*envPath, false)
			if err != nil {
				return err
			}
			defer d.Close()

			groups, err := d.client.ListGroups(cmd.Context())
			if err != nil {
				return err
			}

			selected, selErr := identity.SelectGroup(groups)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROTOCOL\tKEY TYPE\tTHRESHOLD\tQUALIFIES\tID")
			for _, g := range groups {
				mark := "no"
				if identity.Qualifies(g) {
					mark = "yes"
				}
				if selErr == nil && string(g.Identifier) == string(selected.Identifier) {
					mark = "selected"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					g.Name, g.Protocol, g.KeyType, g.Threshold, mark, g.IdentifierBase64())
			}
			return w.Flush()
		},
	}
}
