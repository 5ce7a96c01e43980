package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/cobra"
)

func newSignCmd(envPath *string) *cobra.Command {
	var (
		kind    int
		content string
		tags    []string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign one event with the group and print it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseTags(tags)
			if err != nil {
				return err
			}

			d, err := newDaemon(*envPath, false)
			if err != nil {
				return err
			}
			defer d.Close()

			signed, err := d.provider.SignEvent(cmd.Context(), nostr.Event{
				Kind:    kind,
				Content: content,
				Tags:    parsed,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(signed)
		},
	}

	cmd.Flags().IntVar(&kind, "kind", nostr.KindTextNote, "event kind")
	cmd.Flags().StringVar(&content, "content", "", "event content")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag as name=value[,value...] (repeatable)")
	return cmd
}

// parseTags turns "e=abc,wss://relay" into ["e", "abc", "wss://relay"].
func parseTags(specs []string) (nostr.Tags, error) {
	tags := nostr.Tags{}
	for _, spec := range specs {
		name, values, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid tag %q: want name=value", spec)
		}
		tag := nostr.Tag{name}
		tag = append(tag, strings.Split(values, ",")...)
		tags = append(tags, tag)
	}
	return tags, nil
}
