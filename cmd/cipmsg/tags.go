package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/app"
	cipmsgErrors "github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/ui"
)

func newTagsCmd(g *globalFlags) *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List controller tags",
		Long: `List the controller-scope symbols of a Logix controller, following
partial replies until the list is complete.`,
		Example: `  cipmsg tags --target 10.0.0.60 --route 1,0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return withSession(cmd, g, connect, func(ctx context.Context, s *app.Session) error {
				tags, err := s.Client.GetTagList(ctx)
				if err != nil {
					return cipmsgErrors.WrapCIPError(err, "get tag list")
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTagList(tags))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&connect, "connected", false, "Open a Class-3 connection for the listing")
	return cmd
}

func newReadTagCmd(g *globalFlags) *cobra.Command {
	var (
		elements uint16
		connect  bool
	)

	cmd := &cobra.Command{
		Use:   "read-tag <name>",
		Short: "Read a Logix tag with Read Tag Fragmented",
		Long: `Read a symbolic Logix tag, reassembling the fragments the controller
returns for values larger than one reply.`,
		Example: `  cipmsg read-tag Recipe --target 10.0.0.60 --route 1,0
  cipmsg read-tag Counts --elements 10 --target 10.0.0.60`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "name")
			}
			if elements == 0 {
				return fmt.Errorf("--elements must be at least 1")
			}
			name := args[0]
			return withSession(cmd, g, connect, func(ctx context.Context, s *app.Session) error {
				value, err := s.Client.ReadTagFragmented(ctx, name, elements)
				if err != nil {
					return cipmsgErrors.WrapCIPError(err, "read tag "+name)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTagValue(name, value))
				return nil
			})
		},
	}
	cmd.Flags().Uint16Var(&elements, "elements", 1, "Number of elements to read")
	cmd.Flags().BoolVar(&connect, "connected", false, "Open a Class-3 connection for the read")
	return cmd
}
