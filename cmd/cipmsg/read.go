package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/app"
	cipmsgErrors "github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/ui"
)

func newReadCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "read <address> [count]",
		Short: "Read a PCCC data-table address",
		Long: `Read one or more items at a PCCC data-table address over a Class-3
connection. Bit addresses return 0/1, structured elements without a
sub-element return their three words.`,
		Example: `  cipmsg read N7:0 10 --target 10.0.0.50
  cipmsg read B3:1/4 --target 10.0.0.50 --route 1,0
  cipmsg read T4:2.ACC --target 10.0.0.50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "address")
			}
			count := 1
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid count %q", args[1])
				}
				count = n
			}
			address := args[0]
			return withSession(cmd, g, true, func(ctx context.Context, s *app.Session) error {
				values, err := s.Client.ReadTag(ctx, address, count)
				if err != nil {
					return cipmsgErrors.WrapCIPError(err, "read "+address)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderValues(address, values))
				return nil
			})
		},
	}
}

func newWriteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write <address> <value>...",
		Short: "Write values at a PCCC data-table address",
		Long: `Write values starting at a PCCC data-table address. A bit address
takes a single 0 or 1 and is written with a masked write.`,
		Example: `  cipmsg write N7:0 1 2 3 --target 10.0.0.50
  cipmsg write B3:0/7 1 --target 10.0.0.50
  cipmsg write F8:0 3.25 --target 10.0.0.50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "address")
			}
			if len(args) == 1 {
				return missingArgError(cmd, "value")
			}
			address := args[0]
			values := make([]any, 0, len(args)-1)
			for _, v := range args[1:] {
				values = append(values, v)
			}
			return withSession(cmd, g, true, func(ctx context.Context, s *app.Session) error {
				if err := s.Client.WriteTag(ctx, address, values); err != nil {
					return cipmsgErrors.WrapCIPError(err, "write "+address)
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderOK(fmt.Sprintf("wrote %d value(s) at %s", len(values), address)))
				return nil
			})
		},
	}
}

func newEchoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "echo <text>",
		Short: "Check a PCCC processor with the Echo function",
		Long: `Send text through the PCCC object with the Echo function over a
Class-3 connection. The processor must return it unchanged.`,
		Example: `  cipmsg echo hello --target 10.0.0.50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "text")
			}
			text := args[0]
			return withSession(cmd, g, true, func(ctx context.Context, s *app.Session) error {
				got, err := s.Client.Echo(ctx, []byte(text))
				if err != nil {
					return cipmsgErrors.WrapCIPError(err, "echo")
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.RenderOK(fmt.Sprintf("echo %q (%d bytes)", got, len(got))))
				return nil
			})
		},
	}
}
