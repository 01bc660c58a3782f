package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/capture"
	"github.com/tturner/cipmsg/internal/metrics"
	"github.com/tturner/cipmsg/internal/pccc"
	"github.com/tturner/cipmsg/internal/ui"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "parse <address>",
		Short:   "Explain a PCCC data-table address",
		Example: `  cipmsg parse b3/20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "address")
			}
			addr, err := pccc.ParseAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderAddress(addr))
			return nil
		},
	}
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <pcap>",
		Short: "Decode a trace written with --pcap",
		Long: `Decode the EtherNet/IP frames in a pcap file, showing encapsulation,
CPF, CIP and PCCC fields for each frame.`,
		Example: `  cipmsg decode trace.pcap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "pcap")
			}
			frames, err := capture.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderFrames(frames))
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "report <csv>",
		Short:   "Summarize a metrics file written with --metrics-csv",
		Example: `  cipmsg report metrics.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "csv")
			}
			rows, start, end, err := metrics.ReadMetricsCSV(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintf(out, "Window: %s to %s (%s)\n", start.Format("2006-01-02 15:04:05"), end.Format("2006-01-02 15:04:05"), end.Sub(start))
			}
			fmt.Fprint(out, metrics.FormatSummary(metrics.Summarize(rows)))
			return nil
		},
	}
}
