package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/app"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are the persistent flags shared by every command that talks
// to a target. They override the config file.
type globalFlags struct {
	config     string
	target     string
	port       int
	route      string
	timeoutMs  int
	logLevel   string
	logFile    string
	pcapFile   string
	metricsCSV string
	summary    bool
}

func (g *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: g.config,
		Target:     g.target,
		Port:       g.port,
		RoutePath:  g.route,
		TimeoutMs:  g.timeoutMs,
		LogLevel:   g.logLevel,
		LogFile:    g.logFile,
		PCAPFile:   g.pcapFile,
		MetricsCSV: g.metricsCSV,
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "cipmsg",
		Short: "EtherNet/IP explicit messaging client",
		Long: `cipmsg talks to EtherNet/IP controllers with CIP explicit messages.

It reads and writes PCCC data-table addresses (N7:0, B3:1/4, T4:2.ACC)
over a Class-3 connection, sends arbitrary CIP services, and lists and
reads Logix tags with the fragmented services.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "YAML config file (defaults apply when omitted)")
	pf.StringVar(&g.target, "target", "", "Target address, host or host:port")
	pf.IntVar(&g.port, "port", 0, "Target TCP port (default 44818)")
	pf.StringVar(&g.route, "route", "", "Route path as port,link pairs (e.g. 1,0 for backplane slot 0)")
	pf.IntVar(&g.timeoutMs, "timeout", 0, "Reply timeout in milliseconds")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: silent, error, info, verbose, debug")
	pf.StringVar(&g.logFile, "log-file", "", "Also write log lines to this file")
	pf.StringVar(&g.pcapFile, "pcap", "", "Write every frame exchanged to this pcap file")
	pf.StringVar(&g.metricsCSV, "metrics-csv", "", "Write one metrics row per exchange to this CSV file")
	pf.BoolVar(&g.summary, "summary", false, "Print an exchange summary when done")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newReadCmd(g))
	rootCmd.AddCommand(newWriteCmd(g))
	rootCmd.AddCommand(newEchoCmd(g))
	rootCmd.AddCommand(newPollCmd(g))
	rootCmd.AddCommand(newGenericCmd(g))
	rootCmd.AddCommand(newTagsCmd(g))
	rootCmd.AddCommand(newReadTagCmd(g))
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newDecodeCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newConfigCmd(g))

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Usage:\n  %s <command> [arguments] [options]\n\n", cmd.Name())
		fmt.Fprintf(out, "Available Commands:\n")
		for _, subCmd := range cmd.Commands() {
			if !subCmd.Hidden {
				fmt.Fprintf(out, "  %-15s %s\n", subCmd.Name(), subCmd.Short)
			}
		}
		fmt.Fprintf(out, "\nUse \"%s help <command>\" for more information about a command.\n", cmd.Name())
	})

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
