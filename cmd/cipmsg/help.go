package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/app"
	"github.com/tturner/cipmsg/internal/metrics"
)

func handleHelpArg(cmd *cobra.Command, args []string) bool {
	if len(args) == 0 {
		return false
	}
	if strings.EqualFold(args[0], "help") {
		_ = cmd.Help()
		return true
	}
	return false
}

func missingFlagError(cmd *cobra.Command, flag string) error {
	_ = cmd.Help()
	return fmt.Errorf("required flag %s not set", flag)
}

func missingArgError(cmd *cobra.Command, arg string) error {
	_ = cmd.Help()
	return fmt.Errorf("required argument <%s> not set", arg)
}

// withSession opens a session to the configured target, runs fn and tears
// the session down again, printing the exchange summary when asked to.
func withSession(cmd *cobra.Command, g *globalFlags, connect bool, fn func(ctx context.Context, s *app.Session) error) error {
	cfg, err := app.LoadConfig(g.options())
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := app.Open(ctx, cfg, connect)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)
	summary := s.Summary()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	closeErr := s.Close(closeCtx)

	if g.summary {
		fmt.Fprint(cmd.OutOrStdout(), "\n"+metrics.FormatSummary(summary))
	}
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("close session: %w", closeErr)
	}
	return nil
}

func parseHexPayload(input string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(strings.TrimSpace(input))
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "0x"), "0X")
	if cleaned == "" {
		return nil, nil
	}
	if len(cleaned)%2 != 0 {
		return nil, fmt.Errorf("hex payload must have even length")
	}
	decoded, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decode hex payload: %w", err)
	}
	return decoded, nil
}
