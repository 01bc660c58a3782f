package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tturner/cipmsg/internal/cip/catalog"
	"github.com/tturner/cipmsg/internal/config"
	"github.com/tturner/cipmsg/internal/ui"
)

// loadCatalog returns the built-in catalog, with path merged over it when set.
func loadCatalog(path string) (*catalog.Catalog, error) {
	cat, err := catalog.Core()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cat, nil
	}
	file, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	return cat.Merge(file), nil
}

func newCatalogCmd() *cobra.Command {
	var catalogFile string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and check named requests",
	}
	cmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "Extra catalog YAML merged over the built-in one")

	var search string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalogFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if search == "" {
				fmt.Fprintln(out, ui.RenderCatalog(cat))
				return nil
			}
			for _, e := range cat.Search(search) {
				fmt.Fprintf(out, "%-28s %s\n", e.Key, e.Name)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&search, "search", "", "Only show entries matching this text")

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return missingArgError(cmd, "file")
			}
			file, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			result := catalog.ValidateEntries(catalog.NewCatalog(file))
			out := cmd.OutOrStdout()
			for _, w := range result.Warnings {
				fmt.Fprintln(out, ui.RenderWarning(w.Error()))
			}
			for _, e := range result.Errors {
				fmt.Fprintln(out, ui.RenderError(e))
			}
			if !result.IsValid() {
				return fmt.Errorf("%s: %d error(s)", args[0], len(result.Errors))
			}
			fmt.Fprintln(out, ui.RenderOK(fmt.Sprintf("%s: %d entries", args[0], len(file.Entries))))
			return nil
		},
	}

	cmd.AddCommand(listCmd, validateCmd)
	return cmd
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file to --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.config == "" {
				return missingFlagError(cmd, "--config")
			}
			if _, err := os.Stat(g.config); err == nil {
				return fmt.Errorf("%s already exists", g.config)
			}
			if err := config.WriteDefaultConfig(g.config); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderOK("wrote "+g.config))
			return nil
		},
	})
	return cmd
}
