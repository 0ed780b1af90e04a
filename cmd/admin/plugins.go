package main

import (
	"context"
	"fmt"
	"io"

	"github.com/Marga-Ghale/plenum-backend/internal/config"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List and manage meeting form and motion type plugins",
	Long: `Plugins come in two kinds:
  plenumform  meeting forms (basic, jitsi, jitsi2, deft)
  plenumtype  motion types (open, call, order, amend, resolve, second, close)

Disabling a plugin hides it from new use but keeps its data.`,
}

var pluginsListCmd = &cobra.Command{
	Use:       "list <kind>",
	Short:     "Show plugins in order",
	Args:      cobra.ExactArgs(1),
	ValidArgs: types.ValidPluginKinds,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), func(_ *config.Config, s *service.Services) error {
			return listPlugins(cmd.Context(), cmd.OutOrStdout(), s.Plugin, args[0])
		})
	},
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)

	actions := []struct {
		use, short string
		run        func(service.PluginService, context.Context, string, string) error
	}{
		{"enable", "Enable a plugin", service.PluginService.Enable},
		{"disable", "Disable a plugin", service.PluginService.Disable},
		{"up", "Move a plugin up one place", service.PluginService.MoveUp},
		{"down", "Move a plugin down one place", service.PluginService.MoveDown},
	}
	for _, a := range actions {
		a := a
		pluginsCmd.AddCommand(&cobra.Command{
			Use:   a.use + " <kind> <name>",
			Short: a.short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withServices(cmd.Context(), func(_ *config.Config, s *service.Services) error {
					if err := a.run(s.Plugin, cmd.Context(), args[0], args[1]); err != nil {
						return err
					}
					return listPlugins(cmd.Context(), cmd.OutOrStdout(), s.Plugin, args[0])
				})
			},
		})
	}

	pluginsCmd.AddCommand(&cobra.Command{
		Use:   "config <kind> <name> [setting value]",
		Short: "Show or change plugin settings",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 && len(args) != 4 {
				return fmt.Errorf("expected <kind> <name> or <kind> <name> <setting> <value>")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(_ *config.Config, s *service.Services) error {
				component := service.Component(args[0], args[1])
				if len(args) == 4 {
					if err := s.Plugin.SetConfig(cmd.Context(), component, args[2], args[3]); err != nil {
						return err
					}
				}
				settings, err := s.Plugin.GetConfig(cmd.Context(), component)
				if err != nil {
					return err
				}
				renderSettings(cmd.OutOrStdout(), component, settings)
				return nil
			})
		},
	})
}

func listPlugins(ctx context.Context, w io.Writer, plugins service.PluginService, kind string) error {
	list, err := plugins.List(ctx, kind)
	if err != nil {
		return err
	}
	renderPlugins(w, kind, list)
	return nil
}

func renderPlugins(w io.Writer, kind string, plugins []*repository.Plugin) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s plugins", kind)
	t.AppendHeader(table.Row{"#", "Name", "Enabled"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignCenter},
	})
	for i, p := range plugins {
		enabled := "no"
		if p.Enabled {
			enabled = "yes"
		}
		t.AppendRow(table.Row{i + 1, p.Name, enabled})
	}
	t.Render()
}

func renderSettings(w io.Writer, component string, settings map[string]string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(component)
	t.AppendHeader(table.Row{"Setting", "Value"})
	for name, value := range settings {
		t.AppendRow(table.Row{name, value})
	}
	t.SortBy([]table.SortBy{{Name: "Setting", Mode: table.Asc}})
	t.Render()
}
