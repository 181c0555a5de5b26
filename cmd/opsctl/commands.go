package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joshua-takyi/airportcar/internal/models"
)

func indexesCmd(run envRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes the API relies on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, e *env) error {
				if err := e.indexes.EnsureIndexes(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "indexes ensured")
				return nil
			})
		},
	}
}

func settingsCmd(run envRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or reset pricing and booking settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, e *env) error {
				s, err := e.settings.GetSettings(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Overwrite the stored settings with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, e *env) error {
				s, err := e.settings.ResetSettings(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "settings reset to defaults")
				return printJSON(cmd.OutOrStdout(), s)
			})
		},
	})

	return cmd
}

func pagesCmd(run envRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Manage CMS page content",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "seed [keys...]",
		Short: "Store default content for pages that have none (all known pages by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := args
			if len(keys) == 0 {
				keys = models.KnownPageKeys()
			}
			return run(cmd, func(ctx context.Context, e *env) error {
				for _, key := range keys {
					page, err := e.cms.GetPage(ctx, key)
					if err != nil {
						return fmt.Errorf("page %s: %w", key, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", key, page.Header().Title)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <key>",
		Short: "Print a page's content as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, e *env) error {
				page, err := e.cms.GetPage(ctx, args[0])
				if err != nil {
					return err
				}
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(page)
			})
		},
	})

	return cmd
}

func slotsCmd(run envRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Inspect pickup-time availability",
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "List bookings that block a pickup time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("at")
			buffer, _ := cmd.Flags().GetInt("buffer")

			at, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
			if err != nil {
				return fmt.Errorf("--at must be an RFC 3339 time: %w", err)
			}

			return run(cmd, func(ctx context.Context, e *env) error {
				if buffer < 0 {
					s, err := e.settings.GetSettings(ctx)
					if err != nil {
						return err
					}
					buffer = s.BufferMinutes
				}

				conflicts, err := e.slots.Conflicts(ctx, at, buffer, "")
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(conflicts) == 0 {
					fmt.Fprintf(out, "%s is available (buffer %d min)\n", at.Format(time.RFC3339), buffer)
					return nil
				}
				fmt.Fprintf(out, "%s is blocked by %d booking(s):\n", at.Format(time.RFC3339), len(conflicts))
				for _, b := range conflicts {
					fmt.Fprintf(out, "  %s  %s  %-10s %s\n", b.ID, b.PickupTime.Format(time.RFC3339), b.Status, b.CustomerName)
				}
				return nil
			})
		},
	}
	check.Flags().String("at", "", "pickup time to check (RFC 3339)")
	check.Flags().Int("buffer", -1, "buffer in minutes (default: the stored setting)")
	_ = check.MarkFlagRequired("at")

	cmd.AddCommand(check)
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
