package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/gotrs-helpdesk/internal/sequence"
)

// counterView is what `sequence show` prints.
type counterView struct {
	Sequence string `json:"sequence" yaml:"sequence"`
	Store    string `json:"store" yaml:"store"`
	Current  int64  `json:"current" yaml:"current"`
	Display  string `json:"display,omitempty" yaml:"display,omitempty"`
}

func newSequenceCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect and advance sequence counters",
	}

	var output string
	show := &cobra.Command{
		Use:   "show [name]",
		Short: "Show the last issued value of a sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, name, err := openForSequence(cmd, *configPath, args)
			if err != nil {
				return err
			}
			defer a.Close()

			cur, err := a.alloc.Current(cmd.Context(), name)
			if err != nil {
				return err
			}
			view := counterView{Sequence: name, Store: a.cfg.Sequence.Store, Current: cur}
			if cur > 0 {
				view.Display = a.ticketFormat().Display(cur)
			}
			return printView(cmd, output, view)
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, yaml or json")

	next := &cobra.Command{
		Use:   "next [name]",
		Short: "Issue the next value of a sequence",
		Long: `Issue the next value of a sequence and print it.

The value is consumed: it will never be issued again, even if no ticket
ends up using it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, name, err := openForSequence(cmd, *configPath, args)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.alloc.Allocate(cmd.Context(), name, a.ticketFormat())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", id.Sequence, id.Value, id.Display)
			return nil
		},
	}

	cmd.AddCommand(show, next)
	return cmd
}

func openForSequence(cmd *cobra.Command, configPath string, args []string) (*app, string, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, "", err
	}
	name := cfg.Ticket.SequenceName
	if len(args) == 1 {
		name = args[0]
	}
	if name == "" {
		return nil, "", sequence.ErrInvalidSequenceName
	}
	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return nil, "", err
	}
	if usesMemory(cfg) {
		a.logger.Printf("⚠️  memory store: values are local to this process")
	}
	return a, name, nil
}

func printView(cmd *cobra.Command, format string, v counterView) error {
	out := cmd.OutOrStdout()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		fmt.Fprintf(out, "%s\t%d\t%s\n", v.Sequence, v.Current, v.Display)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
