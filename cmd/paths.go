package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nate-maxwell/templar/internal/binding"
)

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var (
		set   map[string]string
		first bool
	)
	c := &cobra.Command{
		Use:   "build [template...]",
		Short: "Build a path from field values",
		Long: "Build a path from field values. With --any the first template that " +
			"builds wins; listing no templates tries all of them in registration order.",
		Args: func(cmd *cobra.Command, args []string) error {
			if first {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			rec := binding.Fields(set)
			if !first {
				p, err := r.Build(args[0], rec)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return nil
			}
			p, name, err := r.ResolveAny(rec, args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, p)
			return nil
		},
	}
	setFlag(c.Flags(), &set)
	c.Flags().BoolVar(&first, "any", false, "Use the first listed template that builds")
	return c
}

type parseOutput struct {
	Template string            `json:"template"`
	Fields   map[string]string `json:"fields"`
}

func newParseCmd(opts *globalOptions) *cobra.Command {
	var name string
	c := &cobra.Command{
		Use:   "parse <path>",
		Short: "Extract field values from a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			var (
				rec binding.Fields
				ok  bool
			)
			if name == "" {
				rec, name, ok = r.ParseAny(args[0])
			} else if rec, ok, err = r.Parse(name, args[0]); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("path %q matches no template", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), parseOutput{Template: name, Fields: rec})
		},
	}
	c.Flags().StringVarP(&name, "template", "t", "", "Template to parse with (default: first that matches)")
	return c
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var set map[string]string
	c := &cobra.Command{
		Use:   "validate <template>",
		Short: "Check that field values are enough to build a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			ok, missing, err := r.Validate(args[0], binding.Fields(set))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("template %q is missing: %s", args[0], strings.Join(missing, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	setFlag(c.Flags(), &set)
	return c
}

func newTemplatesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List registered templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range r.Names() {
				tmpl, err := r.Template(name)
				if err != nil {
					return err
				}
				base := tmpl.Base
				if base == "" {
					base = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, base, tmpl.String())
			}
			return w.Flush()
		},
	}
}

// setFlag registers the record flag shared by the commands that take field
// values.
func setFlag(fs *pflag.FlagSet, p *map[string]string) {
	fs.StringToStringVar(p, "set", nil, "Field value (KEY=VALUE); repeat the flag or separate pairs with commas")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
