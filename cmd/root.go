package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/spf13/cobra"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/loader"
	"github.com/nate-maxwell/templar/internal/resolve"
)

// Version is reported by the MCP server. Overridden at link time.
var Version = "dev"

const configEnv = "TEMPLAR_CONFIG"

var errNoConfig = errors.New("no definitions file: pass --config or set " + configEnv)

// globalOptions carries the persistent flags shared by every subcommand.
type globalOptions struct {
	config   string
	selector string
	vars     map[string]string
	verbose  bool
}

func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// resolver loads the definitions file into a resolver over open field maps.
// The file_name and file_type fields are declared so that parsing a file
// path also reports its stem and extension.
func (o *globalOptions) resolver(cmd *cobra.Command) (*resolve.Resolver[binding.Fields], error) {
	path := o.config
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return nil, errNoConfig
	}
	defs, err := loader.Load(path, o.selector)
	if err != nil {
		return nil, err
	}
	if len(o.vars) > 0 {
		if defs.Variables == nil {
			defs.Variables = make(map[string]string, len(o.vars))
		}
		maps.Copy(defs.Variables, o.vars)
	}

	r := resolve.New(binding.FieldsBinder("file_name", "file_type"),
		resolve.WithLogger(o.logger(cmd)))
	if err := loader.Apply(defs, r); err != nil {
		return nil, fmt.Errorf("apply %s: %w", path, err)
	}
	return r, nil
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "templar",
		Short:         "Templar: bidirectional path templates for production pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.config, "config", "c", "", "Path to template definitions (.json, .jsonc, .yaml, .hcl); defaults to $"+configEnv)
	pf.StringVar(&opts.selector, "selector", "", "JSONPath selecting the definitions object inside a larger document")
	pf.StringToStringVar(&opts.vars, "var", nil, "Override a template variable (KEY=VALUE)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging on stderr")

	root.AddCommand(
		newBuildCmd(opts),
		newParseCmd(opts),
		newValidateCmd(opts),
		newQueryCmd(opts),
		newStructureCmd(opts),
		newIndexCmd(opts),
		newLookupCmd(),
		newPreviewCmd(opts),
		newServeCmd(opts),
		newTemplatesCmd(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
