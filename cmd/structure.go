package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/mcpserver"
	"github.com/nate-maxwell/templar/internal/nfsmount"
	"github.com/nate-maxwell/templar/internal/structure"
)

func newStructureCmd(opts *globalOptions) *cobra.Command {
	var (
		set    map[string]string
		stopAt string
		dryRun bool
		root   string
	)
	c := &cobra.Command{
		Use:   "structure <template>",
		Short: "Create the directory tree a template expands to",
		Long: "Expand the template over the candidate values of every field --set " +
			"leaves open and create each resulting directory. --stop ends each path " +
			"just before the named token.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			fs := billy.Filesystem(osfs.Default)
			if root != "" {
				fs = osfs.New(root)
			}
			gen := &structure.Generator[binding.Fields]{Resolver: r, FS: fs, Logger: opts.logger(cmd)}
			paths, err := gen.Create(args[0], binding.Fields(set), structure.Options{StopAt: stopAt, DryRun: dryRun})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	setFlag(c.Flags(), &set)
	c.Flags().StringVar(&stopAt, "stop", "", "Token to stop before")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "Print the paths without creating them")
	c.Flags().StringVar(&root, "root", "", "Create paths relative to this directory")
	return c
}

func newPreviewCmd(opts *globalOptions) *cobra.Command {
	var (
		set        map[string]string
		stopAt     string
		mountPoint string
	)
	c := &cobra.Command{
		Use:   "preview <template>",
		Short: "Serve the tree a template would create over NFS without touching disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			tmpl, err := r.Template(args[0])
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)

			tree := memfs.New()
			gen := &structure.Generator[binding.Fields]{Resolver: r, FS: tree, Logger: logger}
			paths, err := gen.Create(args[0], binding.Fields(set), structure.Options{StopAt: stopAt})
			if err != nil {
				return err
			}

			srv, err := nfsmount.NewServer(nfsmount.NewPreviewFS(tree, nfsmount.Manifest{
				Template: args[0],
				Pattern:  tmpl.String(),
				Fields:   set,
				StopAt:   stopAt,
				Paths:    paths,
			}))
			if err != nil {
				return err
			}
			defer func() { _ = srv.Close() }()
			fmt.Fprintf(cmd.OutOrStdout(), "serving %d paths over NFS at %s\n", len(paths), srv.Addr())

			if mountPoint != "" {
				if err := nfsmount.Mount(srv.Port(), mountPoint); err != nil {
					return err
				}
				defer func() {
					if err := nfsmount.Unmount(mountPoint); err != nil {
						logger.Warn("unmount failed", "mountpoint", mountPoint, "error", err)
					}
				}()
				fmt.Fprintf(cmd.OutOrStdout(), "mounted at %s\n", mountPoint)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			select {
			case <-ctx.Done():
				return nil
			case err := <-srv.Done():
				return err
			}
		},
	}
	setFlag(c.Flags(), &set)
	c.Flags().StringVar(&stopAt, "stop", "", "Token to stop before")
	c.Flags().StringVar(&mountPoint, "mount", "", "Mount the preview here (requires sudo)")
	return c
}

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the templates as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			srv := mcpserver.New(r, Version, mcpserver.WithLogger(opts.logger(cmd)))
			return srv.ServeStdio()
		},
	}
}
