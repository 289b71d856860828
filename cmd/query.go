package cmd

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/catalog"
	"github.com/nate-maxwell/templar/internal/query"
	"github.com/nate-maxwell/templar/internal/resolve"
)

// engineFlags are shared by the commands that walk a directory tree.
type engineFlags struct {
	templates []string
	absolute  bool
}

func (f *engineFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.templates, "template", "t", nil, "Restrict parsing to these templates")
	fs.BoolVar(&f.absolute, "absolute", false, "Parse root-joined paths and walk without a depth bound")
}

func (f *engineFlags) engine(r *resolve.Resolver[binding.Fields], root string, logger *slog.Logger) *query.Engine[binding.Fields] {
	opts := []query.Option{query.WithFilesystem(osfs.Default), query.WithLogger(logger)}
	if len(f.templates) > 0 {
		opts = append(opts, query.WithTemplates(f.templates...))
	}
	if f.absolute {
		opts = append(opts, query.WithAbsolutePaths())
	}
	return query.NewEngine(r, root, opts...)
}

func newQueryCmd(opts *globalOptions) *cobra.Command {
	var (
		ef        engineFlags
		filters   map[string]string
		cacheKind string
		repeat    int
		ttl       time.Duration
		parseTTL  time.Duration
	)
	c := &cobra.Command{
		Use:   "query <root>",
		Short: "Find records under a directory by field values",
		Long: "Walk root, parse every entry against the registered templates and print " +
			"the records that match --filter, one JSON object per line. With --cache " +
			"the query runs --repeat times through the chosen cache and its counters " +
			"are reported on stderr.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)
			engine := ef.engine(r, args[0], logger)
			f := binding.Filter(filters)

			var cache query.Cache[binding.Fields]
			copts := []query.CacheOption{query.WithCacheLogger(logger)}
			switch cacheKind {
			case "none":
			case "full":
				cache = query.NewFullCache(engine, ttl, copts...)
			case "tiered":
				cache = query.NewTieredCache(engine, ttl, parseTTL, copts...)
			case "lazy":
				cache = query.NewLazyCache(engine, ttl, copts...)
			default:
				return fmt.Errorf("unknown cache %q (want none, full, tiered or lazy)", cacheKind)
			}

			run := func() iter.Seq2[binding.Fields, error] {
				if cache == nil {
					return engine.Query(f)
				}
				return cache.Query(f)
			}

			var results []binding.Fields
			for range max(repeat, 1) {
				results = results[:0]
				for rec, err := range run() {
					if err != nil {
						logger.Warn("query", "error", err)
						continue
					}
					results = append(results, rec)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, rec := range results {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			if cache != nil {
				s := cache.Stats()
				fmt.Fprintf(cmd.ErrOrStderr(), "cache=%s scans=%d parses=%d hits=%d misses=%d\n",
					cacheKind, s.Scans, s.Parses, s.Hits, s.Misses)
			}
			return nil
		},
	}
	ef.register(c.Flags())
	c.Flags().StringToStringVarP(&filters, "filter", "f", nil, "Field equality filter (KEY=VALUE)")
	c.Flags().StringVar(&cacheKind, "cache", "none", "Cache strategy: none, full, tiered or lazy")
	c.Flags().IntVar(&repeat, "repeat", 1, "Run the query this many times")
	c.Flags().DurationVar(&ttl, "ttl", 0, "Cache entry lifetime (0 never expires); the path tier for --cache tiered")
	c.Flags().DurationVar(&parseTTL, "parse-ttl", 0, "Parse tier lifetime for --cache tiered")
	return c
}

func newIndexCmd(opts *globalOptions) *cobra.Command {
	var ef engineFlags
	c := &cobra.Command{
		Use:   "index <root> <output.db>",
		Short: "Export every parsed entry under a directory into a SQLite catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, output := args[0], args[1]
			r, err := opts.resolver(cmd)
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)

			w, err := catalog.NewWriter(output)
			if err != nil {
				return err
			}
			now := time.Now()
			for m, err := range ef.engine(r, root, logger).Matches(nil) {
				if err != nil {
					logger.Warn("index", "error", err)
					continue
				}
				entry := catalog.Entry{
					Path:      filepath.Join(root, m.Path),
					Template:  m.Template,
					Fields:    m.Record,
					IndexedAt: now,
				}
				if err := w.Add(entry); err != nil {
					_ = w.Close()
					return err
				}
			}
			count := w.Count()
			if err := w.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d entries into %s\n", count, output)
			return nil
		},
	}
	ef.register(c.Flags())
	return c
}

func newLookupCmd() *cobra.Command {
	var filters map[string]string
	c := &cobra.Command{
		Use:   "lookup <catalog.db>",
		Short: "Find entries in a catalog written by index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalog.Find(args[0], filters)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Template, e.Path)
			}
			return nil
		},
	}
	c.Flags().StringToStringVarP(&filters, "filter", "f", nil, "Field equality filter (KEY=VALUE)")
	return c
}
