package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/a3tai/docket-extract/internal/batch"
	"github.com/a3tai/docket-extract/internal/config"
	"github.com/a3tai/docket-extract/internal/docket/record"
	"github.com/a3tai/docket-extract/internal/mcp"
	"github.com/a3tai/docket-extract/internal/store"
)

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "docket-extract",
		Short: "Extract structured case records from court docket PDFs",
		Long: `docket-extract turns court docket sheets and court summaries into
structured JSON case records.

It segments each document into sections, extracts the fields of every
section with dialect tables and records per-document outcomes:
  - parse and inspect single documents
  - batch runs with a resumable CSV progress ledger
  - an MCP server exposing the parser as tools`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if version != "dev" {
				cfg.Version = version
			}
			logger, closeFn, err := setupLogging(cfg, cmd.Name() == "serve")
			if err != nil {
				return err
			}
			a.cfg, a.log, a.closeFn = cfg, logger, closeFn
			a.log.Debug("configuration loaded", "config", cfg.String())
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}
	config.DefineFlags(rootCmd.PersistentFlags(), config.DefaultConfig())

	rootCmd.AddCommand(parseCmd(a))
	rootCmd.AddCommand(sectionsCmd(a))
	rootCmd.AddCommand(batchCmd(a))
	rootCmd.AddCommand(dialectsCmd(a))
	rootCmd.AddCommand(runsCmd(a))
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func parseCmd(a *app) *cobra.Command {
	var documentOnly bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse one docket PDF or text file and print the outcome as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(a.cfg)
			if err != nil {
				return err
			}
			o := svc.ParseFile(cmd.Context(), args[0])

			var v any = o
			if documentOnly && o.Succeeded {
				v = o.Document()
			}
			data, err := record.MarshalIndent(v)
			if err != nil {
				return fmt.Errorf("failed to encode outcome: %w", err)
			}
			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return err
			}
			if !o.Succeeded {
				return fmt.Errorf("failed to parse %s: %s", o.FileName, *o.FailureReason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&documentOnly, "document-only", false, "Print only the record, as written by batch runs")
	return cmd
}

func sectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sections <file>",
		Short: "Print the sections a document is split into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(a.cfg)
			if err != nil {
				return err
			}
			rep, err := svc.Sections(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := record.MarshalIndent(rep)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func batchCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Parse every document of the input directory or input list",
		Long: `Parse every *.pdf and *.txt file under --dir, or the files named in the
file_name column of --input-list. One JSON file per successful document is
written to --output. Every attempt is appended to the --ledger CSV and files
that already succeeded are skipped on the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			svc, err := newService(cfg)
			if err != nil {
				return err
			}

			var inputs []batch.Input
			if cfg.InputList != "" {
				inputs, err = batch.ReadInputList(cfg.InputList, cfg.DocumentDirectory)
			} else {
				inputs, err = batch.Discover(cfg.DocumentDirectory, cfg.MaxFileSize)
			}
			if err != nil {
				return err
			}

			if err := cfg.EnsureOutputDirectory(); err != nil {
				return err
			}
			ledger, err := batch.OpenLedger(cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			opts := batch.Options{
				OutputDir: cfg.OutputDirectory,
				Workers:   cfg.Workers,
				Force:     force,
				Logger:    a.log,
			}
			if cfg.StorePath != "" {
				st, err := store.Open(cfg.StorePath)
				if err != nil {
					return err
				}
				defer st.Close()
				opts.Store = st
			}

			runner, err := batch.NewRunner(svc, ledger, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			rep, err := runner.Run(ctx, inputs)
			if rep != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d parsed, %d failed, %d skipped of %d documents\n",
					rep.RunID, rep.Succeeded, rep.Failed, rep.Skipped, rep.Total)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reparse files the ledger marks as succeeded")
	return cmd
}

func dialectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the known docket dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(a.cfg)
			if err != nil {
				return err
			}
			registry := svc.Registry()
			for _, name := range registry.Names() {
				d, _ := registry.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-8s %s\n", d.Name, d.Kind, d.Description)
			}
			return nil
		},
	}
}

func runsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List the batch runs recorded in the outcome store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.StorePath == "" {
				return fmt.Errorf("--%s is required", config.FlagStore)
			}
			st, err := store.Open(a.cfg.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d/%d succeeded\n", r.RunID, r.Succeeded, r.Documents)
			}
			return nil
		},
	}
}

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the parser as MCP tools over stdio or HTTP/SSE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(a.cfg)
			if err != nil {
				return err
			}
			server, err := mcp.NewServer(a.cfg, svc, a.log)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if a.cfg.IsServerMode() {
				return runServerMode(ctx, cancel, server, a.log)
			}
			return runStdioMode(ctx, server)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
