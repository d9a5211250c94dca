package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Adarsh-Kmt/IndexInspector/catalog"
	"github.com/Adarsh-Kmt/IndexInspector/config"
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/server"
	"github.com/spf13/cobra"
)

// cli holds the state the subcommands share once the root command has set it up.
type cli struct {
	configPath string
	dataDir    string
	snapshot   bool
	logLevel   string

	config *config.Config
	engine *InspectEngine
}

func (app *cli) setup(cmd *cobra.Command, args []string) error {

	cfg, err := config.Load(app.configPath)
	if err != nil {
		return err
	}

	if app.dataDir != "" {
		cfg.DataDir = app.dataDir
	}
	if app.logLevel != "" {
		cfg.LogLevel = app.logLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	cat := catalog.New(cfg.DataDir, catalog.WithDirectIO(cfg.DirectIO), catalog.WithSnapshots(app.snapshot))

	app.config = cfg
	app.engine = NewInspectEngine(cfg, cat)
	return nil
}

func (app *cli) teardown(cmd *cobra.Command, args []string) error {

	if app.engine == nil {
		return nil
	}
	return app.engine.Close()
}

// report prints the text a report function returns.
func (app *cli) report(run func(name string) (string, error)) func(cmd *cobra.Command, args []string) error {

	return func(cmd *cobra.Command, args []string) error {

		text, err := run(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
}

func (app *cli) rows(kind string, attr *int) func(cmd *cobra.Command, args []string) error {

	return func(cmd *cobra.Command, args []string) error {

		column := 0
		if attr != nil {
			column = *attr
		}

		cursor, err := app.engine.OpenCursor(kind, args[0], column)
		if err != nil {
			text, err := catalog.Placeholder(err)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		}

		columns := cursor.Columns()
		rows, err := Drain(cursor)
		if err != nil {
			return err
		}

		return printRows(cmd.OutOrStdout(), columns, rows)
	}
}

func newRootCommand() *cobra.Command {

	app := &cli{}

	rootCmd := &cobra.Command{
		Use:                "indexinspector",
		Short:              "Inspect the structure and contents of on-disk index trees",
		SilenceUsage:       true,
		PersistentPreRunE:  app.setup,
		PersistentPostRunE: app.teardown,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "path of the YAML config file")
	rootCmd.PersistentFlags().StringVar(&app.dataDir, "dir", "", "directory holding the tree files (overrides data_dir)")
	rootCmd.PersistentFlags().BoolVar(&app.snapshot, "snapshot", false, "read trees from LevelDB snapshots instead of tree files")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "debug, info, warn or error (overrides log_level)")

	var (
		maxDepth int
		pretty   bool
		attr     int
		dbPath   string
		outDir   string
		kind     string
		name     string
		numRows  int
		addr     string
	)

	gistTreeCmd := &cobra.Command{
		Use:   "gist-tree <name>",
		Short: "Print the page structure of a GiST-like tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pretty {
				return app.report(func(name string) (string, error) { return app.engine.GistTreePretty(name, maxDepth) })(cmd, args)
			}
			return app.report(func(name string) (string, error) { return app.engine.GistTree(name, maxDepth) })(cmd, args)
		},
	}
	gistTreeCmd.Flags().IntVar(&maxDepth, "max-depth", -1, "deepest level to descend to, negative for all")
	gistTreeCmd.Flags().BoolVar(&pretty, "pretty", false, "draw the pages as a tree")

	gistStatCmd := &cobra.Command{
		Use:   "gist-stat <name>",
		Short: "Print page and tuple statistics of a GiST-like tree",
		Args:  cobra.ExactArgs(1),
		RunE:  app.report(func(name string) (string, error) { return app.engine.GistStat(name) }),
	}

	gistPrintCmd := &cobra.Command{
		Use:   "gist-print <name>",
		Short: "Print every tuple of a GiST-like tree",
		Args:  cobra.ExactArgs(1),
		RunE:  app.rows(catalog.FeatureGistPrint.Name, nil),
	}

	ginStatCmd := &cobra.Command{
		Use:   "gin-stat <name>",
		Short: "Print every distinct key of one attribute with its row count",
		Args:  cobra.ExactArgs(1),
		RunE:  app.rows(catalog.FeatureGinStat.Name, &attr),
	}
	ginStatCmd.Flags().IntVar(&attr, "attr", 0, "attribute number, starting at 0")

	ginStatPageCmd := &cobra.Command{
		Use:   "gin-statpage <name>",
		Short: "Print page statistics of an inverted-list tree",
		Args:  cobra.ExactArgs(1),
		RunE:  app.report(func(name string) (string, error) { return app.engine.GinStatPage(name) }),
	}

	spgistStatCmd := &cobra.Command{
		Use:   "spgist-stat <name>",
		Short: "Print page statistics of a space-partitioned tree",
		Args:  cobra.ExactArgs(1),
		RunE:  app.report(func(name string) (string, error) { return app.engine.SpgistStat(name) }),
	}

	spgistPrintCmd := &cobra.Command{
		Use:   "spgist-print <name>",
		Short: "Print every inner node and leaf of a space-partitioned tree",
		Args:  cobra.ExactArgs(1),
		RunE:  app.rows(catalog.FeatureSpgistPrint.Name, nil),
	}

	exportCmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Copy the rows of a tree into a SQLite table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := app.engine.Export(args[0], dbPath, attr)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows\n", count)
			return err
		},
	}
	exportCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to write")
	exportCmd.Flags().IntVar(&attr, "attr", 0, "attribute number for inverted-list trees")
	_ = exportCmd.MarkFlagRequired("db")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot <name>",
		Short: "Copy the pages of a tree file into a LevelDB snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outDir
			if out == "" {
				out = app.engine.catalog.SnapshotPath(args[0])
			}
			copied, err := app.engine.Snapshot(args[0], out)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "copied %d pages to %s\n", copied, out)
			return err
		},
	}
	snapshotCmd.Flags().StringVar(&outDir, "out", "", "snapshot directory (default <dir>/<name>.ldb)")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic tree file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := pagecodec.ParseTreeFamily(kind)
			if err != nil {
				return err
			}
			metadata, err := app.engine.Generate(family, name, numRows)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s tree %s to %s\n", metadata.Family, metadata.Name, app.engine.catalog.TreePath(name))
			return err
		},
	}
	generateCmd.Flags().StringVar(&kind, "kind", "gist", "gist, gin or spgist")
	generateCmd.Flags().StringVar(&name, "name", "", "tree name")
	generateCmd.Flags().IntVar(&numRows, "rows", 1000, "number of rows to index")
	_ = generateCmd.MarkFlagRequired("name")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cursors and reports over TCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := app.config.Server.Addr
			if addr != "" {
				listenAddr = addr
			}
			srv, err := server.NewServer(listenAddr, app.engine)
			if err != nil {
				return err
			}
			// Run closes the engine once every client has left
			srv.Run()
			app.engine = nil
			return nil
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(gistTreeCmd, gistStatCmd, gistPrintCmd, ginStatCmd, ginStatPageCmd,
		spgistStatCmd, spgistPrintCmd, exportCmd, snapshotCmd, generateCmd, serveCmd)

	return rootCmd
}

func main() {

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
