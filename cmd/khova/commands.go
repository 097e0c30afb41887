package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fine-structures/khova.SDK/khova"
	"github.com/fine-structures/khova.SDK/libkhova"
	"github.com/fine-structures/khova.SDK/libkhova/catalog"
	"github.com/fine-structures/khova.SDK/libkhova/link"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// cliState holds the persistent flags and the config they resolve to.
type cliState struct {
	configPath  string
	verbosity   int
	workers     int
	catalogPath string
	useCatalog  bool
	metricsAddr string

	config khova.Config
}

func newRootCmd() *cobra.Command {
	st := &cliState{}

	root := &cobra.Command{
		Use:               "khova",
		Short:             "Computes the Khovanov homology of link diagrams",
		SilenceUsage:      true,
		PersistentPreRunE: st.loadConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.configPath, "config", "", "YAML config file")
	flags.IntVarP(&st.verbosity, "verbose", "v", 1, "log verbosity")
	flags.IntVar(&st.workers, "workers", 0, "max concurrent differential builds (0 for GOMAXPROCS)")
	flags.StringVar(&st.catalogPath, "catalog", "", "results catalog directory")
	flags.BoolVar(&st.useCatalog, "use-catalog", false, "look up and store results in the catalog")
	flags.StringVar(&st.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	root.AddCommand(
		st.newComputeCmd(),
		st.newCatalogCmd(),
		st.newScriptCmd(),
	)
	return root
}

// loadConfig resolves defaults, the config file, KHOVA_* env vars and then explicitly set flags.
func (st *cliState) loadConfig(cmd *cobra.Command, args []string) error {
	config, err := khova.LoadConfig(st.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		config.Verbosity = st.verbosity
	}
	if flags.Changed("workers") {
		config.Workers = st.workers
	}
	if flags.Changed("catalog") {
		config.CatalogPath = st.catalogPath
		config.UseCatalog = true
	}
	if flags.Changed("use-catalog") {
		config.UseCatalog = st.useCatalog
	}
	if flags.Changed("metrics-addr") {
		config.MetricsAddr = st.metricsAddr
	}
	if err = config.Validate(); err != nil {
		return err
	}
	st.config = config

	setVerbosity(config.Verbosity)

	if config.MetricsAddr != "" {
		go serveMetrics(config.MetricsAddr)
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	klog.V(1).Infof("serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		klog.Warningf("metrics server stopped: %v", err)
	}
}

// openCatalog opens the configured catalog; the returned func closes it.
func (st *cliState) openCatalog(readOnly bool) (khova.Catalog, func(), error) {
	ctx := khova.NewCatalogContext()
	cat, err := catalog.OpenCatalog(ctx, khova.CatalogOpts{
		DbPathName: st.config.CatalogPath,
		ReadOnly:   readOnly,
	})
	if err != nil {
		ctx.Close()
		return nil, nil, err
	}
	return cat, func() {
		ctx.Close()
		<-ctx.Done()
	}, nil
}

var (
	computeName    string
	computeEuler   bool
	computeTorsion bool
	computeTimeout time.Duration
)

func (st *cliState) newComputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compute LINK_EXPR...",
		Short: "Computes and prints the homology of each link expression",
		Long: `Computes and prints the Khovanov homology of each given link expression.

A link expression is a Gauss code with crossing signs or a braid closure:
  khova compute "[+1-2+3-1+2-3] +++"
  khova compute "[+1-2][+2-1] ++" "braid(3: 1 -2 1 -2)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: st.runCompute,
	}
	cmd.Flags().StringVar(&computeName, "name", "", "link name (single expression only)")
	cmd.Flags().BoolVar(&computeEuler, "euler", false, "also print the graded Euler characteristic")
	cmd.Flags().BoolVar(&computeTorsion, "torsion", true, "print torsion summands")
	cmd.Flags().DurationVar(&computeTimeout, "timeout", 0, "cancel each computation after this long (0 for none)")
	return cmd
}

func (st *cliState) runCompute(cmd *cobra.Command, args []string) error {
	if computeName != "" && len(args) > 1 {
		return errors.New("--name can only be given with a single link expression")
	}

	opts := libkhova.Opts{
		Workers: st.config.Workers,
	}
	if st.config.UseCatalog {
		cat, closeCatalog, err := st.openCatalog(false)
		if err != nil {
			return err
		}
		defer closeCatalog()
		opts.Catalog = cat
	}

	out := cmd.OutOrStdout()
	for i, expr := range args {
		name := computeName
		if name == "" {
			name = fmt.Sprintf("link%d", i+1)
		}
		L, err := link.Parse(name, expr)
		if err != nil {
			return err
		}
		if err = st.computeOne(cmd.Context(), out, L, opts); err != nil {
			return err
		}
	}
	return nil
}

func (st *cliState) computeOne(ctx context.Context, out io.Writer, L *link.Link, opts libkhova.Opts) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if computeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, computeTimeout)
		defer cancel()
	}

	job := libkhova.Start(ctx, L, opts)
	result := job.Wait()
	if result.Err != nil {
		return result.Err
	}

	L.WriteAsString(out)
	fmt.Fprintf(out, "Computed in:      %v\n", result.Elapsed.Round(time.Microsecond))
	result.Homology.WriteAsString(out, khova.PrintOpts{
		Label:   "  ",
		Torsion: computeTorsion,
		Euler:   computeEuler,
	})
	fmt.Fprintln(out)
	return nil
}

func (st *cliState) newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspects a results catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Prints every homology stored in the catalog",
		Args:  cobra.NoArgs,
		RunE:  st.runCatalogList,
	})
	return cmd
}

func (st *cliState) runCatalogList(cmd *cobra.Command, args []string) error {
	if st.config.CatalogPath == "" {
		return errors.Wrap(khova.ErrBadCatalogParam, "no catalog path given (use --catalog or catalog_path)")
	}
	cat, closeCatalog, err := st.openCatalog(true)
	if err != nil {
		return err
	}
	defer closeCatalog()

	onHit := make(chan khova.CatalogEntry)
	var selectErr error
	go func() {
		selectErr = cat.Select(onHit)
		close(onHit)
	}()

	out := cmd.OutOrStdout()
	count := int64(0)
	for entry := range onHit {
		count++
		fmt.Fprintf(out, "%s\n", entry.Name)
		entry.Homology.WriteAsString(out, khova.PrintOpts{
			Label:   "  ",
			Torsion: true,
		})
	}
	if selectErr != nil {
		return selectErr
	}
	fmt.Fprintf(out, "%s entries\n", humanize.Comma(count))
	return nil
}

func (st *cliState) newScriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "script [FILE.py]",
		Short: "Runs a gpython script with the _khova module, or a REPL if no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathname := ""
			if len(args) > 0 {
				pathname = args[0]
			}
			return runGpython(pathname)
		},
	}
}
