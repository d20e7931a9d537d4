// Package main provides the CLI entrypoint for darkcmp.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/darkcmp/internal/config"
	"github.com/verte-zerg/darkcmp/internal/export"
	"github.com/verte-zerg/darkcmp/internal/ingest"
	"github.com/verte-zerg/darkcmp/internal/model"
	"github.com/verte-zerg/darkcmp/internal/plot"
	"github.com/verte-zerg/darkcmp/internal/plotui"
	"github.com/verte-zerg/darkcmp/internal/stats"
	"github.com/verte-zerg/darkcmp/internal/store"
	"github.com/verte-zerg/darkcmp/internal/watch"
)

const (
	defaultRunsLimit   = 20
	progressBarWidth   = 40
	watchSeparatorRune = "─"
)

var (
	compareExts       []string
	compareCrop       float64
	compareErrorScale float64
	compareFilter     string
	comparePNG        string
	comparePNGWidth   int
	comparePNGHeight  int
	comparePlotHeight int
	compareNoTUI      bool
	compareCache      bool
	compareCachePath  string
	compareWatch      bool

	exportFormat    string
	exportExts      []string
	exportCrop      float64
	exportFilter    string
	exportCache     bool
	exportCachePath string

	runsLimit int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "darkcmp <stat-type> <folder-path>",
		Short: "Compare box and dome dark frames",
		Long: `darkcmp reads every FITS dark frame under folder-path, reduces each frame to
statistics over its central region, groups frames by exposure time and gain,
and plots box darks against dome darks on log-log axes.

stat-type "mean" (any case) compares means; anything else compares medians.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCompareCmd,
	}

	rootCmd.Flags().StringSliceVar(&compareExts, "ext", ingest.DefaultExtensions, "FITS file extensions to read")
	rootCmd.Flags().Float64Var(&compareCrop, "crop", stats.DefaultCropFraction, "fraction of width/height removed from each border (0-0.5)")
	rootCmd.Flags().Float64Var(&compareErrorScale, "error-scale", stats.DefaultErrorScale, "divisor applied to group standard deviation")
	rootCmd.Flags().StringVar(&compareFilter, "filter", "", "boolean expression selecting frames, e.g. 'Gain > 0'")
	rootCmd.Flags().StringVar(&comparePNG, "png", "", "also write the figure to this PNG file")
	rootCmd.Flags().IntVar(&comparePNGWidth, "png-width", plot.DefaultPNGWidth, "PNG width in pixels")
	rootCmd.Flags().IntVar(&comparePNGHeight, "png-height", plot.DefaultPNGHeight, "PNG height in pixels")
	rootCmd.Flags().IntVar(&comparePlotHeight, "height", 0, "text plot height in rows (0 fits the terminal)")
	rootCmd.Flags().BoolVar(&compareNoTUI, "no-tui", false, "print the plot and tables instead of opening the window")
	rootCmd.Flags().BoolVar(&compareCache, "cache", false, "reuse statistics of unchanged files from the cache database")
	rootCmd.Flags().StringVar(&compareCachePath, "cache-path", "", "cache database path (default: XDG data dir)")
	rootCmd.Flags().BoolVar(&compareWatch, "watch", false, "re-read the folder when FITS files change")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newRunsCmd())

	return rootCmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringSliceConfig(cmd, "ext", &compareExts, fileCfg.Ingest.Extensions)
	applyFloatConfig(cmd, "crop", &compareCrop, fileCfg.Ingest.Crop)
	applyStringConfig(cmd, "filter", &compareFilter, fileCfg.Ingest.Filter)
	applyFloatConfig(cmd, "error-scale", &compareErrorScale, fileCfg.Plot.ErrorScale)
	applyIntConfig(cmd, "height", &comparePlotHeight, fileCfg.Plot.Height)
	applyIntConfig(cmd, "png-width", &comparePNGWidth, fileCfg.Plot.PNGWidth)
	applyIntConfig(cmd, "png-height", &comparePNGHeight, fileCfg.Plot.PNGHeight)
	applyBoolConfig(cmd, "cache", &compareCache, fileCfg.Cache.Enabled)
	applyStringConfig(cmd, "cache-path", &compareCachePath, fileCfg.Cache.Path)

	cfg := model.Config{
		Stat:         model.ParseStatType(args[0]),
		Folder:       args[1],
		Extensions:   ingest.NormalizeExtensions(compareExts),
		CropFraction: compareCrop,
		ErrorScale:   compareErrorScale,
		Filter:       strings.TrimSpace(compareFilter),
		PNGPath:      comparePNG,
		PNGWidth:     comparePNGWidth,
		PNGHeight:    comparePNGHeight,
		PlotHeight:   comparePlotHeight,
		NoTUI:        compareNoTUI,
		Cache:        compareCache,
		CachePath:    resolveCachePath(compareCachePath),
		Watch:        compareWatch,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openCache(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	table, err := ingestFolder(ctx, cfg, st, newProgressPrinter(os.Stderr).update)
	if err != nil {
		return err
	}
	report, err := stats.BuildReport(table, cfg)
	if err != nil {
		return err
	}
	if cfg.PNGPath != "" {
		if err := writePNG(cfg, report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if cfg.NoTUI || !isTerminal(out) {
		if err := printReport(out, report, cfg); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if cfg.Watch {
			return watchAndPrint(ctx, out, cfg, st)
		}
		return nil
	}
	return runWindow(ctx, table, cfg, st)
}

func runWindow(ctx context.Context, table *model.StatsTable, cfg model.Config, st *store.Store) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(plotui.NewModel(table, cfg), tea.WithAltScreen())
	watchDone := make(chan struct{})
	if cfg.Watch {
		go func() {
			defer close(watchDone)
			opts := watch.Options{
				Extensions: cfg.Extensions,
				OnError: func(err error) {
					program.Send(plotui.TableMsg{Err: err})
				},
			}
			err := watch.Watch(ctx, cfg.Folder, opts, func() {
				tbl, err := ingestFolder(ctx, cfg, st, nil)
				if errors.Is(err, context.Canceled) {
					return
				}
				program.Send(plotui.TableMsg{Table: tbl, Err: err})
			})
			if err != nil {
				program.Send(plotui.TableMsg{Err: err})
			}
		}()
	} else {
		close(watchDone)
	}

	_, runErr := program.Run()
	cancel()
	<-watchDone
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

func watchAndPrint(ctx context.Context, w io.Writer, cfg model.Config, st *store.Store) error {
	logErrf("Watching %s for changes (Ctrl+C to stop)\n", cfg.Folder)
	opts := watch.Options{
		Extensions: cfg.Extensions,
		OnError: func(err error) {
			logErrf("watch error: %v\n", err)
		},
	}
	err := watch.Watch(ctx, cfg.Folder, opts, func() {
		table, err := ingestFolder(ctx, cfg, st, nil)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logErrf("reload failed: %v\n", err)
			}
			return
		}
		report, err := stats.BuildReport(table, cfg)
		if err != nil {
			logErrf("reload failed: %v\n", err)
			return
		}
		if _, err := fmt.Fprintf(w, "%s\nReloaded at %s\n", strings.Repeat(watchSeparatorRune, 40), time.Now().Format("15:04:05")); err != nil {
			logErrf("failed to write output: %v\n", err)
			return
		}
		if err := printReport(w, report, cfg); err != nil {
			logErrf("failed to write output: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Folder, err)
	}
	return nil
}

func ingestFolder(ctx context.Context, cfg model.Config, st *store.Store, onProgress ingest.Progress) (*model.StatsTable, error) {
	opts := ingest.Options{
		Extensions:   cfg.Extensions,
		CropFraction: cfg.CropFraction,
		Progress:     onProgress,
	}
	if st == nil {
		res, err := ingest.Run(ctx, cfg.Folder, opts)
		if err != nil {
			return nil, err
		}
		return res.Table, nil
	}

	// Cache keys are absolute so runs from different directories agree.
	folder, err := filepath.Abs(cfg.Folder)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder: %w", err)
	}
	runID, err := st.StartRun(ctx, folder, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	opts.Cache = st
	opts.RunID = runID
	res, err := ingest.Run(ctx, folder, opts)
	if err != nil {
		return nil, err
	}
	if err := st.FinishRun(ctx, runID, time.Now(), res.Files, res.Cached); err != nil {
		logErrf("failed to record run: %v\n", err)
	}
	seen := make([]string, 0, res.Table.Len())
	for _, r := range res.Table.Records() {
		seen = append(seen, r.Path)
	}
	if _, err := st.Prune(ctx, folder, runID, seen); err != nil {
		logErrf("failed to prune cache: %v\n", err)
	}
	return res.Table, nil
}

func openCache(cfg model.Config) (*store.Store, error) {
	if !cfg.Cache {
		return nil, nil
	}
	st, err := store.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func resolveCachePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return config.DefaultDBPath()
	}
	return config.ExpandHome(path)
}

func printReport(w io.Writer, report stats.Report, cfg model.Config) error {
	fig := plot.NewFigure(report.Comparison, report.Cameras)
	if err := plot.RenderText(w, fig, 0, cfg.PlotHeight, false); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if err := stats.RenderGroupTable(w, report.Comparison); err != nil {
		return err
	}
	if err := stats.RenderFrameTable(w, report.Table); err != nil {
		return err
	}
	if report.Excluded > 0 {
		if _, err := fmt.Fprintf(w, "%d frame(s) excluded by filter %q.\n", report.Excluded, cfg.Filter); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(cfg model.Config, report stats.Report) error {
	fig := plot.NewFigure(report.Comparison, report.Cameras)
	if fig.Empty() {
		logErrf("Skipping %s: no matched groups to plot\n", cfg.PNGPath)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.PNGPath), 0o755); err != nil {
		return fmt.Errorf("failed to create PNG directory: %w", err)
	}
	file, err := os.Create(cfg.PNGPath)
	if err != nil {
		return fmt.Errorf("failed to create PNG: %w", err)
	}
	if err := plot.RenderPNG(file, fig, cfg.PNGWidth, cfg.PNGHeight); err != nil {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close; the render error is reported.
			_ = cerr
		}
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	logErrf("Wrote %s\n", cfg.PNGPath)
	return nil
}

// progressPrinter renders ingest progress on stderr: a bar when stderr is a
// terminal, otherwise one line per file.
type progressPrinter struct {
	w   *os.File
	tty bool
	bar progress.Model
}

func newProgressPrinter(w *os.File) *progressPrinter {
	return &progressPrinter{
		w:   w,
		tty: term.IsTerminal(int(w.Fd())),
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressBarWidth)),
	}
}

func (p *progressPrinter) update(done, total int, path string) {
	if !p.tty {
		logErrf("file %d/%d %s\n", done, total, path)
		return
	}
	percent := float64(done) / float64(total)
	logErrf("\r%s %d/%d", p.bar.ViewAs(percent), done, total)
	if done == total {
		logErrln()
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <folder-path>",
		Short: "Print per-frame statistics as csv, json, or yaml",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", string(export.FormatCSV), "output format: csv, json, or yaml")
	cmd.Flags().StringSliceVar(&exportExts, "ext", ingest.DefaultExtensions, "FITS file extensions to read")
	cmd.Flags().Float64Var(&exportCrop, "crop", stats.DefaultCropFraction, "fraction of width/height removed from each border (0-0.5)")
	cmd.Flags().StringVar(&exportFilter, "filter", "", "boolean expression selecting frames")
	cmd.Flags().BoolVar(&exportCache, "cache", false, "reuse statistics of unchanged files from the cache database")
	cmd.Flags().StringVar(&exportCachePath, "cache-path", "", "cache database path (default: XDG data dir)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringSliceConfig(cmd, "ext", &exportExts, fileCfg.Ingest.Extensions)
	applyFloatConfig(cmd, "crop", &exportCrop, fileCfg.Ingest.Crop)
	applyStringConfig(cmd, "filter", &exportFilter, fileCfg.Ingest.Filter)
	applyBoolConfig(cmd, "cache", &exportCache, fileCfg.Cache.Enabled)
	applyStringConfig(cmd, "cache-path", &exportCachePath, fileCfg.Cache.Path)

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	cfg := model.Config{
		Folder:       args[0],
		Extensions:   ingest.NormalizeExtensions(exportExts),
		CropFraction: exportCrop,
		ErrorScale:   stats.DefaultErrorScale,
		Filter:       strings.TrimSpace(exportFilter),
		Cache:        exportCache,
		CachePath:    resolveCachePath(exportCachePath),
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	filter, err := stats.CompileFilter(cfg.Filter)
	if err != nil {
		return err
	}

	st, err := openCache(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	table, err := ingestFolder(cmd.Context(), cfg, st, nil)
	if err != nil {
		return err
	}
	table, err = filter.Apply(table)
	if err != nil {
		return err
	}
	if err := export.Write(cmd.OutOrStdout(), table, format); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent cached ingest runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	cmd.Flags().IntVar(&runsLimit, "limit", defaultRunsLimit, "number of runs to list")
	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	path := config.DefaultDBPath()
	if fileCfg.Cache.Path != nil {
		path = resolveCachePath(*fileCfg.Cache.Path)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logErrln("No runs recorded. Enable the cache with --cache.")
			return nil
		}
		return fmt.Errorf("failed to stat db: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	runs, err := st.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return printRuns(cmd.OutOrStdout(), runs, time.Now())
}

func printRuns(w io.Writer, runs []store.Run, now time.Time) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	for _, r := range runs {
		status := "unfinished"
		if !r.EndedAt.IsZero() {
			status = fmt.Sprintf("%d files, %d cached, took %s", r.Files, r.Cached, r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond))
		}
		if _, err := fmt.Fprintf(w, "%s  %-14s  %s  (%s)\n", r.ID[:8], humanize.RelTime(r.StartedAt, now, "ago", "from now"), r.Folder, status); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if len(value) == 0 {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# darkcmp configuration
# Uncomment a value to enable it. CLI flags override config values.

[ingest]
# extensions = [%s]   # FITS file extensions
# crop = %.2f                          # Fraction removed from each border (0-0.5)
# filter = 'Camera == "ZWO ASI432MM"'  # Frame selection expression

[plot]
# error-scale = %.1f                   # Divisor for group standard deviation
# height = 20                          # Text plot rows (0 fits the terminal)
# png-width = %d
# png-height = %d

[cache]
# enabled = false                      # Reuse statistics of unchanged files
# path = %q
`,
		quotedList(ingest.DefaultExtensions),
		stats.DefaultCropFraction,
		stats.DefaultErrorScale,
		plot.DefaultPNGWidth,
		plot.DefaultPNGHeight,
		config.DefaultDBPath(),
	)
}

func quotedList(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(parts, ", ")
}

func validateConfig(cfg model.Config) error {
	if strings.TrimSpace(cfg.Folder) == "" {
		return fmt.Errorf("folder path must not be empty")
	}
	if cfg.CropFraction < 0 || cfg.CropFraction >= 0.5 {
		return fmt.Errorf("--crop must be >= 0 and < 0.5")
	}
	if cfg.ErrorScale <= 0 {
		return fmt.Errorf("--error-scale must be > 0")
	}
	if cfg.PNGWidth < 0 || cfg.PNGHeight < 0 {
		return fmt.Errorf("--png-width and --png-height must be >= 0")
	}
	if cfg.PlotHeight < 0 {
		return fmt.Errorf("--height must be >= 0")
	}
	if _, err := stats.CompileFilter(cfg.Filter); err != nil {
		return err
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
