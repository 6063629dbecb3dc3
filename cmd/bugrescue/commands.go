package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/BugRescue/BugRescue/internal/backup"
	"github.com/BugRescue/BugRescue/internal/config"
	"github.com/BugRescue/BugRescue/internal/domain"
	"github.com/BugRescue/BugRescue/internal/history"
	"github.com/BugRescue/BugRescue/internal/notify"
	"github.com/BugRescue/BugRescue/internal/provider"
	"github.com/BugRescue/BugRescue/internal/report"
	"github.com/BugRescue/BugRescue/internal/rescue"
	"github.com/BugRescue/BugRescue/internal/runner"
	"github.com/BugRescue/BugRescue/internal/watch"
	"github.com/BugRescue/BugRescue/tui"
	"github.com/BugRescue/BugRescue/web/api"
)

var (
	rescueDryRun      bool
	rescueProvider    string
	rescueKey         string
	rescueModel       string
	rescueMaxAttempts int
	listLimit         int
	reportRunID       string
	restoreRoot       string
	watchSchedule     string
	servePort         int
	serveWatch        string
)

func init() {
	// rescue command
	rescueCmd := &cobra.Command{
		Use:   "rescue PATH",
		Short: "Run, diagnose and fix the files under PATH",
		Args:  cobra.ExactArgs(1),
		RunE:  runRescue,
	}
	rescueCmd.Flags().BoolVar(&rescueDryRun, "dry-run", false, "show proposed fixes without writing them")
	rescueCmd.Flags().StringVar(&rescueProvider, "provider", "", "AI backend: ollama, openai, anthropic, gemini")
	rescueCmd.Flags().StringVar(&rescueKey, "key", "", "API key for the selected backend")
	rescueCmd.Flags().StringVar(&rescueModel, "model", "", "model name")
	rescueCmd.Flags().IntVar(&rescueMaxAttempts, "max-attempts", 0, "fix attempts per file")
	rootCmd.AddCommand(rescueCmd)

	// report command
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Re-render the HTML report for a recorded run",
		RunE:  runReport,
	}
	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run ID (defaults to the latest run)")
	rootCmd.AddCommand(reportCmd)

	// restore command
	restoreCmd := &cobra.Command{
		Use:   "restore BACKUP_DIR",
		Short: "Copy backed-up originals over the patched files",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestore,
	}
	restoreCmd.Flags().StringVar(&restoreRoot, "root", ".", "project root the backups are restored into")
	rootCmd.AddCommand(restoreCmd)

	// list command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded rescue runs",
		RunE:  runList,
	}
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "number of runs to show")
	rootCmd.AddCommand(listCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch PATH",
		Short: "Rescue PATH on every file change",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron expression for additional scheduled sweeps")
	watchCmd.Flags().BoolVar(&rescueDryRun, "dry-run", false, "show proposed fixes without writing them")
	rootCmd.AddCommand(watchCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the status web server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "also watch this project and stream live rescue events")
	rootCmd.AddCommand(serveCmd)

	// tui command
	tuiCmd := &cobra.Command{
		Use:   "tui PATH",
		Short: "Rescue PATH with a live dashboard",
		Args:  cobra.ExactArgs(1),
		RunE:  runTUI,
	}
	tuiCmd.Flags().BoolVar(&rescueDryRun, "dry-run", false, "show proposed fixes without writing them")
	tuiCmd.Flags().StringVar(&rescueProvider, "provider", "", "AI backend: ollama, openai, anthropic, gemini")
	tuiCmd.Flags().StringVar(&rescueModel, "model", "", "model name")
	rootCmd.AddCommand(tuiCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// providerConfig merges flags over the config file
func providerConfig(cfg *config.Config) domain.ProviderConfig {
	pc := domain.ProviderConfig{
		Name:   domain.ProviderName(cfg.Provider.Name),
		APIKey: cfg.Provider.APIKey,
		Model:  cfg.Provider.Model,
	}
	if rescueProvider != "" {
		pc.Name = domain.ProviderName(rescueProvider)
		if rescueModel == "" {
			pc.Model = "" // let the backend pick its default
		}
	}
	if rescueKey != "" {
		pc.APIKey = rescueKey
	}
	if rescueModel != "" {
		pc.Model = rescueModel
	}
	return pc
}

// buildScanner assembles the full rescue pipeline for one project root
func buildScanner(cfg *config.Config, root string, onEvent rescue.EventFunc) (*rescue.Scanner, *backup.Manager, error) {
	overrides, err := config.LoadProjectOverrides(root)
	if err != nil {
		return nil, nil, err
	}

	pc := providerConfig(cfg)
	popts := provider.Options{
		APIKey:  pc.APIKey,
		Model:   pc.Model,
		Timeout: time.Duration(cfg.Provider.TimeoutSecs) * time.Second,
	}
	if pc.Name == domain.ProviderOllama {
		popts.BaseURL = cfg.Provider.OllamaURL
	}
	prov, err := provider.New(pc, popts)
	if err != nil {
		return nil, nil, err
	}

	run := runner.New(
		runner.WithTimeout(time.Duration(cfg.General.RunTimeoutSecs)*time.Second),
		runner.WithCommandOverrides(overrides.Commands),
		runner.WithMaxOutput(cfg.Provider.MaxOutputBytes),
	)

	backupRoot := root
	if info, statErr := os.Stat(root); statErr == nil && !info.IsDir() {
		backupRoot = filepath.Dir(root)
	}
	backups := backup.NewManager(backupRoot, cfg.General.BackupDir)

	maxAttempts := cfg.General.MaxAttempts
	if overrides.MaxAttempts > 0 {
		maxAttempts = overrides.MaxAttempts
	}
	if rescueMaxAttempts > 0 {
		maxAttempts = rescueMaxAttempts
	}

	controller := rescue.NewController(rescue.ControllerConfig{
		Runner:        run,
		Provider:      prov,
		Backups:       backups,
		MaxAttempts:   maxAttempts,
		DryRun:        rescueDryRun,
		MaxErrorBytes: cfg.Provider.MaxErrorBytes,
		OnEvent:       onEvent,
	})

	scanner := rescue.NewScanner(rescue.ScannerConfig{
		Controller: controller,
		Overrides:  overrides,
		Root:       root,
		Provider:   pc.Name,
		Model:      pc.Model,
		DryRun:     rescueDryRun,
	})
	return scanner, backups, nil
}

// finishRun writes the report, records history and sends notifications
func finishRun(cfg *config.Config, summary *domain.RunSummary, root string) (string, error) {
	reportRoot := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		reportRoot = filepath.Dir(root)
	}
	reportPath, err := report.Write(summary, reportRoot)
	if err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}

	store, err := history.New(cfg.General.HistoryPath)
	if err == nil {
		if saveErr := store.SaveRun(summary); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", saveErr)
		}
		store.Close()
	} else {
		fmt.Fprintf(os.Stderr, "warning: history unavailable: %v\n", err)
	}

	notifier := buildNotifier(cfg)
	if err := notifier.Send(notify.ForRun(summary, reportPath)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: notification failed: %v\n", err)
	}
	return reportPath, nil
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

func runRescue(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := args[0]

	banner := color.New(color.FgCyan, color.Bold)
	banner.Println("BugRescue")
	if rescueDryRun {
		color.Yellow("dry run: no files will be modified")
	}

	scanner, backups, err := buildScanner(cfg, root, printEvent)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	reportPath, err := finishRun(cfg, summary, root)
	if err != nil {
		return err
	}

	fmt.Println()
	color.Green("passed: %d", summary.Passed())
	if summary.Failed() > 0 {
		color.Red("failed: %d", summary.Failed())
	}
	if backups.Count() > 0 {
		fmt.Printf("backups: %s\n", backups.Dir())
	}
	fmt.Printf("report:  %s\n", reportPath)

	if summary.Failed() > 0 {
		return fmt.Errorf("%d file(s) could not be fixed", summary.Failed())
	}
	return nil
}

// printEvent writes a progress line per loop transition
func printEvent(e rescue.Event) {
	switch e.State {
	case domain.StateRunning:
		fmt.Printf("  %s [attempt %d] running\n", e.Path, e.Attempt)
	case domain.StateAnalyzing:
		color.Yellow("  %s [attempt %d] crashed, asking for a fix", e.Path, e.Attempt)
	case domain.StatePatching:
		fmt.Printf("  %s [attempt %d] applying fix\n", e.Path, e.Attempt)
	case domain.StateSuccess:
		color.Green("✓ %s %s", e.Path, e.Message)
	case domain.StateExhausted:
		color.Red("✗ %s %s", e.Path, e.Message)
	case domain.StateDetectionFailed:
		color.Red("✗ %s %s", e.Path, e.Message)
	}
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.New(cfg.General.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	id := reportRunID
	if id == "" {
		id, err = store.LatestRunID()
		if err != nil {
			return fmt.Errorf("no recorded runs")
		}
	}

	summary, err := store.GetRun(id)
	if err != nil {
		return err
	}

	path, err := report.Write(summary, ".")
	if err != nil {
		return err
	}
	fmt.Printf("report: %s\n", path)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	count, err := backup.RestoreDir(args[0], restoreRoot)
	if err != nil {
		return err
	}
	color.Green("restored %d file(s)", count)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := history.New(cfg.General.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(listLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tROOT\tPROVIDER\tPASSED\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04"), r.Root, r.Provider, r.Passed, r.Failed)
	}
	return w.Flush()
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := func() error {
		scanner, _, err := buildScanner(cfg, root, printEvent)
		if err != nil {
			return err
		}
		summary, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}
		if _, err := finishRun(cfg, summary, root); err != nil {
			return err
		}
		color.Green("sweep done: %d passed, %d failed", summary.Passed(), summary.Failed())
		return nil
	}

	watcher, err := watch.NewWatcher(root, func(paths []string) {
		color.Cyan("change detected (%d file(s)), rescuing...", len(paths))
		if err := sweep(); err != nil {
			fmt.Fprintf(os.Stderr, "sweep failed: %v\n", err)
		}
	})
	if err != nil {
		return err
	}
	defer watcher.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		watcher.Start(gctx)
		<-gctx.Done()
		return nil
	})

	if watchSchedule != "" {
		sched, err := watch.NewSchedule(watchSchedule)
		if err != nil {
			return fmt.Errorf("invalid schedule: %w", err)
		}
		g.Go(func() error {
			sched.Start(gctx, sweep)
			return nil
		})
		fmt.Printf("watching %s (scheduled sweeps: %s)\n", root, watchSchedule)
	} else {
		fmt.Printf("watching %s\n", root)
	}

	return g.Wait()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Web.Port = servePort
	}

	store, err := history.New(cfg.General.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := api.NewServer(store, addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	if serveWatch != "" {
		sweep := func() error {
			scanner, _, err := buildScanner(cfg, serveWatch, func(e rescue.Event) {
				printEvent(e)
				srv.Publish(e)
			})
			if err != nil {
				return err
			}
			summary, err := scanner.Scan(gctx)
			if err != nil {
				return err
			}
			_, err = finishRun(cfg, summary, serveWatch)
			return err
		}

		watcher, err := watch.NewWatcher(serveWatch, func(paths []string) {
			color.Cyan("change detected (%d file(s)), rescuing...", len(paths))
			if err := sweep(); err != nil {
				fmt.Fprintf(os.Stderr, "sweep failed: %v\n", err)
			}
		})
		if err != nil {
			return err
		}
		defer watcher.Stop()
		watcher.Start(gctx)
		fmt.Printf("watching %s\n", serveWatch)
	}

	fmt.Printf("status server on http://%s\n", addr)
	err = g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root := args[0]

	var program *tea.Program
	scanner, _, err := buildScanner(cfg, root, func(e rescue.Event) {
		if program != nil {
			program.Send(tui.EventMsg(e))
		}
	})
	if err != nil {
		return err
	}

	targets, err := scanner.CollectTargets()
	if err != nil {
		return err
	}

	pc := providerConfig(cfg)
	model := tui.NewModel(tui.ModelConfig{
		Root:     root,
		Provider: string(pc.Name),
		DryRun:   rescueDryRun,
		Targets:  targets,
	})
	program = tea.NewProgram(model, tea.WithAltScreen())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		s, scanErr := scanner.Scan(scanCtx)
		if scanErr != nil {
			program.Send(tui.DoneMsg{})
			return
		}
		program.Send(tui.DoneMsg{Summary: s})
	}()

	final, err := program.Run()
	// Quitting the dashboard ends the run; no patching continues behind it
	cancel()
	if err != nil {
		return err
	}

	// The summary travels through the DoneMsg only, so reading it off
	// the final model is race-free
	var summary *domain.RunSummary
	if m, ok := final.(tui.Model); ok {
		summary = m.Summary()
	}
	if summary != nil {
		if _, err := finishRun(cfg, summary, root); err != nil {
			return err
		}
		if summary.Failed() > 0 {
			return fmt.Errorf("%d file(s) could not be fixed", summary.Failed())
		}
	}
	return nil
}
