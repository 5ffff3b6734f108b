package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/h8dma/datarecording"
	"github.com/sarchlab/h8dma/dma"
	"github.com/sarchlab/h8dma/hooking"
	"github.com/sarchlab/h8dma/monitoring"
	"github.com/sarchlab/h8dma/scenario"
	"github.com/sarchlab/h8dma/tracing"
)

type runOptions struct {
	scenario   string
	irqBase    []int
	record     string
	clickhouse string
	monitor    bool
	port       int
	browser    bool
	save       string
	restore    string
	verbose    bool
	summary    bool
}

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario.",
	Long: "`run` executes the steps of a scenario file and reports the " +
		"number of units moved. Expectation failures end with an error.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		opts.scenario = args[0]

		return runScenario(commandContext(cmd), opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.String("record", "", "Record transfers into <path>.sqlite3")
	f.String("clickhouse", "", "Record transfers into the ClickHouse server at this address")
	f.Bool("monitor", false, "Serve the monitoring API and keep serving after the run until interrupted")
	f.Int("port", 0, "Port of the monitoring server, random if 0")
	f.Bool("browser", false, "Open the monitor in a browser")
	f.String("save", "", "Write a checkpoint to this file after the run")
	f.String("restore", "", "Restore a checkpoint from this file before the run")
	f.BoolP("verbose", "v", false, "Log every register access and transfer event")
	f.Bool("summary", false, "Print transfer statistics after the run")
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	f := cmd.Flags()
	opts := runOptions{}

	opts.record, _ = f.GetString("record")
	opts.clickhouse, _ = f.GetString("clickhouse")
	opts.monitor, _ = f.GetBool("monitor")
	opts.port, _ = f.GetInt("port")
	opts.browser, _ = f.GetBool("browser")
	opts.save, _ = f.GetString("save")
	opts.restore, _ = f.GetString("restore")
	opts.verbose, _ = f.GetBool("verbose")
	opts.summary, _ = f.GetBool("summary")

	if !f.Changed("record") {
		opts.record = os.Getenv(envRecord)
	}

	if !f.Changed("port") {
		port, err := envInt(envMonitorPort)
		if err != nil {
			return opts, err
		}

		opts.port = port
	}

	bases, err := parseIRQBase(os.Getenv(envIRQBase))
	if err != nil {
		return opts, err
	}

	opts.irqBase = bases

	return opts, nil
}

type statTracers struct {
	overall   *tracing.TransferStatsTracer
	byChannel *tracing.TransferStatsTracer
	byMode    *tracing.TransferStatsTracer
}

func newStatTracers(clock tracing.TimeTeller) statTracers {
	stats := func(groupBy tracing.GroupBy) *tracing.TransferStatsTracer {
		return tracing.NewTransferStatsTracer(clock, dma.IsTransferTask, groupBy).
			RefillOn(dma.StepReload)
	}

	return statTracers{
		overall:   stats(tracing.OneGroup),
		byChannel: stats(tracing.ByWhere),
		byMode:    stats(tracing.ByWhat),
	}
}

func runScenario(ctx context.Context, opts runOptions, out io.Writer) error {
	s, err := scenario.Load(opts.scenario)
	if err != nil {
		return err
	}

	if len(s.Controller.IRQBase) == 0 {
		s.Controller.IRQBase = opts.irqBase
	}

	sys := scenario.NewSystem(s.Controller)

	if opts.restore != "" {
		if err := restoreCheckpoint(sys, opts.restore); err != nil {
			return err
		}
	}

	if opts.verbose {
		attachLogHook(sys, log.New(os.Stderr, "", 0))
	}

	transfers := tracing.NewInMemoryTracer(sys.Bus, dma.IsTransferTask)
	stats := newStatTracers(sys.Bus)
	tracers := []tracing.Tracer{
		transfers, stats.overall, stats.byChannel, stats.byMode,
	}

	recorder, err := openRecorder(opts)
	if err != nil {
		return err
	}

	if recorder != nil {
		dbTracer := tracing.NewDBTracer(sys.Bus, recorder)
		tracers = append(tracers, dbTracer)

		defer func() {
			dbTracer.Terminate()
			if err := recorder.Close(); err != nil {
				log.Printf("closing recorder: %v", err)
			}
		}()
	}

	for _, d := range sys.Controller.Domains() {
		tracing.CollectTrace(d, tracers...)
	}

	var lock sync.Mutex
	runner := &scenario.Runner{
		System:     sys,
		Lock:       &lock,
		KeepMemory: opts.restore != "",
	}

	var (
		monitor *monitoring.Monitor
		bar     *monitoring.ProgressBar
	)
	if opts.monitor {
		monitor, err = startMonitor(opts, sys, transfers, &lock)
		if err != nil {
			return err
		}
		defer monitor.StopServer()

		bar = monitor.CreateProgressBar(s.Name, len(s.Steps))
		runner.AfterStep = func(_ int, step scenario.Step, units int) {
			bar.StepDone(step.Kind(), units)
		}
	}

	runErr := runner.Run(s)
	if runErr != nil && bar != nil {
		bar.Fail(runErr)
	}

	fmt.Fprintf(out, "%s: %d units in %d cycles, %d interrupts\n",
		s.Name, sys.Bus.UnitsMoved(), sys.Bus.CurrentTime(), sys.Latch.Raised())

	if opts.summary {
		if err := printSummary(out, stats, sys.Bus.CurrentTime()); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	if opts.save != "" {
		if err := saveCheckpoint(sys, opts.save); err != nil {
			return err
		}
	}

	if monitor != nil {
		waitForInterrupt(ctx)
	}

	return nil
}

func attachLogHook(sys *scenario.System, logger *log.Logger) {
	hook := hooking.NewLogHook(logger)
	for _, d := range sys.Controller.Domains() {
		d.AcceptHook(hook)
	}

	sys.Bus.AcceptHook(hook)
}

func openRecorder(opts runOptions) (datarecording.DataRecorder, error) {
	switch {
	case opts.clickhouse != "":
		return datarecording.NewClickHouseRecorder(datarecording.ClickHouseOptions{
			Addr: opts.clickhouse,
		})
	case opts.record != "":
		return datarecording.New(opts.record), nil
	}

	return nil, nil
}

func startMonitor(
	opts runOptions,
	sys *scenario.System,
	transfers *tracing.InMemoryTracer,
	lock sync.Locker,
) (*monitoring.Monitor, error) {
	m := monitoring.NewMonitor(lock).
		WithPortNumber(opts.port).
		WithBrowser(opts.browser)

	for _, d := range sys.Controller.Domains() {
		m.RegisterComponent(d)
	}

	m.RegisterComponent(sys.Bus)
	m.RegisterTaskLister(transfers)
	m.RegisterStateSource(func() any {
		return sys.Controller.SaveState()
	})

	if _, err := m.StartServer(); err != nil {
		return nil, err
	}

	return m, nil
}

func printSummary(out io.Writer, stats statTracers, now tracing.VTime) error {
	all := stats.overall.Stats()
	if len(all) == 0 {
		fmt.Fprintln(out, "no transfers")
		return nil
	}

	fmt.Fprintf(out, "%d transfers, %d units (%d bytes), busy %d of %d cycles\n",
		all[0].Transfers, all[0].Units, all[0].Bytes, all[0].BusyCycles, now)

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	for _, table := range []struct {
		title  string
		tracer *tracing.TransferStatsTracer
	}{
		{"CHANNEL", stats.byChannel},
		{"MODE", stats.byMode},
	} {
		fmt.Fprintf(w, "%s\tDONE\tUNITS\tBYTES\tBUSY\tAVG\tSTEPS\n", table.title)

		for _, s := range table.tracer.Stats() {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%.1f\t%s\n",
				s.Group, s.Transfers, s.Units, s.Bytes, s.BusyCycles,
				s.AverageCycles(), formatSteps(s.Steps))
		}
	}

	return w.Flush()
}

func formatSteps(steps map[string]uint64) string {
	names := make([]string, 0, len(steps))
	for name := range steps {
		names = append(names, name)
	}

	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, steps[name]))
	}

	if len(parts) == 0 {
		return "-"
	}

	return strings.Join(parts, " ")
}

func waitForInterrupt(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(os.Stderr, "Run finished, monitor still serving. Press Ctrl+C to exit.")
	<-ctx.Done()
}
