package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/schedlab/kairos/funcreg"
	"github.com/schedlab/kairos/sched"
	"github.com/schedlab/kairos/scheduling"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a demonstration scheduler workload.",
	Long: `demo spawns a group of owners that register callbacks and ` +
		`schedule them with randomized delays, drives the scheduler in near ` +
		`real time, and tears everything down on interrupt, checking that ` +
		`every callback handle was released exactly once.`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Int("owners", 4, "number of concurrent owners")
	demoCmd.Flags().Int("events", 8, "events each owner schedules up front")
	demoCmd.Flags().Duration("duration", 30*time.Second,
		"how long to run, 0 runs until interrupted")
	demoCmd.Flags().Duration("tick", 10*time.Millisecond,
		"tick driver resolution")
	demoCmd.Flags().String("output", "",
		"recorder SQLite file, without extension")
	demoCmd.Flags().String("clickhouse", os.Getenv("KAIROS_CLICKHOUSE"),
		"record to a ClickHouse server, clickhouse://host:port/db")
	demoCmd.Flags().Int64("seed", 0, "pin the delay randomizer")
	demoCmd.Flags().Bool("monitor", true, "serve the monitoring dashboard")
	demoCmd.Flags().Int("port", 0, "monitoring port, 0 picks a random one")
	demoCmd.Flags().Bool("open", false,
		"open the dashboard in a browser, requires --port")
}

type demoOwner string

func (o demoOwner) Name() string { return string(o) }

func runDemo(cmd *cobra.Command, _ []string) error {
	owners, _ := cmd.Flags().GetInt("owners")
	events, _ := cmd.Flags().GetInt("events")
	duration, _ := cmd.Flags().GetDuration("duration")
	tick, _ := cmd.Flags().GetDuration("tick")
	output, _ := cmd.Flags().GetString("output")
	clickHouse, _ := cmd.Flags().GetString("clickhouse")
	monitorOn, _ := cmd.Flags().GetBool("monitor")
	port, _ := cmd.Flags().GetInt("port")
	open, _ := cmd.Flags().GetBool("open")

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if duration > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, duration)
		defer timeoutCancel()
	}

	table := funcreg.NewTable()

	builder := scheduling.MakeBuilder().
		WithInvoker(table).
		WithTickResolution(tick)

	if output != "" {
		builder = builder.WithRecorderPath(output)
	}

	if clickHouse != "" {
		builder = builder.WithClickHouse(clickHouse)
	}

	if monitorOn {
		builder = builder.WithMonitor()
		if port > 0 {
			builder = builder.WithMonitorPort(port)
		}
	}

	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		builder = builder.WithSeed(seed)
	}

	system := builder.Build()

	if tracer := system.GetDBTracer(); tracer != nil {
		tracer.EnableTracing()
	}

	if open {
		openDashboard(port)
	}

	var fired atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return system.GetTickDriver().Run(gctx)
	})

	for i := 0; i < owners; i++ {
		owner := demoOwner(fmt.Sprintf("owner%02d", i))
		g.Go(func() error {
			return runOwner(gctx, system, table, owner, events, &fired)
		})
	}

	stats := cron.New()
	_, err := stats.AddFunc("@every 5s", func() {
		log.Info().
			Int("pending", system.GetRegistry().Pending()).
			Uint64("fired", fired.Load()).
			Int("refs", table.Len()).
			Msg("scheduler stats")

		if recorder := system.GetRecorder(); recorder != nil {
			recorder.Flush()
		}
	})
	if err != nil {
		return err
	}
	stats.Start()

	log.Info().
		Int("owners", owners).
		Int("events", events).
		Msg("demo running, interrupt to stop")

	err = g.Wait()
	if err != nil &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	stats.Stop()

	if tracer := system.GetDBTracer(); tracer != nil {
		tracer.StopTracingAtCurrentTime()
	}

	system.Terminate()

	if leaked := table.Len(); leaked != 0 {
		return fmt.Errorf("%d callback references leaked", leaked)
	}

	log.Info().
		Uint64("fired", fired.Load()).
		Msg("demo finished, every handle released exactly once")

	return nil
}

// runOwner schedules an initial batch of randomized events for one owner,
// then keeps one-shot events flowing until the run ends.
func runOwner(
	ctx context.Context,
	system *scheduling.System,
	table *funcreg.Table,
	owner demoOwner,
	events int,
	fired *atomic.Uint64,
) error {
	p := system.GetRegistry().NewProcessor(owner)

	cb := func(delayUsed sched.VTimeInMS, repeatsLeft int, o sched.Owner) {
		fired.Add(1)
		log.Debug().
			Str("owner", o.Name()).
			Uint64("delayMS", uint64(delayUsed)).
			Int("repeatsLeft", repeatsLeft).
			Msg("callback fired")
	}

	for j := 0; j < events; j++ {
		// repeats cycles through forever (0) and one to three executions.
		p.Schedule(table.Ref(cb), 50, 500, j%4)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Schedule(table.Ref(cb), 100, 1000, 1)
		}
	}
}

func openDashboard(port int) {
	if port == 0 {
		log.Warn().Msg("--open requires --port, skipping browser")
		return
	}

	url := fmt.Sprintf("http://localhost:%d", port)

	err := browser.OpenURL(url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("could not open browser")
	}
}
