// Command sensorsim drives a simulated LIDAR and differential-drive base
// around a demo room, records the session to SQLite and optionally renders
// the scan data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sensorsim/internal/sensors/lidar"
	"github.com/banshee-data/sensorsim/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to a JSON simulation config (default: built-in defaults)")
	dbFile      = flag.String("db", "sensorsim.db", "Path to the SQLite recording database (empty disables recording)")
	duration    = flag.Duration("duration", 0, "Simulated duration (default: from config, 5s)")
	tick        = flag.Duration("tick", 0, "Scheduler tick interval (default: from config, 10ms)")
	realtime    = flag.Bool("realtime", false, "Run against the wall clock instead of stepping a simulated clock")
	plotFile    = flag.String("plot", "", "Write a top-down PNG of the lidar debug points to this path")
	htmlFile    = flag.String("html", "", "Write an HTML chart of the last scan to this path")
	cmdVel      = flag.Float64("cmd-vel", 20, "Forward velocity command in cm/s")
	cmdYaw      = flag.Float64("cmd-yaw", 10, "Yaw rate command in deg/s")
	verbose     = flag.Bool("v", false, "Enable lidar diagnostic logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	writers := lidar.LogWriters{Ops: os.Stderr}
	if *verbose {
		writers.Diag = os.Stderr
	}
	lidar.SetLogWriters(writers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := run(ctx, options{
		ConfigPath: *configFile,
		DBPath:     *dbFile,
		PlotPath:   *plotFile,
		HTMLPath:   *htmlFile,
		Duration:   *duration,
		Tick:       *tick,
		Realtime:   *realtime,
		CmdVel:     *cmdVel,
		CmdYaw:     *cmdYaw,
	})
	if err != nil {
		log.Fatalf("sensorsim: %v", err)
	}
	printSummary(os.Stdout, s)
}
