// Command replay feeds a recorded GPX track through a ride session, as if a
// device were riding it, and records the resulting ride.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-bikecomp/internal/config"
	"backend-bikecomp/internal/ride"
	"backend-bikecomp/internal/server"
	"backend-bikecomp/internal/settings"
	"backend-bikecomp/internal/source"
	"backend-bikecomp/internal/store"

	"github.com/google/uuid"
)

var errNoTrack = errors.New("-gpx is required")

type replayDeps struct {
	loadConfig func() config.Config
	openStore  func(context.Context, config.Config) (store.Store, error)
	notify     func(chan<- os.Signal, ...os.Signal)
	out        io.Writer
}

func defaultDeps() replayDeps {
	return replayDeps{
		loadConfig: config.Load,
		openStore:  store.Open,
		notify:     signal.Notify,
		out:        os.Stdout,
	}
}

func main() {
	if err := run(context.Background(), os.Args[1:], defaultDeps()); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

func run(ctx context.Context, args []string, deps replayDeps) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	fs.SetOutput(deps.out)
	path := fs.String("gpx", "", "GPX file to replay")
	speedup := fs.Float64("speedup", 1, "replay speed relative to the recording")
	verbose := fs.Bool("v", false, "print every live update")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errNoTrack
	}
	if *speedup <= 0 {
		*speedup = 1
	}

	replay, err := source.LoadGPX(*path, *speedup)
	if err != nil {
		return fmt.Errorf("load track: %w", err)
	}

	cfg := deps.loadConfig()
	st, err := deps.openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	opts := ride.Options{
		Accumulator:  server.AccumulatorConfig(cfg),
		TickInterval: time.Duration(float64(time.Second) / *speedup),
	}
	if *verbose {
		opts.Listener = func(u ride.Update) {
			fmt.Fprintf(deps.out, "%5ds %7.3f km %6.1f km/h\n", u.DurationSec, u.DistanceKm, u.SpeedKmH)
		}
	}

	mileage := settings.NewService(st, cfg.DefaultMileage)
	sess := ride.NewSession(uuid.NewString(), replay, st, mileage.Mileage, opts)
	if err := sess.Start(); err != nil {
		return fmt.Errorf("start ride: %w", err)
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sess.Exhausted():
	case <-signals:
		log.Printf("interrupted, stopping ride")
	case <-ctx.Done():
	}

	result, err := sess.Stop(context.Background())
	if err != nil {
		return fmt.Errorf("record ride: %w", err)
	}
	printResult(deps.out, len(replay.Samples()), result)
	return nil
}

func printResult(w io.Writer, points int, result ride.StopResult) {
	final := result.Final
	fmt.Fprintf(w, "replayed %d points: %.3f km in %ds, avg %.1f km/h, max %.1f km/h\n",
		points, final.DistanceKm, final.DurationSec, final.AvgSpeedKmH, final.MaxSpeedKmH)
	if !result.Saved {
		fmt.Fprintln(w, "ride too short, not recorded")
		return
	}
	fmt.Fprintf(w, "recorded ride %d, fuel used %.3f l\n", result.Ride.ID, result.Ride.FuelUsed)
}
