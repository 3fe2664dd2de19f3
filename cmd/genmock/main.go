// Command genmock writes a synthetic forecast and observation archive for
// the configured systems, dates and lead times, so that the count, verify
// and report commands can be exercised without real model output.
//
// Usage:
//
//	DATA_ROOT=/tmp/rainverif go run ./cmd/genmock -start 20211201 -end 20211214 -grid 12x16
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/couchcryptid/rainfall-verification/internal/config"
	"github.com/couchcryptid/rainfall-verification/internal/mockdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var ov config.Overrides
	ov.Register(flag.CommandLine)
	grid := flag.String("grid", "8x10", "grid size as <lat points>x<lon points>; every point carries a gauge")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := ov.Apply(cfg); err != nil {
		return err
	}

	opts := mockdata.DefaultOptions()
	if opts.NLat, opts.NLon, err = parseGrid(*grid); err != nil {
		return err
	}
	opts.Systems = cfg.Systems
	opts.BaseTimes = cfg.BaseTimes()
	opts.LeadTimes = cfg.LeadTimes()
	opts.Accumulation = cfg.Accumulation
	opts.Seed = *seed

	gen, err := mockdata.New(opts)
	if err != nil {
		return err
	}
	fcDir, obsDir := cfg.Path(cfg.FCDir), cfg.Path(cfg.OBSDir)
	w, err := gen.Write(fcDir, obsDir)
	if err != nil {
		return err
	}
	log.Printf("forecasts: %d files under %s", w.Forecasts, fcDir)
	log.Printf("observations: %d files under %s (%d stations each)", w.Observations, obsDir, opts.NLat*opts.NLon)
	return nil
}

func parseGrid(s string) (int, int, error) {
	lat, lon, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("grid %q: want <lat>x<lon>", s)
	}
	nlat, err := strconv.Atoi(lat)
	if err != nil {
		return 0, 0, fmt.Errorf("grid %q: %w", s, err)
	}
	nlon, err := strconv.Atoi(lon)
	if err != nil {
		return 0, 0, fmt.Errorf("grid %q: %w", s, err)
	}
	return nlat, nlon, nil
}
