// Command queryelev is the thin CLI driver for ground-surface elevation
// queries: parse options, run the query, translate any failure into an
// exit code, never implement query semantics itself.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"

	"github.com/equinor/geomodelgrids-query/internal/chandle"
)

type opts struct {
	modelFilenames []string
	inputCRS       string
	pointsFile     string
}

func parseAsListOfStrings(fallback []string, value string) []string {
	if len(value) == 0 {
		return fallback
	}
	items := strings.Split(value, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseopts() opts {
	help := getopt.BoolLong("help", 0, "print this help text")

	o := opts{
		modelFilenames: parseAsListOfStrings(nil, os.Getenv("GEOMODELGRIDS_MODELS")),
		inputCRS:       os.Getenv("GEOMODELGRIDS_INPUT_CRS"),
		pointsFile:     os.Getenv("GEOMODELGRIDS_POINTS"),
	}
	if o.inputCRS == "" {
		o.inputCRS = "EPSG:4326"
	}

	getopt.FlagLong(&o.modelFilenames, "models", 0,
		"Comma-separated list of model filenames, in priority order.\n"+
			"Can also be set by environment variable 'GEOMODELGRIDS_MODELS'", "string")
	getopt.FlagLong(&o.inputCRS, "crs", 0,
		"CRS of the points in the points file. Defaults to EPSG:4326.\n"+
			"Can also be set by environment variable 'GEOMODELGRIDS_INPUT_CRS'", "string")
	getopt.FlagLong(&o.pointsFile, "points", 0,
		"Path to a text file of whitespace-separated 'x y' point pairs, one per line.\n"+
			"Can also be set by environment variable 'GEOMODELGRIDS_POINTS'", "string")

	getopt.Parse()
	if *help {
		getopt.Usage()
		os.Exit(0)
	}
	return o
}

func run() error {
	o := parseopts()

	if len(o.modelFilenames) == 0 {
		return fmt.Errorf("at least one --models filename is required")
	}
	if o.pointsFile == "" {
		return fmt.Errorf("--points is required")
	}

	f, err := os.Open(o.pointsFile)
	if err != nil {
		return fmt.Errorf("open points file: %w", err)
	}
	defer f.Close()

	handle := chandle.Create()
	defer chandle.Destroy(handle)

	if status := chandle.Initialize(handle, o.modelFilenames, nil, o.inputCRS); status != chandle.StatusOK {
		return fmt.Errorf("initialize failed with status %d", status)
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return fmt.Errorf("malformed point line: %q", line)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("parse x: %w", err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("parse y: %w", err)
		}

		elev := chandle.QueryElevation(handle, x, y)
		fmt.Printf("%.6f %.6f %.6f\n", x, y, elev)
	}
	return scanner.Err()
}

// Exit codes: 0 on success, 1 on a recognized error, 2 on anything that
// escaped as a panic instead.
func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "queryelev: unexpected failure:", r)
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "queryelev:", err)
		os.Exit(1)
	}
}
