// Command query is the thin CLI driver for multi-value point queries. It
// accepts model files, value names, squash parameters and a points file,
// calls straight into the C-handle boundary (internal/chandle), and
// writes results to stdout — no query semantics live here. It optionally
// exposes a small operational HTTP surface (health + Prometheus metrics)
// on a second port; this surface never serves point queries itself
// (remote/network query access is out of scope).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/pborman/getopt/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/equinor/geomodelgrids-query/internal/chandle"
	"github.com/equinor/geomodelgrids-query/internal/telemetry"
)

type opts struct {
	modelFilenames []string
	valueNames     []string
	inputCRS       string
	pointsFile     string
	squash         bool
	squashMinElev  float64
	metrics        bool
	metricsPort    uint32
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

func parseAsBool(fallback bool, value string) bool {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return v
}

func parseAsFloat64(fallback float64, value string) float64 {
	if len(value) == 0 {
		return fallback
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		panic(err)
	}
	return v
}

func parseAsUint32(fallback uint32, value string) uint32 {
	if len(value) == 0 {
		return fallback
	}
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		panic(err)
	}
	return uint32(v)
}

func parseopts() opts {
	help := getopt.BoolLong("help", 0, "print this help text")

	o := opts{
		modelFilenames: parseAsListOfStrings(nil, os.Getenv("GEOMODELGRIDS_MODELS")),
		valueNames:     parseAsListOfStrings(nil, os.Getenv("GEOMODELGRIDS_VALUES")),
		inputCRS:       os.Getenv("GEOMODELGRIDS_INPUT_CRS"),
		pointsFile:     os.Getenv("GEOMODELGRIDS_POINTS"),
		squash:         parseAsBool(false, os.Getenv("GEOMODELGRIDS_SQUASH")),
		squashMinElev:  parseAsFloat64(0, os.Getenv("GEOMODELGRIDS_SQUASH_MIN_ELEV")),
		metrics:        parseAsBool(false, os.Getenv("GEOMODELGRIDS_METRICS")),
		metricsPort:    parseAsUint32(8081, os.Getenv("GEOMODELGRIDS_METRICS_PORT")),
	}
	if o.inputCRS == "" {
		o.inputCRS = "EPSG:4326"
	}

	getopt.FlagLong(&o.modelFilenames, "models", 0,
		"Comma-separated list of model filenames, in priority order.", "string")
	getopt.FlagLong(&o.valueNames, "values", 0,
		"Comma-separated list of value names to query, in caller order.", "string")
	getopt.FlagLong(&o.inputCRS, "crs", 0,
		"CRS of the points in the points file. Defaults to EPSG:4326.", "string")
	getopt.FlagLong(&o.pointsFile, "points", 0,
		"Path to a text file of whitespace-separated 'x y z' point triples, one per line.", "string")
	getopt.FlagLong(&o.squash, "squash", 0,
		"Enable squashing (folding topography out above --squash-min-elev).")
	getopt.FlagLong(&o.squashMinElev, "squash-min-elev", 0,
		"Elevation cutoff for squashing. Defaults to 0.", "float")
	getopt.FlagLong(&o.metrics, "metrics", 0,
		"Turn on /metrics and /health on a separate port. Off by default.")
	getopt.FlagLong(&o.metricsPort, "metrics-port", 0,
		"Port to host /metrics and /health on. Defaults to 8081.", "int")

	getopt.Parse()
	if *help {
		getopt.Usage()
		os.Exit(0)
	}
	return o
}

func serveMetrics(port uint32, reg *prometheus.Registry) {
	app := gin.New()
	app.Use(gin.Recovery())
	app.Use(gzip.Gzip(gzip.BestSpeed))
	app.GET("/health", func(c *gin.Context) { c.Status(200) })
	app.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	go app.Run(fmt.Sprintf(":%d", port)) //nolint:errcheck
}

func run() error {
	o := parseopts()

	if len(o.modelFilenames) == 0 {
		return fmt.Errorf("at least one --models filename is required")
	}
	if o.pointsFile == "" {
		return fmt.Errorf("--points is required")
	}

	var metric *telemetry.Metrics
	if o.metrics {
		reg := prometheus.NewRegistry()
		metric = telemetry.NewMetrics(reg)
		serveMetrics(o.metricsPort, reg)
	}

	f, err := os.Open(o.pointsFile)
	if err != nil {
		return fmt.Errorf("open points file: %w", err)
	}
	defer f.Close()

	handle := chandle.CreateWithMetrics(metric)
	defer chandle.Destroy(handle)

	if status := chandle.Initialize(handle, o.modelFilenames, o.valueNames, o.inputCRS); status != chandle.StatusOK {
		return fmt.Errorf("initialize failed with status %d", status)
	}
	if o.squash {
		chandle.SetSquashMinElev(handle, o.squashMinElev)
		chandle.SetSquashing(handle, true)
	}

	out := make([]float64, len(o.valueNames))
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
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
		z, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("parse z: %w", err)
		}

		chandle.Query(handle, out, x, y, z)

		parts := make([]string, len(out))
		for i, v := range out {
			parts[i] = strconv.FormatFloat(v, 'f', 6, 64)
		}
		fmt.Printf("%.6f %.6f %.6f %s\n", x, y, z, strings.Join(parts, " "))
	}
	return scanner.Err()
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "query: unexpected failure:", r)
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}
