// Package cliconfig holds the flag-parsing and logging setup shared by
// every cmd/ binary in this module: GNU-style long flags via pflag, and
// a single log/slog logger configured from SOLIDPREP_LOG_LEVEL.
package cliconfig

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/chazu/solidprep/pkg/errs"
)

// NewLogger builds the process-wide slog logger. The only environment
// variable this module consults is SOLIDPREP_LOG_LEVEL.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("SOLIDPREP_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// OverlapCheckerFlags holds the overlap-checker subcommand's parsed flags.
type OverlapCheckerFlags struct {
	Jobs              int
	BBoxClearance     float64
	ImprintTolerance  []float64
	MaxCommonVolRatio float64
	TimePerPairSecs   float64
	InputPath         string
}

// ParseOverlapChecker parses args (normally os.Args[1:]) for the
// overlap-checker subcommand and validates the result.
func ParseOverlapChecker(args []string) (OverlapCheckerFlags, error) {
	fs := pflag.NewFlagSet("overlap-checker", pflag.ContinueOnError)
	jobs := fs.IntP("jobs", "j", runtime.NumCPU(), "number of worker threads")
	clearance := fs.Float64("bbox-clearance", 0.5, "OBB pre-filter clearance")
	tolerances := fs.Float64Slice("imprint-tolerance", []float64{0.001, 0}, "fuzzy tolerance ladder, largest first")
	ratio := fs.Float64("max-common-volume-ratio", 0.01, "max common volume / min(vol_i,vol_j) before bad_overlap")
	timePerPair := fs.Float64("time-per-pair", 60, "per-pair timeout in seconds")
	if err := fs.Parse(args); err != nil {
		return OverlapCheckerFlags{}, fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
	}

	f := OverlapCheckerFlags{
		Jobs:              *jobs,
		BBoxClearance:     *clearance,
		ImprintTolerance:  *tolerances,
		MaxCommonVolRatio: *ratio,
		TimePerPairSecs:   *timePerPair,
	}
	if fs.NArg() < 1 {
		return f, fmt.Errorf("%w: missing input solid-set path", errs.ErrConfiguration)
	}
	f.InputPath = fs.Arg(0)

	if f.Jobs < 1 || f.Jobs > 1024 {
		return f, fmt.Errorf("%w: --jobs must be in [1,1024], got %d", errs.ErrConfiguration, f.Jobs)
	}
	for _, t := range f.ImprintTolerance {
		if t < 0 {
			return f, fmt.Errorf("%w: --imprint-tolerance must be >= 0, got %g", errs.ErrConfiguration, t)
		}
	}
	if f.MaxCommonVolRatio <= 0 || f.MaxCommonVolRatio >= 1 {
		return f, fmt.Errorf("%w: --max-common-volume-ratio must be in (0,1), got %g", errs.ErrConfiguration, f.MaxCommonVolRatio)
	}
	return f, nil
}

// ImprintFlags holds the imprint subcommand's parsed flags.
type ImprintFlags struct {
	Tolerance  float64
	NoSort     bool
	InputPath  string
	OutputPath string
}

// ParseImprint parses args for the imprint subcommand. By default the
// pair list is processed in (i, j) lexicographic order regardless of the
// order rows appear in the CSV, since imprint order determines the final
// shape of a pair whose two imprint outcomes interact; --no-sort
// preserves raw CSV order for callers that already guarantee it.
func ParseImprint(args []string) (ImprintFlags, error) {
	fs := pflag.NewFlagSet("imprint", pflag.ContinueOnError)
	tol := fs.Float64("tolerance", 0.01, "fuzzy tolerance")
	noSort := fs.Bool("no-sort", false, "process pairs in raw CSV order instead of sorting by (i,j)")
	if err := fs.Parse(args); err != nil {
		return ImprintFlags{}, fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
	}
	if fs.NArg() < 2 {
		return ImprintFlags{}, fmt.Errorf("%w: usage: imprint [flags] <input> <output>", errs.ErrConfiguration)
	}
	f := ImprintFlags{Tolerance: *tol, NoSort: *noSort, InputPath: fs.Arg(0), OutputPath: fs.Arg(1)}
	if f.Tolerance < 0 {
		return f, fmt.Errorf("%w: --tolerance must be >= 0, got %g", errs.ErrConfiguration, f.Tolerance)
	}
	return f, nil
}

// MergeFlags holds the merge subcommand's parsed flags.
type MergeFlags struct {
	Tolerance  float64
	InputPath  string
	OutputPath string
}

// ParseMerge parses args for the merge subcommand.
func ParseMerge(args []string) (MergeFlags, error) {
	fs := pflag.NewFlagSet("merge", pflag.ContinueOnError)
	tol := fs.Float64("tolerance", 0.001, "geometric coincidence tolerance")
	if err := fs.Parse(args); err != nil {
		return MergeFlags{}, fmt.Errorf("%w: %v", errs.ErrConfiguration, err)
	}
	if fs.NArg() < 2 {
		return MergeFlags{}, fmt.Errorf("%w: usage: merge [flags] <input> <output>", errs.ErrConfiguration)
	}
	f := MergeFlags{Tolerance: *tol, InputPath: fs.Arg(0), OutputPath: fs.Arg(1)}
	if f.Tolerance < 0 {
		return f, fmt.Errorf("%w: --tolerance must be >= 0, got %g", errs.ErrConfiguration, f.Tolerance)
	}
	return f, nil
}
