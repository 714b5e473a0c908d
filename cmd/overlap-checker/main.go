// Command overlap-checker reads a solid-set file, finds every candidate
// pair of solids whose bounding volumes come within tolerance, classifies
// each, and writes one CSV row per non-distinct pair to stdout.
package main

import (
	"context"
	"encoding/csv"
	"os"
	"time"

	"github.com/chazu/solidprep/internal/cliconfig"
	"github.com/chazu/solidprep/pkg/classify"
	"github.com/chazu/solidprep/pkg/csvpairs"
	"github.com/chazu/solidprep/pkg/document"
	"github.com/chazu/solidprep/pkg/kernel/sdfx"
	"github.com/chazu/solidprep/pkg/schedule"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := cliconfig.NewLogger()

	flags, err := cliconfig.ParseOverlapChecker(args)
	if err != nil {
		logger.Error("configuration error", "err", err)
		return 1
	}

	f, err := os.Open(flags.InputPath)
	if err != nil {
		logger.Error("open input", "err", err, "path", flags.InputPath)
		return 1
	}
	defer f.Close()

	doc, err := document.Load(f)
	if err != nil {
		logger.Error("load solid-set", "err", err)
		return 1
	}

	k := sdfx.New()
	cfg := schedule.Config{
		Jobs:              flags.Jobs,
		BBoxClearance:     flags.BBoxClearance,
		ImprintTolerance:  flags.ImprintTolerance,
		MaxCommonVolRatio: flags.MaxCommonVolRatio,
		TimePerPair:       time.Duration(flags.TimePerPairSecs * float64(time.Second)),
		Logger:            logger,
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	ctx := context.Background()
	failures, err := schedule.Run(ctx, k, doc, cfg, func(pr schedule.PairResult) {
		if pr.Status == classify.Distinct || pr.Status == classify.Failed || pr.Status == classify.Timeout {
			return
		}
		status := csvpairs.Touch
		switch {
		case pr.BadOverlap:
			status = csvpairs.BadOverlap
		case pr.Status == classify.Overlap:
			status = csvpairs.Overlap
		}
		row := csvpairs.Row{I: pr.I, J: pr.J, Status: status}
		if pr.Status == classify.Overlap {
			row.VolCommon, row.VolI, row.VolJ, row.HasVolumes = pr.VolCommon, pr.VolI, pr.VolJ, true
		}
		_ = csvpairs.WriteRow(w, row)
		w.Flush()
	})
	if err != nil {
		logger.Error("schedule run", "err", err)
		return 1
	}

	if failures > 0 {
		logger.Warn("overlap-checker completed with failures", "count", failures)
		return 1
	}
	logger.Info("overlap-checker completed")
	return 0
}
