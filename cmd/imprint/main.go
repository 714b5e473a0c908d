// Command imprint reads a solid-set file and a CSV pair list on stdin,
// rewrites every overlap/bad_overlap pair so the overlap region becomes
// a shared sub-solid of the larger operand, and writes the result to a
// new solid-set file.
package main

import (
	"context"
	"os"
	"sort"

	"github.com/chazu/solidprep/internal/cliconfig"
	"github.com/chazu/solidprep/pkg/boolean"
	"github.com/chazu/solidprep/pkg/csvpairs"
	"github.com/chazu/solidprep/pkg/document"
	"github.com/chazu/solidprep/pkg/imprint"
	"github.com/chazu/solidprep/pkg/kernel/sdfx"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := cliconfig.NewLogger()

	flags, err := cliconfig.ParseImprint(args)
	if err != nil {
		logger.Error("configuration error", "err", err)
		return 1
	}

	in, err := os.Open(flags.InputPath)
	if err != nil {
		logger.Error("open input", "err", err)
		return 1
	}
	defer in.Close()

	doc, err := document.Load(in)
	if err != nil {
		logger.Error("load solid-set", "err", err)
		return 1
	}

	rows, err := csvpairs.ReadAll(os.Stdin, doc.Len())
	if err != nil {
		logger.Error("read pair list", "err", err)
		return 1
	}
	if !flags.NoSort {
		sort.Slice(rows, func(a, b int) bool {
			if rows[a].I != rows[b].I {
				return rows[a].I < rows[b].I
			}
			return rows[a].J < rows[b].J
		})
	}

	k := sdfx.New()
	driver := boolean.New(k)
	ctx := context.Background()

	numFailed := 0
	for _, row := range rows {
		if row.Status == csvpairs.Touch {
			continue
		}
		r, err := imprint.Imprint(ctx, driver, doc.Solids[row.I], doc.Solids[row.J], flags.Tolerance)
		if err != nil || r.Status == imprint.Failed {
			logger.Warn("imprint failed", "i", row.I, "j", row.J, "err", err)
			numFailed++
			continue
		}
		doc.Solids[row.I] = r.Shape
		doc.Solids[row.J] = r.Tool
	}

	if numFailed > 0 {
		logger.Error("imprint run had failures, refusing to write output", "count", numFailed)
		return 1
	}

	out, err := os.Create(flags.OutputPath)
	if err != nil {
		logger.Error("create output", "err", err)
		return 1
	}
	defer out.Close()

	if err := document.Save(out, k, doc); err != nil {
		logger.Error("save solid-set", "err", err)
		return 1
	}

	logger.Info("imprint completed", "pairs", len(rows))
	return 0
}
