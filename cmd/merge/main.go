// Command merge reads a solid-set file, detects geometrically coincident
// vertices/edges/faces across the whole assembly, rebuilds the topology
// so coincident sub-shapes are shared, and writes the result to a new
// solid-set file.
package main

import (
	"os"

	"github.com/chazu/solidprep/internal/cliconfig"
	"github.com/chazu/solidprep/pkg/document"
	"github.com/chazu/solidprep/pkg/geom"
	"github.com/chazu/solidprep/pkg/kernel/sdfx"
	"github.com/chazu/solidprep/pkg/merge"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := cliconfig.NewLogger()

	flags, err := cliconfig.ParseMerge(args)
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

	k := sdfx.New()
	report, err := merge.Merge(k, doc, flags.Tolerance)
	if err != nil {
		logger.Error("merge", "err", err)
		return 1
	}
	for _, w := range report.Warnings {
		logger.Warn("merge warning", "detail", w)
	}

	invalid := 0
	for i, s := range doc.Solids {
		ok, defects := geom.IsValid(k, s)
		if !ok {
			invalid++
			logger.Warn("merged shape failed validity check", "shape", i, "defects", defects)
		}
	}
	if invalid > 0 {
		logger.Warn("merge produced invalid shapes, writing output anyway", "count", invalid)
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

	logger.Info("merge completed",
		"vertex_clusters", report.VertexClusters,
		"edge_groups", report.EdgeGroups,
		"face_groups", report.FaceGroups,
	)
	return 0
}
