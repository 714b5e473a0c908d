// Package schedule implements the pair scheduler (C6): it discovers
// candidate solid pairs whose bounding volumes come within tolerance,
// using an R-tree coarse pre-filter followed by an exact oriented
// bounding box test, then classifies each surviving pair in parallel.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dhconnelly/rtreego"

	"github.com/chazu/solidprep/pkg/boolean"
	"github.com/chazu/solidprep/pkg/classify"
	"github.com/chazu/solidprep/pkg/document"
	"github.com/chazu/solidprep/pkg/geom"
	"github.com/chazu/solidprep/pkg/kernel"
	"github.com/chazu/solidprep/pkg/pool"
)

// Config controls pre-filter clearance and parallelism.
type Config struct {
	Jobs               int
	BBoxClearance      float64
	ImprintTolerance   []float64
	MaxCommonVolRatio  float64
	TimePerPair        time.Duration
	Logger             *slog.Logger
}

// PairResult is one pair's outcome, ready to become a CSV row.
type PairResult struct {
	I, J       int
	Status     classify.Status
	VolCommon  float64
	VolI, VolJ float64
	BadOverlap bool
}

// indexedBox adapts an OBB's axis-aligned envelope to rtreego.Spatial.
type indexedBox struct {
	idx   int
	rect  rtreego.Rect
}

func (b *indexedBox) Bounds() rtreego.Rect { return b.rect }

// Run precomputes every solid's OBB and volume in parallel (a Barrier
// group), then enumerates ordered pairs (hi, lo) with lo < hi, rejecting
// disjoint pairs via the R-tree + exact OBB test before submitting the
// survivors to the classifier through an AsyncMap. Results are streamed
// to emit in completion order as they become available.
func Run(ctx context.Context, k kernel.Kernel, doc *document.Document, cfg Config, emit func(PairResult)) (failures int, err error) {
	n := doc.Len()
	if cfg.Jobs <= 0 {
		cfg.Jobs = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := pool.New(cfg.Jobs)
	defer p.Close()

	obbs := make([]geom.OBB, n)
	vols := make([]float64, n)
	precompute := pool.NewBarrier(p)
	var precomputeErr error
	for i := 0; i < n; i++ {
		i := i
		precompute.Submit(func() {
			obb, err := geom.OrientedBoundingBox(k, doc.Solids[i])
			if err != nil {
				precomputeErr = fmt.Errorf("schedule: OBB for shape %d: %w", i, err)
				return
			}
			obbs[i] = obb
			v, err := geom.Volume(k, doc.Solids[i])
			if err != nil {
				precomputeErr = fmt.Errorf("schedule: volume for shape %d: %w", i, err)
				return
			}
			vols[i] = v
		})
	}
	precompute.Wait()
	if precomputeErr != nil {
		return 0, precomputeErr
	}

	tree := rtreego.NewTree(3, 25, 50)
	for i := 0; i < n; i++ {
		rect, rerr := envelopeRect(obbs[i].Enlarge(cfg.BBoxClearance))
		if rerr != nil {
			continue
		}
		tree.Insert(&indexedBox{idx: i, rect: rect})
	}

	driver := boolean.New(k)
	async := pool.NewAsyncMap[PairResult](p)
	submitted := 0

	for hi := 1; hi < n; hi++ {
		rect, rerr := envelopeRect(obbs[hi].Enlarge(cfg.BBoxClearance))
		if rerr != nil {
			continue
		}
		candidates := tree.SearchIntersect(rect)
		sort.Slice(candidates, func(a, b int) bool {
			return candidates[a].(*indexedBox).idx < candidates[b].(*indexedBox).idx
		})
		for _, c := range candidates {
			ib, ok := c.(*indexedBox)
			if !ok || ib.idx >= hi {
				continue
			}
			lo := ib.idx
			if obbs[hi].Enlarge(cfg.BBoxClearance).DisjointFrom(obbs[lo].Enlarge(cfg.BBoxClearance)) {
				continue
			}

			hiIdx, loIdx := hi, lo
			async.Submit(func() (pr PairResult) {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("pair classification panicked", "i", hiIdx, "j", loIdx, "panic", r)
						pr = PairResult{I: hiIdx, J: loIdx, Status: classify.Failed}
					}
				}()

				pairCtx := ctx
				cancel := func() {}
				if cfg.TimePerPair > 0 {
					pairCtx, cancel = context.WithTimeout(ctx, cfg.TimePerPair)
				}
				defer cancel()

				r := classify.Classify(pairCtx, driver, doc.Solids[hiIdx], doc.Solids[loIdx], cfg.ImprintTolerance)
				pr = PairResult{I: hiIdx, J: loIdx, Status: r.Status, VolCommon: r.VolCommon, VolI: r.VolCutShape, VolJ: r.VolCutTool}
				if r.Status == classify.Overlap {
					minVol := vols[loIdx]
					if vols[hiIdx] < minVol {
						minVol = vols[hiIdx]
					}
					if minVol > 0 && r.VolCommon > cfg.MaxCommonVolRatio*minVol {
						pr.BadOverlap = true
					}
				}
				return pr
			})
			submitted++
		}
	}

	results := make(chan PairResult)
	go func() {
		defer close(results)
		for i := 0; i < submitted; i++ {
			pr, ok := async.Get()
			if !ok {
				return
			}
			results <- pr
		}
	}()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	collected := 0
	for collected < submitted {
		select {
		case <-ticker.C:
			logger.Info("schedule progress", "collected", collected, "submitted", submitted)
		case pr, ok := <-results:
			if !ok {
				return failures, nil
			}
			collected++
			if pr.Status == classify.Failed || pr.Status == classify.Timeout || pr.BadOverlap {
				failures++
			}
			emit(pr)
		}
	}

	return failures, nil
}

func envelopeRect(b geom.OBB) (rtreego.Rect, error) {
	var min, max [3]float64
	for a := 0; a < 3; a++ {
		for sign := -1.0; sign <= 1.0; sign += 2.0 {
			var corner [3]float64
			for d := 0; d < 3; d++ {
				e := b.HalfExtent[a] * sign * b.Axes[a][d]
				corner[d] = b.Center[d] + e
			}
			if a == 0 && sign == -1.0 {
				min, max = corner, corner
			} else {
				for d := 0; d < 3; d++ {
					if corner[d] < min[d] {
						min[d] = corner[d]
					}
					if corner[d] > max[d] {
						max[d] = corner[d]
					}
				}
			}
		}
	}
	lengths := []float64{max[0] - min[0], max[1] - min[1], max[2] - min[2]}
	for i := range lengths {
		if lengths[i] <= 0 {
			lengths[i] = 1e-6
		}
	}
	return rtreego.NewRect(rtreego.Point{min[0], min[1], min[2]}, lengths)
}
