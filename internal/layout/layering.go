package layout

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/framegraph/internal/ctxlog"
	"github.com/vk/framegraph/internal/dag"
	"github.com/vk/framegraph/internal/document"
)

// Block is a nested subgraph laid out as a single opaque item.
type Block interface {
	Width() float64
	Height() float64
	// SetOffset moves the block and lays out its contents relative to offset.
	SetOffset(ctx context.Context, offset document.Vector) error
}

// Item is one positionable member of a scope. Exactly one of Node and Block
// is set.
type Item struct {
	Key         string
	Width       float64
	Passthrough bool
	Node        document.Node
	Block       Block
}

// Edge connects two item keys, source to target.
type Edge struct {
	From string
	To   string
}

// Result is the outcome of one Arrange call.
type Result struct {
	Levels    map[string]int
	Positions map[string]document.Vector
	// Left is the smallest relative x of any item.
	Left      float64
	Width     float64
	Height    float64
}

// Levels computes the level of every item. Edges naming unknown keys are
// ignored, as are self-referencing edges.
func Levels(ctx context.Context, items []Item, edges []Edge) map[string]int {
	logger := ctxlog.FromContext(ctx)

	g := dag.New()
	for _, it := range items {
		g.AddNode(it.Key)
	}
	for _, e := range edges {
		if e.From == e.To {
			continue
		}
		if !g.Has(e.From) || !g.Has(e.To) {
			logger.Debug("Layering: edge endpoint is not a layout item, ignoring.", "from", e.From, "to", e.To)
			continue
		}
		if err := g.AddEdge(e.From, e.To); err != nil {
			logger.Debug("Layering: edge rejected.", "from", e.From, "to", e.To, "error", err)
		}
	}

	// A cycle would re-raise levels forever; the cap below stops it, the
	// warning tells the caller the result is not a true layering.
	limit := len(items)
	if err := g.DetectCycles(); err != nil {
		logger.Warn("Layering: graph has a cycle, levels are capped.", "error", err, "cap", limit)
	}

	levels := make(map[string]int, len(items))
	for _, it := range items {
		levels[it.Key] = 0
	}

	queue := g.Sinks()
	for len(queue) > 0 {
		target := queue[0]
		queue = queue[1:]

		sources, err := g.Dependencies(target)
		if err != nil {
			continue
		}
		next := levels[target] + 1
		for _, source := range sources {
			if next > levels[source] && next <= limit {
				levels[source] = next
				queue = append(queue, source)
			}
		}
	}
	return levels
}

// Plan levels the items and computes their positions relative to the scope
// anchor. Nothing is applied to the document.
func Plan(ctx context.Context, items []Item, edges []Edge, cfg Config) Result {
	levels := Levels(ctx, items, edges)

	maxLevel := 0
	for _, lvl := range levels {
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	layers := make([][]Item, maxLevel+1)
	layerWidth := make([]float64, maxLevel+1)
	for _, it := range items {
		lvl := levels[it.Key]
		layers[lvl] = append(layers[lvl], it)
		layerWidth[lvl] = math.Max(layerWidth[lvl], itemWidth(it))
	}

	res := Result{
		Levels:    levels,
		Positions: make(map[string]document.Vector, len(items)),
	}
	if len(items) == 0 {
		res.Width = 2 * cfg.ScopeMargin
		res.Height = 2 * cfg.ScopeMargin
		return res
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	lowest := 0.0
	covered := 0.0
	for lvl, layer := range layers {
		covered += layerWidth[lvl]
		x := -(covered + float64(lvl)*cfg.LevelMargin)

		y := 0.0
		for _, it := range layer {
			res.Positions[it.Key] = document.Vector{X: x, Y: y}
			y -= rowHeight(it, cfg)

			minX = math.Min(minX, x)
			maxX = math.Max(maxX, x+itemWidth(it))
		}
		lowest = math.Min(lowest, y)
	}
	res.Left = minX
	res.Width = (maxX - minX) + 2*cfg.ScopeMargin
	res.Height = -lowest + 2*cfg.ScopeMargin
	return res
}

// Apply moves every item to origin plus its planned position: nodes via
// SetPosition, blocks via SetOffset.
func Apply(ctx context.Context, items []Item, res Result, origin document.Vector) error {
	for _, it := range items {
		rel, ok := res.Positions[it.Key]
		if !ok {
			continue
		}
		abs := origin.Add(rel)
		switch {
		case it.Block != nil:
			if err := it.Block.SetOffset(ctx, abs); err != nil {
				return fmt.Errorf("positioning nested block %q: %w", it.Key, err)
			}
		case it.Node != nil:
			it.Node.SetPosition(abs)
		}
	}
	return nil
}

// Arrange plans the layout and applies it relative to origin.
func Arrange(ctx context.Context, items []Item, edges []Edge, cfg Config, origin document.Vector) (Result, error) {
	res := Plan(ctx, items, edges, cfg)
	if err := Apply(ctx, items, res, origin); err != nil {
		return res, err
	}
	ctxlog.FromContext(ctx).Debug("Layering: arrangement complete.", "items", len(items), "width", res.Width, "height", res.Height)
	return res, nil
}

func itemWidth(it Item) float64 {
	if it.Passthrough {
		return 0
	}
	if it.Block != nil {
		return math.Max(it.Width, it.Block.Width())
	}
	return it.Width
}

func rowHeight(it Item, cfg Config) float64 {
	switch {
	case it.Block != nil:
		return math.Max(cfg.RowHeight, it.Block.Height()+cfg.RowGap)
	case it.Passthrough:
		return cfg.PassthroughRowHeight
	default:
		return cfg.RowHeight
	}
}
