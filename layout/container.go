package layout

import (
	"math"

	"github.com/lvillar/docband/element"
)

// containerState lays out the blocks of one container page by page.
//
// An element is placed once all of its predecessors (the elements ending
// above it) are finished. On the page where they finished it keeps its
// design distance to the lowest of them, so it moves with their growth; on a
// later page it starts at the top. A page break finishing on a page pushes
// its successors to the next page.
type containerState struct {
	c        *element.Container
	blocks   []block
	started  []bool
	done     []bool
	begun    bool // some call made progress
	flat     bool // page breaks are ignored
	trailing float64
}

func newContainerState(c *element.Container, blocks []block, flat bool) *containerState {
	var bottom float64
	for _, el := range c.Elements {
		bottom = math.Max(bottom, el.Common().Bottom())
	}
	return &containerState{
		c:        c,
		blocks:   blocks,
		started:  make([]bool, len(blocks)),
		done:     make([]bool, len(blocks)),
		flat:     flat,
		trailing: math.Max(0, c.Height-bottom),
	}
}

func (s *containerState) finished() bool {
	for _, d := range s.done {
		if !d {
			return false
		}
	}
	return true
}

func (s *containerState) place(avail float64, top bool) placement {
	if len(s.blocks) == 0 {
		s.begun = true
		h := s.c.Height
		if !s.flat {
			h = math.Min(h, math.Max(avail, 0))
		}
		return placement{height: h, done: true, moved: true}
	}

	here := make([]bool, len(s.blocks))
	bottom := make([]float64, len(s.blocks))
	var items []Item
	var content float64
	moved := false

	for i, b := range s.blocks {
		if s.done[i] {
			continue
		}
		y, ready := s.startY(i, here, bottom)
		if !ready {
			continue
		}
		force := top && !moved
		if force && y >= avail {
			y = 0
		}
		res := b.place(avail-y, force)
		if !res.moved {
			continue
		}
		moved = true
		s.started[i] = true
		here[i] = true
		bottom[i] = y + res.height
		if len(res.items) > 0 || res.height > 0 {
			content = math.Max(content, bottom[i])
		}
		shiftAll(res.items, 0, y)
		items = append(items, res.items...)
		if res.done {
			s.done[i] = true
		}
	}
	if !moved {
		return placement{}
	}
	s.begun = true

	done := s.finished()
	height := content
	if done {
		height = content + s.trailing
		if !s.flat {
			height = math.Max(content, math.Min(height, avail))
		}
	}
	return placement{items: items, height: height, content: content, done: done, moved: true}
}

// startY returns where element i starts on the current page and whether it
// can be placed yet.
func (s *containerState) startY(i int, here []bool, bottom []float64) (float64, bool) {
	if s.started[i] {
		return 0, true
	}
	el := s.blocks[i].base()
	preds := s.c.Preds[i]
	if len(preds) == 0 {
		if s.begun {
			return 0, true
		}
		return el.Y, true
	}
	var y float64
	for _, p := range preds {
		if !s.done[p] {
			return 0, false
		}
		if !here[p] {
			continue
		}
		pb := s.blocks[p].base()
		if pb.Kind == element.KindPageBreak && !s.flat {
			return 0, false
		}
		y = math.Max(y, bottom[p]+el.Y-pb.Bottom())
	}
	return y, true
}

// natural is the height of the container laid out without page limits.
func (s *containerState) natural() float64 {
	return s.naturalContent() + s.trailing
}

func (s *containerState) naturalContent() float64 {
	ys := make([]float64, len(s.blocks))
	hs := make([]float64, len(s.blocks))
	var content float64
	for i, b := range s.blocks {
		el := b.base()
		hs[i] = b.natural()
		y := el.Y
		if preds := s.c.Preds[i]; len(preds) > 0 {
			y = 0
			for _, p := range preds {
				y = math.Max(y, ys[p]+hs[p]+el.Y-s.blocks[p].base().Bottom())
			}
		}
		ys[i] = y
		if hs[i] > 0 {
			content = math.Max(content, y+hs[i])
		}
	}
	return content
}
