package layout

import (
	"math"
	"sort"

	"github.com/lvillar/docband/element"
)

const ruleEpsilon = 0.001

// tableRules computes the border strokes of a table slice. Rules are
// collected once the rows of the slice are known so that shared edges are
// stroked only once: vertical segments of consecutive rows at the same x are
// merged into one rule.
func tableRules(border element.Border, rows []*TableRow, width float64) (h, v []Rule) {
	if len(rows) == 0 || border == element.BorderNone {
		return nil, nil
	}
	top := rows[0].Y
	last := rows[len(rows)-1]
	bottom := last.Y + last.Height

	switch border {
	case element.BorderGrid, element.BorderRow, element.BorderFrameRow:
		for _, r := range rows {
			h = append(h, Rule{X1: 0, Y1: r.Y, X2: width, Y2: r.Y})
		}
		h = append(h, Rule{X1: 0, Y1: bottom, X2: width, Y2: bottom})
	case element.BorderFrame:
		h = append(h,
			Rule{X1: 0, Y1: top, X2: width, Y2: top},
			Rule{X1: 0, Y1: bottom, X2: width, Y2: bottom})
	}

	switch border {
	case element.BorderGrid:
		var segs []Rule
		for _, r := range rows {
			segs = append(segs, Rule{X1: 0, Y1: r.Y, X2: 0, Y2: r.Y + r.Height})
			for _, c := range r.Cells {
				x := c.X + c.Width
				segs = append(segs, Rule{X1: x, Y1: r.Y, X2: x, Y2: r.Y + r.Height})
			}
			if n := len(r.Cells); n == 0 || math.Abs(r.Cells[n-1].X+r.Cells[n-1].Width-width) > ruleEpsilon {
				segs = append(segs, Rule{X1: width, Y1: r.Y, X2: width, Y2: r.Y + r.Height})
			}
		}
		v = mergeVertical(segs)
	case element.BorderFrame, element.BorderFrameRow:
		v = []Rule{
			{X1: 0, Y1: top, X2: 0, Y2: bottom},
			{X1: width, Y1: top, X2: width, Y2: bottom},
		}
	}
	return h, v
}

func mergeVertical(segs []Rule) []Rule {
	sort.SliceStable(segs, func(i, j int) bool {
		if math.Abs(segs[i].X1-segs[j].X1) > ruleEpsilon {
			return segs[i].X1 < segs[j].X1
		}
		return segs[i].Y1 < segs[j].Y1
	})
	var out []Rule
	for _, s := range segs {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if math.Abs(prev.X1-s.X1) <= ruleEpsilon && s.Y1 <= prev.Y2+ruleEpsilon {
				prev.Y2 = math.Max(prev.Y2, s.Y2)
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
