// Package sbpl writes the content band as an SBPL command stream for label
// printers.
//
// The band is laid out once without page breaks and placed at the page
// margins. Every element becomes a rotation command, an absolute vertical
// and horizontal move and one directive. Positions and sizes are converted
// from points to printer dots.
package sbpl

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/render"
	"github.com/lvillar/docband/style"
	"github.com/lvillar/docband/symbol"
)

const esc = "\x1b"

// DefaultDotsPerMM matches a 300 dpi print head.
const DefaultDotsPerMM = 12

// DefaultRotation prints without rotation.
const DefaultRotation = "%0"

// Renderer is the label printer backend.
type Renderer struct {
	dotsPerMM float64
	rotation  string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDotsPerMM sets the print head resolution.
func WithDotsPerMM(n float64) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.dotsPerMM = n
		}
	}
}

// WithRotation sets the rotation command emitted before every element,
// one of %0, %1, %2 and %3.
func WithRotation(cmd string) Option {
	return func(r *Renderer) {
		if cmd != "" {
			r.rotation = cmd
		}
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{dotsPerMM: DefaultDotsPerMM, rotation: DefaultRotation}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements render.Renderer. It needs job.Properties and job.Bands.
func (r *Renderer) Render(ctx context.Context, job *render.Job) ([]byte, error) {
	if job == nil || job.Bands == nil || job.Properties == nil {
		return nil, render.ErrNoDocument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	images := job.Images
	if images == nil {
		images = imaging.NewLoader(nil, job.Log())
	}
	s := &stream{r: r, ctx: ctx, images: images, log: job.Log()}
	props := job.Properties

	s.buf.WriteString(esc + "A")
	fmt.Fprintf(&s.buf, "%sA1V%04dH%04d", esc, s.dots(props.Height), s.dots(props.Width))
	if err := s.items(job.Bands.Content, props.MarginLeft, props.MarginTop); err != nil {
		return nil, err
	}
	s.buf.WriteString(esc + "Z")

	job.Log().Debug("sbpl rendered", zap.Int("bytes", s.buf.Len()))
	return s.buf.Bytes(), nil
}

type stream struct {
	r      *Renderer
	ctx    context.Context
	images *imaging.Loader
	log    *zap.Logger
	buf    bytes.Buffer
}

func (s *stream) dots(pt float64) int {
	return int(pt * 25.4 / 72 * s.r.dotsPerMM)
}

// move starts a directive at x, y in points.
func (s *stream) move(x, y float64) {
	fmt.Fprintf(&s.buf, "%s%s%sV%04d%sH%04d", esc, s.r.rotation, esc, s.dots(y), esc, s.dots(x))
}

func (s *stream) items(items []layout.Item, dx, dy float64) error {
	for _, it := range items {
		var err error
		switch v := it.(type) {
		case *layout.Text:
			s.borders(v.Style, dx+v.X, dy+v.Y, v.W, v.H)
			s.text(v.Lines, v.Style, dx+v.X, dy+v.Y, v.H)
		case *layout.Line:
			s.move(dx+v.X, dy+v.Y)
			fmt.Fprintf(&s.buf, "%sFW%02dH%03d", esc, s.dots(v.H), s.dots(v.W))
		case *layout.Table:
			s.table(v, dx+v.X, dy+v.Y)
		case *layout.Image:
			err = s.image(v, dx+v.X, dy+v.Y)
		case *layout.Symbol:
			err = s.symbol(v, dx+v.X, dy+v.Y)
		case *layout.Frame:
			s.borders(v.Style, dx+v.X, dy+v.Y, v.W, v.H)
			err = s.items(v.Items, dx+v.X, dy+v.Y)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func fontStyle(st *style.Style) int {
	switch {
	case st.Bold && st.Italic:
		return 3
	case st.Bold:
		return 2
	case st.Italic:
		return 1
	}
	return 0
}

// text writes lines vertically centred in a box of height h.
func (s *stream) text(lines []string, st *style.Style, x, y, h float64) {
	if st == nil {
		st = style.Default()
	}
	lines = render.Lines(lines, 1, 1)
	if len(lines) == 0 {
		lines = []string{""}
	}
	top := 0.0
	if len(lines) == 1 && h > st.FontSize {
		top = float64(int((h - st.FontSize) / 2))
	}
	size := s.dots(st.FontSize)
	for i, line := range lines {
		s.move(x+4, y+top+float64(i)*st.LineHeight())
		fmt.Fprintf(&s.buf, "%sRG0,11,%d,%d,%d,%s", esc, fontStyle(st), size, size, line)
	}
}

func (s *stream) borders(st *style.Style, x, y, w, h float64) {
	if st == nil || !st.Border.Any() {
		return
	}
	bw := s.dots(st.Border.Width)
	if st.Border.All() {
		s.move(x, y)
		fmt.Fprintf(&s.buf, "%sFW%02d%02dV%03dH%03d", esc, bw, bw, s.dots(h), s.dots(w))
		return
	}
	if st.Border.Left {
		s.vline(x, y, h, bw)
	}
	if st.Border.Top {
		s.hline(x, y, w, bw)
	}
	if st.Border.Right {
		s.vline(x+w, y, h, bw)
	}
	if st.Border.Bottom {
		s.hline(x, y+h, w, bw)
	}
}

func (s *stream) hline(x, y, w float64, width int) {
	s.move(x, y)
	fmt.Fprintf(&s.buf, "%sFW%02dH%03d", esc, width, s.dots(w))
}

func (s *stream) vline(x, y, h float64, width int) {
	s.move(x, y)
	fmt.Fprintf(&s.buf, "%sFW%02dV%03d", esc, width, s.dots(h))
}

func (s *stream) table(t *layout.Table, x, y float64) {
	for _, row := range t.Rows {
		for _, cell := range row.Cells {
			st := cell.Style
			if st == nil {
				st = style.Default()
			}
			text := cell.Lines
			if len(text) > 1 {
				text = text[:1]
			}
			s.text(text, st, x+cell.X, y+row.Y, row.Height)
		}
	}
	width := max(1, s.dots(t.BorderWidth))
	for _, rl := range t.HRules {
		s.hline(x+rl.X1, y+rl.Y1, rl.X2-rl.X1, width)
	}
	for _, rl := range t.VRules {
		s.vline(x+rl.X1, y+rl.Y1, rl.Y2-rl.Y1, width)
	}
}

func (s *stream) symbol(sym *layout.Symbol, x, y float64) error {
	if sym.Content == "" {
		return nil
	}
	switch strings.ToUpper(sym.Format) {
	case symbol.QR:
		s.move(x, y)
		fmt.Fprintf(&s.buf, "%sBQ10%02d,0%s", esc, int(sym.H/(s.r.dotsPerMM/2)), sym.Content)
	case symbol.PDF417:
		s.log.Debug("pdf417 skipped in sbpl output", zap.String("element", sym.ElementID))
	default:
		if err := symbol.Validate(sym.Format, sym.Content); err != nil {
			return diag.Fatalw(sym.ElementID, "content", diag.MsgInvalidBarCode, err)
		}
		s.move(x, y)
		fmt.Fprintf(&s.buf, "%sBG02120%s", esc, sym.Content)
	}
	return nil
}

// image writes a monochrome bitmap scaled to the element box. Rows are
// padded to whole bytes and the height to a multiple of eight dots.
func (s *stream) image(im *layout.Image, x, y float64) error {
	if im.Source.Empty() {
		return nil
	}
	loaded, err := s.images.Load(s.ctx, im.Source)
	if err != nil {
		return diag.Fatalw(im.ElementID, "source", imaging.MsgKey(err), err)
	}
	src, _, err := image.Decode(bytes.NewReader(loaded.Data))
	if err != nil {
		return diag.Fatalw(im.ElementID, "source", diag.MsgInvalidImage, err)
	}
	w, h := s.dots(im.W), s.dots(im.H)
	if w <= 0 || h <= 0 {
		return nil
	}
	s.move(x, y)
	fmt.Fprintf(&s.buf, "%sGH%s", esc, Bitmap(src, w, h))
	return nil
}

// Bitmap scales img to w x h dots and encodes it as a GH graphic: three
// digits of bytes per row, three digits of 8-dot row groups, then the rows
// in hexadecimal with dark dots set.
func Bitmap(img image.Image, w, h int) string {
	scaled := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(scaled, scaled.Bounds(), image.White, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Over, nil)

	stride := (w + 7) / 8
	groups := (h + 7) / 8
	data := make([]byte, stride*groups*8)
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			if scaled.GrayAt(px, py).Y < 128 {
				data[py*stride+px/8] |= 0x80 >> (px % 8)
			}
		}
	}
	return fmt.Sprintf("%03d%03d", stride, groups) + strings.ToUpper(hex.EncodeToString(data))
}
