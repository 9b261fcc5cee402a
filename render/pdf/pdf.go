// Package pdf renders paginated reports with gofpdf.
//
// Coordinates are points with the origin at the top left corner of the page,
// so layout boxes map onto gofpdf calls without conversion. Text of the core
// fonts is translated to cp1252; registered TrueType fonts take UTF-8 as is.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/barcode"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"go.uber.org/zap"

	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/render"
	"github.com/lvillar/docband/style"
	"github.com/lvillar/docband/symbol"
)

// ErrBackground is returned when the background document cannot be imported.
var ErrBackground = errors.New("pdf: invalid background document")

// Watermark is text drawn across every page.
type Watermark struct {
	Text     string
	FontSize float64        // default 60
	Color    style.RGBColor // default light gray
	Opacity  float64        // 0 to 1, default 0.3
	Angle    float64        // degrees, default 45
}

// Renderer produces PDF documents. It is safe for concurrent use.
type Renderer struct {
	fonts      *layout.FontMeasurer
	watermark  *Watermark
	background []byte
	compress   bool
	title      string
	author     string
	now        func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFonts sets the fonts texts are drawn with. It must be the measurer the
// layout was computed with.
func WithFonts(m *layout.FontMeasurer) Option {
	return func(r *Renderer) { r.fonts = m }
}

// WithWatermark draws w on every page.
func WithWatermark(w Watermark) Option {
	return func(r *Renderer) { r.watermark = &w }
}

// WithBackground draws the first page of the PDF document data behind every
// page.
func WithBackground(data []byte) Option {
	return func(r *Renderer) { r.background = data }
}

// WithCompression toggles stream compression. It is on by default.
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

// WithMetadata sets the document title and author.
func WithMetadata(title, author string) Option {
	return func(r *Renderer) { r.title, r.author = title, author }
}

// WithClock sets the clock used for the creation date.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{compress: true, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.fonts == nil {
		// core fonts only, which cannot fail
		r.fonts, _ = layout.NewFontMeasurer()
	}
	return r
}

// Render implements render.Renderer.
func (r *Renderer) Render(ctx context.Context, job *render.Job) ([]byte, error) {
	if job == nil || job.Document == nil || len(job.Document.Pages) == 0 {
		return nil, render.ErrNoDocument
	}
	props := job.Document.Properties
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: props.Width, Ht: props.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(r.compress)
	pdf.SetCreator("docband", true)
	pdf.SetCreationDate(r.now())
	if r.title != "" {
		pdf.SetTitle(r.title, true)
	}
	if r.author != "" {
		pdf.SetAuthor(r.author, true)
	}
	for _, f := range r.fonts.Fonts() {
		pdf.AddUTF8Font(f.Family, f.Style, f.File)
	}

	images := job.Images
	if images == nil {
		images = imaging.NewLoader(nil, job.Log())
	}
	d := &drawer{
		ctx:    ctx,
		pdf:    pdf,
		fonts:  r.fonts,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		images: images,
		count:  len(job.Document.Pages),
	}

	var imp *gofpdi.Importer
	var tpl int
	if len(r.background) > 0 {
		var err error
		if imp, tpl, err = importBackground(pdf, r.background); err != nil {
			return nil, err
		}
	}

	for _, pg := range job.Document.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		d.page = pg.Number
		if imp != nil {
			imp.UseImportedTemplate(pdf, tpl, 0, 0, props.Width, props.Height)
		}
		for _, band := range [][]layout.Item{pg.Header, pg.Content, pg.Footer} {
			if err := d.items(band, 0, 0); err != nil {
				return nil, err
			}
		}
		if r.watermark != nil {
			drawWatermark(pdf, *r.watermark, props.Width, props.Height)
		}
		if pdf.Err() {
			break
		}
	}
	if pdf.Err() {
		return nil, fmt.Errorf("pdf: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: output: %w", err)
	}
	job.Log().Debug("pdf rendered",
		zap.Int("pages", d.count), zap.Int("images", images.Len()), zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

// importBackground imports the first page of data. The importer panics on
// malformed input.
func importBackground(pdf *gofpdf.Fpdf, data []byte) (imp *gofpdi.Importer, tpl int, err error) {
	defer func() {
		if p := recover(); p != nil {
			imp, err = nil, fmt.Errorf("%w: %v", ErrBackground, p)
		}
	}()
	imp = gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(data))
	tpl = imp.ImportPageFromStream(pdf, &rs, 1, "/MediaBox")
	return imp, tpl, nil
}

// drawer draws the items of one document.
type drawer struct {
	ctx    context.Context
	pdf    *gofpdf.Fpdf
	fonts  *layout.FontMeasurer
	tr     func(string) string
	images *imaging.Loader
	page   int
	count  int
}

func (d *drawer) items(items []layout.Item, dx, dy float64) error {
	for _, it := range items {
		var err error
		switch x := it.(type) {
		case *layout.Text:
			d.decorate(x.Style, dx+x.X, dy+x.Y, x.W, x.H)
			d.lines(x.Lines, x.Style, dx+x.X, dy+x.Y, x.W, x.H, x.Link)
		case *layout.Line:
			d.pdf.SetFillColor(x.Color.R, x.Color.G, x.Color.B)
			d.pdf.Rect(dx+x.X, dy+x.Y, x.W, x.H, "F")
		case *layout.Image:
			err = d.image(x, dx, dy)
		case *layout.Symbol:
			err = d.symbol(x, dx, dy)
		case *layout.Table:
			d.table(x, dx, dy)
		case *layout.Frame:
			d.decorate(x.Style, dx+x.X, dy+x.Y, x.W, x.H)
			err = d.items(x.Items, dx+x.X, dy+x.Y)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// decorate fills the background and strokes the borders of a box.
func (d *drawer) decorate(st *style.Style, x, y, w, h float64) {
	if st == nil {
		return
	}
	if bg := st.BackgroundColor; bg != nil {
		d.pdf.SetFillColor(bg.R, bg.G, bg.B)
		d.pdf.Rect(x, y, w, h, "F")
	}
	b := st.Border
	if !b.Any() || b.Width <= 0 {
		return
	}
	d.pdf.SetDrawColor(b.Color.R, b.Color.G, b.Color.B)
	d.pdf.SetLineWidth(b.Width)
	if b.All() {
		d.pdf.Rect(x, y, w, h, "D")
		return
	}
	if b.Top {
		d.pdf.Line(x, y, x+w, y)
	}
	if b.Bottom {
		d.pdf.Line(x, y+h, x+w, y+h)
	}
	if b.Left {
		d.pdf.Line(x, y, x, y+h)
	}
	if b.Right {
		d.pdf.Line(x+w, y, x+w, y+h)
	}
}

func (d *drawer) setFont(st *style.Style) (utf8Font bool) {
	family, fontStyle, uni := d.fonts.Resolve(st)
	if st.Underline {
		fontStyle += "U"
	}
	if st.Strikethrough {
		fontStyle += "S"
	}
	d.pdf.SetFont(family, fontStyle, st.FontSize)
	d.pdf.SetTextColor(st.TextColor.R, st.TextColor.G, st.TextColor.B)
	return uni
}

// lines draws wrapped text inside a box honoring padding and alignment.
func (d *drawer) lines(lines []string, st *style.Style, x, y, w, h float64, link string) {
	if st == nil {
		st = style.Default()
	}
	if len(lines) > 0 {
		uni := d.setFont(st)
		lh := st.LineHeight()
		pad := st.Padding
		block := float64(len(lines)) * lh
		top := y + pad.Top
		switch st.VAlign {
		case style.AlignMiddle:
			top = y + (h-block)/2
		case style.AlignBottom:
			top = y + h - pad.Bottom - block
		}
		for i, l := range render.Lines(lines, d.page, d.count) {
			if !uni {
				l = d.tr(l)
			}
			d.pdf.SetXY(x+pad.Left, top+float64(i)*lh)
			d.pdf.CellFormat(w-pad.Left-pad.Right, lh, l, "", 0, st.AlignCode()+"M", false, 0, "")
		}
	}
	if link != "" {
		d.pdf.LinkString(x, y, w, h, link)
	}
}

func (d *drawer) table(t *layout.Table, dx, dy float64) {
	x0, y0 := dx+t.X, dy+t.Y
	for _, r := range t.Rows {
		ry := y0 + r.Y
		for _, c := range r.Cells {
			cx := x0 + c.X
			bg := r.Background
			if c.Style != nil && c.Style.BackgroundColor != nil {
				bg = c.Style.BackgroundColor
			}
			if bg != nil {
				d.pdf.SetFillColor(bg.R, bg.G, bg.B)
				d.pdf.Rect(cx, ry, c.Width, r.Height, "F")
			}
			d.lines(c.Lines, c.Style, cx, ry, c.Width, r.Height, c.Link)
		}
	}

	// rules last so backgrounds never cover them
	if len(t.HRules)+len(t.VRules) == 0 {
		return
	}
	d.pdf.SetLineWidth(t.BorderWidth)
	d.pdf.SetDrawColor(t.BorderColor.R, t.BorderColor.G, t.BorderColor.B)
	for _, rules := range [][]layout.Rule{t.HRules, t.VRules} {
		for _, rl := range rules {
			d.pdf.Line(x0+rl.X1, y0+rl.Y1, x0+rl.X2, y0+rl.Y2)
		}
	}
}

func (d *drawer) image(im *layout.Image, dx, dy float64) error {
	img, err := d.images.Load(d.ctx, im.Source)
	if err != nil {
		return diag.Fatalw(im.ElementID, "source", imaging.MsgKey(err), err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	if img.Info.Format == "jpeg" {
		opts.ImageType = "JPG"
	}
	d.pdf.RegisterImageOptionsReader(img.Key, opts, bytes.NewReader(img.Data))

	box := layout.Box{X: dx + im.X, Y: dy + im.Y, W: im.W, H: im.H}
	x, y, w, h := fit(box, float64(img.Info.Width), float64(img.Info.Height), im.Style)
	d.pdf.ImageOptions(img.Key, x, y, w, h, false, opts, 0, im.Link)
	if d.pdf.Err() {
		return diag.Fatalw(im.ElementID, "source", diag.MsgInvalidImage, d.pdf.Error())
	}
	return nil
}

// fit scales an image of iw x ih pixels into box keeping its aspect ratio
// and aligns it as st asks.
func fit(box layout.Box, iw, ih float64, st *style.Style) (x, y, w, h float64) {
	if iw <= 0 || ih <= 0 {
		return box.X, box.Y, box.W, box.H
	}
	scale := math.Min(box.W/iw, box.H/ih)
	w, h = iw*scale, ih*scale
	x, y = box.X, box.Y
	if st == nil {
		return x, y, w, h
	}
	switch st.HAlign {
	case style.AlignCenter:
		x += (box.W - w) / 2
	case style.AlignRight:
		x += box.W - w
	}
	switch st.VAlign {
	case style.AlignMiddle:
		y += (box.H - h) / 2
	case style.AlignBottom:
		y += box.H - h
	}
	return x, y, w, h
}

func (d *drawer) symbol(s *layout.Symbol, dx, dy float64) error {
	x, y, w, h := dx+s.X, dy+s.Y, s.W, s.H
	switch strings.ToUpper(s.Format) {
	case symbol.QR:
		key := barcode.RegisterQR(d.pdf, s.Content, qr.M, qr.Auto)
		side := math.Min(w, h)
		barcode.Barcode(d.pdf, key, x, y, side, side, false)
	case symbol.PDF417:
		key := barcode.RegisterPdf417(d.pdf, s.Content, 10, 2)
		barcode.Barcode(d.pdf, key, x, y, w, h, false)
	default:
		key := barcode.RegisterCode128(d.pdf, s.Content)
		bh := h
		if s.DisplayValue && s.Style != nil {
			th := s.Style.LineHeight()
			bh = math.Max(h-th, 1)
			st := *s.Style
			st.HAlign, st.VAlign, st.Padding = style.AlignCenter, style.AlignTop, style.Padding{}
			d.lines([]string{s.Content}, &st, x, y+bh, w, th, "")
		}
		barcode.Barcode(d.pdf, key, x, y, w, bh, false)
	}
	if d.pdf.Err() {
		return diag.Fatalw(s.ElementID, "content", diag.MsgInvalidBarCode, d.pdf.Error())
	}
	return nil
}

// drawWatermark draws the watermark text rotated around the page centre.
func drawWatermark(pdf *gofpdf.Fpdf, wm Watermark, pageW, pageH float64) {
	if wm.Text == "" {
		return
	}
	if wm.FontSize == 0 {
		wm.FontSize = 60
	}
	if wm.Opacity == 0 {
		wm.Opacity = 0.3
	}
	if wm.Angle == 0 {
		wm.Angle = 45
	}
	if wm.Color == (style.RGBColor{}) {
		wm.Color = style.RGBColor{R: 200, G: 200, B: 200}
	}
	pdf.SetFont("helvetica", "B", wm.FontSize)
	pdf.SetTextColor(wm.Color.R, wm.Color.G, wm.Color.B)
	pdf.SetAlpha(wm.Opacity, "Normal")

	text := pdf.UnicodeTranslatorFromDescriptor("")(wm.Text)
	cx, cy := pageW/2, pageH/2
	pdf.TransformBegin()
	pdf.TransformRotate(wm.Angle, cx, cy)
	pdf.Text(cx-pdf.GetStringWidth(text)/2, cy+wm.FontSize/3, text)
	pdf.TransformEnd()
	pdf.SetAlpha(1, "Normal")
}
