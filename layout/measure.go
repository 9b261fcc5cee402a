package layout

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"

	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/style"
)

// Measurer returns the width of a string in points when set in st.
type Measurer interface {
	StringWidth(s string, st *style.Style) float64
}

// Font is a TrueType font registered under a family name. Style is "", "B",
// "I" or "BI".
type Font struct {
	Family string
	Style  string
	File   string
}

var coreFonts = map[string]bool{
	"helvetica": true, "arial": true, "times": true, "courier": true,
	"symbol": true, "zapfdingbats": true,
}

// FontMeasurer measures text with gofpdf font metrics, so every backend
// agrees on line breaks. It is safe for concurrent use.
type FontMeasurer struct {
	mu    sync.Mutex
	pdf   *gofpdf.Fpdf
	tr    func(string) string
	fonts map[string]map[string]bool // family -> registered styles
	list  []Font
}

// NewFontMeasurer creates a measurer knowing the core fonts plus fonts.
func NewFontMeasurer(fonts ...Font) (*FontMeasurer, error) {
	pdf := gofpdf.New("P", "pt", "A4", "")
	m := &FontMeasurer{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		fonts: make(map[string]map[string]bool),
	}
	for _, f := range fonts {
		family := strings.ToLower(f.Family)
		pdf.AddUTF8Font(family, f.Style, f.File)
		if pdf.Err() {
			return nil, pdf.Error()
		}
		if m.fonts[family] == nil {
			m.fonts[family] = make(map[string]bool)
		}
		m.fonts[family][f.Style] = true
		m.list = append(m.list, Font{Family: family, Style: f.Style, File: f.File})
	}
	return m, nil
}

// Fonts returns the registered fonts with lower-case family names.
func (m *FontMeasurer) Fonts() []Font { return m.list }

// Resolve returns the family and style the text of st is set in: a
// registered font, a core font or helvetica.
func (m *FontMeasurer) Resolve(st *style.Style) (family, fontStyle string, utf8Font bool) {
	family = strings.ToLower(st.Font)
	fontStyle = measureStyle(st)
	if styles, ok := m.fonts[family]; ok {
		if !styles[fontStyle] {
			fontStyle = ""
		}
		return family, fontStyle, true
	}
	if !coreFonts[family] {
		family = "helvetica"
	}
	if family == "symbol" || family == "zapfdingbats" {
		fontStyle = ""
	}
	return family, fontStyle, false
}

// StringWidth implements Measurer.
func (m *FontMeasurer) StringWidth(s string, st *style.Style) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	family, fontStyle, uni := m.Resolve(st)
	m.pdf.SetFont(family, fontStyle, st.FontSize)
	if !uni {
		s = m.tr(s)
	}
	return m.pdf.GetStringWidth(s)
}

func measureStyle(st *style.Style) string {
	var s string
	if st.Bold {
		s += "B"
	}
	if st.Italic {
		s += "I"
	}
	return s
}

// Wrap breaks text into lines no wider than width. Words longer than a line
// are broken between runes. Page tokens are measured as four digits.
func Wrap(m Measurer, text string, st *style.Style, width float64) []string {
	if text == "" {
		return nil
	}
	measure := func(s string) float64 {
		return m.StringWidth(eval.ResolvePageTokens(s, 9999, 9999), st)
	}
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, w := range words {
			candidate := w
			if line != "" {
				candidate = line + " " + w
			}
			if measure(candidate) <= width {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			for measure(w) > width && utf8.RuneCountInString(w) > 1 {
				cut := breakPoint(w, width, measure)
				lines = append(lines, w[:cut])
				w = w[cut:]
			}
			line = w
		}
		lines = append(lines, line)
	}
	return lines
}

// breakPoint returns the byte offset of the longest prefix of w fitting in
// width, at least one rune. Page tokens are never split.
func breakPoint(w string, width float64, measure func(string) float64) int {
	cut := 0
	for cut < len(w) {
		next := cut + unitLen(w[cut:])
		if cut > 0 && measure(w[:next]) > width {
			break
		}
		cut = next
	}
	return cut
}

func unitLen(s string) int {
	if s[0] == '\x1f' {
		if end := strings.IndexByte(s[1:], '\x1f'); end >= 0 {
			return end + 2
		}
	}
	_, n := utf8.DecodeRuneInString(s)
	return n
}
