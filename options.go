package docband

import (
	"time"

	"go.uber.org/zap"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/render/pdf"
	"github.com/lvillar/docband/storage"
)

// Option is a functional option for configuring a report via Compile or New.
type Option func(*config)

type config struct {
	logger     *zap.Logger
	locale     string
	currency   string
	fonts      []layout.Font
	fetcher    storage.Fetcher
	sink       storage.Sink
	now        func() time.Time
	location   *time.Location
	dotsPerMM  float64
	watermark  pdf.Watermark
	background []byte
	compress   bool
	maxPages   int
	title      string
	author     string
	strict     bool
	saved      *definition.Report
}

func defaultConfig() *config {
	return &config{
		logger:   zap.NewNop(),
		now:      time.Now,
		location: time.Local,
		compress: true,
	}
}

// complete fills the collaborators that depend on other options. URLs are
// fetched and outputs written through a default storage router.
func (c *config) complete() {
	if c.fetcher == nil || c.sink == nil {
		router := storage.NewRouter(storage.WithLogger(c.logger))
		if c.fetcher == nil {
			c.fetcher = router
		}
		if c.sink == nil {
			c.sink = router
		}
	}
}

// WithLogger sets the logger used by every stage of the report.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLocale overrides the pattern locale of the definition, e.g. "de" or
// "en_us". An unknown locale makes Compile fail.
func WithLocale(locale string) Option {
	return func(c *config) {
		c.locale = locale
	}
}

// WithCurrencySymbol overrides the currency symbol substituted into number
// patterns.
func WithCurrencySymbol(symbol string) Option {
	return func(c *config) {
		c.currency = symbol
	}
}

// WithFonts registers TrueType fonts used for measuring and drawing text.
func WithFonts(fonts ...layout.Font) Option {
	return func(c *config) {
		c.fonts = append(c.fonts, fonts...)
	}
}

// WithFetcher sets where image URLs are read from. The default fetches
// http(s) URLs only.
func WithFetcher(f storage.Fetcher) Option {
	return func(c *config) {
		c.fetcher = f
	}
}

// WithSink sets where WritePDF and WriteXLSX store their output. The default
// writes file paths only.
func WithSink(s storage.Sink) Option {
	return func(c *config) {
		c.sink = s
	}
}

// WithClock sets the clock used for date defaults and document metadata.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the location textual dates are parsed in.
func WithLocation(loc *time.Location) Option {
	return func(c *config) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithDotsPerMM sets the label printer resolution.
func WithDotsPerMM(n float64) Option {
	return func(c *config) {
		c.dotsPerMM = n
	}
}

// WithWatermark draws a text watermark on every PDF page.
func WithWatermark(w pdf.Watermark) Option {
	return func(c *config) {
		c.watermark = w
	}
}

// WithBackgroundPDF places the first page of a PDF behind every PDF page.
func WithBackgroundPDF(data []byte) Option {
	return func(c *config) {
		c.background = data
	}
}

// WithCompression toggles PDF stream compression. It is on by default.
func WithCompression(on bool) Option {
	return func(c *config) {
		c.compress = on
	}
}

// WithMaxPages lowers the page ceiling of pagination.
func WithMaxPages(n int) Option {
	return func(c *config) {
		c.maxPages = n
	}
}

// WithMetadata sets the PDF title and author.
func WithMetadata(title, author string) Option {
	return func(c *config) {
		c.title, c.author = title, author
	}
}

// WithStrictValidation makes the generate methods refuse a report that
// recorded validation errors. By default only fatal errors stop a render and
// the caller inspects Report.Errors to decide.
func WithStrictValidation() Option {
	return func(c *config) {
		c.strict = true
	}
}

// WithPatternsFrom fills the parameters that declare no pattern with the
// pattern the same parameter has in saved, typically an earlier version of
// the definition edited in a designer.
func WithPatternsFrom(saved *definition.Report) Option {
	return func(c *config) { c.saved = saved }
}
