// Package docband generates documents from declarative report definitions.
//
// A report definition describes page geometry, a schema of typed parameters,
// a style table and elements placed in a header, content and footer band.
// Compile turns a definition into an immutable Template. Binding data to a
// Template yields a Report that renders to a paginated PDF, a spreadsheet
// workbook or a label printer command stream.
//
// Basic usage:
//
//	def, err := definition.Load("invoice.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rep, err := docband.New(def, map[string]any{"Name": "Acme"}, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if errs := rep.Errors(); len(errs) > 0 {
//	    log.Fatal(errs[0])
//	}
//	pdf, err := rep.GeneratePDF(context.Background())
package docband

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lvillar/docband/bind"
	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/element"
	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/page"
	"github.com/lvillar/docband/param"
	"github.com/lvillar/docband/pattern"
	"github.com/lvillar/docband/render"
	"github.com/lvillar/docband/render/pdf"
	"github.com/lvillar/docband/render/sbpl"
	"github.com/lvillar/docband/render/xlsx"
	"github.com/lvillar/docband/style"
)

// DefaultCurrency is used when neither the definition nor the options name a
// currency symbol.
const DefaultCurrency = "$"

// Template is a compiled report definition. It is immutable and safe for
// concurrent use by many Bind calls.
type Template struct {
	def       *definition.Report
	cfg       *config
	props     *page.Properties
	schema    *param.Schema
	bands     *element.Bands
	formatter *pattern.Formatter
	fonts     *layout.FontMeasurer
	engine    *layout.Engine
	errs      []diag.Error
}

// Compile builds the page properties, parameter schema, style table and
// element tree of def. Structural problems are recorded and surface through
// Report.Errors. Only a malformed locale or currency, an unloadable font or
// an unbuildable element tree fail Compile.
func Compile(def *definition.Report, opts ...Option) (*Template, error) {
	if def == nil {
		return nil, newReportError("Compile", ErrNilDefinition)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.complete()

	var errs diag.List
	props := page.New(def.DocumentProperties, &errs)

	locale := firstNonEmpty(cfg.locale, props.Locale)
	currency := firstNonEmpty(cfg.currency, props.Currency, DefaultCurrency)
	formatter, err := pattern.New(locale, currency)
	if err != nil {
		return nil, newReportError("Compile", err)
	}

	schema := param.NewSchema(def.Parameters, &errs)
	if cfg.saved != nil {
		schema.InheritPatterns(param.NewSchema(cfg.saved.Parameters, &diag.List{}))
	}
	bands, err := element.Build(def, style.NewTable(def.Styles, &errs), props, &errs)
	if err != nil {
		return nil, newReportError("Compile", err)
	}

	fonts, err := layout.NewFontMeasurer(cfg.fonts...)
	if err != nil {
		return nil, newReportError("Compile", fmt.Errorf("load fonts: %w", err))
	}

	engineOpts := []layout.Option{layout.WithLogger(cfg.logger)}
	if cfg.maxPages > 0 {
		engineOpts = append(engineOpts, layout.WithMaxPages(cfg.maxPages))
	}
	t := &Template{
		def:       def,
		cfg:       cfg,
		props:     props,
		schema:    schema,
		bands:     bands,
		formatter: formatter,
		fonts:     fonts,
		engine:    layout.NewEngine(props, fonts, engineOpts...),
		errs:      errs.Errors(),
	}
	cfg.logger.Debug("report compiled",
		zap.Int("parameters", len(schema.List())),
		zap.Int("errors", len(t.errs)),
		zap.String("locale", formatter.Locale()))
	return t, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Properties returns the resolved document properties.
func (t *Template) Properties() *page.Properties { return t.props }

// Bind binds data to the template. Literal parameters are bound first; the
// derived parameters are computed only when binding recorded no error.
// isTestData relaxes type coercion for designer previews.
func (t *Template) Bind(data map[string]any, isTestData bool) *Report {
	var errs diag.List
	for _, e := range t.errs {
		errs.Add(e)
	}
	log := t.cfg.logger

	b := bind.New(bind.WithClock(t.cfg.now), bind.WithLocation(t.cfg.location), bind.WithLogger(log))
	tree, deferred := b.Bind(t.schema, data, isTestData, &errs)

	r := &Report{t: t, tree: tree}
	if errs.Len() == 0 {
		ec := eval.NewContext(t.schema, tree, t.formatter, eval.WithLogger(log), eval.WithLocation(t.cfg.location))
		r.fatal = eval.ComputeParameters(ec, deferred, &errs)
	}
	r.errs = errs.Errors()
	if r.fatal != nil {
		log.Warn("computing parameters failed", zap.Error(r.fatal))
	}
	return r
}

// New compiles def and binds data to it.
func New(def *definition.Report, data map[string]any, isTestData bool, opts ...Option) (*Report, error) {
	t, err := Compile(def, opts...)
	if err != nil {
		return nil, err
	}
	return t.Bind(data, isTestData), nil
}

// Report is a template with bound data. Its generate methods may be called
// any number of times, also concurrently: every call owns its render state.
type Report struct {
	t     *Template
	tree  bind.Tree
	errs  []diag.Error
	fatal error
}

// Errors returns the validation errors recorded while compiling and binding.
func (r *Report) Errors() []diag.Error {
	return append([]diag.Error(nil), r.errs...)
}

// Data returns the bound data tree including derived parameters.
func (r *Report) Data() bind.Tree { return r.tree }

// ready reports why the report cannot be rendered. Validation errors only
// block rendering under WithStrictValidation.
func (r *Report) ready(op string) error {
	switch {
	case r.fatal != nil:
		return newReportError(op, r.fatal)
	case r.t.cfg.strict && len(r.errs) > 0:
		return newReportError(op, fmt.Errorf("%w: %v", ErrInvalidReport, r.errs[0]))
	}
	return nil
}

func (r *Report) context() *eval.Context {
	return eval.NewContext(r.t.schema, r.tree, r.t.formatter,
		eval.WithLogger(r.t.cfg.logger), eval.WithLocation(r.t.cfg.location))
}

func (r *Report) job() *render.Job {
	return &render.Job{
		Properties: r.t.props,
		Images:     imaging.NewLoader(r.t.cfg.fetcher, r.t.cfg.logger),
		Logger:     r.t.cfg.logger,
	}
}

// Verify prepares every band without laying it out and returns the first
// fatal error, such as an unresolvable reference or an invalid bar code.
func (r *Report) Verify(ctx context.Context) error {
	if err := r.ready("Verify"); err != nil {
		return err
	}
	ec := r.context()
	ec.SetPageNumber(1)
	for _, c := range []*element.Container{r.t.bands.Header, r.t.bands.Content, r.t.bands.Footer} {
		if err := ctx.Err(); err != nil {
			return newReportError("Verify", err)
		}
		if c == nil {
			continue
		}
		if err := r.t.engine.Prepare(ec, c); err != nil {
			return newReportError("Verify", err)
		}
	}
	return nil
}

// GeneratePDF paginates the report and returns the PDF document.
func (r *Report) GeneratePDF(ctx context.Context) ([]byte, error) {
	if err := r.ready("GeneratePDF"); err != nil {
		return nil, err
	}
	doc, err := r.t.engine.Paginate(ctx, r.context(), r.t.bands)
	if err != nil {
		return nil, newReportError("GeneratePDF", err)
	}
	cfg := r.t.cfg
	renderer := pdf.New(
		pdf.WithFonts(r.t.fonts),
		pdf.WithCompression(cfg.compress),
		pdf.WithClock(cfg.now),
		pdf.WithWatermark(cfg.watermark),
		pdf.WithBackground(cfg.background),
		pdf.WithMetadata(cfg.title, cfg.author),
	)
	job := r.job()
	job.Document = doc
	out, err := renderer.Render(ctx, job)
	if err != nil {
		return nil, newReportError("GeneratePDF", err)
	}
	return out, nil
}

// flatten lays out the bands once without page breaks. The header and footer
// are left out when they are never displayed.
func (r *Report) flatten(ctx context.Context, header, footer bool) (*render.Bands, error) {
	ec := r.context()
	ec.SetPageNumber(1)
	ec.SetPageCount(1)
	var bands render.Bands
	var err error
	if bands.Content, bands.ContentHeight, err = r.t.engine.Flatten(ctx, ec, r.t.bands.Content); err != nil {
		return nil, err
	}
	if header && r.t.props.HeaderDisplay != page.Never {
		if bands.Header, bands.HeaderHeight, err = r.t.engine.Flatten(ctx, ec, r.t.bands.Header); err != nil {
			return nil, err
		}
	}
	if footer && r.t.props.FooterDisplay != page.Never {
		if bands.Footer, bands.FooterHeight, err = r.t.engine.Flatten(ctx, ec, r.t.bands.Footer); err != nil {
			return nil, err
		}
	}
	return &bands, nil
}

// GenerateXLSX writes the header, content and footer bands as one worksheet.
func (r *Report) GenerateXLSX(ctx context.Context) ([]byte, error) {
	if err := r.ready("GenerateXLSX"); err != nil {
		return nil, err
	}
	bands, err := r.flatten(ctx, true, true)
	if err != nil {
		return nil, newReportError("GenerateXLSX", err)
	}
	job := r.job()
	job.Bands = bands
	out, err := xlsx.New(xlsx.WithCurrency(r.t.formatter.Currency())).Render(ctx, job)
	if err != nil {
		return nil, newReportError("GenerateXLSX", err)
	}
	return out, nil
}

// GenerateSBPL returns the content band as a label printer command stream.
func (r *Report) GenerateSBPL(ctx context.Context) (string, error) {
	if err := r.ready("GenerateSBPL"); err != nil {
		return "", err
	}
	bands, err := r.flatten(ctx, false, false)
	if err != nil {
		return "", newReportError("GenerateSBPL", err)
	}
	job := r.job()
	job.Bands = bands
	renderer := sbpl.New(sbpl.WithDotsPerMM(r.t.cfg.dotsPerMM), sbpl.WithRotation(r.t.def.Rotate))
	out, err := renderer.Render(ctx, job)
	if err != nil {
		return "", newReportError("GenerateSBPL", err)
	}
	return string(out), nil
}

// WritePDF generates the PDF and stores it at dest, a file path or an
// s3://bucket/key URL.
func (r *Report) WritePDF(ctx context.Context, dest string) error {
	data, err := r.GeneratePDF(ctx)
	if err != nil {
		return err
	}
	return r.write(ctx, "WritePDF", dest, data)
}

// WriteXLSX generates the workbook and stores it at dest, a file path or an
// s3://bucket/key URL.
func (r *Report) WriteXLSX(ctx context.Context, dest string) error {
	data, err := r.GenerateXLSX(ctx)
	if err != nil {
		return err
	}
	return r.write(ctx, "WriteXLSX", dest, data)
}

func (r *Report) write(ctx context.Context, op, dest string, data []byte) error {
	if err := r.t.cfg.sink.Write(ctx, dest, data); err != nil {
		return newReportError(op, err)
	}
	return nil
}
