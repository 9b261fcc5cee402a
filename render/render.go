// Package render defines the contract between the layout engine and the
// output backends.
//
// A backend receives a Job holding either the paginated document (paged and
// command-stream output) or the bands laid out once without page breaks
// (tabular output), and returns the encoded result.
package render

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lvillar/docband/eval"
	"github.com/lvillar/docband/imaging"
	"github.com/lvillar/docband/layout"
	"github.com/lvillar/docband/page"
)

// ErrNoDocument is returned when a Job lacks the input a backend needs.
var ErrNoDocument = errors.New("render: nothing to render")

// Renderer encodes a laid-out report.
type Renderer interface {
	Render(ctx context.Context, job *Job) ([]byte, error)
}

// Bands holds the three bands laid out once, each relative to its own band
// origin.
type Bands struct {
	Header        []layout.Item
	HeaderHeight  float64
	Content       []layout.Item
	ContentHeight float64
	Footer        []layout.Item
	FooterHeight  float64
}

// Job is one render request.
type Job struct {
	Properties *page.Properties
	Document   *layout.Document // paged backends
	Bands      *Bands           // tabular backend
	Images     *imaging.Loader
	Logger     *zap.Logger
}

// Log returns the job logger or a no-op logger.
func (j *Job) Log() *zap.Logger {
	if j.Logger == nil {
		return zap.NewNop()
	}
	return j.Logger
}

// PageCount is the number of pages of the paginated document.
func (j *Job) PageCount() int {
	if j.Document == nil {
		return 0
	}
	return len(j.Document.Pages)
}

// Lines resolves the page tokens left in lines.
func Lines(lines []string, number, count int) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = eval.ResolvePageTokens(l, number, count)
	}
	return out
}

// Visit calls fn for every item, descending into frames. dx and dy are the
// offsets to add to the item coordinates to make them absolute. fn sees a
// frame before its children.
func Visit(items []layout.Item, fn func(it layout.Item, dx, dy float64)) {
	visit(items, 0, 0, fn)
}

func visit(items []layout.Item, dx, dy float64, fn func(layout.Item, float64, float64)) {
	for _, it := range items {
		fn(it, dx, dy)
		if f, ok := it.(*layout.Frame); ok {
			visit(f.Items, dx+f.X, dy+f.Y, fn)
		}
	}
}
