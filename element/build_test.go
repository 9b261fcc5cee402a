package element

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/page"
	"github.com/lvillar/docband/style"
)

func build(t *testing.T, def *definition.Report) (*Bands, *diag.List) {
	t.Helper()
	var errs diag.List
	props := page.New(def.DocumentProperties, &errs)
	bands, err := Build(def, style.NewTable(def.Styles, &errs), props, &errs)
	require.NoError(t, err)
	return bands, &errs
}

func text(id, container string, x, y, w, h float64) definition.Element {
	return definition.Element{
		ID: definition.ID(id), ElementType: "text", ContainerID: definition.ID(container),
		X: definition.Num(x), Y: definition.Num(y), Width: definition.Num(w), Height: definition.Num(h),
	}
}

func TestBuildSortsAndLinksPredecessors(t *testing.T) {
	def := &definition.Report{
		DocumentProperties: definition.DocumentProperties{PageFormat: "A4"},
		DocElements: []definition.Element{
			text("c", definition.ContentContainer, 0, 100, 100, 20),
			text("a", definition.ContentContainer, 50, 0, 100, 20),
			text("b", definition.ContentContainer, 0, 0, 40, 50),
		},
	}
	bands, errs := build(t, def)
	require.Equal(t, 0, errs.Len(), errs.Err())

	var ids []string
	for _, el := range bands.Content.Elements {
		ids = append(ids, el.Common().ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Equal(t, [][]int{nil, nil, {0, 1}}, bands.Content.Preds)
}

func TestBuildRecordsStructuralErrors(t *testing.T) {
	def := &definition.Report{
		DocumentProperties: definition.DocumentProperties{PageFormat: "A4", Header: true, HeaderSize: 40},
		DocElements: []definition.Element{
			text("outside", definition.ContentContainer, -1, 0, 10, 10),
			text("wide", definition.ContentContainer, 500, 0, 200, 10),
			text("tall", definition.HeaderContainer, 0, 30, 10, 20),
			text("lost", "nowhere", 0, 0, 10, 10),
			{ID: "odd", ElementType: "hologram", ContainerID: definition.ContentContainer},
			{ID: "cond", ElementType: "text", ContainerID: definition.ContentContainer, PrintIf: "${A} >"},
			{ID: "styled", ElementType: "text", ContainerID: definition.ContentContainer, StyleID: "42"},
		},
	}
	bands, errs := build(t, def)

	got := map[string]string{}
	for _, e := range errs.Errors() {
		got[e.ObjectID] = e.MsgKey
	}
	assert.Equal(t, map[string]string{
		"outside": diag.MsgInvalidPosition,
		"wide":    diag.MsgInvalidSize,
		"tall":    diag.MsgInvalidSize,
		"lost":    diag.MsgUnknownContainer,
		"odd":     diag.MsgUnknownElementType,
		"cond":    diag.MsgInvalidExpression,
		"styled":  diag.MsgInvalidStyle,
	}, got)

	assert.Len(t, bands.Content.Elements, 4, "misplaced elements are kept, unknown ones dropped")
	assert.Len(t, bands.Header.Elements, 1)
}

func TestHiddenBandsSkipBoundsCheck(t *testing.T) {
	def := &definition.Report{
		DocumentProperties: definition.DocumentProperties{PageFormat: "A4"},
		DocElements:        []definition.Element{text("f", definition.FooterContainer, 0, 0, 10, 10)},
	}
	bands, errs := build(t, def)
	assert.Equal(t, 0, errs.Len())
	assert.False(t, bands.Footer.Visible)
}

func TestBuildTable(t *testing.T) {
	cell := func(content string, width float64, span int) definition.TableCell {
		return definition.TableCell{Content: content, Width: definition.Num(width), Colspan: definition.Num(span)}
	}
	def := &definition.Report{
		DocumentProperties: definition.DocumentProperties{PageFormat: "A4"},
		Styles:             []definition.Style{{ID: "1", FontSize: 10}},
		DocElements: []definition.Element{{
			ID: "t", ElementType: "table", ContainerID: definition.ContentContainer, StyleID: "1",
			DataSource: "${Invoice}", Header: true, Footer: true, Border: "frame_row",
			HeaderData: &definition.TableRow{Height: 20, ColumnData: []definition.TableCell{
				cell("Item", 100, 1), cell("Qty", 50, 1), cell("Amount", 80, 1),
			}},
			ContentDataRows: []definition.TableRow{{ColumnData: []definition.TableCell{
				cell("${Description}", 0, 2), cell("${Amount}", 0, 1),
			}}},
			FooterData: &definition.TableRow{Height: 20, ColumnData: []definition.TableCell{
				cell("Total", 0, 1), cell("${Total}", 0, 2),
			}},
		}},
	}
	bands, errs := build(t, def)
	require.Equal(t, 0, errs.Len(), errs.Err())

	tbl := bands.Content.Elements[0].(*Table)
	assert.Equal(t, []float64{100, 50, 80}, tbl.Columns)
	assert.Equal(t, 230.0, tbl.Width)
	assert.Equal(t, BorderFrameRow, tbl.Border)
	assert.Equal(t, 1.0, tbl.BorderWidth)

	require.Len(t, tbl.ContentRows, 1)
	row := tbl.ContentRows[0]
	assert.Equal(t, 150.0, row.Cells[0].Width)
	assert.Equal(t, 80.0, row.Cells[1].Width)
	assert.Equal(t, 10.0+2+2, row.Height, "line height plus vertical padding")
	assert.Equal(t, 10.0, row.Cells[0].Style.FontSize, "cells inherit the table style")

	assert.Equal(t, 130.0, tbl.Footer.Cells[1].Width)
	assert.Equal(t, 20.0+14+20, tbl.Height)
}

func TestBuildSectionAndFrameContainers(t *testing.T) {
	def := &definition.Report{
		DocumentProperties: definition.DocumentProperties{PageFormat: "A4"},
		DocElements: []definition.Element{
			{ID: "s", ElementType: "section", ContainerID: definition.ContentContainer, Y: 10, Height: 30,
				DataSource: "${Items}", Header: true, HeaderHeight: 15},
			text("in-section", "s_content", 0, 0, 100, 20),
			text("in-header", "s_header", 0, 0, 100, 15),
			{ID: "f", ElementType: "frame", ContainerID: definition.ContentContainer, Y: 100, Width: 200, Height: 80},
			text("in-frame", "f", 10, 10, 100, 20),
			text("too-low", "f", 0, 70, 100, 20),
		},
	}
	bands, errs := build(t, def)
	require.Equal(t, 1, errs.Len())
	assert.Equal(t, "too-low", errs.Errors()[0].ObjectID)

	sec := bands.Content.Elements[0].(*Section)
	assert.Equal(t, 45.0, sec.Height)
	assert.Equal(t, bands.Content.Width, sec.Width)
	assert.Equal(t, sec.Width, sec.Content.Width)
	require.Len(t, sec.Content.Elements, 1)
	require.Len(t, sec.Header.Elements, 1)
	assert.Nil(t, sec.Footer)

	fr := bands.Content.Elements[1].(*Frame)
	assert.Len(t, fr.Container.Elements, 2)
}

func TestBuildRecordsMalformedColors(t *testing.T) {
	def := &definition.Report{
		DocumentProperties: definition.DocumentProperties{PageFormat: "A4"},
		DocElements: []definition.Element{
			{ID: "l", ElementType: "line", ContainerID: definition.ContentContainer, Width: 100, Height: 1, Color: "#00ff0"},
			{
				ID: "t", ElementType: "table", ContainerID: definition.ContentContainer, Y: 10,
				BorderColor: "#gggggg",
				ContentDataRows: []definition.TableRow{{ID: "r", BackgroundColor: "#c0c0c0c", ColumnData: []definition.TableCell{
					{Content: "x", Width: 50},
				}}},
			},
		},
	}
	bands, errs := build(t, def)

	var fields []string
	for _, e := range errs.Errors() {
		assert.Equal(t, diag.MsgInvalidColor, e.MsgKey)
		fields = append(fields, e.ObjectID+"."+e.Field)
	}
	assert.Equal(t, []string{"l.color", "t.borderColor", "r.backgroundColor"}, fields)

	tbl := bands.Content.Elements[1].(*Table)
	assert.Equal(t, style.RGBColor{}, tbl.BorderColor)
	assert.Nil(t, tbl.ContentRows[0].Background)
}
