package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
)

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, RGBColor{255, 128, 0}, *c)
	assert.Equal(t, "FF8000", c.Hex())

	c, err = ParseColor("#0f0")
	require.NoError(t, err)
	assert.Equal(t, RGBColor{0, 255, 0}, *c)

	c, err = ParseColor("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = ParseColor("#12")
	assert.Error(t, err)
	_, err = ParseColor("#zzzzzz")
	assert.Error(t, err)
}

func TestFromDefinition(t *testing.T) {
	var errs diag.List
	s := FromDefinition(definition.Style{
		ID: "3", Bold: true, Italic: true, Underline: true,
		Font: "Times", FontSize: 9, HorizontalAlignment: "right",
		TextColor: "#102030", BackgroundColor: "#ffffff",
		BorderAll: true, BorderWidth: 2,
	}, "3", &errs)
	assert.Zero(t, errs.Len())

	assert.Equal(t, "times", s.Font)
	assert.Equal(t, 9.0, s.FontSize)
	assert.Equal(t, "BIU", s.FontStyle())
	assert.Equal(t, "R", s.AlignCode())
	assert.Equal(t, RGBColor{0x10, 0x20, 0x30}, s.TextColor)
	require.NotNil(t, s.BackgroundColor)
	assert.True(t, s.Border.All())
	assert.Equal(t, 2.0, s.Border.Width)
	assert.Equal(t, 9.0, s.LineHeight())
}

func TestResolveRecordsMissingStyle(t *testing.T) {
	var errs diag.List
	tbl := NewTable([]definition.Style{{ID: "1", Bold: true}}, &errs)

	s := tbl.Resolve("1", nil, "10", &errs)
	assert.True(t, s.Bold)

	s = tbl.Resolve("99", nil, "11", &errs)
	assert.False(t, s.Bold)
	require.Equal(t, 1, errs.Len())
	assert.Equal(t, diag.Error{ObjectID: "11", Field: "styleId", MsgKey: diag.MsgInvalidStyle, Context: "99"}, errs.Errors()[0])

	s = tbl.Resolve("", &definition.Style{Italic: true}, "12", &errs)
	assert.True(t, s.Italic)
	assert.Equal(t, 1, errs.Len())
}

func TestMalformedColorsAreRecorded(t *testing.T) {
	var errs diag.List
	tbl := NewTable([]definition.Style{
		{ID: "1", TextColor: "#12", BackgroundColor: "#abc", BorderColor: "#zzzzzz"},
	}, &errs)

	s, ok := tbl.Get("1")
	require.True(t, ok)
	assert.Equal(t, Default().TextColor, s.TextColor)
	require.NotNil(t, s.BackgroundColor)
	assert.Equal(t, RGBColor{0xaa, 0xbb, 0xcc}, *s.BackgroundColor)

	require.Equal(t, 2, errs.Len())
	got := errs.Errors()
	assert.Equal(t, "1", got[0].ObjectID)
	assert.Equal(t, "textColor", got[0].Field)
	assert.Equal(t, diag.MsgInvalidColor, got[0].MsgKey)
	assert.Equal(t, "#12", got[0].Context)
	assert.Equal(t, "borderColor", got[1].Field)

	s = tbl.Resolve("", &definition.Style{BackgroundColor: "blue"}, "7", &errs)
	assert.Nil(t, s.BackgroundColor)
	require.Equal(t, 3, errs.Len())
	assert.Equal(t, diag.Error{
		ObjectID: "7", Field: "backgroundColor", MsgKey: diag.MsgInvalidColor,
		Context: "blue", Info: `style: invalid color "blue"`,
	}, errs.Errors()[2])
}
