package definition

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceJSON = `{
  "version": 2,
  "documentProperties": {
    "pageFormat": "A4", "unit": "mm", "orientation": "portrait",
    "marginLeft": "20", "marginTop": "20", "marginRight": "20", "marginBottom": "10",
    "header": true, "headerSize": "80", "headerDisplay": "always",
    "footer": true, "footerSize": "80", "footerDisplay": "always",
    "patternLocale": "de", "patternCurrencySymbol": "€"
  },
  "parameters": [
    {"id": 1, "name": "Invoice", "type": "array", "children": [
      {"id": 2, "name": "Description", "type": "string"},
      {"id": 3, "name": "Amount", "type": "number", "pattern": "#,##0.00"}
    ]},
    {"id": 4, "name": "Total", "type": "sum", "expression": "${Invoice.Amount}"}
  ],
  "styles": [{"id": "1", "bold": true, "fontSize": 12}],
  "docElements": [
    {"id": 10, "elementType": "text", "containerId": "0_content",
     "x": 0, "y": 0, "width": 200, "height": 20, "styleId": 1, "content": "${Total}"}
  ]
}`

func TestParseAcceptsStringNumbers(t *testing.T) {
	r, err := Parse([]byte(invoiceJSON))
	require.NoError(t, err)

	props := r.DocumentProperties
	assert.Equal(t, 20.0, props.MarginLeft.Float())
	assert.Equal(t, 80.0, props.HeaderSize.Float())
	assert.Equal(t, "de", props.PatternLocale)

	require.Len(t, r.Parameters, 2)
	assert.Equal(t, ID("1"), r.Parameters[0].ID)
	assert.Len(t, r.Parameters[0].Children, 2)
	assert.Equal(t, ID("1"), r.Styles[0].ID)

	require.Len(t, r.DocElements, 1)
	el := r.DocElements[0]
	assert.Equal(t, ID("10"), el.ID)
	assert.Equal(t, ID(ContentContainer), el.ContainerID)
	assert.Equal(t, ID("1"), el.StyleID)
}

func TestParseNormalizesVersionOneTables(t *testing.T) {
	src := `{"version": 1, "docElements": [{"id": 5, "elementType": "table",
		"containerId": "0_content", "contentData": {"height": 20, "columnData": [{"content": "x"}]}}]}`

	r, err := Parse([]byte(src))
	require.NoError(t, err)
	el := r.DocElements[0]
	assert.Nil(t, el.ContentData)
	require.Len(t, el.ContentDataRows, 1)
	assert.Equal(t, "x", el.ContentDataRows[0].ColumnData[0].Content)
	assert.Equal(t, 2, r.Version)
}

func TestNormalizedLeavesReceiverUntouched(t *testing.T) {
	row := TableRow{ColumnData: []TableCell{{Content: "a"}}}
	r := &Report{Version: 1, DocElements: []Element{{ID: "1", ElementType: "table", ContentData: &row}}}

	n := r.Normalized()
	assert.NotNil(t, r.DocElements[0].ContentData)
	assert.Nil(t, n.DocElements[0].ContentData)
	assert.Len(t, n.DocElements[0].ContentDataRows, 1)
}

func TestParseYAMLUsesJSONKeys(t *testing.T) {
	src := `
documentProperties:
  pageFormat: A5
  marginLeft: 10
parameters:
  - id: 1
    name: Name
    type: string
docElements:
  - id: 2
    elementType: text
    containerId: 0_content
    x: 0
    y: 0
    width: 100
    height: 20
    content: "${Name}"
`
	r, err := ParseYAML([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, "A5", r.DocumentProperties.PageFormat)
	assert.Equal(t, 10.0, r.DocumentProperties.MarginLeft.Float())
	assert.Equal(t, "${Name}", r.DocElements[0].Content)
}

func TestLoadDataKeepsNumbersExact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Amount": 0.1, "Rows": [{"Qty": 3}]}`), 0o644))

	data, err := LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, json.Number("0.1"), data["Amount"])

	ypath := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(ypath, []byte("Name: Acme\n"), 0o644))
	data, err = LoadData(ypath)
	require.NoError(t, err)
	assert.Equal(t, "Acme", data["Name"])
}

func TestNumRejectsGarbageNumbers(t *testing.T) {
	var n Num
	assert.Error(t, json.Unmarshal([]byte(`{}`), &n))
	require.NoError(t, json.Unmarshal([]byte(`"abc"`), &n))
	assert.Equal(t, Num(0), n)
}
