// Package definition provides the structured report definition consumed by
// the engine.
//
// A definition is JSON (or YAML with the same keys) describing document
// properties, the parameter schema, the style table and a flat list of
// positioned elements. Every element names the container that owns it:
// the bands "0_header", "0_content" and "0_footer", a frame id, or one of a
// section's "<id>_header", "<id>_content" and "<id>_footer" containers.
//
// Example JSON:
//
//	{
//	  "version": 2,
//	  "documentProperties": {"pageFormat": "A4", "unit": "mm"},
//	  "parameters": [{"id": 1, "name": "Name", "type": "string"}],
//	  "styles": [{"id": 1, "bold": true, "font": "helvetica", "fontSize": 12}],
//	  "docElements": [{
//	    "id": 2, "elementType": "text", "containerId": "0_content",
//	    "x": 0, "y": 0, "width": 200, "height": 20,
//	    "styleId": 1, "content": "Hello ${Name}"
//	  }]
//	}
package definition

// Report is the top-level report definition.
type Report struct {
	Version            int                `json:"version,omitempty"`
	Rotate             string             `json:"rotate,omitempty"` // printer rotation directive, default "%0"
	DocumentProperties DocumentProperties `json:"documentProperties"`
	Parameters         []Parameter        `json:"parameters"`
	Styles             []Style            `json:"styles"`
	DocElements        []Element          `json:"docElements"`
}

// DocumentProperties describes page geometry and band layout.
type DocumentProperties struct {
	PageFormat    string `json:"pageFormat,omitempty"` // A3, A4, A5, letter, legal, user_defined
	PageWidth     Num    `json:"pageWidth,omitempty"`
	PageHeight    Num    `json:"pageHeight,omitempty"`
	Unit          string `json:"unit,omitempty"`        // mm or inch
	Orientation   string `json:"orientation,omitempty"` // portrait or landscape
	ContentHeight Num    `json:"contentHeight,omitempty"`
	MarginLeft    Num    `json:"marginLeft,omitempty"`
	MarginTop     Num    `json:"marginTop,omitempty"`
	MarginRight   Num    `json:"marginRight,omitempty"`
	MarginBottom  Num    `json:"marginBottom,omitempty"`

	Header        bool   `json:"header,omitempty"`
	HeaderSize    Num    `json:"headerSize,omitempty"`
	HeaderDisplay string `json:"headerDisplay,omitempty"` // always, never, not_on_first_page
	Footer        bool   `json:"footer,omitempty"`
	FooterSize    Num    `json:"footerSize,omitempty"`
	FooterDisplay string `json:"footerDisplay,omitempty"`

	PatternLocale         string `json:"patternLocale,omitempty"`
	PatternCurrencySymbol string `json:"patternCurrencySymbol,omitempty"`
}

// Parameter is one entry of the parameter schema.
type Parameter struct {
	ID            ID          `json:"id"`
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	ArrayItemType string      `json:"arrayItemType,omitempty"`
	Eval          bool        `json:"eval,omitempty"`
	Nullable      bool        `json:"nullable,omitempty"`
	Pattern       string      `json:"pattern,omitempty"`
	Expression    string      `json:"expression,omitempty"`
	TestData      string      `json:"testData,omitempty"`
	Children      []Parameter `json:"children,omitempty"`
}

// Style is one entry of the style table. The same shape is used for inline
// element styles.
type Style struct {
	ID                  ID     `json:"id,omitempty"`
	Name                string `json:"name,omitempty"`
	Bold                bool   `json:"bold,omitempty"`
	Italic              bool   `json:"italic,omitempty"`
	Underline           bool   `json:"underline,omitempty"`
	Strikethrough       bool   `json:"strikethrough,omitempty"`
	HorizontalAlignment string `json:"horizontalAlignment,omitempty"` // left, center, right, justify
	VerticalAlignment   string `json:"verticalAlignment,omitempty"`   // top, middle, bottom
	TextColor           string `json:"textColor,omitempty"`
	BackgroundColor     string `json:"backgroundColor,omitempty"`
	Font                string `json:"font,omitempty"`
	FontSize            Num    `json:"fontSize,omitempty"`
	LineSpacing         Num    `json:"lineSpacing,omitempty"`
	BorderColor         string `json:"borderColor,omitempty"`
	BorderWidth         Num    `json:"borderWidth,omitempty"`
	BorderAll           bool   `json:"borderAll,omitempty"`
	BorderLeft          bool   `json:"borderLeft,omitempty"`
	BorderTop           bool   `json:"borderTop,omitempty"`
	BorderRight         bool   `json:"borderRight,omitempty"`
	BorderBottom        bool   `json:"borderBottom,omitempty"`
	PaddingLeft         Num    `json:"paddingLeft,omitempty"`
	PaddingTop          Num    `json:"paddingTop,omitempty"`
	PaddingRight        Num    `json:"paddingRight,omitempty"`
	PaddingBottom       Num    `json:"paddingBottom,omitempty"`
	Pattern             string `json:"pattern,omitempty"`
}

// Element is a single positioned element. ElementType determines which of
// the remaining fields are relevant.
type Element struct {
	ID          ID     `json:"id"`
	ElementType string `json:"elementType"` // text, line, image, bar_code, qr_code, table, page_break, frame, section
	ContainerID ID     `json:"containerId"`
	X           Num    `json:"x"`
	Y           Num    `json:"y"`
	Width       Num    `json:"width"`
	Height      Num    `json:"height"`
	StyleID     ID     `json:"styleId,omitempty"`
	Style       *Style `json:"style,omitempty"` // inline style, used when StyleID is empty

	PrintIf               string `json:"printIf,omitempty"`
	RemoveEmptyElement    bool   `json:"removeEmptyElement,omitempty"`
	AlwaysPrintOnSamePage bool   `json:"alwaysPrintOnSamePage,omitempty"`

	// text, bar_code, qr_code
	Content string `json:"content,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Link    string `json:"link,omitempty"`
	Eval    bool   `json:"eval,omitempty"`

	// line
	Color string `json:"color,omitempty"`

	// image
	Source        string `json:"source,omitempty"`
	Image         string `json:"image,omitempty"` // static base64 data URI
	ImageFilename string `json:"imageFilename,omitempty"`

	// bar_code, qr_code
	Format       string `json:"format,omitempty"` // CODE128, QR, PDF417
	DisplayValue bool   `json:"displayValue,omitempty"`

	// table, section
	DataSource string `json:"dataSource,omitempty"`
	Header     bool   `json:"header,omitempty"`
	Footer     bool   `json:"footer,omitempty"`

	// table
	Columns         Num        `json:"columns,omitempty"`
	HeaderData      *TableRow  `json:"headerData,omitempty"`
	ContentData     *TableRow  `json:"contentData,omitempty"` // version 1 definitions
	ContentDataRows []TableRow `json:"contentDataRows,omitempty"`
	FooterData      *TableRow  `json:"footerData,omitempty"`
	Border          string     `json:"border,omitempty"` // grid, frame_row, frame, row, none
	BorderWidth     Num        `json:"borderWidth,omitempty"`
	BorderColor     string     `json:"borderColor,omitempty"`
	RepeatHeader    bool       `json:"repeatHeader,omitempty"`

	// section
	HeaderHeight  Num `json:"headerHeight,omitempty"`
	ContentHeight Num `json:"contentHeight,omitempty"`
	FooterHeight  Num `json:"footerHeight,omitempty"`

	// frame
	Label                 string `json:"label,omitempty"`
	ShrinkToContentHeight bool   `json:"shrinkToContentHeight,omitempty"`

	SpreadsheetHide        bool `json:"spreadsheet_hide,omitempty"`
	SpreadsheetColumn      Num  `json:"spreadsheet_column,omitempty"`
	SpreadsheetColspan     Num  `json:"spreadsheet_colspan,omitempty"`
	SpreadsheetAddEmptyRow bool `json:"spreadsheet_addEmptyRow,omitempty"`
}

// TableRow describes a header, content or footer row of a table.
type TableRow struct {
	ID              ID          `json:"id,omitempty"`
	Height          Num         `json:"height,omitempty"`
	PrintIf         string      `json:"printIf,omitempty"`
	BackgroundColor string      `json:"backgroundColor,omitempty"`
	ColumnData      []TableCell `json:"columnData"`
}

// TableCell is one cell of a table row.
type TableCell struct {
	ID      ID     `json:"id,omitempty"`
	Content string `json:"content,omitempty"`
	Width   Num    `json:"width,omitempty"`
	Colspan Num    `json:"colspan,omitempty"`
	StyleID ID     `json:"styleId,omitempty"`
	Style   *Style `json:"style,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Link    string `json:"link,omitempty"`
}

// Band container ids.
const (
	HeaderContainer  = "0_header"
	ContentContainer = "0_content"
	FooterContainer  = "0_footer"
)
