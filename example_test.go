package docband_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lvillar/docband"
	"github.com/lvillar/docband/definition"
)

const labelJSON = `{
  "documentProperties": {"pageFormat": "user_defined", "unit": "mm", "pageWidth": 100, "pageHeight": 50},
  "parameters": [{"id": 1, "name": "Sku", "type": "string"}],
  "styles": [{"id": 1, "bold": true, "fontSize": 14}],
  "docElements": [
    {"id": 2, "elementType": "text", "containerId": "0_content",
     "x": 0, "y": 0, "width": 200, "height": 20, "styleId": 1, "content": "SKU ${Sku}"}
  ]
}`

func ExampleNew() {
	def, err := definition.Parse([]byte(labelJSON))
	if err != nil {
		log.Fatal(err)
	}
	rep, err := docband.New(def, map[string]any{"Sku": "A-100"}, false)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("errors:", len(rep.Errors()))

	out, err := rep.GeneratePDF(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out[:5]))
	// Output:
	// errors: 0
	// %PDF-
}

func ExampleReport_GenerateSBPL() {
	def, err := definition.Parse([]byte(labelJSON))
	if err != nil {
		log.Fatal(err)
	}
	rep, err := docband.New(def, map[string]any{"Sku": "A-100"}, false)
	if err != nil {
		log.Fatal(err)
	}
	cmds, err := rep.GenerateSBPL(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range strings.Split(cmds, "\x1b")[1:] {
		fmt.Println(c)
	}
	// Output:
	// A
	// A1V0601H1198
	// %0
	// V0012
	// H0016
	// RG0,11,2,59,59,SKU A-100
	// Z
}
