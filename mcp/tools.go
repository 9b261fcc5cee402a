package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lvillar/docband"
	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/preview"
	"github.com/lvillar/docband/storage"
)

// Output formats accepted by render_report.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatSBPL = "sbpl"
)

var mimeTypes = map[string]string{
	FormatPDF:  "application/pdf",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatSBPL: "text/plain",
}

// Service backs the report tools. Rendered outputs are kept in the preview
// store so that a client can fetch them later by key.
type Service struct {
	previews *preview.Store
	sink     storage.Sink
	logger   *zap.Logger
	opts     []docband.Option
}

// NewService creates a Service. sink may be nil, in which case the
// destination argument of render_report is rejected.
func NewService(previews *preview.Store, sink storage.Sink, logger *zap.Logger, opts ...docband.Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{previews: previews, sink: sink, logger: logger, opts: opts}
}

// RegisterTools adds the report tools to the server.
func RegisterTools(s *Server, svc *Service) {
	s.AddTool(svc.renderReportTool())
	s.AddTool(svc.validateReportTool())
	s.AddTool(svc.getPreviewTool())
}

var reportInputProperties = map[string]any{
	"definition": map[string]any{
		"description": "Report definition as a JSON object, or a JSON or YAML string",
	},
	"definitionPath": map[string]any{
		"type":        "string",
		"description": "Path of a .json or .yaml definition file, used when definition is omitted",
	},
	"data": map[string]any{
		"type":        "object",
		"description": "Parameter values keyed by parameter name",
	},
	"isTestData": map[string]any{
		"type":        "boolean",
		"description": "Fill missing values from the test data stored in the definition",
	},
}

func (svc *Service) renderReportTool() Tool {
	props := map[string]any{
		"format": map[string]any{
			"type":        "string",
			"enum":        []string{FormatPDF, FormatXLSX, FormatSBPL},
			"description": "Output format, defaults to pdf",
		},
		"inline": map[string]any{
			"type":        "boolean",
			"description": "Also return the output as base64",
		},
		"destination": map[string]any{
			"type":        "string",
			"description": "Optional file path or s3://bucket/key to store the output",
		},
	}
	for k, v := range reportInputProperties {
		props[k] = v
	}
	return Tool{
		Name: "render_report",
		Description: "Render a band report definition with data to PDF, XLSX or SBPL label commands. " +
			"The output is kept as a preview for a few minutes and its key is returned.",
		InputSchema: map[string]any{"type": "object", "properties": props},
		Handler:     svc.handleRenderReport,
	}
}

func (svc *Service) handleRenderReport(ctx context.Context, args map[string]any) (ToolResult, error) {
	format := FormatPDF
	if f, ok := args["format"].(string); ok && f != "" {
		format = strings.ToLower(f)
	}
	mimeType, ok := mimeTypes[format]
	if !ok {
		return ToolResult{}, fmt.Errorf("unsupported format %q", format)
	}

	rep, err := svc.report(args)
	if err != nil {
		return ToolResult{}, err
	}
	if errs := rep.Errors(); len(errs) > 0 {
		return errorsResult(errs)
	}

	var out []byte
	switch format {
	case FormatPDF:
		out, err = rep.GeneratePDF(ctx)
	case FormatXLSX:
		out, err = rep.GenerateXLSX(ctx)
	case FormatSBPL:
		var s string
		s, err = rep.GenerateSBPL(ctx)
		out = []byte(s)
	}
	if err != nil {
		if fe, ok := diag.AsFatal(err); ok {
			return errorsResult([]diag.Error{fe.Err})
		}
		return ToolResult{}, err
	}

	if dest, _ := args["destination"].(string); dest != "" {
		if svc.sink == nil {
			return ToolResult{}, errors.New("no storage configured for destination")
		}
		if err := svc.sink.Write(ctx, dest, out); err != nil {
			return ToolResult{}, err
		}
	}

	key, err := svc.previews.Put(out, mimeType)
	if err != nil {
		return ToolResult{}, err
	}
	svc.logger.Info("report rendered",
		zap.String("format", format), zap.String("key", key), zap.Int("bytes", len(out)))

	summary, _ := json.MarshalIndent(map[string]any{
		"key":      key,
		"format":   format,
		"mimeType": mimeType,
		"bytes":    len(out),
	}, "", "  ")
	result := ToolResult{Content: []ContentBlock{{Type: "text", Text: string(summary)}}}
	if inline, _ := args["inline"].(bool); inline {
		result.Content = append(result.Content, ContentBlock{
			Type:     "resource",
			MIMEType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(out),
		})
	}
	return result, nil
}

func (svc *Service) validateReportTool() Tool {
	return Tool{
		Name: "validate_report",
		Description: "Check a report definition against data without producing output. " +
			"Returns the list of errors, each with object id, field and message key.",
		InputSchema: map[string]any{"type": "object", "properties": reportInputProperties},
		Handler:     svc.handleValidateReport,
	}
}

func (svc *Service) handleValidateReport(ctx context.Context, args map[string]any) (ToolResult, error) {
	rep, err := svc.report(args)
	if err != nil {
		return ToolResult{}, err
	}
	errs := rep.Errors()
	if len(errs) == 0 {
		if err := rep.Verify(ctx); err != nil {
			fe, ok := diag.AsFatal(err)
			if !ok {
				return ToolResult{}, err
			}
			errs = append(errs, fe.Err)
		}
	}
	if errs == nil {
		errs = []diag.Error{}
	}

	body, _ := json.MarshalIndent(map[string]any{
		"valid":  len(errs) == 0,
		"errors": errs,
	}, "", "  ")
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: string(body)}}}, nil
}

func (svc *Service) getPreviewTool() Tool {
	return Tool{
		Name:        "get_preview",
		Description: "Fetch a previously rendered output by the key returned from render_report.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{"type": "string", "description": "Preview key"},
			},
			"required": []string{"key"},
		},
		Handler: svc.handleGetPreview,
	}
}

func (svc *Service) handleGetPreview(_ context.Context, args map[string]any) (ToolResult, error) {
	key, _ := args["key"].(string)
	if key == "" {
		return ToolResult{}, errors.New("missing 'key' argument")
	}
	e, err := svc.previews.Get(key)
	if err != nil {
		return ToolResult{}, err
	}
	block := ContentBlock{Type: "resource", MIMEType: e.MIMEType}
	if strings.HasPrefix(e.MIMEType, "text/") {
		block.Text = string(e.Data)
	} else {
		block.Data = base64.StdEncoding.EncodeToString(e.Data)
	}
	return ToolResult{Content: []ContentBlock{block}}, nil
}

// report builds a report from the definition and data arguments.
func (svc *Service) report(args map[string]any) (*docband.Report, error) {
	def, err := definitionArg(args)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if raw, ok := args["data"]; ok && raw != nil {
		// round trip through the definition decoder keeps numbers exact
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encoding data: %w", err)
		}
		if data, err = definition.ParseData(b); err != nil {
			return nil, err
		}
	}
	isTestData, _ := args["isTestData"].(bool)
	return docband.New(def, data, isTestData, svc.opts...)
}

func definitionArg(args map[string]any) (*definition.Report, error) {
	switch v := args["definition"].(type) {
	case nil:
		path, _ := args["definitionPath"].(string)
		if path == "" {
			return nil, errors.New("missing 'definition' argument")
		}
		return definition.Load(path)
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "{") {
			return definition.Parse([]byte(v))
		}
		return definition.ParseYAML([]byte(v))
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding definition: %w", err)
		}
		return definition.Parse(b)
	}
}

func errorsResult(errs []diag.Error) (ToolResult, error) {
	body, _ := json.MarshalIndent(map[string]any{"errors": errs}, "", "  ")
	return ToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(body)}},
		IsError: true,
	}, nil
}
