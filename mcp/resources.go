package mcp

import (
	"context"
	"encoding/json"

	"github.com/lvillar/docband/diag"
	"github.com/lvillar/docband/pattern"
)

// RegisterResources adds the static reference resources.
func RegisterResources(s *Server) {
	s.AddResource(Resource{
		URI:         "docband://message-keys",
		Name:        "Error message keys",
		Description: "Every message key a report error can carry, for translation on the client side.",
		MIMEType:    "application/json",
		Handler:     jsonResource(diag.MessageKeys),
	})
	s.AddResource(Resource{
		URI:         "docband://locales",
		Name:        "Locales",
		Description: "Locales accepted for number and date patterns.",
		MIMEType:    "application/json",
		Handler:     jsonResource(pattern.Locales()),
	})
}

func jsonResource(v any) ResourceHandler {
	return func(_ context.Context, uri string) ([]ResourceContent, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return []ResourceContent{{URI: uri, MIMEType: "application/json", Text: string(b)}}, nil
	}
}
