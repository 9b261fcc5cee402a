// Command docband-mcp is an MCP (Model Context Protocol) server that lets AI
// assistants render band reports to PDF, XLSX and SBPL.
//
// # Installation
//
//	go install github.com/lvillar/docband/cmd/docband-mcp@latest
//
// # Configuration for Claude Desktop
//
//	{
//	  "mcpServers": {
//	    "docband": {
//	      "command": "docband-mcp",
//	      "args": ["-config", "/etc/docband.yaml"]
//	    }
//	  }
//	}
//
// # Available Tools
//
//   - render_report: render a definition with data, returns a preview key
//   - validate_report: list the errors of a definition with data
//   - get_preview: fetch a rendered output by key
//
// # Available Resources
//
//   - docband://message-keys: error message keys
//   - docband://locales: supported pattern locales
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lvillar/docband/config"
	"github.com/lvillar/docband/mcp"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docband-mcp: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docband-mcp: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router, err := cfg.Router(ctx, logger)
	if err != nil {
		logger.Fatal("storage setup failed", zap.Error(err))
	}
	opts, err := cfg.ReportOptions(logger, router)
	if err != nil {
		logger.Fatal("invalid render settings", zap.Error(err))
	}

	server := mcp.NewServer(mcp.WithLogger(logger))
	mcp.RegisterTools(server, mcp.NewService(cfg.PreviewStore(logger), router, logger, opts...))
	mcp.RegisterResources(server)

	logger.Info("docband-mcp started")
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
