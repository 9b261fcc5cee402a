// Command docband renders a band report definition with a data file.
//
// # Usage
//
//	docband -definition invoice.yaml -data invoice.json -out invoice.pdf
//	docband -definition label.json -data label.json -format sbpl -out -
//	docband -definition invoice.yaml -out s3://reports/2024/invoice.xlsx
//	docband -definition invoice.yaml -data invoice.json -validate
//	docband -definition generated.json -patterns designed.json -out invoice.pdf
//
// The format defaults to the extension of -out. Settings are read from the
// file given with -config, from .env and from DOCBAND_* variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/lvillar/docband"
	"github.com/lvillar/docband/config"
	"github.com/lvillar/docband/definition"
	"github.com/lvillar/docband/diag"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("docband", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML configuration file")
		defPath    = fs.String("definition", "", "report definition (.json, .yaml)")
		dataPath   = fs.String("data", "", "parameter data (.json, .yaml)")
		testData   = fs.Bool("test-data", false, "fill missing values from the definition's test data")
		format     = fs.String("format", "", "output format: pdf, xlsx or sbpl")
		out        = fs.String("out", "", "output file, s3://bucket/key or - for stdout")
		validate   = fs.Bool("validate", false, "only check the report and print its errors")
		patterns   = fs.String("patterns", "", "definition whose parameter patterns fill the ones left empty")
	)
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}
	if *defPath == "" || (*out == "" && !*validate) {
		fmt.Fprintln(stderr, "docband: -definition and -out are required")
		fs.Usage()
		return exitFailure
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "docband: %v\n", err)
		return exitFailure
	}
	logger, err := cfg.Logger()
	if err != nil {
		fmt.Fprintf(stderr, "docband: %v\n", err)
		return exitFailure
	}
	defer logger.Sync() //nolint:errcheck

	router, err := cfg.Router(ctx, logger)
	if err != nil {
		logger.Error("storage setup failed", zap.Error(err))
		return exitFailure
	}
	opts, err := cfg.ReportOptions(logger, router)
	if err != nil {
		logger.Error("invalid render settings", zap.Error(err))
		return exitFailure
	}

	def, err := definition.Load(*defPath)
	if err != nil {
		logger.Error("loading definition failed", zap.String("path", *defPath), zap.Error(err))
		return exitFailure
	}
	var data map[string]any
	if *dataPath != "" {
		if data, err = definition.LoadData(*dataPath); err != nil {
			logger.Error("loading data failed", zap.String("path", *dataPath), zap.Error(err))
			return exitFailure
		}
	}

	if *patterns != "" {
		saved, err := definition.Load(*patterns)
		if err != nil {
			logger.Error("loading patterns failed", zap.String("path", *patterns), zap.Error(err))
			return exitFailure
		}
		opts = append(opts, docband.WithPatternsFrom(saved))
	}

	rep, err := docband.New(def, data, *testData, opts...)
	if err != nil {
		logger.Error("compiling report failed", zap.Error(err))
		return exitFailure
	}
	errs := rep.Errors()
	if len(errs) == 0 {
		if err := rep.Verify(ctx); err != nil {
			fe, ok := diag.AsFatal(err)
			if !ok {
				logger.Error("verifying report failed", zap.Error(err))
				return exitFailure
			}
			errs = append(errs, fe.Err)
		}
	}
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(stderr, e.Error())
		}
		return exitInvalid
	}
	if *validate {
		fmt.Fprintln(stdout, "ok")
		return exitOK
	}

	f := strings.ToLower(*format)
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(path.Ext(*out)), ".")
	}
	output, err := generate(ctx, rep, f)
	if err != nil {
		logger.Error("rendering failed", zap.String("format", f), zap.Error(err))
		return exitFailure
	}

	if *out == "-" {
		_, err = stdout.Write(output)
	} else {
		err = router.Write(ctx, *out, output)
	}
	if err != nil {
		logger.Error("writing output failed", zap.String("dest", *out), zap.Error(err))
		return exitFailure
	}
	logger.Info("report written", zap.String("dest", *out), zap.String("format", f), zap.Int("bytes", len(output)))
	return exitOK
}

func generate(ctx context.Context, rep *docband.Report, format string) ([]byte, error) {
	switch format {
	case "pdf":
		return rep.GeneratePDF(ctx)
	case "xlsx":
		return rep.GenerateXLSX(ctx)
	case "sbpl", "txt":
		s, err := rep.GenerateSBPL(ctx)
		return []byte(s), err
	}
	return nil, errors.New("unknown format " + format + ", use pdf, xlsx or sbpl")
}
