package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/diwise/odata-values/internal/pkg/application/inspector"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const (
	appName string = "edm-inspect"
)

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	flags := parseExternalConfig(ctx, defaultFlags())

	cfgFile, err := os.Open(flags[configPath])
	if err != nil {
		log.Error("failed to open configuration file", "path", flags[configPath], "err", err.Error())
		os.Exit(1)
	}
	defer cfgFile.Close()

	cfg, err := inspector.LoadConfiguration(cfgFile)
	if err != nil {
		log.Error("failed to load configuration", "err", err.Error())
		os.Exit(1)
	}

	input, err := openInput(flags[inputPath])
	if err != nil {
		log.Error("failed to open input", "path", flags[inputPath], "err", err.Error())
		os.Exit(1)
	}
	defer input.Close()

	err = run(ctx, flags, &AppConfig{inspectorConfig: cfg}, input, os.Stdout)
	if err != nil {
		log.Error("inspection failed", "err", err.Error())
		os.Exit(1)
	}
}

func initialize(ctx context.Context, flags FlagMap, cfg *AppConfig) (inspector.Inspector, error) {
	if flags[indent] != "" {
		cfg.inspectorConfig.Output.Indent = flags[indent]
	}

	return inspector.New(ctx, *cfg.inspectorConfig)
}

func run(ctx context.Context, flags FlagMap, cfg *AppConfig, input io.Reader, output io.Writer) error {
	if flags[typeName] == "" {
		return fmt.Errorf("a type name is required")
	}

	ctx = logging.NewContextWithLogger(ctx, logging.GetFromContext(ctx), "type", flags[typeName])

	app, err := initialize(ctx, flags, cfg)
	if err != nil {
		return err
	}

	_, sv, err := app.Project(ctx, flags[typeName], input)
	if err != nil {
		return err
	}

	body, err := app.Render(ctx, sv)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(output, string(body))
	return err
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
