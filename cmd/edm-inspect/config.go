package main

import (
	"context"
	"flag"

	"github.com/diwise/odata-values/internal/pkg/application/inspector"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
)

type FlagType int
type FlagMap map[FlagType]string

const (
	configPath FlagType = iota
	typeName
	inputPath

	indent
)

type AppConfig struct {
	inspectorConfig *inspector.Config
}

func parseExternalConfig(ctx context.Context, flags FlagMap) FlagMap {

	// Allow environment variables to override certain defaults
	envOrDef := env.GetVariableOrDefault
	flags[configPath] = envOrDef(ctx, "INSPECTOR_CONFIG", flags[configPath])
	flags[indent] = envOrDef(ctx, "INSPECTOR_INDENT", flags[indent])

	apply := func(f FlagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("config", "path to the inspector configuration file", apply(configPath))
	flag.Func("type", "name of the model type to project the record as", apply(typeName))
	flag.Func("in", "path to a json record, or - for stdin", apply(inputPath))
	flag.Func("indent", "indentation of the rendered output", apply(indent))
	flag.Parse()

	return flags
}

func defaultFlags() FlagMap {
	return FlagMap{
		configPath: "/opt/diwise/config/inspector.yaml",
		inputPath:  "-",
	}
}
