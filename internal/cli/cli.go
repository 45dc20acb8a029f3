// Package cli parses command-line arguments into an application config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/powerstep/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("powerstep", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
PowerStep - A time-stepped electrical network simulation kernel.

Usage:
  powerstep [options] [SCENARIO_PATH]

Arguments:
  SCENARIO_PATH
    Path to an .hcl scenario file describing the run.

Options:
`)
		flagSet.PrintDefaults()
	}

	scenarioFlag := flagSet.String("scenario", "", "Path to the scenario file.")
	sFlag := flagSet.String("s", "", "Path to the scenario file (shorthand).")
	timeStepFlag := flagSet.Float64("timestep", 0, "Override the scenario's time step in seconds. 0 keeps the scenario value.")
	durationFlag := flagSet.Float64("duration", 0, "Override the scenario's simulated duration in seconds. 0 keeps the scenario value.")
	frequencyFlag := flagSet.Float64("frequency", 0, "Override the scenario's system frequency in hertz. 0 keeps the scenario value.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *scenarioFlag != "" {
		path = *scenarioFlag
	} else if *sFlag != "" {
		path = *sFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Scenario path determined.", "path", path)

	if path == "" {
		slog.Debug("No scenario path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ScenarioPath: path,
		TimeStep:     *timeStepFlag,
		Duration:     *durationFlag,
		Frequency:    *frequencyFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
