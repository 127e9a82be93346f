package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/formrun/internal/app"
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
	flagSet := flag.NewFlagSet("formrun", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
formrun - Runs an interactive form: calculations, validations and events.

Usage:
  formrun [options] FORM_PATH

Arguments:
  FORM_PATH
    Path to the .hcl form template. With -check, a directory of templates.

Commands (one per line in -commands FILE, or typed at the shell with -commands -):
  set REF VALUE, add REF [bind], insert REF INDEX [bind], remove REF INDEX,
  move REF FROM TO, count REF, setcount REF N, event REF NAME, validate REF,
  calc, show [REF], submit, close, help

Options:
`)
		flagSet.PrintDefaults()
	}

	formFlag := flagSet.String("form", "", "Path to the form template.")
	fFlag := flagSet.String("f", "", "Path to the form template (shorthand).")
	dataFlag := flagSet.String("data", "", "YAML data packet merged into the form.")
	exportFlag := flagSet.String("export", "", "Write the final data packet to this file.")
	commandsFlag := flagSet.String("commands", "", "Command script to run. '-' starts an interactive shell.")
	checkFlag := flagSet.Bool("check", false, "Only parse the forms under FORM_PATH (a file or directory) and report errors.")
	historyFlag := flagSet.String("history", "", "History file for the interactive shell.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFileFlag := flagSet.String("log-file", "", "Also write JSON logs to this file.")
	logJournalFlag := flagSet.Bool("log-journal", false, "Also send logs to the systemd journal.")
	noCalcFlag := flagSet.Bool("no-calc", false, "Disable calculations.")
	noValidateFlag := flagSet.Bool("no-validate", false, "Disable validations.")
	answerFlag := flagSet.String("answer", "no", "Answer to yes/no message boxes. Options: 'yes' or 'no'.")
	signalFlag := flagSet.String("signal-url", "", "socket.io endpoint receiving layout signals (socketio:// or socketios://).")
	submitFlag := flagSet.String("submit-url", "", "Endpoint receiving submitted data packets (http:// or https://).")
	statusPortFlag := flagSet.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *formFlag != "" {
		path = *formFlag
	} else if *fFlag != "" {
		path = *fFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Form path determined.", "path", path)

	if path == "" {
		slog.Debug("No form path provided, printing usage and exiting.")
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
		FormPath:     path,
		DataPath:     *dataFlag,
		ExportPath:   *exportFlag,
		CommandsPath: *commandsFlag,
		HistoryFile:  *historyFlag,
		CheckOnly:    *checkFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		LogFile:      *logFileFlag,
		LogJournal:   *logJournalFlag,
		NoCalculate:  *noCalcFlag,
		NoValidate:   *noValidateFlag,
		Answer:       strings.ToLower(*answerFlag),
		SignalURL:    *signalFlag,
		SubmitURL:    *submitFlag,
		StatusPort:   *statusPortFlag,
	})

	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
