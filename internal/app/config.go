package app

import (
	"errors"
	"fmt"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	FormPath     string // hcl form template
	DataPath     string // yaml data packet, optional
	ExportPath   string // where the final data packet is written, optional
	CommandsPath string // command script; "-" starts the interactive shell
	HistoryFile  string
	CheckOnly    bool // parse every form under FormPath and stop

	LogFormat  string
	LogLevel   string
	LogFile    string
	LogJournal bool

	NoCalculate bool
	NoValidate  bool
	Answer      string // "yes" or "no"

	SignalURL  string
	SubmitURL  string
	StatusPort int
}

// ShellCommands is the CommandsPath value that starts the interactive shell.
const ShellCommands = "-"

func NewConfig(cfg Config) (*Config, error) {
	if cfg.FormPath == "" {
		return nil, errors.New("FormPath is a required configuration field and cannot be empty")
	}
	switch cfg.Answer {
	case "":
		cfg.Answer = "no"
	case "yes", "no":
	default:
		return nil, fmt.Errorf("invalid answer %q: must be 'yes' or 'no'", cfg.Answer)
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("invalid status port %d", cfg.StatusPort)
	}
	if cfg.ExportPath != "" && cfg.ExportPath == cfg.FormPath {
		return nil, errors.New("export path must differ from the form path")
	}
	return &cfg, nil
}
