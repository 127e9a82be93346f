package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"
	"github.com/vk/formrun/internal/ctxlog"
)

// Prompt is the interactive shell prompt.
const Prompt = "form> "

func completer() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, name := range Names() {
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

// Shell reads commands interactively until end of input, interrupt or the
// close command. Command failures are printed to errOut and do not stop the
// shell.
func (r *Runner) Shell(ctx context.Context, historyFile string, errOut io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       Prompt,
		HistoryFile:  historyFile,
		AutoComplete: completer(),
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer rl.Close()

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Shell started.", "history", historyFile)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := rl.Readline()
		if err != nil { // Ctrl-C or Ctrl-D
			break
		}
		if err := r.Exec(ctx, line); err != nil {
			if errors.Is(err, ErrClosed) {
				break
			}
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
	logger.Debug("Shell finished.")
	return nil
}
