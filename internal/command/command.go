package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/vk/formrun/internal/activity"
	"github.com/vk/formrun/internal/ctxlog"
	"github.com/vk/formrun/internal/docview"
	"github.com/vk/formrun/internal/formtree"
	"github.com/vk/formrun/internal/registry"
)

var (
	// ErrClosed is returned by the close command; runners stop reading.
	ErrClosed = errors.New("document closed")
	// ErrUnknownCommand is returned for names missing from the table.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNoTransport is returned by submit when no transport is configured.
	ErrNoTransport = errors.New("no submit transport configured")
)

type handler func(ctx context.Context, r *Runner, args []string) error

type command struct {
	usage   string
	minArgs int
	maxArgs int
	fn      handler
}

var commands = map[string]command{
	"set":      {"set REF VALUE", 2, 2, cmdSet},
	"add":      {"add REF [bind]", 1, 2, cmdAdd},
	"insert":   {"insert REF INDEX [bind]", 2, 3, cmdInsert},
	"remove":   {"remove REF INDEX", 2, 2, cmdRemove},
	"move":     {"move REF FROM TO", 3, 3, cmdMove},
	"count":    {"count REF", 1, 1, cmdCount},
	"setcount": {"setcount REF N", 2, 2, cmdSetCount},
	"event":    {"event REF NAME", 2, 2, cmdEvent},
	"validate": {"validate REF", 1, 1, cmdValidate},
	"calc":     {"calc", 0, 0, cmdCalc},
	"show":     {"show [REF]", 0, 1, cmdShow},
	"submit":   {"submit", 0, 0, cmdSubmit},
	"close":    {"close", 0, 0, cmdClose},
}

func init() {
	commands["help"] = command{"help", 0, 0, cmdHelp}
}

// Names returns the command names, sorted.
func Names() []string {
	out := make([]string, 0, len(commands))
	for name := range commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Runner executes commands against one view.
type Runner struct {
	view      *docview.View
	out       io.Writer
	transport registry.Transport
	after     func(ctx context.Context)
	closed    bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithTransport sets where submit delivers the data packet.
func WithTransport(t registry.Transport) Option {
	return func(r *Runner) { r.transport = t }
}

// WithAfterCommand sets fn to run after every command that succeeds.
func WithAfterCommand(fn func(ctx context.Context)) Option {
	return func(r *Runner) { r.after = fn }
}

// New returns a runner printing results to out.
func New(view *docview.View, out io.Writer, opts ...Option) *Runner {
	r := &Runner{view: view, out: out}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exec runs one command line. Blank lines and comment lines do
// nothing.
func (r *Runner) Exec(ctx context.Context, line string) error {
	words, err := Split(line)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}
	name, args := words[0], words[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownCommand)
	}
	if err := registry.CheckArgs(name, len(args), cmd.minArgs, cmd.maxArgs); err != nil {
		return fmt.Errorf("%w (usage: %s)", err, cmd.usage)
	}
	ctxlog.FromContext(ctx).Debug("Running command.", "command", name, "args", len(args))
	if err := cmd.fn(ctx, r, args); err != nil {
		return err
	}
	if r.after != nil {
		r.after(ctx)
	}
	return nil
}

// Closed reports whether the close command has run.
func (r *Runner) Closed() bool {
	return r.closed
}

// RunScript executes every line of rd and stops at the first failure or at
// close. Failures report their line number.
func (r *Runner) RunScript(ctx context.Context, rd io.Reader) error {
	sc := bufio.NewScanner(rd)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := r.Exec(ctx, sc.Text()); err != nil {
			if errors.Is(err, ErrClosed) {
				return nil
			}
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) node(ref string) (formtree.NodeID, error) {
	doc := r.view.Doc()
	return doc.Resolve(doc.Root, ref)
}

func (r *Runner) manager(ref string) (formtree.NodeID, error) {
	doc := r.view.Doc()
	return doc.InstanceManager(doc.Root, ref)
}

func intArg(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, s)
	}
	return n, nil
}

func boolArg(args []string, i int, def bool) (bool, error) {
	if len(args) <= i {
		return def, nil
	}
	b, err := strconv.ParseBool(args[i])
	if err != nil {
		return false, fmt.Errorf("bind: %q is not a boolean", args[i])
	}
	return b, nil
}

func cmdSet(ctx context.Context, r *Runner, args []string) error {
	node, err := r.node(args[0])
	if err != nil {
		return err
	}
	return r.view.SetValue(ctx, node, args[1])
}

func cmdAdd(ctx context.Context, r *Runner, args []string) error {
	im, err := r.manager(args[0])
	if err != nil {
		return err
	}
	bind, err := boolArg(args, 1, true)
	if err != nil {
		return err
	}
	if _, err := r.view.AddInstance(ctx, im, bind); err != nil {
		return err
	}
	r.printf("%s: %d instances\n", args[0], r.view.Instances().Count(im))
	return nil
}

func cmdInsert(ctx context.Context, r *Runner, args []string) error {
	im, err := r.manager(args[0])
	if err != nil {
		return err
	}
	index, err := intArg("index", args[1])
	if err != nil {
		return err
	}
	bind, err := boolArg(args, 2, false)
	if err != nil {
		return err
	}
	if _, err := r.view.InsertInstance(ctx, im, index, bind); err != nil {
		return err
	}
	r.printf("%s: %d instances\n", args[0], r.view.Instances().Count(im))
	return nil
}

func cmdRemove(ctx context.Context, r *Runner, args []string) error {
	im, err := r.manager(args[0])
	if err != nil {
		return err
	}
	index, err := intArg("index", args[1])
	if err != nil {
		return err
	}
	if err := r.view.RemoveInstance(ctx, im, index); err != nil {
		return err
	}
	r.printf("%s: %d instances\n", args[0], r.view.Instances().Count(im))
	return nil
}

func cmdMove(ctx context.Context, r *Runner, args []string) error {
	im, err := r.manager(args[0])
	if err != nil {
		return err
	}
	from, err := intArg("from", args[1])
	if err != nil {
		return err
	}
	to, err := intArg("to", args[2])
	if err != nil {
		return err
	}
	return r.view.MoveInstance(ctx, im, from, to)
}

func cmdCount(_ context.Context, r *Runner, args []string) error {
	im, err := r.manager(args[0])
	if err != nil {
		return err
	}
	r.printf("%d\n", r.view.Instances().Count(im))
	return nil
}

func cmdSetCount(ctx context.Context, r *Runner, args []string) error {
	im, err := r.manager(args[0])
	if err != nil {
		return err
	}
	n, err := intArg("count", args[1])
	if err != nil {
		return err
	}
	return r.view.SetInstances(ctx, im, n)
}

func cmdEvent(ctx context.Context, r *Runner, args []string) error {
	node, err := r.node(args[0])
	if err != nil {
		return err
	}
	status, err := r.view.Events().ExecEventByName(ctx, node, args[1])
	if err != nil {
		return err
	}
	r.view.UpdateDocView(ctx)
	r.printf("%s\n", status)
	return nil
}

func cmdValidate(ctx context.Context, r *Runner, args []string) error {
	node, err := r.node(args[0])
	if err != nil {
		return err
	}
	status, err := r.view.Events().ExecEventByName(ctx, node, activity.Validate.String())
	if err != nil {
		return err
	}
	r.view.Validation().ShowNullTestMsg(ctx)
	r.printf("%s\n", status)
	return nil
}

func cmdCalc(ctx context.Context, r *Runner, _ []string) error {
	doc := r.view.Doc()
	status, err := r.view.Events().ExecEventByName(ctx, doc.Root, activity.Calculate.String())
	if err != nil {
		return err
	}
	r.view.UpdateDocView(ctx)
	r.printf("%s\n", status)
	return nil
}

func cmdShow(_ context.Context, r *Runner, args []string) error {
	doc := r.view.Doc()
	node := doc.Root
	if len(args) > 0 {
		var err error
		if node, err = r.node(args[0]); err != nil {
			return err
		}
	}
	return doc.Snapshot(node, r.view.Instances().Count).WriteText(r.out)
}

func cmdSubmit(ctx context.Context, r *Runner, _ []string) error {
	if r.transport == nil {
		return ErrNoTransport
	}
	if err := r.view.Submit(ctx, r.transport); err != nil {
		return err
	}
	r.printf("submitted\n")
	return nil
}

func cmdClose(ctx context.Context, r *Runner, _ []string) error {
	if !r.closed {
		r.view.RunDocClose(ctx)
		r.closed = true
	}
	if r.after != nil {
		r.after(ctx)
	}
	return ErrClosed
}

func cmdHelp(_ context.Context, r *Runner, _ []string) error {
	for _, name := range Names() {
		r.printf("  %s\n", commands[name].usage)
	}
	return nil
}
