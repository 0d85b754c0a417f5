// Package console provides the interactive command-line interface of
// paramctl.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chzyer/readline"

	"parambridge/internal/bridge"
	"parambridge/internal/param"
)

const releaseTimeout = 2 * time.Second

// HealthChecker reports the serving status of the remote kernel.
type HealthChecker interface {
	Health(ctx context.Context) (string, error)
}

// Console drives a bridge from a readline prompt.
type Console struct {
	rl     *readline.Instance
	out    io.Writer
	b      *bridge.Bridge
	health HealthChecker
	sub    *bridge.Subscription

	// pause between drag steps
	dragStep time.Duration
	echo     atomic.Bool

	mu sync.Mutex
}

// New creates the prompt. Attach a bridge before calling Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "param> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, out: rl.Stdout(), dragStep: 10 * time.Millisecond}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Attach binds the console to b. health may be nil.
func (c *Console) Attach(b *bridge.Bridge, health HealthChecker) {
	c.b = b
	c.health = health
	c.sub = b.Subscribe(c.handleChange)
}

func (c *Console) handleChange(ch param.Change) {
	if !c.echo.Load() || ch.Origin != param.OriginRemote {
		return
	}
	c.printf("  ~ %s = %g\n", ch.ID, ch.Value)
}

// Run starts the interactive command loop. It returns when the user quits,
// input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.sub.Unsubscribe()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			c.println("Exiting...")
			cancel()
			return
		}
		if c.exec(ctx, line) {
			c.println("Exiting...")
			cancel()
			return
		}
	}
}

// exec runs one command line and reports whether the user asked to quit.
func (c *Console) exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList()
	case "get", "g":
		c.cmdGet(args)
	case "set", "s":
		c.cmdSet(args)
	case "grab":
		c.cmdGrab(ctx, args)
	case "move", "mv":
		c.cmdMove(ctx, args)
	case "ungrab", "release":
		c.cmdUngrab(ctx, args)
	case "drag":
		c.cmdDrag(ctx, args)
	case "grabs":
		c.cmdGrabs()
	case "status":
		c.cmdStatus(ctx)
	case "watch":
		c.cmdWatch(args)
	case "quit", "exit", "q":
		return true
	default:
		c.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	c.println(`
paramctl commands:
  Parameters:
    list                    - List parameters with their cached values
    get <id>                - Show one cached value
    set <id> <value>        - Write a value (fire and forget)

  Grab sessions:
    grab <id>               - Start a grab, prints the handle
    move <handle> <value>   - Move a grabbed parameter
    ungrab <handle>         - End a grab
    drag <id> <from> <to> [steps]
                            - Grab, sweep from..to, ungrab
    grabs                   - List open grabs

  Other:
    status                  - Load state and kernel health
    watch on|off            - Echo remote changes
    help                    - Show this help
    quit                    - Exit`)
}

func (c *Console) cmdList() {
	descs := c.b.Descriptors()
	ids := make([]string, 0, len(descs))
	for id := range descs {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	for _, id := range ids {
		d := descs[param.ID(id)]
		val := "-"
		if v, ok := c.b.Value(d.ID); ok {
			val = strconv.FormatFloat(v, 'g', -1, 64)
		}
		c.printf("  %-16s %10s %-4s [%g, %g]  %s\n", d.ID, val, d.Unit, d.Min, d.Max, d.Name)
	}
}

func (c *Console) cmdGet(args []string) {
	if len(args) != 1 {
		c.println("Usage: get <id>")
		return
	}
	v, ok := c.b.Value(param.ID(args[0]))
	if !ok {
		c.printf("%s: no value\n", args[0])
		return
	}
	c.printf("%s = %g\n", args[0], v)
}

func (c *Console) cmdSet(args []string) {
	if len(args) != 2 {
		c.println("Usage: set <id> <value>")
		return
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		c.printf("Invalid value: %s\n", args[1])
		return
	}
	if !c.b.Ready() {
		c.println("Not loaded yet, write dropped")
		return
	}
	c.b.SetParameter(param.ID(args[0]), v)
}

func (c *Console) cmdGrab(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.println("Usage: grab <id>")
		return
	}
	h, err := c.b.GrabParameter(ctx, param.ID(args[0]))
	if err != nil {
		c.printf("Error: %v\n", err)
		return
	}
	c.printf("%s -> %s\n", args[0], h)
}

func (c *Console) cmdMove(ctx context.Context, args []string) {
	if len(args) != 2 {
		c.println("Usage: move <handle> <value>")
		return
	}
	h, err := parseHandle(args[0])
	if err != nil {
		c.printf("Invalid handle: %s\n", args[0])
		return
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		c.printf("Invalid value: %s\n", args[1])
		return
	}
	if err := c.b.MoveGrabbedParameter(ctx, h, v); err != nil {
		c.printf("Error: %v\n", err)
	}
}

func (c *Console) cmdUngrab(ctx context.Context, args []string) {
	if len(args) != 1 {
		c.println("Usage: ungrab <handle>")
		return
	}
	h, err := parseHandle(args[0])
	if err != nil {
		c.printf("Invalid handle: %s\n", args[0])
		return
	}
	if err := c.b.UngrabParameter(ctx, h); err != nil {
		c.printf("Error: %v\n", err)
	}
}

func (c *Console) cmdDrag(ctx context.Context, args []string) {
	if len(args) < 3 || len(args) > 4 {
		c.println("Usage: drag <id> <from> <to> [steps]")
		return
	}
	from, err1 := strconv.ParseFloat(args[1], 64)
	to, err2 := strconv.ParseFloat(args[2], 64)
	if err1 != nil || err2 != nil {
		c.println("Invalid range")
		return
	}
	steps := 10
	if len(args) == 4 {
		n, err := strconv.Atoi(args[3])
		if err != nil || n < 1 {
			c.printf("Invalid steps: %s\n", args[3])
			return
		}
		steps = n
	}

	id := param.ID(args[0])
	h, err := c.b.GrabParameter(ctx, id)
	if err != nil {
		c.printf("Error: %v\n", err)
		return
	}
	// always release, even if a move fails or ctx was cancelled mid-drag
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := c.b.UngrabParameter(rctx, h); err != nil {
			c.printf("Error: %v\n", err)
		}
	}()

	var v float64
	for i := 0; i <= steps; i++ {
		v = from + (to-from)*float64(i)/float64(steps)
		if err := c.b.MoveGrabbedParameter(ctx, h, v); err != nil {
			c.printf("Error: %v\n", err)
			return
		}
		if c.dragStep > 0 && i < steps {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.dragStep):
			}
		}
	}
	c.printf("%s -> %g (%d moves via %s)\n", id, v, steps+1, h)
}

func (c *Console) cmdGrabs() {
	grabs := c.b.Grabs()
	if len(grabs) == 0 {
		c.println("No open grabs")
		return
	}
	hs := make([]param.GrabHandle, 0, len(grabs))
	for h := range grabs {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	for _, h := range hs {
		c.printf("  %-8s %s\n", h, grabs[h])
	}
}

func (c *Console) cmdStatus(ctx context.Context) {
	if c.b.Ready() {
		c.printf("Loaded: yes (%d parameters)\n", len(c.b.Descriptors()))
	} else {
		missing := c.b.Missing()
		ids := make([]string, len(missing))
		for i, id := range missing {
			ids[i] = string(id)
		}
		c.printf("Loaded: no, missing %s\n", strings.Join(ids, ", "))
	}
	c.printf("Grabs:  %d\n", len(c.b.Grabs()))

	if c.health == nil {
		return
	}
	hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	st, err := c.health.Health(hctx)
	if err != nil {
		c.printf("Kernel: %v\n", err)
		return
	}
	c.printf("Kernel: %s\n", st)
}

func (c *Console) cmdWatch(args []string) {
	if len(args) != 1 {
		c.printf("Watch: %v\n", c.echo.Load())
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		c.echo.Store(true)
	case "off":
		c.echo.Store(false)
	default:
		c.println("Usage: watch on|off")
	}
}

// parseHandle accepts "3" as well as the printed form "grab#3".
func parseHandle(s string) (param.GrabHandle, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "grab#"), 10, 64)
	if err != nil {
		return 0, err
	}
	return param.GrabHandle(n), nil
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}
