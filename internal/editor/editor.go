// Package editor drives an editing session from line-oriented commands, the
// terminal counterpart of the form UI.
package editor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/formatter"
	"github.com/mcncl/jsonbuilder/internal/logging"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/parser"
	"github.com/mcncl/jsonbuilder/internal/session"
)

const helpText = `Commands:
  add [parent]           add an empty string field (to the root, or to a nested field)
  rm <path>              remove a field and everything below it
  name <path> <text>     rename a field
  kind <path> <type>     change the type: string, number or nested
  default <path> <text>  set the default value ("" quotes allowed)
  load <file>            replace the fields with a JSON or YAML document
  show                   list the fields with their paths
  preview                print the live JSON
  validate               list every problem
  done                   validate and freeze the JSON
  help                   show this help
  quit                   leave the editor
Paths are 0-based and dotted: 1.0 is the first child of the second field.`

// Editor executes commands against one session
type Editor struct {
	session    *session.Session
	out        io.Writer
	formatter  *formatter.Formatter
	maxShown   int
	prompt     string
	logger     *slog.Logger
	onFinalize func(text string) error
}

// Option configures an Editor
type Option func(*Editor)

// WithFormatter sets the formatter used for all output
func WithFormatter(f *formatter.Formatter) Option {
	return func(e *Editor) { e.formatter = f }
}

// WithMaxErrorsShown caps the errors listed when finalize is refused; 0 lists all
func WithMaxErrorsShown(n int) Option {
	return func(e *Editor) { e.maxShown = n }
}

// WithPrompt sets the prompt printed before each command; empty disables it
func WithPrompt(p string) Option {
	return func(e *Editor) { e.prompt = p }
}

// WithFinalizeHook is called with the frozen JSON text after each successful finalize
func WithFinalizeHook(fn func(text string) error) Option {
	return func(e *Editor) { e.onFinalize = fn }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// New creates an editor over s writing to out
func New(s *session.Session, out io.Writer, opts ...Option) *Editor {
	e := &Editor{
		session:   s,
		out:       out,
		formatter: formatter.NewFormatter(),
		maxShown:  3,
		prompt:    "> ",
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns the edited session
func (e *Editor) Session() *session.Session {
	return e.session
}

// Run reads commands from in until EOF, quit, or ctx is done. A read blocked
// on in does not hold up cancellation.
func (e *Editor) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	e.printPrompt()
	for {
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return errors.NewInputError("error reading input", err)
				}
				return nil
			}
			line = l
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		quit, err := e.Execute(line)
		if err != nil {
			e.logger.Debug("command failed", "line", line, "error", err)
			e.printf("%s\n", e.formatter.Banner(errors.UserFriendlyError(err), false))
		}
		if quit {
			return nil
		}
		e.printPrompt()
	}
}

// Execute runs one command line. It reports whether the editor should stop.
func (e *Editor) Execute(line string) (bool, error) {
	cmd, rest := cut(strings.TrimSpace(line))
	switch cmd {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help", "?":
		e.printf("%s\n", helpText)
		return false, nil
	case "show", "ls":
		e.printf("%s\n", e.formatter.FormatTree(e.session.Tree))
		return false, nil
	case "preview":
		return false, e.printPreview()
	case "validate":
		e.printf("%s\n", e.formatter.FormatValidation(e.session.Validate()))
		return false, nil
	case "done", "finalize":
		return false, e.finalize()
	}

	if err := e.mutate(cmd, rest); err != nil {
		return false, err
	}
	e.logger.Debug("field tree edited", "command", cmd, "session", e.session.ID)
	return false, e.printPreview()
}

func (e *Editor) mutate(cmd, rest string) error {
	path, text := cut(rest)
	switch cmd {
	case "add":
		newPath, err := e.session.AddField(path)
		if err != nil {
			return err
		}
		e.printf("added field %s\n", newPath)
		return nil
	case "rm", "remove":
		if path == "" {
			return usage("rm <path>")
		}
		return e.session.RemoveField(path)
	case "name":
		if path == "" {
			return usage("name <path> <text>")
		}
		return e.session.SetName(path, unquote(text))
	case "kind", "type":
		if path == "" || text == "" {
			return usage("kind <path> <string|number|nested>")
		}
		kind, err := models.ParseKind(text)
		if err != nil {
			return errors.NewInputError(err.Error(), err)
		}
		return e.session.SetKind(path, kind)
	case "default":
		if path == "" {
			return usage("default <path> <text>")
		}
		return e.session.SetDefault(path, unquote(text))
	case "load":
		if path == "" {
			return usage("load <file>")
		}
		tree, err := parser.ParseFile(rest)
		if err != nil {
			return err
		}
		e.session.Load(tree)
		return nil
	}
	return errors.NewInputError(fmt.Sprintf("unknown command '%s' (try help)", cmd), nil)
}

func (e *Editor) finalize() error {
	snapshot, failure := e.session.Finalize(e.maxShown)
	if failure != nil {
		e.printf("%s\n%s\n", e.formatter.Banner(failure.Title, false), failure.Description())
		return nil
	}
	text, err := e.formatter.FormatJSON(snapshot)
	if err != nil {
		return errors.NewOutputError("failed to render final JSON", err)
	}
	e.printf("%s\n%s\n", e.formatter.Banner(session.SuccessTitle, true), text)
	if e.onFinalize != nil {
		return e.onFinalize(text)
	}
	return nil
}

func (e *Editor) printPreview() error {
	text, err := e.formatter.FormatJSON(e.session.Preview())
	if err != nil {
		return errors.NewOutputError("failed to render preview", err)
	}
	e.printf("%s\n", text)
	return nil
}

func (e *Editor) printPrompt() {
	if e.prompt != "" {
		e.printf("%s", e.prompt)
	}
}

func (e *Editor) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(e.out, format, args...)
}

func usage(text string) error {
	return errors.NewInputError("usage: "+text, nil)
}

// cut splits off the first whitespace-separated word.
func cut(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i+1:], " \t")
}

// unquote accepts a Go-quoted string so that empty or padded values can be typed.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
