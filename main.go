package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mcncl/jsonbuilder/internal/analyzer"
	"github.com/mcncl/jsonbuilder/internal/config"
	"github.com/mcncl/jsonbuilder/internal/editor"
	"github.com/mcncl/jsonbuilder/internal/errors"
	"github.com/mcncl/jsonbuilder/internal/formatter"
	"github.com/mcncl/jsonbuilder/internal/logging"
	"github.com/mcncl/jsonbuilder/internal/models"
	"github.com/mcncl/jsonbuilder/internal/parser"
	"github.com/mcncl/jsonbuilder/internal/schema"
	"github.com/mcncl/jsonbuilder/internal/server"
	"github.com/mcncl/jsonbuilder/internal/session"
	"github.com/mcncl/jsonbuilder/internal/transform"
)

// CLI defines the command-line interface
var CLI struct {
	Config  string `help:"Path to config file. If not specified, searches for .jsonbuilder.yml upward from the working directory." short:"c" type:"path"`
	Debug   bool   `help:"Enable debug logging." short:"d"`
	NoColor bool   `help:"Disable colored output."`

	Edit     EditCmd     `cmd:"" default:"withargs" help:"Build a field document interactively (default)."`
	Preview  PreviewCmd  `cmd:"" help:"Print the JSON a field document produces."`
	Validate ValidateCmd `cmd:"" help:"Check a field document and list every problem."`
	Finalize FinalizeCmd `cmd:"" help:"Validate a field document and write the frozen JSON."`
	Schema   SchemaCmd   `cmd:"" help:"Convert between field documents and JSON Schema."`
	Serve    ServeCmd    `cmd:"" help:"Serve editing sessions over HTTP and WebSocket."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	ImportExample ImportExampleCmd `cmd:"" name:"import-example" help:"Build a field document from an example JSON object."`
}

// InputFlags selects the field document to read
type InputFlags struct {
	Input  string `help:"Path to a field document (JSON or YAML). If not specified, reads from stdin." short:"i" type:"path"`
	Format string `help:"Format of the document read from stdin." enum:"auto,json,yaml" default:"auto"`
}

// OutputFlags selects where results go
type OutputFlags struct {
	Output string `help:"Path to output JSON file. If not specified, writes to stdout." short:"o" type:"path"`
}

// Context holds the runtime context shared by all commands
type Context struct {
	Config    *config.Config
	Formatter *formatter.Formatter
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	app := kong.Must(&CLI,
		kong.Name("jsonbuilder"),
		kong.Description("Define nested fields and build the JSON object they describe"),
		kong.UsageOnError(),
	)

	kctx, err := app.Parse(os.Args[1:])
	app.FatalIfErrorf(err)

	ctx, err := newContext(CLI.Config, CLI.Debug, CLI.NoColor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		os.Exit(1)
	}

	if err := kctx.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonbuilder --help\n")
		os.Exit(1)
	}
}

// newContext loads configuration and sets up logging and output
func newContext(configPath string, debug, noColor bool) (*Context, error) {
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(configPath, "", debug, noColor)
	if err != nil {
		return nil, errors.NewInputError("failed to load configuration", err)
	}

	logging.SetDefault(logging.New(os.Stderr, cfg.Dev.Debug, cfg.Display.Color))
	if configPath != "" {
		logging.Default().Debug("loaded configuration", "path", configPath)
	}

	f := formatter.NewFormatter()
	if !cfg.Display.Color {
		f = formatter.NewPlainFormatter()
	}

	return &Context{
		Config:    cfg,
		Formatter: f,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}, nil
}

// transformer builds a transformer honoring the naming configuration
func (c *Context) transformer() *transform.Transformer {
	if c.Config.RewritesKeys() {
		return transform.NewTransformer(transform.WithKeyName(c.Config.GetKeyName))
	}
	return transform.NewTransformer()
}

// EditCmd runs the interactive editor
type EditCmd struct {
	Input string `help:"Field document to start from instead of the example field." short:"i" type:"path"`

	OutputFlags `embed:""`
}

// Run executes the edit command
func (c *EditCmd) Run(ctx *Context) error {
	opts := []session.Option{session.WithTransformer(ctx.transformer())}
	if c.Input != "" {
		tree, err := parser.ParseFile(c.Input)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithTree(tree))
	}

	editorOpts := []editor.Option{
		editor.WithFormatter(ctx.Formatter),
		editor.WithMaxErrorsShown(ctx.Config.Finalize.MaxErrorsShown),
		editor.WithLogger(logging.Default()),
	}
	if c.Output != "" {
		editorOpts = append(editorOpts, editor.WithFinalizeHook(func(text string) error {
			return writeFile(ctx, c.Output, text)
		}))
	}

	if isTerminal(ctx.Stdin) {
		fmt.Fprintln(ctx.Stderr, "jsonbuilder interactive mode")
		fmt.Fprintln(ctx.Stderr, "Type 'help' for commands, 'done' to finalize and Ctrl+D to quit.")
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ed := editor.New(session.New(opts...), ctx.Stdout, editorOpts...)
	return ed.Run(sigCtx, ctx.Stdin)
}

// PreviewCmd prints the live JSON of a document, valid or not
type PreviewCmd struct {
	InputFlags  `embed:""`
	OutputFlags `embed:""`
}

// Run executes the preview command
func (c *PreviewCmd) Run(ctx *Context) error {
	tree, err := readTree(ctx, c.InputFlags)
	if err != nil {
		return err
	}
	text, err := ctx.Formatter.FormatJSON(ctx.transformer().Transform(tree))
	if err != nil {
		return errors.NewOutputError("failed to render JSON", err)
	}
	return writeOutput(ctx, c.Output, text)
}

// ValidateCmd lists every validation problem of a document
type ValidateCmd struct {
	InputFlags `embed:""`
}

// Run executes the validate command
func (c *ValidateCmd) Run(ctx *Context) error {
	tree, err := readTree(ctx, c.InputFlags)
	if err != nil {
		return err
	}
	sess := session.New(session.WithTree(tree))
	result := sess.Validate()
	fmt.Fprintln(ctx.Stdout, ctx.Formatter.FormatValidation(result))
	if !result.Valid {
		return errors.NewValidationError(
			fmt.Sprintf("%d problem(s) found", len(result.Errors)),
			errors.ErrSchemaInvalid,
		)
	}
	return nil
}

// FinalizeCmd validates a document and writes its frozen JSON
type FinalizeCmd struct {
	InputFlags  `embed:""`
	OutputFlags `embed:""`
	MaxErrors int `help:"Number of problems listed when finalize is refused, 0 lists all. Overrides the config file when set." default:"-1"`
}

// Run executes the finalize command
func (c *FinalizeCmd) Run(ctx *Context) error {
	tree, err := readTree(ctx, c.InputFlags)
	if err != nil {
		return err
	}

	maxShown := ctx.Config.Finalize.MaxErrorsShown
	if c.MaxErrors >= 0 {
		maxShown = c.MaxErrors
	}

	sess := session.New(session.WithTree(tree), session.WithTransformer(ctx.transformer()))
	snapshot, failure := sess.Finalize(maxShown)
	if failure != nil {
		fmt.Fprintf(ctx.Stderr, "%s\n%s\n", ctx.Formatter.Banner(failure.Title, false), failure.Description())
		return errors.NewValidationError("schema was not finalized", errors.ErrSchemaInvalid)
	}

	text, err := ctx.Formatter.FormatJSON(snapshot)
	if err != nil {
		return errors.NewOutputError("failed to render JSON", err)
	}
	fmt.Fprintln(ctx.Stderr, ctx.Formatter.Banner(session.SuccessTitle, true))
	return writeOutput(ctx, c.Output, text)
}

// SchemaCmd groups the JSON Schema conversions
type SchemaCmd struct {
	Export SchemaExportCmd `cmd:"" help:"Write the JSON Schema of the object a field document produces."`
	Import SchemaImportCmd `cmd:"" help:"Build a field document from a JSON Schema."`
}

// SchemaExportCmd writes the JSON Schema of a document's output
type SchemaExportCmd struct {
	InputFlags  `embed:""`
	OutputFlags `embed:""`
}

// Run executes the schema export command
func (c *SchemaExportCmd) Run(ctx *Context) error {
	tree, err := readTree(ctx, c.InputFlags)
	if err != nil {
		return err
	}
	text, err := ctx.Formatter.FormatJSON(schema.Export(tree, ctx.transformer()))
	if err != nil {
		return errors.NewOutputError("failed to render JSON Schema", err)
	}
	return writeOutput(ctx, c.Output, text)
}

// SchemaImportCmd converts a JSON Schema into a field document
type SchemaImportCmd struct {
	Schema string `arg:"" help:"Path to the JSON Schema file." type:"path"`
	To     string `help:"Format of the written field document." enum:"json,yaml" default:"json"`

	OutputFlags `embed:""`
}

// Run executes the schema import command
func (c *SchemaImportCmd) Run(ctx *Context) error {
	s, err := schema.ParseFile(c.Schema)
	if err != nil {
		return err
	}
	converter := schema.NewConverter(s)
	tree, err := converter.Convert()
	if err != nil {
		return err
	}
	for _, property := range converter.Skipped() {
		logging.Default().Warn("property has no field equivalent, skipped", "property", property)
	}

	format, err := parser.ParseFormat(c.To)
	if err != nil {
		return err
	}
	var buf strings.Builder
	if err := parser.Encode(&buf, tree, format); err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, buf.String())
}

// ImportExampleCmd derives a field document from an example payload
type ImportExampleCmd struct {
	Example string `arg:"" help:"Path to the example JSON object." type:"path"`
	To      string `help:"Format of the written field document." enum:"json,yaml" default:"json"`

	OutputFlags `embed:""`
}

// Run executes the import-example command
func (c *ImportExampleCmd) Run(ctx *Context) error {
	a := analyzer.NewAnalyzer()
	tree, err := a.AnalyzeFile(c.Example)
	if err != nil {
		return err
	}
	for _, skip := range a.Skipped() {
		logging.Default().Warn("value has no field equivalent, skipped", "path", skip.Path, "kind", skip.Kind)
	}
	if len(tree) == 0 {
		return errors.NewInputError("example has no string, number or object values", errors.ErrInvalidDocument)
	}

	format, err := parser.ParseFormat(c.To)
	if err != nil {
		return err
	}
	var buf strings.Builder
	if err := parser.Encode(&buf, tree, format); err != nil {
		return err
	}
	return writeOutput(ctx, c.Output, buf.String())
}

// ServeCmd runs the HTTP editing server
type ServeCmd struct {
	Addr string `help:"Listen address. Overrides the config file." short:"a"`
}

// Run executes the serve command
func (c *ServeCmd) Run(ctx *Context) error {
	addr := ctx.Config.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	idle, err := ctx.Config.IdleTimeout()
	if err != nil {
		return errors.NewInputError("invalid server configuration", err)
	}
	maxAge, err := ctx.Config.MaxAge()
	if err != nil {
		return errors.NewInputError("invalid server configuration", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{
		Addr:           addr,
		MaxAge:         maxAge,
		IdleTimeout:    idle,
		MaxErrorsShown: ctx.Config.Finalize.MaxErrorsShown,
		LogRequests:    ctx.Config.Dev.Verbose,
		Transformer:    ctx.transformer(),
		Logger:         logging.Default(),
	})
	if err := srv.Run(sigCtx); err != nil {
		return errors.NewServerError("server stopped unexpectedly", err)
	}
	return nil
}

// VersionCmd prints the version
type VersionCmd struct{}

// Run executes the version command
func (c *VersionCmd) Run(ctx *Context) error {
	fmt.Fprintf(ctx.Stdout, "jsonbuilder version %s\n", Version)
	return nil
}

// readTree reads the field document from a file or stdin
func readTree(ctx *Context, in InputFlags) (models.FieldTree, error) {
	if in.Input != "" {
		return parser.ParseFile(in.Input)
	}

	format, err := parser.ParseFormat(in.Format)
	if err != nil {
		return nil, err
	}

	if isTerminal(ctx.Stdin) {
		return nil, errors.NewInputError("no input provided, use --input or pipe a document", errors.ErrEmptyInput)
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	return parser.ParseBytes(data, format)
}

// writeOutput writes text to a file or stdout
func writeOutput(ctx *Context, path, text string) error {
	if path != "" {
		if err := writeFile(ctx, path, text); err != nil {
			return err
		}
		return nil
	}

	if _, err := fmt.Fprintln(ctx.Stdout, strings.TrimSpace(text)); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

func writeFile(ctx *Context, path, text string) error {
	if err := os.WriteFile(path, []byte(text+"\n"), 0644); err != nil {
		return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
	}
	fmt.Fprintf(ctx.Stderr, "JSON written to %s\n", path)
	return nil
}

// isTerminal reports whether r is an interactive terminal
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
