package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sokinpui/kubectl-watch.go/internal/backend"
	"github.com/sokinpui/kubectl-watch.go/internal/pipeline"
	"github.com/sokinpui/kubectl-watch.go/internal/state"
)

// EnvPrefix prefixes the environment variables that override flag defaults,
// e.g. KUBECTL_WATCH_WIDTH.
const EnvPrefix = "KUBECTL_WATCH"

// Config holds all the command-line flag values.
type Config struct {
	Kubeconfig  string
	KubeContext string
	Namespace   string
	Resource    string
	Name        string
	File        string

	TUI          bool
	Backend      string
	Mode         string
	Color        string
	Background   string
	Width        int
	TabWidth     int
	ContextLines int
	Language     string

	SyntaxHighlight bool
	InVCS           bool
	PrintUnchanged  bool
	MissingAsEmpty  bool

	IncludeManagedFields  bool
	IncludeLastApplied    bool
	IgnoreStatus          bool
	IgnoreResourceVersion bool

	GraphLimit int
	ByteLimit  int

	UniqueArtifacts bool
	ArtifactDir     string
	History         int
	ExitCode        bool
	LogLevel        string
}

// Default returns the configuration used when no flag is given.
func Default() *Config {
	return &Config{
		Backend:         string(backend.KindStructural),
		Mode:            backend.SideBySide.String(),
		Color:           "auto",
		Background:      "dark",
		TabWidth:        backend.DefaultTabWidth,
		ContextLines:    backend.DefaultContext,
		SyntaxHighlight: true,
		InVCS:           true,
		MissingAsEmpty:  true,
		GraphLimit:      backend.DefaultGraphLimit,
		ByteLimit:       backend.DefaultByteLimit,
		History:         state.DefaultLimit,
		LogLevel:        "warn",
	}
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse parses args. Environment variables with EnvPrefix fill in flags that
// were not given on the command line.
func Parse(args []string) (*Config, error) {
	def := Default()
	fs := pflag.NewFlagSet("kubectl-watch", pflag.ContinueOnError)

	fs.String("kubeconfig", "", "Path to the kubeconfig file.")
	fs.String("context", "", "Kubeconfig context to use.")
	fs.StringP("namespace", "n", "", "Namespace of the watched object. Defaults to the kubeconfig namespace.")
	fs.StringP("file", "f", "", "Read snapshots from a YAML/JSON stream instead of the cluster ('-' for stdin).")

	fs.Bool("tui", false, "Show diffs in an interactive two-pane view.")
	fs.String("backend", def.Backend, "Diff backend: structural or line.")
	fs.String("mode", def.Mode, "Layout: side-by-side, show-both or unified.")
	fs.String("color", def.Color, "Colour output: auto, always or never.")
	fs.String("background", def.Background, "Terminal background: dark or light.")
	fs.Int("width", 0, "Output width. Detected from the terminal when 0.")
	fs.Int("tab-width", def.TabWidth, "Columns per tab stop.")
	fs.Int("context-lines", def.ContextLines, "Unchanged lines shown around each change.")
	fs.String("language", "", "Override language detection for the structural backend (yaml, json, text).")

	fs.Bool("syntax-highlight", def.SyntaxHighlight, "Emphasize changed characters within changed lines.")
	fs.Bool("in-vcs", def.InVCS, "Use version-control style headers.")
	fs.Bool("print-unchanged", false, "Print the whole document when nothing changed.")
	fs.Bool("missing-as-empty", def.MissingAsEmpty, "Treat a missing previous snapshot as an empty document.")

	fs.Bool("include-managed-fields", false, "Keep metadata.managedFields in diffs.")
	fs.Bool("include-last-applied", false, "Keep the last-applied-configuration annotation in diffs.")
	fs.Bool("ignore-status", false, "Drop .status from diffs.")
	fs.Bool("ignore-resource-version", false, "Drop metadata.resourceVersion and metadata.generation from diffs.")

	fs.Int("graph-limit", def.GraphLimit, "Structural comparison budget before falling back to lines.")
	fs.Int("byte-limit", def.ByteLimit, "Largest input compared structurally, in bytes.")

	fs.Bool("unique-artifacts", false, "Give every diff its own scratch files instead of the shared minus/plus pair.")
	fs.String("artifact-dir", "", "Scratch directory for diff inputs. Defaults to $TMPDIR/kubectl-watch.")
	fs.Int("history", def.History, "Snapshots kept per object.")
	fs.Bool("exit-code", false, "Exit with status 1 when the last diff had changes.")
	fs.String("log-level", def.LogLevel, "Log level: trace, debug, info, warn, error or off.")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: kubectl-watch [flags] RESOURCE [NAME]")
		fmt.Fprintln(os.Stderr, "\nWatch Kubernetes objects and print a diff every time one changes.")
		fmt.Fprintln(os.Stderr, "\nExample: kubectl-watch -n default deployments.v1.apps web")
		fmt.Fprintln(os.Stderr, "         kubectl get deploy web -o yaml -w | kubectl-watch -f -")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	cfg := &Config{
		Kubeconfig:            v.GetString("kubeconfig"),
		KubeContext:           v.GetString("context"),
		Namespace:             v.GetString("namespace"),
		File:                  v.GetString("file"),
		TUI:                   v.GetBool("tui"),
		Backend:               v.GetString("backend"),
		Mode:                  v.GetString("mode"),
		Color:                 v.GetString("color"),
		Background:            v.GetString("background"),
		Width:                 v.GetInt("width"),
		TabWidth:              v.GetInt("tab-width"),
		ContextLines:          v.GetInt("context-lines"),
		Language:              v.GetString("language"),
		SyntaxHighlight:       v.GetBool("syntax-highlight"),
		InVCS:                 v.GetBool("in-vcs"),
		PrintUnchanged:        v.GetBool("print-unchanged"),
		MissingAsEmpty:        v.GetBool("missing-as-empty"),
		IncludeManagedFields:  v.GetBool("include-managed-fields"),
		IncludeLastApplied:    v.GetBool("include-last-applied"),
		IgnoreStatus:          v.GetBool("ignore-status"),
		IgnoreResourceVersion: v.GetBool("ignore-resource-version"),
		GraphLimit:            v.GetInt("graph-limit"),
		ByteLimit:             v.GetInt("byte-limit"),
		UniqueArtifacts:       v.GetBool("unique-artifacts"),
		ArtifactDir:           v.GetString("artifact-dir"),
		History:               v.GetInt("history"),
		ExitCode:              v.GetBool("exit-code"),
		LogLevel:              v.GetString("log-level"),
	}

	if err := cfg.setTarget(fs.Args()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setTarget reads RESOURCE [NAME] or RESOURCE/NAME.
func (c *Config) setTarget(args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 1:
		c.Resource, c.Name, _ = strings.Cut(args[0], "/")
	case 2:
		if strings.Contains(args[0], "/") {
			return fmt.Errorf("error: use either RESOURCE NAME or RESOURCE/NAME, not both")
		}
		c.Resource, c.Name = args[0], args[1]
	default:
		return fmt.Errorf("error: expected RESOURCE [NAME], got %d arguments", len(args))
	}
	return nil
}

// Validate checks the enumerated flags and the input selection.
func (c *Config) Validate() error {
	if c.File != "" && c.Resource != "" {
		return fmt.Errorf("error: --file and RESOURCE are mutually exclusive")
	}
	if _, err := backend.ParseKind(c.Backend); err != nil {
		return fmt.Errorf("error: %w", err)
	}
	if _, err := backend.ParseDisplayMode(c.Mode); err != nil {
		return fmt.Errorf("error: %w", err)
	}
	if _, err := backend.ParseBackground(c.Background); err != nil {
		return fmt.Errorf("error: %w", err)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("error: unknown color mode %q", c.Color)
	}
	if c.Width < 0 || c.TabWidth < 0 || c.ContextLines < 0 {
		return fmt.Errorf("error: --width, --tab-width and --context-lines must not be negative")
	}
	return nil
}

// BackendKind returns the selected backend.
func (c *Config) BackendKind() backend.Kind {
	kind, _ := backend.ParseKind(c.Backend)
	return kind
}

// UseColor resolves the --color setting against the terminal.
func (c *Config) UseColor() bool {
	switch c.Color {
	case "always":
		return true
	case "never":
		return false
	default:
		return !color.NoColor
	}
}

// DisplayConfig builds the immutable display settings for the backends.
func (c *Config) DisplayConfig() backend.DisplayConfig {
	mode, _ := backend.ParseDisplayMode(c.Mode)
	bg, _ := backend.ParseBackground(c.Background)
	return backend.DisplayConfig{
		Background:      bg,
		UseColor:        c.UseColor(),
		TabWidth:        c.TabWidth,
		Width:           c.Width,
		Mode:            mode,
		SyntaxHighlight: c.SyntaxHighlight,
		InVCS:           c.InVCS,
		PrintUnchanged:  c.PrintUnchanged,
		Context:         c.ContextLines,
	}
}

// Policy returns the preprocessing knobs.
func (c *Config) Policy() pipeline.Policy {
	return pipeline.Policy{
		IncludeManagedFields:  c.IncludeManagedFields,
		IncludeLastApplied:    c.IncludeLastApplied,
		IgnoreStatus:          c.IgnoreStatus,
		IgnoreResourceVersion: c.IgnoreResourceVersion,
	}
}

// Limits returns the structural backend's cost bounds.
func (c *Config) Limits() backend.Limits {
	return backend.Limits{GraphLimit: c.GraphLimit, ByteLimit: c.ByteLimit}
}
