package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/amirbrooks/todo-vault/internal/codec"
	"github.com/amirbrooks/todo-vault/internal/config"
	"github.com/amirbrooks/todo-vault/internal/envelope"
	"github.com/amirbrooks/todo-vault/internal/kv"
	"github.com/amirbrooks/todo-vault/internal/logging"
	"github.com/amirbrooks/todo-vault/internal/model"
	"github.com/amirbrooks/todo-vault/internal/store"
	"github.com/amirbrooks/todo-vault/internal/tracker"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitDecrypt  = 5
	ExitInternal = 10
)

const EnvPassphrase = "TODO_PASSPHRASE"

var (
	errConflict = errors.New("conflict")
	errInternal = errors.New("internal")
)

type GlobalFlags struct {
	Root    string
	Backend string
	Quiet   bool
	Verbose bool
}

// app is what every command needs once the store root is resolved.
type app struct {
	gf     GlobalFlags
	cfg    config.Config
	logger *log.Logger
	kv     kv.Store
	gw     *store.Gateway
	tr     *tracker.Tracker

	// exportFormat overrides export.format from the config when set.
	exportFormat envelope.Format

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func Run(args []string) int {
	return run(args, os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(stderr, "todo:", err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, model.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, errConflict), errors.Is(err, codec.ErrMalformed):
		return ExitConflict
	case errors.Is(err, envelope.ErrUnableToDecrypt):
		return ExitDecrypt
	case errors.Is(err, errInternal):
		return ExitInternal
	default:
		// model.ErrInvalid, flag and argument errors.
		return ExitUsage
	}
}

func internalErr(err error) error {
	return fmt.Errorf("%w: %w", errInternal, err)
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "todo",
		Short: "Nested task lists kept in a local slot, with encrypted export",
		Long: `todo keeps projects of nested tasks in a single snapshot on disk.

The snapshot lives in one slot of a key-value store (a directory, a SQLite
file or memory). Export writes the whole snapshot as a passphrase-protected
token that import can restore anywhere.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.gf.Root, "root", "", "Store root (default: ~/.todo or TODO_ROOT)")
	pf.StringVar(&a.gf.Backend, "backend", "", "Store backend: dir, sqlite or memory (overrides config)")
	pf.BoolVarP(&a.gf.Quiet, "quiet", "q", false, "Print only ids and data")
	pf.BoolVarP(&a.gf.Verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		a.initCmd(),
		a.projectCmd(),
		a.addCmd(),
		a.subCmd(),
		a.editCmd(),
		a.statusCmd(),
		a.rmCmd(),
		a.lsCmd(),
		a.tagsCmd(),
		a.filterCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.doctorCmd(),
	)
	return root
}

// open resolves config, opens the backend and loads the snapshot.
func (a *app) open() error {
	if a.tr != nil {
		return nil
	}
	root := config.ResolveRoot(a.gf.Root)
	cfg, err := config.Load(root)
	if err != nil {
		return internalErr(err)
	}
	if strings.TrimSpace(a.gf.Backend) != "" {
		cfg.Backend = a.gf.Backend
	}
	if a.gf.Verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	a.logger = logging.New(a.stderr, cfg.Log.Level, cfg.Log.Format)

	gen, err := model.IDGeneratorFor(cfg.IDScheme)
	if err != nil {
		return err
	}
	format := a.exportFormat
	if format == "" {
		if format, err = envelope.ParseFormat(cfg.Export.Format); err != nil {
			return err
		}
	}
	s, err := kv.Open(cfg.Backend, cfg.StorePath())
	if err != nil {
		return internalErr(err)
	}
	a.kv = s
	a.logger.Debug("store opened", "backend", cfg.Backend, "path", cfg.StorePath(), "key", cfg.Key)

	a.gw = store.New(s, store.WithKey(cfg.Key), store.WithLogger(a.logger))
	a.tr = tracker.New(a.gw,
		tracker.WithIDGenerator(gen),
		tracker.WithEnvelope(envelope.New(envelope.WithFormat(format), envelope.WithWorkFactor(cfg.Export.WorkFactor))),
		tracker.WithLogger(a.logger),
	)
	a.tr.Load()
	return nil
}

func (a *app) close() {
	if a.kv != nil {
		_ = a.kv.Close()
	}
}

// saved turns a failed save after a mutation into an internal error. The
// change was applied in memory but is lost when the process exits.
func (a *app) saved() error {
	if err := a.tr.Err(); err != nil {
		return internalErr(fmt.Errorf("changes were not saved: %w", err))
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

// say prints a confirmation unless --quiet is set.
func (a *app) say(format string, args ...any) {
	if !a.gf.Quiet {
		fmt.Fprintf(a.stdout, format, args...)
	}
}

func (a *app) passphrase(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv(EnvPassphrase); env != "" {
		return env, nil
	}
	return "", fmt.Errorf("%w: passphrase required (--passphrase or %s)", model.ErrInvalid, EnvPassphrase)
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("%w: usage: %s", model.ErrInvalid, cmd.UseLine())
		}
		return nil
	}
}
