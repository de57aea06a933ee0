// Command minion loads RV32G images and runs their functions in the minion
// interpreter.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinyrange/minion/internal/config"
	"github.com/tinyrange/minion/internal/cpu"
	"github.com/tinyrange/minion/internal/ecall"
	"github.com/tinyrange/minion/internal/guest"
	"github.com/tinyrange/minion/internal/loader"
)

// builtinImage selects the sample image instead of a file.
const builtinImage = "builtin"

type app struct {
	configPath string
	cfg        config.Config

	binPath      string
	binMem       bool
	silent       bool
	echo         bool
	abiNames     bool
	altMnemonics bool
	execDbg      bool
	dbgFregs     bool
	logLevel     string
	stepLimit    int
	perfCount    int

	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "minion",
		Short:         "Run RV32G guest functions one instruction at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "run file (yaml)")
	flags.StringVar(&a.binPath, "bin-path", config.DefaultBinPath, "binary image, or \""+builtinImage+"\" for the sample image")
	flags.BoolVar(&a.binMem, "bin-mem", false, "read the whole image into memory before parsing")
	flags.BoolVar(&a.silent, "silent", false, "discard diagnostics")
	flags.BoolVar(&a.echo, "echo", false, "echo every executed instruction")
	flags.BoolVar(&a.abiNames, "abi-names", true, "print ABI register names")
	flags.BoolVar(&a.altMnemonics, "alt-mnemonics", true, "print pseudo mnemonics where possible")
	flags.BoolVar(&a.execDbg, "exec-dbg", false, "dump registers after every instruction")
	flags.BoolVar(&a.dbgFregs, "dbg-fregs", false, "include float registers in --exec-dbg dumps")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.IntVar(&a.stepLimit, "step-limit", config.DefaultStepLimit, "instructions per call, negative for no limit")
	flags.IntVar(&a.perfCount, "perf-count", config.DefaultPerfCount, "iterations for bench")

	root.AddCommand(
		a.infoCommand(),
		a.disasmCommand(),
		a.runCommand(),
		a.testCommand(),
		a.benchCommand(),
		a.mkimageCommand(),
	)
	return root
}

// setup merges the run file with the flags that were set explicitly.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("bin-path") || a.configPath == "" {
		cfg.BinPath = a.binPath
	}
	if flags.Changed("bin-mem") {
		cfg.BinMem = a.binMem
	}
	if flags.Changed("silent") {
		cfg.Debug.Silent = a.silent
	}
	if flags.Changed("echo") {
		cfg.Echo.Instrs = a.echo
	}
	if flags.Changed("abi-names") {
		cfg.Echo.ABINames = a.abiNames
	}
	if flags.Changed("alt-mnemonics") {
		cfg.Echo.AltMnemonics = a.altMnemonics
	}
	if flags.Changed("exec-dbg") {
		cfg.Debug.ExecDbg = a.execDbg
	}
	if flags.Changed("dbg-fregs") {
		cfg.Debug.DbgFregs = a.dbgFregs
	}
	if flags.Changed("log-level") {
		cfg.Debug.LogLevel = a.logLevel
	}
	if flags.Changed("step-limit") {
		cfg.StepLimit = a.stepLimit
	}
	if flags.Changed("perf-count") {
		cfg.PerfCount = a.perfCount
	}
	a.cfg = cfg

	log, err := newLogger(a.stderr, cfg.Debug)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func newLogger(w io.Writer, dbg config.DebugConfig) (*slog.Logger, error) {
	if dbg.Silent {
		return slog.New(slog.DiscardHandler), nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(dbg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", dbg.LogLevel, err)
	}
	if dbg.ExecDbg && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func (a *app) loadBinary() (*loader.Binary, error) {
	path := a.cfg.BinPath
	if path == builtinImage {
		return guest.Build()
	}
	if a.cfg.BinMem {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		a.log.Debug("loading binary via memory", "path", path, "size", len(data))
		return loader.FromMemory(data, loader.WithLogger(a.log))
	}
	a.log.Debug("loading binary from file", "path", path)
	return loader.Load(path, loader.WithLogger(a.log))
}

func (a *app) echoConfig() cpu.EchoConfig {
	return cpu.EchoConfig{
		ABINames:        a.cfg.Echo.ABINames,
		PseudoMnemonics: a.cfg.Echo.AltMnemonics,
	}
}

// newMachine loads the image and wires the ecall handler, echo and trace
// output to stdout.
func (a *app) newMachine() (*cpu.Machine, *ecall.Handler, error) {
	bin, err := a.loadBinary()
	if err != nil {
		return nil, nil, err
	}

	env := ecall.New(a.stdout, a.log)
	opts := []cpu.Option{
		cpu.WithLogger(a.log),
		cpu.WithEcho(a.stdout),
		cpu.WithEchoConfig(a.echoConfig()),
		cpu.WithHooks(cpu.Hooks{Env: env}),
	}
	if a.cfg.Debug.ExecDbg {
		opts = append(opts, cpu.WithTrace(a.stdout, a.cfg.Debug.DbgFregs))
	}
	m, err := cpu.New(bin, opts...)
	if err != nil {
		return nil, nil, err
	}
	return m, env, nil
}

func (a *app) mode() cpu.Mode {
	if a.cfg.Echo.Instrs {
		return cpu.ModeEcho
	}
	return 0
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}

func run() error {
	return newRootCommand(os.Stdout, os.Stderr).Execute()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "minion: %v\n", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
