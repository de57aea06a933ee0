package cpu

import (
	"io"
	"log/slog"
)

// Option configures a Machine created by New.
type Option interface {
	IsOption()
}

type machineConfig struct {
	logger     *slog.Logger
	echo       io.Writer
	echoConfig EchoConfig
	hooks      Hooks
	trace      io.Writer
	traceFregs bool
}

type machineOption struct {
	apply func(*machineConfig)
}

func (*machineOption) IsOption() {}

// WithLogger routes diagnostics to l. A nil logger silences them.
func WithLogger(l *slog.Logger) Option {
	return &machineOption{apply: func(c *machineConfig) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		c.logger = l
	}}
}

// WithEcho sets where echoed instructions are written when ModeEcho is
// used. The default is io.Discard.
func WithEcho(w io.Writer) Option {
	return &machineOption{apply: func(c *machineConfig) {
		if w == nil {
			w = io.Discard
		}
		c.echo = w
	}}
}

func WithEchoConfig(cfg EchoConfig) Option {
	return &machineOption{apply: func(c *machineConfig) {
		c.echoConfig = cfg
	}}
}

// WithHooks installs the extension hooks. Nil fields fall back to no-ops.
func WithHooks(h Hooks) Option {
	return &machineOption{apply: func(c *machineConfig) {
		c.hooks = h
	}}
}

// WithTrace makes Run dump the register file to w after every step. With
// fregs set the single-precision float registers are dumped too.
func WithTrace(w io.Writer, fregs bool) Option {
	return &machineOption{apply: func(c *machineConfig) {
		c.trace = w
		c.traceFregs = fregs
	}}
}

func defaultMachineConfig() machineConfig {
	return machineConfig{
		logger:     slog.Default(),
		echo:       io.Discard,
		echoConfig: EchoConfig{ABINames: true, PseudoMnemonics: true},
	}
}

func parseOptions(opts []Option) machineConfig {
	cfg := defaultMachineConfig()
	for _, opt := range opts {
		if o, ok := opt.(*machineOption); ok && o.apply != nil {
			o.apply(&cfg)
		}
	}
	return cfg
}
