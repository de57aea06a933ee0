package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tinyrange/minion/internal/cpu"
	"github.com/tinyrange/minion/internal/guest"
)

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the image header and symbol table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := a.loadBinary()
			if err != nil {
				return err
			}
			return bin.Info(a.stdout)
		},
	}
}

func (a *app) disasmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm [func...]",
		Short: "Echo the instructions of functions without executing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := a.newMachine()
			if err != nil {
				return err
			}
			defer m.Release()

			if len(args) == 0 {
				for _, fn := range m.Funcs() {
					args = append(args, fn.Name)
				}
			}
			for _, name := range args {
				if err := a.dumpFunc(m, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) dumpFunc(m *cpu.Machine, name string) error {
	idx := m.FindFunc(name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", cpu.ErrNoFunc, name)
	}
	m.SetPCToFuncIdx(idx)
	n := m.FuncInstrCount(idx)
	a.printf("func %s @ %X, %d instrs\n", name, m.PC(), n)
	for i := 0; i < n; i++ {
		m.Exec(m.FetchPCInstr(), cpu.ModeEcho)
	}
	return nil
}

func (a *app) runCommand() *cobra.Command {
	var floats []float32
	var double bool

	cmd := &cobra.Command{
		Use:   "run <func> [int args...]",
		Short: "Call a guest function and print a0 and fa0",
		Args:  cobra.RangeArgs(1, 9),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := a.newMachine()
			if err != nil {
				return err
			}
			defer m.Release()

			for i, s := range args[1:] {
				v, err := strconv.ParseInt(s, 0, 64)
				if err != nil {
					return fmt.Errorf("argument a%d: %w", i, err)
				}
				m.SetA(i, int32(v))
			}
			for i, f := range floats {
				if double {
					m.SetFregD(uint32(10+i), float64(f))
				} else {
					m.SetFregS(uint32(10+i), f)
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := m.Call(ctx, args[0], a.mode(), a.cfg.StepLimit); err != nil {
				return err
			}
			a.printf("a0: %d (0x%08X)\n", m.A0(), uint32(m.A0()))
			a.printf("a1: %d (0x%08X)\n", m.A1(), uint32(m.A1()))
			a.printf("fa0: %g\n", m.FA0S())
			a.printf("instrs executed: %d\n", m.InstrsExecuted())
			return nil
		},
	}
	cmd.Flags().Float32SliceVar(&floats, "fa", nil, "float arguments for fa0, fa1, ...")
	cmd.Flags().BoolVar(&double, "double", false, "pass --fa values as doubles")
	return cmd
}

// manifest is the yaml summary written by mkimage --manifest.
type manifest struct {
	CodeOrg string          `yaml:"codeOrg"`
	GP      string          `yaml:"gp"`
	Size    int             `yaml:"size"`
	Funcs   []manifestEntry `yaml:"funcs"`
}

type manifestEntry struct {
	Name   string `yaml:"name"`
	Addr   string `yaml:"addr"`
	Instrs int    `yaml:"instrs"`
}

func (a *app) mkimageCommand() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "mkimage [path]",
		Short: "Assemble the sample guest image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.BinPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == builtinImage {
				return fmt.Errorf("mkimage needs a file path")
			}

			bin, err := guest.Build()
			if err != nil {
				return fmt.Errorf("assemble sample image: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create image dir: %w", err)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create image: %w", err)
			}
			defer f.Close()
			if err := bin.Encode(f); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close image: %w", err)
			}
			a.log.Info("wrote image", "path", path, "size", len(bin.Code), "funcs", len(bin.Funcs))

			if manifestPath == "" {
				return nil
			}
			man := manifest{
				CodeOrg: fmt.Sprintf("0x%X", bin.CodeOrg),
				GP:      fmt.Sprintf("0x%X", bin.GP),
				Size:    len(bin.Code),
			}
			for _, fn := range bin.Funcs {
				man.Funcs = append(man.Funcs, manifestEntry{
					Name:   fn.Name,
					Addr:   fmt.Sprintf("0x%X", fn.Addr),
					Instrs: fn.InstrCount(),
				})
			}
			data, err := yaml.Marshal(&man)
			if err != nil {
				return fmt.Errorf("encode manifest: %w", err)
			}
			return os.WriteFile(manifestPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "also write a yaml symbol manifest")
	return cmd
}
