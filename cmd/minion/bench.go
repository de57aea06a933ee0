package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tinyrange/minion/internal/cpu"
	"github.com/tinyrange/minion/internal/guest"
)

func (a *app) benchCommand() *cobra.Command {
	var native bool
	var progress bool

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time sin_s and cos_s over a sweep of inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("progress") {
				progress = isTerminal(a.stdout)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			m, _, err := a.newMachine()
			if err != nil {
				return err
			}
			defer m.Release()
			return a.benchSinCos(ctx, m, native, progress)
		},
	}
	cmd.Flags().BoolVar(&native, "perf-native", false, "run the host reference instead of the guest code")
	cmd.Flags().BoolVar(&progress, "progress", false, "show a progress bar (default: when stdout is a terminal)")
	return cmd
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) benchSinCos(ctx context.Context, m *cpu.Machine, native, progress bool) error {
	n := a.cfg.PerfCount
	val0 := float32(-8 * math.Pi)
	val1 := float32(8 * math.Pi)
	add := (val1 - val0) / float32(n)

	var pb *progressbar.ProgressBar
	if progress {
		pb = progressbar.Default(int64(n + 1))
		defer pb.Close()
	}

	eval := func(fn string, x float32) (float32, error) {
		m.SetFA0S(x)
		if err := m.Call(ctx, fn, 0, a.cfg.StepLimit); err != nil {
			return 0, err
		}
		return m.FA0S(), nil
	}

	var sum float32
	x := val0
	start := time.Now()
	for i := 0; i <= n; i++ {
		var s, c float32
		if native {
			s, c = guest.SinS(x), guest.CosS(x)
		} else {
			var err error
			if s, err = eval("sin_s", x); err != nil {
				return err
			}
			if c, err = eval("cos_s", x); err != nil {
				return err
			}
		}
		sum += s*s + c*c
		x += add
		if pb != nil {
			pb.Add(1)
		}
	}
	dt := time.Since(start)

	label := "minion"
	if native {
		label = "native"
	}
	if pb != nil {
		fmt.Fprintln(a.stderr)
	}
	a.printf("%s sum = %f\n", label, sum)
	if !native {
		a.printf("instrs executed: %d\n", m.InstrsExecuted())
		if secs := dt.Seconds(); secs > 0 {
			a.printf("rate: %.2f Minstr/s\n", float64(m.InstrsExecuted())/secs/1e6)
		}
	}
	a.printf("dt: %.2f millis (%.3f sec)\n", float64(dt.Microseconds())/1e3, dt.Seconds())
	return nil
}
