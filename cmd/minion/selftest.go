package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinyrange/minion/internal/cpu"
	"github.com/tinyrange/minion/internal/guest"
)

var errMismatch = errors.New("result mismatch")

type selftest struct {
	name string
	run  func(a *app, ctx context.Context, m *cpu.Machine) error
}

var selftests = []selftest{
	{"fib", (*app).testFib},
	{"inner_mem", (*app).testInnerMem},
	{"mapped_mem", (*app).testMappedMem},
	{"f_2op_s", (*app).testF2opS},
	{"f_1op_s", (*app).testF1opS},
	{"fcvt", (*app).testFcvt},
	{"sin_s", (*app).testSinS},
	{"cos_s", (*app).testCosS},
	{"env", (*app).testEnv},
	{"disasm", (*app).testDisasm},
}

func findSelftest(name string) (selftest, bool) {
	for _, st := range selftests {
		if st.name == name {
			return st, true
		}
	}
	return selftest{}, false
}

func selftestNames() []string {
	names := make([]string, len(selftests))
	for i, st := range selftests {
		names[i] = st.name
	}
	return names
}

func (a *app) testCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test [name...|all]",
		Short: "Run self tests against the sample image",
		Long:  "Run self tests against the sample image. Available: " + strings.Join(selftestNames(), ", ") + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{a.cfg.Test}
			}
			if len(args) == 1 && args[0] == "all" {
				args = selftestNames()
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			var failed []string
			for _, name := range args {
				st, ok := findSelftest(name)
				if !ok {
					return fmt.Errorf("unknown test %q (available: %s)", name, strings.Join(selftestNames(), ", "))
				}
				m, _, err := a.newMachine()
				if err != nil {
					return err
				}
				a.printf("----------------------------------\n")
				a.printf("test %s\n", st.name)
				err = st.run(a, ctx, m)
				m.Release()
				switch {
				case errors.Is(err, errMismatch):
					a.printf("!!! %s: %v\n", st.name, err)
					failed = append(failed, st.name)
				case err != nil:
					return fmt.Errorf("test %s: %w", st.name, err)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d test(s) failed: %s", len(failed), strings.Join(failed, ", "))
			}
			return nil
		},
	}
}

func (a *app) call(ctx context.Context, m *cpu.Machine, name string) error {
	return m.Call(ctx, name, a.mode(), a.cfg.StepLimit)
}

func fibRef(x uint32) uint32 {
	if x >= 2 {
		x = fibRef(x-1) + fibRef(x-2)
	}
	return x
}

func (a *app) testFib(ctx context.Context, m *cpu.Machine) error {
	a.printf("fib @ func[%d]\n", m.FindFunc("fib"))
	for i := int32(0); i < 13; i++ {
		ref := int32(fibRef(uint32(i)))
		m.SetA0(i)
		if err := a.call(ctx, m, "fib"); err != nil {
			return err
		}
		res := m.A0()
		a.printf("%2d: ref = %d, res = %d\n", i, ref, res)
		if res != ref {
			return fmt.Errorf("%w: fib(%d)", errMismatch, i)
		}
	}
	a.printf("instrs executed: %d\n", m.InstrsExecuted())
	return nil
}

func (a *app) testInnerMem(ctx context.Context, m *cpu.Machine) error {
	if err := a.call(ctx, m, "get_data_buf"); err != nil {
		return err
	}
	buf := uint32(m.A0())
	a.printf("buf @ 0x%X\n", buf)

	if err := a.call(ctx, m, "get_data_buf_size"); err != nil {
		return err
	}
	size := m.A0()
	a.printf("buf size: %d bytes\n", size)
	n := uint32(size) / 4

	a.printf("poking ...\n")
	for i := uint32(0); i < n; i++ {
		ptr := buf + i*4
		a.printf(" --> poke(0x%X, %d)\n", ptr, i)
		m.SetRegU(10, ptr)
		m.SetA1(int32(i))
		if err := a.call(ctx, m, "poke32"); err != nil {
			return err
		}
	}
	a.printf("peeking ...\n")
	for i := uint32(0); i < n; i++ {
		ptr := buf + i*4
		m.SetRegU(10, ptr)
		if err := a.call(ctx, m, "peek32"); err != nil {
			return err
		}
		v := m.A0()
		a.printf("<-- peek(0x%X): %d\n", ptr, v)
		if v != int32(i) {
			return fmt.Errorf("%w: peek-poke @ %d", errMismatch, i)
		}
	}
	return nil
}

func (a *app) testMappedMem(ctx context.Context, m *cpu.Machine) error {
	const testNum = 0x12345678
	const testIdx = 1

	buf := make([]int32, 10)
	vptr := cpu.MapSlice(m, buf)
	if vptr == 0 {
		return fmt.Errorf("map failed")
	}
	defer m.Unmap(vptr)
	a.printf("map: %d bytes -> %X\n", len(buf)*4, vptr)

	m.SetRegU(10, vptr+testIdx*4)
	m.SetA1(testNum)
	if err := a.call(ctx, m, "poke32"); err != nil {
		return err
	}
	if buf[testIdx] != testNum {
		return fmt.Errorf("%w: mapped poke", errMismatch)
	}
	return nil
}

func feqS(x, y float32) bool {
	return math.Abs(float64(x-y)) < 1e-4
}

func (a *app) testF2opS(ctx context.Context, m *cpu.Machine) error {
	const val1, val2 float32 = 3.2, -4.5
	tbl := []struct {
		op, fn string
		ref    float32
	}{
		{"+", "f_2op_add_s", val1 + val2},
		{"-", "f_2op_sub_s", val1 - val2},
		{"*", "f_2op_mul_s", val1 * val2},
		{"/", "f_2op_div_s", val1 / val2},
		{"min", "f_2op_min_s", min(val1, val2)},
		{"max", "f_2op_max_s", max(val1, val2)},
	}
	for _, tc := range tbl {
		m.SetFA0S(val1)
		m.SetFA1S(val2)
		if err := a.call(ctx, m, tc.fn); err != nil {
			return err
		}
		res := m.FA0S()
		a.printf("%s %f %f\nref: %f\nres: %f\n", tc.op, val1, val2, tc.ref, res)
		if !feqS(res, tc.ref) {
			return fmt.Errorf("%w: 2op_s %s", errMismatch, tc.op)
		}
	}
	return nil
}

func (a *app) testF1opS(ctx context.Context, m *cpu.Machine) error {
	const val float32 = -1.23
	for _, tc := range []struct {
		name, fn string
		ref      float32
	}{
		{"neg", "f_neg_s", -val},
		{"abs", "f_abs_s", float32(math.Abs(float64(val)))},
		{"sqrt", "f_sqrt_s", float32(math.Sqrt(float64(-val)))},
	} {
		arg := val
		if tc.name == "sqrt" {
			arg = -val
		}
		m.SetFA0S(arg)
		if err := a.call(ctx, m, tc.fn); err != nil {
			return err
		}
		res := m.FA0S()
		a.printf("%s -> ref: %f, res: %f\n", tc.name, tc.ref, res)
		if !feqS(res, tc.ref) {
			return fmt.Errorf("%w: %s", errMismatch, tc.name)
		}
	}
	return nil
}

func (a *app) testFcvt(ctx context.Context, m *cpu.Machine) error {
	m.SetFA0S(-1.2)
	if err := a.call(ctx, m, "fcvt_w_s"); err != nil {
		return err
	}
	ires := m.A0()
	if err := a.call(ctx, m, "fcvt_wu_s"); err != nil {
		return err
	}
	ures := uint32(m.A0())
	a.printf("ires: %d\nures: %x\n", ires, ures)

	const dval = 3.14159265
	m.SetFA0D(dval)
	if err := a.call(ctx, m, "fcvt_s_d"); err != nil {
		return err
	}
	fres := m.FA0S()
	a.printf("%.8f -> %.8f\n", dval, fres)

	if ires != -1 || ures != 0 || fres != float32(dval) {
		return fmt.Errorf("%w: fcvt", errMismatch)
	}
	return nil
}

func (a *app) testSinS(ctx context.Context, m *cpu.Machine) error {
	return a.sweep(ctx, m, "sin_s", guest.SinS)
}

func (a *app) testCosS(ctx context.Context, m *cpu.Machine) error {
	return a.sweep(ctx, m, "cos_s", guest.CosS)
}

// sweep compares fn over [-8pi, 8pi] with its host reference.
func (a *app) sweep(ctx context.Context, m *cpu.Machine, fn string, ref func(float32) float32) error {
	const n = 100
	val0 := float32(-8 * math.Pi)
	val1 := float32(8 * math.Pi)
	add := (val1 - val0) / n

	a.printf("testing %s...\n", fn)
	x := val0
	for i := 0; i <= n; i++ {
		want := ref(x)
		m.SetFA0S(x)
		if err := a.call(ctx, m, fn); err != nil {
			return err
		}
		res := m.FA0S()
		a.printf("%f -> ref: %f, res: %f\n", x, want, res)
		if !feqS(res, want) {
			return fmt.Errorf("%w: %s(%f)", errMismatch, fn, x)
		}
		x += add
	}
	return nil
}

func (a *app) testEnv(ctx context.Context, m *cpu.Machine) error {
	if err := a.call(ctx, m, "hello"); err != nil {
		return err
	}
	if err := a.call(ctx, m, "code_org"); err != nil {
		return err
	}
	org := uint32(m.A0())
	a.printf("code org: 0x%X\n", org)
	if org != m.CodeOrg() {
		return fmt.Errorf("%w: code org", errMismatch)
	}
	return nil
}

func (a *app) testDisasm(ctx context.Context, m *cpu.Machine) error {
	return a.dumpFunc(m, "sin_s")
}
