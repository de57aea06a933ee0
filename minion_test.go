package minion_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tinyrange/minion"
)

func newSample(t *testing.T, opts ...minion.Option) *minion.Machine {
	t.Helper()
	bin, err := minion.SampleImage()
	if err != nil {
		t.Fatalf("SampleImage() error = %v", err)
	}
	m, err := minion.New(bin, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(m.Release)
	return m
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEndToEnd(t *testing.T) {
	ctx := testContext(t)
	m := newSample(t)

	m.SetA0(10)
	if err := m.Call(ctx, "fib", minion.ModeExec, 0); err != nil {
		t.Fatalf("Call(fib) error = %v", err)
	}
	if got := m.A0(); got != 55 {
		t.Errorf("fib(10) = %d, want 55", got)
	}
	if m.PC() != minion.NativePC {
		t.Errorf("PC = %#x, want NativePC", m.PC())
	}
}

func TestMappedMemory(t *testing.T) {
	ctx := testContext(t)
	m := newSample(t)

	buf := make([]int32, 10)
	vptr := minion.MapSlice(m, buf)
	if vptr == 0 {
		t.Fatal("MapSlice() returned 0")
	}
	if vptr&0xFF000000 != minion.MapTag {
		t.Errorf("window %#x is not tagged", vptr)
	}

	m.SetRegU(10, vptr+4)
	m.SetA1(0x12345678)
	if err := m.Call(ctx, "poke32", minion.ModeExec, 0); err != nil {
		t.Fatalf("Call(poke32) error = %v", err)
	}
	if buf[1] != 0x12345678 {
		t.Errorf("buf[1] = %#x, want 0x12345678", buf[1])
	}

	if err := m.Unmap(vptr); err != nil {
		t.Fatalf("Unmap() error = %v", err)
	}
	if err := m.Unmap(vptr); err != nil {
		t.Errorf("Unmap() of a free window error = %v, want nil", err)
	}
	if err := m.Unmap(0x1234); !errors.Is(err, minion.ErrNotMapped) {
		t.Errorf("Unmap(untagged) error = %v, want ErrNotMapped", err)
	}
}

func TestFloatFunctions(t *testing.T) {
	ctx := testContext(t)
	m := newSample(t)

	const x, y float32 = 3.2, -4.5
	for _, tt := range []struct {
		fn   string
		want float32
	}{
		{"f_2op_add_s", x + y},
		{"f_2op_sub_s", x - y},
		{"f_2op_mul_s", x * y},
		{"f_2op_div_s", x / y},
		{"f_2op_min_s", y},
		{"f_2op_max_s", x},
	} {
		m.SetFA0S(x)
		m.SetFA1S(y)
		if err := m.Call(ctx, tt.fn, minion.ModeExec, 0); err != nil {
			t.Fatalf("Call(%s) error = %v", tt.fn, err)
		}
		if got := m.FA0S(); math.Abs(float64(got-tt.want)) > 1e-4 {
			t.Errorf("%s = %f, want %f", tt.fn, got, tt.want)
		}
	}
}

func TestDivideByZero(t *testing.T) {
	ctx := testContext(t)
	m := newSample(t)

	m.SetA0(7)
	m.SetA1(0)
	if err := m.Call(ctx, "divrem", minion.ModeExec, 0); err != nil {
		t.Fatalf("Call(divrem) error = %v", err)
	}
	if m.A0() != 0 || m.A1() != 0 {
		t.Errorf("divrem(7, 0) = %d, %d, want 0, 0", m.A0(), m.A1())
	}
	if m.Faulted() {
		t.Error("division by zero raised a fault")
	}
}

func TestFault(t *testing.T) {
	ctx := testContext(t)
	m := newSample(t)

	err := m.Call(ctx, "fault", minion.ModeExec, 0)
	if !errors.Is(err, minion.ErrFault) {
		t.Fatalf("Call(fault) error = %v, want ErrFault", err)
	}
	if err := m.Call(ctx, "missing", minion.ModeExec, 0); !errors.Is(err, minion.ErrNoFunc) {
		t.Errorf("Call(missing) error = %v, want ErrNoFunc", err)
	}
}

func TestEnvAndEcho(t *testing.T) {
	ctx := testContext(t)
	var out, echo bytes.Buffer
	m := newSample(t,
		minion.WithEnv(&out, nil),
		minion.WithEcho(&echo),
		minion.WithEchoConfig(minion.EchoConfig{ABINames: true, PseudoMnemonics: true}),
	)

	if err := m.Call(ctx, "hello", minion.ModeExec|minion.ModeEcho, 0); err != nil {
		t.Fatalf("Call(hello) error = %v", err)
	}
	if !strings.Contains(out.String(), "hello from minion") {
		t.Errorf("env output = %q", out.String())
	}
	if !strings.Contains(echo.String(), "ecall") {
		t.Errorf("echo output has no ecall:\n%s", echo.String())
	}
}

func TestImageRoundTrip(t *testing.T) {
	bin, err := minion.SampleImage()
	if err != nil {
		t.Fatalf("SampleImage() error = %v", err)
	}
	var buf bytes.Buffer
	if err := bin.Encode(&buf); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := minion.FromMemory(buf.Bytes())
	if err != nil {
		t.Fatalf("FromMemory() error = %v", err)
	}
	if !bytes.Equal(got.Code, bin.Code) || len(got.Funcs) != len(bin.Funcs) {
		t.Error("decoded image differs from the encoded one")
	}

	if _, err := minion.FromMemory([]byte("NOTMINION")); !errors.Is(err, minion.ErrBadMagic) {
		t.Errorf("FromMemory(junk) error = %v, want ErrBadMagic", err)
	}
}

func TestOptions(t *testing.T) {
	var _ minion.Option = minion.WithLogger(nil)
	var _ minion.Option = minion.WithEcho(nil)
	var _ minion.Option = minion.WithEchoConfig(minion.EchoConfig{})
	var _ minion.Option = minion.WithHooks(minion.Hooks{})
	var _ minion.Option = minion.WithTrace(nil, false)
	var _ minion.Option = minion.WithEnv(nil, nil)
}
