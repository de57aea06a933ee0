package guest

import (
	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/asm/rv32"
	"github.com/tinyrange/minion/internal/ecall"
)

// HelloText is what the hello function prints through OUTSTR.
const HelloText = "hello from minion\n"

func callEnv(code int32) asm.Fragment {
	return asm.Group{rv32.Li(rv32.A7, code), rv32.Ecall()}
}

// envFunctions use the environment call protocol implemented by
// internal/ecall.
func envFunctions() []rv32.Function {
	return []rv32.Function{
		rv32.Func("hello",
			rv32.La(rv32.A0, "hello.msg"),
			callEnv(ecall.OutStr),
			rv32.Ret(),
			asm.MarkLabel("hello.msg"),
			asm.String(HelloText),
		),
		rv32.Func("print_int", callEnv(ecall.OutInt), rv32.Ret()),
		rv32.Func("print_hex", callEnv(ecall.OutHex), rv32.Ret()),
		rv32.Func("print_f32", callEnv(ecall.OutF32), rv32.Ret()),
		rv32.Func("host_strlen", callEnv(ecall.StrLen), rv32.Ret()),

		// code_org asks the host for its ENV_INFO block on the stack.
		rv32.Func("code_org",
			rv32.Addi(rv32.SP, rv32.SP, -16),
			rv32.Mv(rv32.A0, rv32.SP),
			callEnv(ecall.EnvInfo),
			rv32.Lw(rv32.A0, rv32.SP, 0),
			rv32.Addi(rv32.SP, rv32.SP, 16),
			rv32.Ret(),
		),

		// emath_s(func a0, x fa0, y fa1) returns the host result in fa0.
		rv32.Func("emath_s",
			rv32.Addi(rv32.SP, rv32.SP, -16),
			rv32.Sw(rv32.A0, rv32.SP, 0),
			rv32.Fsw(rv32.FA0, rv32.SP, 4),
			rv32.Fsw(rv32.FA1, rv32.SP, 8),
			rv32.Mv(rv32.A0, rv32.SP),
			callEnv(ecall.Math),
			rv32.Flw(rv32.FA0, rv32.SP, 12),
			rv32.Addi(rv32.SP, rv32.SP, 16),
			rv32.Ret(),
		),
	}
}
