// Package guest assembles the sample RV32G image used by the minion test
// command and the integration tests.
package guest

import (
	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/asm/rv32"
	"github.com/tinyrange/minion/internal/loader"
)

const (
	CodeOrg = 0x10000
	GP      = CodeOrg + 0x800

	// DataBufSize is the size of the buffer returned by get_data_buf.
	DataBufSize = 20
)

// Functions returns every function of the sample image in link order.
func Functions() []rv32.Function {
	funcs := []rv32.Function{
		fib(),

		rv32.Func("get_data_buf", rv32.La(rv32.A0, "sdata_buf"), rv32.Ret()),
		rv32.Func("get_data_buf_size", rv32.Li(rv32.A0, DataBufSize), rv32.Ret()),
		rv32.Func("sdata_buf",
			rv32.Word(0xffffffff), rv32.Word(0), rv32.Word(0), rv32.Word(0), rv32.Word(0),
		),

		rv32.Func("poke8", rv32.Sb(rv32.A1, rv32.A0, 0), rv32.Ret()),
		rv32.Func("peek_u8", rv32.Lbu(rv32.A0, rv32.A0, 0), rv32.Ret()),
		rv32.Func("peek_i8", rv32.Lb(rv32.A0, rv32.A0, 0), rv32.Ret()),
		rv32.Func("poke16", rv32.Sh(rv32.A1, rv32.A0, 0), rv32.Ret()),
		rv32.Func("peek_u16", rv32.Lhu(rv32.A0, rv32.A0, 0), rv32.Ret()),
		rv32.Func("peek_i16", rv32.Lh(rv32.A0, rv32.A0, 0), rv32.Ret()),
		rv32.Func("poke32", rv32.Sw(rv32.A1, rv32.A0, 0), rv32.Ret()),
		rv32.Func("peek32", rv32.Lw(rv32.A0, rv32.A0, 0), rv32.Ret()),

		rv32.Func("f_2op_add_s", rv32.FaddS(rv32.FA0, rv32.FA0, rv32.FA1), rv32.Ret()),
		rv32.Func("f_2op_sub_s", rv32.FsubS(rv32.FA0, rv32.FA0, rv32.FA1), rv32.Ret()),
		rv32.Func("f_2op_mul_s", rv32.FmulS(rv32.FA0, rv32.FA0, rv32.FA1), rv32.Ret()),
		rv32.Func("f_2op_div_s", rv32.FdivS(rv32.FA0, rv32.FA0, rv32.FA1), rv32.Ret()),
		rv32.Func("f_2op_min_s", rv32.FminS(rv32.FA0, rv32.FA0, rv32.FA1), rv32.Ret()),
		rv32.Func("f_2op_max_s", rv32.FmaxS(rv32.FA0, rv32.FA0, rv32.FA1), rv32.Ret()),
		rv32.Func("f_sqrt_s", rv32.FsqrtS(rv32.FA0, rv32.FA0), rv32.Ret()),
		rv32.Func("f_abs_s", rv32.FabsS(rv32.FA0, rv32.FA0), rv32.Ret()),
		rv32.Func("f_neg_s", rv32.FnegS(rv32.FA0, rv32.FA0), rv32.Ret()),

		rv32.Func("fcvt_w_s", rv32.FcvtWS(rv32.A0, rv32.FA0), rv32.Ret()),
		rv32.Func("fcvt_wu_s", rv32.FcvtWUS(rv32.A0, rv32.FA0), rv32.Ret()),
		rv32.Func("fcvt_s_d", rv32.FcvtSD(rv32.FA0, rv32.FA0), rv32.Ret()),
		rv32.Func("fcvt_s_w", rv32.FcvtSW(rv32.FA0, rv32.A0), rv32.Ret()),
		rv32.Func("fcvt_s_wu", rv32.FcvtSWU(rv32.FA0, rv32.A0), rv32.Ret()),

		// divrem returns a0/a1 in a0 and a0%a1 in a1.
		rv32.Func("divrem",
			rv32.Mv(rv32.T0, rv32.A0),
			rv32.Div(rv32.A0, rv32.T0, rv32.A1),
			rv32.Rem(rv32.A1, rv32.T0, rv32.A1),
			rv32.Ret(),
		),

		sumWords(),
		dotS(),
	}
	funcs = append(funcs, sinCos("sin_s", false), sinCos("cos_s", true))
	funcs = append(funcs, envFunctions()...)
	funcs = append(funcs,
		rv32.Func("_start", rv32.Sub(rv32.A0, rv32.A0, rv32.A0), rv32.Ebreak(), rv32.Ret()),
		rv32.Func("fault", rv32.Word(0), rv32.Ret()),
		rv32.Func("spin", asm.MarkLabel("spin.loop"), rv32.J("spin.loop")),
	)
	return funcs
}

// Build links the sample image.
func Build() (*loader.Binary, error) {
	return rv32.Link(rv32.Layout{
		CodeOrg:  CodeOrg,
		DataOrg:  CodeOrg,
		SDataOrg: CodeOrg,
		GP:       GP,
	}, Functions()...)
}

func MustBuild() *loader.Binary {
	bin, err := Build()
	if err != nil {
		panic(err)
	}
	return bin
}

func fib() rv32.Function {
	return rv32.Func("fib",
		rv32.Li(rv32.T0, 2),
		rv32.Bltu(rv32.A0, rv32.T0, "fib.done"),
		rv32.Addi(rv32.SP, rv32.SP, -16),
		rv32.Sw(rv32.RA, rv32.SP, 12),
		rv32.Sw(rv32.S0, rv32.SP, 8),
		rv32.Sw(rv32.S1, rv32.SP, 4),
		rv32.Mv(rv32.S0, rv32.A0),
		rv32.Addi(rv32.A0, rv32.S0, -1),
		rv32.Call("fib"),
		rv32.Mv(rv32.S1, rv32.A0),
		rv32.Addi(rv32.A0, rv32.S0, -2),
		rv32.Call("fib"),
		rv32.Add(rv32.A0, rv32.A0, rv32.S1),
		rv32.Lw(rv32.RA, rv32.SP, 12),
		rv32.Lw(rv32.S0, rv32.SP, 8),
		rv32.Lw(rv32.S1, rv32.SP, 4),
		rv32.Addi(rv32.SP, rv32.SP, 16),
		asm.MarkLabel("fib.done"),
		rv32.Ret(),
	)
}

// sumWords adds the a1 words starting at a0.
func sumWords() rv32.Function {
	return rv32.Func("sum_words",
		rv32.Li(rv32.T0, 0),
		asm.MarkLabel("sum_words.loop"),
		rv32.Beqz(rv32.A1, "sum_words.done"),
		rv32.Lw(rv32.T1, rv32.A0, 0),
		rv32.Add(rv32.T0, rv32.T0, rv32.T1),
		rv32.Addi(rv32.A0, rv32.A0, 4),
		rv32.Addi(rv32.A1, rv32.A1, -1),
		rv32.J("sum_words.loop"),
		asm.MarkLabel("sum_words.done"),
		rv32.Mv(rv32.A0, rv32.T0),
		rv32.Ret(),
	)
}

// dotS returns the dot product of the a2 floats at a0 and a1 in fa0.
func dotS() rv32.Function {
	return rv32.Func("dot_s",
		rv32.FmvWX(rv32.FA0, rv32.Zero),
		asm.MarkLabel("dot_s.loop"),
		rv32.Beqz(rv32.A2, "dot_s.done"),
		rv32.Flw(rv32.FT0, rv32.A0, 0),
		rv32.Flw(rv32.FT1, rv32.A1, 0),
		rv32.FmaddS(rv32.FA0, rv32.FT0, rv32.FT1, rv32.FA0),
		rv32.Addi(rv32.A0, rv32.A0, 4),
		rv32.Addi(rv32.A1, rv32.A1, 4),
		rv32.Addi(rv32.A2, rv32.A2, -1),
		rv32.J("dot_s.loop"),
		asm.MarkLabel("dot_s.done"),
		rv32.Ret(),
	)
}
