package guest

import (
	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/asm/rv32"
)

// Cody-Waite reduction by pi/4 and minimax polynomials on [-pi/4, pi/4].
const (
	piF       float32 = 3.14159274
	fourOverPi        = 4 / piF
	maxArg            = float32(1<<24 - 1)
	splitArg          = float32(1 << 13)

	dp1 = 0.78515625
	dp2 = 0.000241875648
	dp3 = 3.77489506e-8

	sinC1 = 0.00833216123
	sinC2 = 0.000195152956
	sinC3 = 0.166666552

	cosC1 = 2.44331568e-5
	cosC2 = 0.00138873165
	cosC3 = 0.0416666456
)

// SinS is the host version of the guest sin_s.
func SinS(x float32) float32 { return sinCosRef(x, false) }

// CosS is the host version of the guest cos_s.
func CosS(x float32) float32 { return sinCosRef(x, true) }

func sinCosRef(x float32, cos bool) float32 {
	sgn := float32(1)
	val := x
	if x < 0 {
		val = -x
		if !cos {
			sgn = -1
		}
	}
	if val > maxArg {
		return 0
	}

	ir := uint32(val * fourOverPi)
	ir += ir & 1
	fr := float32(ir)
	ir &= 7
	if ir > 3 {
		ir -= 4
		sgn = -sgn
	}
	if cos && ir > 1 {
		sgn = -sgn
	}

	if val > splitArg {
		val = val - fr*(piF/4)
	} else {
		val -= fr * dp1
		val -= fr * dp2
		val -= fr * dp3
	}

	s := val * val
	var y float32
	if (ir == 1 || ir == 2) != cos {
		y = ((s*cosC1-cosC2)*s + cosC3) * s * s
		y -= s * 0.5
		y += 1
	} else {
		y = ((sinC1-s*sinC2)*s-sinC3)*s*val + val
	}
	return y * sgn
}

// sinCos emits the guest version of sinCosRef. Argument and result are in
// fa0.
func sinCos(name string, cos bool) rv32.Function {
	l := func(s string) asm.Label { return asm.Label(name + "." + s) }
	fconst := func(fd asm.Variable, v float32) asm.Fragment { return rv32.LiS(fd, rv32.T0, v) }

	var (
		sgn   = rv32.F1
		val   = rv32.F2
		tmp   = rv32.F3
		fr    = rv32.F5
		s     = rv32.F6
		y     = rv32.F7
		coeff = rv32.F28
		ir    = rv32.T2
	)

	body := asm.Group{
		fconst(sgn, 1),
		rv32.FabsS(val, rv32.FA0),
	}
	if !cos {
		body = append(body,
			rv32.FmvWX(tmp, rv32.Zero),
			rv32.FltS(rv32.T1, rv32.FA0, tmp),
			rv32.Beqz(rv32.T1, l("pos")),
			rv32.FnegS(sgn, sgn),
			asm.MarkLabel(l("pos")),
		)
	}

	body = append(body,
		fconst(tmp, maxArg),
		rv32.FltS(rv32.T1, tmp, val),
		rv32.Beqz(rv32.T1, l("inrange")),
		rv32.FmvWX(rv32.FA0, rv32.Zero),
		rv32.Ret(),
		asm.MarkLabel(l("inrange")),

		fconst(tmp, fourOverPi),
		rv32.FmulS(rv32.F4, val, tmp),
		rv32.FcvtWUS(ir, rv32.F4),
		rv32.Andi(rv32.T3, ir, 1),
		rv32.Add(ir, ir, rv32.T3),
		rv32.FcvtSWU(fr, ir),
		rv32.Andi(ir, ir, 7),
		rv32.Li(rv32.T3, 3),
		rv32.Bgeu(rv32.T3, ir, l("octant")),
		rv32.Addi(ir, ir, -4),
		rv32.FnegS(sgn, sgn),
		asm.MarkLabel(l("octant")),
	)
	if cos {
		body = append(body,
			rv32.Li(rv32.T3, 1),
			rv32.Bgeu(rv32.T3, ir, l("reduce")),
			rv32.FnegS(sgn, sgn),
			asm.MarkLabel(l("reduce")),
		)
	}

	body = append(body,
		fconst(tmp, splitArg),
		rv32.FltS(rv32.T1, tmp, val),
		rv32.Beqz(rv32.T1, l("fine")),
		fconst(tmp, piF/4),
		rv32.FnmsubS(val, fr, tmp, val),
		rv32.J(l("poly")),
		asm.MarkLabel(l("fine")),
		fconst(tmp, dp1),
		rv32.FnmsubS(val, fr, tmp, val),
		fconst(tmp, dp2),
		rv32.FnmsubS(val, fr, tmp, val),
		fconst(tmp, dp3),
		rv32.FnmsubS(val, fr, tmp, val),

		asm.MarkLabel(l("poly")),
		rv32.FmulS(s, val, val),
		// ir in {1, 2} selects the cosine polynomial for sin_s and the
		// sine polynomial for cos_s.
		rv32.Addi(rv32.T3, ir, -1),
		rv32.Li(rv32.T4, 1),
	)

	cosPoly := asm.Group{
		fconst(y, cosC1),
		fconst(coeff, cosC2),
		rv32.FmsubS(y, s, y, coeff),
		fconst(coeff, cosC3),
		rv32.FmaddS(y, y, s, coeff),
		rv32.FmulS(y, y, s),
		rv32.FmulS(y, y, s),
		fconst(coeff, 0.5),
		rv32.FnmsubS(y, s, coeff, y),
		fconst(coeff, 1),
		rv32.FaddS(y, y, coeff),
	}
	sinPoly := asm.Group{
		fconst(y, sinC1),
		fconst(coeff, sinC2),
		rv32.FnmsubS(y, s, coeff, y),
		fconst(coeff, sinC3),
		rv32.FmsubS(y, y, s, coeff),
		rv32.FmulS(y, y, s),
		rv32.FmaddS(y, y, val, val),
	}
	first, second := cosPoly, sinPoly
	if cos {
		first, second = sinPoly, cosPoly
	}

	body = append(body,
		rv32.Bltu(rv32.T4, rv32.T3, l("other")),
		first,
		rv32.J(l("done")),
		asm.MarkLabel(l("other")),
		second,
		asm.MarkLabel(l("done")),
		rv32.FmulS(rv32.FA0, y, sgn),
		rv32.Ret(),
	)
	return rv32.Func(name, body)
}
