package rv32

import (
	"math"

	"github.com/tinyrange/minion/internal/asm"
)

func fop(funct5, format, f3 uint32, rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opFP, f3: f3, f7: funct5<<2 | format, rd: rd, rs1: rs1, rs2: rs2}
}

func Flw(fd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opLoadFP, f3: 2, rd: fd, rs1: rs1, imm: imm}
}

func Fld(fd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opLoadFP, f3: 3, rd: fd, rs1: rs1, imm: imm}
}

func Fsw(fs2, rs1 asm.Variable, imm int32) asm.Fragment {
	return sType{op: opStoreFP, f3: 2, rs1: rs1, rs2: fs2, imm: imm}
}

func Fsd(fs2, rs1 asm.Variable, imm int32) asm.Fragment {
	return sType{op: opStoreFP, f3: 3, rs1: rs1, rs2: fs2, imm: imm}
}

func FaddS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x00, fmtS, rmDyn, fd, fs1, fs2) }
func FsubS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x01, fmtS, rmDyn, fd, fs1, fs2) }
func FmulS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x02, fmtS, rmDyn, fd, fs1, fs2) }
func FdivS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x03, fmtS, rmDyn, fd, fs1, fs2) }
func FsqrtS(fd, fs1 asm.Variable) asm.Fragment     { return fop(0x0B, fmtS, rmDyn, fd, fs1, X0) }

func FsgnjS(fd, fs1, fs2 asm.Variable) asm.Fragment  { return fop(0x04, fmtS, 0, fd, fs1, fs2) }
func FsgnjnS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x04, fmtS, 1, fd, fs1, fs2) }
func FsgnjxS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x04, fmtS, 2, fd, fs1, fs2) }

func FminS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x05, fmtS, 0, fd, fs1, fs2) }
func FmaxS(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x05, fmtS, 1, fd, fs1, fs2) }

func FleS(rd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x14, fmtS, 0, rd, fs1, fs2) }
func FltS(rd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x14, fmtS, 1, rd, fs1, fs2) }
func FeqS(rd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x14, fmtS, 2, rd, fs1, fs2) }

func FcvtWS(rd, fs1 asm.Variable) asm.Fragment  { return fop(0x18, fmtS, rmDyn, rd, fs1, X0) }
func FcvtWUS(rd, fs1 asm.Variable) asm.Fragment { return fop(0x18, fmtS, rmDyn, rd, fs1, X1) }
func FcvtSW(fd, rs1 asm.Variable) asm.Fragment  { return fop(0x1A, fmtS, rmDyn, fd, rs1, X0) }
func FcvtSWU(fd, rs1 asm.Variable) asm.Fragment { return fop(0x1A, fmtS, rmDyn, fd, rs1, X1) }

func FmvXW(rd, fs1 asm.Variable) asm.Fragment   { return fop(0x1C, fmtS, 0, rd, fs1, X0) }
func FclassS(rd, fs1 asm.Variable) asm.Fragment { return fop(0x1C, fmtS, 1, rd, fs1, X0) }
func FmvWX(fd, rs1 asm.Variable) asm.Fragment   { return fop(0x1E, fmtS, 0, fd, rs1, X0) }

// FcvtSD narrows the double held in fs1 to single precision.
func FcvtSD(fd, fs1 asm.Variable) asm.Fragment { return fop(0x08, fmtS, rmDyn, fd, fs1, X1) }

// FaddD encodes a double-precision add. The simulator only recognises it.
func FaddD(fd, fs1, fs2 asm.Variable) asm.Fragment { return fop(0x00, fmtD, rmDyn, fd, fs1, fs2) }

func fused(op uint32, fd, fs1, fs2, fs3 asm.Variable) asm.Fragment {
	return r4Type{op: op, fmt: fmtS, rm: rmDyn, rd: fd, rs1: fs1, rs2: fs2, rs3: fs3}
}

func FmaddS(fd, fs1, fs2, fs3 asm.Variable) asm.Fragment  { return fused(opMadd, fd, fs1, fs2, fs3) }
func FmsubS(fd, fs1, fs2, fs3 asm.Variable) asm.Fragment  { return fused(opMsub, fd, fs1, fs2, fs3) }
func FnmsubS(fd, fs1, fs2, fs3 asm.Variable) asm.Fragment { return fused(opNmsub, fd, fs1, fs2, fs3) }
func FnmaddS(fd, fs1, fs2, fs3 asm.Variable) asm.Fragment { return fused(opNmadd, fd, fs1, fs2, fs3) }

func FmvS(fd, fs asm.Variable) asm.Fragment  { return FsgnjS(fd, fs, fs) }
func FnegS(fd, fs asm.Variable) asm.Fragment { return FsgnjnS(fd, fs, fs) }
func FabsS(fd, fs asm.Variable) asm.Fragment { return FsgnjxS(fd, fs, fs) }

// LiS loads the single-precision constant v into fd through the integer
// scratch register tmp.
func LiS(fd, tmp asm.Variable, v float32) asm.Fragment {
	return asm.Group{
		Li(tmp, int32(math.Float32bits(v))),
		FmvWX(fd, tmp),
	}
}
