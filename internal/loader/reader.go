package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// source is the line-oriented view the parser needs. Files and in-memory
// images implement it separately so that memory images never go through an
// io.Reader copy.
type source interface {
	// readLine returns the next line without its terminator. ok is false
	// at end of input.
	readLine() (line string, ok bool)
	// readN reads up to n raw bytes. It returns fewer at end of input.
	readN(n int) []byte
	tell() int64
	seek(off int64) error
}

type streamSource struct {
	rs  io.ReadSeeker
	br  *bufio.Reader
	pos int64
}

func newStreamSource(rs io.ReadSeeker) (*streamSource, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("loader: tell: %w", err)
	}
	return &streamSource{rs: rs, br: bufio.NewReader(rs), pos: pos}, nil
}

func (s *streamSource) readLine() (string, bool) {
	line, err := s.br.ReadString('\n')
	s.pos += int64(len(line))
	if err != nil && line == "" {
		return "", false
	}
	return trimEOL(line), true
}

func (s *streamSource) readN(n int) []byte {
	var buf bytes.Buffer
	got, _ := io.CopyN(&buf, s.br, int64(n))
	s.pos += got
	return buf.Bytes()
}

func (s *streamSource) tell() int64 { return s.pos }

func (s *streamSource) seek(off int64) error {
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return err
	}
	s.br.Reset(s.rs)
	s.pos = off
	return nil
}

type memSource struct {
	data []byte
	idx  int
}

func (m *memSource) readLine() (string, bool) {
	if m.idx >= len(m.data) {
		return "", false
	}
	rest := m.data[m.idx:]
	end := bytes.IndexByte(rest, '\n')
	if end < 0 {
		m.idx = len(m.data)
		return trimEOL(string(rest)), true
	}
	m.idx += end + 1
	return trimEOL(string(rest[:end])), true
}

func (m *memSource) readN(n int) []byte {
	n = min(n, len(m.data)-m.idx)
	p := make([]byte, n)
	copy(p, m.data[m.idx:])
	m.idx += n
	return p
}

func (m *memSource) tell() int64 { return int64(m.idx) }

func (m *memSource) seek(off int64) error {
	if off < 0 || off > int64(len(m.data)) {
		return fmt.Errorf("offset %d outside image of %d bytes", off, len(m.data))
	}
	m.idx = int(off)
	return nil
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Load reads an image from the file at path.
func Load(path string, opts ...Option) (*Binary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	bin, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return bin, nil
}

// Read parses an image from a seekable stream. The symbol table is read
// twice, so the stream must support seeking back.
func Read(rs io.ReadSeeker, opts ...Option) (*Binary, error) {
	src, err := newStreamSource(rs)
	if err != nil {
		return nil, err
	}
	return parse(src, parseOptions(opts).logger)
}

// FromMemory parses an image held in memory. The returned Binary owns a
// copy of the code bytes.
func FromMemory(data []byte, opts ...Option) (*Binary, error) {
	return parse(&memSource{data: data}, parseOptions(opts).logger)
}

// directive reports whether line starts with name and returns the argument
// with leading spaces removed.
func directive(line, name string) (string, bool) {
	if !strings.HasPrefix(line, name) {
		return "", false
	}
	return strings.TrimLeft(line[len(name):], " \t"), true
}

// firstToken returns s up to the first space.
func firstToken(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

func parseHex(name, arg string) (uint32, error) {
	tok := strings.TrimPrefix(strings.TrimPrefix(firstToken(arg), "0x"), "0X")
	v, err := strconv.ParseUint(tok, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("loader: bad %s value %q: %w", name, arg, err)
	}
	return uint32(v), nil
}

func parseDec(name, arg string) (int, error) {
	v, err := strconv.Atoi(firstToken(arg))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("loader: bad %s value %q", name, arg)
	}
	return v, nil
}

func parse(src source, log *slog.Logger) (*Binary, error) {
	line, ok := src.readLine()
	if !ok {
		return nil, ErrBadMagic
	}
	ver, ok := directive(line, Magic)
	if !ok {
		return nil, ErrBadMagic
	}

	bin := &Binary{}
	if v, err := strconv.Atoi(firstToken(ver)); err == nil {
		bin.Version = v
	}

	for {
		line, ok := src.readLine()
		if !ok {
			return bin, nil
		}

		var err error
		if arg, ok := directive(line, "$code"); ok {
			bin.CodeOrg, err = parseHex("$code", arg)
		} else if arg, ok := directive(line, "$data"); ok {
			bin.DataOrg, err = parseHex("$data", arg)
		} else if arg, ok := directive(line, "$sdata"); ok {
			bin.SDataOrg, err = parseHex("$sdata", arg)
		} else if arg, ok := directive(line, "$gp"); ok {
			bin.GP, err = parseHex("$gp", arg)
		} else if arg, ok := directive(line, "$bin"); ok {
			err = readCode(src, bin, arg, log)
		} else if arg, ok := directive(line, "$funcs"); ok {
			err = readFuncs(src, bin, arg, log)
		} else {
			return bin, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// readCode reads the $bin payload. The header size is only an upper bound;
// allocation follows the bytes actually present.
func readCode(src source, bin *Binary, arg string, log *slog.Logger) error {
	size, err := parseDec("$bin", arg)
	if err != nil {
		return err
	}
	code := src.readN(size)
	if len(code) != size {
		log.Warn("incomplete binary part", "want", size, "got", len(code))
	}
	bin.Code = code
	return nil
}

// readFuncs reads the symbol table in two passes. The first collects
// addresses, sizes and the total name length; the second rereads the same
// lines and packs every name into one backing string.
func readFuncs(src source, bin *Binary, arg string, log *slog.Logger) error {
	count, err := parseDec("$funcs", arg)
	if err != nil {
		return err
	}
	start := src.tell()

	var funcs []Func
	nameLen := 0
	for i := 0; i < count; i++ {
		line, ok := src.readLine()
		if !ok {
			log.Warn("truncated symbol table", "want", count, "got", i)
			break
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return fmt.Errorf("loader: bad symbol line %d: %q", i, line)
		}
		addr, err := parseHex("symbol address", fields[0])
		if err != nil {
			return err
		}
		size, err := parseDec("symbol size", fields[1])
		if err != nil {
			return err
		}
		funcs = append(funcs, Func{Addr: addr, Size: uint32(size)})
		nameLen += len(fields[2]) + 1
	}
	end := src.tell()

	if len(funcs) > 0 {
		if err := src.seek(start); err != nil {
			return fmt.Errorf("loader: rewind symbol table: %w", err)
		}
		names := make([]byte, 0, nameLen)
		offsets := make([]int, len(funcs)+1)
		for i := range funcs {
			line, _ := src.readLine()
			offsets[i] = len(names)
			names = append(names, strings.Fields(line)[2]...)
			names = append(names, ' ')
		}
		offsets[len(funcs)] = len(names)
		all := string(names)
		for i := range funcs {
			funcs[i].Name = all[offsets[i] : offsets[i+1]-1]
		}
		if src.tell() != end {
			return fmt.Errorf("loader: symbol table changed between passes")
		}
	}

	bin.Funcs = funcs
	return nil
}
