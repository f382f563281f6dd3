package parser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// BIFF8 record identifiers used by the workbook reader.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recFilePass   = 0x002F
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recXF         = 0x00E0
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recFormat     = 0x041E
	recBOF        = 0x0809
)

const biff8Version = 0x0600

var errTruncatedRecord = errors.New("truncated record")

// record is one BIFF record: a type id and its payload.
type record struct {
	id   uint16
	data []byte
}

func (r record) u16(at int) (uint16, error) {
	if at+2 > len(r.data) {
		return 0, fmt.Errorf("record 0x%04X: %w", r.id, errTruncatedRecord)
	}
	return binary.LittleEndian.Uint16(r.data[at:]), nil
}

func (r record) u32(at int) (uint32, error) {
	if at+4 > len(r.data) {
		return 0, fmt.Errorf("record 0x%04X: %w", r.id, errTruncatedRecord)
	}
	return binary.LittleEndian.Uint32(r.data[at:]), nil
}

func (r record) f64(at int) (float64, error) {
	if at+8 > len(r.data) {
		return 0, fmt.Errorf("record 0x%04X: %w", r.id, errTruncatedRecord)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.data[at:])), nil
}

// cellRef reads the row, column and XF index that open every cell record.
func (r record) cellRef() (row, col, xf uint16, err error) {
	if row, err = r.u16(0); err != nil {
		return
	}
	if col, err = r.u16(2); err != nil {
		return
	}
	xf, err = r.u16(4)
	return
}

// recordsFrom splits a stream into records starting at offset, stopping after
// the first EOF record of the substream.
func recordsFrom(stream []byte, offset int) ([]record, error) {
	var recs []record
	for off := offset; off+4 <= len(stream); {
		id := binary.LittleEndian.Uint16(stream[off:])
		size := int(binary.LittleEndian.Uint16(stream[off+2:]))
		end := off + 4 + size
		if end > len(stream) {
			return nil, fmt.Errorf("record 0x%04X at %d: %w", id, off, errTruncatedRecord)
		}
		recs = append(recs, record{id: id, data: stream[off+4 : end]})
		off = end
		if id == recEOF {
			return recs, nil
		}
	}
	return nil, errors.New("substream has no EOF record")
}

// decodeRK unpacks the compressed RK number encoding.
func decodeRK(v uint32) float64 {
	var n float64
	if v&0x02 != 0 {
		n = float64(int32(v) >> 2)
	} else {
		n = math.Float64frombits(uint64(v&0xFFFFFFFC) << 32)
	}
	if v&0x01 != 0 {
		n /= 100
	}
	return n
}

// decodeChars converts BIFF8 character data. Compressed strings hold the low
// byte of each UTF-16 code unit, which is Latin-1.
func decodeChars(b []byte, highByte bool) (string, error) {
	if highByte {
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
		return string(out), err
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(out), err
}

// unicodeString reads an XLUnicodeString (16-bit length) held in one record.
func (r record) unicodeString(at int) (string, error) {
	cch, err := r.u16(at)
	if err != nil {
		return "", err
	}
	if at+3 > len(r.data) {
		return "", fmt.Errorf("record 0x%04X: %w", r.id, errTruncatedRecord)
	}
	return r.chars(at+3, int(cch), r.data[at+2]&0x01 != 0)
}

// shortString reads a ShortXLUnicodeString (8-bit length) held in one record.
func (r record) shortString(at int) (string, error) {
	if at+2 > len(r.data) {
		return "", fmt.Errorf("record 0x%04X: %w", r.id, errTruncatedRecord)
	}
	return r.chars(at+2, int(r.data[at]), r.data[at+1]&0x01 != 0)
}

func (r record) chars(at, cch int, highByte bool) (string, error) {
	n := cch
	if highByte {
		n *= 2
	}
	if at+n > len(r.data) {
		return "", fmt.Errorf("record 0x%04X: %w", r.id, errTruncatedRecord)
	}
	return decodeChars(r.data[at:at+n], highByte)
}

// sstReader walks the shared string table across its CONTINUE records.
type sstReader struct {
	segs [][]byte
	seg  int
	pos  int
}

func (s *sstReader) advance() error {
	for s.seg < len(s.segs) && s.pos >= len(s.segs[s.seg]) {
		s.seg++
		s.pos = 0
	}
	if s.seg >= len(s.segs) {
		return fmt.Errorf("shared string table: %w", errTruncatedRecord)
	}
	return nil
}

func (s *sstReader) u8() (byte, error) {
	if err := s.advance(); err != nil {
		return 0, err
	}
	b := s.segs[s.seg][s.pos]
	s.pos++
	return b, nil
}

func (s *sstReader) u16() (uint16, error) {
	lo, err := s.u8()
	if err != nil {
		return 0, err
	}
	hi, err := s.u8()
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func (s *sstReader) u32() (uint32, error) {
	lo, err := s.u16()
	if err != nil {
		return 0, err
	}
	hi, err := s.u16()
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

func (s *sstReader) skip(n int) error {
	for n > 0 {
		if err := s.advance(); err != nil {
			return err
		}
		step := min(n, len(s.segs[s.seg])-s.pos)
		s.pos += step
		n -= step
	}
	return nil
}

// str reads one XLUnicodeRichExtendedString. Character data split by a
// CONTINUE record resumes with a fresh option byte.
func (s *sstReader) str() (string, error) {
	cch, err := s.u16()
	if err != nil {
		return "", err
	}
	flags, err := s.u8()
	if err != nil {
		return "", err
	}
	var runs, ext int
	if flags&0x08 != 0 {
		n, err := s.u16()
		if err != nil {
			return "", err
		}
		runs = int(n)
	}
	if flags&0x04 != 0 {
		n, err := s.u32()
		if err != nil {
			return "", err
		}
		ext = int(n)
	}

	highByte := flags&0x01 != 0
	var out []byte
	for remaining := int(cch); remaining > 0; {
		if s.seg < len(s.segs) && s.pos >= len(s.segs[s.seg]) {
			if err := s.advance(); err != nil {
				return "", err
			}
			opt := s.segs[s.seg][s.pos]
			s.pos++
			highByte = opt&0x01 != 0
		}
		if s.seg >= len(s.segs) {
			return "", fmt.Errorf("shared string table: %w", errTruncatedRecord)
		}
		width := 1
		if highByte {
			width = 2
		}
		seg := s.segs[s.seg]
		take := min(remaining, (len(seg)-s.pos)/width)
		if take == 0 {
			return "", fmt.Errorf("shared string table: %w", errTruncatedRecord)
		}
		part, err := decodeChars(seg[s.pos:s.pos+take*width], highByte)
		if err != nil {
			return "", err
		}
		out = append(out, part...)
		s.pos += take * width
		remaining -= take
	}

	if err := s.skip(runs*4 + ext); err != nil {
		return "", err
	}
	return string(out), nil
}

// readSST decodes the shared string table from the SST record and the
// CONTINUE records that follow it.
func readSST(recs []record, at int) ([]string, error) {
	unique, err := recs[at].u32(4)
	if err != nil {
		return nil, err
	}
	r := &sstReader{segs: [][]byte{recs[at].data[8:]}}
	for i := at + 1; i < len(recs) && recs[i].id == recContinue; i++ {
		r.segs = append(r.segs, recs[i].data)
	}

	strs := make([]string, 0, min(int(unique), 1<<16))
	for i := 0; i < int(unique); i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}
