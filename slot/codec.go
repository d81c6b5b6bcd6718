package slot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/densefmt/dense/dense"
)

// Container header: magic, version, flags, slot count, heap length.
const (
	magic0 = 0x5A
	magic1 = 0x44

	formatVersion = 1

	flagCompressed = 0x01

	headerSize = 12 // 2 magic + 1 version + 1 flags + u32 slots + u32 heap
)

// Value type tags, the first payload byte of every tag slot.
const (
	tagNull byte = iota + 1
	tagBool
	tagInt
	tagFloat
	tagString
	tagArray
	tagObject
	tagTable
	tagRef
)

var (
	// ErrBadMagic means the buffer does not start with the container magic.
	ErrBadMagic = errors.New("slot: bad magic")
	// ErrBadVersion means the container was written by a newer format.
	ErrBadVersion = errors.New("slot: unsupported version")
	// ErrCorrupt means the slot stream or heap is internally inconsistent.
	ErrCorrupt = errors.New("slot: corrupt container")
)

// BufferTooSmallError reports a buffer shorter than one header plus one slot.
type BufferTooSmallError struct {
	Size int
	Need int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("slot: buffer is %d bytes, need at least %d", e.Size, e.Need)
}

// CompressionLevel selects body compression for Encode.
type CompressionLevel int

const (
	// CompressionNone stores the body raw.
	CompressionNone CompressionLevel = iota
	// CompressionFast favors speed.
	CompressionFast
	// CompressionDefault balances speed and ratio.
	CompressionDefault
	// CompressionHigh favors ratio.
	CompressionHigh
)

func (l CompressionLevel) zstdLevel() zstd.EncoderLevel {
	switch l {
	case CompressionFast:
		return zstd.SpeedFastest
	case CompressionHigh:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedDefault
	}
}

// EncodeOptions adjusts container encoding.
type EncodeOptions struct {
	Compression CompressionLevel
}

// Encode lowers a value tree into an uncompressed slot container.
func Encode(v *dense.Value) ([]byte, error) {
	return EncodeWithOptions(v, EncodeOptions{})
}

// EncodeWithOptions lowers a value tree into a slot container, optionally
// zstd-compressing the body. The header stays uncompressed and records the
// uncompressed slot count and heap length.
func EncodeWithOptions(v *dense.Value, opts EncodeOptions) ([]byte, error) {
	e := &encoder{}
	if err := e.encodeValue(v); err != nil {
		return nil, err
	}

	body := make([]byte, 0, len(e.slots)*Size+len(e.heap))
	for _, s := range e.slots {
		body = append(body, s[:]...)
	}
	body = append(body, e.heap...)

	flags := byte(0)
	if opts.Compression != CompressionNone {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(opts.Compression.zstdLevel()))
		if err != nil {
			return nil, fmt.Errorf("slot: zstd init: %w", err)
		}
		body = enc.EncodeAll(body, nil)
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("slot: zstd close: %w", err)
		}
		flags |= flagCompressed
	}

	out := make([]byte, headerSize, headerSize+len(body))
	out[0] = magic0
	out[1] = magic1
	out[2] = formatVersion
	out[3] = flags
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(e.slots)))
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(e.heap)))
	return append(out, body...), nil
}

// Decode reads a slot container back into a value tree, transparently
// decompressing a compressed body.
func Decode(data []byte) (*dense.Value, error) {
	if len(data) < headerSize+Size {
		return nil, &BufferTooSmallError{Size: len(data), Need: headerSize + Size}
	}
	if data[0] != magic0 || data[1] != magic1 {
		return nil, ErrBadMagic
	}
	if data[2] != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, data[2])
	}
	flags := data[3]
	slotCount := int(binary.LittleEndian.Uint32(data[4:8]))
	heapLen := int(binary.LittleEndian.Uint32(data[8:12]))

	body := data[headerSize:]
	if flags&flagCompressed != 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("slot: zstd init: %w", err)
		}
		defer dec.Close()
		body, err = dec.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
	}

	if len(body) != slotCount*Size+heapLen {
		return nil, fmt.Errorf("%w: body is %d bytes, header claims %d slots + %d heap",
			ErrCorrupt, len(body), slotCount, heapLen)
	}

	d := &decoder{heap: body[slotCount*Size:]}
	d.slots = make([]Slot, slotCount)
	for i := range d.slots {
		copy(d.slots[i][:], body[i*Size:(i+1)*Size])
	}

	v, err := d.decodeValue()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.slots) {
		return nil, fmt.Errorf("%w: %d trailing slots", ErrCorrupt, len(d.slots)-d.pos)
	}
	return v, nil
}

// encoder accumulates the slot stream and the shared heap.
type encoder struct {
	slots []Slot
	heap  []byte
}

func (e *encoder) push(s Slot) {
	e.slots = append(e.slots, s)
}

// pushTag appends an inline tag slot; payload is always small.
func (e *encoder) pushTag(payload []byte) {
	s, err := Inline(payload)
	if err != nil {
		panic("slot: tag payload over inline capacity")
	}
	e.push(s)
}

// pushBytes appends a data slot, spilling payloads over 14 bytes to the heap.
func (e *encoder) pushBytes(b []byte) {
	if len(b) <= MaxInline {
		s, _ := Inline(b)
		e.push(s)
		return
	}
	off := uint32(len(e.heap))
	e.heap = append(e.heap, b...)
	e.push(HeapRef(off, uint32(len(b))))
}

func (e *encoder) encodeValue(v *dense.Value) error {
	switch v.Kind() {
	case dense.KindNull:
		e.pushTag([]byte{tagNull})

	case dense.KindBool:
		b, _ := v.AsBool()
		p := []byte{tagBool, 0}
		if b {
			p[1] = 1
		}
		e.pushTag(p)

	case dense.KindInt:
		n, _ := v.AsInt()
		p := make([]byte, 9)
		p[0] = tagInt
		binary.LittleEndian.PutUint64(p[1:], uint64(n))
		e.pushTag(p)

	case dense.KindFloat:
		f, _ := v.AsFloat()
		p := make([]byte, 9)
		p[0] = tagFloat
		binary.LittleEndian.PutUint64(p[1:], math.Float64bits(f))
		e.pushTag(p)

	case dense.KindString:
		s, _ := v.AsString()
		e.pushTag([]byte{tagString})
		e.pushBytes([]byte(s))

	case dense.KindRef:
		id, _ := v.AsRef()
		e.pushTag([]byte{tagRef})
		e.pushBytes([]byte(id))

	case dense.KindArray:
		elems, _ := v.AsArray()
		p := make([]byte, 6)
		p[0] = tagArray
		if v.IsStream() {
			p[1] = 1
		}
		binary.LittleEndian.PutUint32(p[2:], uint32(len(elems)))
		e.pushTag(p)
		for _, elem := range elems {
			if err := e.encodeValue(elem); err != nil {
				return err
			}
		}

	case dense.KindObject:
		fields, _ := v.AsObject()
		p := make([]byte, 5)
		p[0] = tagObject
		binary.LittleEndian.PutUint32(p[1:], uint32(len(fields)))
		e.pushTag(p)
		for _, f := range fields {
			e.pushBytes([]byte(f.Key))
			if err := e.encodeValue(f.Value); err != nil {
				return err
			}
		}

	case dense.KindTable:
		tbl, _ := v.AsTable()
		p := make([]byte, 9)
		p[0] = tagTable
		binary.LittleEndian.PutUint32(p[1:5], uint32(len(tbl.Columns)))
		binary.LittleEndian.PutUint32(p[5:9], uint32(len(tbl.Rows)))
		e.pushTag(p)
		e.pushBytes([]byte(tbl.Name))
		for _, col := range tbl.Columns {
			e.pushBytes([]byte(col.Name))
			e.pushTag([]byte{col.Type})
		}
		for _, row := range tbl.Rows {
			for _, cell := range row {
				if err := e.encodeValue(cell); err != nil {
					return err
				}
			}
		}

	default:
		return fmt.Errorf("slot: cannot encode kind %s", v.Kind())
	}
	return nil
}

// decoder walks the slot stream with a cursor.
type decoder struct {
	slots []Slot
	heap  []byte
	pos   int
}

func (d *decoder) next() (Slot, error) {
	if d.pos >= len(d.slots) {
		return Slot{}, fmt.Errorf("%w: truncated slot stream", ErrCorrupt)
	}
	s := d.slots[d.pos]
	d.pos++
	return s, nil
}

// nextBytes reads one data slot and resolves its payload, inline or heap.
func (d *decoder) nextBytes() ([]byte, error) {
	s, err := d.next()
	if err != nil {
		return nil, err
	}
	if s.IsInline() {
		return s.InlineBytes()
	}
	off, length, err := s.HeapRange()
	if err != nil {
		return nil, err
	}
	end := uint64(off) + uint64(length)
	if end > uint64(len(d.heap)) {
		return nil, fmt.Errorf("%w: heap range [%d, %d) outside %d-byte heap",
			ErrCorrupt, off, end, len(d.heap))
	}
	return d.heap[off:end], nil
}

func (d *decoder) nextString() (string, error) {
	b, err := d.nextBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) decodeValue() (*dense.Value, error) {
	tag, err := d.next()
	if err != nil {
		return nil, err
	}
	payload, err := tag.InlineBytes()
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty tag slot", ErrCorrupt)
	}

	switch payload[0] {
	case tagNull:
		return dense.Null(), nil

	case tagBool:
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: short bool slot", ErrCorrupt)
		}
		return dense.Bool(payload[1] != 0), nil

	case tagInt:
		if len(payload) < 9 {
			return nil, fmt.Errorf("%w: short int slot", ErrCorrupt)
		}
		return dense.Int(int64(binary.LittleEndian.Uint64(payload[1:9]))), nil

	case tagFloat:
		if len(payload) < 9 {
			return nil, fmt.Errorf("%w: short float slot", ErrCorrupt)
		}
		return dense.Float(math.Float64frombits(binary.LittleEndian.Uint64(payload[1:9]))), nil

	case tagString:
		s, err := d.nextString()
		if err != nil {
			return nil, err
		}
		return dense.Str(s), nil

	case tagRef:
		id, err := d.nextString()
		if err != nil {
			return nil, err
		}
		return dense.Ref(id), nil

	case tagArray:
		if len(payload) < 6 {
			return nil, fmt.Errorf("%w: short array slot", ErrCorrupt)
		}
		stream := payload[1] != 0
		count := int(binary.LittleEndian.Uint32(payload[2:6]))
		if count > len(d.slots)-d.pos {
			return nil, fmt.Errorf("%w: array claims %d elements", ErrCorrupt, count)
		}
		arr := dense.Array()
		if stream {
			arr = dense.StreamArray()
		}
		for i := 0; i < count; i++ {
			elem, err := d.decodeValue()
			if err != nil {
				return nil, err
			}
			arr.Append(elem)
		}
		return arr, nil

	case tagObject:
		if len(payload) < 5 {
			return nil, fmt.Errorf("%w: short object slot", ErrCorrupt)
		}
		count := int(binary.LittleEndian.Uint32(payload[1:5]))
		if count > len(d.slots)-d.pos {
			return nil, fmt.Errorf("%w: object claims %d fields", ErrCorrupt, count)
		}
		obj := dense.Object()
		for i := 0; i < count; i++ {
			key, err := d.nextString()
			if err != nil {
				return nil, err
			}
			val, err := d.decodeValue()
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		return obj, nil

	case tagTable:
		if len(payload) < 9 {
			return nil, fmt.Errorf("%w: short table slot", ErrCorrupt)
		}
		ncols := int(binary.LittleEndian.Uint32(payload[1:5]))
		nrows := int(binary.LittleEndian.Uint32(payload[5:9]))
		if ncols > len(d.slots)-d.pos || nrows > len(d.slots)-d.pos {
			return nil, fmt.Errorf("%w: table claims %d cols x %d rows", ErrCorrupt, ncols, nrows)
		}
		name, err := d.nextString()
		if err != nil {
			return nil, err
		}
		tbl := &dense.Table{Name: name}
		for i := 0; i < ncols; i++ {
			colName, err := d.nextString()
			if err != nil {
				return nil, err
			}
			typeSlot, err := d.next()
			if err != nil {
				return nil, err
			}
			tp, err := typeSlot.InlineBytes()
			if err != nil {
				return nil, err
			}
			if len(tp) != 1 {
				return nil, fmt.Errorf("%w: bad column type slot", ErrCorrupt)
			}
			tbl.Columns = append(tbl.Columns, dense.Column{Name: colName, Type: tp[0]})
		}
		for r := 0; r < nrows; r++ {
			row := make([]*dense.Value, 0, ncols)
			for c := 0; c < ncols; c++ {
				cell, err := d.decodeValue()
				if err != nil {
					return nil, err
				}
				row = append(row, cell)
			}
			if err := tbl.AddRow(row); err != nil {
				return nil, err
			}
		}
		return dense.TableValue(tbl), nil

	default:
		return nil, fmt.Errorf("%w: unknown tag 0x%02X", ErrCorrupt, payload[0])
	}
}
