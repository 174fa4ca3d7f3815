// Package anvil decodes vanilla Minecraft chunk NBT into chunkpb.Chunk
// for the importer boundary (spec.md §4.5's last paragraph): "an
// importer path MAY translate vanilla Anvil/NBT chunk data into the
// core's Chunk representation before calling save." No ecosystem NBT
// library appears anywhere in the retrieval pack, so this package
// implements the minimal big-endian binary NBT reader the vanilla
// per-chunk tag layout (original_source's vanilla_chunk_format.rs)
// requires, structured the way internal/format frames its own binary
// records: a tiny recursive-descent reader over a byte cursor, no
// reflection, no general-purpose NBT writer (decode only).
package anvil

import (
	"encoding/binary"
	"fmt"
	"math"
)

type tagType byte

const (
	tagEnd tagType = iota
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagList
	tagCompound
	tagIntArray
	tagLongArray
)

// value is a decoded NBT payload. compound and list use map/slice of
// value so callers can descend by tag name without a generated schema.
type value struct {
	typ  tagType
	i8   int8
	i16  int16
	i32  int32
	i64  int64
	f32  float32
	f64  float64
	str  string
	ba   []int8
	ia   []int32
	la   []int64
	list []value
	comp map[string]value
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) err(msg string) error {
	return fmt.Errorf("anvil: %s at offset %d", msg, r.off)
}

func (r *reader) need(n int) error {
	if r.off+n > len(r.buf) {
		return r.err("truncated NBT data")
	}
	return nil
}

func (r *reader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) readU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) readI32() (int32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return v, nil
}

func (r *reader) readI64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.off:]))
	r.off += 8
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readU16()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

// readNamedTag reads one [type byte][name][payload] triple, as found
// at the root of a chunk and inside every compound. tagEnd terminates
// a compound and carries no name or payload.
func (r *reader) readNamedTag() (string, value, bool, error) {
	t, err := r.readByte()
	if err != nil {
		return "", value{}, false, err
	}
	if tagType(t) == tagEnd {
		return "", value{}, false, nil
	}
	name, err := r.readString()
	if err != nil {
		return "", value{}, false, err
	}
	v, err := r.readPayload(tagType(t))
	if err != nil {
		return "", value{}, false, err
	}
	return name, v, true, nil
}

func (r *reader) readPayload(t tagType) (value, error) {
	switch t {
	case tagByte:
		b, err := r.readByte()
		return value{typ: t, i8: int8(b)}, err
	case tagShort:
		if err := r.need(2); err != nil {
			return value{}, err
		}
		v := int16(binary.BigEndian.Uint16(r.buf[r.off:]))
		r.off += 2
		return value{typ: t, i16: v}, nil
	case tagInt:
		v, err := r.readI32()
		return value{typ: t, i32: v}, err
	case tagLong:
		v, err := r.readI64()
		return value{typ: t, i64: v}, err
	case tagFloat:
		if err := r.need(4); err != nil {
			return value{}, err
		}
		v := math.Float32frombits(binary.BigEndian.Uint32(r.buf[r.off:]))
		r.off += 4
		return value{typ: t, f32: v}, nil
	case tagDouble:
		if err := r.need(8); err != nil {
			return value{}, err
		}
		v := math.Float64frombits(binary.BigEndian.Uint64(r.buf[r.off:]))
		r.off += 8
		return value{typ: t, f64: v}, nil
	case tagByteArray:
		n, err := r.readI32()
		if err != nil {
			return value{}, err
		}
		if n < 0 || int(n) > maxNBTArrayLen {
			return value{}, r.err("byte array length out of range")
		}
		if err := r.need(int(n)); err != nil {
			return value{}, err
		}
		ba := make([]int8, n)
		for i := range ba {
			ba[i] = int8(r.buf[r.off+i])
		}
		r.off += int(n)
		return value{typ: t, ba: ba}, nil
	case tagString:
		s, err := r.readString()
		return value{typ: t, str: s}, err
	case tagList:
		elemT, err := r.readByte()
		if err != nil {
			return value{}, err
		}
		n, err := r.readI32()
		if err != nil {
			return value{}, err
		}
		if n < 0 || int(n) > maxNBTArrayLen {
			return value{}, r.err("list length out of range")
		}
		list := make([]value, 0, n)
		for i := int32(0); i < n; i++ {
			v, err := r.readPayload(tagType(elemT))
			if err != nil {
				return value{}, err
			}
			list = append(list, v)
		}
		return value{typ: t, list: list}, nil
	case tagCompound:
		comp := make(map[string]value)
		for {
			name, v, ok, err := r.readNamedTag()
			if err != nil {
				return value{}, err
			}
			if !ok {
				break
			}
			comp[name] = v
		}
		return value{typ: t, comp: comp}, nil
	case tagIntArray:
		n, err := r.readI32()
		if err != nil {
			return value{}, err
		}
		if n < 0 || int(n) > maxNBTArrayLen {
			return value{}, r.err("int array length out of range")
		}
		ia := make([]int32, n)
		for i := range ia {
			v, err := r.readI32()
			if err != nil {
				return value{}, err
			}
			ia[i] = v
		}
		return value{typ: t, ia: ia}, nil
	case tagLongArray:
		n, err := r.readI32()
		if err != nil {
			return value{}, err
		}
		if n < 0 || int(n) > maxNBTArrayLen {
			return value{}, r.err("long array length out of range")
		}
		la := make([]int64, n)
		for i := range la {
			v, err := r.readI64()
			if err != nil {
				return value{}, err
			}
			la[i] = v
		}
		return value{typ: t, la: la}, nil
	default:
		return value{}, r.err(fmt.Sprintf("unsupported tag type %d", t))
	}
}

// maxNBTArrayLen bounds any single array/list length, guarding against
// a corrupt or hostile length field driving an enormous allocation.
const maxNBTArrayLen = 1 << 24

// parseRoot parses a complete root compound tag, as every vanilla
// chunk NBT blob is.
func parseRoot(data []byte) (value, error) {
	r := &reader{buf: data}
	name, v, ok, err := r.readNamedTag()
	if err != nil {
		return value{}, err
	}
	if !ok {
		return value{}, r.err("empty NBT document")
	}
	_ = name // vanilla chunk root tags are conventionally unnamed ("")
	if v.typ != tagCompound {
		return value{}, r.err("root tag is not a compound")
	}
	return v, nil
}
