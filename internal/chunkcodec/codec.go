// Package chunkcodec is the binary serializer/deserializer for
// chunkpb.Chunk (spec.md §4.5). The encoding is hand-rolled rather
// than reflection- or tag-driven at decode time: field ordering and
// presence bits are part of the wire format itself, exactly mirroring
// the teacher's internal/chunk/key_dict.go dictionary-encoding
// conventions (explicit presence bits, length-prefixed sequences,
// little-endian integers), generalized here to a full struct codec
// instead of one dictionary entry. An encoded record carries no
// internal/format 4-byte header. Reflection is used exactly once, offline, by
// SchemaHash (schema.go) — never on the encode/decode hot path.
package chunkcodec

import (
	"encoding/binary"
	"errors"
	"sort"

	"chunkvault/internal/chunkpb"
	"chunkvault/internal/errs"
)

// Presence bits for the Chunk-level flags byte.
const (
	flagHeightmapMotionBlocking byte = 1 << iota
	flagHeightmapWorldSurface
	flagLastUpdate
	flagInhabitedTime
	flagIsLightOnPresent
	flagIsLightOnValue
)

// Presence bits for the Section-level flags byte.
const (
	secFlagBlockStates byte = 1 << iota
	secFlagBiomes
	secFlagBlockLight
	secFlagSkyLight
)

// Presence bit for BlockStates/BiomePalette's own optional Data array.
const dataFlagPresent byte = 1

// maxCount bounds any single length-prefixed sequence this codec will
// allocate for on Decode, so a corrupted record surfaces as
// errs.Corruption instead of an out-of-memory panic.
const maxCount = 1 << 24

var (
	errTruncated    = errors.New("chunkcodec: truncated record")
	errTrailingData = errors.New("chunkcodec: trailing bytes after chunk")
	errCountTooBig  = errors.New("chunkcodec: sequence count exceeds sanity bound")
)

// Encode serializes c into its canonical byte form. Encode never
// fails for a well-formed *chunkpb.Chunk; the error return exists so
// callers don't need a special case if that ever changes.
func Encode(c *chunkpb.Chunk) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = appendString(buf, c.Dimension)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(c.X))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Z))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(c.YPos))
	buf = appendString(buf, c.Status)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(c.DataVersion))

	var flags byte
	if c.Heightmaps.MotionBlocking != nil {
		flags |= flagHeightmapMotionBlocking
	}
	if c.Heightmaps.WorldSurface != nil {
		flags |= flagHeightmapWorldSurface
	}
	if c.LastUpdate != nil {
		flags |= flagLastUpdate
	}
	if c.InhabitedTime != nil {
		flags |= flagInhabitedTime
	}
	if c.IsLightOn != nil {
		flags |= flagIsLightOnPresent
		if *c.IsLightOn {
			flags |= flagIsLightOnValue
		}
	}
	buf = append(buf, flags)

	if c.LastUpdate != nil {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(*c.LastUpdate))
	}
	if c.InhabitedTime != nil {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(*c.InhabitedTime))
	}
	if flags&flagHeightmapMotionBlocking != 0 {
		buf = appendU64Slice(buf, c.Heightmaps.MotionBlocking)
	}
	if flags&flagHeightmapWorldSurface != 0 {
		buf = appendU64Slice(buf, c.Heightmaps.WorldSurface)
	}

	buf = binary.AppendUvarint(buf, uint64(len(c.Sections)))
	for i := range c.Sections {
		buf = encodeSection(buf, &c.Sections[i])
	}
	return buf, nil
}

func encodeSection(buf []byte, s *chunkpb.Section) []byte {
	buf = append(buf, byte(s.Y))

	var flags byte
	if s.BlockStates != nil {
		flags |= secFlagBlockStates
	}
	if s.Biomes != nil {
		flags |= secFlagBiomes
	}
	if s.BlockLight != nil {
		flags |= secFlagBlockLight
	}
	if s.SkyLight != nil {
		flags |= secFlagSkyLight
	}
	buf = append(buf, flags)

	if s.BlockStates != nil {
		var dataFlags byte
		if s.BlockStates.Data != nil {
			dataFlags = dataFlagPresent
		}
		buf = append(buf, dataFlags)
		if dataFlags&dataFlagPresent != 0 {
			buf = appendU64Slice(buf, s.BlockStates.Data)
		}
		buf = binary.AppendUvarint(buf, uint64(len(s.BlockStates.Palette)))
		for _, e := range s.BlockStates.Palette {
			buf = appendString(buf, e.Name)
			keys := make([]string, 0, len(e.Properties))
			for k := range e.Properties {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			buf = binary.AppendUvarint(buf, uint64(len(keys)))
			for _, k := range keys {
				buf = appendString(buf, k)
				buf = appendString(buf, e.Properties[k])
			}
		}
	}

	if s.Biomes != nil {
		var dataFlags byte
		if s.Biomes.Data != nil {
			dataFlags = dataFlagPresent
		}
		buf = append(buf, dataFlags)
		if dataFlags&dataFlagPresent != 0 {
			buf = appendU64Slice(buf, s.Biomes.Data)
		}
		buf = binary.AppendUvarint(buf, uint64(len(s.Biomes.Palette)))
		for _, name := range s.Biomes.Palette {
			buf = appendString(buf, name)
		}
	}

	if s.BlockLight != nil {
		buf = appendBytes(buf, s.BlockLight)
	}
	if s.SkyLight != nil {
		buf = appendBytes(buf, s.SkyLight)
	}
	return buf
}

// Decode deserializes a chunk record produced by Encode. Any
// structural problem — truncation, an over-large count, trailing
// bytes — is reported as errs.Corruption, matching spec.md §7's rule
// that a bad record poisons only that key, never a panic.
func Decode(data []byte) (chunkpb.Chunk, error) {
	var c chunkpb.Chunk
	rest := data
	var err error

	c.Dimension, rest, err = readString(rest)
	if err != nil {
		return chunkpb.Chunk{}, corrupt(err)
	}
	if len(rest) < 12 {
		return chunkpb.Chunk{}, corrupt(errTruncated)
	}
	c.X = int32(binary.LittleEndian.Uint32(rest[0:4]))
	c.Z = int32(binary.LittleEndian.Uint32(rest[4:8]))
	c.YPos = int32(binary.LittleEndian.Uint32(rest[8:12]))
	rest = rest[12:]

	c.Status, rest, err = readString(rest)
	if err != nil {
		return chunkpb.Chunk{}, corrupt(err)
	}
	if len(rest) < 4 {
		return chunkpb.Chunk{}, corrupt(errTruncated)
	}
	c.DataVersion = int32(binary.LittleEndian.Uint32(rest[0:4]))
	rest = rest[4:]

	if len(rest) < 1 {
		return chunkpb.Chunk{}, corrupt(errTruncated)
	}
	flags := rest[0]
	rest = rest[1:]

	if flags&flagLastUpdate != 0 {
		if len(rest) < 8 {
			return chunkpb.Chunk{}, corrupt(errTruncated)
		}
		v := int64(binary.LittleEndian.Uint64(rest[:8]))
		c.LastUpdate = &v
		rest = rest[8:]
	}
	if flags&flagInhabitedTime != 0 {
		if len(rest) < 8 {
			return chunkpb.Chunk{}, corrupt(errTruncated)
		}
		v := int64(binary.LittleEndian.Uint64(rest[:8]))
		c.InhabitedTime = &v
		rest = rest[8:]
	}
	if flags&flagIsLightOnPresent != 0 {
		v := flags&flagIsLightOnValue != 0
		c.IsLightOn = &v
	}
	if flags&flagHeightmapMotionBlocking != 0 {
		c.Heightmaps.MotionBlocking, rest, err = readU64Slice(rest)
		if err != nil {
			return chunkpb.Chunk{}, corrupt(err)
		}
	}
	if flags&flagHeightmapWorldSurface != 0 {
		c.Heightmaps.WorldSurface, rest, err = readU64Slice(rest)
		if err != nil {
			return chunkpb.Chunk{}, corrupt(err)
		}
	}

	var numSections uint64
	numSections, rest, err = readUvarint(rest)
	if err != nil {
		return chunkpb.Chunk{}, corrupt(err)
	}
	if numSections > maxCount {
		return chunkpb.Chunk{}, corrupt(errCountTooBig)
	}
	c.Sections = make([]chunkpb.Section, numSections)
	for i := range c.Sections {
		rest, err = decodeSection(&c.Sections[i], rest)
		if err != nil {
			return chunkpb.Chunk{}, corrupt(err)
		}
	}
	if len(rest) != 0 {
		return chunkpb.Chunk{}, corrupt(errTrailingData)
	}
	return c, nil
}

func decodeSection(s *chunkpb.Section, rest []byte) ([]byte, error) {
	if len(rest) < 2 {
		return nil, errTruncated
	}
	s.Y = int8(rest[0])
	flags := rest[1]
	rest = rest[2:]

	var err error
	if flags&secFlagBlockStates != 0 {
		s.BlockStates = &chunkpb.BlockStates{}
		if len(rest) < 1 {
			return nil, errTruncated
		}
		dataFlags := rest[0]
		rest = rest[1:]
		if dataFlags&dataFlagPresent != 0 {
			s.BlockStates.Data, rest, err = readU64Slice(rest)
			if err != nil {
				return nil, err
			}
		}
		var n uint64
		n, rest, err = readUvarint(rest)
		if err != nil {
			return nil, err
		}
		if n > maxCount {
			return nil, errCountTooBig
		}
		s.BlockStates.Palette = make([]chunkpb.BlockEntry, n)
		for i := range s.BlockStates.Palette {
			s.BlockStates.Palette[i].Name, rest, err = readString(rest)
			if err != nil {
				return nil, err
			}
			var propCount uint64
			propCount, rest, err = readUvarint(rest)
			if err != nil {
				return nil, err
			}
			if propCount > maxCount {
				return nil, errCountTooBig
			}
			if propCount > 0 {
				props := make(map[string]string, propCount)
				for range propCount {
					var k, v string
					k, rest, err = readString(rest)
					if err != nil {
						return nil, err
					}
					v, rest, err = readString(rest)
					if err != nil {
						return nil, err
					}
					props[k] = v
				}
				s.BlockStates.Palette[i].Properties = props
			}
		}
	}

	if flags&secFlagBiomes != 0 {
		s.Biomes = &chunkpb.BiomePalette{}
		if len(rest) < 1 {
			return nil, errTruncated
		}
		dataFlags := rest[0]
		rest = rest[1:]
		if dataFlags&dataFlagPresent != 0 {
			s.Biomes.Data, rest, err = readU64Slice(rest)
			if err != nil {
				return nil, err
			}
		}
		var n uint64
		n, rest, err = readUvarint(rest)
		if err != nil {
			return nil, err
		}
		if n > maxCount {
			return nil, errCountTooBig
		}
		s.Biomes.Palette = make([]string, n)
		for i := range s.Biomes.Palette {
			s.Biomes.Palette[i], rest, err = readString(rest)
			if err != nil {
				return nil, err
			}
		}
	}

	if flags&secFlagBlockLight != 0 {
		s.BlockLight, rest, err = readBytes(rest)
		if err != nil {
			return nil, err
		}
	}
	if flags&secFlagSkyLight != 0 {
		s.SkyLight, rest, err = readBytes(rest)
		if err != nil {
			return nil, err
		}
	}
	return rest, nil
}

func corrupt(err error) error {
	return errs.Wrap(errs.Corruption, "chunkcodec: decode failed", err)
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	n, rest, err := readUvarint(buf)
	if err != nil {
		return "", nil, err
	}
	if n > maxCount || uint64(len(rest)) < n {
		return "", nil, errTruncated
	}
	return string(rest[:n]), rest[n:], nil
}

func appendBytes(buf []byte, p []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(p)))
	return append(buf, p...)
}

func readBytes(buf []byte) ([]byte, []byte, error) {
	n, rest, err := readUvarint(buf)
	if err != nil {
		return nil, nil, err
	}
	if n > maxCount || uint64(len(rest)) < n {
		return nil, nil, errTruncated
	}
	out := append([]byte(nil), rest[:n]...)
	return out, rest[n:], nil
}

func appendU64Slice(buf []byte, s []uint64) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	for _, v := range s {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	return buf
}

func readU64Slice(buf []byte) ([]uint64, []byte, error) {
	n, rest, err := readUvarint(buf)
	if err != nil {
		return nil, nil, err
	}
	if n > maxCount || uint64(len(rest)) < n*8 {
		return nil, nil, errTruncated
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(rest[:8])
		rest = rest[8:]
	}
	return out, rest, nil
}

func readUvarint(buf []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, nil, errTruncated
	}
	return v, buf[n:], nil
}
