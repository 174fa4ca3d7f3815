package anvil

import (
	"chunkvault/internal/chunkpb"
	"chunkvault/internal/errs"
)

// DecodeAnvil parses one vanilla chunk NBT document and maps it onto
// chunkpb.Chunk. Its only contract is that the result round-trips
// through chunkcodec.Encode/Decode; region-file (.mca) I/O and region
// coordinate math are out of scope here and belong to the importer
// that calls DecodeAnvil once per extracted chunk.
//
// Field names and optionality are grounded on vanilla_chunk_format.rs:
// Status, DataVersion, yPos/xPos/zPos, Heightmaps.MOTION_BLOCKING/
// WORLD_SURFACE, isLightOn, InhabitedTime, LastUpdate, sections[].Y/
// block_states/biomes/BlockLight/SkyLight, block_states.data/palette,
// palette[].Name.
func DecodeAnvil(nbt []byte) (chunkpb.Chunk, error) {
	root, err := parseRoot(nbt)
	if err != nil {
		return chunkpb.Chunk{}, errs.Wrap(errs.Corruption, "anvil: parse NBT", err)
	}

	c := chunkpb.Chunk{}

	status, ok := root.comp["Status"]
	if !ok || status.typ != tagString {
		return chunkpb.Chunk{}, errs.New(errs.Corruption, "anvil: missing Status")
	}
	c.Status = status.str

	dv, ok := root.comp["DataVersion"]
	if !ok || dv.typ != tagInt {
		return chunkpb.Chunk{}, errs.New(errs.Corruption, "anvil: missing DataVersion")
	}
	c.DataVersion = dv.i32

	xPos, ok := root.comp["xPos"]
	if !ok || xPos.typ != tagInt {
		return chunkpb.Chunk{}, errs.New(errs.Corruption, "anvil: missing xPos")
	}
	c.X = xPos.i32

	zPos, ok := root.comp["zPos"]
	if !ok || zPos.typ != tagInt {
		return chunkpb.Chunk{}, errs.New(errs.Corruption, "anvil: missing zPos")
	}
	c.Z = zPos.i32

	if yPos, ok := root.comp["yPos"]; ok && yPos.typ == tagInt {
		c.YPos = yPos.i32
	}

	if dim, ok := root.comp["dimension"]; ok && dim.typ == tagString {
		c.Dimension = dim.str
	}

	if v, ok := root.comp["isLightOn"]; ok && v.typ == tagByte {
		b := v.i8 != 0
		c.IsLightOn = &b
	}
	if v, ok := root.comp["InhabitedTime"]; ok && v.typ == tagLong {
		n := v.i64
		c.InhabitedTime = &n
	}
	if v, ok := root.comp["LastUpdate"]; ok && v.typ == tagLong {
		n := v.i64
		c.LastUpdate = &n
	}

	if hm, ok := root.comp["Heightmaps"]; ok && hm.typ == tagCompound {
		c.Heightmaps.MotionBlocking = longArrayAsU64(hm.comp["MOTION_BLOCKING"])
		c.Heightmaps.WorldSurface = longArrayAsU64(hm.comp["WORLD_SURFACE"])
	}

	if sections, ok := root.comp["sections"]; ok && sections.typ == tagList {
		c.Sections = make([]chunkpb.Section, 0, len(sections.list))
		for _, sv := range sections.list {
			if sv.typ != tagCompound {
				continue
			}
			sec, err := decodeSection(sv)
			if err != nil {
				return chunkpb.Chunk{}, err
			}
			c.Sections = append(c.Sections, sec)
		}
	}

	return c, nil
}

func decodeSection(sv value) (chunkpb.Section, error) {
	sec := chunkpb.Section{}

	if y, ok := sv.comp["Y"]; ok && y.typ == tagByte {
		sec.Y = y.i8
	}

	if bl, ok := sv.comp["BlockLight"]; ok && bl.typ == tagByteArray {
		sec.BlockLight = byteArrayAsBytes(bl.ba)
	}
	if sl, ok := sv.comp["SkyLight"]; ok && sl.typ == tagByteArray {
		sec.SkyLight = byteArrayAsBytes(sl.ba)
	}

	if bs, ok := sv.comp["block_states"]; ok && bs.typ == tagCompound {
		states, err := decodeBlockStates(bs)
		if err != nil {
			return chunkpb.Section{}, err
		}
		sec.BlockStates = states
	}

	if biomes, ok := sv.comp["biomes"]; ok && biomes.typ == tagCompound {
		sec.Biomes = decodeBiomes(biomes)
	}

	return sec, nil
}

func decodeBlockStates(bs value) (*chunkpb.BlockStates, error) {
	out := &chunkpb.BlockStates{}

	paletteVal, ok := bs.comp["palette"]
	if !ok || paletteVal.typ != tagList {
		return out, nil
	}
	out.Palette = make([]chunkpb.BlockEntry, 0, len(paletteVal.list))
	for _, pv := range paletteVal.list {
		if pv.typ != tagCompound {
			continue
		}
		entry := chunkpb.BlockEntry{}
		if name, ok := pv.comp["Name"]; ok && name.typ == tagString {
			entry.Name = name.str
		}
		if props, ok := pv.comp["Properties"]; ok && props.typ == tagCompound {
			entry.Properties = make(map[string]string, len(props.comp))
			for k, v := range props.comp {
				if v.typ == tagString {
					entry.Properties[k] = v.str
				}
			}
		}
		out.Palette = append(out.Palette, entry)
	}

	if data, ok := bs.comp["data"]; ok && data.typ == tagLongArray {
		out.Data = longArrayAsU64(data)
	}

	if len(out.Palette) == 0 {
		return nil, errs.New(errs.Corruption, "anvil: block_states present with empty palette")
	}
	return out, nil
}

func decodeBiomes(biomes value) *chunkpb.BiomePalette {
	listVal, ok := biomes.comp["palette"]
	if !ok || listVal.typ != tagList {
		return nil
	}
	out := &chunkpb.BiomePalette{Palette: make([]string, 0, len(listVal.list))}
	for _, v := range listVal.list {
		if v.typ == tagString {
			out.Palette = append(out.Palette, v.str)
		}
	}
	if data, ok := biomes.comp["data"]; ok {
		out.Data = longArrayAsU64(data)
	}
	return out
}

func longArrayAsU64(v value) []uint64 {
	if v.typ != tagLongArray || v.la == nil {
		return nil
	}
	out := make([]uint64, len(v.la))
	for i, n := range v.la {
		out[i] = uint64(n)
	}
	return out
}

func byteArrayAsBytes(ba []int8) []byte {
	if ba == nil {
		return nil
	}
	out := make([]byte, len(ba))
	for i, b := range ba {
		out[i] = byte(b)
	}
	return out
}
