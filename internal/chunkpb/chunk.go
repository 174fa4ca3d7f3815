// Package chunkpb defines the canonical in-memory representation of a
// world chunk: the record type that internal/chunkcodec serializes and
// internal/world persists. The layout here is the one thing a running
// database is structurally committed to — any change to field names,
// order, or types must be reflected in a new schema hash (see
// internal/chunkcodec.SchemaHash) so the metadata gate can refuse to
// open a database encoded under a different shape.
package chunkpb

// Chunk identifies a 16xNx16 column of the world at (X, Z) within
// Dimension. It is immutable from storage's point of view: callers
// receive owned copies, never aliases into the cache.
type Chunk struct {
	Dimension     string
	X             int32
	Z             int32
	YPos          int32
	Sections      []Section
	Heightmaps    Heightmaps
	Status        string
	DataVersion   int32
	LastUpdate    *int64
	InhabitedTime *int64
	IsLightOn     *bool
}

// Heightmaps carries the two packed long-array heightmaps vanilla tracks.
// Either may be absent.
type Heightmaps struct {
	MotionBlocking []uint64
	WorldSurface   []uint64
}

func (h Heightmaps) isEmpty() bool {
	return h.MotionBlocking == nil && h.WorldSurface == nil
}

// Section is one vertical 16x16x16 slice of a Chunk.
type Section struct {
	Y           int8
	BlockStates *BlockStates
	Biomes      *BiomePalette
	BlockLight  []byte
	SkyLight    []byte
}

// BlockStates is a palette-coded, packed-long array of block indices.
// Invariant: if Data is non-nil, len(Palette) >= 1 and every index in
// Data is < len(Palette).
type BlockStates struct {
	Data    []uint64
	Palette []BlockEntry
}

// BlockEntry is one named block state in a palette.
type BlockEntry struct {
	Name       string
	Properties map[string]string
}

// BiomePalette is a palette-coded biome array, structurally identical
// to BlockStates but keyed by biome name instead of block state.
type BiomePalette struct {
	Data    []uint64
	Palette []string
}

// Key is the canonical coordinate tuple the digest is computed from.
// Dimension is deliberately excluded — see spec.md's Hasher invariant
// and the Open Question resolution recorded in DESIGN.md: the table
// name (not the digest) carries the dimension.
type Key struct {
	X int32
	Z int32
}

// Key returns the canonical key this chunk is addressed by.
func (c *Chunk) Key() Key {
	return Key{X: c.X, Z: c.Z}
}

// Clone returns a deep copy of c. Every slice and the pointed-to
// contents of every optional field are copied, never shared, so a
// caller mutating the result can never corrupt a value cached
// elsewhere (storage's Ownership invariant).
func (c *Chunk) Clone() *Chunk {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Sections != nil {
		cp.Sections = make([]Section, len(c.Sections))
		for i := range c.Sections {
			cp.Sections[i] = c.Sections[i].clone()
		}
	}
	cp.Heightmaps = Heightmaps{
		MotionBlocking: append([]uint64(nil), c.Heightmaps.MotionBlocking...),
		WorldSurface:   append([]uint64(nil), c.Heightmaps.WorldSurface...),
	}
	cp.LastUpdate = clonePtr(c.LastUpdate)
	cp.InhabitedTime = clonePtr(c.InhabitedTime)
	cp.IsLightOn = cloneBoolPtr(c.IsLightOn)
	return &cp
}

func (s Section) clone() Section {
	cp := s
	cp.BlockStates = s.BlockStates.clone()
	cp.Biomes = s.Biomes.clone()
	cp.BlockLight = append([]byte(nil), s.BlockLight...)
	cp.SkyLight = append([]byte(nil), s.SkyLight...)
	return cp
}

func (b *BlockStates) clone() *BlockStates {
	if b == nil {
		return nil
	}
	cp := &BlockStates{
		Data:    append([]uint64(nil), b.Data...),
		Palette: make([]BlockEntry, len(b.Palette)),
	}
	for i, e := range b.Palette {
		entry := BlockEntry{Name: e.Name}
		if e.Properties != nil {
			entry.Properties = make(map[string]string, len(e.Properties))
			for k, v := range e.Properties {
				entry.Properties[k] = v
			}
		}
		cp.Palette[i] = entry
	}
	return cp
}

func (p *BiomePalette) clone() *BiomePalette {
	if p == nil {
		return nil
	}
	return &BiomePalette{
		Data:    append([]uint64(nil), p.Data...),
		Palette: append([]string(nil), p.Palette...),
	}
}

func clonePtr(v *int64) *int64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneBoolPtr(v *bool) *bool {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// Equal reports whether two chunks are bit-equal across all fields
// enumerated in the storage round-trip invariant. Used by tests, not
// by the hot path.
func (c *Chunk) Equal(o *Chunk) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.Dimension != o.Dimension || c.X != o.X || c.Z != o.Z || c.YPos != o.YPos ||
		c.Status != o.Status || c.DataVersion != o.DataVersion {
		return false
	}
	if !equalPtr(c.LastUpdate, o.LastUpdate) || !equalPtr(c.InhabitedTime, o.InhabitedTime) {
		return false
	}
	if !equalBoolPtr(c.IsLightOn, o.IsLightOn) {
		return false
	}
	if !c.Heightmaps.equal(o.Heightmaps) {
		return false
	}
	if len(c.Sections) != len(o.Sections) {
		return false
	}
	for i := range c.Sections {
		if !c.Sections[i].equal(&o.Sections[i]) {
			return false
		}
	}
	return true
}

func (h Heightmaps) equal(o Heightmaps) bool {
	return equalU64Slice(h.MotionBlocking, o.MotionBlocking) &&
		equalU64Slice(h.WorldSurface, o.WorldSurface)
}

func (s *Section) equal(o *Section) bool {
	if s.Y != o.Y {
		return false
	}
	if !equalBlockStates(s.BlockStates, o.BlockStates) {
		return false
	}
	if !equalBiomes(s.Biomes, o.Biomes) {
		return false
	}
	return equalBytes(s.BlockLight, o.BlockLight) && equalBytes(s.SkyLight, o.SkyLight)
}

func equalBlockStates(a, b *BlockStates) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !equalU64Slice(a.Data, b.Data) || len(a.Palette) != len(b.Palette) {
		return false
	}
	for i := range a.Palette {
		if a.Palette[i].Name != b.Palette[i].Name {
			return false
		}
		if len(a.Palette[i].Properties) != len(b.Palette[i].Properties) {
			return false
		}
		for k, v := range a.Palette[i].Properties {
			if b.Palette[i].Properties[k] != v {
				return false
			}
		}
	}
	return true
}

func equalBiomes(a, b *BiomePalette) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !equalU64Slice(a.Data, b.Data) || len(a.Palette) != len(b.Palette) {
		return false
	}
	for i := range a.Palette {
		if a.Palette[i] != b.Palette[i] {
			return false
		}
	}
	return true
}

func equalU64Slice(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalPtr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalBoolPtr(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
