package chunkcodec

import (
	"testing"

	"chunkvault/internal/chunkpb"
	"chunkvault/internal/errs"
)

func ptr64(v int64) *int64 { return &v }
func ptrBool(v bool) *bool { return &v }

func sampleChunk() *chunkpb.Chunk {
	return &chunkpb.Chunk{
		Dimension:   "minecraft:overworld",
		X:           12,
		Z:           -7,
		YPos:        -4,
		Status:      "full",
		DataVersion: 3953,
		Heightmaps: chunkpb.Heightmaps{
			MotionBlocking: []uint64{1, 2, 3},
			WorldSurface:   []uint64{4, 5, 6},
		},
		LastUpdate:    ptr64(100),
		InhabitedTime: ptr64(200),
		IsLightOn:     ptrBool(true),
		Sections: []chunkpb.Section{
			{
				Y: -4,
				BlockStates: &chunkpb.BlockStates{
					Data: []uint64{0, 0, 1, 1},
					Palette: []chunkpb.BlockEntry{
						{Name: "minecraft:air"},
						{Name: "minecraft:stone", Properties: map[string]string{"variant": "granite"}},
					},
				},
				Biomes: &chunkpb.BiomePalette{
					Data:    []uint64{0},
					Palette: []string{"minecraft:plains"},
				},
				BlockLight: []byte{1, 2, 3},
				SkyLight:   []byte{4, 5, 6},
			},
			{Y: -3},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	c := sampleChunk()
	enc, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !c.Equal(&got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", c, got)
	}
}

func TestRoundTripEmptyChunk(t *testing.T) {
	c := &chunkpb.Chunk{X: 0, Z: 0, Status: "empty"}
	enc, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !c.Equal(&got) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", c, got)
	}
}

func TestDecodeTruncatedIsCorruption(t *testing.T) {
	c := sampleChunk()
	enc, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	_, err = Decode(enc[:len(enc)-3])
	if !errs.Is(err, errs.Corruption) {
		t.Fatalf("decoding truncated record: got %v, want a Corruption error", err)
	}
}

func TestDecodeTrailingBytesIsCorruption(t *testing.T) {
	c := sampleChunk()
	enc, err := Encode(c)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	enc = append(enc, 0xFF)
	if _, err := Decode(enc); !errs.Is(err, errs.Corruption) {
		t.Fatalf("decoding record with trailing bytes: got %v, want a Corruption error", err)
	}
}

func TestSchemaHashStable(t *testing.T) {
	if SchemaHash != computeSchemaHash() {
		t.Fatal("SchemaHash is not stable across repeated computation")
	}
	if SchemaHash == 0 {
		t.Fatal("SchemaHash should not be zero")
	}
}
