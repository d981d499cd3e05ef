package types

import (
	"encoding/json"
	"fmt"
)

type chunkRefJSON struct {
	Hash   string `json:"hash"`
	Length uint32 `json:"length"`
}

type recipeJSON struct {
	TotalSize uint64         `json:"totalSize"`
	Chunks    []chunkRefJSON `json:"chunks"`
}

// MarshalJSON renders the recipe with hex digests, the human-readable form
// used by the cmd tools. The canonical persisted encoding is CBOR (see the
// recipe store).
func (r Recipe) MarshalJSON() ([]byte, error) {
	out := recipeJSON{
		TotalSize: r.TotalSize,
		Chunks:    make([]chunkRefJSON, len(r.Chunks)),
	}
	for i, ref := range r.Chunks {
		out.Chunks[i] = chunkRefJSON{Hash: ref.Hash.String(), Length: ref.Length}
	}
	return json.Marshal(out)
}

func (r *Recipe) UnmarshalJSON(data []byte) error {
	var in recipeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.TotalSize = in.TotalSize
	r.Chunks = make([]ChunkRef, len(in.Chunks))
	for i, ref := range in.Chunks {
		h, err := ParseHash(ref.Hash)
		if err != nil {
			return fmt.Errorf("recipe chunk %d: %w", i, err)
		}
		r.Chunks[i] = ChunkRef{Hash: h, Length: ref.Length}
	}
	return nil
}

// PrettyPrint writes the recipe as indented JSON to stdout.
func (r Recipe) PrettyPrint() {
	jsonBytes, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		fmt.Println("Error marshalling Recipe to JSON:", err)
		return
	}
	fmt.Println(string(jsonBytes))
}
