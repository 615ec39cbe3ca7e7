package domain

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// EncodeEmbedding stores a vector as a JSON float array.
func EncodeEmbedding(vec []float32) datatypes.JSON {
	if len(vec) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

// DecodeEmbedding tolerates both float32 and float64 encodings since older
// rows may have been written by a different serializer.
func DecodeEmbedding(emb datatypes.JSON) ([]float32, bool) {
	if len(emb) == 0 {
		return nil, false
	}
	var out []float32
	if err := json.Unmarshal(emb, &out); err == nil && len(out) > 0 {
		return out, true
	}
	var tmp []float64
	if err := json.Unmarshal(emb, &tmp); err != nil || len(tmp) == 0 {
		return nil, false
	}
	out = make([]float32, 0, len(tmp))
	for _, f := range tmp {
		out = append(out, float32(f))
	}
	return out, true
}

// EncodeStrings stores a string slice as JSON (search terms, alias lists).
func EncodeStrings(ss []string) datatypes.JSON {
	if len(ss) == 0 {
		return datatypes.JSON([]byte("[]"))
	}
	raw, err := json.Marshal(ss)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

func DecodeStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
