package cache

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

// vectorSer serializes embedding vectors with raw fixed-width floats.
// Varint encoding buys nothing for float bit patterns.
var vectorSer = ord.NewSliceSer[float32](raw.Float32)

// marshalVector serializes an embedding vector to bytes.
func marshalVector(vector []float32) []byte {
	buf := make([]byte, vectorSer.Size(vector))
	vectorSer.Marshal(vector, buf)
	return buf
}

// unmarshalVector deserializes an embedding vector from bytes.
func unmarshalVector(data []byte) ([]float32, error) {
	vector, _, err := vectorSer.Unmarshal(data)
	return vector, err
}
