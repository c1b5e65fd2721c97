// Package encoding decodes and encodes gateway frames. Frames are JSON documents, sent
// either as text or as zlib compressed binary messages.
package encoding

import "encoding/json"

// RawMessage is a frame field whose decoding is left to the handler of the frame.
type RawMessage = json.RawMessage

var (
	Marshal   = json.Marshal
	Unmarshal = json.Unmarshal
)

// Decode unmarshals a gateway frame, inflating it first when it is compressed.
func Decode(data []byte, v interface{}) error {
	if Compressed(data) {
		var err error
		if data, err = Inflate(data); err != nil {
			return err
		}
	}
	return Unmarshal(data, v)
}
