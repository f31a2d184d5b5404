package certfile

import (
	"bytes"
	"encoding/json"
)

// unmarshalJSON decodes data into out.
func unmarshalJSON(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	return dec.Decode(out)
}
