package extensions

import (
	"gopkg.in/yaml.v3"
)

// YAMLCodec is a statefold.Codec backed by YAML, for hosts whose
// persistence layer stores state as YAML. Install it with
// statefold.WithCodec(extensions.YAMLCodec{}) to make the debug
// restorability check exercise the same transport form.
type YAMLCodec struct{}

func (YAMLCodec) Encode(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Decode(data []byte, into any) error {
	return yaml.Unmarshal(data, into)
}
