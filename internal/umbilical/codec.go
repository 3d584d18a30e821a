package umbilical

import (
	"github.com/goccy/go-json"
	"google.golang.org/grpc/encoding"
)

// codecName is registered with grpc's encoding registry and is the content-subtype
// every umbilical client sets via grpc.CallContentSubtype; the server picks the codec
// from that subtype, with no server-side codec option.
const codecName = "json"

// jsonCodec implements encoding.Codec over the plain request/response structs in
// types.go, replacing the protobuf wire codec grpc defaults to — there are no
// .proto-generated messages in this module, only JSON ones.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
