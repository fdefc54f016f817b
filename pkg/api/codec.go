package api

import "encoding/json"

// jsonCodec implements encoding.Codec over plain JSON so the service can
// be served with google.golang.org/grpc without a protoc-generated
// .pb.go pair: the wire transport is explicitly out of scope, only the
// method contract and framing (gRPC's length-prefixed stream) matter.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
