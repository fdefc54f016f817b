package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	req := &SelectDestinationsRequest{
		Envelope:     Envelope{Version: minSupportedVersion},
		InstanceType: WireInstanceType{VCPUs: 4, MemoryMB: 4096},
		NumInstances: 2,
	}

	data, err := codec.Marshal(req)
	require.NoError(t, err)

	var decoded SelectDestinationsRequest
	require.NoError(t, codec.Unmarshal(data, &decoded))
	assert.Equal(t, req.NumInstances, decoded.NumInstances)
	assert.Equal(t, req.InstanceType, decoded.InstanceType)
	assert.Equal(t, req.Envelope.Version, decoded.Envelope.Version)
}
