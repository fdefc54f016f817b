package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuemby/gantt-scheduler/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// wireCodec mirrors pkg/api's hand-rolled JSON codec. It is duplicated
// rather than imported to avoid an import cycle (pkg/api depends on
// pkg/scheduler, which depends on this package).
type wireCodec struct{}

func (wireCodec) Name() string                          { return "json" }
func (wireCodec) Marshal(v interface{}) ([]byte, error)  { return json.Marshal(v) }
func (wireCodec) Unmarshal(b []byte, v interface{}) error { return json.Unmarshal(b, v) }

// GRPCClient is the production implementation of Store: a thin RPC
// client against a remote inventory service (typically embedded in or
// adjacent to the compute management plane), using the same
// codec-over-gRPC approach as pkg/api rather than protoc-generated
// stubs, since the wire format is not spec-relevant.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// DialGRPC opens a client connection to an inventory service at addr.
// Production deployments should pass transport credentials; insecure
// credentials are used here only because spec.md scopes transport
// security out.
func DialGRPC(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("inventory: dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

type listComputeNodesRequest struct{}

type listComputeNodesResponse struct {
	Nodes []ComputeNodeRecord `json:"nodes"`
}

// ListComputeNodes implements Store.
func (c *GRPCClient) ListComputeNodes(ctx context.Context) ([]ComputeNodeRecord, error) {
	resp := &listComputeNodesResponse{}
	if err := c.conn.Invoke(ctx, "/gantt.Inventory/ListComputeNodes", &listComputeNodesRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

type aggregateMetadataRequest struct {
	Host string `json:"host"`
}

type aggregateMetadataResponse struct {
	Metadata map[string][]string `json:"metadata"`
}

// AggregateMetadataByHost implements Store.
func (c *GRPCClient) AggregateMetadataByHost(ctx context.Context, host string) (map[string][]string, error) {
	resp := &aggregateMetadataResponse{}
	req := &aggregateMetadataRequest{Host: host}
	if err := c.conn.Invoke(ctx, "/gantt.Inventory/AggregateMetadataByHost", req, resp); err != nil {
		return nil, err
	}
	return resp.Metadata, nil
}

type instanceTypesOnHostRequest struct {
	Host string `json:"host"`
}

type instanceTypesOnHostResponse struct {
	InstanceTypes []types.InstanceType `json:"instance_types"`
}

// InstanceTypesOnHost implements Store.
func (c *GRPCClient) InstanceTypesOnHost(ctx context.Context, host string) ([]types.InstanceType, error) {
	resp := &instanceTypesOnHostResponse{}
	req := &instanceTypesOnHostRequest{Host: host}
	if err := c.conn.Invoke(ctx, "/gantt.Inventory/InstanceTypesOnHost", req, resp); err != nil {
		return nil, err
	}
	return resp.InstanceTypes, nil
}
