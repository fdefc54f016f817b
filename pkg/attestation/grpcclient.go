package attestation

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// wireCodec mirrors pkg/api's hand-rolled JSON codec, duplicated here for
// the same reason pkg/inventory duplicates it: pulling in pkg/api would
// cycle back through pkg/scheduler.
type wireCodec struct{}

func (wireCodec) Name() string                            { return "json" }
func (wireCodec) Marshal(v interface{}) ([]byte, error)    { return json.Marshal(v) }
func (wireCodec) Unmarshal(b []byte, v interface{}) error  { return json.Unmarshal(b, v) }

// GRPCService is the production Service: a client of the remote
// attestation endpoint named by the trust block's attestation_api_url.
type GRPCService struct {
	conn *grpc.ClientConn
}

// DialOptions controls how GRPCService reaches the attestation server.
type DialOptions struct {
	// Addr is host:port of the attestation service.
	Addr string
	// CAFile, if non-empty, is a PEM file used to verify the server's
	// certificate (trust.attestation_server_ca_file). An empty CAFile
	// dials with insecure transport credentials, which is only
	// appropriate for local development.
	CAFile string
}

// DialGRPC opens a client connection to the attestation service.
func DialGRPC(opts DialOptions) (*GRPCService, error) {
	creds := insecure.NewCredentials()
	if opts.CAFile != "" {
		tlsCreds, err := credentials.NewClientTLSFromFile(opts.CAFile, "")
		if err != nil {
			return nil, fmt.Errorf("attestation: loading CA file %s: %w", opts.CAFile, err)
		}
		creds = tlsCreds
	}

	conn, err := grpc.NewClient(opts.Addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wireCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("attestation: dial %s: %w", opts.Addr, err)
	}
	return &GRPCService{conn: conn}, nil
}

// Close closes the underlying connection.
func (s *GRPCService) Close() error {
	return s.conn.Close()
}

type pollRequest struct {
	Hosts []string `json:"hosts"`
}

type pollResponse struct {
	Claims []Claim `json:"claims"`
}

// Poll implements Service.
func (s *GRPCService) Poll(ctx context.Context, hosts []string) ([]Claim, error) {
	resp := &pollResponse{}
	req := &pollRequest{Hosts: hosts}
	if err := s.conn.Invoke(ctx, "/gantt.Attestation/Poll", req, resp); err != nil {
		return nil, err
	}
	return resp.Claims, nil
}
