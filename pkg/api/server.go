// Package api implements the scheduler's RPC surface: a gRPC service
// carrying plain JSON-encoded messages (via a hand-rolled codec, since
// the wire transport itself is out of scope) with one primary method,
// SelectDestinations, plus the legacy RunInstance/PrepResize method
// names routed to the same pipeline.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cuemby/gantt-scheduler/pkg/config"
	"github.com/cuemby/gantt-scheduler/pkg/log"
	"github.com/cuemby/gantt-scheduler/pkg/schederr"
	"github.com/cuemby/gantt-scheduler/pkg/scheduler"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Server implements the scheduler RPC service over Driver.
type Server struct {
	driver *scheduler.Driver
	config *config.Config
	grpc   *grpc.Server
}

// NewServer wires a gRPC server with the JSON codec forced on and the
// logging/metrics/version interceptor chain installed.
func NewServer(driver *scheduler.Driver, cfg *config.Config) *Server {
	s := &Server{driver: driver, config: cfg}
	s.grpc = grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(
			loggingInterceptor(),
			metricsInterceptor(),
			versionInterceptor(),
		),
	)
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Start blocks serving on addr until Stop is called or Serve errors.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api: listen on %s: %w", addr, err)
	}
	log.WithComponent("api").Info().Str("address", addr).Msg("rpc server listening")
	return s.grpc.Serve(lis)
}

// Stop gracefully drains in-flight RPCs before returning.
func (s *Server) Stop() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
}

// SelectDestinations is the scheduler's primary RPC method.
func (s *Server) SelectDestinations(ctx context.Context, req *SelectDestinationsRequest) (*SelectDestinationsResponse, error) {
	if req.Envelope.RequestID == "" {
		req.Envelope.RequestID = uuid.NewString()
	}
	spec, props := req.toSpecAndProps()

	destinations, err := s.driver.SelectDestinations(ctx, spec, props)
	if err != nil {
		return nil, toStatus(err)
	}

	return &SelectDestinationsResponse{
		Destinations: fromDomainDestinations(destinations),
		RespondedAt:  timestamppb.New(time.Now()),
	}, nil
}

// RunInstance is the legacy pre-select_destinations method name. It is
// routed to SelectDestinations for a single instance unless the
// deployment rejects legacy methods.
func (s *Server) RunInstance(ctx context.Context, req *RunInstanceRequest) (*SelectDestinationsResponse, error) {
	if s.config != nil && s.config.RejectLegacyMethods {
		return nil, status.Error(codes.Unimplemented, schederr.ErrNotSupported.Error())
	}
	return s.SelectDestinations(ctx, &SelectDestinationsRequest{
		Envelope:     req.Envelope,
		InstanceType: req.InstanceType,
		Image:        req.Image,
		NumInstances: 1,
		ProjectID:    req.ProjectID,
	})
}

// PrepResize is the legacy resize-placement method name, also a
// single-instance SelectDestinations call under another name.
func (s *Server) PrepResize(ctx context.Context, req *PrepResizeRequest) (*SelectDestinationsResponse, error) {
	if s.config != nil && s.config.RejectLegacyMethods {
		return nil, status.Error(codes.Unimplemented, schederr.ErrNotSupported.Error())
	}
	return s.SelectDestinations(ctx, &SelectDestinationsRequest{
		Envelope:     req.Envelope,
		InstanceType: req.InstanceType,
		NumInstances: 1,
		ProjectID:    req.ProjectID,
	})
}

// toStatus maps schederr sentinels to gRPC status codes, consistent
// with the teacher's status-mapping interceptor pattern.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, schederr.ErrNoValidHost):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, schederr.ErrInventoryUnavailable), errors.Is(err, schederr.ErrAttestationUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, schederr.ErrUnknownFilter), errors.Is(err, schederr.ErrUnknownWeigher):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, schederr.ErrNotSupported):
		return status.Error(codes.Unimplemented, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
