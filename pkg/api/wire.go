package api

import (
	"github.com/cuemby/gantt-scheduler/pkg/types"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// versionHistory orders every named protocol version this server has
// ever spoken, oldest first, the way Nova's RPC API versioning tracks a
// changelog of named revisions rather than a semver number. A client's
// envelope version must appear here at or after minSupportedVersion.
var versionHistory = []string{
	"select_destinations introduced",
}

// minSupportedVersion is the oldest envelope version this server
// accepts: clients older than this don't know about SelectDestinations
// at all.
const minSupportedVersion = "select_destinations introduced"

func versionOrdinal(version string) (int, bool) {
	for i, v := range versionHistory {
		if v == version {
			return i, true
		}
	}
	return 0, false
}

// versionSupported reports whether version is known and at or after
// minSupportedVersion in versionHistory.
func versionSupported(version string) bool {
	ord, ok := versionOrdinal(version)
	if !ok {
		return false
	}
	minOrd, _ := versionOrdinal(minSupportedVersion)
	return ord >= minOrd
}

// Envelope wraps every request with the caller's protocol version and
// identity, validated by versionInterceptor before a handler runs.
type Envelope struct {
	Version   string       `json:"version"`
	RequestID string       `json:"request_id,omitempty"`
	Context   WireContext  `json:"context,omitempty"`
}

// WireContext mirrors types.Context on the wire.
type WireContext struct {
	UserID    string `json:"user_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (c WireContext) toDomain() types.Context {
	return types.Context{UserID: c.UserID, ProjectID: c.ProjectID, RequestID: c.RequestID}
}

// WireInstanceType mirrors types.InstanceType on the wire.
type WireInstanceType struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty"`
	VCPUs       int               `json:"vcpus"`
	MemoryMB    int64             `json:"memory_mb"`
	RootGB      int64             `json:"root_gb"`
	EphemeralGB int64             `json:"ephemeral_gb"`
	ExtraSpecs  map[string]string `json:"extra_specs,omitempty"`
}

func (w WireInstanceType) toDomain() types.InstanceType {
	return types.InstanceType{
		ID:          w.ID,
		Name:        w.Name,
		VCPUs:       w.VCPUs,
		MemoryMB:    w.MemoryMB,
		RootGB:      w.RootGB,
		EphemeralGB: w.EphemeralGB,
		ExtraSpecs:  w.ExtraSpecs,
	}
}

// WireImageProperties mirrors types.ImageProperties on the wire.
type WireImageProperties struct {
	Architecture              string `json:"architecture,omitempty"`
	HypervisorType            string `json:"hypervisor_type,omitempty"`
	VMMode                    string `json:"vm_mode,omitempty"`
	HypervisorVersionRequires string `json:"hypervisor_version_requires,omitempty"`
}

func (w WireImageProperties) toDomain() types.ImageProperties {
	return types.ImageProperties{
		Architecture:              w.Architecture,
		HypervisorType:            w.HypervisorType,
		VMMode:                    w.VMMode,
		HypervisorVersionRequires: w.HypervisorVersionRequires,
	}
}

// WirePciRequest mirrors types.PciRequest on the wire.
type WirePciRequest struct {
	Alias string              `json:"alias,omitempty"`
	Count int                 `json:"count"`
	Spec  []WirePciDeviceSpec `json:"spec,omitempty"`
}

// WirePciDeviceSpec mirrors types.PciDeviceSpec on the wire.
type WirePciDeviceSpec struct {
	VendorID  string `json:"vendor_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
}

func toDomainPciRequests(wire []WirePciRequest) []types.PciRequest {
	out := make([]types.PciRequest, len(wire))
	for i, w := range wire {
		spec := make([]types.PciDeviceSpec, len(w.Spec))
		for j, s := range w.Spec {
			spec[j] = types.PciDeviceSpec{VendorID: s.VendorID, ProductID: s.ProductID}
		}
		out[i] = types.PciRequest{Alias: w.Alias, Count: w.Count, Spec: spec}
	}
	return out
}

// SelectDestinationsRequest is the primary RPC request payload.
type SelectDestinationsRequest struct {
	Envelope     Envelope             `json:"envelope"`
	InstanceType WireInstanceType     `json:"instance_type"`
	Image        WireImageProperties  `json:"image,omitempty"`
	NumInstances int                  `json:"num_instances"`
	ProjectID    string               `json:"project_id,omitempty"`
	PciRequests  []WirePciRequest     `json:"pci_requests,omitempty"`
	IgnoreHosts  []string             `json:"ignore_hosts,omitempty"`
	ForceHosts   []string             `json:"force_hosts,omitempty"`
	ForceNodes   []string             `json:"force_nodes,omitempty"`
}

func (r *SelectDestinationsRequest) toSpecAndProps() (types.RequestSpec, types.FilterProperties) {
	instanceType := r.InstanceType.toDomain()
	image := r.Image.toDomain()

	spec := types.RequestSpec{
		InstanceType: instanceType,
		Image:        image,
		NumInstances: r.NumInstances,
		ProjectID:    r.ProjectID,
	}
	props := types.FilterProperties{
		Context:      r.Envelope.Context.toDomain(),
		InstanceType: instanceType,
		RequestSpec:  spec,
		PciRequests:  toDomainPciRequests(r.PciRequests),
		IgnoreHosts:  r.IgnoreHosts,
		ForceHosts:   r.ForceHosts,
		ForceNodes:   r.ForceNodes,
	}
	return spec, props
}

// WireDestination mirrors types.Destination on the wire.
type WireDestination struct {
	Host   string             `json:"host"`
	Node   string             `json:"node"`
	Limits map[string]float64 `json:"limits,omitempty"`
}

func fromDomainDestinations(destinations []types.Destination) []WireDestination {
	out := make([]WireDestination, len(destinations))
	for i, d := range destinations {
		out[i] = WireDestination{Host: d.Host, Node: d.Node, Limits: d.Limits}
	}
	return out
}

// SelectDestinationsResponse is the primary RPC response payload.
type SelectDestinationsResponse struct {
	Destinations []WireDestination      `json:"destinations"`
	RespondedAt  *timestamppb.Timestamp `json:"responded_at,omitempty"`
}

func (r *SelectDestinationsRequest) envelope() Envelope { return r.Envelope }
func (r *RunInstanceRequest) envelope() Envelope        { return r.Envelope }
func (r *PrepResizeRequest) envelope() Envelope         { return r.Envelope }

// envelopeCarrier is implemented by every request type so the version
// interceptor can validate the envelope without a type switch per
// method.
type envelopeCarrier interface {
	envelope() Envelope
}

// RunInstanceRequest is the legacy pre-select_destinations request
// shape, routed to the same pipeline as SelectDestinationsRequest
// unless the deployment rejects legacy methods.
type RunInstanceRequest struct {
	Envelope     Envelope            `json:"envelope"`
	InstanceType WireInstanceType    `json:"instance_type"`
	Image        WireImageProperties `json:"image,omitempty"`
	ProjectID    string              `json:"project_id,omitempty"`
}

// PrepResizeRequest is the legacy resize-placement request shape: a
// single-instance SelectDestinations call under another name.
type PrepResizeRequest struct {
	Envelope     Envelope         `json:"envelope"`
	InstanceType WireInstanceType `json:"instance_type"`
	ProjectID    string           `json:"project_id,omitempty"`
}
