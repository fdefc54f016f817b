package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/attestation"
	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

const trustExtraSpecKey = "trust:trusted_host"

func init() {
	Register("Trusted", func() Filter {
		return &TrustedFilter{BaseFilter: BaseFilter{name: "Trusted", once: true}}
	})
}

// TrustedFilter passes a host unconditionally unless the instance type
// requests a trust level via extra_specs["trust:trusted_host"], in which
// case it defers to the attestation cache.
type TrustedFilter struct {
	BaseFilter
}

func (f *TrustedFilter) HostPasses(ctx context.Context, fctx *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	trust := props.InstanceType.ExtraSpecs[trustExtraSpecKey]
	if trust == "" {
		return true, nil
	}
	if fctx.Attestation == nil {
		return false, nil
	}
	level := fctx.Attestation.GetHostAttestation(ctx, host.Host)
	return level == attestation.TrustLevel(trust), nil
}
