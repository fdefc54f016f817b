package filters

import (
	"context"

	"github.com/cuemby/gantt-scheduler/pkg/hoststate"
	"github.com/cuemby/gantt-scheduler/pkg/specs"
	"github.com/cuemby/gantt-scheduler/pkg/types"
)

func init() {
	Register("ImageProperties", func() Filter {
		return &ImagePropertiesFilter{BaseFilter: BaseFilter{name: "ImageProperties", once: true}}
	})
}

// ImagePropertiesFilter passes a host whose advertised supported
// instance shapes satisfy the image's requested architecture,
// hypervisor type, and vm mode, and whose hypervisor version (if the
// image requires one) satisfies the requested version predicate.
type ImagePropertiesFilter struct {
	BaseFilter
}

func (f *ImagePropertiesFilter) HostPasses(_ context.Context, _ *Context, host *hoststate.HostState, props types.FilterProperties) (bool, error) {
	img := props.RequestSpec.Image
	if img.Architecture == "" && img.HypervisorType == "" && img.VMMode == "" {
		return true, nil
	}
	if len(host.SupportedInstances) == 0 {
		return false, nil
	}

	for _, supported := range host.SupportedInstances {
		if !compareProps(img, supported) {
			continue
		}
		if compareProductVersion(host.HypervisorVersion, img.HypervisorVersionRequires) {
			return true, nil
		}
	}
	return false, nil
}

func compareProps(img types.ImageProperties, supported types.SupportedInstance) bool {
	if img.Architecture != "" && img.Architecture != supported.Architecture {
		return false
	}
	if img.HypervisorType != "" && img.HypervisorType != supported.HypervisorType {
		return false
	}
	if img.VMMode != "" && img.VMMode != supported.VMMode {
		return false
	}
	return true
}

func compareProductVersion(hypervisorVersion int64, versionRequires string) bool {
	if hypervisorVersion == 0 || versionRequires == "" {
		return true
	}
	predicate, err := specs.ParseVersionPredicate(versionRequires)
	if err != nil {
		return false
	}
	return predicate.SatisfiedBy(specs.ConvertVersionToString(hypervisorVersion))
}
