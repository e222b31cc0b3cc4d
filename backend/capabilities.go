package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	CapabilityObjectStorage    BackendCapability = "object_storage"
	CapabilityRangeRead        BackendCapability = "range_read"
	CapabilityConditionalWrite BackendCapability = "conditional_write"
	CapabilityChecksum         BackendCapability = "checksum"
	CapabilityRegionDiscovery  BackendCapability = "region_discovery"
	CapabilityServerSideCopy   BackendCapability = "server_side_copy"
)

func GetAllCapabilities() *BackendCapabilities {
	return &BackendCapabilities{
		Capabilities: []BackendCapability{
			CapabilityObjectStorage,
			CapabilityRangeRead,
			CapabilityConditionalWrite,
			CapabilityChecksum,
			CapabilityRegionDiscovery,
			CapabilityServerSideCopy,
		},
	}
}

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities  []BackendCapability `json:"capabilities"`
	MaxObjectSize int64               `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	if bc == nil {
		return false
	}
	return slices.Contains(bc.Capabilities, cap)
}
