package models

// Aggregate is a named grouping of hosts sharing operational metadata, most
// importantly the ram allocation ratio applied on top of physical memory.
type Aggregate struct {
	Name               string  `json:"name"`
	RAMAllocationRatio float64 `json:"ram_allocation_ratio"`
}

// HostFacts is a per-host resource snapshot fetched from the host registry.
// Facts are always re-fetched for the current values; a stale snapshot would
// let the capacity check approve a host that can no longer fit the instance.
type HostFacts struct {
	Host              string      `json:"host"`
	Up                bool        `json:"up"`
	MemoryMB          int64       `json:"memory_mb"`
	MemoryMBUsed      int64       `json:"memory_mb_used"`
	HypervisorType    string      `json:"hypervisor_type"`
	HypervisorVersion int64       `json:"hypervisor_version"`
	Aggregates        []Aggregate `json:"aggregates"`
}
