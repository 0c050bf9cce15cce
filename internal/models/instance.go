package models

// PowerState is the power state of an instance as reported by its compute
// host.
type PowerState string

const (
	PowerStateRunning   PowerState = "running"
	PowerStatePaused    PowerState = "paused"
	PowerStateSuspended PowerState = "suspended"
	PowerStateShutdown  PowerState = "shutdown"
	PowerStateCrashed   PowerState = "crashed"
)

// Flavor describes the resource shape an instance was launched with. It is
// forwarded to the placement scheduler as part of the request descriptor.
type Flavor struct {
	Name     string `json:"name"`
	VCPUs    int    `json:"vcpus"`
	MemoryMB int64  `json:"memory_mb"`
	DiskGB   int64  `json:"disk_gb"`
}

// Instance is a read-only snapshot of the workload being migrated, taken at
// the start of a workflow. The workflow never mutates it.
type Instance struct {
	ID         string     `json:"id"`
	Host       string     `json:"host"`
	PowerState PowerState `json:"power_state"`
	MemoryMB   int64      `json:"memory_mb"`
	ImageRef   string     `json:"image_ref,omitempty"`
	Flavor     Flavor     `json:"flavor"`
}

// IsRunning reports whether the instance can take part in a live migration.
func (i *Instance) IsRunning() bool {
	return i.PowerState == PowerStateRunning
}
