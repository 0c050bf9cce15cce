package models

// PlacementSpec is the request descriptor handed to the placement scheduler
// when asking for a destination candidate. ExcludeHosts carries the workflow's
// attempted-hosts list, so a rejected host is never offered twice.
type PlacementSpec struct {
	InstanceID   string   `json:"instance_id"`
	Instance     Instance `json:"instance_properties"`
	Flavor       Flavor   `json:"flavor"`
	ImageRef     string   `json:"image_ref,omitempty"`
	ExcludeHosts []string `json:"exclude_hosts"`
}
