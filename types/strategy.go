package types

// Strategy describes a scan strategy offered by the API.
type Strategy struct {
	Key         string `json:"key" yaml:"key"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
}

// HealthStatus is the API health probe response.
type HealthStatus struct {
	Status string `json:"status" yaml:"status"`
}

// OK reports whether the API declared itself healthy.
func (h HealthStatus) OK() bool { return h.Status == "ok" }
