package models

// CPULoadMetric is the CPU utilization of the host.
// Average comes from the aggregate counters and is not the mean of PerCore.
type CPULoadMetric struct {
	Average Percent   `json:"average"`
	PerCore []Percent `json:"per_core,omitempty"`
}

// CPUMetrics groups CPU related metrics. Load is nil when load collection is disabled.
type CPUMetrics struct {
	Load *CPULoadMetric `json:"load,omitempty"`
}

// MemoryDetailedMetrics holds memory quantities in bytes.
type MemoryDetailedMetrics struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Free      uint64 `json:"free"`
	Available uint64 `json:"available"`
}

// MemoryMetrics groups memory related metrics.
type MemoryMetrics struct {
	PercUsed Percent                `json:"perc_used"`
	Detailed *MemoryDetailedMetrics `json:"detailed,omitempty"`
}

// Metrics is the full snapshot served at the metrics root.
// CPU and memory are sampled independently, not atomically.
type Metrics struct {
	CPU    CPUMetrics    `json:"cpu"`
	Memory MemoryMetrics `json:"memory"`
}

// Health is the body of the health endpoint.
type Health struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version"`
}

// AgentID is the body of the agent id endpoint.
type AgentID struct {
	AgentID string `json:"agent_id"`
}

// ErrorResponse is the body returned by every failing endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}
