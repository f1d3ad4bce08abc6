package fleet

// Node is a point in the warehouse path graph. Nodes are immutable and
// supplied by the route oracle; the orchestrator never creates them.
type Node struct {
	ID     int      `json:"id"`
	Alias  string   `json:"alias,omitempty"`
	TagID  string   `json:"tag_id,omitempty"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Height float64  `json:"height"`
	Type   NodeType `json:"node_type"`
}
