package types

// NodeType represents the type of a node in a result graph.
type NodeType string

const (
	// NodeTypeWork is a manga work, either a single volume or a series.
	NodeTypeWork NodeType = "work"
	// NodeTypeAuthor is a creator credited on a work.
	NodeTypeAuthor NodeType = "author"
	// NodeTypeMagazine is a serialization venue.
	NodeTypeMagazine NodeType = "magazine"
	// NodeTypePublisher is a publishing house.
	NodeTypePublisher NodeType = "publisher"
)

// IsValid reports whether t is one of the known node types.
func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeWork, NodeTypeAuthor, NodeTypeMagazine, NodeTypePublisher:
		return true
	}
	return false
}

// EdgeType represents the type of an edge in a result graph.
type EdgeType string

const (
	// EdgeTypeCreated links an author to a work.
	EdgeTypeCreated EdgeType = "created"
	// EdgeTypePublished links a magazine, or a publisher when no magazine is
	// known, to a work.
	EdgeTypePublished EdgeType = "published"
	// EdgeTypePublishedBy links a magazine to its publisher.
	EdgeTypePublishedBy EdgeType = "published_by"
)

// IsValid reports whether t is one of the known edge types.
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeTypeCreated, EdgeTypePublished, EdgeTypePublishedBy:
		return true
	}
	return false
}

// GraphNode is a node of the result graph.
type GraphNode struct {
	ID             string         `json:"id" yaml:"id"`
	Label          string         `json:"label" yaml:"label"`
	Type           NodeType       `json:"type" yaml:"type"`
	Properties     map[string]any `json:"properties" yaml:"properties"`
	RelevanceScore *float64       `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`
}

// Score returns the node's relevance score, or 0 when it has none.
func (n *GraphNode) Score() float64 {
	if n.RelevanceScore == nil {
		return 0
	}
	return *n.RelevanceScore
}

// GraphEdge is a typed edge of the result graph.
type GraphEdge struct {
	ID         string         `json:"id" yaml:"id"`
	Source     string         `json:"source" yaml:"source"`
	Target     string         `json:"target" yaml:"target"`
	Type       EdgeType       `json:"type" yaml:"type"`
	Properties map[string]any `json:"properties" yaml:"properties"`
}

// EdgeKey identifies an edge for deduplication.
type EdgeKey struct {
	Source string
	Target string
	Type   EdgeType
}

// Key returns the deduplication key of the edge.
func (e *GraphEdge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Type: e.Type}
}

// Graph is the property graph returned to callers.
type Graph struct {
	Nodes []GraphNode `json:"nodes" yaml:"nodes"`
	Edges []GraphEdge `json:"edges" yaml:"edges"`
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *GraphNode {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// NodesOfType returns the nodes of type t in graph order.
func (g *Graph) NodesOfType(t NodeType) []GraphNode {
	var out []GraphNode
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}
