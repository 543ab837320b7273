// Package graph shapes relationship triples into the node/edge payload drawn by
// the network view.
package graph

import "strings"

// Node types.
const (
	TypePerson = "Person"
	TypeDomain = "Domain"
	TypeTitle  = "Title"
)

// Relationship kinds used as edge labels.
const (
	KindExpertDirect   = "EXPERT_IN_DIRECT"
	KindExpertIndirect = "EXPERT_IN_INDIRECT"
	KindExpert         = "EXPERT_IN"
	KindCollaborated   = "COLLABORATED_WITH"
	KindAuthored       = "AUTHORED"
	KindBelongsTo      = "BELONGS_TO"
)

// Entity is one end of a triple.
type Entity struct {
	ID         string
	Name       string
	Type       string
	Count      int
	Properties map[string]any
}

// key is the node identity: the entity id, or type and name when the
// repository did not supply one.
func (e Entity) key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Type + ":" + e.Name
}

// Triple relates two entities.
type Triple struct {
	Source Entity
	Target Entity
	Kind   string

	Count          int
	Titles         []string
	RelationshipID string
}

// Node is a vertex of the rendered graph.
type Node struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Count      int            `json:"count,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge is a directed link of the rendered graph.
type Edge struct {
	ID              string   `json:"id"`
	Source          string   `json:"source"`
	Target          string   `json:"target"`
	Label           string   `json:"label"`
	Count           int      `json:"count,omitempty"`
	Titles          []string `json:"titles,omitempty"`
	CollaborationID string   `json:"collaborationId,omitempty"`
}

// Graph is the payload returned by every graph endpoint.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type edgeKey struct {
	source, target, kind string
}

// Builder accumulates triples. Nodes are deduplicated by entity identity and
// edges by (source, target, kind); both keep first-seen order.
// A Builder is not safe for concurrent use.
type Builder struct {
	nodes     []Node
	edges     []Edge
	nodeIndex map[string]int
	edgeIndex map[edgeKey]struct{}
	dropped   int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[edgeKey]struct{}),
	}
}

// AddNode adds a standalone entity. It reports false when the entity has no
// display name.
func (b *Builder) AddNode(e Entity) bool {
	if strings.TrimSpace(e.Name) == "" {
		b.dropped++
		return false
	}
	b.node(e)
	return true
}

// Add adds a triple. A triple whose source or target has no display name is
// dropped and Add reports false.
func (b *Builder) Add(t Triple) bool {
	if strings.TrimSpace(t.Source.Name) == "" || strings.TrimSpace(t.Target.Name) == "" {
		b.dropped++
		return false
	}
	src := b.node(t.Source)
	dst := b.node(t.Target)

	k := edgeKey{source: src, target: dst, kind: t.Kind}
	if _, ok := b.edgeIndex[k]; ok {
		return true
	}
	b.edgeIndex[k] = struct{}{}

	e := Edge{
		ID:     src + "-" + dst,
		Source: src,
		Target: dst,
		Label:  t.Kind,
		Count:  t.Count,
	}
	if t.Kind != "" {
		e.ID += "-" + t.Kind
	}
	if len(t.Titles) > 0 {
		e.Titles = append([]string(nil), t.Titles...)
	}
	if t.Kind == KindCollaborated {
		e.CollaborationID = t.RelationshipID
	}
	b.edges = append(b.edges, e)
	return true
}

func (b *Builder) node(e Entity) string {
	id := e.key()
	if _, ok := b.nodeIndex[id]; ok {
		return id
	}
	b.nodeIndex[id] = len(b.nodes)
	n := Node{
		ID:    id,
		Label: e.Name,
		Type:  e.Type,
		Count: e.Count,
	}
	if len(e.Properties) > 0 {
		n.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			n.Properties[k] = v
		}
	}
	b.nodes = append(b.nodes, n)
	return id
}

// Dropped returns how many triples or nodes were rejected for a missing name.
func (b *Builder) Dropped() int { return b.dropped }

// Graph returns the accumulated graph. Empty graphs have non-nil slices so
// they encode as [] rather than null.
func (b *Builder) Graph() Graph {
	g := Graph{
		Nodes: make([]Node, len(b.nodes)),
		Edges: make([]Edge, len(b.edges)),
	}
	copy(g.Nodes, b.nodes)
	copy(g.Edges, b.edges)
	return g
}

// Build adds every triple to a fresh builder. It returns the graph and the
// number of triples dropped for a missing name.
func Build(triples []Triple) (Graph, int) {
	b := NewBuilder()
	for _, t := range triples {
		b.Add(t)
	}
	return b.Graph(), b.Dropped()
}
