// Package flowgraph provides flow graph analysis and validation for module connections.
package flowgraph

import (
	"fmt"
	"slices"

	"github.com/c360/visionflow/component"
)

// FlowGraph is a read model of the live connection graph. It is built once
// and does not follow later changes to the modules.
type FlowGraph struct {
	nodes map[string]*ModuleNode // module id -> node
	order []string               // insertion order of node ids
	edges []FlowEdge
}

// ModuleNode represents a module in the flow graph
type ModuleNode struct {
	ID          string
	Kind        string
	Label       string
	OutputPorts component.Outputs
	Accepts     []component.PortType
}

// FlowEdge represents one connection from an output port to a target module
type FlowEdge struct {
	From     ModulePortRef      `json:"from"`
	To       string             `json:"to"`
	DataType component.PortType `json:"data_type"`
}

// ModulePortRef references an output port on a module
type ModulePortRef struct {
	ModuleID string `json:"module_id"`
	PortName string `json:"port_name"`
}

// EdgeIssue describes an edge whose type the target does not accept
type EdgeIssue struct {
	Edge     FlowEdge             `json:"edge"`
	Accepted []component.PortType `json:"accepted"`
	Issue    string               `json:"issue"`
}

// OrphanedPort is an output port with no targets
type OrphanedPort struct {
	ModuleID string             `json:"module_id"`
	PortName string             `json:"port_name"`
	DataType component.PortType `json:"data_type"`
}

// FlowAnalysisResult contains the results of connectivity analysis
type FlowAnalysisResult struct {
	ConnectedComponents [][]string     `json:"connected_components"`
	DisconnectedNodes   []string       `json:"disconnected_nodes"`
	OrphanedPorts       []OrphanedPort `json:"orphaned_ports"`
	IncompatibleEdges   []EdgeIssue    `json:"incompatible_edges"`
	Cycles              [][]string     `json:"cycles"`
	ValidationStatus    string         `json:"validation_status"`
}

// NewFlowGraph creates a new empty FlowGraph
func NewFlowGraph() *FlowGraph {
	return &FlowGraph{
		nodes: make(map[string]*ModuleNode),
		edges: make([]FlowEdge, 0),
	}
}

// FromRegistry builds the graph of every live module in reg
func FromRegistry(reg *component.Registry) *FlowGraph {
	return FromModules(reg.Modules())
}

// FromModules builds the graph of modules. Edges to modules outside the set
// are kept; their targets appear as edges without a node.
func FromModules(modules []component.Module) *FlowGraph {
	g := NewFlowGraph()
	for _, m := range modules {
		// ids are unique among live modules, duplicates only come from callers
		_ = g.AddModuleNode(m)
	}
	for _, m := range modules {
		conns := m.Connections()
		for _, port := range m.OutputPorts() {
			for _, target := range conns[port.Name] {
				g.AddEdge(FlowEdge{
					From:     ModulePortRef{ModuleID: m.ID(), PortName: port.Name},
					To:       target.ID(),
					DataType: port.Type,
				})
			}
		}
	}
	return g
}

// AddModuleNode adds a module as a node in the graph
func (g *FlowGraph) AddModuleNode(m component.Module) error {
	if m == nil {
		return fmt.Errorf("module cannot be nil")
	}
	if _, exists := g.nodes[m.ID()]; exists {
		return fmt.Errorf("module %s already exists in graph", m.ID())
	}
	g.nodes[m.ID()] = &ModuleNode{
		ID:          m.ID(),
		Kind:        m.Kind(),
		Label:       m.Label(),
		OutputPorts: m.OutputPorts(),
		Accepts:     m.AcceptedTypes(),
	}
	g.order = append(g.order, m.ID())
	return nil
}

// AddEdge appends an edge
func (g *FlowGraph) AddEdge(e FlowEdge) {
	g.edges = append(g.edges, e)
}

// GetNodes returns a copy of the nodes keyed by module id
func (g *FlowGraph) GetNodes() map[string]*ModuleNode {
	result := make(map[string]*ModuleNode, len(g.nodes))
	for k, v := range g.nodes {
		nodeCopy := *v
		nodeCopy.OutputPorts = slices.Clone(v.OutputPorts)
		nodeCopy.Accepts = slices.Clone(v.Accepts)
		result[k] = &nodeCopy
	}
	return result
}

// Edges returns the edges in source order then connection order
func (g *FlowGraph) Edges() []FlowEdge {
	return slices.Clone(g.edges)
}

// Validate re-checks every edge against its target's accepted types
func (g *FlowGraph) Validate() []EdgeIssue {
	var issues []EdgeIssue
	for _, e := range g.edges {
		target, ok := g.nodes[e.To]
		if !ok {
			issues = append(issues, EdgeIssue{Edge: e, Issue: "unknown_target"})
			continue
		}
		if !component.Accepts(target.Accepts, e.DataType) {
			issues = append(issues, EdgeIssue{Edge: e, Accepted: slices.Clone(target.Accepts), Issue: "incompatible_type"})
		}
	}
	return issues
}

// DetectCycles returns every group of modules that feed back into
// themselves. Synchronous emission around such a loop never terminates
// unless a module breaks it.
func (g *FlowGraph) DetectCycles() [][]string {
	adj := g.adjacency(false)

	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string
	var cycles [][]string

	var strongConnect func(v string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] != indices[v] {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || slices.Contains(adj[v], v) {
			slices.Reverse(scc)
			cycles = append(cycles, scc)
		}
	}

	for _, id := range g.order {
		if _, seen := indices[id]; !seen {
			strongConnect(id)
		}
	}
	return cycles
}

// DisconnectedModules returns ids of modules with no edge in or out
func (g *FlowGraph) DisconnectedModules() []string {
	touched := make(map[string]bool)
	for _, e := range g.edges {
		touched[e.From.ModuleID] = true
		touched[e.To] = true
	}
	var out []string
	for _, id := range g.order {
		if !touched[id] {
			out = append(out, id)
		}
	}
	return out
}

// AnalyzeConnectivity performs graph connectivity analysis
func (g *FlowGraph) AnalyzeConnectivity() *FlowAnalysisResult {
	result := &FlowAnalysisResult{
		ConnectedComponents: g.findConnectedComponents(),
		DisconnectedNodes:   g.DisconnectedModules(),
		OrphanedPorts:       g.findOrphanedPorts(),
		IncompatibleEdges:   g.Validate(),
		Cycles:              g.DetectCycles(),
		ValidationStatus:    "healthy",
	}

	switch {
	case len(result.IncompatibleEdges) > 0 || len(result.Cycles) > 0:
		result.ValidationStatus = "errors"
	case len(result.DisconnectedNodes) > 0:
		result.ValidationStatus = "warnings"
	}
	return result
}

func (g *FlowGraph) adjacency(undirected bool) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range g.edges {
		from, to := e.From.ModuleID, e.To
		if !slices.Contains(adj[from], to) {
			adj[from] = append(adj[from], to)
		}
		if undirected && !slices.Contains(adj[to], from) {
			adj[to] = append(adj[to], from)
		}
	}
	return adj
}

// findConnectedComponents uses DFS to find connected components in the graph
func (g *FlowGraph) findConnectedComponents() [][]string {
	visited := make(map[string]bool)
	adj := g.adjacency(true)

	var components [][]string
	for _, id := range g.order {
		if !visited[id] {
			var cluster []string
			g.dfs(id, adj, visited, &cluster)
			components = append(components, cluster)
		}
	}
	return components
}

func (g *FlowGraph) dfs(node string, adj map[string][]string, visited map[string]bool, cluster *[]string) {
	visited[node] = true
	*cluster = append(*cluster, node)

	for _, neighbor := range adj[node] {
		if !visited[neighbor] {
			g.dfs(neighbor, adj, visited, cluster)
		}
	}
}

// findOrphanedPorts lists declared outputs without targets
func (g *FlowGraph) findOrphanedPorts() []OrphanedPort {
	connected := make(map[ModulePortRef]bool)
	for _, e := range g.edges {
		connected[e.From] = true
	}

	var orphaned []OrphanedPort
	for _, id := range g.order {
		for _, port := range g.nodes[id].OutputPorts {
			if !connected[ModulePortRef{ModuleID: id, PortName: port.Name}] {
				orphaned = append(orphaned, OrphanedPort{ModuleID: id, PortName: port.Name, DataType: port.Type})
			}
		}
	}
	return orphaned
}
