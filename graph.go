package vivarium

import (
	"fmt"
	"slices"
	"strings"
)

// GraphNode is one registration in a phase's dependency graph.
type GraphNode struct {
	ID    string       `json:"id" yaml:"id"`
	Type  ResourceType `json:"type" yaml:"type"`
	Owner string       `json:"owner,omitempty" yaml:"owner,omitempty"`
}

// GraphEdge means "From must be produced before To".
type GraphEdge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// MissingDependency is a dependency key no registration produces.
type MissingDependency struct {
	Key      string `json:"key" yaml:"key"`
	NeededBy string `json:"neededBy" yaml:"needed_by"`
}

type Graph struct {
	Phase     string              `json:"phase" yaml:"phase"`
	Nodes     []GraphNode         `json:"nodes" yaml:"nodes"`
	Edges     []GraphEdge         `json:"edges" yaml:"edges"`
	Missing   []MissingDependency `json:"missing,omitempty" yaml:"missing,omitempty"`
	TopoOrder []string            `json:"topoOrder" yaml:"topo_order"`
}

func (g Graph) clone() Graph {
	return Graph{
		Phase:     g.Phase,
		Nodes:     slices.Clone(g.Nodes),
		Edges:     slices.Clone(g.Edges),
		Missing:   slices.Clone(g.Missing),
		TopoOrder: slices.Clone(g.TopoOrder),
	}
}


// nodeStyle is how one resource type is drawn. Columns are boxes so the
// table layout stands out from computed values and streams.
type nodeStyle struct {
	shape string // Graphviz shape
	fill  string
	open  string // Mermaid shape delimiters
	close string
}

var nodeStyles = map[ResourceType]nodeStyle{
	ResourceValue:         {shape: "ellipse", fill: "#d9ead3", open: "(", close: ")"},
	ResourceValueSource:   {shape: "ellipse", fill: "#d9ead3", open: "(", close: ")"},
	ResourceValueModifier: {shape: "hexagon", fill: "#fff2cc", open: "{{", close: "}}"},
	ResourceColumn:        {shape: "box", fill: "#cfe2f3", open: "[", close: "]"},
	ResourceStream:        {shape: "parallelogram", fill: "#ead1dc", open: "[/", close: "/]"},
}

func styleOf(t ResourceType) nodeStyle {
	if st, ok := nodeStyles[t]; ok {
		return st
	}
	return nodeStyle{shape: "box", open: "[", close: "]"}
}

const missingNote = "not provided"

// exportLayout assigns aliases: nN for producers, mN for one placeholder per
// missing key, in first-seen order.
type exportLayout struct {
	nodes   map[string]string
	missing map[string]string
	keys    []string
}

func (g Graph) layout() exportLayout {
	l := exportLayout{
		nodes:   make(map[string]string, len(g.Nodes)),
		missing: make(map[string]string),
	}
	for i, n := range g.Nodes {
		l.nodes[n.ID] = fmt.Sprintf("n%d", i)
	}
	for _, m := range g.Missing {
		if _, ok := l.missing[m.Key]; ok {
			continue
		}
		l.missing[m.Key] = fmt.Sprintf("m%d", len(l.keys))
		l.keys = append(l.keys, m.Key)
	}
	return l
}

// edges calls fn for every drawable edge: dependencies first, then links
// from missing placeholders to the producers that need them.
func (g Graph) edges(l exportLayout, fn func(from, to string, missing bool)) {
	for _, e := range g.Edges {
		from, okFrom := l.nodes[e.From]
		to, okTo := l.nodes[e.To]
		if okFrom && okTo {
			fn(from, to, false)
		}
	}
	for _, m := range g.Missing {
		if to, ok := l.nodes[m.NeededBy]; ok {
			fn(l.missing[m.Key], to, true)
		}
	}
}

// DOT exports Graphviz DOT text. Producers are shaped and filled by resource
// type; dependencies nobody provides are dashed placeholder nodes.
func (g Graph) DOT() string {
	l := g.layout()
	var b strings.Builder
	b.WriteString("digraph vivarium {\n  rankdir=LR;\n")
	if g.Phase != "" {
		fmt.Fprintf(&b, "  label=\"%s\";\n", escapeDOT(g.Phase))
	}
	b.WriteString("  node [style=filled];\n")

	for _, n := range g.Nodes {
		st := styleOf(n.Type)
		fmt.Fprintf(&b, "  %s [label=%s, shape=%s", l.nodes[n.ID], dotLabel(n.ID, n.Owner), st.shape)
		if st.fill != "" {
			fmt.Fprintf(&b, ", fillcolor=\"%s\"", st.fill)
		}
		b.WriteString("];\n")
	}
	for _, key := range l.keys {
		fmt.Fprintf(&b, "  %s [label=%s, shape=box, style=dashed];\n", l.missing[key], dotLabel(key, missingNote))
	}

	g.edges(l, func(from, to string, missing bool) {
		if missing {
			fmt.Fprintf(&b, "  %s -> %s [style=dashed];\n", from, to)
			return
		}
		fmt.Fprintf(&b, "  %s -> %s;\n", from, to)
	})
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports Mermaid flowchart text. Each resource type gets its own
// node shape and class; missing dependencies are dashed placeholders.
func (g Graph) Mermaid() string {
	l := g.layout()
	var b strings.Builder
	b.WriteString("graph TD\n")

	byType := make(map[ResourceType][]string)
	for _, n := range g.Nodes {
		st := styleOf(n.Type)
		alias := l.nodes[n.ID]
		fmt.Fprintf(&b, "    %s%s%s%s\n", alias, st.open, mermaidLabel(n.ID, n.Owner), st.close)
		byType[n.Type] = append(byType[n.Type], alias)
	}
	for _, key := range l.keys {
		fmt.Fprintf(&b, "    %s[%s]\n", l.missing[key], mermaidLabel(key, missingNote))
	}

	g.edges(l, func(from, to string, missing bool) {
		arrow := "-->"
		if missing {
			arrow = "-.->"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", from, arrow, to)
	})

	for _, t := range resourceTypes {
		aliases := byType[t]
		if len(aliases) == 0 {
			continue
		}
		fmt.Fprintf(&b, "    classDef %s fill:%s\n", t, nodeStyles[t].fill)
		fmt.Fprintf(&b, "    class %s %s\n", strings.Join(aliases, ","), t)
	}
	if len(l.keys) > 0 {
		placeholders := make([]string, len(l.keys))
		for i, key := range l.keys {
			placeholders[i] = l.missing[key]
		}
		b.WriteString("    classDef missing stroke-dasharray:5 5\n")
		fmt.Fprintf(&b, "    class %s missing\n", strings.Join(placeholders, ","))
	}
	return b.String()
}

// dotLabel renders a quoted two-line DOT label; \n is the DOT line break.
func dotLabel(id, note string) string {
	label := escapeDOT(id)
	if note != "" {
		label += `\n(` + escapeDOT(note) + ")"
	}
	return `"` + label + `"`
}

func mermaidLabel(id, note string) string {
	label := escapeMermaid(id)
	if note != "" {
		label += "<br/>(" + escapeMermaid(note) + ")"
	}
	return `"` + label + `"`
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
