package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
)

// Options configures diagram generation.
type Options struct {
	// RankDir is the Graphviz rank direction. Defaults to "LR".
	RankDir string
	// Detailed adds ids, levels, amounts and usability to the labels.
	Detailed bool
}

func (o Options) rankDir() string {
	if o.RankDir == "" {
		return "LR"
	}
	return o.RankDir
}

var substanceColors = map[document.SubstanceType]string{
	document.Matter:  "#6b4f2a",
	document.Energy:  "#d97706",
	document.Message: "#2563eb",
}

var externalColors = map[document.ExternalType]string{
	document.Source: "#d9ead3",
	document.Sink:   "#f4cccc",
}

// ToDOT converts a document to Graphviz DOT source.
func ToDOT(wm *document.WorldModel, opts Options) string {
	w := &dotWriter{opts: opts, peers: peers(wm)}
	soi := &wm.SystemOfInterest

	w.line(0, "digraph %q {", soi.Info.Name)
	w.line(1, "rankdir=%s;", opts.rankDir())
	w.line(1, "compound=true;")
	w.line(1, "bgcolor=\"transparent\";")
	w.line(1, "node [fontsize=12, fontname=\"Helvetica\"];")
	w.line(1, "edge [fontsize=10, fontname=\"Helvetica\"];")
	w.buf.WriteString("\n")

	w.environment(soi, 1)
	w.system(soi, 1)
	w.buf.WriteString("\n")
	wm.Walk(func(s *document.System, _ int) { w.interactions(s) })

	w.line(0, "}")
	return w.buf.String()
}

type dotWriter struct {
	buf   bytes.Buffer
	opts  Options
	peers map[string]document.Id
}

func (w *dotWriter) line(indent int, format string, args ...any) {
	w.buf.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

func (w *dotWriter) system(s *document.System, indent int) {
	w.line(indent, "subgraph %q {", clusterName(s.Info.Id))
	w.line(indent+1, "label=%q;", w.label(s.Info, s.Complexity.Kind))
	w.line(indent+1, "style=\"rounded\";")
	if s.Parent == nil {
		w.line(indent+1, "penwidth=2;")
	}
	w.line(indent+1, "%q [shape=point, style=invis];", anchorName(s.Info.Id))
	for _, iface := range s.Boundary.Interfaces {
		w.line(indent+1, "%q [shape=box, height=0.3, width=0.3, label=%q];", iface.Info.Id.String(), w.interfaceLabel(iface))
	}
	for i := range s.Components {
		c := &s.Components[i]
		w.environment(c, indent+1)
		w.system(c, indent+1)
	}
	w.line(indent, "}")
}

// environment writes the sources and sinks of s. They belong to the frame
// enclosing s, so callers emit them next to the cluster of s.
func (w *dotWriter) environment(s *document.System, indent int) {
	for _, list := range [][]document.ExternalEntity{s.Environment.Sources, s.Environment.Sinks} {
		for _, x := range list {
			w.line(indent, "%q [shape=box, style=\"filled\", fillcolor=%q, label=%q];",
				x.Info.Id.String(), externalColors[x.Ty], w.label(x.Info, ""))
		}
	}
}

func (w *dotWriter) interactions(s *document.System) {
	for _, in := range s.ExternalInteractions {
		end := anchorName(s.Info.Id)
		clip := "lhead"
		if in.Ty.Direction == document.Outflow {
			clip = "ltail"
		}
		var attrs []string
		if iface, ok := w.interfaceOf(in); ok {
			end = iface.String()
		} else {
			attrs = append(attrs, fmt.Sprintf("%s=%q", clip, clusterName(s.Info.Id)))
		}
		if in.Ty.Direction == document.Outflow {
			w.edge(end, in.ExternalEntity.String(), in, attrs)
		} else {
			w.edge(in.ExternalEntity.String(), end, in, attrs)
		}
	}
	for _, in := range s.InternalInteractions {
		if in.Interface == nil {
			continue
		}
		w.edge(in.Interface.String(), in.ExternalEntity.String(), in, nil)
	}
}

func (w *dotWriter) edge(from, to string, in document.Interaction, attrs []string) {
	attrs = append(attrs,
		fmt.Sprintf("color=%q", substanceColors[in.Substance.Ty]),
		fmt.Sprintf("label=%q", w.interactionLabel(in)),
	)
	if u := in.Ty.Usability; u == document.Waste || u == document.Disruption {
		attrs = append(attrs, "style=dashed")
	}
	w.line(1, "%q -> %q [%s];", from, to, strings.Join(attrs, ", "))
}

// interfaceOf resolves the interface end of an external interaction.
func (w *dotWriter) interfaceOf(in document.Interaction) (document.Id, bool) {
	if in.Interface != nil {
		return *in.Interface, true
	}
	id, ok := w.peers[peerKey(in.Ty.Direction, in.ExternalEntity)]
	return id, ok
}

func (w *dotWriter) label(info document.Info, kind document.ComplexityKind) string {
	name := info.Name
	if name == "" {
		name = info.Id.String()
	}
	if !w.opts.Detailed {
		return name
	}
	parts := []string{name, fmt.Sprintf("%s level %d", info.Id, info.Level)}
	if kind != "" {
		parts = append(parts, string(kind))
	}
	return strings.Join(parts, "\n")
}

func (w *dotWriter) interfaceLabel(iface document.Interface) string {
	label := iface.Info.Name
	if label == "" {
		label = iface.Protocol
	}
	if w.opts.Detailed || label == "" {
		if label != "" {
			label += "\n"
		}
		label += string(iface.Ty)
	}
	return label
}

func (w *dotWriter) interactionLabel(in document.Interaction) string {
	label := in.Info.Name
	if label == "" {
		label = string(in.Substance.Ty)
		if in.Substance.SubType != nil && *in.Substance.SubType != "" {
			label += ": " + *in.Substance.SubType
		}
	}
	if !w.opts.Detailed {
		return label
	}
	amount := 1.0
	if in.Amount != nil {
		amount = *in.Amount
	}
	return fmt.Sprintf("%s\n%g %s", label, amount, in.Ty.Usability)
}

// peers maps "<direction>:<external id>" to the interface listing that
// external entity in its receives_from or exports_to.
func peers(wm *document.WorldModel) map[string]document.Id {
	out := map[string]document.Id{}
	wm.Walk(func(s *document.System, _ int) {
		for _, iface := range s.Boundary.Interfaces {
			for _, id := range iface.ReceivesFrom {
				out[peerKey(document.Inflow, id)] = iface.Info.Id
			}
			for _, id := range iface.ExportsTo {
				out[peerKey(document.Outflow, id)] = iface.Info.Id
			}
		}
	})
	return out
}

func peerKey(dir document.Direction, id document.Id) string {
	return string(dir) + ":" + id.Key()
}

func clusterName(id document.Id) string { return "cluster_" + id.String() }

func anchorName(id document.Id) string { return "anchor_" + id.String() }
