// Package render draws documents as Graphviz diagrams.
//
// # Overview
//
// Every system becomes a cluster labelled with its name. Its interfaces are
// small boxes inside the cluster, its components are nested clusters, and
// the sources and sinks of its environment sit just outside it, in the
// cluster of the enclosing system. Interactions become edges between those
// nodes, colored by substance and dashed when the flow is waste or a
// disruption.
//
//	dot := render.ToDOT(wm, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// # Caching
//
// [Renderer] wraps the two steps with a [cache.Cache]. Keys hash the
// canonical document bytes together with the format and options, scoped by
// the build version, so an edited document or a new release never reuses a
// stale artifact.
//
//	r := render.NewRenderer(cache.Instrumented(fc, "render"))
//	svg, hit, err := r.Render(ctx, wm, render.FormatSVG)
//
// # Dependencies
//
// SVG output uses [github.com/goccy/go-graphviz], which runs Graphviz
// in-process; no external binaries are needed.
package render
