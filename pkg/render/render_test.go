package render

import (
	"context"
	"strings"
	"testing"

	"github.com/Jtensminger/deep-systems-analysis/pkg/cache"
	"github.com/Jtensminger/deep-systems-analysis/pkg/document"
)

func info(kind document.IdKind, level int, name string, indices ...int) document.Info {
	return document.Info{Id: document.NewId(kind, indices...), Level: level, Name: name}
}

func ref(kind document.IdKind, indices ...int) *document.Id {
	id := document.NewId(kind, indices...)
	return &id
}

// plant is a power inflow through an interface, a waste outflow that only
// names its sink, and one component.
func plant() *document.WorldModel {
	return &document.WorldModel{SystemOfInterest: document.System{
		Info:       info(document.KindSystem, 0, "Plant", 0),
		Complexity: document.Complexity{Kind: document.Complex},
		Environment: document.Environment{
			Info: info(document.KindEnvironment, -1, "", -1),
			Sources: []document.ExternalEntity{{
				Info:         info(document.KindSource, -1, "Grid", -1, 0),
				Ty:           document.Source,
				Interactions: []document.Id{document.NewId(document.KindFlow, -1, 0)},
			}},
			Sinks: []document.ExternalEntity{{
				Info:         info(document.KindSink, -1, "Landfill", -1, 0),
				Ty:           document.Sink,
				Interactions: []document.Id{document.NewId(document.KindFlow, -1, 1)},
			}},
		},
		Boundary: document.Boundary{
			Info: info(document.KindBoundary, 0, "", 0),
			Interfaces: []document.Interface{{
				Info:         info(document.KindInterface, 1, "Intake", 0, 0),
				Ty:           document.Import,
				ReceivesFrom: []document.Id{document.NewId(document.KindSource, -1, 0)},
			}},
		},
		ExternalInteractions: []document.Interaction{
			{
				Info:           info(document.KindFlow, -1, "Power", -1, 0),
				Substance:      document.Substance{Ty: document.Energy},
				Ty:             document.InteractionType{Direction: document.Inflow, Usability: document.Resource},
				ExternalEntity: document.NewId(document.KindSource, -1, 0),
				Interface:      ref(document.KindInterface, 0, 0),
			},
			{
				Info:           info(document.KindFlow, -1, "", -1, 1),
				Substance:      document.Substance{Ty: document.Matter},
				Ty:             document.InteractionType{Direction: document.Outflow, Usability: document.Waste},
				ExternalEntity: document.NewId(document.KindSink, -1, 0),
			},
		},
		Components: []document.System{{
			Info:       info(document.KindSystem, 1, "Boiler", 0, 1),
			Parent:     ref(document.KindSystem, 0),
			Complexity: document.Complexity{Kind: document.Atomic},
			Environment: document.Environment{
				Info: info(document.KindEnvironment, 0, "", -1, 1),
			},
			Boundary: document.Boundary{Info: info(document.KindBoundary, 1, "", 0, 1)},
		}},
	}}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(plant(), Options{})

	for _, want := range []string{
		`digraph "Plant" {`,
		`rankdir=LR;`,
		`subgraph "cluster_System[0]" {`,
		`subgraph "cluster_System[0,1]" {`,
		`"Interface[0,0]" [shape=box`,
		`label="Intake"`,
		`"Source[-1,0]" -> "Interface[0,0]"`,
		`label="Power"`,
		`"anchor_System[0]" -> "Sink[-1,0]" [ltail="cluster_System[0]"`,
		`label="Matter"`,
		`style=dashed`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %s\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "level") {
		t.Error("plain output should not carry detail labels")
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(plant(), Options{Detailed: true, RankDir: "TB"})
	for _, want := range []string{
		`rankdir=TB;`,
		`System[0] level 0`,
		`Atomic`,
		`1 Resource`,
		`Import`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("detailed DOT missing %q", want)
		}
	}
}

func TestToDOTFallsBackToReceivesFrom(t *testing.T) {
	wm := plant()
	wm.SystemOfInterest.ExternalInteractions[0].Interface = nil
	dot := ToDOT(wm, Options{})
	if !strings.Contains(dot, `"Source[-1,0]" -> "Interface[0,0]"`) {
		t.Errorf("edge should resolve through receives_from:\n%s", dot)
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(plant(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	s := string(svg)
	if !strings.Contains(s, "<svg") || !strings.Contains(s, `viewBox="0 0 `) {
		t.Errorf("unexpected SVG header: %.200s", s)
	}
	if !strings.Contains(s, "Intake") {
		t.Error("SVG should contain the interface label")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox = %s", got)
	}
	if plain := []byte("<svg/>"); string(normalizeViewBox(plain)) != "<svg/>" {
		t.Error("SVG without a view box should pass through")
	}
}

func TestRendererCaches(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(fc)
	wm := plant()

	first, hit, err := r.Render(ctx, wm, FormatDOT)
	if err != nil || hit {
		t.Fatalf("first Render = hit %v, err %v", hit, err)
	}
	second, hit, err := r.Render(ctx, wm, FormatDOT)
	if err != nil || !hit {
		t.Fatalf("second Render = hit %v, err %v", hit, err)
	}
	if string(first) != string(second) {
		t.Error("cached bytes differ from rendered bytes")
	}

	wm.SystemOfInterest.Info.Name = "Mill"
	if _, hit, _ := r.Render(ctx, wm, FormatDOT); hit {
		t.Error("an edited document should miss")
	}
	detailed := NewRenderer(fc, WithOptions(Options{Detailed: true}))
	if _, hit, _ := detailed.Render(ctx, wm, FormatDOT); hit {
		t.Error("different options should miss")
	}
}

func TestRendererWithoutCache(t *testing.T) {
	r := NewRenderer(nil)
	for i := 0; i < 2; i++ {
		if _, hit, err := r.Render(context.Background(), plant(), FormatDOT); err != nil || hit {
			t.Fatalf("Render = hit %v, err %v", hit, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"svg", FormatSVG, false},
		{"DOT", FormatDOT, false},
		{"png", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
