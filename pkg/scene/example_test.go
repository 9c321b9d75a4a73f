package scene_test

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/scene"
)

func ExampleScene_SpawnInterfaceSubsystem() {
	sc := scene.New("Bakery", scene.WithLogger(log.New(io.Discard)))

	flow, _ := sc.SpawnFlow(scene.FlowSpec{SubstanceType: scene.Matter, Usability: scene.Resource, Amount: 2.5})
	door, _ := sc.SpawnInterface(scene.InterfaceSpec{System: sc.Root(), Angle: math.Pi, Type: scene.Import, Flow: flow})
	_, _ = sc.SpawnExternalEntity(scene.ExternalEntitySpec{System: sc.Root(), Type: scene.Source, Info: scene.Info{Name: "Mill"}, Flow: flow})
	intake, _ := sc.SpawnInterfaceSubsystem(scene.InterfaceSubsystemSpec{Interface: door, Info: scene.Info{Name: "Intake"}})
	sc.Update()

	agg, _ := sc.Aggregate(intake)
	fmt.Println("Inflow:", agg.TotalInflow)
	fmt.Println("Substance:", agg.SubstanceType)
	fmt.Println("Incomplete:", sc.Incomplete(flow))
	fmt.Println("Check:", sc.Check())
	// Output:
	// Inflow: 2.5
	// Substance: Matter
	// Incomplete: false
	// Check: <nil>
}
