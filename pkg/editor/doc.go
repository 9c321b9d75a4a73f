// Package editor drives a scene from user input.
//
// An [Editor] owns one [scene.Scene] and advances it in ticks. Every tick
// runs the same passes in order:
//
//  1. input: queued [Event] values are translated into commands
//  2. commands: queued [Command] values are applied to the scene
//  3. import: the [fileimport.Machine] performs at most one transition
//  4. invariants: [scene.Scene.Update]
//  5. layout: [scene.Scene.Layout]
//  6. render: the optional [Renderer] sees the settled scene
//
// No pass observes a partial update from another. Input handlers never
// touch the scene directly; they enqueue commands, so all mutations of one
// tick are applied before the invariants engine runs.
//
// # Toolbar
//
// The editor is modal. Selecting a [Tool] arms it and the next pointer
// press on the canvas spawns the matching element there: an interface on
// the clicked system, a source or sink in its environment, a flow leaving
// or entering an interface, or a subsystem. Pressing a flow terminal arms
// [ToolFlowTerminalStart] or [ToolFlowTerminalEnd]; the following press
// attaches that end to the element under the pointer, or moves it there
// when the pointer is over empty canvas.
//
// # Errors
//
// A command that fails leaves the scene unchanged. Its
// [errors.UserMessage] becomes the status line and the loop carries on;
// commands naming dead entities are logged at Warn.
package editor
