// Package fileimport drives the import of a document through a host file
// dialog without blocking the editor's tick loop.
//
// A [Machine] moves through five states, one transition per [Machine.Tick]:
//
//	Inactive → Select → Poll → Load → CleanUp → Inactive
//
// [Machine.Start] leaves Inactive. Select opens the dialog on a background
// goroutine; Poll checks for its answer each tick without waiting. A picked
// path moves on to Load, which hands the path to the [Loader]; a dismissed
// dialog goes straight back to Inactive. CleanUp forgets the path.
//
// [Machine.Reset] returns to Inactive from any state and cancels the
// dialog. A dialog answer that arrives after a reset is dropped.
//
// Only one import may be in flight: Start fails with [ErrImportInFlight]
// unless the machine is Inactive. The dialog goroutine never touches the
// scene; only the Loader does, and it runs on the caller's goroutine.
package fileimport
