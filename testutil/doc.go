// Package testutil provides shared test doubles for VisionFlow packages.
//
// # Recorder
//
// Recorder is a module kind that stores every message it receives. It can
// declare outputs and accepted types so it stands in for sources, sinks and
// pass-through nodes:
//
//	reg := component.NewRegistry(component.WithSurface(surface.NewMemory()))
//	require.NoError(t, testutil.RegisterRecorder(reg, "test.sink", component.NoOutputs, component.Text))
//	sink, _ := reg.CreateModule("test.sink", nil, component.Placement{})
//	// ... emit into sink ...
//	assert.Len(t, sink.(*testutil.Recorder).Messages(), 1)
//
// WaitForMessages polls a recorder until a count is reached, for modules that
// deliver from a worker goroutine.
//
// # Frames
//
// Gradient, Solid and Checker build small deterministic images for
// image-processing kinds.
//
// testutil must only be imported from _test.go files.
package testutil
