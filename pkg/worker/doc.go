// Package worker runs a module's processing function off the control path.
//
// A Worker owns one goroutine that takes items from a bounded input buffer,
// calls the processing function with a copy of the current parameters and
// hands the result to a single-slot output. Callers interact with it only
// through Submit, Poll, UpdateParams and Stop:
//
//	w, err := worker.New("binarize", process, worker.Params{"threshold": 128}, worker.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	_ = w.Start(ctx)
//	defer w.Close()
//
//	if !w.Submit(frame) {
//	    // queue full under drop_new
//	}
//	if out, ok := w.Poll(); ok {
//	    emit(out)
//	}
//
// # Overflow
//
// When the input buffer is full, drop_new refuses the item, drop_oldest
// evicts the oldest queued item, and block waits up to BlockTimeout.
//
// # Faults
//
// An error or panic from the processing function is logged and counted. The
// item is discarded and the worker keeps serving.
//
// # Shutdown
//
// Stop posts a stop command that the loop observes between items. If the
// loop has not exited when the timeout expires its context is cancelled, the
// worker is marked dead and ErrStopTimeout is returned. Queued items are
// discarded on stop.
package worker
