// Package engine is a small in-process pipeline engine. It runs a linear chain
// of steps, each in one or more parallel copies on their own goroutines, and
// implements rowstream.Pipeline so that a rowstream.Bridge can capture the
// rows of any of its steps.
//
// Rows flow from step to step over buffered channels. Every row a copy emits
// is first handed to the copy's row listeners, synchronously and in
// registration order, and only then passed on downstream. A listener error
// fails the copy, which stops the whole pipeline.
//
//	p := engine.New("orders")
//	_ = p.AddStep(&engine.CSVInput{StepName: "read", Path: "orders.csv", Header: true}, 1)
//	_ = p.AddStep(&engine.Dummy{StepName: "tap"}, 1)
//
//	b := rowstream.NewBridge(p, "tap")
//	defer b.Close()
//	if err := b.Run(ctx); err != nil {
//		// ...
//	}
package engine
