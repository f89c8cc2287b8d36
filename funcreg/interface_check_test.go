package funcreg

import "github.com/schedlab/kairos/sched"

// This file verifies that Table implements the scheduler's Invoker interface.
// If this compiles, the interface is correctly implemented.

var _ sched.Invoker = (*Table)(nil)
