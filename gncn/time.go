// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import "github.com/emer/emergent/v2/etime"

// gncn.Time contains all the timing state and parameter information for
// running a model
type Time struct {

	// accumulated amount of time the network has been running,
	// in simulation-time (not real world time), in seconds.
	Time float32

	// cycle counter: number of settling iterations on the current
	// input batch, 0..K-1 within one Infer call.
	Cycle int

	// total cycle count, incrementing continuously from whenever
	// it was last reset.
	CycleTot int

	// trial counter: number of input batches processed since reset.
	Trial int

	// amount of time to increment per cycle.
	TimePerCyc float32 `def:"0.001"`

	// current evaluation mode, e.g., Train, Test, etc
	Mode etime.Modes
}

// NewTime returns a new Time struct with default parameters
func NewTime() *Time {
	tm := &Time{}
	tm.Defaults()
	return tm
}

// Defaults sets default values
func (tm *Time) Defaults() {
	tm.TimePerCyc = 0.001
}

// Reset resets the counters all back to zero
func (tm *Time) Reset() {
	tm.Time = 0
	tm.Cycle = 0
	tm.CycleTot = 0
	tm.Trial = 0
	if tm.TimePerCyc == 0 {
		tm.Defaults()
	}
}

// TrialStart starts settling on a new input batch, resetting the
// within-trial cycle counter and incrementing the trial count
func (tm *Time) TrialStart() {
	tm.Cycle = 0
	tm.Trial++
}

// CycleInc increments at the cycle level
func (tm *Time) CycleInc() {
	tm.Cycle++
	tm.CycleTot++
	tm.Time += tm.TimePerCyc
}
