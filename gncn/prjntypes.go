// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"github.com/goki/ki/kit"
)

// PrjnTypes enumerates the two kinds of pathways in a GNCN network.
// Class parameter styles automatically key off of these types.
type PrjnTypes int32

//go:generate stringer -type=PrjnTypes

var KiT_PrjnTypes = kit.Enums.AddEnum(PrjnTypesN, kit.NotBitFlag, nil)

func (ev PrjnTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *PrjnTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// The pathway types
const (
	// Gen is a top-down generative pathway W[l], shape [upper, lower],
	// predicting the lower layer's activity from the upper layer's
	// activated state.
	Gen PrjnTypes = iota

	// Err is a bottom-up error pathway E[l], shape [lower, upper], routing
	// the lower layer's prediction error into the upper layer's state
	// update.  Its gradient is the transpose of the reciprocal Gen
	// pathway's gradient -- never of its weight values.
	Err

	PrjnTypesN
)
