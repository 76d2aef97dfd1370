// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"github.com/goki/ki/kit"
)

// LayerTypes enumerates the roles a layer can play in the GNCN hierarchy.
// Class parameter styles automatically key off of these types.
type LayerTypes int32

//go:generate stringer -type=LayerTypes

var KiT_LayerTypes = kit.Enums.AddEnum(LayerTypesN, kit.NotBitFlag, nil)

func (ev LayerTypes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *LayerTypes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// The layer types
const (
	// Input is the observed layer (index 0): its state Z is clamped to the
	// input batch for the entire duration of an Infer call, and its error
	// compares the raw clamped state against the top-down prediction.
	Input LayerTypes = iota

	// Hidden is an intermediate latent layer: its state evolves via the
	// leaky-integrator settling dynamics, and its error compares the
	// activated state phi(Z) against the top-down prediction.
	Hidden

	// Top is the top-most latent layer (index L): it settles like a Hidden
	// layer but receives no top-down prediction, so its error is never
	// recomputed and stays zero.
	Top

	LayerTypesN
)
