// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/emer/emergent/v2/erand"
	"github.com/goki/ki/kit"
)

///////////////////////////////////////////////////////////////////////
//  act.go contains the activation functions and the settling / weight
//  init params for gncn

// ActFuncs are the supported pointwise activation functions.  This is a
// closed set: the three activation slots (Phi, GHid, GOut) must each be
// one of these, resolved at construction -- an unknown name is a
// configuration error, not a runtime fallback.
type ActFuncs int32

//go:generate stringer -type=ActFuncs

var KiT_ActFuncs = kit.Enums.AddEnum(ActFuncsN, kit.NotBitFlag, nil)

func (ev ActFuncs) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *ActFuncs) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

// The activation functions
const (
	// ReLU is the rectified-linear function max(x, 0), the default for
	// the latent activation phi and the hidden prediction function.
	ReLU ActFuncs = iota

	// Sigmoid is the logistic function 1 / (1 + exp(-x)), the default
	// output prediction function, squashing predictions of the observed
	// layer into (0, 1).
	Sigmoid

	ActFuncsN
)

// ActFuncByName returns the activation function with the given
// (case-insensitive) name, or an error if the name is not in the
// supported set.
func ActFuncByName(name string) (ActFuncs, error) {
	switch strings.ToLower(name) {
	case "relu":
		return ReLU, nil
	case "sigmoid":
		return Sigmoid, nil
	}
	return ActFuncsN, fmt.Errorf("gncn.ActFuncByName: activation function: %v not supported", name)
}

// SetString sets the activation function from its name, so string-based
// parameter application (params.Sheet) can resolve enum values.
func (ev *ActFuncs) SetString(s string) error {
	fn, err := ActFuncByName(s)
	if err != nil {
		return err
	}
	*ev = fn
	return nil
}

// Eval computes the activation function for a single value
func (af ActFuncs) Eval(x float32) float32 {
	switch af {
	case ReLU:
		if x < 0 {
			return 0
		}
		return x
	case Sigmoid:
		return 1 / (1 + math32.Exp(-x))
	}
	return x
}

// Apply computes the activation function for each element of src into dst.
// dst and src must be the same length (dst == src for in-place).
func (af ActFuncs) Apply(dst, src []float32) {
	switch af {
	case ReLU:
		for i, x := range src {
			if x < 0 {
				dst[i] = 0
			} else {
				dst[i] = x
			}
		}
	case Sigmoid:
		for i, x := range src {
			dst[i] = 1 / (1 + math32.Exp(-x))
		}
	}
}

// Valid returns an error if the function is not one of the supported set
func (af ActFuncs) Valid() error {
	if af < 0 || af >= ActFuncsN {
		return fmt.Errorf("gncn.ActFuncs: %d is not a supported activation function", af)
	}
	return nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  ActParams

// ActParams selects the activation functions for one layer: Phi applied
// to the layer's own latent state wherever that state is read (state
// error, outgoing prediction, gradient), and G applied to the incoming
// top-down prediction of this layer.
type ActParams struct {
	Phi ActFuncs `def:"ReLU" desc:"latent activation function applied pointwise to this layer's state Z -- shared by the error recompute, the outgoing prediction, and the local gradient"`
	G   ActFuncs `def:"ReLU,Sigmoid" desc:"prediction function applied to the linear top-down prediction of this layer -- Sigmoid for the observed input layer (squashing into the data range), ReLU for hidden layers"`
}

func (ac *ActParams) Defaults() {
	ac.Phi = ReLU
	ac.G = ReLU
}

func (ac *ActParams) Update() {
}

// Validate returns an error if either activation slot is outside the
// supported set -- checked at Build, never silently defaulted.
func (ac *ActParams) Validate() error {
	if err := ac.Phi.Valid(); err != nil {
		return err
	}
	return ac.G.Valid()
}

//////////////////////////////////////////////////////////////////////////////////////
//  SettleParams

// SettleParams are the leaky-integrator settling dynamics parameters,
// shared across all layers of a network.
type SettleParams struct {
	Cycles   int     `def:"50" min:"0" desc:"number of settling cycles K to run per Infer call -- always runs exactly this many, with no convergence test"`
	Beta     float32 `def:"0.1" min:"0" desc:"integration step size scaling the state update on each settling cycle"`
	Gamma    float32 `def:"0.001" min:"0" desc:"leak coefficient decaying latent state toward zero on each settling cycle"`
	Momentum float32 `def:"0" desc:"momentum-like factor present for configuration compatibility only -- any non-zero value is a configuration error, as the settling dynamics do not implement momentum"`
}

func (sp *SettleParams) Defaults() {
	sp.Cycles = 50
	sp.Beta = 0.1
	sp.Gamma = 0.001
	sp.Momentum = 0
}

func (sp *SettleParams) Update() {
}

// Validate returns an error for unsupported hyperparameter combinations.
func (sp *SettleParams) Validate() error {
	if sp.Momentum != 0 {
		return fmt.Errorf("gncn.SettleParams: Momentum = %g is not supported -- only 0", sp.Momentum)
	}
	if sp.Cycles < 0 {
		return fmt.Errorf("gncn.SettleParams: Cycles = %d must be >= 0", sp.Cycles)
	}
	return nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  WtInitParams

// WtInitParams are weight initialization parameters -- the random
// distribution that Gen and Err pathways are drawn from, independently
// of each other (Err is never initialized as the transpose of Gen).
type WtInitParams struct {
	erand.RndParams
}

func (wp *WtInitParams) Defaults() {
	wp.Mean = 0
	wp.Var = 0.05
	wp.Dist = erand.Gaussian
}
