// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package optim provides the external minimizing optimizers that consume the
gradient slots written by gncn.Network.DWt and update the weight values in
place.  The network itself never applies gradients: the separation lets any
optimizer here (or a user's own) drive learning, with the network's ClipWts
called after each step to restore the weight-norm invariant.
*/
package optim

import (
	"fmt"

	"github.com/emer/gncn/gncn"
	"github.com/goki/mat32"
)

// Var is one named parameter tensor with its gradient slot, both flat
// float32 and the same length.  The optimizer subtracts along the gradient:
// gradients are written by the network already negated for minimization.
type Var struct {

	// name of the parameter tensor, unique within one optimizer --
	// Adam keys its moment state on it
	Nm string

	// weight values, updated in place
	Wt []float32

	// gradient values, read only
	DWt []float32
}

// NetVars returns the optimization variables of the given network: every
// pathway's weight matrix paired with its gradient slot, named by the
// pathway.  Collect once after Build; the slices alias the network tensors.
func NetVars(nt *gncn.Network) []Var {
	var vars []Var
	for _, lyi := range nt.Layers {
		ly := lyi.AsGncn()
		for _, pji := range ly.RcvPrjns {
			pj := pji.AsGncn()
			vars = append(vars, Var{Nm: pj.Name(), Wt: pj.Wt.Values, DWt: pj.DWt.Values})
		}
	}
	return vars
}

// Optimizer updates weight values in place from their gradient slots.
// One Step call per training step, over all variables at once.
type Optimizer interface {
	// Step applies one update step over all the given variables
	Step(vars []Var) error

	// Init clears any accumulated optimizer state (moments, step count)
	Init()
}

//////////////////////////////////////////////////////////////////////////////////////
//  SGD

// SGD is plain stochastic gradient descent: w -= LR * g
type SGD struct {

	// learning rate
	LR float32 `def:"0.1"`
}

func NewSGD(lr float32) *SGD {
	sg := &SGD{}
	sg.Defaults()
	sg.LR = lr
	return sg
}

func (sg *SGD) Defaults() {
	sg.LR = 0.1
}

func (sg *SGD) Init() {
}

func (sg *SGD) Step(vars []Var) error {
	for _, v := range vars {
		if len(v.Wt) != len(v.DWt) {
			return fmt.Errorf("optim.SGD: var %v: wt len %v != dwt len %v", v.Nm, len(v.Wt), len(v.DWt))
		}
		for i, g := range v.DWt {
			v.Wt[i] -= sg.LR * g
		}
	}
	return nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  Adam

// Adam is the Adam optimizer with the bias correction folded into the
// per-step learning rate: lrT = LR * sqrt(1-Beta2^t) / (1-Beta1^t), applied
// with the biased moment estimates.  Moment state is allocated per variable
// name on first Step.
type Adam struct {

	// learning rate
	LR float32 `def:"0.001"`

	// first moment decay rate
	Beta1 float32 `def:"0.9"`

	// second moment decay rate
	Beta2 float32 `def:"0.999"`

	// denominator epsilon, added after the square root
	Eps float32 `def:"1e-8"`

	// step counter, incremented once per Step call
	T int `inactive:"+"`

	// first moment estimates per variable name
	M map[string][]float32 `view:"-"`

	// second moment estimates per variable name
	V map[string][]float32 `view:"-"`
}

func NewAdam(lr float32) *Adam {
	ad := &Adam{}
	ad.Defaults()
	ad.LR = lr
	return ad
}

func (ad *Adam) Defaults() {
	ad.LR = 0.001
	ad.Beta1 = 0.9
	ad.Beta2 = 0.999
	ad.Eps = 1e-8
}

// Init clears the moment state and step counter
func (ad *Adam) Init() {
	ad.T = 0
	ad.M = nil
	ad.V = nil
}

func (ad *Adam) Step(vars []Var) error {
	if ad.M == nil {
		ad.M = make(map[string][]float32, len(vars))
		ad.V = make(map[string][]float32, len(vars))
	}
	ad.T++
	t := float32(ad.T)
	lrT := ad.LR * mat32.Sqrt(1-mat32.Pow(ad.Beta2, t)) / (1 - mat32.Pow(ad.Beta1, t))
	for _, v := range vars {
		if len(v.Wt) != len(v.DWt) {
			return fmt.Errorf("optim.Adam: var %v: wt len %v != dwt len %v", v.Nm, len(v.Wt), len(v.DWt))
		}
		m, ok := ad.M[v.Nm]
		if !ok || len(m) != len(v.Wt) {
			m = make([]float32, len(v.Wt))
			ad.M[v.Nm] = m
		}
		vv, ok := ad.V[v.Nm]
		if !ok || len(vv) != len(v.Wt) {
			vv = make([]float32, len(v.Wt))
			ad.V[v.Nm] = vv
		}
		for i, g := range v.DWt {
			m[i] = ad.Beta1*m[i] + (1-ad.Beta1)*g
			vv[i] = ad.Beta2*vv[i] + (1-ad.Beta2)*g*g
			v.Wt[i] -= lrT * m[i] / (mat32.Sqrt(vv[i]) + ad.Eps)
		}
	}
	return nil
}
