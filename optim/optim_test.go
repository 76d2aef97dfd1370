// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optim

import (
	"testing"

	"github.com/goki/mat32"
)

// difTol -- tolerance for comparing values against golden results
const difTol = float32(1.0e-6)

func CmprFloats(out, cor []float32, msg string, t *testing.T) {
	if len(out) != len(cor) {
		t.Errorf("%v: length mismatch: got %v, want %v\n", msg, len(out), len(cor))
		return
	}
	for i := range out {
		dif := mat32.Abs(out[i] - cor[i])
		if dif > difTol { // allow for small numerical diffs
			t.Errorf("%v err: out: %v, cor: %v, dif: %v\n", msg, out[i], cor[i], dif)
		}
	}
}

func TestSGDStep(t *testing.T) {
	sg := NewSGD(0.1)
	wt := []float32{1, 2, -1}
	dwt := []float32{0.5, -0.5, 0}
	err := sg.Step([]Var{{Nm: "W0", Wt: wt, DWt: dwt}})
	if err != nil {
		t.Error(err)
	}
	CmprFloats(wt, []float32{0.95, 2.05, -1}, "sgd one step", t)

	err = sg.Step([]Var{{Nm: "W0", Wt: wt, DWt: dwt}})
	if err != nil {
		t.Error(err)
	}
	CmprFloats(wt, []float32{0.9, 2.1, -1}, "sgd two steps", t)
}

// The first Adam step moves every weight by almost exactly LR in the
// direction opposite its gradient, independent of the gradient magnitude --
// the moments and the folded bias correction cancel up to Eps.
func TestAdamFirstStep(t *testing.T) {
	ad := NewAdam(0.001)
	wt := []float32{0, 0, 0}
	dwt := []float32{1, -2, 0.001}
	err := ad.Step([]Var{{Nm: "W0", Wt: wt, DWt: dwt}})
	if err != nil {
		t.Error(err)
	}
	for i := range wt {
		if dwt[i] > 0 && wt[i] >= 0 {
			t.Errorf("adam first step: wt[%v] = %v not negative for positive gradient\n", i, wt[i])
		}
		if dwt[i] < 0 && wt[i] <= 0 {
			t.Errorf("adam first step: wt[%v] = %v not positive for negative gradient\n", i, wt[i])
		}
		mag := mat32.Abs(wt[i])
		if mat32.Abs(mag-ad.LR) > 1.0e-5 {
			t.Errorf("adam first step: |wt[%v]| = %v, want ~%v\n", i, mag, ad.LR)
		}
	}
	if ad.T != 1 {
		t.Errorf("adam step count: got %v, want 1\n", ad.T)
	}
}

func TestAdamState(t *testing.T) {
	ad := NewAdam(0.001)
	wt := []float32{0}
	dwt := []float32{1}
	vars := []Var{{Nm: "W0", Wt: wt, DWt: dwt}}
	for i := 0; i < 3; i++ {
		if err := ad.Step(vars); err != nil {
			t.Error(err)
		}
	}
	if ad.T != 3 {
		t.Errorf("adam step count: got %v, want 3\n", ad.T)
	}
	if len(ad.M["W0"]) != 1 || len(ad.V["W0"]) != 1 {
		t.Errorf("adam moment state not allocated per var\n")
	}
	ad.Init()
	if ad.T != 0 || ad.M != nil || ad.V != nil {
		t.Errorf("adam Init did not clear state\n")
	}
}

func TestStepLenMismatch(t *testing.T) {
	ad := NewAdam(0.001)
	err := ad.Step([]Var{{Nm: "W0", Wt: []float32{0, 0}, DWt: []float32{1}}})
	if err == nil {
		t.Errorf("adam did not error on wt / dwt length mismatch\n")
	}
	sg := NewSGD(0.1)
	err = sg.Step([]Var{{Nm: "W0", Wt: []float32{0, 0}, DWt: []float32{1}}})
	if err == nil {
		t.Errorf("sgd did not error on wt / dwt length mismatch\n")
	}
}
