// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"testing"
)

func TestReLU(t *testing.T) {
	xs := []float32{-2, -0.5, 0, 0.5, 2}
	cor := []float32{0, 0, 0, 0.5, 2}
	got := make([]float32, len(xs))
	ReLU.Apply(got, xs)
	CmprFloats(got, cor, "relu apply", t)
	for i, x := range xs {
		if ReLU.Eval(x) != cor[i] {
			t.Errorf("relu eval(%v): got %v, want %v\n", x, ReLU.Eval(x), cor[i])
		}
	}
}

func TestSigmoid(t *testing.T) {
	xs := []float32{-2, -1, 0, 1, 2}
	cor := []float32{0.11920292, 0.26894143, 0.5, 0.7310586, 0.8807971}
	got := make([]float32, len(xs))
	Sigmoid.Apply(got, xs)
	CmprFloats(got, cor, "sigmoid apply", t)
}

func TestActFuncByName(t *testing.T) {
	af, err := ActFuncByName("relu")
	if err != nil || af != ReLU {
		t.Errorf("relu by name: got %v, %v\n", af, err)
	}
	af, err = ActFuncByName("Sigmoid")
	if err != nil || af != Sigmoid {
		t.Errorf("Sigmoid by name: got %v, %v\n", af, err)
	}
	_, err = ActFuncByName("tanh")
	if err == nil {
		t.Errorf("expected error for unsupported activation name\n")
	}
}

func TestActFuncsSetString(t *testing.T) {
	af := ReLU
	if err := af.SetString("Sigmoid"); err != nil || af != Sigmoid {
		t.Errorf("SetString Sigmoid: got %v, %v\n", af, err)
	}
	if err := af.SetString("tanh"); err == nil {
		t.Errorf("expected error for unsupported activation name\n")
	}
	if af != Sigmoid { // failed set must not clobber the value
		t.Errorf("SetString error clobbered value: got %v\n", af)
	}
}

func TestSettleParamsValidate(t *testing.T) {
	sp := SettleParams{}
	sp.Defaults()
	if err := sp.Validate(); err != nil {
		t.Error(err)
	}
	sp.Momentum = 0.9
	if err := sp.Validate(); err == nil {
		t.Errorf("expected error for non-zero momentum\n")
	}
	sp.Defaults()
	sp.Cycles = -1
	if err := sp.Validate(); err == nil {
		t.Errorf("expected error for negative cycles\n")
	}
}

func TestActParamsValidate(t *testing.T) {
	ac := ActParams{}
	ac.Defaults()
	if err := ac.Validate(); err != nil {
		t.Error(err)
	}
	ac.Phi = ActFuncs(99)
	if err := ac.Validate(); err == nil {
		t.Errorf("expected error for invalid activation function\n")
	}
}
