// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/goki/mat32"
)

// column norms after ClipWts must be <= 1 (+ float round-off), and clipping
// an already-clipped matrix must not move it.
func TestClipWts(t *testing.T) {
	testNet := MakeTestNet(t)
	in := testNet.LayerByName("Input").AsGncn()
	pj := in.RcvPrjns[0].AsGncn()

	pj.SetWtsFunc(func(si, ri int) float32 { return float32(si+1) * 2 })
	testNet.ClipWts()

	sn := pj.NSend()
	rn := pj.NRecv()
	for ri := 0; ri < rn; ri++ {
		ss := float32(0)
		for si := 0; si < sn; si++ {
			v := pj.Wt.Values[si*rn+ri]
			ss += v * v
		}
		nrm := mat32.Sqrt(ss)
		if nrm > 1+difTol {
			t.Errorf("column %v norm after clip: %v > 1\n", ri, nrm)
		}
	}

	before := make([]float32, len(pj.Wt.Values))
	copy(before, pj.Wt.Values)
	testNet.ClipWts()
	for i := range before {
		if pj.Wt.Values[i] != before[i] {
			t.Errorf("clip not idempotent at %v: %v vs %v\n", i, pj.Wt.Values[i], before[i])
		}
	}
}

// columns already inside the unit ball must not be rescaled
func TestClipWtsInsideBall(t *testing.T) {
	testNet := MakeTestNet(t)
	in := testNet.LayerByName("Input").AsGncn()
	pj := in.RcvPrjns[0].AsGncn()
	// norm = sqrt(3 * 0.01) ~= 0.17, well inside
	testNet.ClipWts()
	for i, w := range pj.Wt.Values {
		if w != 0.1 {
			t.Errorf("wt[%v] rescaled inside unit ball: %v\n", i, w)
		}
	}
}

func TestInitWts(t *testing.T) {
	rand.Seed(42)
	testNet := MakeTestNet(t)
	testNet.InitWts()
	in := testNet.LayerByName("Input").AsGncn()
	hid := testNet.LayerByName("Hidden1").AsGncn()
	gen := in.RcvPrjns[0].AsGncn()

	nzero := 0
	for _, w := range gen.Wt.Values {
		if w == 0 {
			nzero++
		}
		if mat32.Abs(w) > 1 {
			t.Errorf("init weight magnitude implausible for stddev 0.05: %v\n", w)
		}
	}
	if nzero == len(gen.Wt.Values) {
		t.Errorf("InitWts left all weights zero\n")
	}

	// Gen and Err draws are independent: the Err matrix must not be the
	// transpose of the Gen matrix
	var errp *Prjn
	for _, pji := range hid.RcvPrjns {
		if pji.AsGncn().Typ == Err {
			errp = pji.AsGncn()
		}
	}
	same := true
	sn := errp.NSend()
	rn := errp.NRecv()
	for si := 0; si < sn; si++ {
		for ri := 0; ri < rn; ri++ {
			if errp.Wt.Values[si*rn+ri] != gen.Wt.Values[ri*sn+si] {
				same = false
			}
		}
	}
	if same {
		t.Errorf("Err weights initialized as transpose of Gen weights\n")
	}

	for _, d := range gen.DWt.Values {
		if d != 0 {
			t.Errorf("InitWts left non-zero gradient: %v\n", d)
		}
	}
	if testNet.Batch != 0 {
		t.Errorf("InitWts did not reset the inference batch guard\n")
	}
}

func TestSynVal(t *testing.T) {
	testNet := MakeTestNet(t)
	in := testNet.LayerByName("Input").AsGncn()
	pj := in.RcvPrjns[0].AsGncn()

	if err := pj.SetSynVal(1, 2, 0.25); err != nil {
		t.Error(err)
	}
	if v := pj.SynVal(1, 2); v != 0.25 {
		t.Errorf("syn val: got %v, want 0.25\n", v)
	}
	if v := pj.SynVal(7, 0); !mat32.IsNaN(v) {
		t.Errorf("out of range syn val: got %v, want NaN\n", v)
	}
	if err := pj.SetSynVal(0, 9, 0); err == nil {
		t.Errorf("expected error for out of range recv index\n")
	}
}

// weights written through the network-level JSON format must load back into
// a second identically-structured network, within the file precision.
func TestWtsJSONRoundTrip(t *testing.T) {
	rand.Seed(7)
	srcNet := MakeTestNet(t)
	srcNet.InitWts()

	var buf bytes.Buffer
	if err := srcNet.WriteWtsJSON(&buf); err != nil {
		t.Fatal(err)
	}

	dstNet := MakeTestNet(t)
	if err := dstNet.ReadWtsJSON(&buf); err != nil {
		t.Fatal(err)
	}

	// 'g' format with the weights file precision keeps ~4 significant digits
	prTol := float32(1.0e-3)
	for li, lyi := range srcNet.Layers {
		sly := lyi.AsGncn()
		dly := dstNet.Layers[li].AsGncn()
		for pi, pji := range sly.RcvPrjns {
			spj := pji.AsGncn()
			dpj := dly.RcvPrjns[pi].AsGncn()
			for i := range spj.Wt.Values {
				dif := mat32.Abs(spj.Wt.Values[i] - dpj.Wt.Values[i])
				if dif > prTol {
					t.Errorf("prjn %v wt[%v] round trip: %v vs %v\n", spj.Name(), i, spj.Wt.Values[i], dpj.Wt.Values[i])
				}
			}
		}
	}
}
