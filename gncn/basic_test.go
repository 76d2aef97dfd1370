// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"testing"

	"github.com/emer/emergent/v2/params"
	"github.com/emer/etable/v2/etensor"
	"github.com/goki/mat32"
)

// difTol -- tolerance for comparing values against golden results
const difTol = float32(1.0e-6)

var ParamSets = params.Sets{
	"Base": {Desc: "base testing params", Sheets: params.Sheets{
		"Network": &params.Sheet{
			{Sel: "Prjn", Desc: "identical weights for reproducibility",
				Params: params.Params{
					"Prjn.WtInit.Var":  "0",
					"Prjn.WtInit.Mean": "0.1",
				}},
			{Sel: ".Input", Desc: "input stays in the data range",
				Params: params.Params{
					"Layer.Act.G": "Sigmoid",
				}},
		},
	}},
}

func CmprFloats(out, cor []float32, msg string, t *testing.T) {
	if len(out) != len(cor) {
		t.Errorf("%v: length mismatch: out: %v, cor: %v\n", msg, len(out), len(cor))
		return
	}
	for i := range out {
		dif := mat32.Abs(out[i] - cor[i])
		if dif > difTol { // allow for small numerical diffs
			t.Errorf("%v err: out: %v, cor: %v, dif: %v\n", msg, out[i], cor[i], dif)
		}
	}
}

// MakeTestNet builds the standard 4 / 3 / 3 test hierarchy with all weights
// fixed at 0.1
func MakeTestNet(t *testing.T) *Network {
	testNet := NewNetwork("TestNet")
	_, err := testNet.AddGNCN([][]int{{1, 4}, {1, 3}, {1, 3}})
	if err != nil {
		t.Fatal(err)
	}
	testNet.Defaults()
	err = testNet.Build()
	if err != nil {
		t.Fatal(err)
	}
	for _, ly := range testNet.Layers {
		for _, pj := range ly.AsGncn().RcvPrjns {
			pj.AsGncn().SetWtsFunc(func(si, ri int) float32 { return 0.1 })
		}
	}
	return testNet
}

// MakeInPats returns a [batch, units] input batch with constant value val
func MakeInPats(val float32, batch, units int) *etensor.Float32 {
	x := etensor.NewFloat32([]int{batch, units}, nil, StateDimNames)
	for i := range x.Values {
		x.Values[i] = val
	}
	return x
}

func TestBuildShapes(t *testing.T) {
	testNet := NewNetwork("ShapeNet")
	_, err := testNet.AddGNCN([][]int{{1, 4}, {1, 3}, {1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	testNet.Defaults()
	testNet.DiscLayers = []int{0, 1}
	err = testNet.Build()
	if err != nil {
		t.Fatal(err)
	}
	// weight matrices are [send, recv]:
	// Gen into layer l comes from layer l+1, Err into layer l+1 from layer l.
	// note: the top Err matrix follows the same shape rule as all others,
	// [3, 2] here -- it is not square unless the dims happen to match.
	wtShps := map[string][]int{
		"Hidden1ToInput": {3, 4},
		"InputToHidden1": {4, 3},
		"TopToHidden1":   {2, 3},
		"Hidden1ToTop":   {3, 2},
	}
	npj := 0
	for _, ly := range testNet.Layers {
		for _, pji := range ly.AsGncn().RcvPrjns {
			pj := pji.AsGncn()
			shp, ok := wtShps[pj.Name()]
			if !ok {
				t.Errorf("unexpected prjn: %v\n", pj.Name())
				continue
			}
			npj++
			if pj.Wt.Dim(0) != shp[0] || pj.Wt.Dim(1) != shp[1] {
				t.Errorf("prjn %v wt shape: got [%v, %v], want %v\n", pj.Name(), pj.Wt.Dim(0), pj.Wt.Dim(1), shp)
			}
			if pj.DWt.Dim(0) != shp[0] || pj.DWt.Dim(1) != shp[1] {
				t.Errorf("prjn %v dwt shape: got [%v, %v], want %v\n", pj.Name(), pj.DWt.Dim(0), pj.DWt.Dim(1), shp)
			}
		}
	}
	if npj != 4 {
		t.Errorf("expected 4 prjns, got %v\n", npj)
	}
}

func TestBuildErrors(t *testing.T) {
	testNet := NewNetwork("BadNet")
	_, err := testNet.AddGNCN([][]int{{1, 4}, {1, 3}})
	if err == nil {
		t.Errorf("expected error for < 2 generative levels\n")
	}

	testNet = NewNetwork("BadNet2")
	_, err = testNet.AddGNCN([][]int{{1, 4}, {1, 3}, {1, 3}})
	if err != nil {
		t.Fatal(err)
	}
	testNet.Defaults()
	testNet.Settle.Momentum = 0.5 // not implemented: must be rejected, not ignored
	err = testNet.Build()
	if err == nil {
		t.Errorf("expected error for non-zero momentum\n")
	}

	testNet = NewNetwork("BadNet3")
	_, err = testNet.AddGNCN([][]int{{1, 4}, {1, 3}, {1, 3}})
	if err != nil {
		t.Fatal(err)
	}
	testNet.Defaults()
	testNet.DiscLayers = []int{0, 7}
	err = testNet.Build()
	if err == nil {
		t.Errorf("expected error for out of range DiscLayers\n")
	}
}

func TestApplyParams(t *testing.T) {
	testNet := MakeTestNet(t)
	testNet.ApplyParams(ParamSets["Base"].Sheets["Network"], false)
	hid := testNet.LayerByName("Hidden1").AsGncn()
	pj := hid.RcvPrjns[0].AsGncn()
	if pj.WtInit.Var != 0 || pj.WtInit.Mean != 0.1 {
		t.Errorf("prjn params not applied: var: %v, mean: %v\n", pj.WtInit.Var, pj.WtInit.Mean)
	}
	in := testNet.LayerByName("Input").AsGncn()
	if in.Act.G != Sigmoid {
		t.Errorf("layer class params not applied: input G: %v\n", in.Act.G)
	}
}

func TestInferClamp(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	inPats := MakeInPats(1, 2, 4)
	err := testNet.Infer(inPats, 5, ltime)
	if err != nil {
		t.Fatal(err)
	}
	in := testNet.LayerByName("Input").AsGncn()
	CmprFloats(in.Z.Values, inPats.Values, "clamped input state", t)
	if ltime.Cycle != 5 {
		t.Errorf("time cycle: got %v, want 5\n", ltime.Cycle)
	}
}

func TestInferShapeErrors(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	bad := etensor.NewFloat32([]int{2, 5}, nil, StateDimNames)
	if err := testNet.Infer(bad, 1, ltime); err == nil {
		t.Errorf("expected error for wrong input width\n")
	}
	bad3d := etensor.NewFloat32([]int{2, 2, 2}, nil, nil)
	if err := testNet.Infer(bad3d, 1, ltime); err == nil {
		t.Errorf("expected error for 3D input\n")
	}
	if err := testNet.Infer(MakeInPats(0, 2, 4), -1, ltime); err == nil {
		t.Errorf("expected error for negative cycles\n")
	}
}

// With zero cycles, nothing settles: all states, predictions and errors stay
// zero, only the clamp is in effect, and the discrepancy is zero.
func TestInferZeroCycles(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	inPats := MakeInPats(1, 2, 4)
	err := testNet.Infer(inPats, 0, ltime)
	if err != nil {
		t.Fatal(err)
	}
	in := testNet.LayerByName("Input").AsGncn()
	hid := testNet.LayerByName("Hidden1").AsGncn()
	CmprFloats(in.Z.Values, inPats.Values, "clamped input state", t)
	zeros := make([]float32, 6)
	CmprFloats(hid.Z.Values, zeros, "hidden state after 0 cycles", t)
	CmprFloats(in.Err.Values, make([]float32, 8), "input err after 0 cycles", t)
	disc, err := testNet.TotalDiscrepancy()
	if err != nil {
		t.Fatal(err)
	}
	if disc != 0 {
		t.Errorf("discrepancy after 0 cycles: got %v, want 0\n", disc)
	}
}

// One settle cycle on an all-zero input: the state pass is a no-op (errors
// start at zero), the linear prediction of the input is zero, and the
// sigmoid output squashing turns that into 0.5, so e[0] = 0 - 0.5 = -0.5
// everywhere and the total discrepancy is batch * units * 0.25 = 2.
func TestSettleFixture(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	inPats := MakeInPats(0, 2, 4)
	err := testNet.Infer(inPats, 1, ltime)
	if err != nil {
		t.Fatal(err)
	}
	in := testNet.LayerByName("Input").AsGncn()
	hid := testNet.LayerByName("Hidden1").AsGncn()

	cor := make([]float32, 8)
	for i := range cor {
		cor[i] = -0.5
	}
	CmprFloats(in.Err.Values, cor, "input err after 1 cycle", t)
	CmprFloats(hid.Err.Values, make([]float32, 6), "hidden err after 1 cycle", t)

	disc, err := testNet.TotalDiscrepancy()
	if err != nil {
		t.Fatal(err)
	}
	if mat32.Abs(disc-2) > difTol {
		t.Errorf("discrepancy: got %v, want 2\n", disc)
	}

	// second cycle: e[0] drives the hidden state down through the Err
	// pathway: drv = -0.5 * 0.1 * 4 = -0.2, z += 0.1 * -0.2 = -0.02,
	// and ReLU clips the negative state so the errors are unchanged.
	err = testNet.Infer(inPats, 2, ltime)
	if err != nil {
		t.Fatal(err)
	}
	zcor := make([]float32, 6)
	for i := range zcor {
		zcor[i] = -0.02
	}
	CmprFloats(hid.Z.Values, zcor, "hidden state after 2 cycles", t)
	CmprFloats(in.Err.Values, cor, "input err after 2 cycles", t)
}

// With a positive input the settled state is non-trivial: after 2 cycles
// z1 = 0.02, the linear input prediction is 3 * 0.02 * 0.1 = 0.006, and
// e[0] = 1 - sigmoid(0.006).
func TestSettlePositive(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	inPats := MakeInPats(1, 2, 4)
	err := testNet.Infer(inPats, 2, ltime)
	if err != nil {
		t.Fatal(err)
	}
	in := testNet.LayerByName("Input").AsGncn()
	hid := testNet.LayerByName("Hidden1").AsGncn()

	zcor := make([]float32, 6)
	for i := range zcor {
		zcor[i] = 0.02
	}
	CmprFloats(hid.Z.Values, zcor, "hidden state after 2 cycles", t)

	ecor := make([]float32, 8)
	for i := range ecor {
		ecor[i] = 0.49850004 // 1 - sigmoid(0.006)
	}
	CmprFloats(in.Err.Values, ecor, "input err after 2 cycles", t)

	hecor := make([]float32, 6)
	for i := range hecor {
		hecor[i] = 0.02 // phi(z1) - relu(0)
	}
	CmprFloats(hid.Err.Values, hecor, "hidden err after 2 cycles", t)
}

// The settling stats and the network-wide variable range both summarize the
// settled state of the positive fixture: per-layer avg / max of z and e, and
// a min / max that must span all layers, not just the last one.
func TestStatsVarRange(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	inPats := MakeInPats(1, 2, 4)
	if err := testNet.Infer(inPats, 2, ltime); err != nil {
		t.Fatal(err)
	}
	hid := testNet.LayerByName("Hidden1").AsGncn()
	CmprFloats([]float32{hid.ZAvgM.Avg, hid.ZAvgM.Max}, []float32{0.02, 0.02}, "hidden z stats", t)
	CmprFloats([]float32{hid.ErrAvgM.Avg, hid.ErrAvgM.Max}, []float32{0.02, 0.02}, "hidden err stats", t)

	// clamped input z is 1, top z stays 0
	zmin, zmax, err := testNet.VarRange("Z")
	if err != nil {
		t.Fatal(err)
	}
	CmprFloats([]float32{zmin, zmax}, []float32{0, 1}, "network z range", t)

	// top err stays 0, input err is the settled 1 - sigmoid(0.006)
	emin, emax, err := testNet.VarRange("Err")
	if err != nil {
		t.Fatal(err)
	}
	CmprFloats([]float32{emin, emax}, []float32{0, 0.49850004}, "network err range", t)
}

// Infer must be a pure function of (weights, input, K): rerunning the same
// batch reproduces the settled state bit for bit.
func TestInferDeterminism(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	inPats := MakeInPats(1, 2, 4)
	if err := testNet.Infer(inPats, 7, ltime); err != nil {
		t.Fatal(err)
	}
	hid := testNet.LayerByName("Hidden1").AsGncn()
	in := testNet.LayerByName("Input").AsGncn()
	z1 := make([]float32, len(hid.Z.Values))
	copy(z1, hid.Z.Values)
	e0 := make([]float32, len(in.Err.Values))
	copy(e0, in.Err.Values)

	if err := testNet.Infer(inPats, 7, ltime); err != nil {
		t.Fatal(err)
	}
	for i := range z1 {
		if hid.Z.Values[i] != z1[i] {
			t.Errorf("z1[%v] not reproduced: %v vs %v\n", i, hid.Z.Values[i], z1[i])
		}
	}
	for i := range e0 {
		if in.Err.Values[i] != e0[i] {
			t.Errorf("e0[%v] not reproduced: %v vs %v\n", i, in.Err.Values[i], e0[i])
		}
	}
}

// The generative gradient is the batch-averaged outer product of the upper
// activated state with the lower error, negated; the error pathway gradient
// is its transpose (of the gradient, not the weights).
func TestDWtGradient(t *testing.T) {
	testNet := MakeTestNet(t)
	ltime := NewTime()
	inPats := MakeInPats(1, 2, 4)
	if err := testNet.Infer(inPats, 2, ltime); err != nil {
		t.Fatal(err)
	}
	if err := testNet.DWt(); err != nil {
		t.Fatal(err)
	}
	in := testNet.LayerByName("Input").AsGncn()
	hid := testNet.LayerByName("Hidden1").AsGncn()

	var gen, errp *Prjn
	for _, pji := range in.RcvPrjns {
		gen = pji.AsGncn()
	}
	for _, pji := range hid.RcvPrjns {
		pj := pji.AsGncn()
		if pj.Typ == Err {
			errp = pj
		}
	}
	if gen == nil || errp == nil {
		t.Fatal("fixture prjns not found")
	}

	// a = phi(z1) = 0.02, e0 = 0.49850004 for every unit and batch row:
	// dW = -(1/2) * 2 * 0.02 * 0.49850004
	dcor := make([]float32, 12)
	for i := range dcor {
		dcor[i] = -0.02 * 0.49850004
	}
	CmprFloats(gen.DWt.Values, dcor, "gen gradient", t)

	// transpose copy
	sn := errp.NSend()
	rn := errp.NRecv()
	for si := 0; si < sn; si++ {
		for ri := 0; ri < rn; ri++ {
			ev := errp.DWt.Values[si*rn+ri]
			gv := gen.DWt.Values[ri*sn+si]
			if ev != gv {
				t.Errorf("err gradient [%v,%v] = %v != gen gradient transpose %v\n", si, ri, ev, gv)
			}
		}
	}

	// weights themselves must be untouched by DWt
	for i, w := range gen.Wt.Values {
		if w != 0.1 {
			t.Errorf("wt[%v] changed by DWt: %v\n", i, w)
		}
	}
}

func TestDWtBeforeInfer(t *testing.T) {
	testNet := MakeTestNet(t)
	if err := testNet.DWt(); err == nil {
		t.Errorf("expected error for DWt before Infer\n")
	}
	if _, err := testNet.TotalDiscrepancy(); err == nil {
		t.Errorf("expected error for TotalDiscrepancy before Infer\n")
	}
}
