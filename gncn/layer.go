// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"errors"
	"fmt"
	"io"

	"github.com/emer/emergent/v2/weights"
	"github.com/emer/etable/v2/etensor"
	"github.com/emer/etable/v2/minmax"
	"github.com/goki/ki/indent"
	"github.com/goki/ki/ki"
	"github.com/goki/ki/kit"
)

// gncn.Layer is one layer of the predictive-coding hierarchy, holding the
// batched latent state, prediction, and error tensors, and the activation
// function parameters.  All state tensors are [batch, units] and are
// reallocated to the batch size of each Infer call.
type Layer struct {
	LayerStru
	Act ActParams `view:"inline" desc:"activation functions for this layer: Phi on the latent state, G on the incoming top-down prediction"`

	Z    etensor.Float32 `view:"-" desc:"latent state -- clamped to the input batch for the Input layer, and updated by the leaky-integrator settling dynamics for all others"`
	ActZ etensor.Float32 `view:"-" desc:"activated state Phi(Z) -- read by outgoing predictions, the error recompute, and the local gradient"`
	Mu   etensor.Float32 `view:"-" desc:"top-down prediction of this layer's state, computed from the upper layer's activated state through the Gen pathway"`
	Err  etensor.Float32 `view:"-" desc:"prediction error: Z - Mu for the Input layer, Phi(Z) - Mu for Hidden layers, always zero for the Top layer"`
	Drv  etensor.Float32 `view:"-" desc:"dendritic drive buffer for the state update: errors routed up from the layer below minus this layer's own error"`

	ZAvgM   minmax.AvgMax32 `inactive:"+" view:"inline" desc:"average and maximum latent state value, updated each settling cycle"`
	ErrAvgM minmax.AvgMax32 `inactive:"+" view:"inline" desc:"average and maximum prediction error value, updated each settling cycle"`
}

var KiT_Layer = kit.Types.AddType(&Layer{}, LayerProps)

var LayerProps = ki.Props{}

// AsGncn returns this layer as a gncn.Layer -- all derived layers must
// redefine this to return the base Layer type, so that the GncnLayer
// interface does not need to include accessors to all the basic stuff.
func (ly *Layer) AsGncn() *Layer {
	return ly
}

func (ly *Layer) Defaults() {
	ly.Act.Defaults()
	if ly.Typ == Input {
		ly.Act.G = Sigmoid // squash predictions of the observed layer into the data range
	}
	for _, pj := range ly.RcvPrjns {
		pj.Defaults()
	}
}

// UpdateParams updates all params given any changes that might have been made
// to individual values, including those in the receiving pathways of this layer
func (ly *Layer) UpdateParams() {
	ly.Act.Update()
	for _, pj := range ly.RcvPrjns {
		pj.UpdateParams()
	}
}

//////////////////////////////////////////////////////////////////////////////////////
//  Build

// Build constructs the layer and pathway state, validating the activation
// configuration.  Configuration errors here are fatal to the network.
func (ly *Layer) Build() error {
	nu := ly.Shp.Len()
	if nu == 0 {
		return fmt.Errorf("Build Layer %v: no units specified in Shape", ly.Nm)
	}
	if err := ly.Act.Validate(); err != nil {
		return fmt.Errorf("Build Layer %v: %v", ly.Nm, err)
	}
	emsg := ""
	for _, pj := range ly.RcvPrjns {
		if pj.IsOff() {
			continue
		}
		err := pj.Build()
		if err != nil {
			emsg += err.Error() + "\n"
		}
	}
	if emsg != "" {
		return errors.New(emsg)
	}
	return nil
}

// InitWts initializes the weight values in all receiving pathways
func (ly *Layer) InitWts() {
	for _, pj := range ly.RcvPrjns {
		if pj.IsOff() {
			continue
		}
		pj.InitWts()
	}
}

//////////////////////////////////////////////////////////////////////////////////////
//  State

// AllocState allocates (or reshapes) the batched state tensors for the given
// batch size, and zeros all values.  Called at the start of every Infer.
func (ly *Layer) AllocState(batch int) {
	nu := ly.Shp.Len()
	shp := []int{batch, nu}
	ly.Z.SetShape(shp, nil, StateDimNames)
	ly.ActZ.SetShape(shp, nil, StateDimNames)
	ly.Mu.SetShape(shp, nil, StateDimNames)
	ly.Err.SetShape(shp, nil, StateDimNames)
	ly.Drv.SetShape(shp, nil, StateDimNames)
	ly.Z.SetZeros()
	ly.ActZ.SetZeros()
	ly.Mu.SetZeros()
	ly.Err.SetZeros()
	ly.Drv.SetZeros()
	ly.ZAvgM.Init()
	ly.ErrAvgM.Init()
}

// ClampState clamps the layer state Z directly to the given input values,
// which must already be verified as [batch, units].  Only the Input layer
// is clamped; its Z is never touched by the settling dynamics.
func (ly *Layer) ClampState(x *etensor.Float32) {
	copy(ly.Z.Values, x.Values)
}

// UpdtState runs one leaky-integrator state update from the current errors.
// The drive is the errors routed up from the layer below through the Err
// pathway, minus this layer's own error as a damping term:
//  Drv = Err_below @ E - Err
//  Z  += Beta * (-Gamma * Z + Drv)
// The Input layer is clamped and excluded.  All errors read here are from
// the previous settling cycle: the prediction/error recompute runs strictly
// after the state pass.
func (ly *Layer) UpdtState(sp *SettleParams) {
	if ly.Typ == Input {
		return
	}
	drv := ly.Drv.Values
	for i := range drv {
		drv[i] = 0
	}
	for _, pji := range ly.RcvPrjns {
		pj := pji.AsGncn()
		if pj.IsOff() || pj.Typ != Err {
			continue
		}
		pj.AddErrDrive(drv)
	}
	ze := ly.Err.Values
	zv := ly.Z.Values
	for i := range zv {
		zv[i] += sp.Beta * (-sp.Gamma*zv[i] + (drv[i] - ze[i]))
	}
}

// ActFmState computes the activated state ActZ = Phi(Z).  The Input layer's
// state is only ever read raw, so it is skipped.
func (ly *Layer) ActFmState() {
	if ly.Typ == Input {
		return
	}
	ly.Act.Phi.Apply(ly.ActZ.Values, ly.Z.Values)
}

// PredErr recomputes the top-down prediction Mu of this layer from the upper
// layer's activated state through the receiving Gen pathway, applies the
// layer's G function, and recomputes the prediction error.  The Top layer
// has no Gen input so its error stays zero.  Within one settling cycle this
// runs on all layers only after ActFmState has run on all layers.
func (ly *Layer) PredErr() {
	var gpj *Prjn
	for _, pji := range ly.RcvPrjns {
		pj := pji.AsGncn()
		if pj.IsOff() || pj.Typ != Gen {
			continue
		}
		gpj = pj
		break
	}
	if gpj == nil {
		return
	}
	gpj.SendPred(&ly.Mu)
	ly.Act.G.Apply(ly.Mu.Values, ly.Mu.Values)
	ev := ly.Err.Values
	mv := ly.Mu.Values
	sv := ly.ActZ.Values
	if ly.Typ == Input {
		sv = ly.Z.Values // error on the raw clamped state, not the activated one
	}
	for i := range ev {
		ev[i] = sv[i] - mv[i]
	}
}

// AvgMaxStats updates the running average / max statistics over the latent
// state and error values, for monitoring settling without recomputation.
func (ly *Layer) AvgMaxStats() {
	ly.ZAvgM.Init()
	for i, v := range ly.Z.Values {
		ly.ZAvgM.UpdateVal(v, int32(i))
	}
	ly.ZAvgM.CalcAvg()
	ly.ErrAvgM.Init()
	for i, v := range ly.Err.Values {
		ly.ErrAvgM.UpdateVal(v, int32(i))
	}
	ly.ErrAvgM.CalcAvg()
}

// Discrepancy returns the sum of squared prediction error values for this
// layer, over the whole batch.
func (ly *Layer) Discrepancy() float32 {
	tot := float32(0)
	for _, v := range ly.Err.Values {
		tot += v * v
	}
	return tot
}

//////////////////////////////////////////////////////////////////////////////////////
//  Learn

// DWt computes the local weight gradients on all receiving pathways of the
// given type.  Gen gradients are computed first across the network, then
// Err gradients copy their transposes.
func (ly *Layer) DWt(typ PrjnTypes) {
	for _, pji := range ly.RcvPrjns {
		pj := pji.AsGncn()
		if pj.IsOff() || pj.Typ != typ {
			continue
		}
		pj.DWtImpl()
	}
}

// ClipWts re-projects the weight columns of all receiving pathways onto the
// unit norm ball.
func (ly *Layer) ClipWts() {
	for _, pj := range ly.RcvPrjns {
		if pj.IsOff() {
			continue
		}
		pj.ClipWts()
	}
}

//////////////////////////////////////////////////////////////////////////////////////
//  Weights File

// WriteWtsJSON writes the weights from this layer from the receiver-side
// perspective in a JSON text format.  We build in the indentation logic to
// make it much faster and more efficient.
func (ly *Layer) WriteWtsJSON(w io.Writer, depth int) {
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"Layer\": %q,\n", ly.Nm)))
	w.Write(indent.TabBytes(depth))
	onps := make([]GncnPrjn, 0, len(ly.RcvPrjns))
	for _, pj := range ly.RcvPrjns {
		if !pj.IsOff() {
			onps = append(onps, pj)
		}
	}
	np := len(onps)
	if np == 0 {
		w.Write([]byte("\"Prjns\": null\n"))
	} else {
		w.Write([]byte("\"Prjns\": [\n"))
		depth++
		for pi, pj := range onps {
			pj.WriteWtsJSON(w, depth) // this leaves prjn unterminated
			if pi == np-1 {
				w.Write([]byte("\n"))
			} else {
				w.Write([]byte(",\n"))
			}
		}
		depth--
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("]\n"))
	}
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("}")) // note: leave unterminated as outer loop needs to add , or just \n depending
}

// ReadWtsJSON reads the weights from this layer from the receiver-side
// perspective in a JSON text format.  This is for a set of weights that
// were saved *for one layer only* and is not used for the network-level
// ReadWtsJSON, which reads into a separate structure -- see SetWts method.
func (ly *Layer) ReadWtsJSON(r io.Reader) error {
	lw, err := weights.LayReadJSON(r)
	if err != nil {
		return err // note: already logged
	}
	return ly.SetWts(lw)
}

// SetWts sets the weights for this layer from weights.Layer decoded values
func (ly *Layer) SetWts(lw *weights.Layer) error {
	if ly.Off {
		return nil
	}
	var err error
	for pi := range lw.Prjns {
		pw := &lw.Prjns[pi]
		found := false
		for _, pji := range ly.RcvPrjns {
			pj := pji.AsGncn()
			if pj.Send.Name() != pw.From {
				continue
			}
			found = true
			er := pji.SetWts(pw)
			if er != nil {
				err = er
			}
			break
		}
		if !found {
			err = fmt.Errorf("gncn.Layer SetWts: no recv prjn from layer: %v in layer: %v", pw.From, ly.Nm)
		}
	}
	return err
}

//////////////////////////////////////////////////////////////////////////////////////
//  Stats

// StateVarByName returns the batched state tensor of the given name
// (Z, ActZ, Mu, Err, Drv), or error if the name is invalid
func (ly *Layer) StateVarByName(varNm string) (*etensor.Float32, error) {
	switch varNm {
	case "Z":
		return &ly.Z, nil
	case "ActZ":
		return &ly.ActZ, nil
	case "Mu":
		return &ly.Mu, nil
	case "Err":
		return &ly.Err, nil
	case "Drv":
		return &ly.Drv, nil
	}
	return nil, fmt.Errorf("gncn.Layer %v: state variable named: %v not found", ly.Nm, varNm)
}

// VarRange returns the min / max values of the given state variable
// across the full batch
func (ly *Layer) VarRange(varNm string) (min, max float32, err error) {
	tsr, err := ly.StateVarByName(varNm)
	if err != nil {
		return
	}
	if len(tsr.Values) == 0 {
		return
	}
	min = tsr.Values[0]
	max = tsr.Values[0]
	for _, vl := range tsr.Values {
		if vl < min {
			min = vl
		}
		if vl > max {
			max = vl
		}
	}
	return
}

// StateMemSize returns the size in bytes of the layer's batched state tensors
func (ly *Layer) StateMemSize() int {
	nv := len(ly.Z.Values) + len(ly.ActZ.Values) + len(ly.Mu.Values) +
		len(ly.Err.Values) + len(ly.Drv.Values)
	return 4 * nv
}
