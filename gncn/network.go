// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"errors"
	"fmt"

	"github.com/emer/emergent/v2/prjn"
	"github.com/emer/etable/v2/etensor"
	"github.com/goki/ki/ki"
	"github.com/goki/ki/kit"
)

// gncn.Network implements the GNCN-PDH generative predictive-coding network:
// a hierarchy of layers where each layer generates a prediction of the one
// below it, and the mismatch errors drive both the iterative settling of the
// latent states and the purely local weight gradients.
type Network struct {
	NetworkStru

	// settling dynamics parameters, shared by all layers
	Settle SettleParams `view:"inline"`

	// layer indexes whose squared errors are summed by TotalDiscrepancy --
	// nil defaults to [0 1 2] at Build, which for a three-level hierarchy
	// covers every layer carrying an error
	DiscLayers []int

	// batch size of the last Infer call -- 0 until the first Infer,
	// guards the DWt and TotalDiscrepancy contract
	Batch int `inactive:"+"`
}

var KiT_Network = kit.Types.AddType(&Network{}, NetworkProps)

var NetworkProps = ki.Props{}

// NewNetwork returns a new gncn Network, properly initialized
func NewNetwork(name string) *Network {
	net := &Network{}
	net.InitName(net, name)
	return net
}

func (nt *Network) AsGncn() *Network {
	return nt
}

// NewLayer returns new layer of proper type
func (nt *Network) NewLayer() GncnLayer {
	return &Layer{}
}

// NewPrjn returns new prjn of proper type
func (nt *Network) NewPrjn() GncnPrjn {
	return &Prjn{}
}

// Defaults sets all the default parameters for all layers and pathways
func (nt *Network) Defaults() {
	nt.Settle.Defaults()
	for _, ly := range nt.Layers {
		ly.Defaults()
	}
}

// UpdateParams updates all the derived parameters if any have changed, for all layers
// and pathways
func (nt *Network) UpdateParams() {
	nt.Settle.Update()
	for _, ly := range nt.Layers {
		ly.UpdateParams()
	}
}

//////////////////////////////////////////////////////////////////////////////////////
//  Builders

// AddGNCN constructs a full generative hierarchy from the given layer unit
// shapes, in bottom-up order: shapes[0] is the clamped input layer and each
// subsequent entry is one level higher.  Each adjacent pair is connected
// with a full dense Gen pathway (upper -> lower, carrying the top-down
// prediction) and a full dense Err pathway (lower -> upper, routing the
// error back up).  At least three layers (two generative levels) are
// required.  Returns the layers in bottom-up order.
func (nt *Network) AddGNCN(shapes [][]int) ([]GncnLayer, error) {
	nlv := len(shapes) - 1 // generative levels = weight matrices per direction
	if nlv < 2 {
		return nil, fmt.Errorf("gncn.Network AddGNCN: requires at least 2 generative levels (3 layers), got: %v", nlv)
	}
	lays := make([]GncnLayer, len(shapes))
	for li, shp := range shapes {
		var nm string
		var typ LayerTypes
		switch {
		case li == 0:
			nm = "Input"
			typ = Input
		case li == nlv:
			nm = "Top"
			typ = Top
		default:
			nm = fmt.Sprintf("Hidden%d", li)
			typ = Hidden
		}
		lays[li] = nt.AddLayer(nm, shp, typ)
	}
	for li := 0; li < nlv; li++ {
		nt.ConnectLayers(lays[li+1], lays[li], prjn.NewFull(), Gen)
		nt.ConnectLayers(lays[li], lays[li+1], prjn.NewFull(), Err)
	}
	return lays, nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  Build

// Build constructs the layer and pathway state based on the layer shapes and
// patterns of interconnectivity, validates the settling configuration, and
// pairs each Err pathway with the reciprocal Gen pathway whose gradient
// transpose it copies.  All configuration errors are collected and returned.
func (nt *Network) Build() error {
	emsg := ""
	if err := nt.Settle.Validate(); err != nil {
		emsg += err.Error() + "\n"
	}
	if nt.DiscLayers == nil {
		nt.DiscLayers = []int{0, 1, 2}
	}
	for _, li := range nt.DiscLayers {
		if li < 0 || li >= len(nt.Layers) {
			emsg += fmt.Sprintf("gncn.Network %v: DiscLayers index %v out of range for %v layers\n", nt.Nm, li, len(nt.Layers))
		}
	}
	err := nt.NetworkStru.Build()
	if err != nil {
		emsg += err.Error() + "\n"
	}
	for _, ly := range nt.Layers {
		for _, pj := range ly.AsGncn().RcvPrjns {
			if pj.AsGncn().Typ != Err {
				continue
			}
			gpj, has := pj.AsGncn().Send.AsGncn().RecipToSendPrjn(pj)
			if !has || gpj.AsGncn().Typ != Gen {
				emsg += fmt.Sprintf("gncn.Network %v: Err prjn %v has no reciprocal Gen prjn to copy its gradient transpose from\n", nt.Nm, pj.AsGncn().Name())
				continue
			}
			pj.AsGncn().Recip = gpj
		}
	}
	if emsg != "" {
		return errors.New(emsg)
	}
	return nil
}

// InitWts initializes the weight values in the network, drawing each pathway
// independently from its WtInit distribution, and then re-projects every
// weight column onto the unit norm ball so the norm invariant holds from
// construction onward.  Also resets the Batch guard: weights have changed,
// so existing settled state no longer corresponds to them.
func (nt *Network) InitWts() {
	for _, ly := range nt.Layers {
		if ly.IsOff() {
			continue
		}
		ly.InitWts()
	}
	nt.ClipWts()
	nt.Batch = 0
}

//////////////////////////////////////////////////////////////////////////////////////
//  Settling (inference) methods

// Infer clamps the input batch x (shape [batch, input units]) to the Input
// layer and runs exactly k settling cycles over the whole hierarchy.  All
// latent states, predictions and errors are reallocated for the batch and
// start at zero; k = 0 therefore leaves everything but the clamped input at
// zero.  There is no convergence test.  One batch is in flight per network:
// concurrent Infer calls require external synchronization.
func (nt *Network) Infer(x *etensor.Float32, k int, ltime *Time) error {
	if len(nt.Layers) == 0 {
		return fmt.Errorf("gncn.Network %v: no layers built", nt.Nm)
	}
	if k < 0 {
		return fmt.Errorf("gncn.Network %v: Infer cycles must be >= 0, got: %v", nt.Nm, k)
	}
	in := nt.Layers[0].AsGncn()
	if x.NumDims() != 2 {
		return fmt.Errorf("gncn.Network %v: input must be a 2D [batch, units] tensor, got %v dims", nt.Nm, x.NumDims())
	}
	if x.Dim(1) != in.NUnits() {
		return fmt.Errorf("gncn.Network %v: input has %v units per row, Input layer has %v", nt.Nm, x.Dim(1), in.NUnits())
	}
	bs := x.Dim(0)
	for _, ly := range nt.Layers {
		if ly.IsOff() {
			continue
		}
		ly.AllocState(bs)
	}
	in.ClampState(x)
	nt.Batch = bs
	ltime.TrialStart()
	for cy := 0; cy < k; cy++ {
		nt.Cycle(ltime)
		ltime.CycleInc()
	}
	return nil
}

// Cycle runs one settling cycle: the ordered state pass then the
// prediction / error pass.  Calls through the GncnNet interface so
// specialized network types can override CycleImpl.
func (nt *Network) Cycle(ltime *Time) {
	nt.GncnNet.CycleImpl(ltime)
}

// CycleImpl runs one settling cycle.  The state pass runs bottom-up in
// layer-index order in the calling goroutine: it reads only the previous
// cycle's errors, and the strict ordering keeps the update reproducible.
// The prediction / error recompute runs strictly afterward, and its
// per-layer computations are independent, so they go through the threaded
// layer dispatch.
func (nt *Network) CycleImpl(ltime *Time) {
	nt.FunTimerStart("UpdtState")
	for _, ly := range nt.Layers {
		if ly.IsOff() {
			continue
		}
		ly.UpdtState(&nt.Settle)
	}
	nt.FunTimerStop("UpdtState")
	nt.ThrLayFun(func(ly GncnLayer) { ly.ActFmState() }, "ActFmState")
	nt.ThrLayFun(func(ly GncnLayer) { ly.PredErr() }, "PredErr")
	nt.ThrLayFun(func(ly GncnLayer) { ly.AvgMaxStats() }, "AvgMaxStats")
}

// TotalDiscrepancy returns the total discrepancy of the settled state: the
// sum of squared prediction errors over the DiscLayers subset.  Requires a
// prior Infer on this network.  Always >= 0.
func (nt *Network) TotalDiscrepancy() (float32, error) {
	if nt.Batch == 0 {
		return 0, fmt.Errorf("gncn.Network %v: TotalDiscrepancy requires a prior Infer", nt.Nm)
	}
	tot := float32(0)
	for _, li := range nt.DiscLayers {
		tot += nt.Layers[li].AsGncn().Discrepancy()
	}
	return tot, nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  Learn methods

// DWt computes the local weight gradients from the settled state, for the
// external optimizer to consume: first all Gen pathways (the batch-averaged
// Hebbian correlation), then all Err pathways (each copying the transpose
// of its reciprocal Gen gradient).  Weights themselves are not changed.
// Requires a prior Infer on this network.
func (nt *Network) DWt() error {
	if nt.Batch == 0 {
		return fmt.Errorf("gncn.Network %v: DWt requires a prior Infer", nt.Nm)
	}
	nt.ThrLayFun(func(ly GncnLayer) { ly.DWt(Gen) }, "DWt")
	nt.ThrLayFun(func(ly GncnLayer) { ly.DWt(Err) }, "RecipDWt")
	return nil
}

// ClipWts re-projects every weight column in the network onto the unit norm
// ball, dividing by max(norm, 1).  Called after every optimizer step, and
// once by InitWts.  Idempotent.
func (nt *Network) ClipWts() {
	nt.ThrLayFun(func(ly GncnLayer) { ly.ClipWts() }, "ClipWts")
}

//////////////////////////////////////////////////////////////////////////////////////
//  MPI sharing

// CollectDWts writes all of the pathway gradient values to given dwts slice,
// which is pre-allocated to given nwts size if dwts is nil, in which case
// the method returns true so that the actual length of dwts can be passed
// next time around.  Used for MPI sharing of weight changes across processors.
func (nt *Network) CollectDWts(dwts *[]float32, nwts int) bool {
	idx := 0
	made := false
	if *dwts == nil {
		*dwts = make([]float32, 0, nwts)
		made = true
	}
	for _, lyi := range nt.Layers {
		ly := lyi.AsGncn()
		for _, pji := range ly.RcvPrjns {
			pj := pji.AsGncn()
			ns := len(pj.DWt.Values)
			nsz := idx + ns
			if len(*dwts) < nsz {
				*dwts = append(*dwts, make([]float32, nsz-len(*dwts))...)
			}
			copy((*dwts)[idx:nsz], pj.DWt.Values)
			idx += ns
		}
	}
	return made
}

// SetDWts sets the pathway gradient values from given array of floats,
// which must be the correct size, i.e. as returned by CollectDWts.
func (nt *Network) SetDWts(dwts []float32) {
	idx := 0
	for _, lyi := range nt.Layers {
		ly := lyi.AsGncn()
		for _, pji := range ly.RcvPrjns {
			pj := pji.AsGncn()
			ns := len(pj.DWt.Values)
			copy(pj.DWt.Values, dwts[idx:idx+ns])
			idx += ns
		}
	}
}
