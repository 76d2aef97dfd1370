// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"github.com/emer/emergent/v2/emer"
	"github.com/emer/emergent/v2/params"
	"github.com/emer/etable/v2/etensor"
)

// gncn.LayerStru manages the structural elements of the layer, which are
// common to any Layer type
type LayerStru struct {
	GncnLay  GncnLayer     `copy:"-" json:"-" xml:"-" view:"-" desc:"we need a pointer to ourselves as a GncnLayer, which can always be used to extract the true underlying type of object when layer is embedded in other structs -- function receivers do not have this ability so this is necessary."`
	Network  GncnNetwork   `copy:"-" json:"-" xml:"-" view:"-" desc:"our parent network, in case we need to use it to find other layers etc -- set when added by network"`
	Nm       string        `desc:"Name of the layer -- this must be unique within the network, which has a map for quick lookup and layers are typically accessed directly by name"`
	Cls      string        `desc:"Class is for applying parameter styles, can be space separated multple tags"`
	Off      bool          `desc:"inactivate this layer -- allows for easy experimentation"`
	Shp      etensor.Shape `desc:"shape of the layer's units -- 2D (Y, X) for display purposes -- the layer state is a flat [batch, units] vector over Shp.Len() units"`
	Typ      LayerTypes    `desc:"role of the layer in the hierarchy -- Input (clamped), Hidden, or Top -- matches against .Class parameter styles (e.g., .Hidden etc)"`
	Thr      int           `desc:"the thread number (go routine) to use in updating this layer. The user is responsible for allocating layers to threads, trying to maintain an even distribution across layers and establishing good break-points."`
	Idx      int           `desc:"a 0..L index of the position of the layer within the hierarchy: 0 = input, L = top.  Set by the network builder and used to order the state-update pass."`
	RcvPrjns []GncnPrjn    `desc:"list of receiving pathways into this layer from other layers"`
	SndPrjns []GncnPrjn    `desc:"list of sending pathways from this layer to other layers"`
}

// InitName MUST be called to initialize the layer's pointer to itself as a GncnLayer
// which enables the proper interface methods to be called.  Also sets the name, and
// the parent network that this layer belongs to (which layers may want to retain).
func (ls *LayerStru) InitName(lay GncnLayer, name string, net GncnNetwork) {
	ls.GncnLay = lay
	ls.Nm = name
	ls.Network = net
}

func (ls *LayerStru) Name() string             { return ls.Nm }
func (ls *LayerStru) SetName(nm string)        { ls.Nm = nm }
func (ls *LayerStru) Label() string            { return ls.Nm }
func (ls *LayerStru) Class() string            { return ls.Typ.String() + " " + ls.Cls }
func (ls *LayerStru) SetClass(cls string)      { ls.Cls = cls }
func (ls *LayerStru) TypeName() string         { return "Layer" } // type category, for params..
func (ls *LayerStru) Type() LayerTypes         { return ls.Typ }
func (ls *LayerStru) SetType(typ LayerTypes)   { ls.Typ = typ }
func (ls *LayerStru) IsOff() bool              { return ls.Off }
func (ls *LayerStru) SetOff(off bool)          { ls.Off = off }
func (ls *LayerStru) Shape() *etensor.Shape    { return &ls.Shp }
func (ls *LayerStru) NUnits() int              { return ls.Shp.Len() }
func (ls *LayerStru) Thread() int              { return ls.Thr }
func (ls *LayerStru) SetThread(thr int)        { ls.Thr = thr }
func (ls *LayerStru) Index() int               { return ls.Idx }
func (ls *LayerStru) SetIndex(idx int)         { ls.Idx = idx }
func (ls *LayerStru) RecvPrjns() *[]GncnPrjn   { return &ls.RcvPrjns }
func (ls *LayerStru) NRecvPrjns() int          { return len(ls.RcvPrjns) }
func (ls *LayerStru) RecvPrjn(idx int) GncnPrjn { return ls.RcvPrjns[idx] }
func (ls *LayerStru) SendPrjns() *[]GncnPrjn   { return &ls.SndPrjns }
func (ls *LayerStru) NSendPrjns() int          { return len(ls.SndPrjns) }
func (ls *LayerStru) SendPrjn(idx int) GncnPrjn { return ls.SndPrjns[idx] }

// SetShape sets the layer unit shape and also uses default dim names
func (ls *LayerStru) SetShape(shape []int) {
	var dnms []string
	if len(shape) == 2 {
		dnms = emer.LayerDimNames2D
	}
	ls.Shp.SetShape(shape, nil, dnms) // row major default
}

// RecipToSendPrjn finds the reciprocal pathway relative to the given sending
// pathway found within the SendPrjns of this layer.  This is then a recv prjn
// within this layer:
//  S=A -> R=B recip: R=A <- S=B -- ly = A -- we are the sender of srj and recv of rpj.
// returns false if not found.  Used to pair each Err pathway with the Gen
// pathway whose gradient transpose it copies.
func (ls *LayerStru) RecipToSendPrjn(spj GncnPrjn) (GncnPrjn, bool) {
	for _, rpj := range ls.RcvPrjns {
		if rpj.AsGncn().Send == spj.AsGncn().Recv {
			return rpj, true
		}
	}
	return nil, false
}

// Config configures the basic properties of the layer
func (ls *LayerStru) Config(shape []int, typ LayerTypes) {
	ls.SetShape(shape)
	ls.Typ = typ
}

// ApplyParams applies given parameter style Sheet to this layer and its recv pathways.
// Calls UpdateParams on anything set to ensure derived parameters are all updated.
// If setMsg is true, then a message is printed to confirm each parameter that is set.
// it always prints a message if a parameter fails to be set.
// returns true if any params were set, and error if there were any errors.
func (ls *LayerStru) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	applied := false
	var rerr error
	app, err := pars.Apply(ls.GncnLay, setMsg) // essential to go through GncnLay
	if app {
		ls.GncnLay.UpdateParams()
		applied = true
	}
	if err != nil {
		rerr = err
	}
	for _, pj := range ls.RcvPrjns {
		app, err = pj.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			rerr = err
		}
	}
	return applied, rerr
}
