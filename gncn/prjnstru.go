// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"errors"
	"log"

	"github.com/emer/emergent/v2/params"
	"github.com/emer/emergent/v2/prjn"
)

// gncn.PrjnStru contains the basic structural information for specifying a
// pathway between two layers.  The same struct object is added to the Recv
// and Send layers' pathway lists, and methods on the Prjn handle all the
// relevant computation.
type PrjnStru struct {
	GncnPrj GncnPrjn     `copy:"-" json:"-" xml:"-" view:"-" desc:"we need a pointer to ourselves as a GncnPrjn, which can always be used to extract the true underlying type of object when prjn is embedded in other structs -- function receivers do not have this ability so this is necessary."`
	Off     bool         `desc:"inactivate this pathway -- allows for easy experimentation"`
	Cls     string       `desc:"Class is for applying parameter styles, can be space separated multple tags"`
	Notes   string       `desc:"can record notes about this pathway here"`
	Send    GncnLayer    `desc:"sending layer for this pathway"`
	Recv    GncnLayer    `desc:"receiving layer for this pathway"`
	Pat     prjn.Pattern `desc:"pattern of connectivity -- the dense GNCN engine requires a Full pattern, which is validated at Build"`
	Typ     PrjnTypes    `desc:"type of pathway -- Gen (top-down generative) or Err (bottom-up error routing) -- matches against .Cls parameter styles (e.g., .Gen etc)"`
	Recip   GncnPrjn     `copy:"-" json:"-" xml:"-" view:"-" desc:"the reciprocal pathway between the same two layers in the opposite direction -- set during network Build.  An Err pathway's gradient is the transpose of its reciprocal Gen pathway's gradient."`
}

// Init MUST be called to initialize the prjn's pointer to itself as a GncnPrjn
// which enables the proper interface methods to be called.
func (ps *PrjnStru) Init(pj GncnPrjn) {
	ps.GncnPrj = pj
}

func (ps *PrjnStru) TypeName() string { return "Prjn" } // always, for params..
func (ps *PrjnStru) Class() string    { return ps.Typ.String() + " " + ps.Cls }
func (ps *PrjnStru) SetClass(cls string) {
	ps.Cls = cls
}
func (ps *PrjnStru) Name() string {
	return ps.Send.Name() + "To" + ps.Recv.Name()
}
func (ps *PrjnStru) Label() string          { return ps.Name() }
func (ps *PrjnStru) RecvLay() GncnLayer     { return ps.Recv }
func (ps *PrjnStru) SendLay() GncnLayer     { return ps.Send }
func (ps *PrjnStru) Pattern() prjn.Pattern  { return ps.Pat }
func (ps *PrjnStru) Type() PrjnTypes        { return ps.Typ }
func (ps *PrjnStru) SetType(typ PrjnTypes)  { ps.Typ = typ }
func (ps *PrjnStru) PrjnTypeName() string   { return ps.Typ.String() }

func (ps *PrjnStru) IsOff() bool {
	return ps.Off || ps.Recv.IsOff() || ps.Send.IsOff()
}
func (ps *PrjnStru) SetOff(off bool) { ps.Off = off }

// Connect sets the connectivity between two layers and the pattern to use
// in interconnecting them
func (ps *PrjnStru) Connect(slay, rlay GncnLayer, pat prjn.Pattern, typ PrjnTypes) {
	ps.Send = slay
	ps.Recv = rlay
	ps.Pat = pat
	ps.Typ = typ
}

// Validate tests for non-nil settings for the pathway, and that the pattern
// is the Full connectivity the dense weight matrices require -- returns
// error message or nil if no problems (and logs them if logmsg = true)
func (ps *PrjnStru) Validate(logmsg bool) error {
	emsg := ""
	if ps.Pat == nil {
		emsg += "Pat is nil; "
	}
	if ps.Recv == nil {
		emsg += "Recv is nil; "
	}
	if ps.Send == nil {
		emsg += "Send is nil; "
	}
	if ps.Pat != nil {
		if _, ok := ps.Pat.(*prjn.Full); !ok {
			emsg += "Pat must be prjn.Full for the dense GNCN weight matrices; "
		}
	}
	if emsg != "" {
		err := errors.New(emsg)
		if logmsg {
			log.Println(emsg)
		}
		return err
	}
	return nil
}

// ApplyParams applies given parameter style Sheet to this pathway.
// Calls UpdateParams if anything set to ensure derived parameters are all updated.
// If setMsg is true, then a message is printed to confirm each parameter that is set.
// it always prints a message if a parameter fails to be set.
// returns true if any params were set, and error if there were any errors.
func (ps *PrjnStru) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(ps.GncnPrj, setMsg) // essential to go through GncnPrj
	if app {
		ps.GncnPrj.UpdateParams()
	}
	return app, err
}
