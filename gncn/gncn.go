// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"io"

	"github.com/emer/emergent/v2/params"
	"github.com/emer/emergent/v2/prjn"
	"github.com/emer/emergent/v2/weights"
)

// GncnLayer defines the essential algorithmic API for the gncn layer,
// for the network settling and learning passes, which is implemented
// by the Layer type.  Specialized layer types can embed Layer and
// override any of these methods while the network code continues to
// work through this interface.
type GncnLayer interface {
	// AsGncn returns this layer as a gncn.Layer -- all derived layers must
	// redefine this to return the base Layer type, so the interface does
	// not need accessors for all the basic structural state.
	AsGncn() *Layer

	// InitName initializes the layer's name and network back-pointer,
	// with the self-interface pointer that enables method overriding
	// through embedded types
	InitName(lay GncnLayer, name string, net GncnNetwork)

	// Name returns the layer's name, unique within the network
	Name() string

	// Label returns the display label for the layer
	Label() string

	// IsOff returns true if the layer has been turned off (inactivated)
	IsOff() bool

	// SetShape sets the layer's unit shape
	SetShape(shape []int)

	// SetType sets the layer's functional type
	SetType(typ LayerTypes)

	// Index returns the layer's index within the network's layer list,
	// which is its position in the generative hierarchy (0 = input)
	Index() int

	// SetIndex sets the layer's index
	SetIndex(idx int)

	// Thread returns the thread number (goroutine) this layer is assigned to
	Thread() int

	// Defaults sets default parameter values for all params
	Defaults()

	// UpdateParams updates all the derived parameters if any have changed
	UpdateParams()

	// ApplyParams applies given parameter style Sheet to this layer and its
	// recv pathways
	ApplyParams(pars *params.Sheet, setMsg bool) (bool, error)

	// Build constructs the layer's unit dimension and pathway state
	Build() error

	// InitWts initializes the weight values in all recv pathways
	InitWts()

	// AllocState allocates the batched state tensors (Z, ActZ, Mu, Err, Drv)
	// for the given batch size, zeroing all values
	AllocState(batch int)

	// UpdtState runs one leaky-integrator state update from the current
	// errors: Z += Beta * (-Gamma*Z + Drv), with Drv = sum of incoming
	// routed errors minus the layer's own error
	UpdtState(sp *SettleParams)

	// ActFmState computes the activated state ActZ = Phi(Z)
	ActFmState()

	// PredErr recomputes the top-down prediction Mu from the upper layer's
	// activated state, and the prediction error Err from it
	PredErr()

	// AvgMaxStats updates the layer's AvgMax statistics over Z and Err
	AvgMaxStats()

	// DWt computes local weight gradients on all recv pathways of given type
	DWt(typ PrjnTypes)

	// ClipWts re-projects the weight columns of all recv pathways onto the
	// unit norm ball
	ClipWts()

	// WriteWtsJSON writes weights for this layer in JSON format
	WriteWtsJSON(w io.Writer, depth int)

	// SetWts sets the weights for this layer from decoded weight values
	SetWts(lw *weights.Layer) error

	// VarRange returns the min / max values of given state variable
	// (Z, ActZ, Mu, Err, Drv) across the batch
	VarRange(varNm string) (min, max float32, err error)

	// StateMemSize returns the size in bytes of the layer's state tensors
	StateMemSize() int
}

// GncnPrjn defines the essential algorithmic API for a gncn pathway,
// implemented by the Prjn type.
type GncnPrjn interface {
	// AsGncn returns this prjn as a gncn.Prjn -- see GncnLayer.AsGncn
	AsGncn() *Prjn

	// Init initializes the self-interface pointer, which enables method
	// overriding through embedded types -- must be called on any new prjn
	Init(pj GncnPrjn)

	// Connect sets the sending and receiving layers, connectivity pattern
	// and type of the pathway
	Connect(slay, rlay GncnLayer, pat prjn.Pattern, typ PrjnTypes)

	// IsOff returns true if the pathway or either of its layers is off
	IsOff() bool

	// Defaults sets default parameter values for all params
	Defaults()

	// UpdateParams updates all the derived parameters if any have changed
	UpdateParams()

	// ApplyParams applies given parameter style Sheet to this pathway
	ApplyParams(pars *params.Sheet, setMsg bool) (bool, error)

	// Build allocates the dense weight and gradient matrices
	Build() error

	// InitWts initializes the weight values from the WtInit distribution
	InitWts()

	// DWtImpl computes the local weight gradient from the settled state,
	// writing it into the DWt tensor
	DWtImpl()

	// ClipWts divides each weight column by max(norm, 1)
	ClipWts()

	// WriteWtsJSON writes weights for this pathway in JSON format
	WriteWtsJSON(w io.Writer, depth int)

	// SetWts sets the weights for this pathway from decoded weight values
	SetWts(pw *weights.Prjn) error

	// WtMemSize returns the size in bytes of the weight and gradient matrices
	WtMemSize() int
}

// GncnNetwork defines the essential algorithmic API for a gncn network,
// implemented by the Network type.  The structural methods on
// NetworkStru call through this interface so that specialized network
// types can substitute their own layer / pathway types or override the
// settling passes.
type GncnNetwork interface {
	// AsGncn returns this network as a gncn.Network
	AsGncn() *Network

	// NewLayer creates a new concrete layer of the network's type
	NewLayer() GncnLayer

	// NewPrjn creates a new concrete pathway of the network's type
	NewPrjn() GncnPrjn

	// CycleImpl runs one settling cycle (state pass then prediction /
	// error pass) -- the overridable implementation called by Cycle
	CycleImpl(ltime *Time)
}

// Tensor shape dimension names for the batched layer state
var StateDimNames = []string{"Batch", "Unit"}

// Tensor shape dimension names for the dense weight matrices
var WtDimNames = []string{"Send", "Recv"}

// compile-time checks that the base types implement the interfaces
var (
	_ GncnLayer   = (*Layer)(nil)
	_ GncnPrjn    = (*Prjn)(nil)
	_ GncnNetwork = (*Network)(nil)
)
