// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"fmt"
	"io"
	"strconv"

	"github.com/emer/emergent/v2/weights"
	"github.com/emer/etable/v2/etensor"
	"github.com/goki/ki/indent"
	"github.com/goki/ki/ki"
	"github.com/goki/ki/kit"
	"github.com/goki/mat32"
)

// gncn.Prjn is a dense pathway between two layers, holding the full weight
// matrix and its gradient.  Weights are stored send-major: Wt is
// [send units, recv units], so Wt[si, ri] connects sending unit si to
// receiving unit ri, and a "column" (per spec of the norm invariant) is
// the weights into one receiving unit across all senders.
type Prjn struct {
	PrjnStru
	WtInit WtInitParams    `view:"inline" desc:"initial random weight distribution -- drawn independently for Gen and Err pathways, never transposed from the reciprocal"`
	Wt     etensor.Float32 `view:"-" desc:"weight matrix, [send, recv] -- mutated only by the external optimizer step and ClipWts"`
	DWt    etensor.Float32 `view:"-" desc:"weight gradient, [send, recv] -- written by DWt for the external minimizing optimizer to consume; never applied internally"`
}

var KiT_Prjn = kit.Types.AddType(&Prjn{}, PrjnProps)

var PrjnProps = ki.Props{}

// AsGncn returns this prjn as a gncn.Prjn -- all derived prjns must redefine
// this to return the base Prjn type, so that the GncnPrjn interface does not
// need to include accessors to all the basic stuff.
func (pj *Prjn) AsGncn() *Prjn {
	return pj
}

func (pj *Prjn) Defaults() {
	pj.WtInit.Defaults()
}

// UpdateParams updates all params given any changes that might have been made
// to individual values
func (pj *Prjn) UpdateParams() {
}

// NSend returns the number of sending units
func (pj *Prjn) NSend() int { return pj.Send.AsGncn().NUnits() }

// NRecv returns the number of receiving units
func (pj *Prjn) NRecv() int { return pj.Recv.AsGncn().NUnits() }

// Build allocates the dense weight and gradient matrices according to the
// send and recv layer sizes.  Calls Validate and returns error if invalid.
func (pj *Prjn) Build() error {
	if err := pj.Validate(true); err != nil {
		return err
	}
	sn := pj.NSend()
	rn := pj.NRecv()
	shp := []int{sn, rn}
	pj.Wt.SetShape(shp, nil, WtDimNames)
	pj.DWt.SetShape(shp, nil, WtDimNames)
	return nil
}

//////////////////////////////////////////////////////////////////////////////////////
//  Init methods

// InitWts initializes weight values from the WtInit random distribution,
// and zeros the gradient.  Gen and Err pathways draw independently -- the
// two are never initialized as transposes of each other.
func (pj *Prjn) InitWts() {
	for i := range pj.Wt.Values {
		pj.Wt.Values[i] = float32(pj.WtInit.Gen(-1))
	}
	pj.InitDWt()
}

// InitDWt zeros the weight gradient
func (pj *Prjn) InitDWt() {
	for i := range pj.DWt.Values {
		pj.DWt.Values[i] = 0
	}
}

// SetWtsFunc initializes the weight values using given function based on
// sending and receiving unit indexes -- used for fixed-weight test fixtures.
func (pj *Prjn) SetWtsFunc(wtFun func(si, ri int) float32) {
	rn := pj.NRecv()
	sn := pj.NSend()
	for si := 0; si < sn; si++ {
		for ri := 0; ri < rn; ri++ {
			pj.Wt.Values[si*rn+ri] = wtFun(si, ri)
		}
	}
}

// SynVal returns the weight value between given send, recv unit indexes.
// Returns mat32.NaN() for access errors.
func (pj *Prjn) SynVal(si, ri int) float32 {
	rn := pj.NRecv()
	if si < 0 || si >= pj.NSend() || ri < 0 || ri >= rn {
		return mat32.NaN()
	}
	return pj.Wt.Values[si*rn+ri]
}

// SetSynVal sets the weight value between given send, recv unit indexes.
// Returns error for access errors.
func (pj *Prjn) SetSynVal(si, ri int, val float32) error {
	rn := pj.NRecv()
	if si < 0 || si >= pj.NSend() {
		return fmt.Errorf("Prjn.SetSynVal: send unit index %v out of range for prjn %v", si, pj.Name())
	}
	if ri < 0 || ri >= rn {
		return fmt.Errorf("Prjn.SetSynVal: recv unit index %v out of range for prjn %v", ri, pj.Name())
	}
	pj.Wt.Values[si*rn+ri] = val
	return nil
}

// WtMemSize returns the size in bytes of the weight and gradient matrices
func (pj *Prjn) WtMemSize() int {
	return 4 * (len(pj.Wt.Values) + len(pj.DWt.Values))
}

//////////////////////////////////////////////////////////////////////////////////////
//  Settle methods

// AddErrDrive accumulates the sending layer's error, routed through this
// Err pathway's weights, into the receiving layer's drive buffer:
//  drv[b, ri] += sum_si Err_send[b, si] * Wt[si, ri]
func (pj *Prjn) AddErrDrive(drv []float32) {
	slay := pj.Send.AsGncn()
	sn := pj.NSend()
	rn := pj.NRecv()
	bs := slay.Err.Dim(0)
	ev := slay.Err.Values
	wv := pj.Wt.Values
	for b := 0; b < bs; b++ {
		erow := ev[b*sn : (b+1)*sn]
		drow := drv[b*rn : (b+1)*rn]
		for si, e := range erow {
			if e == 0 {
				continue
			}
			wrow := wv[si*rn : (si+1)*rn]
			for ri := range drow {
				drow[ri] += e * wrow[ri]
			}
		}
	}
}

// SendPred computes the linear top-down prediction of the receiving layer
// from the sending (upper) layer's activated state through this Gen
// pathway's weights, overwriting mu:
//  mu[b, ri] = sum_si ActZ_send[b, si] * Wt[si, ri]
// The receiving layer applies its G function afterward.
func (pj *Prjn) SendPred(mu *etensor.Float32) {
	slay := pj.Send.AsGncn()
	sn := pj.NSend()
	rn := pj.NRecv()
	bs := slay.ActZ.Dim(0)
	av := slay.ActZ.Values
	wv := pj.Wt.Values
	mv := mu.Values
	for i := range mv {
		mv[i] = 0
	}
	for b := 0; b < bs; b++ {
		arow := av[b*sn : (b+1)*sn]
		mrow := mv[b*rn : (b+1)*rn]
		for si, a := range arow {
			if a == 0 {
				continue
			}
			wrow := wv[si*rn : (si+1)*rn]
			for ri := range mrow {
				mrow[ri] += a * wrow[ri]
			}
		}
	}
}

//////////////////////////////////////////////////////////////////////////////////////
//  Learn methods

// DWtImpl computes the local weight gradient from the settled state,
// writing it into the DWt tensor.
// For a Gen pathway (send = upper layer l+1, recv = lower layer l):
//  DWt[si, ri] = -(1/batch) * sum_b ActZ_send[b, si] * Err_recv[b, ri]
// which is the batch-averaged Hebbian correlation of the upper layer's
// activated state with the lower layer's error, negated so a minimizing
// optimizer's descent step reduces prediction error.
// For an Err pathway, the gradient is the transpose of the reciprocal Gen
// pathway's gradient -- of the gradient, never of the weight values -- so
// Gen gradients must be computed first (the network's DWt does this).
func (pj *Prjn) DWtImpl() {
	sn := pj.NSend()
	rn := pj.NRecv()
	dv := pj.DWt.Values
	if pj.Typ == Err {
		rpj := pj.Recip.AsGncn()
		rdv := rpj.DWt.Values
		for si := 0; si < sn; si++ {
			for ri := 0; ri < rn; ri++ {
				dv[si*rn+ri] = rdv[ri*sn+si]
			}
		}
		return
	}
	slay := pj.Send.AsGncn()
	rlay := pj.Recv.AsGncn()
	bs := slay.ActZ.Dim(0)
	av := slay.ActZ.Values
	ev := rlay.Err.Values
	for i := range dv {
		dv[i] = 0
	}
	for b := 0; b < bs; b++ {
		arow := av[b*sn : (b+1)*sn]
		erow := ev[b*rn : (b+1)*rn]
		for si, a := range arow {
			if a == 0 {
				continue
			}
			drow := dv[si*rn : (si+1)*rn]
			for ri, e := range erow {
				drow[ri] += a * e
			}
		}
	}
	avgFact := -1 / float32(bs)
	for i := range dv {
		dv[i] *= avgFact
	}
}

// ClipWts divides each weight column (the weights into one receiving unit,
// across all senders) by max(norm, 1), re-projecting it onto the unit norm
// ball.  Idempotent: a second call with no intervening update is a no-op.
func (pj *Prjn) ClipWts() {
	sn := pj.NSend()
	rn := pj.NRecv()
	wv := pj.Wt.Values
	for ri := 0; ri < rn; ri++ {
		ss := float32(0)
		for si := 0; si < sn; si++ {
			v := wv[si*rn+ri]
			ss += v * v
		}
		nrm := mat32.Sqrt(ss)
		if nrm > 1 {
			for si := 0; si < sn; si++ {
				wv[si*rn+ri] /= nrm
			}
		}
	}
}

///////////////////////////////////////////////////////////////////////
//  Weights File

// WriteWtsJSON writes the weights from this pathway from the receiver-side
// perspective in a JSON text format.  We build in the indentation logic to
// make it much faster and more efficient.
func (pj *Prjn) WriteWtsJSON(w io.Writer, depth int) {
	slay := pj.Send.AsGncn()
	sn := pj.NSend()
	rn := pj.NRecv()
	wv := pj.Wt.Values
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"From\": %q,\n", slay.Name())))
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("\"Rs\": [\n"))
	depth++
	for ri := 0; ri < rn; ri++ {
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("{\n"))
		depth++
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("\"Ri\": %v,\n", ri)))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte(fmt.Sprintf("\"N\": %v,\n", sn)))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("\"Si\": [ "))
		for si := 0; si < sn; si++ {
			w.Write([]byte(fmt.Sprintf("%v", si)))
			if si == sn-1 {
				w.Write([]byte(" "))
			} else {
				w.Write([]byte(", "))
			}
		}
		w.Write([]byte("],\n"))
		w.Write(indent.TabBytes(depth))
		w.Write([]byte("\"Wt\": [ "))
		for si := 0; si < sn; si++ {
			w.Write([]byte(strconv.FormatFloat(float64(wv[si*rn+ri]), 'g', weights.Prec, 32)))
			if si == sn-1 {
				w.Write([]byte(" "))
			} else {
				w.Write([]byte(", "))
			}
		}
		w.Write([]byte("]\n"))
		depth--
		w.Write(indent.TabBytes(depth))
		if ri == rn-1 {
			w.Write([]byte("}\n"))
		} else {
			w.Write([]byte("},\n"))
		}
	}
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("]\n"))
	depth--
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("}")) // note: leave unterminated as outer loop needs to add , or just \n depending
}

// ReadWtsJSON reads the weights from this pathway from the receiver-side
// perspective in a JSON text format.  This is for a set of weights that
// were saved *for one prjn only* and is not used for the network-level
// ReadWtsJSON, which reads into a separate structure -- see SetWts method.
func (pj *Prjn) ReadWtsJSON(r io.Reader) error {
	pw, err := weights.PrjnReadJSON(r)
	if err != nil {
		return err // note: already logged
	}
	return pj.SetWts(pw)
}

// SetWts sets the weights for this pathway from weights.Prjn decoded values
func (pj *Prjn) SetWts(pw *weights.Prjn) error {
	var err error
	for i := range pw.Rs {
		pr := &pw.Rs[i]
		for si := range pr.Si {
			er := pj.SetSynVal(pr.Si[si], pr.Ri, pr.Wt[si])
			if er != nil {
				err = er
			}
		}
	}
	return err
}
