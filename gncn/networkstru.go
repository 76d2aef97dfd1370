// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gncn

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/v2/params"
	"github.com/emer/emergent/v2/prjn"
	"github.com/emer/emergent/v2/timer"
	"github.com/emer/emergent/v2/weights"
	"github.com/goki/gi/gi"
	"github.com/goki/ki/indent"
	"github.com/goki/ki/ints"
)

// gncn.NetworkStru holds the basic structural components of a network
// (layers, threading state) -- the algorithm-level Network embeds this.
type NetworkStru struct {

	// we need a pointer to ourselves as a GncnNetwork, which can always
	// be used to extract the true underlying type of object when network
	// is embedded in other structs -- function receivers do not have this
	// ability so this is necessary.
	GncnNet GncnNetwork `copy:"-" json:"-" xml:"-" view:"-"`

	// overall name of network -- helps discriminate if there are multiple
	Nm string

	// list of layers, in bottom-up order: Layers[0] is the clamped input
	// layer and subsequent entries are progressively higher in the
	// generative hierarchy
	Layers []GncnLayer

	// filename of last weights file loaded or saved
	WtsFile string

	// map of name to layers -- layer names must be unique
	LayMap map[string]GncnLayer `view:"-"`

	// optional metadata that is saved in network weights files --
	// e.g., can indicate number of epochs that were trained,
	// or any other information about this network that would be useful to save
	MetaData map[string]string

	// number of parallel threads (go routines) to use --
	// this is computed directly from the Layers which you must explicitly
	// allocate to different threads -- updated during Build of network
	NThreads int `inactive:"+"`

	// layers per thread -- outer group is threads and inner is layers operated on by that thread -- based on user-assigned threads, initialized during Build
	ThrLay [][]GncnLayer `view:"-" inactive:"+"`

	// layer function channels, per thread
	ThrChans []LayFunChan `view:"-"`

	// timers for each thread, so you can see how evenly the workload is being distributed
	ThrTimes []timer.Time `view:"-"`

	// timers for each major function (settle, learn)
	FunTimes map[string]*timer.Time `view:"-"`

	// network-level wait group for synchronizing threaded layer calls
	WaitGp sync.WaitGroup `view:"-"`
}

// LayFunChan is a channel that runs GncnLayer functions
type LayFunChan chan func(ly GncnLayer)

// InitName MUST be called to initialize the network's pointer to itself as
// a GncnNetwork, which enables the proper interface methods to be called.
// Also sets the name.
func (nt *NetworkStru) InitName(net GncnNetwork, name string) {
	nt.GncnNet = net
	nt.Nm = name
}

// emer.Network interface methods:
func (nt *NetworkStru) Name() string      { return nt.Nm }
func (nt *NetworkStru) Label() string     { return nt.Nm }
func (nt *NetworkStru) NLayers() int      { return len(nt.Layers) }
func (nt *NetworkStru) Layer(idx int) GncnLayer { return nt.Layers[idx] }

// LayerByName returns a layer by looking it up by name in the layer map
// (nil if not found).
// Will create the layer map if it is nil or a different size than layers slice,
// but otherwise needs to be updated manually.
func (nt *NetworkStru) LayerByName(name string) GncnLayer {
	if nt.LayMap == nil || len(nt.LayMap) != len(nt.Layers) {
		nt.MakeLayMap()
	}
	ly := nt.LayMap[name]
	return ly
}

// LayerByNameTry returns a layer by looking it up by name -- emits a log error message
// if layer is not found
func (nt *NetworkStru) LayerByNameTry(name string) (GncnLayer, error) {
	ly := nt.LayerByName(name)
	if ly == nil {
		err := fmt.Errorf("Layer named: %v not found in Network: %v\n", name, nt.Nm)
		log.Println(err)
		return ly, err
	}
	return ly, nil
}

// MakeLayMap updates layer map based on current layers
func (nt *NetworkStru) MakeLayMap() {
	nt.LayMap = make(map[string]GncnLayer, len(nt.Layers))
	for _, ly := range nt.Layers {
		nt.LayMap[ly.Name()] = ly
	}
}

// AddLayerInit is implementation routine that takes a given layer and
// adds it to the network, and initializes and configures it properly.
func (nt *NetworkStru) AddLayerInit(ly GncnLayer, name string, shape []int, typ LayerTypes) {
	if nt.GncnNet == nil {
		log.Printf("Network EmerNet is nil -- you MUST call InitName on network, passing a pointer to the network to initialize properly!")
		return
	}
	ly.InitName(ly, name, nt.GncnNet)
	ly.SetShape(shape)
	ly.SetType(typ)
	ly.SetIndex(len(nt.Layers))
	nt.Layers = append(nt.Layers, ly)
	nt.MakeLayMap()
}

// AddLayer adds a new layer with given name and shape to the network.
// 2D and 4D layer shapes are generally preferred but not essential -- see
// AddLayer2D and 4D for convenience methods for those.  4D layers enable
// pool (unit-group) level inhibition in Leabra networks, for example.
// shape is in row-major format with outer-most dimensions first:
// e.g., 4D 3, 2, 4, 5 = 3 rows (Y) of 2 cols (X) of pools, with each unit
// group having 4 rows (Y) of 5 (X) units.
func (nt *NetworkStru) AddLayer(name string, shape []int, typ LayerTypes) GncnLayer {
	ly := nt.GncnNet.NewLayer() // essential to use EmerNet interface here!
	nt.AddLayerInit(ly, name, shape, typ)
	return ly
}

// AddLayer2D adds a new layer with given name and 2D shape to the network.
// 2D and 4D layer shapes are generally preferred but not essential.
func (nt *NetworkStru) AddLayer2D(name string, shapeY, shapeX int, typ LayerTypes) GncnLayer {
	return nt.AddLayer(name, []int{shapeY, shapeX}, typ)
}

// ConnectLayerNames establishes a projection between two layers, referenced by name
// adding to the recv and send projection lists on each side of the connection.
// Returns error if not successful.
// Does not yet actually connect the units within the layers -- that requires Build.
func (nt *NetworkStru) ConnectLayerNames(send, recv string, pat prjn.Pattern, typ PrjnTypes) (rlay, slay GncnLayer, pj GncnPrjn, err error) {
	rlay, err = nt.LayerByNameTry(recv)
	if err != nil {
		return
	}
	slay, err = nt.LayerByNameTry(send)
	if err != nil {
		return
	}
	pj = nt.ConnectLayers(slay, rlay, pat, typ)
	return
}

// ConnectLayers establishes a projection between two layers,
// adding to the recv and send projection lists on each side of the connection.
// Does not yet actually connect the units within the layers -- that
// requires Build.
func (nt *NetworkStru) ConnectLayers(send, recv GncnLayer, pat prjn.Pattern, typ PrjnTypes) GncnPrjn {
	pj := nt.GncnNet.NewPrjn() // essential to use EmerNet interface here!
	pj.Init(pj)
	pj.AsGncn().Connect(send, recv, pat, typ)
	recv.AsGncn().RcvPrjns = append(recv.AsGncn().RcvPrjns, pj)
	send.AsGncn().SndPrjns = append(send.AsGncn().SndPrjns, pj)
	return pj
}

// Build constructs the layer and projection state based on the layer shapes
// and patterns of interconnectivity
func (nt *NetworkStru) Build() error {
	emsg := ""
	for li, ly := range nt.Layers {
		ly.SetIndex(li)
		if ly.IsOff() {
			continue
		}
		err := ly.Build()
		if err != nil {
			emsg += err.Error() + "\n"
		}
	}
	nt.BuildThreads()
	nt.StartThreads()
	if emsg != "" {
		return errors.New(emsg)
	}
	return nil
}

// ApplyParams applies given parameter style Sheet to layers and prjns in this network.
// Calls UpdateParams to ensure derived parameters are all updated.
// If setMsg is true, then a message is printed to confirm each parameter that is set.
// it always prints a message if a parameter fails to be set.
// returns true if any params were set, and error if there were any errors.
func (nt *NetworkStru) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	applied := false
	var rerr error
	for _, ly := range nt.Layers {
		app, err := ly.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			rerr = err
		}
	}
	return applied, rerr
}

//////////////////////////////////////////////////////////////////////////////////////
//  Weights File

// SaveWtsJSON saves network weights (and any other state that adapts with learning)
// to a JSON-formatted file.  If filename has .gz extension, then file is gzip compressed.
func (nt *NetworkStru) SaveWtsJSON(filename gi.FileName) error {
	fp, err := os.Create(string(filename))
	defer fp.Close()
	if err != nil {
		log.Println(err)
		return err
	}
	ext := filepath.Ext(string(filename))
	if ext == ".gz" {
		gzr := gzip.NewWriter(fp)
		err = nt.WriteWtsJSON(gzr)
		gzr.Close()
	} else {
		bw := bufio.NewWriter(fp)
		err = nt.WriteWtsJSON(bw)
		bw.Flush()
	}
	return err
}

// OpenWtsJSON opens network weights (and any other state that adapts with learning)
// from a JSON-formatted file.  If filename has .gz extension, then file is gzip uncompressed.
func (nt *NetworkStru) OpenWtsJSON(filename gi.FileName) error {
	fp, err := os.Open(string(filename))
	defer fp.Close()
	if err != nil {
		log.Println(err)
		return err
	}
	ext := filepath.Ext(string(filename))
	if ext == ".gz" {
		gzr, err := gzip.NewReader(fp)
		defer gzr.Close()
		if err != nil {
			log.Println(err)
			return err
		}
		return nt.ReadWtsJSON(gzr)
	} else {
		return nt.ReadWtsJSON(bufio.NewReader(fp))
	}
}

// WriteWtsJSON writes the weights from this network from the receiver-side perspective
// in a JSON text format.  We build in the indentation logic to make it much faster and
// more efficient.
func (nt *NetworkStru) WriteWtsJSON(w io.Writer) error {
	depth := 0
	w.Write(indent.TabBytes(depth))
	w.Write([]byte("{\n"))
	depth++
	w.Write(indent.TabBytes(depth))
	w.Write([]byte(fmt.Sprintf("\"Network\": %q,\n", nt.Nm)))
	w.Write(indent.TabBytes(depth))
	onls := make([]GncnLayer, 0, len(nt.Layers))
	for _, ly := range nt.Layers {
		if !ly.IsOff() {
			onls = append(onls, ly)
		}
	}
	nl := len(onls)
	if nl == 0 {
		w.Write([]byte("\"Layers\": null\n"))
	} else {
		w.Write([]byte("\"Layers\": [\n"))
		depth++
		for li, ly := range onls {
			ly.WriteWtsJSON(w, depth)
			if li == nl-1 {
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
	_, err := w.Write([]byte("}\n"))
	return err
}

// ReadWtsJSON reads network weights from the receiver-side perspective
// in a JSON text format.  Reads entire file into a temporary weights.Weights
// structure that is then passed to Layers etc using SetWts method.
func (nt *NetworkStru) ReadWtsJSON(r io.Reader) error {
	nw, err := weights.NetReadJSON(r)
	if err != nil {
		return err // note: already logged
	}
	err = nt.SetWts(nw)
	if err != nil {
		log.Println(err)
	}
	return err
}

// SetWts sets the weights for this network from weights.Network decoded values
func (nt *NetworkStru) SetWts(nw *weights.Network) error {
	var err error
	if nw.Network != "" {
		nt.Nm = nw.Network
	}
	if nw.MetaData != nil {
		if nt.MetaData == nil {
			nt.MetaData = nw.MetaData
		} else {
			for mk, mv := range nw.MetaData {
				nt.MetaData[mk] = mv
			}
		}
	}
	for li := range nw.Layers {
		lw := &nw.Layers[li]
		ly, er := nt.LayerByNameTry(lw.Layer)
		if er != nil {
			err = er
			continue
		}
		ly.SetWts(lw)
	}
	return err
}

// VarRange returns the min / max values for given variable
// todo: support r. s. projection values
func (nt *NetworkStru) VarRange(varNm string) (min, max float32, err error) {
	first := true
	for _, ly := range nt.Layers {
		lmin, lmax, lerr := ly.VarRange(varNm)
		if lerr != nil {
			err = lerr
			return
		}
		if first {
			min = lmin
			max = lmax
			first = false
			continue
		}
		if lmin < min {
			min = lmin
		}
		if lmax > max {
			max = lmax
		}
	}
	return
}

//////////////////////////////////////////////////////////////////////////////////////
//  Threading infrastructure

// StartThreads starts up the computation threads, which monitor the channels for work
func (nt *NetworkStru) StartThreads() {
	for th := 0; th < nt.NThreads; th++ {
		go nt.ThrWorker(th) // start the worker thread for this channel
	}
}

// StopThreads stops the computation threads
func (nt *NetworkStru) StopThreads() {
	for th := 0; th < nt.NThreads; th++ {
		close(nt.ThrChans[th])
	}
}

// ThrWorker is the worker function run by the worker threads
func (nt *NetworkStru) ThrWorker(tt int) {
	for fun := range nt.ThrChans[tt] {
		thly := nt.ThrLay[tt]
		nt.ThrTimes[tt].Start()
		for _, ly := range thly {
			if ly.IsOff() {
				continue
			}
			fun(ly)
		}
		nt.ThrTimes[tt].Stop()
		nt.WaitGp.Done()
	}
}

// ThrLayFun calls function on layers, using threaded (go routine worker) computation if
// NThreads > 1 and otherwise just iterates over layers in the current thread.
func (nt *NetworkStru) ThrLayFun(fun func(ly GncnLayer), funame string) {
	nt.FunTimerStart(funame)
	if nt.NThreads <= 1 {
		for _, ly := range nt.Layers {
			if ly.IsOff() {
				continue
			}
			fun(ly)
		}
	} else {
		for th := 0; th < nt.NThreads; th++ {
			nt.WaitGp.Add(1)
			nt.ThrChans[th] <- fun
		}
		nt.WaitGp.Wait()
	}
	nt.FunTimerStop(funame)
}

// SetNThreads distributes the layers across n threads round-robin, as a
// simple default allocation -- for uneven layer sizes, assign layer Thread
// values directly instead.  Must be called before Build.
func (nt *NetworkStru) SetNThreads(n int) {
	if n <= 0 {
		n = 1
	}
	for li, ly := range nt.Layers {
		ly.AsGncn().SetThread(li % n)
	}
}

// BuildThreads constructs the layer thread allocation based on Thread setting in the layers
func (nt *NetworkStru) BuildThreads() {
	nthr := 0
	for _, ly := range nt.Layers {
		if ly.IsOff() {
			continue
		}
		nthr = ints.MaxInt(nthr, ly.Thread())
	}
	nt.NThreads = nthr + 1
	nt.ThrLay = make([][]GncnLayer, nt.NThreads)
	nt.ThrChans = make([]LayFunChan, nt.NThreads)
	nt.ThrTimes = make([]timer.Time, nt.NThreads)
	nt.FunTimes = make(map[string]*timer.Time)
	for _, ly := range nt.Layers {
		if ly.IsOff() {
			continue
		}
		th := ly.Thread()
		nt.ThrLay[th] = append(nt.ThrLay[th], ly)
	}
	for th := 0; th < nt.NThreads; th++ {
		if len(nt.ThrLay[th]) == 0 {
			log.Printf("Network BuildThreads: Network %v has no layers for thread: %v\n", nt.Nm, th)
		}
		nt.ThrChans[th] = make(LayFunChan)
	}
}

// TimerReport reports the amount of time spent in each function, and in each thread
func (nt *NetworkStru) TimerReport() {
	fmt.Printf("TimerReport: %v, NThreads: %v\n", nt.Nm, nt.NThreads)
	fmt.Printf("\t%13s \t%7s\t%7s\n", "Function Name", "Secs", "Pct")
	nfn := len(nt.FunTimes)
	fnms := make([]string, nfn)
	idx := 0
	for k := range nt.FunTimes {
		fnms[idx] = k
		idx++
	}
	sort.StringSlice(fnms).Sort()
	pcts := make([]float64, nfn)
	tot := 0.0
	for i, fn := range fnms {
		pcts[i] = nt.FunTimes[fn].TotalSecs()
		tot += pcts[i]
	}
	for i, fn := range fnms {
		fmt.Printf("\t%13s \t%7.3f\t%7.1f\n", fn, pcts[i], 100*(pcts[i]/tot))
	}
	fmt.Printf("\t%13s \t%7.3f\n", "Total", tot)

	if nt.NThreads <= 1 {
		return
	}
	fmt.Printf("\n\tThr\tSecs\tPct\n")
	pcts = make([]float64, nt.NThreads)
	tot = 0.0
	for th := 0; th < nt.NThreads; th++ {
		pcts[th] = nt.ThrTimes[th].TotalSecs()
		tot += pcts[th]
	}
	for th := 0; th < nt.NThreads; th++ {
		fmt.Printf("\t%v \t%7.3f\t%7.1f\n", th, pcts[th], 100*(pcts[th]/tot))
	}
}

// ThrTimerReset resets the per-thread timers
func (nt *NetworkStru) ThrTimerReset() {
	for th := 0; th < nt.NThreads; th++ {
		nt.ThrTimes[th].Reset()
	}
}

// FunTimerStart starts function timer for given function name -- ensures creation of timer
func (nt *NetworkStru) FunTimerStart(fun string) {
	ft, ok := nt.FunTimes[fun]
	if !ok {
		ft = &timer.Time{}
		nt.FunTimes[fun] = ft
	}
	ft.Start()
}

// FunTimerStop stops function timer -- timer must already exist
func (nt *NetworkStru) FunTimerStop(fun string) {
	ft := nt.FunTimes[fun]
	ft.Stop()
}

// LayersMemSize returns the size in bytes of all layer state tensors
func (nt *NetworkStru) LayersMemSize() int {
	memtot := 0
	for _, ly := range nt.Layers {
		memtot += ly.StateMemSize()
	}
	return memtot
}

// SizeReport returns a string report of the size of the network
// in terms of state memory and weight (synapse) memory
func (nt *NetworkStru) SizeReport() string {
	var b strings.Builder
	stmem := 0
	wtmem := 0
	for _, ly := range nt.Layers {
		lsm := ly.StateMemSize()
		lwm := 0
		for _, pj := range ly.AsGncn().RcvPrjns {
			lwm += pj.WtMemSize()
		}
		fmt.Fprintf(&b, "%14s:\t state: %s \t wts: %s\n", ly.Name(),
			(datasize.ByteSize)(lsm).HumanReadable(), (datasize.ByteSize)(lwm).HumanReadable())
		stmem += lsm
		wtmem += lwm
	}
	fmt.Fprintf(&b, "%14s:\t state: %s \t wts: %s\n", "Total",
		(datasize.ByteSize)(stmem).HumanReadable(), (datasize.ByteSize)(wtmem).HumanReadable())
	return b.String()
}
