// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package gncn is the overall repository for the GNCN-PDH generative neural
coding network implemented in the Go language (golang).

This top-level of the repository has no functional code -- everything is
organized into the following sub-repositories:

* gncn: the core implementation of the predictive-coding network: layers of
latent state coupled through separate generative (top-down prediction) and
error (bottom-up feedback) projections, settled over a fixed number of
leaky-integrator iterations, with purely local Hebbian-style weight
gradients computed from the settled errors -- no backpropagation anywhere.

* optim: stochastic gradient descent and Adam optimizers that consume the
gradients the network produces.  The network only prepares gradients; the
actual parameter update is always applied externally, followed by the
column-norm clipping that keeps the settling dynamics stable.

* examples: these actually compile into runnable programs.  examples/mnist
reproduces the reference training run on binarized MNIST digits and is the
place to start; examples/bench is a synthetic benchmark for timing the
settling and learning passes.
*/
package gncn
