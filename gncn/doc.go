// Copyright (c) 2022, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package gncn provides the GNCN-PDH generative neural coding network:
a hierarchical predictive-coding model that learns without backpropagation,
using an iterative local error-settling process (inference) followed by
purely local, per-pathway weight gradients computed from the settled errors.

The network is a stack of layers 0..L, where layer 0 is the clamped input
and layer L is the top latent layer.  Each adjacent pair of layers is
connected by two independent dense pathways: a top-down generative (Gen)
pathway W that predicts the lower layer from the upper layer's activity,
and a bottom-up error (Err) pathway E that routes the lower layer's
prediction error into the upper layer's state update.  E is initialized
independently of W and is never tied to W's transpose -- only their
gradients are coupled, which pulls the two into approximate consistency
over the course of learning.

One settling cycle = a state-update pass over layers 1..L in order:

	d_i  = e[i-1] @ E[i-1] - e[i]
	z[i] += beta * (-gamma * z[i] + d_i)

followed, strictly afterward, by a prediction / error recompute pass:

	mu[0] = gOut(phi(z[1]) @ W[0]);  e[0] = z[0] - mu[0]
	mu[i] = gHid(phi(z[i+1]) @ W[i]);  e[i] = phi(z[i]) - mu[i]

Inference runs a fixed number of cycles (no convergence test).  DWt then
computes for each pathway pair:

	dW[l] = -(1/batch) * phi(z[l+1])^T @ e[l]
	dE[l] = dW[l]^T

for an external minimizing optimizer (see the optim package), and ClipWts
re-projects every weight column back onto the unit norm ball after each
optimizer step.

State is batched: all layer state variables (Z, ActZ, Mu, Err) are
[batch, units] tensors, and inference processes the whole batch at once.
The network assumes one in-flight batch at a time; concurrent training
steps against the same network require external synchronization.
*/
package gncn
