/*
Package cirbt is a pure Go implementation of the circuit bootstrapping of LWE ciphertexts into
RGSW ciphertexts, built on the ring and RLWE primitives of Lattigo. The scheme lives in
schemes/cirbt, its building blocks (gadget decomposition, blind rotation, homomorphic trace
and scheme switching) in core/, and the analytic noise estimator in utils/estimator.
*/
package cirbt
