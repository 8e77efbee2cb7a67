// Package estimator implements the analytic noise estimation of the circuit bootstrapping:
// variances of the modulus switch, blind rotation, trace, scheme switch and of the output
// RGSW ciphertext, the failure probability of the modulus switch and the maximum number of
// CMUX gates the output supports.
package estimator

import (
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"
)

// Method is the blind-rotation method the estimation is made for.
type Method int

const (
	// CMUX is the blind rotation with binary secrets and one CMUX per LWE coefficient.
	CMUX Method = iota
	// Automorphism is the blind rotation with RGSW(X^{s[i]}) and automorphisms.
	Automorphism
)

// DefaultSigmaKey is the standard deviation of the key and error distributions.
const DefaultSigmaKey = 3.2

// DefaultSigmaIn2 is the target variance of the bootstrapped LWE ciphertexts.
const DefaultSigmaIn2 = 1600

// DefaultAutomorphisms is the number of automorphisms of the automorphism-based blind rotation.
const DefaultAutomorphisms = 368

// Decomposition is a gadget of base 2^LogBase with Digits digits.
type Decomposition struct {
	LogBase int
	Digits  int
}

// Parameters are the inputs of the estimation.
type Parameters struct {
	Method Method

	// N is the ring degree, LWEN the LWE dimension.
	N    int
	LWEN int

	// LWEQ is the LWE modulus, LogQ the bit length of the ring modulus.
	LWEQ float64
	LogQ float64

	SigmaKey      float64
	SigmaIn2      float64
	Automorphisms int

	EP, Auto, HT, SS, CC Decomposition
}

// Estimate is the result of an estimation. Variances are given in log2.
type Estimate struct {
	ModSwitch            float64
	ModSwitchLog2Failure float64
	BlindRotation        float64
	Trace                float64
	SchemeSwitch         float64
	NoiseSum             float64
	MaxDepth             float64
}

func (p Parameters) sigmaKey2() float64 {
	if p.SigmaKey == 0 {
		return DefaultSigmaKey * DefaultSigmaKey
	}
	return p.SigmaKey * p.SigmaKey
}

func (p Parameters) sigmaIn2() float64 {
	if p.SigmaIn2 == 0 {
		return DefaultSigmaIn2
	}
	return p.SigmaIn2
}

func (p Parameters) automorphisms() float64 {
	if p.Automorphisms == 0 {
		return DefaultAutomorphisms
	}
	return float64(p.Automorphisms)
}

// ignored returns ceil(2^(LogQ - Digits*LogBase))/2, the bound of the rounding error of the
// approximate decomposition.
func (p Parameters) ignored(d Decomposition) float64 {
	return math.Ceil(math.Exp2(p.LogQ-float64(d.Digits*d.LogBase))) / 2
}

// ModSwitch returns the variance of the modulus switch of an LWE ciphertext from LWEQ to 2N and
// the log2 probability that its error exceeds N/2.
func (p Parameters) ModSwitch() (variance, log2Failure float64) {
	N := float64(p.N)
	variance = 4 * N * N * p.sigmaIn2() / (p.LWEQ * p.LWEQ)
	log2Failure = Log2Erfc(N / 2 / math.Sqrt(2*variance))
	return
}

// BlindRotation returns the variance of the error of the blind rotation.
func (p Parameters) BlindRotation() float64 {

	N := float64(p.N)
	n := float64(p.LWEN)
	s2 := p.sigmaKey2()

	e1 := p.ignored(p.EP)
	temp := n * (N*float64(p.EP.Digits)*math.Exp2(float64(2*p.EP.LogBase))/6*s2 + (N+1)*e1*e1/3)

	if p.Method == CMUX {
		return 2 * temp
	}

	e2 := p.ignored(p.Auto)
	return temp + p.automorphisms()*(N*float64(p.Auto.Digits)*math.Exp2(float64(2*p.Auto.LogBase))/12*s2+N*e2*e2/6)
}

// Trace returns the variance of the error added by the homomorphic trace.
func (p Parameters) Trace() float64 {
	N := float64(p.N)
	e := p.ignored(p.HT)
	return (N*N - 1) / 3 * (N*float64(p.HT.Digits)*math.Exp2(float64(2*p.HT.LogBase))/12*p.sigmaKey2() + N*e*e/6)
}

// SchemeSwitch returns the variance of the error of the scheme-switched rows, including the
// contributions of the blind rotation and of the trace.
func (p Parameters) SchemeSwitch() float64 {
	N := float64(p.N)
	e := p.ignored(p.SS)
	ss := N*float64(p.SS.Digits)*math.Exp2(float64(2*p.SS.LogBase))/12*p.sigmaKey2() + N*N*e*e/12
	return ss + N*0.5*p.Trace() + 0.5*p.BlindRotation()
}

// NoiseSum returns the variance of the error added by one CMUX with the output RGSW ciphertext.
func (p Parameters) NoiseSum() float64 {
	N := float64(p.N)
	e := p.ignored(p.CC)
	return float64(p.CC.Digits)*math.Exp2(float64(2*p.CC.LogBase))*p.SchemeSwitch()*N/6 + (N+1)*e*e/3
}

// MaxDepth returns the number of CMUX gates after which the variance of the output,
// switched back to LWEQ, reaches SigmaIn2.
func (p Parameters) MaxDepth() float64 {

	var temp float64
	if p.Method == CMUX {
		temp = float64(p.LWEN+2) / 24
	} else {
		temp = (float64(p.LWEN)*p.sigmaKey2() + 1) / 12
	}

	Q2 := math.Exp2(2 * p.LogQ)

	return (p.sigmaIn2() - temp) * Q2 / (p.LWEQ * p.LWEQ) / p.NoiseSum()
}

// Estimate evaluates all the estimates.
func (p Parameters) Estimate() (e Estimate) {
	var ms float64
	ms, e.ModSwitchLog2Failure = p.ModSwitch()
	e.ModSwitch = math.Log2(ms)
	e.BlindRotation = math.Log2(p.BlindRotation())
	e.Trace = math.Log2(p.Trace())
	e.SchemeSwitch = math.Log2(p.SchemeSwitch())
	e.NoiseSum = math.Log2(p.NoiseSum())
	e.MaxDepth = p.MaxDepth()
	return
}

// Log2Erfc returns log2(erfc(x)). Large arguments, for which erfc(x) underflows
// in double precision, are evaluated with a continued fraction in arbitrary precision.
func Log2Erfc(x float64) float64 {

	if x < 3 {
		return math.Log2(math.Erfc(x))
	}

	const prec = 128
	const terms = 256

	X := new(big.Float).SetPrec(prec).SetFloat64(x)

	// erfc(x) = exp(-x^2)/sqrt(pi) * 1/(x + (1/2)/(x + 1/(x + (3/2)/(x + ...))))
	t := new(big.Float).SetPrec(prec).Set(X)
	for k := terms; k > 0; k-- {
		num := new(big.Float).SetPrec(prec).SetFloat64(float64(k) / 2)
		t.Add(X, num.Quo(num, t))
	}

	x2 := new(big.Float).SetPrec(prec).Mul(X, X)
	erfc := bigfloat.Exp(x2.Neg(x2))

	sqrtPi := new(big.Float).SetPrec(prec).Sqrt(new(big.Float).SetPrec(prec).SetFloat64(math.Pi))

	erfc.Quo(erfc, sqrtPi.Mul(sqrtPi, t))

	ln, _ := bigfloat.Log(erfc).Float64()

	return ln / math.Ln2
}
