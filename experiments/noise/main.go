// Package main compares the noise of circuit-bootstrapped RGSW ciphertexts with the
// analytic estimation of the parameters.
//
// Usage: ./noise [-flags] [measure|estimate]
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/schemes/cirbt"
)

var paramSet = flag.Int("paramSet", int(cirbt.STD128_CMUX_1), "predefined parameter set (1 to 4)")
var nboot = flag.Int("nboot", 4, "number of circuit bootstrappings")
var lmkcdey = flag.Bool("lmkcdey", false, "use the automorphism-based accumulator")

func main() {

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: ./noise [-flags] [measure|estimate]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	v := blindrot.CGGI
	if *lmkcdey {
		v = blindrot.LMKCDEY
	}

	switch flag.Args()[0] {
	case "measure":
		measure(cirbt.ParameterSet(*paramSet), v)
	case "estimate":
		for _, set := range []cirbt.ParameterSet{cirbt.STD128_CMUX_1, cirbt.STD128_CMUX_2, cirbt.STD128_CMUX_3, cirbt.STD128_CMUX_4} {
			estimate(set, v)
		}
	default:
		log.Fatalf("unknown experiment %q", flag.Args()[0])
	}
}

func parameters(set cirbt.ParameterSet) cirbt.Parameters {

	pl, err := set.Literal()
	if err != nil {
		log.Fatal(err)
	}

	params, err := cirbt.NewParametersFromLiteral(pl)
	if err != nil {
		log.Fatal(err)
	}

	return params
}

func estimate(set cirbt.ParameterSet, v blindrot.Variant) {

	e := parameters(set).Estimate(v)

	fmt.Printf("%s/%s\n", set, v)
	fmt.Printf("  modulus switch:  log2(var)=%6.2f log2(Pr[fail])=%7.2f\n", e.ModSwitch, e.ModSwitchLog2Failure)
	fmt.Printf("  blind rotation:  log2(var)=%6.2f\n", e.BlindRotation)
	fmt.Printf("  trace:           log2(var)=%6.2f\n", e.Trace)
	fmt.Printf("  scheme switch:   log2(var)=%6.2f\n", e.SchemeSwitch)
	fmt.Printf("  CMUX:            log2(var)=%6.2f\n", e.NoiseSum)
	fmt.Printf("  max CMUX depth:  %.0f\n", math.Floor(e.MaxDepth))
}

func measure(set cirbt.ParameterSet, v blindrot.Variant) {

	params := parameters(set)

	ctx, err := cirbt.NewContext(params, v)
	if err != nil {
		log.Fatal(err)
	}

	skLWE, err := ctx.KeyGen()
	if err != nil {
		log.Fatal(err)
	}

	skRLWE, err := ctx.RLWEKeyGen()
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Generating the evaluation keys...")
	if err = ctx.CirBTKeyGen(skLWE, skRLWE); err != nil {
		log.Fatal(err)
	}

	e := params.Estimate(v)

	fmt.Printf("%s/%s: estimated log2(std)=%.2f\n", set, v, e.SchemeSwitch/2)

	for i := 0; i < *nboot; i++ {

		ct, err := ctx.Encrypt(skLWE, 1, 2)
		if err != nil {
			log.Fatal(err)
		}

		res, err := ctx.CircuitBootstrapping(ct)
		if err != nil {
			log.Fatal(err)
		}

		_, total, err := cirbt.MeasureNoise(params, skRLWE, res, 1)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("  bootstrapping %d: %s\n", i, total)
	}
}
