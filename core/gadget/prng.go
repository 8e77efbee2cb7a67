package gadget

import (
	"bytes"
	"encoding/binary"

	"github.com/tuneinsight/lattigo/v6/utils/sampling"
	"github.com/zeebo/blake3"
)

// SeedSize is the size in bytes of the seeds and of the derived PRNG keys.
const SeedSize = 32

// DerivePRNG returns the keyed PRNG of the i-th element of a key generated from seed,
// label separating the keys derived from the same seed.
func DerivePRNG(seed []byte, label string, i int) (sampling.PRNG, error) {
	hasher := blake3.New()
	buf := new(bytes.Buffer)

	buf.Write(seed)
	buf.WriteString(label)
	if err := binary.Write(buf, binary.BigEndian, int64(i)); err != nil {
		return nil, err
	}

	if _, err := hasher.Write(buf.Bytes()); err != nil {
		return nil, err
	}

	sum := hasher.Sum(nil)

	return sampling.NewKeyedPRNG(sum[:SeedSize])
}

// NewSeed draws a fresh random seed for the key derivation.
func NewSeed() ([]byte, error) {
	prng, err := sampling.NewPRNG()
	if err != nil {
		return nil, err
	}
	seed := make([]byte, SeedSize)
	if _, err = prng.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}
