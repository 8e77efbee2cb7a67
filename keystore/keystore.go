// Package keystore persists serialized circuit-bootstrapping evaluation keys.
//
// Keys are addressed by the digest of the parameters they were generated for and a
// caller-chosen label, so that a key set can only be loaded back for its own parameters.
package keystore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tuneinsight/cirbt/core/rgsw/blindrot"
	"github.com/tuneinsight/cirbt/schemes/cirbt"
	"github.com/tuneinsight/cirbt/utils/errs"
)

// ErrNotFound is returned when no key set is stored under a [Key].
var ErrNotFound = errors.New("evaluation keys not found")

// Key addresses a key set in a [Store].
type Key struct {
	Digest [32]byte
	Label  string
}

// NewKey returns the [Key] of the key set labeled label for the parameters params.
func NewKey(params cirbt.Parameters, label string) Key {
	return Key{Digest: params.Digest(), Label: label}
}

func (k Key) String() string {
	return hex.EncodeToString(k.Digest[:]) + ":" + k.Label
}

// Store defines the interface of evaluation-key storage. Implementations are safe for concurrent use.
type Store interface {
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key Key, data []byte) error
	// Get returns the data stored under key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// Delete removes the data stored under key, or returns ErrNotFound.
	Delete(ctx context.Context, key Key) error
	// Exists reports whether data is stored under key.
	Exists(ctx context.Context, key Key) (bool, error)
	// Close releases the resources of the store.
	Close() error
}

// PutKeys serializes evk and stores it under the digest of its parameters and label.
func PutKeys(ctx context.Context, s Store, label string, evk *cirbt.EvaluationKeySet) error {

	if evk == nil || evk.AccKey == nil || evk.TraceKey == nil || evk.SchemeSwitchKey == nil {
		return errs.Configuration("cannot PutKeys: evaluation keys have not been generated")
	}

	data, err := evk.MarshalBinary()
	if err != nil {
		return fmt.Errorf("cannot PutKeys: %w", err)
	}

	if err = s.Put(ctx, Key{Digest: evk.ParametersDigest, Label: label}, data); err != nil {
		return fmt.Errorf("cannot PutKeys: %w", err)
	}

	return nil
}

// GetKeys loads the key set labeled label for the parameters params and checks it
// against params and the accumulator variant v.
func GetKeys(ctx context.Context, s Store, params cirbt.Parameters, v blindrot.Variant, label string) (*cirbt.EvaluationKeySet, error) {

	data, err := s.Get(ctx, NewKey(params, label))
	if err != nil {
		return nil, fmt.Errorf("cannot GetKeys: %w", err)
	}

	evk := new(cirbt.EvaluationKeySet)
	if err = evk.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("cannot GetKeys: %w", err)
	}

	if err = evk.Check(params, v); err != nil {
		return nil, fmt.Errorf("cannot GetKeys: %w", err)
	}

	return evk, nil
}
