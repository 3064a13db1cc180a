package api

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidArgs, field, err)
}

func decodeSeed(b []byte) (keys.Seed, error) {
	s, err := keys.SeedFromBytes(b)
	if err != nil {
		return s, invalid("seed", err)
	}
	return s, nil
}

func decodeRNG(b []byte) (*crypto.RNG, error) {
	if len(b) != crypto.RNGSeedSize {
		return nil, invalid("rng_seed", fmt.Errorf("expected %d bytes, got %d", crypto.RNGSeedSize, len(b)))
	}
	var s [crypto.RNGSeedSize]byte
	copy(s[:], b)
	return crypto.NewRNG(s), nil
}

func decodePublicKey(field, s string) (keys.PublicKey, error) {
	pk, err := keys.ParsePublicKey(s)
	if err != nil {
		return pk, invalid(field, err)
	}
	return pk, nil
}

func decodeNotes(bs [][]byte) ([]note.Note, error) {
	out := make([]note.Note, len(bs))
	for i, b := range bs {
		n, err := note.FromBytes(b)
		if err != nil {
			return nil, invalid(fmt.Sprintf("notes[%d]", i), err)
		}
		out[i] = n
	}
	return out, nil
}

func encodeNotes(notes []note.Note) [][]byte {
	out := make([][]byte, len(notes))
	for i := range notes {
		b := notes[i].Bytes()
		out[i] = b[:]
	}
	return out
}

func decodeElements(field string, bs [][]byte) ([]fr.Element, error) {
	out := make([]fr.Element, len(bs))
	for i, b := range bs {
		e, err := crypto.ElementFromBytes(b)
		if err != nil {
			return nil, invalid(fmt.Sprintf("%s[%d]", field, i), err)
		}
		out[i] = e
	}
	return out, nil
}

func encodeElements(es []fr.Element) [][]byte {
	out := make([][]byte, len(es))
	for i := range es {
		b := es[i].Bytes()
		out[i] = b[:]
	}
	return out
}

func parseNoteType(s string) (note.Type, error) {
	switch s {
	case note.Transparent.String():
		return note.Transparent, nil
	case note.Obfuscated.String(), "":
		return note.Obfuscated, nil
	default:
		return 0, invalid("note_type", fmt.Errorf("unknown note type %q", s))
	}
}
