package utx

import (
	"bytes"
	"encoding/binary"
)

// ProverBytes returns the flat encoding the proving service consumes.
//
// Layout (all counts and lengths are u64le):
//  1. input count, then per input: length ‖ nullifier ‖ note ‖ value ‖
//     blinder ‖ pk_r' ‖ signature ‖ opening
//  2. output count, then per output: note ‖ value ‖ blinder
//  3. anchor ‖ fee
//  4. crossover flag (1/0), then crossover ‖ value ‖ blinder
//  5. call flag (1/0), then contract ‖ method length ‖ method ‖ payload
//
// The payload runs to the end of the buffer, so it carries no length.
func (tx *UnprovenTransaction) ProverBytes() ([]byte, error) {
	if !tx.Signed {
		return nil, &FinalizationError{Code: ErrUnsigned, Message: "transaction inputs are not signed"}
	}
	buf := new(bytes.Buffer)
	putU64 := func(v uint64) { binary.Write(buf, binary.LittleEndian, v) }

	putU64(uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		in := encodeInput(&tx.Inputs[i], true)
		putU64(uint64(len(in)))
		buf.Write(in)
	}

	putU64(uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		encodeOutput(buf, &tx.Outputs[i])
	}

	writeElement(buf, tx.Anchor)
	f := tx.Fee.Bytes()
	buf.Write(f[:])

	if tx.Crossover == nil {
		putU64(0)
	} else {
		putU64(1)
		encodeCrossoverInfo(buf, tx.Crossover)
	}

	if tx.Call == nil {
		putU64(0)
	} else {
		putU64(1)
		buf.Write(tx.Call.Contract[:])
		putU64(uint64(len(tx.Call.Method)))
		buf.WriteString(tx.Call.Method)
		buf.Write(tx.Call.Payload)
	}
	return buf.Bytes(), nil
}
