// Package stake builds the call data of the stake contract.
//
// Staking uses the BLS stake keys of the wallet. Every contract method
// carries a signature by the stake key over a message that starts with the
// stake counter, so a signed payload cannot be replayed once the counter
// moves on.
package stake

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// Contract methods.
const (
	MethodStake    = "stake"
	MethodUnstake  = "unstake"
	MethodWithdraw = "withdraw"
	MethodAllow    = "allow"
)

// ContractID is the id of the stake contract.
var ContractID = utx.ContractID{0x02}

var (
	ErrInvalidProof   = errors.New("stake: empty proof")
	ErrInvalidPayload = errors.New("stake: invalid payload")
)

// ContractScalar maps a contract id into the BLS scalar field.
func ContractScalar(id utx.ContractID) fr.Element {
	return crypto.ElementFromDigest(id)
}

// Signature messages. Each one starts with the little-endian counter.

func StakeMessage(counter, value uint64) []byte {
	msg := binary.LittleEndian.AppendUint64(nil, counter)
	return binary.LittleEndian.AppendUint64(msg, value)
}

func UnstakeMessage(counter uint64, n note.Note) []byte {
	msg := binary.LittleEndian.AppendUint64(nil, counter)
	b := n.Bytes()
	return append(msg, b[:]...)
}

func WithdrawMessage(counter uint64, address keys.StealthAddress, nonce fr.Element) []byte {
	msg := binary.LittleEndian.AppendUint64(nil, counter)
	a := address.Bytes()
	msg = append(msg, a[:]...)
	n := nonce.Bytes()
	return append(msg, n[:]...)
}

func AllowMessage(counter uint64, staker crypto.StakePublicKey) []byte {
	msg := binary.LittleEndian.AppendUint64(nil, counter)
	s := staker.Bytes()
	return append(msg, s[:]...)
}

// Stake is the payload of the stake method.
type Stake struct {
	PublicKey crypto.StakePublicKey
	Signature crypto.StakeSignature
	Value     uint64
	Proof     []byte // STCT proof
}

// Unstake is the payload of the unstake method.
type Unstake struct {
	PublicKey crypto.StakePublicKey
	Signature crypto.StakeSignature
	Note      note.Note // Transparent note receiving the stake
	Proof     []byte    // WFCT proof
}

// Withdraw is the payload of the withdraw method.
type Withdraw struct {
	PublicKey crypto.StakePublicKey
	Signature crypto.StakeSignature
	Address   keys.StealthAddress // Receives the reward
	Nonce     fr.Element
}

// Allow is the payload of the allow method: Owner allows PublicKey to stake.
type Allow struct {
	PublicKey crypto.StakePublicKey
	Owner     crypto.StakePublicKey
	Signature crypto.StakeSignature
}

const keySigSize = crypto.StakePublicKeySize + crypto.StakeSignatureSize

func appendKeySig(buf []byte, pk crypto.StakePublicKey, sig crypto.StakeSignature) []byte {
	p := pk.Bytes()
	s := sig.Bytes()
	buf = append(buf, p[:]...)
	return append(buf, s[:]...)
}

func readKeySig(b []byte) (crypto.StakePublicKey, crypto.StakeSignature, error) {
	if len(b) < keySigSize {
		return crypto.StakePublicKey{}, crypto.StakeSignature{}, ErrInvalidPayload
	}
	pk, err := crypto.StakePublicKeyFromBytes(b[:crypto.StakePublicKeySize])
	if err != nil {
		return crypto.StakePublicKey{}, crypto.StakeSignature{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	sig, err := crypto.StakeSignatureFromBytes(b[crypto.StakePublicKeySize:keySigSize])
	if err != nil {
		return crypto.StakePublicKey{}, crypto.StakeSignature{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return pk, sig, nil
}

// Bytes encodes the payload as key ‖ signature ‖ LE64(value) ‖ proof.
func (s Stake) Bytes() []byte {
	buf := appendKeySig(nil, s.PublicKey, s.Signature)
	buf = binary.LittleEndian.AppendUint64(buf, s.Value)
	return append(buf, s.Proof...)
}

// StakeFromBytes decodes a stake payload.
func StakeFromBytes(b []byte) (Stake, error) {
	pk, sig, err := readKeySig(b)
	if err != nil {
		return Stake{}, err
	}
	rest := b[keySigSize:]
	if len(rest) < 8 {
		return Stake{}, ErrInvalidPayload
	}
	return Stake{
		PublicKey: pk,
		Signature: sig,
		Value:     binary.LittleEndian.Uint64(rest[:8]),
		Proof:     append([]byte(nil), rest[8:]...),
	}, nil
}

// Bytes encodes the payload as key ‖ signature ‖ note ‖ proof.
func (u Unstake) Bytes() []byte {
	buf := appendKeySig(nil, u.PublicKey, u.Signature)
	n := u.Note.Bytes()
	buf = append(buf, n[:]...)
	return append(buf, u.Proof...)
}

// UnstakeFromBytes decodes an unstake payload.
func UnstakeFromBytes(b []byte) (Unstake, error) {
	pk, sig, err := readKeySig(b)
	if err != nil {
		return Unstake{}, err
	}
	rest := b[keySigSize:]
	if len(rest) < note.Size {
		return Unstake{}, ErrInvalidPayload
	}
	n, err := note.FromBytes(rest[:note.Size])
	if err != nil {
		return Unstake{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Unstake{
		PublicKey: pk,
		Signature: sig,
		Note:      n,
		Proof:     append([]byte(nil), rest[note.Size:]...),
	}, nil
}

// Bytes encodes the payload as key ‖ signature ‖ address ‖ nonce.
func (w Withdraw) Bytes() []byte {
	buf := appendKeySig(nil, w.PublicKey, w.Signature)
	a := w.Address.Bytes()
	buf = append(buf, a[:]...)
	n := w.Nonce.Bytes()
	return append(buf, n[:]...)
}

// WithdrawFromBytes decodes a withdraw payload.
func WithdrawFromBytes(b []byte) (Withdraw, error) {
	pk, sig, err := readKeySig(b)
	if err != nil {
		return Withdraw{}, err
	}
	rest := b[keySigSize:]
	if len(rest) != keys.PublicKeySize+fr.Bytes {
		return Withdraw{}, ErrInvalidPayload
	}
	addr, err := keys.StealthAddressFromBytes(rest[:keys.PublicKeySize])
	if err != nil {
		return Withdraw{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	nonce, err := crypto.ElementFromBytes(rest[keys.PublicKeySize:])
	if err != nil {
		return Withdraw{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Withdraw{PublicKey: pk, Signature: sig, Address: addr, Nonce: nonce}, nil
}

// Bytes encodes the payload as staker ‖ owner ‖ signature.
func (a Allow) Bytes() []byte {
	p := a.PublicKey.Bytes()
	o := a.Owner.Bytes()
	s := a.Signature.Bytes()
	buf := make([]byte, 0, 2*crypto.StakePublicKeySize+crypto.StakeSignatureSize)
	buf = append(buf, p[:]...)
	buf = append(buf, o[:]...)
	return append(buf, s[:]...)
}

// AllowFromBytes decodes an allow payload.
func AllowFromBytes(b []byte) (Allow, error) {
	if len(b) != 2*crypto.StakePublicKeySize+crypto.StakeSignatureSize {
		return Allow{}, ErrInvalidPayload
	}
	staker, err := crypto.StakePublicKeyFromBytes(b[:crypto.StakePublicKeySize])
	if err != nil {
		return Allow{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	owner, sig, err := readKeySig(b[crypto.StakePublicKeySize:])
	if err != nil {
		return Allow{}, err
	}
	return Allow{PublicKey: staker, Owner: owner, Signature: sig}, nil
}

func call(method string, payload []byte) *utx.CallData {
	return &utx.CallData{Contract: ContractID, Method: method, Payload: payload}
}

// StakeCall signs a stake of value at counter and returns the call data.
// proof is the STCT proof of the crossover carrying value.
func StakeCall(sk crypto.StakeSecretKey, counter, value uint64, proof []byte) (*utx.CallData, error) {
	if len(proof) == 0 {
		return nil, ErrInvalidProof
	}
	sig, err := sk.Sign(StakeMessage(counter, value))
	if err != nil {
		return nil, err
	}
	s := Stake{PublicKey: sk.PublicKey(), Signature: sig, Value: value, Proof: proof}
	return call(MethodStake, s.Bytes()), nil
}

// UnstakeCall signs the unstake of the stake into n and returns the call
// data. proof is the WFCT proof of n's commitment.
func UnstakeCall(sk crypto.StakeSecretKey, counter uint64, n note.Note, proof []byte) (*utx.CallData, error) {
	if len(proof) == 0 {
		return nil, ErrInvalidProof
	}
	sig, err := sk.Sign(UnstakeMessage(counter, n))
	if err != nil {
		return nil, err
	}
	u := Unstake{PublicKey: sk.PublicKey(), Signature: sig, Note: n, Proof: proof}
	return call(MethodUnstake, u.Bytes()), nil
}

// WithdrawCall signs the withdrawal of the reward to a fresh stealth
// address of receiver and returns the call data.
func WithdrawCall(rng *crypto.RNG, sk crypto.StakeSecretKey, receiver keys.PublicKey, counter uint64) (*utx.CallData, error) {
	address := receiver.StealthAddress(rng.Scalar())
	nonce := rng.Element()
	sig, err := sk.Sign(WithdrawMessage(counter, address, nonce))
	if err != nil {
		return nil, err
	}
	w := Withdraw{PublicKey: sk.PublicKey(), Signature: sig, Address: address, Nonce: nonce}
	return call(MethodWithdraw, w.Bytes()), nil
}

// AllowCall signs, with the owner key, the permission for staker to stake
// and returns the call data.
func AllowCall(owner crypto.StakeSecretKey, staker crypto.StakePublicKey, counter uint64) (*utx.CallData, error) {
	sig, err := owner.Sign(AllowMessage(counter, staker))
	if err != nil {
		return nil, err
	}
	a := Allow{PublicKey: staker, Owner: owner.PublicKey(), Signature: sig}
	return call(MethodAllow, a.Bytes()), nil
}
