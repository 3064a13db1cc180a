package stake

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/crypto"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/roles"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

// STCTRequest asks the prover to show that a crossover carries Value into
// the contract at Address (send to contract transparent).
type STCTRequest struct {
	Fee       utx.Fee
	Crossover utx.CrossoverInfo
	Address   fr.Element       // Contract scalar
	Signature crypto.Signature // Note-secret signature over STCTMessage
}

// STCTRequestSize is the size of the encoded request.
const STCTRequestSize = utx.FeeSize + utx.CrossoverSize + 8 + crypto.ScalarSize + fr.Bytes + crypto.SignatureSize

// STCTMessage hashes the crossover, the value and the contract scalar.
func STCTMessage(c utx.Crossover, value uint64, address fr.Element) fr.Element {
	cx := c.ValueCommitment.X()
	cy := c.ValueCommitment.Y()
	elems := []fr.Element{cx, cy, c.Nonce}
	elems = append(elems, crypto.BytesToElements(c.EncryptedData[:])...)
	elems = append(elems, crypto.ElementFromUint64(value), address)
	return crypto.Poseidon(elems...)
}

// NewSTCTRequest moves value from sender into the stake contract. The
// crossover note is addressed to refund, whose stealth address also
// receives the gas refund.
func NewSTCTRequest(
	rng *crypto.RNG,
	sender keys.SecretKey,
	refund keys.PublicKey,
	value uint64,
	gasLimit uint64,
	gasPrice uint64,
) (STCTRequest, error) {
	blinder := rng.Scalar()
	fee, ci, err := roles.NewCrossover(rng, refund, value, blinder, gasLimit, gasPrice)
	if err != nil {
		return STCTRequest{}, err
	}
	address := ContractScalar(ContractID)
	msg := STCTMessage(ci.Crossover, value, address)
	skR := sender.NoteSecret(fee.StealthAddress)

	return STCTRequest{
		Fee:       fee,
		Crossover: *ci,
		Address:   address,
		Signature: crypto.Sign(rng, skR, msg),
	}, nil
}

// Bytes encodes the request as fee ‖ crossover ‖ LE64(value) ‖ blinder ‖
// address ‖ signature.
func (r STCTRequest) Bytes() []byte {
	buf := make([]byte, 0, STCTRequestSize)
	f := r.Fee.Bytes()
	buf = append(buf, f[:]...)
	c := r.Crossover.Crossover.Bytes()
	buf = append(buf, c[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, r.Crossover.Value)
	buf = append(buf, r.Crossover.Blinder.Bytes()...)
	a := r.Address.Bytes()
	buf = append(buf, a[:]...)
	s := r.Signature.Bytes()
	return append(buf, s[:]...)
}

// WFCTRequest asks the prover to show that UnstakeNote commits to Value
// (withdraw from contract transparent). The zero-value crossover only pays
// for gas.
type WFCTRequest struct {
	Fee            utx.Fee
	Crossover      utx.CrossoverInfo
	UnstakeNote    note.Note
	UnstakeBlinder crypto.Scalar
	Value          uint64
}

// WFCTRequestSize is the size of the encoded request.
const WFCTRequestSize = crypto.PointSize + 8 + crypto.ScalarSize

// NewWFCTRequest prepares the unstake of value back to sender.
func NewWFCTRequest(
	rng *crypto.RNG,
	sender keys.PublicKey,
	refund keys.PublicKey,
	value uint64,
	gasLimit uint64,
	gasPrice uint64,
) (WFCTRequest, error) {
	blinder := rng.Scalar()
	fee, ci, err := roles.NewCrossover(rng, refund, 0, blinder, gasLimit, gasPrice)
	if err != nil {
		return WFCTRequest{}, err
	}
	unstake := note.New(rng, note.Transparent, sender, value)
	unstakeBlinder, err := unstake.BlindingFactor(nil)
	if err != nil {
		return WFCTRequest{}, err
	}
	return WFCTRequest{
		Fee:            fee,
		Crossover:      *ci,
		UnstakeNote:    unstake,
		UnstakeBlinder: unstakeBlinder,
		Value:          value,
	}, nil
}

// Bytes encodes the request as commitment ‖ LE64(value) ‖ blinder.
func (r WFCTRequest) Bytes() []byte {
	buf := make([]byte, 0, WFCTRequestSize)
	c := r.UnstakeNote.ValueCommitment.Bytes()
	buf = append(buf, c[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, r.Value)
	return append(buf, r.UnstakeBlinder.Bytes()...)
}

// NewGasCrossover builds the zero-value crossover and fee paying for a
// withdraw or allow call.
func NewGasCrossover(rng *crypto.RNG, refund keys.PublicKey, gasLimit, gasPrice uint64) (utx.Fee, *utx.CrossoverInfo, error) {
	return roles.NewCrossover(rng, refund, 0, rng.Scalar(), gasLimit, gasPrice)
}
