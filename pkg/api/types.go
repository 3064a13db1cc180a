package api

import (
	"github.com/shopspring/decimal"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/history"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/stake"
)

// Byte fields travel as base64 (the encoding/json default). Notes are
// note.Size encodings, nullifiers and scalars 32-byte encodings, openings
// merkle.Opening encodings and keys base58 strings.

// SeedArgs carries the wallet seed only.
type SeedArgs struct {
	Seed []byte `json:"seed"`
}

// PublicKeysResponse lists the base58 public keys of every key index.
type PublicKeysResponse struct {
	Keys []string `json:"keys"`
}

// ViewKeysResponse lists the encoded view keys of every key index.
type ViewKeysResponse struct {
	ViewKeys [][]byte `json:"view_keys"`
}

// PassphraseArgs derives a seed from a passphrase.
type PassphraseArgs struct {
	Passphrase string `json:"passphrase"`
}

// SeedResponse carries a 64-byte seed.
type SeedResponse struct {
	Seed []byte `json:"seed"`
}

// LeafArg is a tree leaf: a positioned note and its block height.
type LeafArg struct {
	BlockHeight uint64 `json:"block_height"`
	Note        []byte `json:"note"`
}

// CheckNoteOwnershipArgs scans leaves for notes owned by the seed.
type CheckNoteOwnershipArgs struct {
	Seed   []byte    `json:"seed"`
	Leaves []LeafArg `json:"leaves"`
}

// CheckNoteOwnershipResponse lists the owned leaves in parallel slices.
type CheckNoteOwnershipResponse struct {
	Notes        [][]byte `json:"notes"`
	Nullifiers   [][]byte `json:"nullifiers"`
	BlockHeights []uint64 `json:"block_heights"`
	PublicKeys   []string `json:"public_keys"`
	LastPos      uint64   `json:"last_pos"`
}

// UnspentSpentNotesArgs partitions owned notes by the nullifiers already on
// chain. Notes, Nullifiers, BlockHeights and PublicKeys are parallel.
type UnspentSpentNotesArgs struct {
	Notes              [][]byte `json:"notes"`
	Nullifiers         [][]byte `json:"nullifiers"`
	BlockHeights       []uint64 `json:"block_heights"`
	PublicKeys         []string `json:"public_keys"`
	ExistingNullifiers [][]byte `json:"existing_nullifiers"`
}

// NoteInfo is an owned note with its metadata.
type NoteInfo struct {
	Note        []byte `json:"note"`
	Nullifier   []byte `json:"nullifier"`
	BlockHeight uint64 `json:"block_height"`
	PublicKey   string `json:"public_key"`
	Pos         uint64 `json:"pos"`
}

// UnspentSpentNotesResponse holds both halves of the partition.
type UnspentSpentNotesResponse struct {
	Unspent []NoteInfo `json:"unspent_notes"`
	Spent   []NoteInfo `json:"spent_notes"`
}

// NotesArgs carries the seed and a list of notes.
type NotesArgs struct {
	Seed  []byte   `json:"seed"`
	Notes [][]byte `json:"notes"`
}

// OpeningArg is the opening of the note at Pos.
type OpeningArg struct {
	Opening []byte `json:"opening"`
	Pos     uint64 `json:"pos"`
}

// OutputArg is the transfer output of an execute call.
type OutputArg struct {
	Type     string  `json:"note_type"` // "transparent" or "obfuscated"
	Receiver string  `json:"receiver"`
	Value    uint64  `json:"value"`
	RefID    *uint64 `json:"ref_id,omitempty"`
}

// CrossoverArg is a crossover with its opening values, as returned by the
// stake call data operations.
type CrossoverArg struct {
	Crossover []byte `json:"crossover"`
	Value     uint64 `json:"value"`
	Blinder   []byte `json:"blinder"`
}

// CallArg is a contract call with a base58 contract id.
type CallArg struct {
	Contract string `json:"contract"`
	Method   string `json:"method"`
	Payload  []byte `json:"payload"`
}

// ExecuteArgs assembles an unproven transaction from the sender's notes.
type ExecuteArgs struct {
	Seed        []byte        `json:"seed"`
	RNGSeed     []byte        `json:"rng_seed"`
	SenderIndex uint64        `json:"sender_index"`
	Inputs      [][]byte      `json:"inputs"`
	Openings    []OpeningArg  `json:"openings"`
	Output      *OutputArg    `json:"output,omitempty"`
	Fee         []byte        `json:"fee,omitempty"` // Overrides the fee built from gas and refund
	Crossover   *CrossoverArg `json:"crossover,omitempty"`
	Call        *CallArg      `json:"call,omitempty"`
	GasLimit    uint64        `json:"gas_limit"`
	GasPrice    uint64        `json:"gas_price"`
	Refund      string        `json:"refund"`
}

// TxResponse carries an encoded unproven transaction.
type TxResponse struct {
	Tx []byte `json:"tx"`
}

// MergeNotesArgs merges note lists.
type MergeNotesArgs struct {
	Notes [][][]byte `json:"notes"`
}

// FilterNotesArgs drops every note whose flag is true.
type FilterNotesArgs struct {
	Notes [][]byte `json:"notes"`
	Flags []bool   `json:"flags"`
}

// NotesResponse is a sanitized note list.
type NotesResponse struct {
	Notes [][]byte `json:"notes"`
}

// NullifiersResponse lists one nullifier per note.
type NullifiersResponse struct {
	Nullifiers [][]byte `json:"nullifiers"`
}

// BlockTxs are the transactions of one block.
type BlockTxs struct {
	BlockHeight uint64          `json:"block_height"`
	Txs         []history.RawTx `json:"txs"`
}

// GetHistoryArgs reconciles the notes of one key index with block data.
type GetHistoryArgs struct {
	Seed   []byte     `json:"seed"`
	Index  uint64     `json:"index"`
	Notes  []NoteInfo `json:"notes"`
	TxData []BlockTxs `json:"tx_data"`
}

// GetHistoryResponse is the reconciled history.
type GetHistoryResponse struct {
	History []history.Entry `json:"history"`
}

// UnprovenTxArgs carries an encoded unproven transaction.
type UnprovenTxArgs struct {
	Tx []byte `json:"tx"`
}

// BytesResponse carries raw bytes.
type BytesResponse struct {
	Bytes []byte `json:"bytes"`
}

// ProveTxArgs attaches a proof to a signed unproven transaction.
type ProveTxArgs struct {
	Tx    []byte `json:"unproven_tx"`
	Proof []byte `json:"proof"`
}

// ProveTxResponse is the encoded proven transaction and its hash.
type ProveTxResponse struct {
	Bytes []byte `json:"bytes"`
	Hash  string `json:"hash"`
}

// GetStakeInfoArgs carries the stake record returned by a node, null when
// the key is unknown.
type GetStakeInfoArgs struct {
	StakeData *stake.Data `json:"stake_data"`
}

// CrossoverProofArgs requests the prover input of a stake or unstake.
type CrossoverProofArgs struct {
	Seed        []byte `json:"seed"`
	RNGSeed     []byte `json:"rng_seed"`
	SenderIndex uint64 `json:"sender_index"`
	Refund      string `json:"refund"`
	Value       uint64 `json:"value"`
	GasLimit    uint64 `json:"gas_limit"`
	GasPrice    uint64 `json:"gas_price"`
}

// STCTProofResponse is the STCT prover input and the pieces execute needs.
type STCTProofResponse struct {
	Bytes     []byte `json:"bytes"`
	Signature []byte `json:"signature"`
	Fee       []byte `json:"fee"`
	Crossover []byte `json:"crossover"`
	Blinder   []byte `json:"blinder"`
}

// WFCTProofResponse is the WFCT prover input and the pieces execute and
// get_unstake_call_data need.
type WFCTProofResponse struct {
	Bytes       []byte `json:"bytes"`
	UnstakeNote []byte `json:"unstake_note"`
	Fee         []byte `json:"fee"`
	Crossover   []byte `json:"crossover"`
	Blinder     []byte `json:"blinder"`
}

// GetStakeCallDataArgs builds the stake call.
type GetStakeCallDataArgs struct {
	Seed        []byte `json:"seed"`
	StakerIndex uint64 `json:"staker_index"`
	Value       uint64 `json:"value"`
	Counter     uint64 `json:"counter"`
	Proof       []byte `json:"proof"`
}

// GetUnstakeCallDataArgs builds the unstake call.
type GetUnstakeCallDataArgs struct {
	Seed         []byte `json:"seed"`
	SenderIndex  uint64 `json:"sender_index"`
	Counter      uint64 `json:"counter"`
	UnstakeNote  []byte `json:"unstake_note"`
	UnstakeProof []byte `json:"unstake_proof"`
}

// CallDataResponse is a stake contract call.
type CallDataResponse struct {
	Contract string `json:"contract"`
	Method   string `json:"method"`
	Payload  []byte `json:"payload"`
}

// GasCallDataArgs builds a withdraw or allow call paying gas through a
// zero-value crossover.
type GasCallDataArgs struct {
	Seed        []byte `json:"seed"`
	RNGSeed     []byte `json:"rng_seed"`
	SenderIndex uint64 `json:"sender_index"`
	OwnerIndex  uint64 `json:"owner_index"`
	Refund      string `json:"refund"`
	Counter     uint64 `json:"counter"`
	GasLimit    uint64 `json:"gas_limit"`
	GasPrice    uint64 `json:"gas_price"`
}

// GasCallDataResponse is a call together with the fee and crossover that
// pay for it.
type GasCallDataResponse struct {
	CallDataResponse
	Fee       []byte `json:"fee"`
	Crossover []byte `json:"crossover"`
	Blinder   []byte `json:"blinder"`
}

// NewMnemonicArgs draws the mnemonic entropy from RNGSeed.
type NewMnemonicArgs struct {
	RNGSeed []byte `json:"rng_seed"`
}

// MnemonicResponse carries a BIP-39 phrase.
type MnemonicResponse struct {
	Mnemonic string `json:"mnemonic_string"`
}

// GetMnemonicSeedArgs stretches a mnemonic into a seed.
type GetMnemonicSeedArgs struct {
	Mnemonic   string `json:"mnemonic"`
	Passphrase string `json:"passphrase"`
}

// DuskToLuxArgs converts a DUSK amount.
type DuskToLuxArgs struct {
	Dusk decimal.Decimal `json:"dusk"`
}

// DuskToLuxResponse is the amount in LUX.
type DuskToLuxResponse struct {
	Lux uint64 `json:"lux"`
}

// LuxToDuskArgs converts a LUX amount.
type LuxToDuskArgs struct {
	Lux uint64 `json:"lux"`
}

// LuxToDuskResponse is the amount in DUSK.
type LuxToDuskResponse struct {
	Dusk decimal.Decimal `json:"dusk"`
}
