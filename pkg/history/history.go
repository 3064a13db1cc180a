// Package history reconciles the notes of one address with the
// transactions that created them into a transaction history, and computes
// balances.
package history

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/shopspring/decimal"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/units"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/utx"
)

var ErrInvalidTransaction = errors.New("history: invalid transaction record")

// Direction tells whether a transaction moved value into or out of the
// address.
type Direction string

const (
	In  Direction = "In"
	Out Direction = "Out"
)

// TxTypeTransfer is the type of a transaction without a contract call.
// Transactions with a call take the method name as their type.
const TxTypeTransfer = "transfer"

// NoteInfo is an owned note together with its nullifier and the height of
// the block that created it.
type NoteInfo struct {
	Note        note.Note
	Nullifier   fr.Element
	BlockHeight uint64
}

// TxRecord is a transaction of a block and the gas it spent.
type TxRecord struct {
	Tx       *utx.Transaction
	GasSpent uint64
}

// RawTx is a hex encoded transaction of a block and the gas it spent.
type RawTx struct {
	RawTx    string `json:"raw_tx"`
	GasSpent uint64 `json:"gas_spent"`
}

// Entry is one line of the history. Amount is in DUSK; it is negative for
// outgoing transactions that spent more than they returned.
type Entry struct {
	Direction   Direction       `json:"direction"`
	BlockHeight uint64          `json:"block_height"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         uint64          `json:"fee"`
	ID          string          `json:"id"`
	TxType      string          `json:"tx_type"`
}

// DecodeBlock decodes the hex transactions of one block.
func DecodeBlock(raws []RawTx) ([]TxRecord, error) {
	out := make([]TxRecord, 0, len(raws))
	for i, raw := range raws {
		b, err := hex.DecodeString(raw.RawTx)
		if err != nil {
			return nil, fmt.Errorf("%w: tx %d: %v", ErrInvalidTransaction, i, err)
		}
		tx, err := utx.ParseTransaction(b)
		if err != nil {
			return nil, fmt.Errorf("%w: tx %d: %v", ErrInvalidTransaction, i, err)
		}
		out = append(out, TxRecord{Tx: tx, GasSpent: raw.GasSpent})
	}
	return out, nil
}

type spentNote struct {
	nullifier fr.Element
	value     uint64
}

// Reconcile builds the history of the address viewed by vk.
//
// Every note is matched, by unpositioned hash, against the outputs of the
// transactions recorded at its block height. A matched transaction that
// spent any of the address's nullifiers is outgoing, with the spent value
// subtracted; otherwise it is incoming. Notes of the same transaction
// accumulate into one entry. A note with no creating transaction, such as
// change, is added to the outgoing entry at the same height if there is
// one. Entries are sorted by block height.
func Reconcile(vk keys.ViewKey, notes []NoteInfo, txsByBlock map[uint64][]TxRecord) ([]Entry, error) {
	spent := make([]spentNote, 0, len(notes))
	values := make([]uint64, len(notes))
	for i := range notes {
		v, err := notes[i].Note.Value(&vk)
		if err != nil {
			return nil, fmt.Errorf("history: note %d: %w", i, err)
		}
		values[i] = v
		spent = append(spent, spentNote{nullifier: notes[i].Nullifier, value: v})
	}

	var entries []Entry
	amounts := make(map[string]decimal.Decimal)
	index := make(map[string]int)

	for i := range notes {
		info := &notes[i]
		hash := info.Note.UnpositionedHash()
		amount := decimal.NewFromUint64(values[i])

		creator := findCreator(txsByBlock[info.BlockHeight], hash)
		if creator == nil {
			for j := range entries {
				if entries[j].Direction == Out && entries[j].BlockHeight == info.BlockHeight {
					amounts[entries[j].ID] = amounts[entries[j].ID].Add(amount)
					break
				}
			}
			continue
		}

		id := creator.Tx.ID()
		if _, ok := index[id]; ok {
			amounts[id] = amounts[id].Add(amount)
			continue
		}

		inputs := spentValue(creator.Tx, spent)
		direction := In
		if inputs > 0 {
			direction = Out
		}
		index[id] = len(entries)
		amounts[id] = amount.Sub(decimal.NewFromUint64(inputs))
		entries = append(entries, Entry{
			Direction:   direction,
			BlockHeight: info.BlockHeight,
			Fee:         gasFee(creator.GasSpent, creator.Tx.Fee.GasPrice),
			ID:          id,
			TxType:      txType(creator.Tx),
		})
	}

	for i := range entries {
		entries[i].Amount = units.SignedLuxToDusk(amounts[entries[i].ID])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BlockHeight < entries[j].BlockHeight
	})
	return entries, nil
}

func findCreator(txs []TxRecord, hash fr.Element) *TxRecord {
	for i := range txs {
		if txs[i].Tx.HasOutput(hash) {
			return &txs[i]
		}
	}
	return nil
}

// spentValue sums the values of the address's notes whose nullifiers the
// transaction publishes.
func spentValue(tx *utx.Transaction, spent []spentNote) uint64 {
	var total uint64
	for i := range tx.Nullifiers {
		for j := range spent {
			if spent[j].nullifier.Equal(&tx.Nullifiers[i]) {
				total = addSaturating(total, spent[j].value)
				break
			}
		}
	}
	return total
}

func gasFee(gasSpent, gasPrice uint64) uint64 {
	return utx.Fee{GasLimit: gasSpent, GasPrice: gasPrice}.GasBudget()
}

func txType(tx *utx.Transaction) string {
	if tx.Call == nil {
		return TxTypeTransfer
	}
	return tx.Call.Method
}
