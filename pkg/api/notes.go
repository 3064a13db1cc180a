package api

import (
	"fmt"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/history"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
)

// CheckNoteOwnership keeps the leaves owned by any key of the seed.
func CheckNoteOwnership(args CheckNoteOwnershipArgs) (CheckNoteOwnershipResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return CheckNoteOwnershipResponse{}, err
	}
	leaves := make([]note.Leaf, len(args.Leaves))
	for i, l := range args.Leaves {
		n, err := note.FromBytes(l.Note)
		if err != nil {
			return CheckNoteOwnershipResponse{}, invalid(fmt.Sprintf("leaves[%d]", i), err)
		}
		leaves[i] = note.Leaf{BlockHeight: l.BlockHeight, Note: n}
	}

	res := note.ScanLeaves(keys.NewKeySet(seed), leaves)
	resp := CheckNoteOwnershipResponse{
		Notes:        encodeNotes(res.Notes),
		Nullifiers:   encodeElements(res.Nullifiers),
		BlockHeights: res.BlockHeights,
		PublicKeys:   make([]string, len(res.PublicKeys)),
		LastPos:      res.LastPos,
	}
	for i, pk := range res.PublicKeys {
		resp.PublicKeys[i] = pk.String()
	}
	return resp, nil
}

// UnspentSpentNotes splits owned notes into unspent and spent. A note is
// spent iff its nullifier is among the existing ones.
func UnspentSpentNotes(args UnspentSpentNotesArgs) (UnspentSpentNotesResponse, error) {
	n := len(args.Notes)
	if len(args.Nullifiers) != n || len(args.BlockHeights) != n || len(args.PublicKeys) != n {
		return UnspentSpentNotesResponse{}, fmt.Errorf(
			"%w: %d notes, %d nullifiers, %d heights, %d keys",
			ErrInvalidArgs, n, len(args.Nullifiers), len(args.BlockHeights), len(args.PublicKeys),
		)
	}
	notes, err := decodeNotes(args.Notes)
	if err != nil {
		return UnspentSpentNotesResponse{}, err
	}
	nullifiers, err := decodeElements("nullifiers", args.Nullifiers)
	if err != nil {
		return UnspentSpentNotesResponse{}, err
	}
	existing, err := decodeElements("existing_nullifiers", args.ExistingNullifiers)
	if err != nil {
		return UnspentSpentNotesResponse{}, err
	}

	spent := note.NewNullifierSet(existing)
	resp := UnspentSpentNotesResponse{Unspent: []NoteInfo{}, Spent: []NoteInfo{}}
	for i := range notes {
		info := NoteInfo{
			Note:        args.Notes[i],
			Nullifier:   args.Nullifiers[i],
			BlockHeight: args.BlockHeights[i],
			PublicKey:   args.PublicKeys[i],
			Pos:         notes[i].Pos,
		}
		if spent.Contains(nullifiers[i]) {
			resp.Spent = append(resp.Spent, info)
		} else {
			resp.Unspent = append(resp.Unspent, info)
		}
	}
	return resp, nil
}

// Balance sums the notes owned by the seed. Every note must be owned.
func Balance(args NotesArgs) (history.Balance, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return history.Balance{}, err
	}
	notes, err := decodeNotes(args.Notes)
	if err != nil {
		return history.Balance{}, err
	}
	return history.BalanceOf(keys.NewKeySet(seed), notes)
}

// MergeNotes concatenates note lists into one sanitized list.
func MergeNotes(args MergeNotesArgs) (NotesResponse, error) {
	lists := make([][]note.Note, len(args.Notes))
	for i, l := range args.Notes {
		notes, err := decodeNotes(l)
		if err != nil {
			return NotesResponse{}, err
		}
		lists[i] = notes
	}
	return NotesResponse{Notes: encodeNotes(note.Merge(lists...))}, nil
}

// FilterNotes drops the notes whose flag is true.
func FilterNotes(args FilterNotesArgs) (NotesResponse, error) {
	notes, err := decodeNotes(args.Notes)
	if err != nil {
		return NotesResponse{}, err
	}
	kept, err := note.Filter(notes, args.Flags)
	if err != nil {
		return NotesResponse{}, invalid("flags", err)
	}
	return NotesResponse{Notes: encodeNotes(kept)}, nil
}

// Nullifiers computes the nullifier of every note, in order.
func Nullifiers(args NotesArgs) (NullifiersResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return NullifiersResponse{}, err
	}
	notes, err := decodeNotes(args.Notes)
	if err != nil {
		return NullifiersResponse{}, err
	}
	nullifiers, err := note.Nullifiers(keys.NewKeySet(seed), notes)
	if err != nil {
		return NullifiersResponse{}, err
	}
	return NullifiersResponse{Nullifiers: encodeElements(nullifiers)}, nil
}

// GetHistory reconciles the notes of one key index with the transactions
// of the blocks they were created in.
func GetHistory(args GetHistoryArgs) (GetHistoryResponse, error) {
	seed, err := decodeSeed(args.Seed)
	if err != nil {
		return GetHistoryResponse{}, err
	}
	vk, err := keys.DeriveViewKey(seed, args.Index)
	if err != nil {
		return GetHistoryResponse{}, invalid("index", err)
	}

	notes := make([]history.NoteInfo, len(args.Notes))
	for i, info := range args.Notes {
		n, err := note.FromBytes(info.Note)
		if err != nil {
			return GetHistoryResponse{}, invalid(fmt.Sprintf("notes[%d].note", i), err)
		}
		nullifiers, err := decodeElements(fmt.Sprintf("notes[%d].nullifier", i), [][]byte{info.Nullifier})
		if err != nil {
			return GetHistoryResponse{}, err
		}
		notes[i] = history.NoteInfo{Note: n, Nullifier: nullifiers[0], BlockHeight: info.BlockHeight}
	}

	txs := make(map[uint64][]history.TxRecord, len(args.TxData))
	for _, block := range args.TxData {
		records, err := history.DecodeBlock(block.Txs)
		if err != nil {
			return GetHistoryResponse{}, invalid(fmt.Sprintf("tx_data[%d]", block.BlockHeight), err)
		}
		txs[block.BlockHeight] = append(txs[block.BlockHeight], records...)
	}

	entries, err := history.Reconcile(vk, notes, txs)
	if err != nil {
		return GetHistoryResponse{}, err
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return GetHistoryResponse{History: entries}, nil
}
