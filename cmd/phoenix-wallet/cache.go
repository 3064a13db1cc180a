package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"go.uber.org/zap"

	"github.com/suffix-labs/phoenix-wallet-core/pkg/api"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/config"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/history"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/keys"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/note"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/store"
	"github.com/suffix-labs/phoenix-wallet-core/pkg/units"
)

// leavesFile is the input of the scan command.
type leavesFile struct {
	Leaves []api.LeafArg `json:"leaves"`
}

// nullifiersFile is the input of the spent command.
type nullifiersFile struct {
	ExistingNullifiers [][]byte `json:"existing_nullifiers"`
}

func openCache(cfg *config.Config) *store.Cache {
	cache, err := store.Open(cfg.CachePath)
	if err != nil {
		fail("%v", err)
	}
	return cache
}

func readJSONFile(usage string, v any) {
	if len(os.Args) < 3 {
		fail("file argument required\nUsage: %s", usage)
	}
	b, err := os.ReadFile(os.Args[2])
	if err != nil {
		fail("%v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		fail("decode %s: %v", os.Args[2], err)
	}
}

func cmdScan(cfg *config.Config, logger *zap.Logger) {
	var in leavesFile
	readJSONFile("phoenix-wallet scan <leaves.json>", &in)

	leaves := make([]note.Leaf, len(in.Leaves))
	for i, l := range in.Leaves {
		n, err := note.FromBytes(l.Note)
		if err != nil {
			fail("leaf %d: %v", i, err)
		}
		leaves[i] = note.Leaf{BlockHeight: l.BlockHeight, Note: n}
	}

	res := note.ScanLeaves(keys.NewKeySet(walletSeed()), leaves)

	cache := openCache(cfg)
	defer cache.Close()
	if err := cache.Insert(store.Records(res), res.LastPos); err != nil {
		fail("%v", err)
	}
	logger.Info("scanned leaves",
		zap.Int("leaves", len(leaves)),
		zap.Int("owned", len(res.Notes)),
		zap.Uint64("last_pos", res.LastPos),
	)
	fmt.Printf("Owned notes: %d of %d leaves\n", len(res.Notes), len(leaves))
	fmt.Printf("Last position: %d\n", res.LastPos)
}

func cmdSpent(cfg *config.Config, logger *zap.Logger) {
	var in nullifiersFile
	readJSONFile("phoenix-wallet spent <nullifiers.json>", &in)

	existing := make([]fr.Element, len(in.ExistingNullifiers))
	for i, b := range in.ExistingNullifiers {
		if err := existing[i].SetBytesCanonical(b); err != nil {
			fail("nullifier %d: %v", i, err)
		}
	}

	cache := openCache(cfg)
	defer cache.Close()
	moved, err := cache.MarkSpent(existing)
	if err != nil {
		fail("%v", err)
	}
	logger.Info("marked notes spent", zap.Int("nullifiers", len(existing)), zap.Int("spent", moved))
	fmt.Printf("Spent notes: %d\n", moved)
}

func cmdBalance(cfg *config.Config) {
	ks := keys.NewKeySet(walletSeed())

	var filter *keys.PublicKey
	if len(os.Args) > 2 {
		index, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			fail("invalid index %q", os.Args[2])
		}
		pk, err := ks.PublicKey(index)
		if err != nil {
			fail("%v", err)
		}
		filter = &pk
	}

	cache := openCache(cfg)
	defer cache.Close()
	records, err := cache.Unspent(filter)
	if err != nil {
		fail("%v", err)
	}
	balance, err := history.BalanceOf(ks, store.Notes(records))
	if err != nil {
		fail("%v", err)
	}

	pos, scanned, err := cache.LastPos()
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("Unspent notes: %d\n", len(records))
	fmt.Printf("Balance:       %s DUSK\n", units.FormatDusk(balance.Value))
	fmt.Printf("Spendable:     %s DUSK in one transaction\n", units.FormatDusk(balance.Maximum))
	if scanned {
		fmt.Printf("Scanned up to position %d\n", pos)
	}
}
