package indexer

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/easystate"
	"github.com/lunfardo314/easystate/ledger"
	"github.com/lunfardo314/unitrie/common"
)

// Indexer maps addresses to the IDs of outputs locked at them.
// Each entry keeps the sequence number of its insertion so outputs are listed in the order they appeared
type Indexer struct {
	mutex *sync.RWMutex
	store ledger.IndexerStore
}

type Command struct {
	Address  ledger.Address
	OutputID ledger.OutputID
	Delete   bool
}

// sequence counter lives under the key which is never a prefix of an address key
var seqKey = []byte{0}

func NewIndexer(store ledger.IndexerStore) *Indexer {
	return &Indexer{
		mutex: &sync.RWMutex{},
		store: store,
	}
}

// NewInMemory mostly for testing
func NewInMemory() *Indexer {
	return NewIndexer(common.NewInMemoryKVStore())
}

func addressPrefix(addr ledger.Address) []byte {
	easyfl.Assert(len(addr) > 0 && len(addr) < 256, "indexer: wrong address length %d", len(addr))
	return easystate.Concat([]byte{byte(len(addr))}, addr.Bytes())
}

func (inr *Indexer) lastSeq() uint64 {
	data := inr.store.Get(seqKey)
	if len(data) == 0 {
		return 0
	}
	easyfl.Assert(len(data) == 8, "indexer: corrupted sequence counter")
	return binary.BigEndian.Uint64(data)
}

// OutputIDsAt returns IDs of outputs indexed for the address in the order of indexing
func (inr *Indexer) OutputIDsAt(addr ledger.Address) ([]ledger.OutputID, error) {
	inr.mutex.RLock()
	defer inr.mutex.RUnlock()

	type entry struct {
		seq uint64
		oid ledger.OutputID
	}
	prefix := addressPrefix(addr)
	entries := make([]entry, 0)
	var err error
	inr.store.Iterator(prefix).Iterate(func(k, v []byte) bool {
		var e entry
		if e.oid, err = ledger.OutputIDFromBytes(k[len(prefix):]); err != nil {
			return false
		}
		if len(v) != 8 {
			err = fmt.Errorf("indexer: wrong index value for %s", e.oid.String())
			return false
		}
		e.seq = binary.BigEndian.Uint64(v)
		entries = append(entries, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})
	ret := make([]ledger.OutputID, len(entries))
	for i := range entries {
		ret[i] = entries[i].oid
	}
	return ret, nil
}

// Update applies commands in one batch. Added entries are numbered in the order of commands
func (inr *Indexer) Update(cmds []*Command) error {
	inr.mutex.Lock()
	defer inr.mutex.Unlock()

	seq := inr.lastSeq()
	var seqBin [8]byte
	w := inr.store.BatchedWriter()
	for _, c := range cmds {
		key := easystate.Concat(addressPrefix(c.Address), c.OutputID[:])
		if c.Delete {
			w.Set(key, nil)
			continue
		}
		seq++
		binary.BigEndian.PutUint64(seqBin[:], seq)
		w.Set(key, easystate.Concat(seqBin[:]))
	}
	binary.BigEndian.PutUint64(seqBin[:], seq)
	w.Set(seqKey, easystate.Concat(seqBin[:]))
	return w.Commit()
}
