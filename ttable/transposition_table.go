package ttable

import (
	"errors"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

// DefaultSize is a prime close to 2^23. Other good sizes:
// 2^24: 16777259, 2^25: 33554467, 2^26: 67108879, 2^27: 134217757
const DefaultSize = 8388617

const entrySize = 16

// openingReserve pre-sizes the opening map for a full opening book.
const openingReserve = 1 << 20

var ErrNonPositiveCapacity = errors.New("transposition table capacity must be positive")

type entry struct {
	key uint64
	val uint8
}

// TranspositionTable is an open-addressed table of small values keyed by
// position key, fronted by an opening map of precomputed values that are
// never evicted. A key of 0 marks an empty slot and a value of 0 means
// "unknown", so callers must store values >= 1.
//
// The table is not safe for concurrent use.
type TranspositionTable struct {
	table   []entry
	opening map[uint64]uint8

	entries    int
	collisions int
}

// New creates a table with size slots.
func New(size int) (*TranspositionTable, error) {
	if size <= 0 {
		return nil, ErrNonPositiveCapacity
	}
	log.Debug().Int("num-elems", size).
		Int("estimated-total-memory-bytes", size*entrySize).
		Msg("transposition-table-size")
	return &TranspositionTable{
		table:   make([]entry, size),
		opening: make(map[uint64]uint8, openingReserve),
	}, nil
}

// SizeForMemory returns the number of slots that fit in the given fraction
// of total system memory. It never returns less than minSize.
func SizeForMemory(fractionOfMemory float64, minSize int) int {
	totalMem := memory.TotalMemory()
	desired := int(fractionOfMemory * float64(totalMem) / float64(entrySize))
	// odd sizes spread keys better under the modulo.
	if desired%2 == 0 {
		desired--
	}
	if desired < minSize {
		desired = minSize
	}
	log.Info().Int("desired-num-elems", desired).
		Float64("fraction-of-memory", fractionOfMemory).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-memory-sizing")
	return desired
}

func (t *TranspositionTable) index(key uint64) int {
	return int(key % uint64(len(t.table)))
}

// Reset clears the search table. Opening entries survive.
func (t *TranspositionTable) Reset() {
	clear(t.table)
	t.entries = 0
	t.collisions = 0
}

// Put stores val under key. Once the table is half full it is wiped
// wholesale before inserting, which bounds lookup chains.
func (t *TranspositionTable) Put(key uint64, val uint8) {
	if t.entries >= len(t.table)/2 {
		log.Debug().Int("entries", t.entries).Int("collisions", t.collisions).
			Msg("transposition-table-full-wipe")
		t.Reset()
	}
	i := t.index(key)
	for t.table[i].key != 0 && t.table[i].key != key {
		i++
		if i == len(t.table) {
			i = 0
		}
		t.collisions++
	}
	if t.table[i].key == 0 {
		t.entries++
	}
	t.table[i] = entry{key: key, val: val}
}

// Get returns the value stored for key, or 0 if it is unknown. The opening
// map takes precedence over the search table.
func (t *TranspositionTable) Get(key uint64) uint8 {
	if v, ok := t.opening[key]; ok {
		return v
	}
	i := t.index(key)
	for t.table[i].key != 0 {
		if t.table[i].key == key {
			return t.table[i].val
		}
		i++
		if i == len(t.table) {
			i = 0
		}
	}
	return 0
}

// PutOpening adds a precomputed value. An existing opening entry for the
// same key is kept; it returns false in that case.
func (t *TranspositionTable) PutOpening(key uint64, val uint8) bool {
	if _, ok := t.opening[key]; ok {
		return false
	}
	t.opening[key] = val
	return true
}

func (t *TranspositionTable) Entries() int     { return t.entries }
func (t *TranspositionTable) Collisions() int  { return t.collisions }
func (t *TranspositionTable) Size() int        { return len(t.table) }
func (t *TranspositionTable) OpeningSize() int { return len(t.opening) }
