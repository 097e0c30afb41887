package catalog

import (
	"runtime"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/fine-structures/khova.SDK/khova"
	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

/***

Catalog database format:

	gCatalogStateKey => catalogState (MajorVers, MinorVers, NumEntries as varints)

	gEntryPrefix, NumCrossings, Code[..], SignMask, Unlinked     (varints)
		=> Name (string), NumGroups, [I (zigzag), J (zigzag), Rank, NumTorsion, Torsion[..]]...

Homology depends only on the link code, the crossing signs and the number of crossing-free components,
so links that differ only by name share an entry.  The name stored is the one last written.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
	gEntryPrefix     = []byte{0x01}
)

const (
	catalogMajorVers = 2026
	catalogMinorVers = 1
)

type catalogState struct {
	MajorVers  uint64
	MinorVers  uint64
	NumEntries int64
}

func (st *catalogState) Marshal() []byte {
	buf := proto.NewBuffer(nil)
	buf.EncodeVarint(st.MajorVers)
	buf.EncodeVarint(st.MinorVers)
	buf.EncodeVarint(uint64(st.NumEntries))
	return buf.Bytes()
}

func (st *catalogState) Unmarshal(val []byte) error {
	buf := proto.NewBuffer(val)
	var err error
	var n uint64
	if st.MajorVers, err = buf.DecodeVarint(); err != nil {
		return errors.Wrap(khova.ErrBadEncoding, err.Error())
	}
	if st.MinorVers, err = buf.DecodeVarint(); err != nil {
		return errors.Wrap(khova.ErrBadEncoding, err.Error())
	}
	if n, err = buf.DecodeVarint(); err != nil {
		return errors.Wrap(khova.ErrBadEncoding, err.Error())
	}
	st.NumEntries = int64(n)
	return nil
}

// catalog is a badger db wrapper that caches computed homologies.
type catalog struct {
	mu         sync.Mutex
	ctx        khova.CatalogContext
	readOnly   bool
	stateDirty bool
	state      catalogState
	db         *badger.DB
}

// OpenCatalog opens (or creates) a Catalog and attaches it to the given context.
// If opts.DbPathName is empty, the catalog is held in memory.
func OpenCatalog(ctx khova.CatalogContext, opts khova.CatalogOpts) (khova.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(khova.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	// Once the db is open, the catalog ctx is blocked until the catalog closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = !cat.readOnly
		cat.state.MajorVers = catalogMajorVers
		cat.state.MinorVers = catalogMinorVers
	}
	if err == nil && (cat.state.MajorVers != catalogMajorVers || cat.state.MinorVers != catalogMinorVers) {
		err = errors.Wrapf(khova.ErrBadEncoding, "catalog version %d.%d is incompatible", cat.state.MajorVers, cat.state.MinorVers)
	}
	if err != nil {
		cat.Close()
		return nil, err
	}

	return cat, nil
}

func (cat *catalog) loadState() error {
	return cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cat.state.Unmarshal(val)
		})
	})
}

func (cat *catalog) flushState() error {
	if !cat.stateDirty || cat.db == nil {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gCatalogStateKey, cat.state.Marshal())
	})
	if err == nil {
		cat.stateDirty = false
	}
	return err
}

func (cat *catalog) Close() error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	err := cat.flushState()
	if cat.db != nil {
		if closeErr := cat.db.Close(); err == nil {
			err = closeErr
		}
		cat.db = nil
		cat.ctx.DetachCatalog(cat)
		cat.ctx = nil
	}
	return err
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumEntries() int64 {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	return cat.state.NumEntries
}

func (cat *catalog) Lookup(L khova.Link) (khova.Homology, bool, error) {
	key := formEntryKey(nil, L)

	cat.mu.Lock()
	defer cat.mu.Unlock()
	if cat.db == nil {
		return nil, false, errors.Wrap(khova.ErrBadCatalogParam, "catalog is closed")
	}

	var entry khova.CatalogEntry
	err := cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeEntry(val, &entry)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Homology, true, nil
}

func (cat *catalog) Store(L khova.Link, H khova.Homology) error {
	if cat.readOnly {
		return errors.Wrap(khova.ErrBadCatalogParam, "catalog is read-only")
	}
	key := formEntryKey(nil, L)
	val := encodeEntry(L.Name(), H)

	cat.mu.Lock()
	defer cat.mu.Unlock()
	if cat.db == nil {
		return errors.Wrap(khova.ErrBadCatalogParam, "catalog is closed")
	}

	added := false
	err := cat.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			added = true
		} else if err != nil {
			return err
		}
		return txn.Set(key, val)
	})
	if err != nil {
		return err
	}
	if added {
		cat.state.NumEntries++
		cat.stateDirty = true
	}
	return nil
}

// Select sends every stored entry to onHit, in key order.
//
// Select blocks until onHit has received every entry; callers typically run it in its own goroutine
// and close onHit when it returns.
func (cat *catalog) Select(onHit khova.OnEntryHit) error {
	cat.mu.Lock()
	db := cat.db
	cat.mu.Unlock()
	if db == nil {
		return errors.Wrap(khova.ErrBadCatalogParam, "catalog is closed")
	}

	txn := db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: true,
		PrefetchSize:   100,
		Prefix:         gEntryPrefix,
	})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var entry khova.CatalogEntry
		err := it.Item().Value(func(val []byte) error {
			return decodeEntry(val, &entry)
		})
		if err != nil {
			return err
		}
		onHit <- entry
	}
	return nil
}

func formEntryKey(key []byte, L khova.Link) []byte {
	buf := proto.NewBuffer(append(key, gEntryPrefix...))

	code := L.Code()
	buf.EncodeVarint(uint64(L.NumCrossings()))
	for _, c := range code {
		buf.EncodeVarint(uint64(c))
	}

	mask := uint64(0)
	for k, positive := range L.Signs() {
		if positive {
			mask |= 1 << k
		}
	}
	buf.EncodeVarint(mask)

	unlinked := 0
	for _, compo := range L.Gauss() {
		if len(compo) == 0 {
			unlinked++
		}
	}
	buf.EncodeVarint(uint64(unlinked))

	return buf.Bytes()
}

func encodeEntry(name string, H khova.Homology) []byte {
	entries := H.Entries()

	buf := proto.NewBuffer(nil)
	buf.EncodeStringBytes(name)
	buf.EncodeVarint(uint64(len(entries)))
	for _, e := range entries {
		buf.EncodeZigzag64(uint64(int64(e.I)))
		buf.EncodeZigzag64(uint64(int64(e.J)))
		buf.EncodeVarint(uint64(e.Rank))
		buf.EncodeVarint(uint64(len(e.Torsion)))
		for _, t := range e.Torsion {
			buf.EncodeVarint(uint64(t))
		}
	}
	return buf.Bytes()
}

func decodeEntry(val []byte, entry *khova.CatalogEntry) error {
	buf := proto.NewBuffer(val)

	var err error
	next := func() int64 {
		var v uint64
		if err == nil {
			v, err = buf.DecodeVarint()
		}
		return int64(v)
	}
	nextZigzag := func() int {
		var v uint64
		if err == nil {
			v, err = buf.DecodeZigzag64()
		}
		return int(int64(v))
	}

	entry.Name, err = buf.DecodeStringBytes()
	numGroups := next()
	if err == nil && numGroups > int64(len(val)) {
		err = errors.Errorf("group count %d exceeds entry size", numGroups)
	}

	H := make(khova.Homology)
	for i := int64(0); i < numGroups && err == nil; i++ {
		at := khova.Bigrading{}
		at.I = nextZigzag()
		at.J = nextZigzag()

		G := khova.Group{Rank: int(next())}
		numTorsion := next()
		for t := int64(0); t < numTorsion && err == nil; t++ {
			G.Torsion = append(G.Torsion, next())
		}
		H[at] = G
	}
	if err != nil {
		return errors.Wrap(khova.ErrBadEncoding, err.Error())
	}

	entry.Homology = H
	return nil
}
