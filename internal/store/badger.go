package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	linkPrefix  = "link/"
	sequenceKey = "seq/link"
	// sequenceBandwidth is the number of ids leased from badger at a time.
	sequenceBandwidth = 100
)

// Badger is a Repository stored in a badger key-value database. Links are
// JSON values under link/<zero-padded id>, so key order is creation order.
type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ Repository = (*Badger)(nil)

// OpenBadger opens the database in dir, or an in-memory database when inMemory is set.
func OpenBadger(dir string, inMemory bool, logger *zap.Logger) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithInMemory(inMemory)
	if inMemory {
		opts = opts.WithDir("").WithValueDir("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.WithLogger(&badgerLogger{logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %q", dir)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "lease link ids")
	}
	return &Badger{db: db, seq: seq}, nil
}

func linkKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", linkPrefix, id))
}

func (b *Badger) All(ctx context.Context, filter Filter) ([]*Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*Link
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(linkPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var l Link
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &l)
			}); err != nil {
				return errors.Wrapf(err, "decode %s", it.Item().Key())
			}
			if filter.Match(&l) {
				out = append(out, &l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return filter.Page(out), nil
}

func (b *Badger) Get(ctx context.Context, id string) (*Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	var l Link
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(linkKey(n))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &l)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get link %s", id)
	}
	return &l, nil
}

func (b *Badger) Create(ctx context.Context, url, description string) (*Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateURL(url); err != nil {
		return nil, err
	}
	// sequences start at zero
	n, err := b.seq.Next()
	if err != nil {
		return nil, errors.Wrap(err, "next link id")
	}
	id := n + 1
	l := &Link{ID: strconv.FormatUint(id, 10), URL: url, Description: description}
	val, err := json.Marshal(l)
	if err != nil {
		return nil, errors.Wrap(err, "encode link")
	}
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(linkKey(id), val)
	}); err != nil {
		return nil, errors.Wrapf(err, "store link %s", l.ID)
	}
	return l, nil
}

// Close returns unused leased ids and closes the database.
func (b *Badger) Close() error {
	if err := b.seq.Release(); err != nil {
		_ = b.db.Close()
		return errors.Wrap(err, "release link ids")
	}
	return b.db.Close()
}

// badgerLogger routes badger's logs to zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
