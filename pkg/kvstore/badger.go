package kvstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/coho-storage/blobwarden/pkg/logging"
)

var _ KVStore = (*BadgerKVStore)(nil)

var blog = Log.With("driver", "badger")

type blogger struct {
	*logging.ZapLogger
}

func (bl *blogger) Warningf(format string, args ...any) {
	bl.ZapLogger.Warnf(format, args...)
}

func DefaultBadgerOption(path string) badger.Options {
	return badger.DefaultOptions(path).WithLogger(&blogger{blog})
}

func OpenBadger(opt badger.Options) (*BadgerKVStore, error) {
	db, err := badger.Open(opt)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", opt.Dir, err)
	}

	return &BadgerKVStore{
		db: db,
	}, nil
}

type BadgerKVStore struct {
	db *badger.DB
}

func (b *BadgerKVStore) Get(_ context.Context, key Key) (Val, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		switch item, err := txn.Get(key); err {
		case nil:
			val, err = item.ValueCopy(nil)
			return err

		case badger.ErrKeyNotFound:
			return ErrKeyNotFound

		default:
			return fmt.Errorf("get value from badger: %w", err)
		}
	})

	if err != nil {
		return nil, err
	}

	return val, nil
}

func (b *BadgerKVStore) Has(_ context.Context, key Key) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	switch err {
	case badger.ErrKeyNotFound:
		return false, nil
	case nil:
		return true, nil
	default:
		return false, fmt.Errorf("check key in badger: %w", err)
	}
}

func (b *BadgerKVStore) View(_ context.Context, key Key, cb Callback) error {
	return b.db.View(func(txn *badger.Txn) error {
		switch item, err := txn.Get(key); err {
		case nil:
			return item.Value(cb)

		case badger.ErrKeyNotFound:
			return ErrKeyNotFound

		default:
			return fmt.Errorf("get value from badger: %w", err)
		}
	})
}

func (b *BadgerKVStore) Put(_ context.Context, key Key, val Val) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (b *BadgerKVStore) Del(_ context.Context, key Key) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *BadgerKVStore) Scan(_ context.Context, prefix Prefix) (Iter, error) {
	txn := b.db.NewTransaction(false)
	iter := txn.NewIterator(badger.DefaultIteratorOptions)

	return &BadgerIter{
		txn:    txn,
		iter:   iter,
		prefix: prefix,
	}, nil
}

func (b *BadgerKVStore) Run(context.Context) error { return nil }

func (b *BadgerKVStore) Close(context.Context) error {
	return b.db.Close()
}

var _ Iter = (*BadgerIter)(nil)

type BadgerIter struct {
	txn  *badger.Txn
	iter *badger.Iterator
	item *badger.Item

	seeked bool
	valid  bool
	prefix []byte
}

func (bi *BadgerIter) Next() bool {
	if bi.seeked {
		bi.iter.Next()
	} else {
		if len(bi.prefix) == 0 {
			bi.iter.Rewind()
		} else {
			bi.iter.Seek(bi.prefix)
		}
		bi.seeked = true
	}

	if len(bi.prefix) == 0 {
		bi.valid = bi.iter.Valid()
	} else {
		bi.valid = bi.iter.ValidForPrefix(bi.prefix)
	}

	if bi.valid {
		bi.item = bi.iter.Item()
	}

	return bi.valid
}

func (bi *BadgerIter) Key() Key {
	if !bi.valid {
		return nil
	}

	return bi.item.KeyCopy(nil)
}

func (bi *BadgerIter) View(_ context.Context, cb Callback) error {
	if !bi.valid {
		return ErrIterItemNotValid
	}

	return bi.item.Value(cb)
}

func (bi *BadgerIter) Close() {
	bi.iter.Close()
	bi.txn.Discard()
}
