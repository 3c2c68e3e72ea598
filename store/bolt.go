package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var logsBucket = []byte("moderation_logs")

// Bolt is a LogStore in a local BoltDB file. Records live under
// moderation_logs/<guild>/<user>/<case>, and the user bucket's sequence is
// the case counter.
type Bolt struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(logsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create buckets")
	}
	return &Bolt{db: db}, nil
}

func (s *Bolt) Insert(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp(rec)
	return s.db.Update(func(tx *bbolt.Tx) error {
		guild, err := tx.Bucket(logsBucket).CreateBucketIfNotExists([]byte(rec.GuildID))
		if err != nil {
			return err
		}
		user, err := guild.CreateBucketIfNotExists([]byte(rec.UserID))
		if err != nil {
			return err
		}
		seq, err := user.NextSequence()
		if err != nil {
			return err
		}
		rec.CaseNumber = int64(seq)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return user.Put(caseKey(rec.CaseNumber), data)
	})
}

func (s *Bolt) Find(ctx context.Context, guildID, userID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		user := userBucket(tx, guildID, userID)
		if user == nil {
			return nil
		}
		// keys are big-endian so cursor order is case order
		return user.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decode case %d", binary.BigEndian.Uint64(k))
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func (s *Bolt) Delete(ctx context.Context, guildID, userID string, caseNumber int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		user := userBucket(tx, guildID, userID)
		if user == nil || user.Get(caseKey(caseNumber)) == nil {
			return ErrNotFound
		}
		return user.Delete(caseKey(caseNumber))
	})
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func userBucket(tx *bbolt.Tx, guildID, userID string) *bbolt.Bucket {
	guild := tx.Bucket(logsBucket).Bucket([]byte(guildID))
	if guild == nil {
		return nil
	}
	return guild.Bucket([]byte(userID))
}

func caseKey(n int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(n))
	return k
}
