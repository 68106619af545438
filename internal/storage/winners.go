package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"raffle/internal/models"

	"github.com/google/logger"
	lru "github.com/hashicorp/golang-lru"
	bolt "go.etcd.io/bbolt"
)

const winnersBucket = "winners"

var ErrNotFound = errors.New("not found")

// WinnerStore keeps one record per resolved round, keyed by round number.
// Lookups by round go through an ARC cache.
type WinnerStore struct {
	db    *DB
	cache *lru.ARCCache
}

func NewWinnerStore(db *DB, cacheSize int) (*WinnerStore, error) {
	s := &WinnerStore{db: db}
	if cacheSize > 0 {
		c, err := lru.NewARC(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("new arc cache: %w", err)
		}
		s.cache = c
	}
	return s, nil
}

// Notify persists winner notifications. Storage failures are logged; the
// round has already been paid and reopened at this point.
func (s *WinnerStore) Notify(_ context.Context, ev models.Event) {
	if ev.Kind != models.EventWinnerPicked || ev.Winner == nil {
		return
	}
	if err := s.Add(*ev.Winner); err != nil {
		logger.Errorf("store winner of round %d: %v", ev.Winner.Round, err)
	}
}

func (s *WinnerStore) Add(rec models.WinnerRecord) error {
	bytes, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := s.db.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(winnersBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return b.Put(encodeUint64(rec.Round), bytes)
	}); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if s.cache != nil {
		s.cache.Add(rec.Round, rec)
	}
	return nil
}

func (s *WinnerStore) Fetch(round uint64) (models.WinnerRecord, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(round); ok {
			return v.(models.WinnerRecord), nil
		}
	}

	var rec models.WinnerRecord
	if err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(winnersBucket))
		if b == nil {
			return ErrNotFound
		}
		v := b.Get(encodeUint64(round))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	}); err != nil {
		return rec, fmt.Errorf("fetch round %d: %w", round, err)
	}

	if s.cache != nil {
		s.cache.Add(round, rec)
	}
	return rec, nil
}

// FetchAll returns every stored record, oldest round first.
func (s *WinnerStore) FetchAll() ([]models.WinnerRecord, error) {
	var list []models.WinnerRecord

	if err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(winnersBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var rec models.WinnerRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("json unmarshal: %w", err)
			}
			list = append(list, rec)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction: %w", err)
	}

	return list, nil
}

// NextRound returns the round number following the latest stored one, or 1
// for an empty store.
func (s *WinnerStore) NextRound() (uint64, error) {
	rec, err := s.Latest()
	if errors.Is(err, ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Round + 1, nil
}

// Latest returns the record with the highest round number.
func (s *WinnerStore) Latest() (models.WinnerRecord, error) {
	var rec models.WinnerRecord
	err := s.db.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(winnersBucket))
		if b == nil {
			return ErrNotFound
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return rec, fmt.Errorf("latest: %w", err)
	}
	return rec, nil
}
