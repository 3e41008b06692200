package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kilupskalvis/envstash/internal/models"
	bolt "go.etcd.io/bbolt"
)

// seqKey encodes a sequence number so keys sort chronologically.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// AppendHistory stores a record, assigning its ID and sequence number.
func (s *Store) AppendHistory(rec *models.HistoryRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		if b == nil {
			return fmt.Errorf("history bucket not found")
		}

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next history sequence: %w", err)
		}
		rec.Seq = seq
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal history record: %w", err)
		}
		return b.Put(seqKey(seq), data)
	})
}

// ListHistory returns up to limit records, newest first. limit <= 0 means all.
func (s *Store) ListHistory(limit int) ([]*models.HistoryRecord, error) {
	var records []*models.HistoryRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec models.HistoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshal history record: %w", err)
			}
			records = append(records, &rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	return records, err
}
