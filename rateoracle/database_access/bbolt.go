package databaseaccess

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"go.etcd.io/bbolt"
)

// Keys embed the timestamp with fixed width nanoseconds so a byte-wise ordered
// scan is also a chronological one.
const rateKeyTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var ratesHistoryBucket = []byte("RatesHistory")

type BBoltDatabase struct {
	db *bbolt.DB
}

var (
	_ core.RatesHistoryDB = (*BBoltDatabase)(nil)
	_ oracleCore.RateSink = (*BBoltDatabase)(nil)
)

func NewDatabase(filePath string) (*BBoltDatabase, error) {
	db := &BBoltDatabase{}
	if err := db.Init(filePath); err != nil {
		return nil, err
	}

	return db, nil
}

func (bd *BBoltDatabase) Init(filePath string) error {
	db, err := bbolt.Open(filePath, 0660, nil)
	if err != nil {
		return fmt.Errorf("could not open db: %w", err)
	}

	bd.db = db

	return db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(ratesHistoryBucket)
		if err != nil {
			return fmt.Errorf("could not bucket: %s, err: %w", string(ratesHistoryBucket), err)
		}

		return nil
	})
}

func (bd *BBoltDatabase) Close() error {
	return bd.db.Close()
}

// AddRate implements core.RatesHistoryDB.
func (bd *BBoltDatabase) AddRate(rate oracleCore.AggregatedRate) error {
	return bd.db.Update(func(tx *bbolt.Tx) error {
		bytes, err := json.Marshal(rate)
		if err != nil {
			return fmt.Errorf("could not marshal rate: %w", err)
		}

		if err = tx.Bucket(ratesHistoryBucket).Put(rateDBKey(rate), bytes); err != nil {
			return fmt.Errorf("rate write error: %w", err)
		}

		return nil
	})
}

// GetRatesForPair implements core.RatesHistoryDB. Rates come back newest
// first. A limit of zero or less returns the pair's full history.
func (bd *BBoltDatabase) GetRatesForPair(
	pair oracleCore.CurrencyPair, limit int,
) (result []oracleCore.AggregatedRate, err error) {
	prefix := []byte(fmt.Sprintf("%s_%s_", pair.Base, pair.Target))

	err = bd.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(ratesHistoryBucket).Cursor()

		for key, value := seekLastWithPrefix(cursor, prefix); key != nil &&
			bytes.HasPrefix(key, prefix); key, value = cursor.Prev() {
			var rate oracleCore.AggregatedRate

			if err := json.Unmarshal(value, &rate); err != nil {
				return fmt.Errorf("could not unmarshal rate: %w", err)
			}

			result = append(result, rate)

			if limit > 0 && len(result) >= limit {
				break
			}
		}

		return nil
	})

	return result, err
}

// SubmitRate implements the aggregator sink on top of AddRate, so rates land
// in the history the moment they are produced.
func (bd *BBoltDatabase) SubmitRate(_ context.Context, rate oracleCore.AggregatedRate) error {
	return bd.AddRate(rate)
}

func rateDBKey(rate oracleCore.AggregatedRate) []byte {
	return []byte(fmt.Sprintf("%s_%s_%s",
		rate.Pair.Base, rate.Pair.Target, rate.Timestamp.UTC().Format(rateKeyTimeFormat)))
}

// seekLastWithPrefix positions the cursor on the highest key carrying prefix.
// The prefix always ends with the pair separator, so incrementing the last
// byte yields a strict upper bound.
func seekLastWithPrefix(cursor *bbolt.Cursor, prefix []byte) ([]byte, []byte) {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++

	if key, _ := cursor.Seek(bound); key == nil {
		return cursor.Last()
	}

	return cursor.Prev()
}
