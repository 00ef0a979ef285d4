/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bolt is a vocab.Store backed by a BoltDB file.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Comcast/voxmatch/vocab"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketName = []byte("vocab")

	// NotOpen is returned when the Storage is used before Open.
	NotOpen = errors.New("vocabulary storage not open")

	// EmptyEntityType is returned for an attempt to write an
	// entity type with no name.
	EmptyEntityType = errors.New("empty entity type")
)

// Storage keeps each entity type's phrases as a JSON array under
// the entity type's name.
type Storage struct {
	Debug bool

	// Timeout is the time to wait for the file lock.
	Timeout time.Duration

	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		Timeout:  time.Second,
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: s.Timeout,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB vocab Storage."+format, args...)
	}
}

func (s *Storage) Put(ctx context.Context, entityType string, phrases []string) error {
	s.logf("Put %s (%d phrases)", entityType, len(phrases))
	if s.db == nil {
		return NotOpen
	}
	if entityType == "" {
		return EmptyEntityType
	}
	if phrases == nil {
		phrases = []string{}
	}
	js, err := json.Marshal(phrases)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(entityType), js)
	})
}

func (s *Storage) Get(ctx context.Context, entityType string) ([]string, error) {
	s.logf("Get %s", entityType)
	if s.db == nil {
		return nil, NotOpen
	}
	var phrases []string
	err := s.db.View(func(tx *bolt.Tx) error {
		js := tx.Bucket(bucketName).Get([]byte(entityType))
		if js == nil {
			return nil
		}
		return json.Unmarshal(js, &phrases)
	})
	if err != nil {
		return nil, err
	}
	return phrases, nil
}

func (s *Storage) Remove(ctx context.Context, entityType string) error {
	s.logf("Remove %s", entityType)
	if s.db == nil {
		return NotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(entityType))
	})
}

// Import writes every entity type in the given map in one
// transaction.
func (s *Storage) Import(ctx context.Context, m vocab.Map) error {
	s.logf("Import %d entity types", len(m))
	if s.db == nil {
		return NotOpen
	}
	vals := make(map[string][]byte, len(m))
	for t, phrases := range m {
		if t == "" {
			return EmptyEntityType
		}
		if phrases == nil {
			phrases = []string{}
		}
		js, err := json.Marshal(phrases)
		if err != nil {
			return err
		}
		vals[t] = js
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for t, js := range vals {
			if err := b.Put([]byte(t), js); err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot reads every entity type into a new vocab.Map.
//
// The returned Map shares nothing with the database, so later writes
// don't affect templates compiled against it.
func (s *Storage) Snapshot(ctx context.Context) (vocab.Map, error) {
	s.logf("Snapshot")
	if s.db == nil {
		return nil, NotOpen
	}
	m := make(vocab.Map)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, js := c.First(); k != nil; k, js = c.Next() {
			var phrases []string
			if err := json.Unmarshal(js, &phrases); err != nil {
				return err
			}
			m[string(k)] = phrases
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logf("Snapshot found %d entity types", len(m))
	return m, nil
}
