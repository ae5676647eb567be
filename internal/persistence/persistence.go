package persistence

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markusressel/vent2go/internal/ui"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketCommandHistory = "commandHistory"

	DefaultHistorySize = 500
)

// CommandRecord is a single entry of the command history of a device
type CommandRecord struct {
	Time   time.Time `json:"time"`
	Origin string    `json:"origin"`
	Action string    `json:"action"`
	Level  *int      `json:"level,omitempty"`
	// Target is the level of the device after the command was handled
	Target int    `json:"target"`
	Error  string `json:"error,omitempty"`
}

type Persistence interface {
	Init() error

	// SaveCommand appends a record to the history of the given device, dropping the oldest
	// entries once the history exceeds its size
	SaveCommand(deviceId string, record CommandRecord) error
	// LoadCommandHistory returns up to limit of the most recent records, newest first.
	// A limit <= 0 returns the whole history.
	LoadCommandHistory(deviceId string, limit int) ([]CommandRecord, error)
	DeleteCommandHistory(deviceId string) error
}

type persistence struct {
	dbPath      string
	historySize int
}

func NewPersistence(dbPath string, historySize int) Persistence {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	p := &persistence{
		dbPath:      dbPath,
		historySize: historySize,
	}
	return p
}

func (p persistence) Init() (err error) {
	// get parent path of dbPath
	parentDir := filepath.Dir(p.dbPath)
	_, err = os.Stat(parentDir)
	if errors.Is(err, os.ErrNotExist) {
		// create directory
		ui.Info("Creating directory for db: %s", parentDir)
		err = os.MkdirAll(parentDir, 0755)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) openPersistence() (db *bolt.DB, err error) {
	db, err = bolt.Open(p.dbPath, 0600, &bolt.Options{Timeout: 1 * time.Minute})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func sequenceKey(sequence uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, sequence)
	return key
}

func (p persistence) SaveCommand(deviceId string, record CommandRecord) (err error) {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(BucketCommandHistory))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		b, err := root.CreateBucketIfNotExists([]byte(deviceId))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}

		sequence, err := b.NextSequence()
		if err != nil {
			return err
		}
		err = b.Put(sequenceKey(sequence), data)
		if err != nil {
			return err
		}

		return p.truncate(b)
	})
}

// truncate removes the oldest entries of a device bucket exceeding the history size
func (p persistence) truncate(b *bolt.Bucket) error {
	count := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		count++
	}

	excess := count - p.historySize
	if excess <= 0 {
		return nil
	}

	var keys [][]byte
	for k, _ := c.First(); k != nil && len(keys) < excess; k, _ = c.Next() {
		keys = append(keys, append([]byte{}, k...))
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (p persistence) LoadCommandHistory(deviceId string, limit int) ([]CommandRecord, error) {
	db, err := p.openPersistence()
	if err != nil {
		return nil, err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	result := []CommandRecord{}
	err = db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(BucketCommandHistory))
		if root == nil {
			return nil
		}
		b := root.Bucket([]byte(deviceId))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(result) >= limit {
				break
			}
			var record CommandRecord
			if err := json.Unmarshal(v, &record); err != nil {
				ui.Warning("Unable to unmarshal command history entry of %s: %v", deviceId, err)
				continue
			}
			result = append(result, record)
		}
		return nil
	})

	return result, err
}

func (p persistence) DeleteCommandHistory(deviceId string) error {
	db, err := p.openPersistence()
	if err != nil {
		return err
	}
	defer func(db *bolt.DB) {
		_ = db.Close()
	}(db)

	return db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(BucketCommandHistory))
		if root == nil {
			// no history yet
			return nil
		}
		if root.Bucket([]byte(deviceId)) == nil {
			return nil
		}
		return root.DeleteBucket([]byte(deviceId))
	})
}
