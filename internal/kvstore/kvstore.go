// Package kvstore persists the ledger collections in a diskv key-value store.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/diskv/v3"
	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// Keys of the persisted collections.
const (
	KeyTransactions  = "financas-voz-data"
	KeyCategories    = "financas-voz-categories"
	KeyAppointments  = "financas-voz-agenda"
	KeySetupComplete = "financas-voz-setup-complete"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("kvstore: key not found")

// Data is everything loaded from disk at startup.
type Data struct {
	Transactions  []domain.Transaction
	Categories    []domain.Category
	Appointments  []domain.Appointment
	SetupComplete bool
}

// Options configures a Store.
type Options struct {
	// Dir is the directory holding one file per key.
	Dir string
	// Location is used to read dates without an offset during migration.
	Location *time.Location
	Log      zerolog.Logger
}

// TempDirName is the directory under Options.Dir where writes are staged
// before being renamed into place.
const TempDirName = ".tmp"

// Store is a JSON document store keyed by collection name.
type Store struct {
	d   *diskv.Diskv
	loc *time.Location
	log zerolog.Logger
}

// Open creates a Store rooted at opts.Dir. The directory is created on first write.
func Open(opts Options) *Store {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:     opts.Dir,
			TempDir:      filepath.Join(opts.Dir, TempDirName),
			CacheSizeMax: 1024 * 1024, // 1MB
		}),
		loc: loc,
		log: opts.Log,
	}
}

// Get returns the raw value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	if !s.d.Has(key) {
		return nil, ErrNotFound
	}
	val, err := s.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("Get: reading %s: %w", key, err)
	}
	return val, nil
}

// Put replaces the value stored under key.
func (s *Store) Put(key string, val []byte) error {
	if err := s.d.Write(key, val); err != nil {
		return fmt.Errorf("Put: writing %s: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("putJSON: marshal %s: %w", key, err)
	}
	return s.Put(key, data)
}

// getJSON decodes key into v. It reports false when the key is absent.
func (s *Store) getJSON(key string, v interface{}) (bool, error) {
	val, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, v); err != nil {
		return false, fmt.Errorf("getJSON: unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Load reads every collection. A collection that cannot be read falls back
// to its default and is logged; the others still load.
func (s *Store) Load() Data {
	data, _ := s.load(false)
	return data
}

// LoadStrict is Load without the fallbacks. The first collection that cannot
// be read is returned as an error.
func (s *Store) LoadStrict() (Data, error) {
	return s.load(true)
}

func (s *Store) load(strict bool) (Data, error) {
	var data Data

	if err := s.loadTransactions(&data); err != nil {
		if strict {
			return Data{}, fmt.Errorf("LoadStrict: %w", err)
		}
		s.log.Warn().Err(err).Str("key", KeyTransactions).Msg("Discarding unreadable transactions")
		data.Transactions = []domain.Transaction{}
	}

	found, err := s.getJSON(KeyCategories, &data.Categories)
	if err != nil && strict {
		return Data{}, fmt.Errorf("LoadStrict: %w", err)
	}
	if err != nil || !found || data.Categories == nil {
		if err != nil {
			s.log.Warn().Err(err).Str("key", KeyCategories).Msg("Discarding unreadable categories")
		}
		data.Categories = domain.DefaultCategories()
	}

	if _, err := s.getJSON(KeyAppointments, &data.Appointments); err != nil {
		if strict {
			return Data{}, fmt.Errorf("LoadStrict: %w", err)
		}
		s.log.Warn().Err(err).Str("key", KeyAppointments).Msg("Discarding unreadable appointments")
		data.Appointments = nil
	}
	if data.Appointments == nil {
		data.Appointments = []domain.Appointment{}
	}

	val, err := s.Get(KeySetupComplete)
	switch {
	case err == nil:
		data.SetupComplete = string(val) == "true"
	case strict && !errors.Is(err, ErrNotFound):
		return Data{}, fmt.Errorf("LoadStrict: %w", err)
	}

	return data, nil
}

func (s *Store) loadTransactions(data *Data) error {
	var txs []domain.Transaction
	if _, err := s.getJSON(KeyTransactions, &txs); err != nil {
		return err
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	data.Transactions = MigrateTimestamps(txs, s.loc, s.log)
	return nil
}

// MigrateTimestamps backfills a missing timestamp from the transaction date.
// Records whose date cannot be parsed keep a zero timestamp.
func MigrateTimestamps(txs []domain.Transaction, loc *time.Location, log zerolog.Logger) []domain.Transaction {
	for i := range txs {
		if txs[i].Timestamp != 0 {
			continue
		}
		ts, err := domain.TimestampFromDate(txs[i].Date, loc)
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", txs[i].ID).Msg("Cannot derive timestamp")
			continue
		}
		txs[i].Timestamp = ts
	}
	return txs
}

// SaveTransactions rewrites the transaction collection.
func (s *Store) SaveTransactions(txs []domain.Transaction) error {
	return s.putJSON(KeyTransactions, txs)
}

// SaveCategories rewrites the category collection.
func (s *Store) SaveCategories(cats []domain.Category) error {
	return s.putJSON(KeyCategories, cats)
}

// SaveAppointments rewrites the appointment collection.
func (s *Store) SaveAppointments(appts []domain.Appointment) error {
	return s.putJSON(KeyAppointments, appts)
}

// SaveSetupComplete records whether first-run setup was finished.
func (s *Store) SaveSetupComplete(done bool) error {
	if !done {
		if err := s.d.Erase(KeySetupComplete); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("SaveSetupComplete: erase: %w", err)
		}
		return nil
	}
	return s.Put(KeySetupComplete, []byte("true"))
}
