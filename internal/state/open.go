package state

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/financas-voz/internal/kvstore"
)

// Open loads the persisted collections from kv and returns a Store writing back to it.
func Open(kv *kvstore.Store, log zerolog.Logger) *Store {
	data := kv.Load()
	log.Info().
		Int("transactions", len(data.Transactions)).
		Int("categories", len(data.Categories)).
		Int("appointments", len(data.Appointments)).
		Bool("setup_complete", data.SetupComplete).
		Msg("State loaded")

	return New(fromData(data), kv, log)
}

func fromData(data kvstore.Data) State {
	return State{
		Transactions:  data.Transactions,
		Categories:    data.Categories,
		Appointments:  data.Appointments,
		SetupComplete: data.SetupComplete,
	}
}

// Reader reads the data directory afresh on every ReadState, for processes
// that share it with a running server.
type Reader struct {
	Dir      string
	Location *time.Location
	Log      zerolog.Logger
}

// ReadState returns the state currently on disk. Unlike Open it does not fall
// back to defaults: a collection that cannot be read is an error.
func (r Reader) ReadState() (State, error) {
	kv := kvstore.Open(kvstore.Options{Dir: r.Dir, Location: r.Location, Log: r.Log})
	data, err := kv.LoadStrict()
	if err != nil {
		return State{}, fmt.Errorf("ReadState: %w", err)
	}
	return New(fromData(data), nil, r.Log).Snapshot(), nil
}
