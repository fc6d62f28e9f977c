package providers

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"streamscout/internal/constants"
	"streamscout/internal/models"
	"streamscout/pkg/logger"
)

var releasesBucket = []byte("releases")

// LocalIndex is the offline candidate store: top-ranked candidates from
// past discoveries are remembered per item so a request can be answered
// even when every remote provider is down. It is queried synchronously
// and merged first by the aggregator.
type LocalIndex struct {
	db     *bolt.DB
	logger logger.Logger
}

// OpenLocalIndex opens (creating if needed) the bbolt file backing the
// index.
func OpenLocalIndex(path string, log logger.Logger) (*LocalIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create index directory")
	}

	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open local index")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(releasesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create releases bucket")
	}

	return &LocalIndex{db: db, logger: log}, nil
}

func (l *LocalIndex) Close() error {
	return l.db.Close()
}

// Descriptor identifies the local index as a synthetic provider in
// discovery responses.
func (l *LocalIndex) Descriptor() models.ProviderDescriptor {
	return models.ProviderDescriptor{
		ID:     constants.ProviderLocal,
		Name:   "Local Index",
		Active: true,
	}
}

// Lookup returns the remembered candidates for an item, or nil.
func (l *LocalIndex) Lookup(req Request) []models.StreamCandidate {
	var candidates []models.StreamCandidate

	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(releasesBucket).Get([]byte(req.Key()))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &candidates)
	})
	if err != nil {
		l.logger.Warnf("[LocalIndex] lookup failed for %s: %v", req.Key(), err)
		return nil
	}

	// Stored scores and penalties are from a past run; the ranking
	// stage recomputes both.
	for i := range candidates {
		candidates[i].Score = 0
		candidates[i].ReliabilityPenalty = 0
	}
	return candidates
}

// Remember stores the top-ranked candidates for an item, replacing any
// previous entry wholesale.
func (l *LocalIndex) Remember(req Request, candidates []models.StreamCandidate) error {
	if len(candidates) > constants.MaxLocalIndexEntries {
		candidates = candidates[:constants.MaxLocalIndexEntries]
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return errors.Wrap(err, "marshal index entry")
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(releasesBucket).Put([]byte(req.Key()), data)
	})
	return errors.Wrap(err, "store index entry")
}
