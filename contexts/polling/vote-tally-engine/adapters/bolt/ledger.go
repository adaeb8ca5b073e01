package boltadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"

	bolt "go.etcd.io/bbolt"
)

const (
	// dbFileName is the name of the ledger database file
	dbFileName string = "ledger.db"
	// bucketVotesName maps record id to the JSON encoded record
	bucketVotesName string = "votes"
	// bucketIdentityName maps voter session + poll id to record id
	bucketIdentityName string = "vote_identity"
)

var ErrDataDirRequired = errors.New("bolt ledger data dir is required")

type Options struct {
	// DataDir is the directory holding the ledger database. It's required
	DataDir string

	// Options hold all bolt options
	Options *bolt.Options

	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// Ledger is an embedded, single-process vote ledger. bbolt runs one write
// transaction at a time, so the identity check and insert of Create are
// atomic.
type Ledger struct {
	db     *bolt.DB
	clock  ports.Clock
	idGen  ports.IDGenerator
	logger *slog.Logger
}

type storedRecord struct {
	RecordID     string    `json:"record_id"`
	VoterSession string    `json:"voter_session"`
	PollID       string    `json:"poll_id"`
	OptionID     string    `json:"option_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func Open(options Options) (*Ledger, error) {
	if options.DataDir == "" {
		return nil, ErrDataDirRequired
	}
	if err := os.MkdirAll(options.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("create bolt ledger dir %s: %w", options.DataDir, err)
	}
	boltOptions := options.Options
	if boltOptions == nil {
		boltOptions = &bolt.Options{Timeout: time.Second}
	}
	db, err := bolt.Open(filepath.Join(options.DataDir, dbFileName), 0600, boltOptions)
	if err != nil {
		return nil, fmt.Errorf("open bolt ledger: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ledger := &Ledger{
		db:     db,
		clock:  options.Clock,
		idGen:  options.IDGen,
		logger: logger,
	}
	if !boltOptions.ReadOnly {
		if err := ledger.initializeBuckets(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return ledger, nil
}

func (l *Ledger) initializeBuckets() error {
	return l.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketVotesName)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketIdentityName))
		return err
	})
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) Find(_ context.Context, voterSession string, pollID string) (entities.VoteRecord, bool, error) {
	var (
		record entities.VoteRecord
		found  bool
	)
	err := l.db.View(func(tx *bolt.Tx) error {
		recordID := tx.Bucket([]byte(bucketIdentityName)).Get(identityKey(voterSession, pollID))
		if recordID == nil {
			return nil
		}
		value := tx.Bucket([]byte(bucketVotesName)).Get(recordID)
		if value == nil {
			return nil
		}
		decoded, err := decodeRecord(value)
		if err != nil {
			return err
		}
		record = decoded
		found = true
		return nil
	})
	if err != nil {
		return entities.VoteRecord{}, false, l.logError("tally_bolt_find_failed", err, "poll_id", pollID)
	}
	return record, found, nil
}

func (l *Ledger) Create(
	ctx context.Context,
	voterSession string,
	pollID string,
	optionID string,
) (entities.VoteRecord, error) {
	recordID, err := l.newID(ctx)
	if err != nil {
		return entities.VoteRecord{}, l.logError("tally_bolt_new_id_failed", err, "poll_id", pollID)
	}
	record := storedRecord{
		RecordID:     recordID,
		VoterSession: voterSession,
		PollID:       pollID,
		OptionID:     optionID,
		CreatedAt:    l.now(),
	}
	value, err := json.Marshal(record)
	if err != nil {
		return entities.VoteRecord{}, err
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		identity := tx.Bucket([]byte(bucketIdentityName))
		key := identityKey(voterSession, pollID)
		if identity.Get(key) != nil {
			return domainerrors.ErrDuplicateVote
		}
		if err := tx.Bucket([]byte(bucketVotesName)).Put([]byte(recordID), value); err != nil {
			return err
		}
		return identity.Put(key, []byte(recordID))
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateVote) {
			return entities.VoteRecord{}, err
		}
		return entities.VoteRecord{}, l.logError("tally_bolt_create_failed", err,
			"poll_id", pollID,
			"option_id", optionID,
		)
	}
	return record.toEntity(), nil
}

func (l *Ledger) Delete(_ context.Context, recordID string) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		votes := tx.Bucket([]byte(bucketVotesName))
		value := votes.Get([]byte(recordID))
		if value == nil {
			return domainerrors.ErrVoteRecordNotFound
		}
		record, err := decodeRecord(value)
		if err != nil {
			return err
		}
		if err := votes.Delete([]byte(recordID)); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketIdentityName)).Delete(identityKey(record.VoterSession, record.PollID))
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrVoteRecordNotFound) {
			return err
		}
		return l.logError("tally_bolt_delete_failed", err, "record_id", recordID)
	}
	return nil
}

func (l *Ledger) now() time.Time {
	if l.clock != nil {
		return l.clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *Ledger) newID(ctx context.Context) (string, error) {
	if l.idGen == nil {
		return "", errors.New("bolt ledger id generator is not configured")
	}
	return l.idGen.NewID(ctx)
}

func (l *Ledger) logError(event string, err error, attrs ...any) error {
	fields := []any{
		"event", event,
		"module", "polling/vote-tally-engine",
		"layer", "adapter",
		"error", err.Error(),
	}
	fields = append(fields, attrs...)
	l.logger.Error("bolt ledger operation failed", fields...)
	return fmt.Errorf("%w: %v", domainerrors.ErrStoreUnavailable, err)
}

// identityKey joins session and poll with a NUL byte, which cannot appear in
// either identifier.
func identityKey(voterSession string, pollID string) []byte {
	key := make([]byte, 0, len(voterSession)+len(pollID)+1)
	key = append(key, voterSession...)
	key = append(key, 0)
	key = append(key, pollID...)
	return key
}

func decodeRecord(value []byte) (entities.VoteRecord, error) {
	var record storedRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return entities.VoteRecord{}, err
	}
	return record.toEntity(), nil
}

func (r storedRecord) toEntity() entities.VoteRecord {
	return entities.VoteRecord{
		RecordID:     r.RecordID,
		VoterSession: r.VoterSession,
		PollID:       r.PollID,
		OptionID:     r.OptionID,
		CreatedAt:    r.CreatedAt,
	}
}

var _ ports.VoteLedger = (*Ledger)(nil)
