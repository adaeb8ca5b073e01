package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the durable vote ledger plus a read-only view of the poll
// tables owned by the poll service. The unique index on
// (session_id, poll_id) is what enforces one active vote per voter.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// SeedPolls inserts polls and options that are not present yet. Existing
// rows are left untouched.
func (r *Repository) SeedPolls(ctx context.Context, polls []entities.Poll) error {
	if len(polls) == 0 {
		return nil
	}
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, poll := range polls {
			row := pollModel{
				ID:        strings.TrimSpace(poll.PollID),
				Title:     strings.TrimSpace(poll.Title),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
			if len(poll.Options) == 0 {
				continue
			}
			options := make([]pollOptionModel, 0, len(poll.Options))
			for position, option := range poll.Options {
				options = append(options, pollOptionModel{
					ID:       strings.TrimSpace(option.OptionID),
					Title:    strings.TrimSpace(option.Title),
					PollID:   row.ID,
					Position: position,
				})
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&options).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.logError("tally_repo_seed_failed", err, "polls", len(polls))
	}
	return nil
}

// Migrate creates the tables used by this repository when they are missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&pollModel{}, &pollOptionModel{}, &voteModel{}); err != nil {
		return r.logError("tally_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, voterSession string, pollID string) (entities.VoteRecord, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", voterSession).
		Where("poll_id = ?", pollID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteRecord{}, false, nil
		}
		return entities.VoteRecord{}, false, r.logError("tally_repo_find_vote_failed", err,
			"poll_id", pollID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) Create(
	ctx context.Context,
	voterSession string,
	pollID string,
	optionID string,
) (entities.VoteRecord, error) {
	row := voteModel{
		ID:           uuid.NewString(),
		SessionID:    voterSession,
		PollID:       pollID,
		PollOptionID: optionID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.VoteRecord{}, domainerrors.ErrDuplicateVote
		}
		return entities.VoteRecord{}, r.logError("tally_repo_create_vote_failed", err,
			"poll_id", pollID,
			"option_id", optionID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) Delete(ctx context.Context, recordID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", recordID).
		Delete(&voteModel{})
	if result.Error != nil {
		return r.logError("tally_repo_delete_vote_failed", result.Error, "record_id", recordID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoteRecordNotFound
	}
	return nil
}

func (r *Repository) PollExists(ctx context.Context, pollID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("id = ?", strings.TrimSpace(pollID)).
		Count(&count).Error; err != nil {
		return false, r.logError("tally_repo_poll_exists_failed", err, "poll_id", pollID)
	}
	return count > 0, nil
}

func (r *Repository) OptionBelongsToPoll(ctx context.Context, pollID string, optionID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&pollOptionModel{}).
		Where("id = ?", strings.TrimSpace(optionID)).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Count(&count).Error; err != nil {
		return false, r.logError("tally_repo_option_lookup_failed", err,
			"poll_id", pollID,
			"option_id", optionID,
		)
	}
	return count > 0, nil
}

func (r *Repository) ListOptions(ctx context.Context, pollID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&pollOptionModel{}).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		Order(optionOrder).
		Pluck("id", &ids).Error; err != nil {
		return nil, r.logError("tally_repo_list_options_failed", err, "poll_id", pollID)
	}
	return ids, nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.Poll, error) {
	var poll pollModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(pollID)).
		First(&poll).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Poll{}, domainerrors.ErrPollNotFound
		}
		return entities.Poll{}, r.logError("tally_repo_get_poll_failed", err, "poll_id", pollID)
	}

	var options []pollOptionModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", poll.ID).
		Order(optionOrder).
		Find(&options).Error; err != nil {
		return entities.Poll{}, r.logError("tally_repo_get_poll_options_failed", err, "poll_id", pollID)
	}

	item := entities.Poll{
		PollID:  poll.ID,
		Title:   poll.Title,
		Options: make([]entities.PollOption, 0, len(options)),
	}
	for _, option := range options {
		item.Options = append(item.Options, entities.PollOption{
			OptionID: option.ID,
			Title:    option.Title,
		})
	}
	return item, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling/vote-tally-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tally repository operation failed", fields...)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", domainerrors.ErrStoreUnavailable, err)
}

type voteModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	SessionID    string    `gorm:"column:session_id;not null;uniqueIndex:votes_session_id_poll_id_key,priority:1"`
	PollID       string    `gorm:"column:poll_id;not null;uniqueIndex:votes_session_id_poll_id_key,priority:2"`
	PollOptionID string    `gorm:"column:poll_option_id;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (voteModel) TableName() string {
	return "votes"
}

func (m voteModel) toEntity() entities.VoteRecord {
	return entities.VoteRecord{
		RecordID:     m.ID,
		VoterSession: m.SessionID,
		PollID:       m.PollID,
		OptionID:     m.PollOptionID,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type pollModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

// optionOrder lists options in the order they were added to the poll.
const optionOrder = "position ASC, id ASC"

type pollOptionModel struct {
	ID       string `gorm:"column:id;primaryKey"`
	Title    string `gorm:"column:title"`
	PollID   string `gorm:"column:poll_id;index"`
	Position int    `gorm:"column:position"`
}

func (pollOptionModel) TableName() string {
	return "poll_options"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.VoteLedger = (*Repository)(nil)
var _ ports.PollCatalog = (*Repository)(nil)
