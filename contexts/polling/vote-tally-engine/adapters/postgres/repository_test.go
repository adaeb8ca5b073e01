package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "votes_session_id_poll_id_key"}
	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert vote: %w", unique)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("duplicate key")))
	assert.False(t, isUniqueViolation(nil))
}

func TestModelTableNames(t *testing.T) {
	assert.Equal(t, "votes", voteModel{}.TableName())
	assert.Equal(t, "polls", pollModel{}.TableName())
	assert.Equal(t, "poll_options", pollOptionModel{}.TableName())
}

func TestUUIDGeneratorMintsDistinctSessions(t *testing.T) {
	gen := UUIDGenerator{}
	first, err := gen.NewSession(context.Background())
	require.NoError(t, err)
	second, err := gen.NewSession(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Len(t, first, 36)
}
