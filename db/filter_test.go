package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rolodex-app/directory-services/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereClause(t *testing.T) {
	pid := uuid.New()
	gid := uuid.New()

	where, args, err := profileGroupColumns.where(models.And(models.Eq("profileID", pid), models.Eq("groupID", gid)))

	require.NoError(t, err)
	assert.Equal(t, " WHERE profile_id = $1 AND group_id = $2", where)
	assert.Equal(t, []interface{}{pid.String(), gid.String()}, args)
}

func TestWhereClauseEmptyAndUnknown(t *testing.T) {
	where, args, err := insightColumns.where(models.Filter{})
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)

	_, _, err = insightColumns.where(models.Eq("groupID", uuid.New()))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPageClause(t *testing.T) {
	clause, args, offset, limit, err := page(models.ListOptions{
		Limit:       10,
		PagingToken: models.EncodePagingToken(20),
	}, []interface{}{"owner-1"})

	require.NoError(t, err)
	assert.Equal(t, " ORDER BY created_at, id LIMIT $2 OFFSET $3", clause)
	assert.Equal(t, []interface{}{"owner-1", 11, 20}, args)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)
}

func TestNextToken(t *testing.T) {
	items, token := nextToken([]int{1, 2, 3}, 0, 2)
	assert.Equal(t, []int{1, 2}, items)
	assert.Equal(t, models.EncodePagingToken(2), token)

	items, token = nextToken([]int{1, 2}, 4, 2)
	assert.Equal(t, []int{1, 2}, items)
	assert.Empty(t, token)
}
