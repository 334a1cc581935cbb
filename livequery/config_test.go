package livequery_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technoplato/sharing-instant-sub003/livequery"
)

func Test_ConfigurationBuilder_ValidCombinations(t *testing.T) {
	entityID := uuid.New()

	tests := []struct {
		name     string
		build    func() (livequery.QueryConfiguration, error)
		validate func(t *testing.T, config livequery.QueryConfiguration)
	}{
		{
			name: "namespace_only",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").Finalize()
			},
			validate: func(t *testing.T, config livequery.QueryConfiguration) {
				assert.Equal(t, "todos", config.Namespace())

				_, hasEntityID := config.EntityID()
				assert.False(t, hasEntityID)

				_, _, hasOrder := config.OrderBy()
				assert.False(t, hasOrder)

				_, hasLimit := config.Limit()
				assert.False(t, hasLimit)

				assert.Nil(t, config.WhereClause())
				assert.Empty(t, config.LinkTree())

				_, hasFixture := config.TestingValue()
				assert.False(t, hasFixture)
			},
		},
		{
			name: "entity_lookup",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").ForEntityID(entityID).Finalize()
			},
			validate: func(t *testing.T, config livequery.QueryConfiguration) {
				id, ok := config.EntityID()
				assert.True(t, ok)
				assert.Equal(t, entityID, id)
			},
		},
		{
			name: "ordered_limited_filtered",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").
					OrderedBy("createdAt", true).
					LimitedTo(0).
					Where("done", false).
					WhereOp("priority", livequery.OpGreaterOrEqual, 2).
					Finalize()
			},
			validate: func(t *testing.T, config livequery.QueryConfiguration) {
				field, descending, ok := config.OrderBy()
				assert.True(t, ok)
				assert.Equal(t, "createdAt", field)
				assert.True(t, descending)

				limit, ok := config.Limit()
				assert.True(t, ok)
				assert.Equal(t, 0, limit)

				clause := config.WhereClause()
				assert.Equal(t, false, clause["done"])
				assert.Equal(t, map[string]any{livequery.OpGreaterOrEqual: 2}, clause["priority"])
			},
		},
		{
			name: "nested_link_tree",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").
					Including(
						livequery.Link("owner").With(livequery.Link("avatar")),
						livequery.Link("comments").OrderedBy("createdAt", false).LimitedTo(10),
					).
					Finalize()
			},
			validate: func(t *testing.T, config livequery.QueryConfiguration) {
				tree := config.LinkTree()
				require.Len(t, tree, 2)

				assert.Equal(t, "owner", tree[0].Name())
				require.Len(t, tree[0].Children(), 1)
				assert.Equal(t, "avatar", tree[0].Children()[0].Name())

				assert.Equal(t, "comments", tree[1].Name())
				limit, ok := tree[1].Limit()
				assert.True(t, ok)
				assert.Equal(t, 10, limit)
			},
		},
		{
			name: "testing_fixture",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").
					WithTestingValue(livequery.Entities{{ID: "a"}, {ID: "b"}}).
					Finalize()
			},
			validate: func(t *testing.T, config livequery.QueryConfiguration) {
				fixture, ok := config.TestingValue()
				assert.True(t, ok)
				require.Len(t, fixture, 2)
				assert.Equal(t, "a", fixture[0].ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := tt.build()
			require.NoError(t, err)
			tt.validate(t, config)
		})
	}
}

func Test_ConfigurationBuilder_InvalidInput(t *testing.T) {
	tests := []struct {
		name        string
		build       func() (livequery.QueryConfiguration, error)
		expectedErr error
	}{
		{
			name: "empty_namespace",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("").Finalize()
			},
			expectedErr: livequery.ErrEmptyNamespace,
		},
		{
			name: "negative_limit",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").LimitedTo(-1).Finalize()
			},
			expectedErr: livequery.ErrNegativeLimit,
		},
		{
			name: "empty_where_field",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").Where("", true).Finalize()
			},
			expectedErr: livequery.ErrEmptyWhereField,
		},
		{
			name: "empty_link_name",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").Including(livequery.Link("")).Finalize()
			},
			expectedErr: livequery.ErrEmptyLinkName,
		},
		{
			name: "empty_nested_link_name",
			build: func() (livequery.QueryConfiguration, error) {
				return livequery.BuildQueryConfiguration("todos").
					Including(livequery.Link("owner").With(livequery.Link(""))).
					Finalize()
			},
			expectedErr: livequery.ErrEmptyLinkName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func Test_QueryConfiguration_Equal_IgnoresInsertionOrder(t *testing.T) {
	first, err := livequery.BuildQueryConfiguration("todos").
		Where("done", false).
		Where("owner", "alice").
		Finalize()
	require.NoError(t, err)

	second, err := livequery.BuildQueryConfiguration("todos").
		Where("owner", "alice").
		Where("done", false).
		Finalize()
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func Test_QueryConfiguration_Equal_FixtureMatters(t *testing.T) {
	plain, err := livequery.BuildQueryConfiguration("todos").Finalize()
	require.NoError(t, err)

	withFixture, err := livequery.BuildQueryConfiguration("todos").
		WithTestingValue(livequery.Entities{{ID: "a"}}).
		Finalize()
	require.NoError(t, err)

	assert.False(t, plain.Equal(withFixture))
}

func Test_QueryConfiguration_WhereClause_ReturnsCopy(t *testing.T) {
	config, err := livequery.BuildQueryConfiguration("todos").Where("done", false).Finalize()
	require.NoError(t, err)

	clause := config.WhereClause()
	clause["done"] = true
	clause["sneaky"] = "addition"

	fresh := config.WhereClause()
	assert.Equal(t, false, fresh["done"])
	assert.NotContains(t, fresh, "sneaky")
}

func Test_ConfigurationBuilder_ForksAreIndependent(t *testing.T) {
	base := livequery.BuildQueryConfiguration("todos").Where("done", false)

	first, err := base.Where("owner", "alice").Finalize()
	require.NoError(t, err)

	second, err := base.Where("owner", "bob").Finalize()
	require.NoError(t, err)

	assert.Equal(t, "alice", first.WhereClause()["owner"])
	assert.Equal(t, "bob", second.WhereClause()["owner"])
}
