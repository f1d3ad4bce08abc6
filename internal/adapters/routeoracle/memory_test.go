package routeoracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

func fixtureOracle() *Memory {
	return NewMemory().
		AddNode(domain.Node{ID: 1, TagID: "tag-1", Type: domain.NodeWaypoint}).
		AddNode(domain.Node{ID: 5, Alias: "shelf-a", Type: domain.NodeShelf}).
		AddPath(1, 5, []int{1, 3, 5})
}

func TestMemoryLookups(t *testing.T) {
	oracle := fixtureOracle()
	ctx := context.Background()

	byID, err := oracle.GetNodeByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "shelf-a", byID.Alias)

	byAlias, err := oracle.GetNodeByAlias(ctx, "shelf-a")
	require.NoError(t, err)
	require.NotNil(t, byAlias)
	assert.Equal(t, 5, byAlias.ID)

	byTag, err := oracle.GetNodeByTagID(ctx, "tag-1")
	require.NoError(t, err)
	require.NotNil(t, byTag)
	assert.Equal(t, 1, byTag.ID)

	missing, err := oracle.GetNodeByID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryShortestPath(t *testing.T) {
	oracle := fixtureOracle()
	ctx := context.Background()

	path, err := oracle.GetShortestPathByID(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, path)

	trivial, err := oracle.GetShortestPathByID(ctx, 5, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, trivial)

	none, err := oracle.GetShortestPathByID(ctx, 5, 1)
	require.NoError(t, err)
	assert.Empty(t, none, "paths are directed")
}

func TestMemoryNodesByIDsPreservesOrder(t *testing.T) {
	oracle := fixtureOracle()

	nodes, err := oracle.GetNodesByIDs(context.Background(), []int{5, 404, 1})

	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, 5, nodes[0].ID)
	assert.Equal(t, 1, nodes[1].ID)
}
