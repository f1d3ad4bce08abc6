package routeoracle

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// Memory is an in-process oracle over fixture nodes and a path table. It
// backs tests and the BDD suite; the daemon uses the Postgres oracle.
type Memory struct {
	mu      sync.RWMutex
	nodes   map[int]domain.Node
	aliases map[string]int
	tags    map[string]int
	paths   map[[2]int][]int
}

// NewMemory builds an empty oracle; the default graph is implicit.
func NewMemory() *Memory {
	return &Memory{
		nodes:   make(map[int]domain.Node),
		aliases: make(map[string]int),
		tags:    make(map[string]int),
		paths:   make(map[[2]int][]int),
	}
}

// AddNode registers a fixture node, indexing its alias and tag when set.
func (m *Memory) AddNode(node domain.Node) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.ID] = node
	if node.Alias != "" {
		m.aliases[node.Alias] = node.ID
	}
	if node.TagID != "" {
		m.tags[node.TagID] = node.ID
	}
	return m
}

// AddPath registers the shortest path from start to end.
func (m *Memory) AddPath(startID, endID int, path []int) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[[2]int{startID, endID}] = path
	return m
}

// GetNodeByID implements fleet.RouteOracle.
func (m *Memory) GetNodeByID(_ context.Context, id int, _ ...int) (*domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if node, ok := m.nodes[id]; ok {
		return &node, nil
	}
	return nil, nil
}

// GetNodeByAlias implements fleet.RouteOracle.
func (m *Memory) GetNodeByAlias(ctx context.Context, alias string, graph ...int) (*domain.Node, error) {
	m.mu.RLock()
	id, ok := m.aliases[alias]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.GetNodeByID(ctx, id, graph...)
}

// GetNodeByTagID implements fleet.RouteOracle.
func (m *Memory) GetNodeByTagID(ctx context.Context, tagID string, graph ...int) (*domain.Node, error) {
	m.mu.RLock()
	id, ok := m.tags[tagID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.GetNodeByID(ctx, id, graph...)
}

// GetNodesByIDs implements fleet.RouteOracle; unknown ids are skipped.
func (m *Memory) GetNodesByIDs(_ context.Context, ids []int, _ ...int) ([]domain.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := m.nodes[id]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// GetShortestPathByID implements fleet.RouteOracle. Unregistered pairs have
// no path; start == end is the trivial single-node path.
func (m *Memory) GetShortestPathByID(_ context.Context, startID, endID int, _ ...int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if startID == endID {
		return []int{startID}, nil
	}
	return m.paths[[2]int{startID, endID}], nil
}

// GetShortestPathByAlias implements fleet.RouteOracle.
func (m *Memory) GetShortestPathByAlias(ctx context.Context, startAlias, endAlias string, graph ...int) ([]int, error) {
	start, err := m.GetNodeByAlias(ctx, startAlias, graph...)
	if err != nil {
		return nil, err
	}
	end, err := m.GetNodeByAlias(ctx, endAlias, graph...)
	if err != nil {
		return nil, err
	}
	if start == nil || end == nil {
		return nil, fmt.Errorf("unknown alias %q or %q", startAlias, endAlias)
	}
	return m.GetShortestPathByID(ctx, start.ID, end.ID, graph...)
}
