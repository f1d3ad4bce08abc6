package routeoracle

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
	"github.com/andrescamacho/fleetgate/internal/infrastructure/database"
)

// Oracle answers node and shortest-path queries from the warehouse graph
// service, a Postgres database exposing the wh_* functions. Every call is a
// read; the orchestrator never writes to the graph.
type Oracle struct {
	db           *gorm.DB
	defaultGraph *int
	timeout      time.Duration
}

// Config for the Postgres-backed oracle.
type Config struct {
	DSN     string
	GraphID *int
	Timeout time.Duration
}

// New opens the graph database connection.
func New(cfg Config) (*Oracle, error) {
	db, err := database.Open(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect to graph database: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Oracle{db: db, defaultGraph: cfg.GraphID, timeout: timeout}, nil
}

// Close releases the underlying connection pool.
func (o *Oracle) Close() error {
	return database.Close(o.db)
}

// nodeRow mirrors the record shape returned by the wh_* node functions.
type nodeRow struct {
	ID     int      `gorm:"column:id"`
	Alias  *string  `gorm:"column:alias"`
	TagID  *string  `gorm:"column:tag_id"`
	X      float64  `gorm:"column:x"`
	Y      float64  `gorm:"column:y"`
	Height *float64 `gorm:"column:height"`
	Type   string   `gorm:"column:type"`
}

var nodeTypeNames = map[string]domain.NodeType{
	"waypoint": domain.NodeWaypoint,
	"conveyor": domain.NodeConveyor,
	"shelf":    domain.NodeShelf,
	"cell":     domain.NodeCell,
	"depot":    domain.NodeDepot,
}

func (r nodeRow) toNode() domain.Node {
	nodeType, ok := nodeTypeNames[r.Type]
	if !ok {
		slog.Warn("unknown node type, falling back to WAYPOINT", "type", r.Type, "node", r.ID)
		nodeType = domain.NodeWaypoint
	}
	node := domain.Node{ID: r.ID, X: r.X, Y: r.Y, Type: nodeType}
	if r.Alias != nil {
		node.Alias = *r.Alias
	}
	if r.TagID != nil {
		node.TagID = *r.TagID
	}
	if r.Height != nil {
		node.Height = *r.Height
	}
	return node
}

// resolveGraph picks the per-call graph override or the configured default.
// Having neither is a programming error.
func (o *Oracle) resolveGraph(graph []int) (int, error) {
	if len(graph) > 0 {
		return graph[0], nil
	}
	if o.defaultGraph != nil {
		return *o.defaultGraph, nil
	}
	return 0, fmt.Errorf("no graph id: pass one per call or configure a default")
}

func (o *Oracle) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.timeout)
}

// GetNodeByID implements fleet.RouteOracle.
func (o *Oracle) GetNodeByID(ctx context.Context, id int, graph ...int) (*domain.Node, error) {
	nodes, err := o.GetNodesByIDs(ctx, []int{id}, graph...)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// GetNodeByAlias implements fleet.RouteOracle.
func (o *Oracle) GetNodeByAlias(ctx context.Context, alias string, graph ...int) (*domain.Node, error) {
	graphID, err := o.resolveGraph(graph)
	if err != nil {
		return nil, err
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	var rows []nodeRow
	err = o.db.WithContext(ctx).
		Raw("SELECT * FROM wh_get_node_by_alias(?, ?)", graphID, alias).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("wh_get_node_by_alias: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	node := rows[0].toNode()
	return &node, nil
}

// GetNodeByTagID implements fleet.RouteOracle.
func (o *Oracle) GetNodeByTagID(ctx context.Context, tagID string, graph ...int) (*domain.Node, error) {
	graphID, err := o.resolveGraph(graph)
	if err != nil {
		return nil, err
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	var rows []nodeRow
	err = o.db.WithContext(ctx).
		Raw("SELECT * FROM wh_get_node_by_tag_id(?, ?)", graphID, tagID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("wh_get_node_by_tag_id: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	node := rows[0].toNode()
	return &node, nil
}

// GetNodesByIDs implements fleet.RouteOracle. The result preserves the
// requested order.
func (o *Oracle) GetNodesByIDs(ctx context.Context, ids []int, graph ...int) ([]domain.Node, error) {
	graphID, err := o.resolveGraph(graph)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	var rows []nodeRow
	err = o.db.WithContext(ctx).
		Raw("SELECT * FROM wh_get_nodes_by_ids(?, ?::bigint[])", graphID, intArrayLiteral(ids)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("wh_get_nodes_by_ids: %w", err)
	}

	byID := make(map[int]domain.Node, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toNode()
	}
	nodes := make([]domain.Node, 0, len(ids))
	for _, id := range ids {
		if node, ok := byID[id]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// GetShortestPathByID implements fleet.RouteOracle. Empty means no path.
func (o *Oracle) GetShortestPathByID(ctx context.Context, startID, endID int, graph ...int) ([]int, error) {
	graphID, err := o.resolveGraph(graph)
	if err != nil {
		return nil, err
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	var ids []int
	err = o.db.WithContext(ctx).
		Raw("SELECT id FROM wh_astar_shortest_path(?, ?, ?) AS t(id)", graphID, startID, endID).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("wh_astar_shortest_path: %w", err)
	}
	return ids, nil
}

// GetShortestPathByAlias implements fleet.RouteOracle.
func (o *Oracle) GetShortestPathByAlias(ctx context.Context, startAlias, endAlias string, graph ...int) ([]int, error) {
	graphID, err := o.resolveGraph(graph)
	if err != nil {
		return nil, err
	}
	ctx, cancel := o.withTimeout(ctx)
	defer cancel()

	var ids []int
	err = o.db.WithContext(ctx).
		Raw("SELECT id FROM wh_astar_shortest_path_by_alias(?, ?, ?) AS t(id)", graphID, startAlias, endAlias).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("wh_astar_shortest_path_by_alias: %w", err)
	}
	return ids, nil
}

// intArrayLiteral renders ids as a Postgres array literal. The array is
// passed as text and cast server-side, which keeps the query compatible
// with database/sql parameter binding.
func intArrayLiteral(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
