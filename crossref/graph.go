package crossref

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Edge is one recorded relationship between two documents.
type Edge struct {
	Similarity     float64  `json:"similarity"`
	CommonEntities Entities `json:"common_entities"`
	Timestamp      string   `json:"timestamp"`
}

type graphFile struct {
	CrossReferences   map[string][]string        `json:"cross_references"`
	RelationshipGraph map[string]map[string]Edge `json:"relationship_graph"`
	LastUpdated       string                     `json:"last_updated"`
}

// Graph is the undirected weighted relationship graph over document ids.
// All mutation goes through the mutex; persistence is best-effort.
type Graph struct {
	mu        sync.RWMutex
	neighbors map[string]map[string]bool
	edges     map[string]map[string]Edge
	path      string
	logger    *zap.Logger
}

// LoadGraph reads the persisted graph at path, starting empty if the file
// does not exist yet.
func LoadGraph(path string, logger *zap.Logger) *Graph {
	g := &Graph{
		neighbors: make(map[string]map[string]bool),
		edges:     make(map[string]map[string]Edge),
		path:      path,
		logger:    logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read cross-reference graph", zap.String("path", path), zap.Error(err))
		}
		return g
	}

	var file graphFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.Warn("Could not parse cross-reference graph, starting empty", zap.String("path", path), zap.Error(err))
		return g
	}
	for id, others := range file.CrossReferences {
		set := make(map[string]bool, len(others))
		for _, other := range others {
			set[other] = true
		}
		g.neighbors[id] = set
	}
	if file.RelationshipGraph != nil {
		g.edges = file.RelationshipGraph
	}
	return g
}

// AddEdge records an undirected edge between two documents and persists the
// graph. Re-adding an edge overwrites the stored relationship.
func (g *Graph) AddEdge(a, b string, similarity float64, common Entities) {
	if a == "" || b == "" || a == b {
		return
	}
	edge := Edge{
		Similarity:     similarity,
		CommonEntities: common,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	g.mu.Lock()
	g.link(a, b)
	g.link(b, a)
	g.setEdge(a, b, edge)
	g.setEdge(b, a, edge)
	g.mu.Unlock()

	g.Save()
}

func (g *Graph) link(from, to string) {
	if g.neighbors[from] == nil {
		g.neighbors[from] = make(map[string]bool)
	}
	g.neighbors[from][to] = true
}

func (g *Graph) setEdge(from, to string, edge Edge) {
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]Edge)
	}
	g.edges[from][to] = edge
}

// Neighbors returns the documents linked to id with their edges, sorted by
// similarity descending.
func (g *Graph) Neighbors(id string) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Neighbor
	for other := range g.neighbors[id] {
		out = append(out, Neighbor{DocumentID: other, Edge: g.edges[id][other]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Edge.Similarity != out[j].Edge.Similarity {
			return out[i].Edge.Similarity > out[j].Edge.Similarity
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}

// Neighbor pairs a related document id with its edge data.
type Neighbor struct {
	DocumentID string `json:"document_id"`
	Edge       Edge   `json:"edge"`
}

// RemoveDocument drops a document and all its edges, then persists.
func (g *Graph) RemoveDocument(id string) {
	g.mu.Lock()
	for other := range g.neighbors[id] {
		delete(g.neighbors[other], id)
		delete(g.edges[other], id)
	}
	delete(g.neighbors, id)
	delete(g.edges, id)
	g.mu.Unlock()

	g.Save()
}

// Save writes the graph to disk. Failures are logged, not returned; the
// in-memory graph stays authoritative.
func (g *Graph) Save() {
	g.mu.RLock()
	file := graphFile{
		CrossReferences:   make(map[string][]string, len(g.neighbors)),
		RelationshipGraph: g.edges,
		LastUpdated:       time.Now().UTC().Format(time.RFC3339),
	}
	for id, set := range g.neighbors {
		others := make([]string, 0, len(set))
		for other := range set {
			others = append(others, other)
		}
		sort.Strings(others)
		file.CrossReferences[id] = others
	}
	data, err := json.MarshalIndent(file, "", "  ")
	g.mu.RUnlock()

	if err != nil {
		g.logger.Error("Could not encode cross-reference graph", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		g.logger.Error("Could not create graph directory", zap.Error(err))
		return
	}
	if err := os.WriteFile(g.path, data, 0o644); err != nil {
		g.logger.Error("Could not persist cross-reference graph", zap.String("path", g.path), zap.Error(err))
	}
}
