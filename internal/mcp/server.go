package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"hotgraph/internal/config"
	"hotgraph/internal/dataset"
	"hotgraph/internal/livegraph"
	"hotgraph/internal/logger"
	"hotgraph/internal/store"
)

// pinner is implemented by graphs that swap snapshots underneath their callers,
// such as *livegraph.Handle.
type pinner interface {
	Pin() (store.Graph, dataset.Identity, func(), error)
}

var _ pinner = (*livegraph.Handle)(nil)

type Server struct {
	schema  *config.Schema
	graph   store.Graph
	watcher *livegraph.Watcher
	mcp     *sdk.Server
	log     *zap.SugaredLogger
}

// NewServer exposes graph over MCP. schema is used when the served snapshot does
// not embed its own.
func NewServer(graph store.Graph, schema *config.Schema, version string) *Server {
	s := &Server{
		schema: schema,
		graph:  graph,
		log:    logger.Named("mcp"),
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "hotgraph",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// WithWatcher adds the watcher's reload statistics to snapshot_info.
func (s *Server) WithWatcher(w *livegraph.Watcher) *Server {
	s.watcher = w
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	s.log.Infow("MCP server starting")
	err := s.mcp.Run(ctx, transport)
	s.log.Infow("MCP server stopped", "error", err)
	return err
}

// pin returns one snapshot to answer a whole tool call from, with its file name
// when known. Tools that make several graph calls use it so that a reload
// between those calls cannot mix two snapshots in one response.
func (s *Server) pin() (store.Graph, string, func(), error) {
	p, ok := s.graph.(pinner)
	if !ok {
		return s.graph, "", func() {}, nil
	}
	graph, id, release, err := p.Pin()
	if err != nil {
		return nil, "", nil, err
	}
	return graph, id.Name(), release, nil
}
