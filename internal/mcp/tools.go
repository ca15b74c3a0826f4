package mcp

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"hotgraph/internal/config"
	"hotgraph/internal/store"
	"hotgraph/internal/validate"
)

type SearchLoreInput struct {
	Query string `json:"query" jsonschema:"search terms"`
	Layer string `json:"layer,omitempty" jsonschema:"restrict to a specific layer"`
	Type  string `json:"type,omitempty" jsonschema:"restrict to a specific entity type"`
}

type GetEntityInput struct {
	Name string `json:"name" jsonschema:"entity name"`
	Type string `json:"type,omitempty" jsonschema:"optional entity type"`
}

type GetRelationshipsInput struct {
	Name      string `json:"name" jsonschema:"starting entity name"`
	Type      string `json:"type,omitempty" jsonschema:"relationship type filter"`
	Depth     int    `json:"depth,omitempty" jsonschema:"maximum traversal depth"`
	Direction string `json:"direction,omitempty" jsonschema:"outgoing, incoming, or both"`
}

type ListEntitiesInput struct {
	Type  string `json:"type,omitempty" jsonschema:"entity type filter"`
	Layer string `json:"layer,omitempty" jsonschema:"layer filter"`
	Tag   string `json:"tag,omitempty" jsonschema:"tag filter"`
}

type RunSQLInput struct {
	Query  string         `json:"query" jsonschema:"read-only SQL against the entities and edges tables"`
	Params map[string]any `json:"params,omitempty" jsonschema:"positional (\"1\", \"2\", ...) or named parameters"`
}

type GetSchemaInput struct{}

type SnapshotInfoInput struct{}

type ValidateInput struct{}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_lore",
		Description: "Search entities by name, tags, and text",
	}, s.handleSearchLore)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Retrieve a specific entity and its properties",
	}, s.handleGetEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_relationships",
		Description: "Traverse relationships from an entity",
	}, s.handleGetRelationships)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_entities",
		Description: "List entities with optional filters",
	}, s.handleListEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "run_sql",
		Description: "Run a read-only SQL query against the current snapshot",
	}, s.handleRunSQL)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_schema",
		Description: "Return the schema the current snapshot was built with",
	}, s.handleGetSchema)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "snapshot_info",
		Description: "Describe the snapshot being served and recent reload activity",
	}, s.handleSnapshotInfo)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate_snapshot",
		Description: "Check the current snapshot against its schema",
	}, s.handleValidate)
}

func (s *Server) handleSearchLore(ctx context.Context, req *sdk.CallToolRequest, input SearchLoreInput) (*sdk.CallToolResult, SearchLoreOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchLoreOutput{}, fmt.Errorf("query is required")
	}
	results, err := s.graph.Search(ctx, input.Query, input.Layer, input.Type)
	if err != nil {
		return nil, SearchLoreOutput{}, err
	}

	output := make([]SearchResultOutput, 0, len(results))
	for _, result := range results {
		output = append(output, searchResultOutput(result))
	}
	return nil, SearchLoreOutput{Results: output}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, EntityOutput, error) {
	if input.Name == "" {
		return nil, EntityOutput{}, fmt.Errorf("name is required")
	}
	entity, err := s.graph.GetEntity(ctx, input.Name, input.Type)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	if entity == nil {
		return nil, EntityOutput{}, fmt.Errorf("entity %q: %w", input.Name, store.ErrNotFound)
	}
	return nil, entityOutput(entity), nil
}

func (s *Server) handleGetRelationships(ctx context.Context, req *sdk.CallToolRequest, input GetRelationshipsInput) (*sdk.CallToolResult, GetRelationshipsOutput, error) {
	if input.Name == "" {
		return nil, GetRelationshipsOutput{}, fmt.Errorf("name is required")
	}
	depth := input.Depth
	if depth == 0 {
		depth = 1
	}
	rels, err := s.graph.GetRelationships(ctx, input.Name, input.Type, input.Direction, depth)
	if err != nil {
		return nil, GetRelationshipsOutput{}, err
	}

	output := make([]RelationshipOutput, 0, len(rels))
	for _, rel := range rels {
		output = append(output, relationshipOutput(rel))
	}
	return nil, GetRelationshipsOutput{Relationships: output}, nil
}

func (s *Server) handleListEntities(ctx context.Context, req *sdk.CallToolRequest, input ListEntitiesInput) (*sdk.CallToolResult, ListEntitiesOutput, error) {
	items, err := s.graph.ListEntities(ctx, input.Type, input.Layer, input.Tag)
	if err != nil {
		return nil, ListEntitiesOutput{}, err
	}

	output := make([]EntitySummaryOutput, 0, len(items))
	for _, item := range items {
		output = append(output, entitySummaryOutput(item))
	}
	return nil, ListEntitiesOutput{Entities: output}, nil
}

func (s *Server) handleRunSQL(ctx context.Context, req *sdk.CallToolRequest, input RunSQLInput) (*sdk.CallToolResult, RunSQLOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RunSQLOutput{}, fmt.Errorf("query is required")
	}
	rows, err := s.graph.RunSQL(ctx, input.Query, input.Params)
	if err != nil {
		return nil, RunSQLOutput{}, err
	}
	return nil, RunSQLOutput{Rows: rows}, nil
}

func (s *Server) handleGetSchema(ctx context.Context, req *sdk.CallToolRequest, input GetSchemaInput) (*sdk.CallToolResult, SchemaOutput, error) {
	graph, _, release, err := s.pin()
	if err != nil {
		return nil, SchemaOutput{}, err
	}
	defer release()

	schema, err := s.activeSchema(ctx, graph)
	if err != nil {
		return nil, SchemaOutput{}, err
	}
	return nil, schemaOutput(schema), nil
}

func (s *Server) handleSnapshotInfo(ctx context.Context, req *sdk.CallToolRequest, input SnapshotInfoInput) (*sdk.CallToolResult, SnapshotInfoOutput, error) {
	graph, name, release, err := s.pin()
	if err != nil {
		return nil, SnapshotInfoOutput{}, err
	}
	defer release()

	info, err := graph.Info(ctx)
	if err != nil {
		return nil, SnapshotInfoOutput{}, err
	}
	out := SnapshotInfoOutput{
		Snapshot:      name,
		Project:       info.Project,
		FormatVersion: info.FormatVersion,
		Entities:      info.Entities,
		Edges:         info.Edges,
		BuiltAt:       formatTime(info.BuiltAt),
	}
	if s.watcher != nil {
		out.Reload = reloadOutput(s.watcher.Stats())
	}
	return nil, out, nil
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, input ValidateInput) (*sdk.CallToolResult, ValidateOutput, error) {
	graph, _, release, err := s.pin()
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	defer release()

	schema, err := s.activeSchema(ctx, graph)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	report, err := validate.Run(ctx, schema, graph)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	return nil, validateOutput(report), nil
}

// activeSchema prefers the schema embedded in the served snapshot, so answers
// stay consistent with the data after a reload.
func (s *Server) activeSchema(ctx context.Context, graph store.Graph) (*config.Schema, error) {
	info, err := graph.Info(ctx)
	if err != nil {
		return nil, err
	}
	if len(info.Schema) > 0 {
		schema, err := config.ParseSchema(info.Schema)
		if err == nil {
			return schema, nil
		}
		s.log.Warnw("Snapshot schema unreadable, using configured schema", "error", err)
	}
	if s.schema == nil {
		return nil, fmt.Errorf("no schema available")
	}
	return s.schema, nil
}
