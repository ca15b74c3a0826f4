package mcp

import (
	"time"

	"hotgraph/internal/config"
	"hotgraph/internal/livegraph"
	"hotgraph/internal/store"
	"hotgraph/internal/validate"
)

type EntityOutput struct {
	Name       string         `json:"name"`
	EntityType string         `json:"type"`
	Layer      string         `json:"layer"`
	SourceFile string         `json:"source_file"`
	SourceHash string         `json:"source_hash"`
	Tags       []string       `json:"tags"`
	Properties map[string]any `json:"properties"`
	Body       string         `json:"body,omitempty"`
}

type EntitySummaryOutput struct {
	Name       string   `json:"name"`
	EntityType string   `json:"type"`
	Layer      string   `json:"layer"`
	Tags       []string `json:"tags"`
}

type RelationshipOutput struct {
	From      EntityRefOutput `json:"from"`
	To        EntityRefOutput `json:"to"`
	Type      string          `json:"type"`
	Direction string          `json:"direction"`
	Depth     int             `json:"depth"`
}

type EntityRefOutput struct {
	Name       string `json:"name"`
	EntityType string `json:"type"`
	Layer      string `json:"layer"`
}

type SearchResultOutput struct {
	Name       string   `json:"name"`
	EntityType string   `json:"type"`
	Layer      string   `json:"layer"`
	Tags       []string `json:"tags"`
	Score      float64  `json:"score"`
	Snippet    string   `json:"snippet,omitempty"`
}

type SearchLoreOutput struct {
	Results []SearchResultOutput `json:"results"`
}

type GetRelationshipsOutput struct {
	Relationships []RelationshipOutput `json:"relationships"`
}

type ListEntitiesOutput struct {
	Entities []EntitySummaryOutput `json:"entities"`
}

type RunSQLOutput struct {
	Rows []map[string]any `json:"rows"`
}

type SchemaOutput struct {
	Version           int                      `json:"version"`
	EntityTypes       []EntityTypeOutput       `json:"entity_types"`
	RelationshipTypes []RelationshipTypeOutput `json:"relationship_types"`
}

type EntityTypeOutput struct {
	Name          string               `json:"name"`
	Properties    []PropertyOutput     `json:"properties"`
	FieldMappings []FieldMappingOutput `json:"field_mappings"`
}

type PropertyOutput struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Values   []string `json:"values,omitempty"`
	Default  string   `json:"default,omitempty"`
	Required bool     `json:"required,omitempty"`
}

type FieldMappingOutput struct {
	Field        string   `json:"field"`
	Relationship string   `json:"relationship"`
	TargetType   []string `json:"target_type"`
}

type RelationshipTypeOutput struct {
	Name      string `json:"name"`
	Inverse   string `json:"inverse,omitempty"`
	Symmetric bool   `json:"symmetric,omitempty"`
}

type SnapshotInfoOutput struct {
	Snapshot      string        `json:"snapshot,omitempty"`
	Project       string        `json:"project"`
	FormatVersion int           `json:"format_version"`
	BuiltAt       string        `json:"built_at,omitempty"`
	Entities      int           `json:"entities"`
	Edges         int           `json:"edges"`
	Reload        *ReloadOutput `json:"reload,omitempty"`
}

// ReloadOutput reports the watcher's activity. Times are RFC 3339 and omitted
// until the first event of that kind.
type ReloadOutput struct {
	Checks      uint64 `json:"checks"`
	Swaps       uint64 `json:"swaps"`
	Failures    uint64 `json:"failures"`
	LastOutcome string `json:"last_outcome"`
	LastCheck   string `json:"last_check,omitempty"`
	LastSwap    string `json:"last_swap,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

type IssueOutput struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Layer    string `json:"layer,omitempty"`
	Entity   string `json:"entity,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

type ValidateOutput struct {
	OK       bool          `json:"ok"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Issues   []IssueOutput `json:"issues"`
}

func entityOutput(e *store.Entity) EntityOutput {
	return EntityOutput{
		Name:       e.Name,
		EntityType: e.EntityType,
		Layer:      e.Layer,
		SourceFile: e.SourceFile,
		SourceHash: e.SourceHash,
		Tags:       nonNil(e.Tags),
		Properties: e.Properties,
		Body:       e.Body,
	}
}

func entitySummaryOutput(e store.EntitySummary) EntitySummaryOutput {
	return EntitySummaryOutput{Name: e.Name, EntityType: e.EntityType, Layer: e.Layer, Tags: nonNil(e.Tags)}
}

func entityRefOutput(ref store.EntityRef) EntityRefOutput {
	return EntityRefOutput{Name: ref.Name, EntityType: ref.EntityType, Layer: ref.Layer}
}

func relationshipOutput(rel store.Relationship) RelationshipOutput {
	return RelationshipOutput{
		From:      entityRefOutput(rel.From),
		To:        entityRefOutput(rel.To),
		Type:      rel.Type,
		Direction: rel.Direction,
		Depth:     rel.Depth,
	}
}

func searchResultOutput(r store.SearchResult) SearchResultOutput {
	return SearchResultOutput{
		Name:       r.Name,
		EntityType: r.EntityType,
		Layer:      r.Layer,
		Tags:       nonNil(r.Tags),
		Score:      r.Score,
		Snippet:    r.Snippet,
	}
}

func schemaOutput(schema *config.Schema) SchemaOutput {
	out := SchemaOutput{
		Version:           schema.Version,
		EntityTypes:       make([]EntityTypeOutput, 0, len(schema.EntityTypes)),
		RelationshipTypes: make([]RelationshipTypeOutput, 0, len(schema.RelationshipTypes)),
	}
	for _, et := range schema.EntityTypes {
		item := EntityTypeOutput{
			Name:          et.Name,
			Properties:    make([]PropertyOutput, 0, len(et.Properties)),
			FieldMappings: make([]FieldMappingOutput, 0, len(et.FieldMappings)),
		}
		for _, prop := range et.Properties {
			item.Properties = append(item.Properties, PropertyOutput{
				Name:     prop.Name,
				Type:     prop.Type,
				Values:   prop.Values,
				Default:  prop.Default,
				Required: prop.Required,
			})
		}
		for _, fm := range et.FieldMappings {
			item.FieldMappings = append(item.FieldMappings, FieldMappingOutput{
				Field:        fm.Field,
				Relationship: fm.Relationship,
				TargetType:   fm.TargetType,
			})
		}
		out.EntityTypes = append(out.EntityTypes, item)
	}
	for _, rt := range schema.RelationshipTypes {
		out.RelationshipTypes = append(out.RelationshipTypes, RelationshipTypeOutput{
			Name:      rt.Name,
			Inverse:   rt.Inverse,
			Symmetric: rt.Symmetric,
		})
	}
	return out
}

func reloadOutput(stats livegraph.Stats) *ReloadOutput {
	out := &ReloadOutput{
		Checks:      stats.Checks,
		Swaps:       stats.Swaps,
		Failures:    stats.Failures,
		LastOutcome: stats.LastOutcome.String(),
		LastCheck:   formatTime(stats.LastCheck),
		LastSwap:    formatTime(stats.LastSwap),
	}
	if stats.LastError != nil {
		out.LastError = stats.LastError.Error()
	}
	return out
}

func validateOutput(report *validate.Report) ValidateOutput {
	out := ValidateOutput{
		OK:       report.OK(),
		Errors:   report.Count(validate.SeverityError),
		Warnings: report.Count(validate.SeverityWarn),
		Issues:   make([]IssueOutput, 0, len(report.Issues)),
	}
	for _, issue := range report.Issues {
		out.Issues = append(out.Issues, IssueOutput{
			Severity: string(issue.Severity),
			Code:     issue.Code,
			Message:  issue.Message,
			Layer:    issue.Layer,
			Entity:   issue.Entity,
			FilePath: issue.FilePath,
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
