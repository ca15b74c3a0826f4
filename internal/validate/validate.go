// Package validate checks a graph snapshot against its schema and for structural
// problems such as links to entities that were never written.
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hotgraph/internal/config"
	"hotgraph/internal/store"
)

type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warning"
)

const (
	codeEnumInvalid         = "enum_value_invalid"
	codeMissingRequired     = "missing_required_property"
	codeUnknownType         = "unknown_entity_type"
	codeDanglingPlaceholder = "dangling_placeholder"
	codeOrphanedEntity      = "orphaned_entity"
	codeDuplicateName       = "duplicate_name"
)

type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Layer    string
	Entity   string
	FilePath string
}

type Report struct {
	Issues []Issue
}

// Count returns the number of issues with the given severity.
func (r *Report) Count(severity Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

// OK reports whether the report holds no errors. Warnings are allowed.
func (r *Report) OK() bool { return r.Count(SeverityError) == 0 }

func Run(ctx context.Context, schema *config.Schema, src Source) (*Report, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	if src == nil {
		return nil, fmt.Errorf("graph is required")
	}

	var issues []Issue

	entities, err := src.ListEntitiesWithProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	for i := range entities {
		entity := &entities[i]
		entityType, ok := schema.EntityTypeByName(entity.EntityType)
		if !ok {
			issues = append(issues, entityIssue(entity, SeverityError, codeUnknownType,
				fmt.Sprintf("entity type %q is not in the schema", entity.EntityType)))
			continue
		}
		issues = append(issues, validateEnumValues(entity, entityType)...)
		issues = append(issues, validateRequiredProperties(entity, entityType)...)
	}

	checks := []struct {
		list     func(context.Context) ([]store.EntitySummary, error)
		severity Severity
		code     string
		message  string
	}{
		{src.ListDanglingPlaceholders, SeverityError, codeDanglingPlaceholder, "linked but never defined"},
		{src.ListOrphanedEntities, SeverityWarn, codeOrphanedEntity, "has no relationships"},
		{src.ListDuplicateNames, SeverityError, codeDuplicateName, "name is used in more than one layer"},
	}
	for _, check := range checks {
		summaries, err := check.list(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s check: %w", check.code, err)
		}
		for _, summary := range summaries {
			issues = append(issues, Issue{
				Severity: check.severity,
				Code:     check.code,
				Message:  check.message,
				Layer:    summary.Layer,
				Entity:   summary.Name,
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity != issues[j].Severity {
			return issues[i].Severity == SeverityError
		}
		return issues[i].Entity < issues[j].Entity
	})
	return &Report{Issues: issues}, nil
}

func validateEnumValues(entity *store.Entity, entityType *config.EntityType) []Issue {
	var issues []Issue
	for _, prop := range entityType.Properties {
		if !strings.EqualFold(prop.Type, "enum") || len(prop.Values) == 0 {
			continue
		}
		value, ok := entity.Properties[prop.Name].(string)
		if !ok {
			continue
		}
		if !containsString(prop.Values, value) {
			issues = append(issues, entityIssue(entity, SeverityError, codeEnumInvalid,
				fmt.Sprintf("invalid enum value for %s: %s (allowed: %s)", prop.Name, value, strings.Join(prop.Values, ", "))))
		}
	}
	return issues
}

func validateRequiredProperties(entity *store.Entity, entityType *config.EntityType) []Issue {
	var issues []Issue
	for _, prop := range entityType.Properties {
		if !prop.Required {
			continue
		}
		value, ok := entity.Properties[prop.Name]
		missing := !ok || value == nil
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			missing = true
		}
		if missing {
			issues = append(issues, entityIssue(entity, SeverityError, codeMissingRequired,
				fmt.Sprintf("missing required property: %s", prop.Name)))
		}
	}
	return issues
}

func entityIssue(entity *store.Entity, severity Severity, code, message string) Issue {
	return Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Layer:    entity.Layer,
		Entity:   entity.Name,
		FilePath: entity.SourceFile,
	}
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
