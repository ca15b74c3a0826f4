package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"hotgraph/internal/config"
	"hotgraph/internal/parser"
	"hotgraph/internal/store"
)

const relatedField = "related"

// reservedKeys are frontmatter keys that never become entity properties.
var reservedKeys = map[string]bool{"title": true, "type": true, "tags": true, relatedField: true}

type processedDoc struct {
	doc   *parser.Document
	layer config.Layer
	typ   *config.EntityType
}

// populate writes every document of every layer to w, then links them. Per-file
// failures are collected in result and do not stop the build.
func populate(ctx context.Context, cfg *config.ProjectConfig, schema *config.Schema, w store.Writer, result *Result) error {
	var processed []processedDoc

	for _, layer := range cfg.Layers {
		files, err := walkMarkdownFiles(layer.Paths, cfg.Exclude)
		if err != nil {
			return fmt.Errorf("walking files for layer %s: %w", layer.Name, err)
		}

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return err
			}

			doc, err := parser.ParseFile(path)
			if err != nil {
				if parser.Skippable(err) {
					result.FilesSkipped++
					continue
				}
				result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
				continue
			}

			entityType, ok := schema.EntityTypeByName(doc.EntityType)
			if !ok {
				result.FilesSkipped++
				continue
			}

			input := store.EntityInput{
				Name:       doc.Title,
				EntityType: entityType.Name,
				Layer:      layer.Name,
				SourceFile: path,
				SourceHash: doc.SourceHash,
				Properties: schemaProperties(doc, entityType),
				Tags:       doc.Tags,
				Body:       doc.Body,
			}
			if err := w.UpsertEntity(ctx, input); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("writing %s: %w", path, err))
				continue
			}
			result.Entities++
			processed = append(processed, processedDoc{doc: doc, layer: layer, typ: entityType})
		}
	}

	for _, item := range processed {
		for _, mapping := range item.typ.FieldMappings {
			for _, target := range item.doc.Values(mapping.Field) {
				link(ctx, w, item, target, mapping.Relationship, result)
			}
		}
		for _, target := range item.doc.Values(relatedField) {
			link(ctx, w, item, target, "RELATED_TO", result)
		}
	}
	return nil
}

// link writes one edge from item to target. The target is looked up in the
// item's own layer first, then in the layers it depends on; an unknown target
// becomes a placeholder in the item's layer.
func link(ctx context.Context, w store.Writer, item processedDoc, target, relType string, result *Result) {
	targetLayer := item.layer.Name
	if len(item.layer.DependsOn) > 0 {
		layers := append([]string{item.layer.Name}, item.layer.DependsOn...)
		found, err := w.FindEntityLayer(ctx, target, layers)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("finding layer for %s: %w", target, err))
			return
		}
		if found != "" {
			targetLayer = found
		}
	}

	if err := w.UpsertRelationship(ctx, item.doc.Title, item.layer.Name, target, targetLayer, relType); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("linking %s -%s-> %s: %w", item.doc.Title, relType, target, err))
		return
	}
	result.Edges++
}

// schemaProperties keeps the frontmatter keys the entity type declares as
// properties, filling declared defaults for absent ones.
func schemaProperties(doc *parser.Document, entityType *config.EntityType) map[string]any {
	props := make(map[string]any)
	for _, prop := range entityType.Properties {
		if reservedKeys[prop.Name] || entityType.HasFieldMapping(prop.Name) {
			continue
		}
		if value, ok := doc.Frontmatter[prop.Name]; ok && value != nil {
			props[prop.Name] = value
			continue
		}
		if prop.Default != "" {
			props[prop.Name] = prop.Default
		}
	}
	return props
}

func walkMarkdownFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		err := filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if isExcluded(path, excluded) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
