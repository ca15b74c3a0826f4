// Package parser reads markdown source documents with YAML frontmatter.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Document is one parsed source file. Title and EntityType come from the
// required frontmatter keys; every key, including those two, stays in
// Frontmatter.
type Document struct {
	Frontmatter map[string]any
	Title       string
	EntityType  string
	Tags        []string
	Body        string
	SourceFile  string
	// SourceHash is the hex SHA-256 of the raw file contents.
	SourceHash string
}

var (
	ErrNoFrontmatter = errors.New("no frontmatter found")
	ErrInvalidYAML   = errors.New("invalid YAML in frontmatter")
	ErrMissingTitle  = errors.New("frontmatter missing required 'title' field")
	ErrMissingType   = errors.New("frontmatter missing required 'type' field")
	ErrInvalidTags   = errors.New("tags must be a string or a list of strings")
)

// Skippable reports whether err means the file is not a graph document at all,
// as opposed to a malformed one.
func Skippable(err error) bool {
	return errors.Is(err, ErrNoFrontmatter) || errors.Is(err, ErrMissingType)
}

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	sum := sha256.Sum256(content)

	text := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	text = bytes.TrimLeft(text, "\ufeff\n\t ")

	yamlBytes, body, ok := splitFrontmatter(text)
	if !ok {
		return nil, ErrNoFrontmatter
	}

	var frontmatter map[string]any
	if err := yaml.Unmarshal(yamlBytes, &frontmatter); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	title := stringValue(frontmatter["title"])
	if title == "" {
		return nil, ErrMissingTitle
	}
	entityType := stringValue(frontmatter["type"])
	if entityType == "" {
		return nil, ErrMissingType
	}

	tags, err := parseTags(frontmatter["tags"])
	if err != nil {
		return nil, err
	}

	return &Document{
		Frontmatter: frontmatter,
		Title:       title,
		EntityType:  entityType,
		Tags:        tags,
		Body:        body,
		SourceHash:  hex.EncodeToString(sum[:]),
	}, nil
}

// Values returns the non-empty strings stored under key, accepting either a
// single string or a list. Other value types yield nothing.
func (d *Document) Values(key string) []string {
	switch v := d.Frontmatter[key].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringValue(item); s != "" {
				values = append(values, s)
			}
		}
		return values
	}
	return nil
}

// splitFrontmatter separates the YAML between the opening and closing
// delimiter lines from the body. The closing delimiter may end the file.
func splitFrontmatter(text []byte) (yamlBytes []byte, body string, ok bool) {
	first, rest, found := bytes.Cut(text, []byte("\n"))
	if !found || string(bytes.TrimRight(first, " \t")) != delimiter {
		return nil, "", false
	}

	offset := 0
	for offset <= len(rest) {
		line, _, _ := bytes.Cut(rest[offset:], []byte("\n"))
		if string(bytes.TrimRight(line, " \t")) == delimiter {
			end := offset + len(line)
			if end < len(rest) {
				end++
			}
			return rest[:offset], string(rest[end:]), true
		}
		next := bytes.IndexByte(rest[offset:], '\n')
		if next == -1 {
			break
		}
		offset += next + 1
	}
	return nil, "", false
}

func parseTags(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return []string{v}, nil
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, ErrInvalidTags
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			tags = append(tags, s)
		}
		if len(tags) == 0 {
			return nil, nil
		}
		return tags, nil
	default:
		return nil, ErrInvalidTags
	}
}

func stringValue(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}
