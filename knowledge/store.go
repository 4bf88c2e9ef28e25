package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/switchboard-dev/switchboard/logging"
)

// Category selects one of the two document subtrees of a knowledge package.
type Category string

const (
	// CategorySkills holds procedures: how to accomplish tasks.
	CategorySkills Category = "skills"
	// CategoryFacts holds reference data: stable domain information.
	CategoryFacts Category = "facts"
)

// PathTraversalError reports a read whose resolved path escapes the
// category root.
type PathTraversalError struct {
	Category Category
	Path     string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path %q escapes the %s directory", e.Path, e.Category)
}

// Document is one knowledge file: YAML front matter plus a markdown body.
// Listings leave Body empty; Read returns the body alone.
type Document struct {
	Name        string
	Description string
	RelPath     string
	Extras      map[string]string
	Body        string
}

// Header re-emits the document's front matter with name first, description
// second and extras sorted by key.
func (d Document) Header() string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString(marshalKV("name", d.Name))
	sb.WriteString(marshalKV("description", d.Description))
	keys := make([]string, 0, len(d.Extras))
	for k := range d.Extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(marshalKV(k, d.Extras[k]))
	}
	sb.WriteString("---\n")
	return sb.String()
}

// marshalKV renders one header line through the YAML encoder so values with
// special characters stay parseable.
func marshalKV(key, value string) string {
	b, err := yaml.Marshal(map[string]string{key: value})
	if err != nil {
		return fmt.Sprintf("%s: %q\n", key, value)
	}
	return string(b)
}

// Options configure a Store.
type Options struct {
	Logger logging.Logger
}

// Store serves the skills/ and facts/ subtrees of one agent's knowledge
// package. Listings advertise only top-level documents; deeper files stay
// reachable through Read, keeping prompt inventories small.
type Store struct {
	root   string
	logger *logging.Scoped
}

// NewStore opens the knowledge package rooted at dir. The directory must
// exist; the category subtrees may be absent, in which case they are empty.
func NewStore(dir string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve knowledge root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("knowledge root %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge root %q is not a directory", dir)
	}

	return &Store{
		root:   abs,
		logger: logging.NewScoped(opts.Logger).WithComponent("knowledge"),
	}, nil
}

// Root returns the absolute knowledge package directory.
func (s *Store) Root() string { return s.root }

// HasCategory reports whether the category subtree exists on disk.
func (s *Store) HasCategory(cat Category) bool {
	info, err := os.Stat(filepath.Join(s.root, string(cat)))
	return err == nil && info.IsDir()
}

// ListTopLevel returns the documents directly under the category root,
// sorted by file name. Files with unparseable or incomplete headers are
// skipped with a warning. Bodies are not loaded.
func (s *Store) ListTopLevel(cat Category) ([]Document, error) {
	catRoot := filepath.Join(s.root, string(cat))
	entries, err := os.ReadDir(catRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cat, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(catRoot, entry.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable knowledge file", "category", string(cat), "file", entry.Name(), "error", err.Error())
			continue
		}
		header, _, err := splitFrontMatter(string(data))
		if err != nil {
			s.logger.Warn("skipping knowledge file with invalid header", "category", string(cat), "file", entry.Name(), "error", err.Error())
			continue
		}
		doc, err := documentFromHeader(header, entry.Name())
		if err != nil {
			s.logger.Warn("skipping knowledge file with incomplete header", "category", string(cat), "file", entry.Name(), "error", err.Error())
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Read resolves rel against the category root and returns the document body
// with the front matter stripped. Paths that escape the root (or absolute
// paths) fail with PathTraversalError; subdirectory documents are readable.
func (s *Store) Read(cat Category, rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", &PathTraversalError{Category: cat, Path: rel}
	}
	catRoot := filepath.Join(s.root, string(cat))
	full := filepath.Clean(filepath.Join(catRoot, rel))
	if escapes(catRoot, full) {
		return "", &PathTraversalError{Category: cat, Path: rel}
	}

	// The lexical check cannot see symlinks; re-check containment on the
	// resolved path. Nonexistent files fall through to the read error.
	if resolved, err := filepath.EvalSymlinks(full); err == nil {
		resolvedRoot := catRoot
		if r, err := filepath.EvalSymlinks(catRoot); err == nil {
			resolvedRoot = r
		}
		if escapes(resolvedRoot, resolved) {
			return "", &PathTraversalError{Category: cat, Path: rel}
		}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s document %q: %w", cat, rel, err)
	}
	_, body, err := splitFrontMatter(string(data))
	if err != nil {
		// A file without a parseable header is served whole.
		return string(data), nil
	}
	return body, nil
}

// escapes reports whether path lies outside root. Both must be absolute.
func escapes(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// documentFromHeader builds a Document from parsed front matter, requiring
// name and description.
func documentFromHeader(header map[string]string, relPath string) (Document, error) {
	name := header["name"]
	description := header["description"]
	if name == "" {
		return Document{}, fmt.Errorf("missing required header key %q", "name")
	}
	if description == "" {
		return Document{}, fmt.Errorf("missing required header key %q", "description")
	}
	extras := make(map[string]string)
	for k, v := range header {
		if k == "name" || k == "description" {
			continue
		}
		extras[k] = v
	}
	if len(extras) == 0 {
		extras = nil
	}
	return Document{
		Name:        name,
		Description: description,
		RelPath:     relPath,
		Extras:      extras,
	}, nil
}

// splitFrontMatter separates a leading ----delimited YAML mapping from the
// body. Both delimiter lines are required and must be exactly "---".
func splitFrontMatter(content string) (map[string]string, string, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return nil, "", fmt.Errorf("missing front matter opening delimiter")
	}
	rest := normalized[len("---\n"):]

	var headerText, body string
	if end := strings.Index(rest, "\n---\n"); end >= 0 {
		headerText = rest[:end+1]
		body = rest[end+len("\n---\n"):]
	} else if strings.HasSuffix(rest, "\n---") {
		headerText = rest[:len(rest)-len("---")]
	} else {
		return nil, "", fmt.Errorf("missing front matter closing delimiter")
	}

	header := make(map[string]string)
	if err := yaml.Unmarshal([]byte(headerText), &header); err != nil {
		return nil, "", fmt.Errorf("parse front matter: %w", err)
	}
	return header, body, nil
}
