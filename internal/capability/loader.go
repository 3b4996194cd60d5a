package capability

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrSnowNB/project-alice/internal/logging"
)

// headerMarker delimits the YAML metadata block at the top of a
// synthesized tool file. The block is ordinary Go line comments, so
// the whole file stays valid Go source:
//
//	// ---
//	// name: word_counter
//	// description: Counts the words in the input text.
//	// input: The text to analyze.
//	// ---
//	package main
//
//	func RunTool(input string) (string, error) { ... }
const headerMarker = "// ---"

// nameRe constrains tool names to safe snake_case identifiers.
var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ToolMeta is the YAML metadata header of a synthesized tool file.
type ToolMeta struct {
	// Name is the capability name the model will call.
	Name string `yaml:"name"`

	// Description explains what the tool does.
	Description string `yaml:"description"`

	// Input documents the single string parameter RunTool receives.
	Input string `yaml:"input"`
}

// ToolFile is a parsed synthesized tool source file.
type ToolFile struct {
	Meta     ToolMeta
	Source   string
	Path     string
	Checksum string
}

// ParseFile reads and parses a synthesized tool file.
func ParseFile(path string) (*ToolFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tool file: %w", err)
	}
	return ParseSource(path, string(content))
}

// ParseSource parses tool file content: extracts the YAML header,
// validates the metadata and entry point, and computes the checksum.
// The returned Source is the full file content; the header lines are
// comments, so the interpreter can evaluate it unchanged.
func ParseSource(path, content string) (*ToolFile, error) {
	meta, err := parseHeader(content)
	if err != nil {
		return nil, err
	}

	if !nameRe.MatchString(meta.Name) {
		return nil, fmt.Errorf("%w: name %q must be snake_case", ErrInvalidToolFile, meta.Name)
	}
	if strings.TrimSpace(meta.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidToolFile)
	}
	if !strings.Contains(content, "func RunTool(") {
		return nil, fmt.Errorf("%w: missing RunTool entry point", ErrInvalidToolFile)
	}

	sum := sha256.Sum256([]byte(content))

	return &ToolFile{
		Meta:     meta,
		Source:   content,
		Path:     path,
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

// parseHeader extracts and unmarshals the YAML block between the
// first two header markers.
func parseHeader(content string) (ToolMeta, error) {
	var meta ToolMeta

	lines := strings.Split(content, "\n")

	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == headerMarker {
			start = i
		}
		break
	}
	if start == -1 {
		return meta, fmt.Errorf("%w: missing metadata header", ErrInvalidToolFile)
	}

	var yamlLines []string
	closed := false
	for _, line := range lines[start+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == headerMarker {
			closed = true
			break
		}
		if !strings.HasPrefix(trimmed, "//") {
			return meta, fmt.Errorf("%w: metadata header interrupted by non-comment line", ErrInvalidToolFile)
		}
		yamlLines = append(yamlLines, strings.TrimPrefix(strings.TrimPrefix(trimmed, "//"), " "))
	}
	if !closed {
		return meta, fmt.Errorf("%w: unterminated metadata header", ErrInvalidToolFile)
	}

	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &meta); err != nil {
		return meta, fmt.Errorf("%w: bad metadata: %v", ErrInvalidToolFile, err)
	}
	return meta, nil
}

// LoadDir parses every .go file in the tool directory. Files that
// fail to parse are skipped with a warning so one broken tool cannot
// block the rest. A missing directory yields an empty result.
func LoadDir(dir string) ([]*ToolFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tool directory: %w", err)
	}

	var files []*ToolFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		tf, err := ParseFile(path)
		if err != nil {
			logging.CapabilityWarn("Skipping tool file %s: %v", entry.Name(), err)
			continue
		}
		files = append(files, tf)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Meta.Name < files[j].Meta.Name
	})
	return files, nil
}
