package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// memorySectionHeader marks where saved facts live inside the memory file.
const memorySectionHeader = "## Added Memories"

// GlobalMemoryPath returns the path of the per-user memory file,
// <home>/.jiminy/JIMINY.md.
func GlobalMemoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, GlobalDirName, DefaultContextFileName), nil
}

// Save appends a fact to the global memory file. See SaveTo.
func Save(fact string) error {
	return SaveTo("", fact)
}

// SaveTo appends a fact as a list item under the "## Added Memories" section
// of the memory file at path. An empty path targets the global memory file.
// File, parent directory and section are created when missing.
func SaveTo(path string, fact string) error {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return fmt.Errorf("fact must not be empty")
	}

	if path == "" {
		var err error
		path, err = GlobalMemoryPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	content := ""
	if data, err := os.ReadFile(path); err == nil {
		content = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read memory file: %w", err)
	}

	entry := "- " + fact + "\n"
	updated := insertUnderSection(content, entry)

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	return nil
}

// insertUnderSection places entry at the end of the memories section,
// creating the section at the end of the file when it does not exist yet.
func insertUnderSection(content string, entry string) string {
	idx := strings.Index(content, memorySectionHeader)
	if idx == -1 {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if content != "" {
			content += "\n"
		}
		return content + memorySectionHeader + "\n" + entry
	}

	// The section runs until the next heading or the end of the file.
	rest := content[idx:]
	sectionEnd := len(content)
	if next := strings.Index(rest, "\n## "); next != -1 {
		sectionEnd = idx + next + 1
	} else if !strings.HasSuffix(content, "\n") {
		content += "\n"
		sectionEnd = len(content)
	}

	return content[:sectionEnd] + entry + content[sectionEnd:]
}
