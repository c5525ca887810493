package memory

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mb0/glob"
	"github.com/rs/zerolog/log"
	"github.com/weaviate/tiktoken-go"
)

const (
	// DefaultContextFileName is the file name looked for at every level.
	DefaultContextFileName = "JIMINY.md"
	// GlobalDirName is the per-user directory under the home directory.
	GlobalDirName = ".jiminy"

	DefaultMaxFiles = 20
	DefaultMaxDepth = 4
)

// DefaultIgnoreDirs are directory names the subdirectory walk never enters.
var DefaultIgnoreDirs = []string{".git", "node_modules", "vendor", "dist", ".idea", "__pycache__"}

// Context is the assembled hierarchical memory for a working directory.
type Context struct {
	// Content is the concatenation of every discovered context file, each
	// wrapped in source separators.
	Content string
	// Files lists the context files that contributed, in discovery order.
	Files []string
	// FileCount is len(Files), kept separate for logging and display.
	FileCount int
	// TokenCount is the cl100k_base token count of Content.
	TokenCount int
}

type Options struct {
	fileNames  []string
	maxFiles   int
	maxDepth   int
	ignoreDirs []string
	homeDir    string
	globalDir  string
}

type Option func(*Options)

// WithFileNames replaces the context file names looked for at every level.
func WithFileNames(names ...string) Option {
	return func(o *Options) {
		if len(names) > 0 {
			o.fileNames = names
		}
	}
}

// WithMaxFiles bounds how many context files discovery collects in total.
func WithMaxFiles(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.maxFiles = n
		}
	}
}

// WithMaxDepth bounds how many directory levels below cwd the subdirectory
// walk descends.
func WithMaxDepth(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// WithIgnoreDirs replaces the directory ignore list. Entries are matched as
// glob patterns against directory names, so both "node_modules" and ".*"
// work.
func WithIgnoreDirs(patterns ...string) Option {
	return func(o *Options) {
		if len(patterns) > 0 {
			o.ignoreDirs = patterns
		}
	}
}

// WithHomeDir overrides the user home directory, which both hosts the global
// context file and stops the upward ancestor walk.
func WithHomeDir(dir string) Option {
	return func(o *Options) {
		o.homeDir = dir
	}
}

// WithGlobalDir overrides the global context directory (default
// <home>/.jiminy).
func WithGlobalDir(dir string) Option {
	return func(o *Options) {
		o.globalDir = dir
	}
}

// Discover assembles the hierarchical context for cwd. Sources are visited
// in fixed order: the global directory, then every ancestor from the project
// root (marked by .git) or home down to cwd, then subdirectories of cwd.
// Missing files are fine; an empty Context with no error means nothing was
// found.
func Discover(ctx context.Context, cwd string, options ...Option) (*Context, error) {
	o := &Options{
		fileNames:  []string{DefaultContextFileName},
		maxFiles:   DefaultMaxFiles,
		maxDepth:   DefaultMaxDepth,
		ignoreDirs: DefaultIgnoreDirs,
	}
	for _, opt := range options {
		opt(o)
	}

	if o.homeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Debug().Err(err).Msg("memory: could not resolve home directory")
		} else {
			o.homeDir = home
		}
	}
	if o.globalDir == "" && o.homeDir != "" {
		o.globalDir = filepath.Join(o.homeDir, GlobalDirName)
	}

	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	seen := map[string]bool{}
	var files []string

	collect := func(path string) {
		if seen[path] || len(files) >= o.maxFiles {
			return
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		seen[path] = true
		files = append(files, path)
		log.Debug().Str("path", path).Msg("memory: found context file")
	}

	// Global directory first.
	if o.globalDir != "" {
		for _, name := range o.fileNames {
			collect(filepath.Join(o.globalDir, name))
		}
	}

	// Ancestors from the project root down to cwd.
	for _, dir := range ancestorChain(cwd, o.homeDir) {
		for _, name := range o.fileNames {
			collect(filepath.Join(dir, name))
		}
	}

	// Subdirectories of cwd, depth- and count-limited.
	if err := walkSubdirs(ctx, cwd, o, collect); err != nil {
		return nil, err
	}

	result := &Context{
		Files:     files,
		FileCount: len(files),
	}

	var sections []string
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("memory: failed to read context file")
			continue
		}
		rel, err := filepath.Rel(cwd, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		sections = append(sections, fmt.Sprintf(
			"--- Context from: %s ---\n%s\n--- End of Context from: %s ---",
			rel, strings.TrimRight(string(data), "\n"), rel))
	}
	result.Content = strings.Join(sections, "\n\n")
	result.TokenCount = countTokens(result.Content)

	log.Debug().
		Int("file_count", result.FileCount).
		Int("token_count", result.TokenCount).
		Msg("memory: context discovery complete")

	return result, nil
}

// ancestorChain returns the directories from the topmost relevant ancestor
// down to cwd. The walk up stops at a directory containing a .git marker, at
// the home directory, or at the filesystem root, whichever comes first.
func ancestorChain(cwd string, homeDir string) []string {
	var chain []string
	dir := cwd
	for {
		chain = append([]string{dir}, chain...)
		if hasGitMarker(dir) || dir == homeDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return chain
}

func hasGitMarker(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func walkSubdirs(ctx context.Context, cwd string, o *Options, collect func(string)) error {
	isContextFile := map[string]bool{}
	for _, name := range o.fileNames {
		isContextFile[name] = true
	}

	return filepath.WalkDir(cwd, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == cwd {
			return nil
		}

		rel, relErr := filepath.Rel(cwd, path)
		if relErr != nil {
			return nil
		}
		depth := len(strings.Split(filepath.ToSlash(rel), "/"))

		if d.IsDir() {
			if ignoredDir(d.Name(), o.ignoreDirs) {
				return filepath.SkipDir
			}
			// A directory at depth N holds files N levels below cwd.
			if depth > o.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if isContextFile[d.Name()] {
			collect(path)
		}
		return nil
	})
}

func ignoredDir(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := glob.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

var (
	tokenEncodingOnce sync.Once
	tokenEncoding     *tiktoken.Tiktoken
)

// countTokens reports the cl100k_base token count of text, or 0 when the
// encoding cannot be loaded.
func countTokens(text string) int {
	if text == "" {
		return 0
	}
	tokenEncodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Debug().Err(err).Msg("memory: failed to load token encoding")
			return
		}
		tokenEncoding = enc
	})
	if tokenEncoding == nil {
		return 0
	}
	return len(tokenEncoding.Encode(text, nil, nil))
}
