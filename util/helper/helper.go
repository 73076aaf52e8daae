// functions with side effect
package helper

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/go-sprout/sprout"
	"github.com/go-sprout/sprout/group/all"
	"github.com/gobwas/glob"
)

var templateFuncs map[string]any

func init() {
	handler := sprout.New()
	handler.AddGroups(all.RegistryGroup())
	templateFuncs = handler.Build()
}

// Get a Go text template instance from tpl string.
// If tpl starts with "@" char, treat it (the rest part after @) as a file name
// and read template contents from it instead.
func GetTemplate(tpl string, strict bool) (*template.Template, error) {
	if strings.HasPrefix(tpl, "@") {
		contents, err := os.ReadFile(tpl[1:])
		if err != nil {
			return nil, err
		}
		tpl = string(contents)
	}
	templateInstance := template.New("template").Funcs(templateFuncs)
	if strict {
		templateInstance = templateInstance.Option("missingkey=error")
	}
	return templateInstance.Parse(tpl)
}

// Execute Go text template and return rendered string.
// The result string is trim spaced.
func ExecTemplate(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Recognize "*.txt" style glob args, return parsed filenames.
// Args without glob metachars (or with no matches) are kept as is.
func ParseFilenameArgs(args ...string) []string {
	var names []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[{") {
			names = append(names, arg)
			continue
		}
		if filenames := ParseGlobFilenames(arg); filenames != nil {
			names = append(names, filenames...)
		} else {
			names = append(names, arg)
		}
	}
	return names
}

// ParseGlobFilenames expands a shell-like glob pattern (e.g. "*.png") into
// matching filenames on disk, sorted lexicographically.
// Returns nil if there are no matches or the pattern is invalid.
// This does NOT implement full bash features (brace expansion, extglob, etc.).
func ParseGlobFilenames(pattern string) []string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil
	}
	g, err := glob.Compile(filepath.ToSlash(pattern), '/')
	if err != nil {
		return nil
	}

	var matches []string
	_ = filepath.WalkDir(walkRoot(pattern), func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Ignore unreadable dirs/files.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if g.Match(filepath.ToSlash(path)) {
			matches = append(matches, filepath.Clean(path))
		}
		return nil
	})
	sort.Strings(matches)
	return matches
}

// walkRoot returns the directory portion of the longest prefix of pattern
// that contains no glob metachars.
func walkRoot(pattern string) string {
	prefix := pattern
	if i := strings.IndexAny(pattern, "*?[{"); i != -1 {
		prefix = pattern[:i]
	}
	if i := strings.LastIndexAny(prefix, `/\`); i != -1 {
		return filepath.Clean(prefix[:i+1])
	}
	return "."
}
