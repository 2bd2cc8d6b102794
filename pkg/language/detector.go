// Package language maps file paths to programming language tags by extension.
package language

import (
	"path/filepath"
	"strings"
)

// extensionMap is the fixed extension-to-language table. An extension missing
// from this table means the file is skipped by the analyzer, not an error.
var extensionMap = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".go":    "go",
	".rs":    "rust",
	".c":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".h":     "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".m":     "objectivec",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".r":     "r",
	".lua":   "lua",
	".pl":    "perl",
	".vim":   "vim",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".xml":   "xml",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".sass":  "sass",
	".md":    "markdown",
	".rst":   "rst",
	".tex":   "latex",
}

// Detect returns the language tag for a file path. The second return value is
// false when the extension is not in the table.
func Detect(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extensionMap[ext]
	return lang, ok
}

// IsSupported reports whether the file's language is in the table.
func IsSupported(path string) bool {
	_, ok := Detect(path)
	return ok
}

// SupportedExtensions returns all extensions the detector recognizes.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionMap))
	for ext := range extensionMap {
		exts = append(exts, ext)
	}
	return exts
}
