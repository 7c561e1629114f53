package pipeline

import (
	"path/filepath"
	"strings"
)

// Filter decides which discovered paths enter the pipeline. Only allow-listed
// extensions are admitted, and encrypted artifacts are never admitted: when
// encryption is on the worker produces them itself (admitting the creation
// event would upload the artifact twice), and when it is off they are not
// this pipeline's output format.
type Filter struct {
	exts      map[string]bool
	encSuffix string
}

func NewFilter(extensions []string, encSuffix string) *Filter {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &Filter{exts: exts, encSuffix: strings.ToLower(encSuffix)}
}

func (f *Filter) Admit(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == f.encSuffix {
		return false
	}

	return f.exts[ext]
}
