package ingest

import (
	"path/filepath"

	"github.com/YuminosukeSato/tracegen/output"
)

// WriteGroup writes the records of g to dir, in a file named by its tag,
// and returns the file path.
func WriteGroup(dir string, g *Group) (string, error) {
	path := filepath.Join(dir, output.FileName(g.Tag))
	if err := output.WriteFile(path, g.Header, g.Data); err != nil {
		return "", err
	}
	return path, nil
}
