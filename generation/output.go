package generation

import (
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// OutputManager yields a sink for each generated artifact. The generator
// writes one complete, self-contained definition per name and closes it.
type OutputManager interface {
	CreateOutput(name string) (io.WriteCloser, error)
}

// FileOutputManager writes each artifact to <dir>/<snake_case name>.go
type FileOutputManager struct {
	fs  afero.Fs
	dir string
}

// NewFileOutputManager creates an output manager rooted at dir on fs
func NewFileOutputManager(fs afero.Fs, dir string) *FileOutputManager {
	return &FileOutputManager{fs: fs, dir: dir}
}

// Path returns the file an artifact is written to
func (m *FileOutputManager) Path(name string) string {
	return filepath.Join(m.dir, SnakeCase(name)+".go")
}

// CreateOutput creates or truncates the artifact's file
func (m *FileOutputManager) CreateOutput(name string) (io.WriteCloser, error) {
	if err := m.fs.MkdirAll(m.dir, 0o755); err != nil {
		return nil, xerrors.Errorf("create %s: %w", m.dir, err)
	}
	f, err := m.fs.Create(m.Path(name))
	if err != nil {
		return nil, xerrors.Errorf("create %s: %w", name, err)
	}
	return f, nil
}
