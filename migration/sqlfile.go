package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// SQLFileExtension marks migration files loaded by RegisterFS.
const SQLFileExtension = ".sql"

// RegisterFS registers one migration per .sql file in dir of fsys. The type
// is the file name without extension, and the migration executes the whole
// file as one statement.
func (r *Registry) RegisterFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations from %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), SQLFileExtension) {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %q: %w", entry.Name(), err)
		}

		statement := strings.TrimSpace(string(data))
		if statement == "" {
			continue
		}

		r.RegisterFunc(Type(strings.TrimSuffix(entry.Name(), SQLFileExtension)),
			func(_ context.Context, mctx *Context) error {
				return mctx.Execute(statement)
			})
	}

	return nil
}
