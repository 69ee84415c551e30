package sqlassets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SchemaFile is one embedded DDL file.
type SchemaFile struct {
	Name string
	SQL  string
}

// SchemaFiles returns the embedded DDL files ordered by file name.
func SchemaFiles() ([]SchemaFile, error) {
	names, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	files := make([]SchemaFile, 0, len(names))
	for _, name := range names {
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		files = append(files, SchemaFile{Name: name, SQL: string(raw)})
	}
	return files, nil
}
