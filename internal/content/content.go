// Package content ships the built-in sample lessons.
package content

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"sel-lesson-service/internal/domain"
	"sel-lesson-service/internal/infra/file"
	"sel-lesson-service/internal/infra/memory"
)

//go:embed lessons
var lessons embed.FS

// FS returns the embedded lesson directory.
func FS() fs.FS {
	sub, err := fs.Sub(lessons, "lessons")
	if err != nil {
		panic(err)
	}
	return sub
}

// Register adds every embedded lesson to registry. Documents are decoded
// up front so a broken sample fails at startup.
func Register(registry *memory.Registry) error {
	entries, err := fs.ReadDir(FS(), ".")
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := e.Name()
		raw, err := fs.ReadFile(FS(), name)
		if err != nil {
			return err
		}
		doc, err := file.Decode(name, raw)
		if err != nil {
			return fmt.Errorf("sample lesson %s: %w", name, err)
		}
		if want := strings.TrimSuffix(name, path.Ext(name)); doc.ID != want {
			return fmt.Errorf("sample lesson %s declares id %q", name, doc.ID)
		}
		registry.Register(doc.ID, func(context.Context) (domain.LessonDocument, error) {
			return doc, nil
		})
	}
	return nil
}
