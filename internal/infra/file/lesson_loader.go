package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"sel-lesson-service/internal/domain"
)

var extensions = []string{".json", ".yaml", ".yml"}

// LessonLoader reads lesson documents from a directory. A lesson with id X
// lives in X.json, X.yaml or X.yml.
type LessonLoader struct {
	fsys fs.FS
}

func NewLessonLoader(dir string) *LessonLoader {
	return &LessonLoader{fsys: os.DirFS(dir)}
}

// NewFSLessonLoader reads lessons from any fs.FS, such as an embed.FS.
func NewFSLessonLoader(fsys fs.FS) *LessonLoader {
	return &LessonLoader{fsys: fsys}
}

func (l *LessonLoader) LoadLesson(ctx context.Context, lessonID string) (domain.LessonDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.LessonDocument{}, err
	}
	if !fs.ValidPath(lessonID) || strings.Contains(lessonID, "/") {
		return domain.LessonDocument{}, fmt.Errorf("%w: %s", domain.ErrLessonNotFound, lessonID)
	}
	for _, ext := range extensions {
		raw, err := fs.ReadFile(l.fsys, lessonID+ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return domain.LessonDocument{}, fmt.Errorf("read lesson %s: %w", lessonID, err)
		}
		doc, err := Decode(lessonID+ext, raw)
		if err != nil {
			return domain.LessonDocument{}, err
		}
		if doc.ID != lessonID {
			return domain.LessonDocument{}, &domain.ContentDefectError{
				LessonID: lessonID,
				Problems: []string{fmt.Sprintf("file declares id %q", doc.ID)},
			}
		}
		return doc, nil
	}
	return domain.LessonDocument{}, fmt.Errorf("%w: %s", domain.ErrLessonNotFound, lessonID)
}

// IDs lists the lesson ids found in the directory, sorted.
func (l *LessonLoader) IDs() ([]string, error) {
	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isLessonExt(ext) {
			continue
		}
		seen[strings.TrimSuffix(e.Name(), ext)] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Decode parses a JSON or YAML lesson file. YAML is converted to JSON first
// so both formats pass the same schema and validation.
func Decode(name string, raw []byte) (domain.LessonDocument, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return domain.LessonDocument{}, &domain.ContentDefectError{Problems: []string{fmt.Sprintf("%s: %v", name, err)}}
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return domain.LessonDocument{}, &domain.ContentDefectError{Problems: []string{fmt.Sprintf("%s: %v", name, err)}}
		}
		raw = converted
	}
	return domain.DecodeLesson(raw)
}

// Result is the lint outcome of one file.
type Result struct {
	Path string
	ID   string
	Err  error
}

// Lint decodes every lesson file under dir. Duplicate ids are reported on
// the later file.
func Lint(dir string) ([]Result, error) {
	var results []Result
	ids := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isLessonExt(filepath.Ext(path)) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		res := Result{Path: path}
		doc, err := Decode(path, raw)
		res.ID, res.Err = doc.ID, err
		if err == nil {
			if prev, ok := ids[doc.ID]; ok {
				res.Err = &domain.ContentDefectError{LessonID: doc.ID, Problems: []string{"id already used by " + prev}}
			} else {
				ids[doc.ID] = path
			}
		}
		results = append(results, res)
		return nil
	})
	return results, err
}

func isLessonExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
