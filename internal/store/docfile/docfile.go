// Package docfile keeps the social document in a single JSON file on disk.
package docfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/store"
)

type Store struct {
	path string
}

var _ store.DocumentStore = (*Store)(nil)

// Open returns a store backed by path. The file is created with an empty
// document when it does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.Save(context.Background(), model.NewDocument()); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Load(ctx context.Context) (model.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.NewDocument(), nil
		}
		return model.Document{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	return Decode(data)
}

// Save writes the document to a temporary file in the same directory and
// renames it over the previous one, so readers never observe a partial write.
func (s *Store) Save(ctx context.Context, doc model.Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".social_data-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Store) Close() error {
	return nil
}

// Encode renders the document the way it is stored on disk.
func Encode(doc model.Document) ([]byte, error) {
	if doc.Users == nil {
		doc.Users = []model.Profile{}
	}
	return json.MarshalIndent(doc, "", "    ")
}

// Decode parses stored bytes. Malformed input yields store.ErrStoreUnreadable.
func Decode(data []byte) (model.Document, error) {
	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("%w: %v", store.ErrStoreUnreadable, err)
	}
	doc.Normalize()
	return doc, nil
}
