package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"pilot/internal/types"
)

const messagesSchemaVersion = 1

type FileMessageStore struct {
	dir string
	mu  sync.Mutex
}

type messagesFile struct {
	Version int              `json:"version"`
	Items   []types.ChatItem `json:"items"`
}

func NewFileMessageStore(dir string) *FileMessageStore {
	return &FileMessageStore{dir: dir}
}

func (s *FileMessageStore) Load(ctx context.Context, id string) ([]types.ChatItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var file messagesFile
	if err := readJSON(s.messagePath(id), &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []types.ChatItem{}, nil
		}
		return nil, err
	}
	return file.Items, nil
}

func (s *FileMessageStore) Save(ctx context.Context, id string, items []types.ChatItem) error {
	if id == "" {
		return errors.New("conversation id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSONAtomic(s.messagePath(id), &messagesFile{
		Version: messagesSchemaVersion,
		Items:   items,
	})
}

func (s *FileMessageStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.messagePath(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileMessageStore) messagePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}
