package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"

	"pilot/internal/types"
)

const conversationsSchemaVersion = 1

type FileConversationMetaStore struct {
	path string
	mu   sync.Mutex
}

type conversationsFile struct {
	Version       int                       `json:"version"`
	Conversations []*types.ConversationMeta `json:"conversations"`
}

func NewFileConversationMetaStore(path string) *FileConversationMetaStore {
	return &FileConversationMetaStore{path: path}
}

func (s *FileConversationMetaStore) List(ctx context.Context) ([]*types.ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return []*types.ConversationMeta{}, nil
		}
		return nil, err
	}
	out := make([]*types.ConversationMeta, 0, len(file.Conversations))
	for _, meta := range file.Conversations {
		if meta == nil {
			continue
		}
		copyMeta := *meta
		out = append(out, &copyMeta)
	}
	sortMetaByRecency(out)
	return out, nil
}

func (s *FileConversationMetaStore) Get(ctx context.Context, id string) (*types.ConversationMeta, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	for _, meta := range file.Conversations {
		if meta != nil && meta.ID == id {
			copyMeta := *meta
			return &copyMeta, true, nil
		}
	}
	return nil, false, nil
}

func (s *FileConversationMetaStore) Upsert(ctx context.Context, meta *types.ConversationMeta) (*types.ConversationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meta == nil || meta.ID == "" {
		return nil, errors.New("conversation meta requires an id")
	}

	file, err := s.load()
	if err != nil && !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}
	if file == nil {
		file = &conversationsFile{Version: conversationsSchemaVersion}
	}

	stored := *meta
	updated := false
	for i, existing := range file.Conversations {
		if existing != nil && existing.ID == meta.ID {
			file.Conversations[i] = &stored
			updated = true
			break
		}
	}
	if !updated {
		file.Conversations = append(file.Conversations, &stored)
	}
	if err := s.save(file); err != nil {
		return nil, err
	}
	copyMeta := stored
	return &copyMeta, nil
}

func (s *FileConversationMetaStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil
		}
		return err
	}
	filtered := file.Conversations[:0]
	for _, meta := range file.Conversations {
		if meta == nil || meta.ID == id {
			continue
		}
		filtered = append(filtered, meta)
	}
	file.Conversations = filtered
	return s.save(file)
}

func (s *FileConversationMetaStore) load() (*conversationsFile, error) {
	var file conversationsFile
	if err := readJSON(s.path, &file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (s *FileConversationMetaStore) save(file *conversationsFile) error {
	if file.Version == 0 {
		file.Version = conversationsSchemaVersion
	}
	return writeJSONAtomic(s.path, file)
}

func sortMetaByRecency(metas []*types.ConversationMeta) {
	sort.SliceStable(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
}
