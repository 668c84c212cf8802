package store

import (
	"context"
	"errors"

	"pilot/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Repository bundles the two durable stores behind the conversation list:
// the metadata index and the per-conversation message logs. Writes are keyed
// by conversation id and never interleave across ids.
type Repository interface {
	Conversations() ConversationMetaStore
	Messages() MessageStore
	Backend() string
	Close() error
}

type ConversationMetaStore interface {
	List(ctx context.Context) ([]*types.ConversationMeta, error)
	Get(ctx context.Context, id string) (*types.ConversationMeta, bool, error)
	Upsert(ctx context.Context, meta *types.ConversationMeta) (*types.ConversationMeta, error)
	Delete(ctx context.Context, id string) error
}

type MessageStore interface {
	Load(ctx context.Context, id string) ([]types.ChatItem, error)
	Save(ctx context.Context, id string, items []types.ChatItem) error
	Delete(ctx context.Context, id string) error
}

type RepositoryPaths struct {
	ConversationsPath string
	MessagesDir       string
	DBPath            string
}

type fileRepository struct {
	conversations ConversationMetaStore
	messages      MessageStore
}

func NewFileRepository(paths RepositoryPaths) Repository {
	return &fileRepository{
		conversations: NewFileConversationMetaStore(paths.ConversationsPath),
		messages:      NewFileMessageStore(paths.MessagesDir),
	}
}

func (r *fileRepository) Conversations() ConversationMetaStore {
	return r.conversations
}

func (r *fileRepository) Messages() MessageStore {
	return r.messages
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}
