package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"pilot/internal/types"
)

var (
	bucketConversationMeta  = []byte("conversation_meta")
	bucketConversationItems = []byte("conversation_items")
)

type bboltRepository struct {
	db            *bolt.DB
	conversations ConversationMetaStore
	messages      MessageStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:            db,
		conversations: &bboltConversationMetaStore{db: db},
		messages:      &bboltMessageStore{db: db},
	}, nil
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketConversationMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketConversationItems)
		return err
	})
}

func (r *bboltRepository) Conversations() ConversationMetaStore {
	return r.conversations
}

func (r *bboltRepository) Messages() MessageStore {
	return r.messages
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type bboltConversationMetaStore struct {
	db *bolt.DB
}

func (s *bboltConversationMetaStore) List(ctx context.Context) ([]*types.ConversationMeta, error) {
	out := make([]*types.ConversationMeta, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversationMeta)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var meta types.ConversationMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			copyMeta := meta
			out = append(out, &copyMeta)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortMetaByRecency(out)
	return out, nil
}

func (s *bboltConversationMetaStore) Get(ctx context.Context, id string) (*types.ConversationMeta, bool, error) {
	var meta *types.ConversationMeta
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversationMeta)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		var decoded types.ConversationMeta
		if err := json.Unmarshal(data, &decoded); err != nil {
			return err
		}
		meta = &decoded
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return meta, meta != nil, nil
}

func (s *bboltConversationMetaStore) Upsert(ctx context.Context, meta *types.ConversationMeta) (*types.ConversationMeta, error) {
	if meta == nil || meta.ID == "" {
		return nil, errors.New("conversation meta requires an id")
	}
	stored := *meta
	data, err := json.Marshal(&stored)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversationMeta).Put([]byte(stored.ID), data)
	})
	if err != nil {
		return nil, err
	}
	copyMeta := stored
	return &copyMeta, nil
}

func (s *bboltConversationMetaStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversationMeta).Delete([]byte(id))
	})
}

type bboltMessageStore struct {
	db *bolt.DB
}

func (s *bboltMessageStore) Load(ctx context.Context, id string) ([]types.ChatItem, error) {
	var items []types.ChatItem
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketConversationItems)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		var file messagesFile
		if err := json.Unmarshal(data, &file); err != nil {
			return err
		}
		items = file.Items
		return nil
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []types.ChatItem{}
	}
	return items, nil
}

func (s *bboltMessageStore) Save(ctx context.Context, id string, items []types.ChatItem) error {
	if id == "" {
		return errors.New("conversation id is required")
	}
	data, err := json.Marshal(&messagesFile{Version: messagesSchemaVersion, Items: items})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversationItems).Put([]byte(id), data)
	})
}

func (s *bboltMessageStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketConversationItems).Delete([]byte(id))
	})
}
