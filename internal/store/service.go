package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	runewidth "github.com/mattn/go-runewidth"

	"pilot/internal/logging"
	"pilot/internal/types"
)

const (
	defaultTitle  = "New conversation"
	titleMaxWidth = 50
)

// ConversationService layers conversation semantics over a Repository:
// id allocation, title derivation, recency ordering, and the metadata cap.
type ConversationService struct {
	repo             Repository
	maxConversations int
	log              logging.Logger
	now              func() time.Time
}

func NewConversationService(repo Repository, maxConversations int, logger logging.Logger) *ConversationService {
	if maxConversations <= 0 {
		maxConversations = 100
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &ConversationService{
		repo:             repo,
		maxConversations: maxConversations,
		log:              logger,
		now:              time.Now,
	}
}

// Create allocates a new conversation with empty metadata and log.
func (s *ConversationService) Create(ctx context.Context) (*types.ConversationMeta, error) {
	now := s.now().UTC()
	meta := &types.ConversationMeta{
		ID:        newConversationID(),
		Title:     defaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored, err := s.repo.Conversations().Upsert(ctx, meta)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Messages().Save(ctx, stored.ID, []types.ChatItem{}); err != nil {
		return nil, err
	}
	s.enforceCap(ctx)
	return stored, nil
}

// List returns metadata with the most recently touched conversation first.
func (s *ConversationService) List(ctx context.Context) ([]*types.ConversationMeta, error) {
	return s.repo.Conversations().List(ctx)
}

// LoadLog reads the full item log straight from durable storage.
func (s *ConversationService) LoadLog(ctx context.Context, id string) ([]types.ChatItem, error) {
	return s.repo.Messages().Load(ctx, id)
}

// SaveLog persists the log and refreshes metadata: the title follows the
// first user turn and UpdatedAt moves the conversation to the front of the
// list.
func (s *ConversationService) SaveLog(ctx context.Context, id string, items []types.ChatItem) error {
	if err := s.repo.Messages().Save(ctx, id, items); err != nil {
		return err
	}
	meta, ok, err := s.repo.Conversations().Get(ctx, id)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if !ok {
		meta = &types.ConversationMeta{ID: id, CreatedAt: now}
	}
	meta.Title = titleFromItems(items)
	meta.UpdatedAt = now
	if _, err := s.repo.Conversations().Upsert(ctx, meta); err != nil {
		return err
	}
	s.enforceCap(ctx)
	return nil
}

// Delete removes the log and its metadata entry.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Messages().Delete(ctx, id); err != nil {
		return err
	}
	return s.repo.Conversations().Delete(ctx, id)
}

// enforceCap silently drops the oldest conversations beyond the cap.
func (s *ConversationService) enforceCap(ctx context.Context) {
	metas, err := s.repo.Conversations().List(ctx)
	if err != nil || len(metas) <= s.maxConversations {
		return
	}
	for _, meta := range metas[s.maxConversations:] {
		if err := s.repo.Messages().Delete(ctx, meta.ID); err != nil {
			s.log.Warn("cap eviction failed", logging.F("id", meta.ID), logging.F("err", err))
			continue
		}
		if err := s.repo.Conversations().Delete(ctx, meta.ID); err != nil {
			s.log.Warn("cap eviction failed", logging.F("id", meta.ID), logging.F("err", err))
		}
	}
}

func titleFromItems(items []types.ChatItem) string {
	for _, item := range items {
		if item.Kind != types.ItemUser {
			continue
		}
		title := strings.Join(strings.Fields(item.Content), " ")
		if title == "" {
			break
		}
		return runewidth.Truncate(title, titleMaxWidth, "…")
	}
	return defaultTitle
}

func newConversationID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "conv_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "conv_" + hex.EncodeToString(buf[:])
}
