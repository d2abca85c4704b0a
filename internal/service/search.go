package service

import (
	"context"
	"fmt"

	"github.com/meilisearch/meilisearch-go"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

// MeiliIndexer implements SearchIndexer on a Meilisearch index.
type MeiliIndexer struct {
	index meilisearch.IndexManager
}

func NewMeiliIndexer(host, apiKey, indexName string) *MeiliIndexer {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	return &MeiliIndexer{index: client.Index(indexName)}
}

type searchDocument struct {
	Id      domain.MsgId   `json:"id"`
	TopicId domain.TopicId `json:"topic_id"`
	Board   string         `json:"board"`
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Poster  string         `json:"poster"`
	Created int64          `json:"created"`
}

func (m *MeiliIndexer) IndexMessage(ctx context.Context, msg *domain.Message) error {
	doc := searchDocument{
		Id:      msg.Id,
		TopicId: msg.TopicId,
		Board:   msg.Board,
		Subject: msg.Subject,
		Body:    msg.Body,
		Poster:  msg.PosterName,
		Created: msg.CreatedAt.Unix(),
	}
	if _, err := m.index.AddDocuments([]searchDocument{doc}, nil); err != nil {
		return fmt.Errorf("search index update: %w", err)
	}
	return nil
}

var _ SearchIndexer = (*MeiliIndexer)(nil)
