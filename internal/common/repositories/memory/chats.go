package memory

import (
	"context"
	"sync"

	"github.com/leonid6372/upbit-paper/internal/common/domain"
)

type chatsRepository struct {
	mu        sync.RWMutex
	languages map[int64]string
}

func NewChatsRepository() domain.ChatsRepository {
	return &chatsRepository{languages: make(map[int64]string)}
}

func (cr *chatsRepository) GetChatLanguage(_ context.Context, chatID int64) (string, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	return cr.languages[chatID], nil
}

func (cr *chatsRepository) SetChatLanguage(_ context.Context, chatID int64, languageCode string) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	cr.languages[chatID] = languageCode

	return nil
}
