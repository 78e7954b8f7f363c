package domain

import "context"

// ChatsRepository keeps per-chat bot settings.
type ChatsRepository interface {
	// GetChatLanguage returns "" for a chat that never picked a language.
	GetChatLanguage(ctx context.Context, chatID int64) (string, error)
	SetChatLanguage(ctx context.Context, chatID int64, languageCode string) error
}
