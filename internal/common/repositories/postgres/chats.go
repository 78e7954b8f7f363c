package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/pkg/errs"
)

type chatsRepository struct {
	psql *pgxpool.Pool
}

func NewChatsRepository(pool *pgxpool.Pool) domain.ChatsRepository {
	return &chatsRepository{
		psql: pool,
	}
}

func (cr *chatsRepository) GetChatLanguage(ctx context.Context, chatID int64) (string, error) {
	query := `SELECT language_code FROM chats WHERE id = $1`
	var languageCode string
	if err := cr.psql.QueryRow(ctx, query, chatID).Scan(&languageCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}

		return "", errs.NewStack(err)
	}

	return languageCode, nil
}

func (cr *chatsRepository) SetChatLanguage(ctx context.Context, chatID int64, languageCode string) error {
	query := `INSERT INTO chats(id, language_code)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET language_code = EXCLUDED.language_code,
			updated_at = NOW()`
	_, err := cr.psql.Exec(ctx, query, chatID, languageCode)
	if err != nil {
		return errs.NewStack(err)
	}

	return nil
}
