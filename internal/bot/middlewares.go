package bot

import (
	"context"
	"slices"

	"github.com/leonid6372/upbit-paper/pkg/log"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

func (b *Bot) recoveryMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("recovered from panic",
					zap.Any("panic", r),
					zap.Stack("stack"),
				)

				err = b.defaultErrorHandler(c)
			}
		}()

		return next(c)
	}
}

// allowedChatsMiddleware drops updates from chats outside cfg.AllowedChats. An empty list
// lets everyone in.
func (b *Bot) allowedChatsMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if len(b.cfg.AllowedChats) == 0 {
			return next(c)
		}

		chat := c.Chat()
		if chat == nil || !slices.Contains(b.cfg.AllowedChats, chat.ID) {
			log.Debug("update from a chat that is not allowed", zap.Any("chat", chat))
			return nil
		}

		return next(c)
	}
}

func (b *Bot) contextMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(b.ctx, handlerTimeout)
		defer cancel()

		c.Set(ctxContext, ctx)

		return next(c)
	}
}

func (b *Bot) defaultErrorMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if err := next(c); err != nil {
			log.Error("unknown error", zap.Error(err))
			return b.defaultErrorHandler(c)
		}

		return nil
	}
}
