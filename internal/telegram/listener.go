package telegram

import (
	"context"
	"strings"
	"time"
)

// CommandHandler processes one slash command and returns the reply text.
type CommandHandler func(ctx context.Context, command string, args []string) string

// CallbackHandler processes one inline-button callback and returns the reply
// text, which may be empty.
type CallbackHandler func(ctx context.Context, data string) string

// Listen long-polls for updates and dispatches them until the context is
// cancelled. Messages from any chat other than the authorized one are logged
// and silently dropped; the bot never replies to strangers.
func (c *Client) Listen(ctx context.Context, onCommand CommandHandler, onCallback CallbackHandler) {
	c.log.Info().Msg("listener started")
	var offset int64

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("listener stopped")
			return
		default:
		}

		updates, err := c.Updates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("getUpdates failed, backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1

			switch {
			case u.CallbackQuery != nil:
				cb := u.CallbackQuery
				if cb.Message.Chat.ID != c.chatID {
					c.log.Warn().Int64("chat", cb.Message.Chat.ID).Str("user", cb.From.Username).
						Msg("unauthorized callback dropped")
					continue
				}
				_ = c.AnswerCallback(ctx, cb.ID, "")
				if reply := onCallback(ctx, cb.Data); reply != "" {
					if err := c.SendMessage(ctx, reply); err != nil {
						c.log.Error().Err(err).Msg("failed to send callback reply")
					}
				}

			case u.Message != nil:
				msg := u.Message
				if msg.Chat.ID != c.chatID {
					c.log.Warn().Int64("chat", msg.Chat.ID).Str("user", msg.From.Username).
						Str("text", msg.Text).Msg("unauthorized message dropped")
					continue
				}
				text := strings.TrimSpace(msg.Text)
				if !strings.HasPrefix(text, "/") {
					continue
				}
				fields := strings.Fields(text)
				c.log.Info().Str("command", fields[0]).Msg("command received")
				if reply := onCommand(ctx, fields[0], fields[1:]); reply != "" {
					if err := c.SendMessage(ctx, reply); err != nil {
						c.log.Error().Err(err).Msg("failed to send command reply")
					}
				}
			}
		}
	}
}
