package telegram

import (
	"context"
	"strings"

	"github.com/feynman-go/proctor/chat"
	"go.uber.org/zap"
)

type update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *message       `json:"message"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

type message struct {
	MessageID int64       `json:"message_id"`
	From      *user       `json:"from"`
	Chat      chatRef     `json:"chat"`
	Text      string      `json:"text"`
	Photo     []photoSize `json:"photo"`
}

type chatRef struct {
	ID int64 `json:"id"`
}

type user struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type photoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type callbackQuery struct {
	ID      string   `json:"id"`
	From    *user    `json:"from"`
	Message *message `json:"message"`
	Data    string   `json:"data"`
}

// Next yields the next inbound event, long-polling getUpdates as needed.
// Meant for a single consumer loop; calls serialize on an internal lock.
func (cl *Client) Next(ctx context.Context) (chat.Event, error) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for len(cl.queue) == 0 {
		if err := ctx.Err(); err != nil {
			return chat.Event{}, err
		}
		updates, err := cl.getUpdates(ctx)
		if err != nil {
			return chat.Event{}, err
		}
		for _, u := range updates {
			if u.UpdateID >= cl.offset {
				cl.offset = u.UpdateID + 1
			}
			if ev, ok := mapUpdate(u); ok {
				cl.queue = append(cl.queue, ev)
			} else {
				cl.logger.Debug("skip update", zap.Int64("update_id", u.UpdateID))
			}
		}
	}

	ev := cl.queue[0]
	cl.queue = cl.queue[1:]
	return ev, nil
}

func (cl *Client) getUpdates(ctx context.Context) ([]update, error) {
	params := map[string]interface{}{
		"offset":          cl.offset,
		"timeout":         int64(cl.pollTimeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}
	var updates []update
	if err := cl.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func mapUpdate(u update) (chat.Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		if cb.From == nil || cb.Message == nil {
			return chat.Event{}, false
		}
		return chat.Event{
			Kind:     chat.EventButton,
			Actor:    mapActor(cb.From),
			Channel:  chat.ChannelID(cb.Message.Chat.ID),
			Data:     cb.Data,
			Callback: cb.ID,
			Origin: chat.MessageRef{
				Channel: chat.ChannelID(cb.Message.Chat.ID),
				ID:      cb.Message.MessageID,
			},
		}, true
	case u.Message != nil:
		msg := u.Message
		if msg.From == nil {
			return chat.Event{}, false
		}
		ev := chat.Event{
			Actor:   mapActor(msg.From),
			Channel: chat.ChannelID(msg.Chat.ID),
		}
		switch {
		case len(msg.Photo) > 0:
			ev.Kind = chat.EventMedia
			for _, p := range msg.Photo {
				ev.Variants = append(ev.Variants, chat.MediaVariant{
					Ref:    chat.MediaRef(p.FileID),
					Width:  p.Width,
					Height: p.Height,
				})
			}
		case strings.HasPrefix(msg.Text, "/"):
			ev.Kind = chat.EventCommand
			// "/test@some_bot" addresses a specific bot in a group.
			ev.Text = strings.SplitN(msg.Text, "@", 2)[0]
		case msg.Text != "":
			ev.Kind = chat.EventText
			ev.Text = msg.Text
		default:
			return chat.Event{}, false
		}
		return ev, true
	default:
		return chat.Event{}, false
	}
}

func mapActor(u *user) chat.Actor {
	return chat.Actor{ID: u.ID, Username: u.Username, FirstName: u.FirstName}
}
