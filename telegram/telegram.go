// Package telegram is a thin Bot API client implementing the chat transport
// and inbound event source over HTTP long polling.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/feynman-go/proctor/chat"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const _defaultBaseURL = "https://api.telegram.org/bot"

type Client struct {
	token       string
	base        string
	hc          *http.Client
	workerChat  chat.ChannelID
	workerTopic int64
	pollTimeout time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	offset int64
	queue  []chat.Event
}

type Option struct {
	Logger     *zap.Logger
	HTTPClient *http.Client
	// BaseURL overrides the Bot API endpoint, mainly for tests.
	BaseURL string
	// WorkerChat and WorkerTopic: sends into this chat carry the topic as
	// message_thread_id. Zero topic means no sub-thread.
	WorkerChat  chat.ChannelID
	WorkerTopic int64
	// PollTimeout is the getUpdates long-poll duration.
	PollTimeout time.Duration
}

func New(token string, option Option) *Client {
	if option.Logger == nil {
		option.Logger = zap.L()
	}
	if option.BaseURL == "" {
		option.BaseURL = _defaultBaseURL
	}
	if option.PollTimeout <= 0 {
		option.PollTimeout = 30 * time.Second
	}
	if option.HTTPClient == nil {
		option.HTTPClient = &http.Client{Timeout: option.PollTimeout + 10*time.Second}
	}
	return &Client{
		token:       token,
		base:        option.BaseURL,
		hc:          option.HTTPClient,
		workerChat:  option.WorkerChat,
		workerTopic: option.WorkerTopic,
		pollTimeout: option.PollTimeout,
		logger:      option.Logger,
	}
}

func (cl *Client) SendMessage(ctx context.Context, ch chat.ChannelID, text string, ctl chat.Controls) (chat.MessageRef, error) {
	params := map[string]interface{}{
		"chat_id": int64(ch),
		"text":    text,
	}
	cl.applyTopic(ch, params)
	if ctl != nil {
		params["reply_markup"] = markup(ctl)
	}
	var msg message
	if err := cl.call(ctx, "sendMessage", params, &msg); err != nil {
		return chat.MessageRef{}, err
	}
	return chat.MessageRef{Channel: ch, ID: msg.MessageID}, nil
}

func (cl *Client) EditMessage(ctx context.Context, ref chat.MessageRef, text string, ctl chat.Controls) error {
	params := map[string]interface{}{
		"chat_id":      int64(ref.Channel),
		"message_id":   ref.ID,
		"text":         text,
		"reply_markup": markup(ctl),
	}
	return cl.call(ctx, "editMessageText", params, nil)
}

func (cl *Client) EditControls(ctx context.Context, ref chat.MessageRef, ctl chat.Controls) error {
	params := map[string]interface{}{
		"chat_id":      int64(ref.Channel),
		"message_id":   ref.ID,
		"reply_markup": markup(ctl),
	}
	return cl.call(ctx, "editMessageReplyMarkup", params, nil)
}

func (cl *Client) SendMedia(ctx context.Context, ch chat.ChannelID, media chat.MediaRef, caption string, ctl chat.Controls) (chat.MessageRef, error) {
	params := map[string]interface{}{
		"chat_id": int64(ch),
		"photo":   string(media),
		"caption": caption,
	}
	cl.applyTopic(ch, params)
	if ctl != nil {
		params["reply_markup"] = markup(ctl)
	}
	var msg message
	if err := cl.call(ctx, "sendPhoto", params, &msg); err != nil {
		return chat.MessageRef{}, err
	}
	return chat.MessageRef{Channel: ch, ID: msg.MessageID}, nil
}

func (cl *Client) Answer(ctx context.Context, callback string, text string, alert bool) error {
	params := map[string]interface{}{
		"callback_query_id": callback,
	}
	if text != "" {
		params["text"] = text
		params["show_alert"] = alert
	}
	return cl.call(ctx, "answerCallbackQuery", params, nil)
}

func (cl *Client) applyTopic(ch chat.ChannelID, params map[string]interface{}) {
	if ch == cl.workerChat && cl.workerTopic != 0 {
		params["message_thread_id"] = cl.workerTopic
	}
}

func (cl *Client) call(ctx context.Context, method string, params map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return errors.WithMessage(err, "encode params")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.base+cl.token+"/"+method, bytes.NewReader(body))
	if err != nil {
		return errors.WithMessage(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cl.hc.Do(req)
	if err != nil {
		return errors.WithMessagef(err, "call %s", method)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithMessagef(err, "read %s response", method)
	}

	var envelope struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		Description string          `json:"description"`
		ErrorCode   int             `json:"error_code"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return errors.WithMessagef(err, "decode %s response", method)
	}
	if !envelope.OK {
		return errors.Errorf("%s: %s (%d)", method, envelope.Description, envelope.ErrorCode)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return errors.WithMessagef(err, "decode %s result", method)
		}
	}
	return nil
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// markup converts controls to Bot API form. Nil controls become an empty
// keyboard, which on edit strips the buttons a message carried.
func markup(ctl chat.Controls) inlineKeyboard {
	kb := inlineKeyboard{InlineKeyboard: [][]inlineButton{}}
	for _, row := range ctl {
		out := make([]inlineButton, 0, len(row))
		for _, b := range row {
			out = append(out, inlineButton{Text: b.Label, CallbackData: b.Data})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, out)
	}
	return kb
}
