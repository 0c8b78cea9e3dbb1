package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feynman-go/proctor/chat"
)

func apiResult(t *testing.T, w http.ResponseWriter, result interface{}) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Error(err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": json.RawMessage(raw)}); err != nil {
		t.Error(err)
	}
}

func TestSendMessage(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Error("unexpected path", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		apiResult(t, w, map[string]interface{}{"message_id": 42, "chat": map[string]interface{}{"id": -200}})
	}))
	defer srv.Close()

	cl := New("TOKEN", Option{
		BaseURL:     srv.URL + "/bot",
		WorkerChat:  -200,
		WorkerTopic: 73,
	})
	ref, err := cl.SendMessage(context.Background(), -200, "hello", chat.SingleButton("go", "claim_x"))
	if err != nil {
		t.Fatal(err)
	}
	if ref.ID != 42 || ref.Channel != -200 {
		t.Fatal("unexpected ref", ref)
	}
	if gotBody["message_thread_id"] != float64(73) {
		t.Fatal("worker topic not applied:", gotBody["message_thread_id"])
	}
	markup, ok := gotBody["reply_markup"].(map[string]interface{})
	if !ok || markup["inline_keyboard"] == nil {
		t.Fatal("inline keyboard missing")
	}
}

func TestSendMessageOutsideWorkerChatHasNoTopic(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		apiResult(t, w, map[string]interface{}{"message_id": 1})
	}))
	defer srv.Close()

	cl := New("TOKEN", Option{BaseURL: srv.URL + "/bot", WorkerChat: -200, WorkerTopic: 73})
	if _, err := cl.SendMessage(context.Background(), -100, "hello", nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := gotBody["message_thread_id"]; ok {
		t.Fatal("topic leaked into non-worker send")
	}
}

func TestCallSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok": false, "description": "Bad Request: chat not found", "error_code": 400,
		})
	}))
	defer srv.Close()

	cl := New("TOKEN", Option{BaseURL: srv.URL + "/bot"})
	_, err := cl.SendMessage(context.Background(), 1, "x", nil)
	if err == nil {
		t.Fatal("API error not surfaced")
	}
}

func TestNextMapsUpdates(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/getUpdates" {
			t.Error("unexpected path", r.URL.Path)
		}
		polls++
		apiResult(t, w, []map[string]interface{}{
			{
				"update_id": 7,
				"message": map[string]interface{}{
					"message_id": 1,
					"from":       map[string]interface{}{"id": 2, "username": "xavier"},
					"chat":       map[string]interface{}{"id": -200},
					"photo": []map[string]interface{}{
						{"file_id": "small", "width": 90, "height": 90},
						{"file_id": "big", "width": 800, "height": 800},
					},
				},
			},
			{
				"update_id": 8,
				"callback_query": map[string]interface{}{
					"id":   "cb-1",
					"from": map[string]interface{}{"id": 3, "first_name": "Yve"},
					"data": "claim_s1",
					"message": map[string]interface{}{
						"message_id": 5,
						"chat":       map[string]interface{}{"id": -200},
					},
				},
			},
		})
	}))
	defer srv.Close()

	cl := New("TOKEN", Option{BaseURL: srv.URL + "/bot"})
	ctx := context.Background()

	ev, err := cl.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != chat.EventMedia || ev.Actor.ID != 2 || len(ev.Variants) != 2 {
		t.Fatal("photo update mapped wrong:", ev)
	}

	ev, err = cl.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Kind != chat.EventButton || ev.Data != "claim_s1" || ev.Callback != "cb-1" {
		t.Fatal("callback update mapped wrong:", ev)
	}
	if ev.Origin.ID != 5 || ev.Origin.Channel != -200 {
		t.Fatal("callback origin wrong:", ev.Origin)
	}

	if polls != 1 {
		t.Fatal("queued events should not re-poll, polls =", polls)
	}
	if cl.offset != 9 {
		t.Fatal("offset not advanced:", cl.offset)
	}
}

func TestMapUpdateCommands(t *testing.T) {
	u := update{Message: &message{
		From: &user{ID: 1},
		Chat: chatRef{ID: -100},
		Text: "/test@proctor_bot",
	}}
	ev, ok := mapUpdate(u)
	if !ok || ev.Kind != chat.EventCommand || ev.Text != "/test" {
		t.Fatal("addressed command mapped wrong:", ev, ok)
	}

	u.Message.Text = "plain words"
	ev, ok = mapUpdate(u)
	if !ok || ev.Kind != chat.EventText || ev.Text != "plain words" {
		t.Fatal("text mapped wrong:", ev, ok)
	}

	u.Message.Text = ""
	if _, ok := mapUpdate(u); ok {
		t.Fatal("empty message produced an event")
	}
}
