package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	xerrors "NovaWallet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (r *recordingNotifier) Channel() Channel { return r.channel }

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestFromErrorHonoursAlertAttribute(t *testing.T) {
	_, ok := FromError(xerrors.New(xerrors.CodeInvalidArgument, "bad input"), "api", nil)
	assert.False(t, ok)

	_, ok = FromError(nil, "api", nil)
	assert.False(t, ok)

	err := xerrors.Wrap(xerrors.CodeStorageFailure, errors.New("conn refused"), "保存失败",
		xerrors.WithMetadata("table", "preview_audit"))
	evt, ok := FromError(err, "api", map[string]string{"path": "/api/v1/previews"})
	require.True(t, ok)
	assert.Equal(t, xerrors.CodeStorageFailure, evt.Code)
	assert.Equal(t, xerrors.SeverityCritical, evt.Severity)
	assert.Equal(t, "preview_audit", evt.Metadata["table"])
	assert.Equal(t, "/api/v1/previews", evt.Metadata["path"])
	assert.False(t, evt.OccurredAt.IsZero())

	evt, ok = FromError(errors.New("boom"), "events", nil)
	require.True(t, ok)
	assert.Equal(t, xerrors.CodeUnknown, evt.Code)
}

func TestFanoutCollectsErrors(t *testing.T) {
	ok := &recordingNotifier{channel: ChannelLog}
	failing := &recordingNotifier{channel: ChannelSlack, err: errors.New("down")}
	d := NewFanout(ok, nil, failing)
	assert.Equal(t, []Channel{ChannelLog, ChannelSlack}, d.Channels())

	err := d.Notify(context.Background(), Event{Code: xerrors.CodeTimeout})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel slack")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)

	var nilDispatcher *FanoutDispatcher
	assert.NoError(t, nilDispatcher.Notify(context.Background(), Event{}))
}

func TestWebhookSenderFormats(t *testing.T) {
	bodies := make(chan map[string]any, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		bodies <- body
	}))
	defer srv.Close()

	sender := NewWebhookSender(srv.URL, srv.Client())
	evt := Event{
		Code:       xerrors.CodeBackendFailure,
		Message:    "llm down",
		Severity:   xerrors.SeverityWarning,
		Source:     "api",
		Metadata:   map[string]string{"path": "/api/v1/chat"},
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, (&DingTalkNotifier{Sender: sender}).Notify(context.Background(), evt))
	ding := <-bodies
	assert.Equal(t, "text", ding["msgtype"])
	content := ding["text"].(map[string]any)["content"].(string)
	assert.True(t, strings.HasPrefix(content, "[warning] BACKEND_FAILURE"))
	assert.Contains(t, content, "- path: /api/v1/chat")

	require.NoError(t, (&SlackNotifier{Sender: sender.SlackSender(), ChannelID: "#alerts"}).Notify(context.Background(), evt))
	slack := <-bodies
	assert.Equal(t, "#alerts", slack["channel"])
	assert.Equal(t, "*[warning]* BACKEND_FAILURE - llm down (api)", slack["text"])
}

func TestWebhookSenderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, nil).Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	assert.Error(t, NewWebhookSender("", nil).Send(context.Background(), "hi"))
}

func TestUnconfiguredNotifiersSkip(t *testing.T) {
	assert.NoError(t, (&SlackNotifier{}).Notify(context.Background(), Event{}))
	assert.NoError(t, (&DingTalkNotifier{}).Notify(context.Background(), Event{}))
	assert.NoError(t, LogNotifier{}.Notify(context.Background(), Event{Code: xerrors.CodeTimeout, Message: "slow"}))
}
