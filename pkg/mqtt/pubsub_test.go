package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completed(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)

	return t
}

func pending() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done

	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} {
	return t.done
}

func (t *fakeToken) Error() error {
	return t.err
}

type fakeClient struct {
	mqtt.Client

	token     mqtt.Token
	published []byte
	topic     string
	handler   mqtt.MessageHandler
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload any) mqtt.Token {
	c.topic = topic
	c.published, _ = payload.([]byte)

	return c.token
}

func (c *fakeClient) Subscribe(topic string, _ byte, h mqtt.MessageHandler) mqtt.Token {
	c.topic = topic
	c.handler = h

	return c.token
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.topic = topics[0]

	return c.token
}

type fakeMessage struct {
	topic   string
	payload []byte
	acked   bool
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              { m.acked = true }

func newTestPubSub(client mqtt.Client, buf *bytes.Buffer) *pubsub {
	return &pubsub{
		client:  client,
		qos:     1,
		timeout: 50 * time.Millisecond,
		logger:  slog.New(slog.NewJSONHandler(buf, nil)),
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc  string
		topic string
		msg   any
		token mqtt.Token
		err   error
	}{
		{
			desc:  "publish message",
			topic: "m/d/c/c/messages/deltas",
			msg:   map[string]any{"worker_id": "w1"},
			token: completed(nil),
		},
		{
			desc:  "empty topic",
			msg:   map[string]any{},
			token: completed(nil),
			err:   errEmptyTopic,
		},
		{
			desc:  "broker error",
			topic: "t",
			msg:   map[string]any{},
			token: completed(errors.New("not connected")),
			err:   errors.New("not connected"),
		},
		{
			desc:  "timeout",
			topic: "t",
			msg:   map[string]any{},
			token: pending(),
			err:   errPublishTimeout,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			client := &fakeClient{token: tc.token}
			ps := newTestPubSub(client, &bytes.Buffer{})

			err := ps.Publish(context.Background(), tc.topic, tc.msg)
			if tc.err != nil {
				assert.EqualError(t, err, tc.err.Error())

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.topic, client.topic)
			assert.JSONEq(t, `{"worker_id":"w1"}`, string(client.published))
		})
	}
}

func TestPublishCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ps := newTestPubSub(&fakeClient{token: pending()}, &bytes.Buffer{})
	ps.timeout = time.Hour

	assert.ErrorIs(t, ps.Publish(ctx, "t", map[string]any{}), context.Canceled)
}

func TestSubscribeDeliversDecodedMessages(t *testing.T) {
	t.Parallel()

	client := &fakeClient{token: completed(nil)}
	buf := &bytes.Buffer{}
	ps := newTestPubSub(client, buf)

	var got map[string]any
	handler := func(topic string, msg map[string]any) error {
		assert.Equal(t, "m/d/c/c/control/manager/round", topic)
		got = msg

		return errors.New("rejected")
	}
	require.NoError(t, ps.Subscribe(context.Background(), "m/d/c/c/control/manager/round", handler))
	require.NotNil(t, client.handler)

	msg := &fakeMessage{topic: "m/d/c/c/control/manager/round", payload: []byte(`{"round_id":"r1"}`)}
	client.handler(client, msg)
	assert.Equal(t, map[string]any{"round_id": "r1"}, got)
	assert.True(t, msg.acked)
	assert.Contains(t, buf.String(), "Failed to handle MQTT message")

	got = nil
	bad := &fakeMessage{topic: "m/d/c/c/control/manager/round", payload: []byte("{")}
	client.handler(client, bad)
	assert.Nil(t, got)
	assert.True(t, bad.acked)
	assert.Contains(t, buf.String(), "Failed to unmarshal received message")
}

func TestSubscribeErrors(t *testing.T) {
	t.Parallel()

	noop := func(string, map[string]any) error { return nil }
	cases := []struct {
		desc    string
		topic   string
		handler Handler
		token   mqtt.Token
		err     error
	}{
		{desc: "empty topic", handler: noop, token: completed(nil), err: errEmptyTopic},
		{desc: "nil handler", topic: "t", token: completed(nil), err: errNilHandler},
		{desc: "timeout", topic: "t", handler: noop, token: pending(), err: errSubscribeTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ps := newTestPubSub(&fakeClient{token: tc.token}, &bytes.Buffer{})
			assert.ErrorIs(t, ps.Subscribe(context.Background(), tc.topic, tc.handler), tc.err)
		})
	}
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	client := &fakeClient{token: completed(nil)}
	ps := newTestPubSub(client, &bytes.Buffer{})

	require.NoError(t, ps.Unsubscribe(context.Background(), "t"))
	assert.Equal(t, "t", client.topic)
	assert.ErrorIs(t, ps.Unsubscribe(context.Background(), ""), errEmptyTopic)

	ps = newTestPubSub(&fakeClient{token: pending()}, &bytes.Buffer{})
	assert.ErrorIs(t, ps.Unsubscribe(context.Background(), "t"), errUnsubscribeTimeout)
}

func TestLastWillPayload(t *testing.T) {
	t.Parallel()

	var msg map[string]string
	require.NoError(t, json.Unmarshal([]byte(lwtPayload("worker-1")), &msg))
	assert.Equal(t, map[string]string{"status": "offline", "worker_id": "worker-1"}, msg)
}

func TestNewPubSubRequiresID(t *testing.T) {
	t.Parallel()

	_, err := NewPubSub(Config{}, "", slog.Default())
	assert.ErrorIs(t, err, errEmptyID)
}
