//go:build unit

package strip

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"golang-oscnode/internal/mock"
	"golang-oscnode/internal/types"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeToken is complete unless pending is set, in which case it never completes.
type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	if !t.pending {
		close(c)
	}
	return c
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	token        *fakeToken
	messages     []published
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	p.messages = append(p.messages, published{topic, qos, retained, payload.([]byte)})
	return p.token
}

func (p *fakePublisher) Disconnect(uint) { p.disconnected = true }

func TestLogActuator(t *testing.T) {
	a := NewLogActuator(Layout{Pixels: 30, Pins: []int{13, 14, 33}})

	_, n := a.Last()
	assert.Equal(t, 0, n)

	require.NoError(t, a.Fill(types.HighlightFrame))
	require.NoError(t, a.Fill(types.BaseFrame))

	last, n := a.Last()
	assert.Equal(t, types.BaseFrame, last)
	assert.Equal(t, 2, n)
	assert.NoError(t, a.Close())
}

func TestMQTTActuator_Fill(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{}}
	a := newMQTTActuator(pub, MQTTOptions{ClientID: "BCG_SLAVE_3", TopicPrefix: "oscnode", QoS: 1},
		Layout{Pixels: 30, Pins: []int{13, 14, 33}})

	require.NoError(t, a.Fill(types.HighlightFrame))
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, "oscnode/BCG_SLAVE_3/strip", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var got framePayload
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, framePayload{Color: "#ff00ff", Brightness: 255, Pixels: 30, Pins: []int{13, 14, 33}}, got)

	require.NoError(t, a.Close())
	assert.True(t, pub.disconnected)
}

func TestMQTTActuator_FillErrors(t *testing.T) {
	t.Run("Rejected", func(t *testing.T) {
		a := newMQTTActuator(&fakePublisher{token: &fakeToken{err: errors.New("not connected")}}, MQTTOptions{ClientID: "n", TopicPrefix: "p"}, Layout{})
		err := a.Fill(types.BaseFrame)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not connected")
	})
}

func TestMQTTActuator_FillDoesNotWaitForBroker(t *testing.T) {
	token := &fakeToken{pending: true}
	pub := &fakePublisher{token: token}
	a := newMQTTActuator(pub, MQTTOptions{ClientID: "n", TopicPrefix: "p", QoS: 1}, Layout{})

	start := time.Now()
	require.NoError(t, a.Fill(types.HighlightFrame))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Same(t, token, a.pending)

	// The next fill does not wait on the earlier publish either
	require.NoError(t, a.Fill(types.BaseFrame))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Len(t, pub.messages, 2)
}

func TestMQTTActuator_LateFailureIsReaped(t *testing.T) {
	token := &fakeToken{pending: true}
	pub := &fakePublisher{token: token}
	a := newMQTTActuator(pub, MQTTOptions{ClientID: "n", TopicPrefix: "p"}, Layout{})

	require.NoError(t, a.Fill(types.HighlightFrame))
	require.NotNil(t, a.pending)

	// The broker later refuses the first publish; the next fill reports it in the log only
	token.pending = false
	token.err = errors.New("connection lost")
	pub.token = &fakeToken{}

	require.NoError(t, a.Fill(types.BaseFrame))
	assert.Nil(t, a.pending)
}

func TestStartup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("FlashThenBase", func(t *testing.T) {
		act := mock.NewMockActuator(ctrl)
		gomock.InOrder(
			act.EXPECT().Fill(types.StartupFrame).Return(nil),
			act.EXPECT().Fill(types.BaseFrame).Return(nil),
		)
		assert.NoError(t, Startup(context.Background(), act, time.Millisecond))
	})

	t.Run("Cancelled", func(t *testing.T) {
		act := mock.NewMockActuator(ctrl)
		act.EXPECT().Fill(types.StartupFrame).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Startup(ctx, act, time.Hour), context.Canceled)
	})

	t.Run("FillFails", func(t *testing.T) {
		act := mock.NewMockActuator(ctrl)
		act.EXPECT().Fill(types.StartupFrame).Return(errors.New("bus error"))
		err := Startup(context.Background(), act, 0)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "startup frame")
	})
}
