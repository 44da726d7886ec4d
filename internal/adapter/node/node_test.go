//go:build unit

package node

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"golang-oscnode/internal/adapter/infrastructure/kv"
	"golang-oscnode/internal/mock"
	"golang-oscnode/internal/pkg/command"
	"golang-oscnode/internal/pkg/configstore"
	"golang-oscnode/internal/pkg/router"
	"golang-oscnode/internal/pkg/trigger"
	"golang-oscnode/internal/port"
	"golang-oscnode/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testDefaults = types.NetworkConfig{
	LocalIP: netip.MustParseAddr("192.168.1.101"),
	Subnet:  netip.MustParseAddr("255.255.255.0"),
	Gateway: netip.MustParseAddr("192.168.1.1"),
	OutIP:   netip.MustParseAddr("192.168.1.99"),
	InPort:  7001,
	OutPort: 7000,
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	state    *types.DeviceState
	store    *configstore.Store
	clock    *fakeClock
	sw       *mock.MockSwitchInput
	control  *mock.MockControlChannel
	conn     *mock.MockDatagramConn
	actuator *mock.MockActuator
	link     *mock.MockLinkMonitor
	info     *mock.MockLinkInfo
	node     *Node
}

func newFixture(t *testing.T, echo bool) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		store:    configstore.New(kv.NewMemoryStore(), testDefaults),
		clock:    &fakeClock{t: time.Unix(1000, 0)},
		sw:       mock.NewMockSwitchInput(ctrl),
		control:  mock.NewMockControlChannel(ctrl),
		conn:     mock.NewMockDatagramConn(ctrl),
		actuator: mock.NewMockActuator(ctrl),
		link:     mock.NewMockLinkMonitor(ctrl),
		info:     mock.NewMockLinkInfo(ctrl),
	}
	state := f.store.LoadState()
	f.state = &state

	r := router.New(f.conn, f.actuator, f.state)
	f.node = New(Options{
		Name:          Name(DefaultNamePrefix, f.state.ID),
		PollInterval:  time.Millisecond,
		CheckInterval: 30 * time.Second,
		Echo:          echo,
		Clock:         f.clock.Now,
	}, Components{
		Watcher:     trigger.NewWatcher(f.sw, r.SendTrigger, trigger.WithClock(f.clock.Now)),
		Control:     f.control,
		Interpreter: command.NewInterpreter(f.state, f.store, f.info),
		Router:      r,
		Link:        f.link,
		Info:        f.info,
	})
	return f
}

// idle expects one pass with nothing to do, apart from what the caller sets up.
func (f *fixture) idle() {
	f.sw.EXPECT().Active().Return(false, nil).MaxTimes(1)
	f.control.EXPECT().ReadLine().Return("", false, nil).MaxTimes(1)
	f.conn.EXPECT().Receive().Return(nil, false, nil).MaxTimes(1)
}

func encodeTrigger(t *testing.T, id types.DeviceID) []byte {
	t.Helper()
	data, err := router.EncodeTrigger(id)
	require.NoError(t, err)
	return data
}

func TestName(t *testing.T) {
	assert.Equal(t, "BCG_SLAVE_10", Name(DefaultNamePrefix, types.UnconfiguredID))
	assert.Equal(t, "lobby-3", Name("lobby-", 3))
}

func TestNode_StepCommandThenTrigger(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, "BCG_SLAVE_10", f.node.GetName())

	// Unconfigured node ignores a trigger for ID 3
	f.sw.EXPECT().Active().Return(false, nil)
	f.control.EXPECT().ReadLine().Return("", false, nil)
	f.conn.EXPECT().Receive().Return(encodeTrigger(t, 3), true, nil)
	f.link.EXPECT().Check(gomock.Any()).Return(nil)
	require.NoError(t, f.node.Step(context.Background()))

	// Operator assigns ID 3
	f.sw.EXPECT().Active().Return(false, nil)
	f.control.EXPECT().ReadLine().Return("SET_ID 3", true, nil)
	f.control.EXPECT().WriteString("✅ Device ID set to 3 and saved.\n").Return(nil)
	f.conn.EXPECT().Receive().Return(nil, false, nil)
	require.NoError(t, f.node.Step(context.Background()))

	// The same trigger now highlights the strips
	f.sw.EXPECT().Active().Return(false, nil)
	f.control.EXPECT().ReadLine().Return("", false, nil)
	f.conn.EXPECT().Receive().Return(encodeTrigger(t, 3), true, nil)
	f.actuator.EXPECT().Fill(types.HighlightFrame).Return(nil)
	require.NoError(t, f.node.Step(context.Background()))

	assert.Equal(t, types.DeviceID(3), f.store.LoadIdentity())
}

func TestNode_StepOrder(t *testing.T) {
	f := newFixture(t, false)

	// switch, then console, then datagrams, then link
	gomock.InOrder(
		f.sw.EXPECT().Active().Return(false, nil),
		f.control.EXPECT().ReadLine().Return("", false, nil),
		f.conn.EXPECT().Receive().Return(nil, false, nil),
		f.link.EXPECT().Check(gomock.Any()).Return(nil),
	)

	require.NoError(t, f.node.Step(context.Background()))
}

func TestNode_StepOrderWithWork(t *testing.T) {
	f := newFixture(t, false)
	f.state.ID = 2

	gomock.InOrder(
		f.sw.EXPECT().Active().Return(true, nil),
		f.conn.EXPECT().SendTo(gomock.Any(), encodeTrigger(t, 2)).Return(nil),
		f.control.EXPECT().ReadLine().Return("GET", true, nil),
		f.control.EXPECT().WriteString(gomock.Any()).Return(nil),
		f.conn.EXPECT().Receive().Return(encodeTrigger(t, 2), true, nil),
		f.actuator.EXPECT().Fill(types.HighlightFrame).Return(nil),
		f.link.EXPECT().Check(gomock.Any()).Return(nil),
	)

	require.NoError(t, f.node.Step(context.Background()))
}

func TestNode_StepSwitchSendsTrigger(t *testing.T) {
	f := newFixture(t, false)
	f.state.ID = 4

	target := netip.MustParseAddrPort("192.168.1.99:7000")
	f.sw.EXPECT().Active().Return(true, nil)
	f.conn.EXPECT().SendTo(target, encodeTrigger(t, 4)).Return(nil)
	f.control.EXPECT().ReadLine().Return("", false, nil)
	f.conn.EXPECT().Receive().Return(nil, false, nil)
	f.link.EXPECT().Check(gomock.Any()).Return(nil)
	require.NoError(t, f.node.Step(context.Background()))

	// Held switch within the debounce interval does not resend
	f.clock.Advance(100 * time.Millisecond)
	f.control.EXPECT().ReadLine().Return("", false, nil)
	f.conn.EXPECT().Receive().Return(nil, false, nil)
	require.NoError(t, f.node.Step(context.Background()))
}

func TestNode_Echo(t *testing.T) {
	f := newFixture(t, true)

	f.sw.EXPECT().Active().Return(false, nil).Times(2)
	f.conn.EXPECT().Receive().Return(nil, false, nil).Times(2)
	f.link.EXPECT().Check(gomock.Any()).Return(nil)

	gomock.InOrder(
		f.control.EXPECT().ReadLine().Return("GET", true, nil),
		f.control.EXPECT().WriteString(command.FormatState(*f.state)).Return(nil),
		f.control.EXPECT().WriteString("GET\n").Return(nil),
		f.control.EXPECT().ReadLine().Return("hello", true, nil),
		f.control.EXPECT().WriteString("hello\n").Return(nil),
	)

	require.NoError(t, f.node.Step(context.Background()))
	require.NoError(t, f.node.Step(context.Background()))
}

func TestNode_CollaboratorErrorsAreNotFatal(t *testing.T) {
	f := newFixture(t, false)

	f.sw.EXPECT().Active().Return(false, errors.New("line released"))
	f.control.EXPECT().ReadLine().Return("", false, errors.New("port closed"))
	f.conn.EXPECT().Receive().Return(nil, false, errors.New("socket closed"))
	f.link.EXPECT().Check(gomock.Any()).Return(errors.New("route busy"))

	assert.NoError(t, f.node.Step(context.Background()))
}

func TestNode_LinkCheckRateLimit(t *testing.T) {
	f := newFixture(t, false)

	f.link.EXPECT().Check(gomock.Any()).Return(nil).Times(2)
	for i := 0; i < 3; i++ {
		f.idle()
		require.NoError(t, f.node.Step(context.Background()))
		f.clock.Advance(10 * time.Second)
	}
	// 30s have passed since the first check
	f.idle()
	require.NoError(t, f.node.Step(context.Background()))
}

func TestNode_LinkLost(t *testing.T) {
	f := newFixture(t, false)

	f.idle()
	f.link.EXPECT().Check(gomock.Any()).Return(fmt.Errorf("%w: carrier down", port.ErrLinkLost))

	err := f.node.Step(context.Background())
	assert.ErrorIs(t, err, port.ErrLinkLost)
}

func TestNode_Run(t *testing.T) {
	t.Run("Cancelled", func(t *testing.T) {
		f := newFixture(t, false)

		f.control.EXPECT().WriteString("BCG_SLAVE_10\n").Return(nil)
		f.info.EXPECT().LocalAddress().Return(netip.MustParseAddr("192.168.1.101"), nil)
		f.info.EXPECT().HardwareAddress().Return("00:11:22:33:44:55", nil)
		f.sw.EXPECT().Active().Return(false, nil).AnyTimes()
		f.control.EXPECT().ReadLine().Return("", false, nil).AnyTimes()
		f.conn.EXPECT().Receive().Return(nil, false, nil).AnyTimes()
		f.link.EXPECT().Check(gomock.Any()).Return(nil).AnyTimes()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, f.node.Run(ctx), context.DeadlineExceeded)
	})

	t.Run("LinkLost", func(t *testing.T) {
		f := newFixture(t, false)

		f.control.EXPECT().WriteString("BCG_SLAVE_10\n").Return(nil)
		f.info.EXPECT().LocalAddress().Return(netip.Addr{}, errors.New("no address"))
		f.info.EXPECT().HardwareAddress().Return("00:11:22:33:44:55", nil)
		f.idle()
		f.link.EXPECT().Check(gomock.Any()).Return(port.ErrLinkLost)

		assert.ErrorIs(t, f.node.Run(context.Background()), port.ErrLinkLost)
	})
}
