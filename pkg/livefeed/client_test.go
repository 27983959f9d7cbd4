package livefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/youroute/pkg/ctdf"
)

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case frame := <-f.frames:
		return frame, nil
	case <-f.closed:
		return nil, errors.New("connection closed")
	}
}

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([][]byte(nil), f.written...)
}

type fakeDialer struct {
	mu    sync.Mutex
	dials int
	times []time.Time
	fail  func(dial int) error
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	d.times = append(d.times, time.Now())
	if d.fail != nil {
		if err := d.fail(d.dials); err != nil {
			return nil, err
		}
	}

	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

func (d *fakeDialer) Times() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]time.Time(nil), d.times...)
}

func (d *fakeDialer) Last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func alwaysFail(int) error {
	return errors.New("connection refused")
}

func newTestClient(dialer Dialer, baseDelay time.Duration, opts ...Option) *Client {
	opts = append([]Option{WithDialer(dialer)}, opts...)
	return NewClient(Config{URL: "ws://test.invalid/ws", BaseDelay: baseDelay, MaxAttempts: 5}, opts...)
}

func TestClientConnectDispatchesFrames(t *testing.T) {
	dialer := &fakeDialer{}
	client := newTestClient(dialer, time.Millisecond)
	defer client.Disconnect()

	received := make(chan ctdf.Vehicle, 1)
	client.Subscribe(TopicLocationUpdate, func(message Message) error {
		vehicle, err := message.Vehicle()
		if err != nil {
			return err
		}
		received <- vehicle
		return nil
	})

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, StateConnected, client.State())

	dialer.Last().frames <- []byte(`{"type":"location_update","data":{"id":"bus-1","location":{"latitude":1,"longitude":2}},"timestamp":10}`)

	select {
	case vehicle := <-received:
		assert.Equal(t, "bus-1", vehicle.ID)
		assert.Equal(t, 2.0, vehicle.Location.Longitude)
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not called")
	}
}

func TestClientConnectIsNoopWhenConnected(t *testing.T) {
	dialer := &fakeDialer{}
	client := newTestClient(dialer, time.Millisecond)
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.Connect(context.Background()))

	assert.Equal(t, 1, dialer.Dials())
}

func TestClientDropsMalformedFrames(t *testing.T) {
	dialer := &fakeDialer{}
	metrics := NewMetrics(nil)
	client := newTestClient(dialer, time.Millisecond, WithMetrics(metrics))
	defer client.Disconnect()

	received := make(chan Message, 1)
	client.Subscribe(TopicStopUpdate, func(message Message) error {
		received <- message
		return nil
	})

	require.NoError(t, client.Connect(context.Background()))

	conn := dialer.Last()
	conn.frames <- []byte("not json")
	conn.frames <- []byte(`{"type":"stop_update","data":{"id":"s1"},"timestamp":1}`)

	select {
	case message := <-received:
		assert.Equal(t, TopicStopUpdate, message.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame after malformed frame was not dispatched")
	}

	assert.Equal(t, StateConnected, client.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DecodeErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.FramesReceived))
	assert.Equal(t, 1, dialer.Dials())
}

func TestClientSendWhileDisconnected(t *testing.T) {
	dialer := &fakeDialer{}
	client := newTestClient(dialer, time.Millisecond)

	err := client.SendRouteUpdate(ctdf.Route{ID: "r1"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 0, dialer.Dials())
	assert.Equal(t, StateDisconnected, client.State())
}

func TestClientSendWritesEnvelope(t *testing.T) {
	dialer := &fakeDialer{}
	now := time.UnixMilli(1700000000000)
	client := newTestClient(dialer, time.Millisecond, WithClock(func() time.Time { return now }))
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	require.NoError(t, client.SendStopUpdate(ctdf.Stop{ID: "stop-9", Name: "Market Street"}))

	written := dialer.Last().Written()
	require.Len(t, written, 1)

	message, err := Decode(written[0])
	require.NoError(t, err)
	assert.Equal(t, TopicStopUpdate, message.Topic)
	assert.Equal(t, now.UnixMilli(), message.Timestamp)

	stop, err := message.Stop()
	require.NoError(t, err)
	assert.Equal(t, "Market Street", stop.Name)
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	dialer := &fakeDialer{}
	client := newTestClient(dialer, time.Millisecond)
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	dialer.Last().Close()

	assert.Eventually(t, func() bool {
		return dialer.Dials() == 2 && client.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, client.Attempts())
	assert.NoError(t, client.Err())
}

func TestClientResetsBackOffAfterReconnect(t *testing.T) {
	const base = 50 * time.Millisecond

	dialer := &fakeDialer{fail: func(dial int) error {
		if dial >= 2 && dial <= 4 {
			return errors.New("connection refused")
		}
		return nil
	}}
	client := newTestClient(dialer, base)
	defer client.Disconnect()

	require.NoError(t, client.Connect(context.Background()))
	firstDrop := time.Now()
	dialer.Last().Close()

	assert.Eventually(t, func() bool {
		return dialer.Dials() == 5 && client.State() == StateConnected
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, client.Attempts())

	times := dialer.Times()
	require.Len(t, times, 5)
	assert.GreaterOrEqual(t, times[1].Sub(firstDrop), base)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 2*base)
	assert.GreaterOrEqual(t, times[3].Sub(times[2]), 4*base)
	assert.GreaterOrEqual(t, times[4].Sub(times[3]), 8*base)

	secondDrop := time.Now()
	dialer.Last().Close()

	assert.Eventually(t, func() bool {
		return dialer.Dials() == 6 && client.State() == StateConnected
	}, 5*time.Second, 5*time.Millisecond)

	gap := dialer.Times()[5].Sub(secondDrop)
	assert.GreaterOrEqual(t, gap, base)
	assert.Less(t, gap, 8*base)
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{fail: alwaysFail}
	metrics := NewMetrics(nil)
	client := newTestClient(dialer, time.Millisecond, WithMetrics(metrics))

	err := client.Connect(context.Background())
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))

	assert.Eventually(t, func() bool {
		return client.State() == StateDisconnected
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, client.Err(), ErrMaxReconnectAttempts)
	assert.Equal(t, 6, dialer.Dials())
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.ReconnectAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TerminalFailures))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 6, dialer.Dials())
	assert.Equal(t, StateDisconnected, client.State())
}

func TestClientConnectAfterTerminalFailureStartsFresh(t *testing.T) {
	failing := true
	var mu sync.Mutex
	dialer := &fakeDialer{fail: func(int) error {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return errors.New("connection refused")
		}
		return nil
	}}
	client := newTestClient(dialer, time.Millisecond)
	defer client.Disconnect()

	client.Connect(context.Background())
	assert.Eventually(t, func() bool {
		return client.Err() != nil
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	failing = false
	mu.Unlock()

	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, StateConnected, client.State())
	assert.NoError(t, client.Err())
	assert.Equal(t, 0, client.Attempts())
}

func TestClientDisconnectCancelsPendingReconnect(t *testing.T) {
	dialer := &fakeDialer{fail: alwaysFail}
	client := newTestClient(dialer, 100*time.Millisecond)

	client.Connect(context.Background())
	assert.Equal(t, StateReconnectWait, client.State())

	client.Disconnect()
	time.Sleep(250 * time.Millisecond)

	assert.Equal(t, 1, dialer.Dials())
	assert.Equal(t, StateDisconnected, client.State())
	assert.NoError(t, client.Err())
}

type dialFunc func(ctx context.Context, url string) (Conn, error)

func (f dialFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// stallingConn blocks every write until the connection is closed
type stallingConn struct {
	*fakeConn
	writing     chan struct{}
	writingOnce sync.Once
}

func (s *stallingConn) WriteMessage(data []byte) error {
	s.writingOnce.Do(func() { close(s.writing) })
	<-s.closed
	return errors.New("connection closed")
}

func TestClientDisconnectDuringStalledSend(t *testing.T) {
	conn := &stallingConn{fakeConn: newFakeConn(), writing: make(chan struct{})}
	client := newTestClient(dialFunc(func(ctx context.Context, url string) (Conn, error) {
		return conn, nil
	}), time.Millisecond)

	require.NoError(t, client.Connect(context.Background()))

	sent := make(chan error, 1)
	go func() {
		sent <- client.SendStopUpdate(ctdf.Stop{ID: "stop-1"})
	}()
	<-conn.writing

	observed := make(chan State, 1)
	go func() {
		observed <- client.State()
	}()
	select {
	case state := <-observed:
		assert.Equal(t, StateConnected, state)
	case <-time.After(time.Second):
		t.Fatal("State blocked behind a stalled write")
	}

	disconnected := make(chan struct{})
	go func() {
		client.Disconnect()
		close(disconnected)
	}()
	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("Disconnect blocked behind a stalled write")
	}

	assert.Equal(t, StateDisconnected, client.State())

	var transportErr *TransportError
	assert.ErrorAs(t, <-sent, &transportErr)
}

func TestClientStateHook(t *testing.T) {
	dialer := &fakeDialer{}

	var mu sync.Mutex
	var states []State
	client := newTestClient(dialer, time.Millisecond, WithStateHook(func(state State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	}))

	require.NoError(t, client.Connect(context.Background()))
	client.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, states)
}

func TestBackOffDoublesFromBase(t *testing.T) {
	b := newBackOff(time.Second)

	var delays []time.Duration
	for i := 0; i < 5; i++ {
		delays = append(delays, b.NextBackOff())
	}

	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
	}, delays)

	b.Reset()
	assert.Equal(t, time.Second, b.NextBackOff())
}

func TestClientOverWebsocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	inbound := make(chan []byte, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"route_update","data":{"id":"r7","name":"Line 7"},"timestamp":3}`))

		_, data, err := conn.ReadMessage()
		if err == nil {
			inbound <- data
		}
	}))
	defer server.Close()

	client := NewClient(Config{URL: "ws" + strings.TrimPrefix(server.URL, "http")})
	defer client.Disconnect()

	routes := make(chan ctdf.Route, 1)
	client.Subscribe(TopicRouteUpdate, func(message Message) error {
		route, err := message.Route()
		if err != nil {
			return err
		}
		select {
		case routes <- route:
		default:
		}
		return nil
	})

	require.NoError(t, client.Connect(context.Background()))

	select {
	case route := <-routes:
		assert.Equal(t, "Line 7", route.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("route update was not received")
	}

	require.NoError(t, client.SendVehicleLocation(ctdf.Vehicle{ID: "bus-3"}))

	select {
	case data := <-inbound:
		message, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, TopicLocationUpdate, message.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive the frame")
	}
}
