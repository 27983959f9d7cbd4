package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/datastore"
	"github.com/travigo/youroute/pkg/tracking"
)

func newTrackingFixture(t *testing.T) (*datastore.MemoryStore, *tracking.Service) {
	t.Helper()

	store := datastore.NewMemoryStore()
	service := tracking.NewService(store)

	ctx := context.Background()
	require.NoError(t, service.PutRoute(ctx, ctdf.Route{ID: "r1", Name: "Line 1"}))
	require.NoError(t, service.PutRoute(ctx, ctdf.Route{ID: "r2", Name: "Line 2"}))
	require.NoError(t, service.UpdateVehicleLocation(ctx, "r1", 51.5, -0.12, 0, 10))
	require.NoError(t, store.Set(ctx, tracking.StopsPath, map[string]ctdf.Stop{
		"A": {ID: "A", Location: ctdf.GeoPoint{Latitude: 1.234, Longitude: 5.678}},
		"B": {ID: "B", Location: ctdf.GeoPoint{Latitude: 2.234, Longitude: 6.678}},
	}))

	return store, service
}

func TestTrackingSessionFollowsRouteAndVehicle(t *testing.T) {
	store, service := newTrackingFixture(t)
	session := NewTrackingSession(context.Background(), service)
	defer session.Close()

	require.NoError(t, session.SetRoute("r1"))

	state := session.State()
	require.NotNil(t, state.Route)
	assert.Equal(t, "Line 1", state.Route.Name)
	require.NotNil(t, state.Vehicle)
	assert.Equal(t, 51.5, state.Vehicle.Location.Latitude)
	assert.Equal(t, 2, store.SubscriberCount())

	require.NoError(t, service.UpdateVehicleLocation(context.Background(), "r1", 51.6, -0.12, 0, 10))
	assert.Equal(t, 51.6, session.State().Vehicle.Location.Latitude)

	require.NoError(t, service.PutRoute(context.Background(), ctdf.Route{ID: "r1", Name: "Line 1 Express"}))
	assert.Equal(t, "Line 1 Express", session.State().Route.Name)
	assert.Equal(t, 2, store.SubscriberCount())
}

func TestTrackingSessionSwitchingRouteReleasesOldSubscriptions(t *testing.T) {
	store, service := newTrackingFixture(t)
	session := NewTrackingSession(context.Background(), service)
	defer session.Close()

	require.NoError(t, session.SetRoute("r1"))
	require.NoError(t, session.SetRoute("r2"))

	state := session.State()
	assert.Equal(t, "Line 2", state.Route.Name)
	assert.Nil(t, state.Vehicle)
	assert.Equal(t, 2, store.SubscriberCount())

	require.NoError(t, service.PutRoute(context.Background(), ctdf.Route{ID: "r1", Name: "Stale"}))
	require.NoError(t, service.UpdateVehicleLocation(context.Background(), "r1", 10, 10, 0, 0))

	state = session.State()
	assert.Equal(t, "Line 2", state.Route.Name)
	assert.Nil(t, state.Vehicle)

	require.NoError(t, session.SetRoute(""))
	assert.Nil(t, session.State().Route)
	assert.Equal(t, 0, store.SubscriberCount())
}

func TestTrackingSessionCloseReleasesEverything(t *testing.T) {
	store, service := newTrackingFixture(t)
	session := NewTrackingSession(context.Background(), service)

	require.NoError(t, session.SetRoute("r1"))
	require.NoError(t, session.SetOrigin(ctdf.GeoPoint{Latitude: 1.234, Longitude: 5.678}))
	session.Wait()

	before := session.State()
	session.Close()
	session.Close()

	assert.Equal(t, 0, store.SubscriberCount())

	require.NoError(t, service.UpdateVehicleLocation(context.Background(), "r1", 10, 10, 0, 0))
	assert.Equal(t, before, session.State())

	assert.ErrorIs(t, session.SetRoute("r2"), ErrSessionClosed)
	assert.ErrorIs(t, session.SetOrigin(ctdf.GeoPoint{}), ErrSessionClosed)
}

func TestTrackingSessionNearbyStops(t *testing.T) {
	_, service := newTrackingFixture(t)

	var mu sync.Mutex
	var loadingSeen bool
	session := NewTrackingSession(context.Background(), service, WithTrackingListener(func(state TrackingState) {
		mu.Lock()
		defer mu.Unlock()
		if state.Loading {
			loadingSeen = true
		}
	}))
	defer session.Close()

	require.NoError(t, session.SetOrigin(ctdf.GeoPoint{Latitude: 1.234, Longitude: 5.678}))
	session.Wait()

	state := session.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	require.Len(t, state.NearbyStops, 1)
	assert.Equal(t, "A", state.NearbyStops[0].ID)

	mu.Lock()
	assert.True(t, loadingSeen)
	mu.Unlock()
}

type fakeTrackingSource struct {
	mu sync.Mutex

	nearby      func(call int, latitude float64) ([]ctdf.Stop, error)
	nearbyCalls int

	routeCallbacks   []func(ctdf.Route)
	vehicleCallbacks []func(ctdf.Vehicle)
	unsubscribed     int
	subscribeErr     error
	vehicleErr       error
}

func (f *fakeTrackingSource) setErrors(route error, vehicle error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribeErr = route
	f.vehicleErr = vehicle
}

func (f *fakeTrackingSource) subscriptions() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.routeCallbacks), len(f.vehicleCallbacks)
}

func (f *fakeTrackingSource) SubscribeToRoute(ctx context.Context, routeID string, onUpdate func(ctdf.Route)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.routeCallbacks = append(f.routeCallbacks, onUpdate)
	return f.unsubscribe, nil
}

func (f *fakeTrackingSource) SubscribeToVehicle(ctx context.Context, vehicleID string, onUpdate func(ctdf.Vehicle)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.vehicleErr != nil {
		return nil, f.vehicleErr
	}
	f.vehicleCallbacks = append(f.vehicleCallbacks, onUpdate)
	return f.unsubscribe, nil
}

func (f *fakeTrackingSource) unsubscribe() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unsubscribed++
}

func (f *fakeTrackingSource) NearbyStops(ctx context.Context, latitude float64, longitude float64) ([]ctdf.Stop, error) {
	f.mu.Lock()
	f.nearbyCalls++
	call := f.nearbyCalls
	f.mu.Unlock()

	return f.nearby(call, latitude)
}

func TestTrackingSessionCapturesFetchErrors(t *testing.T) {
	source := &fakeTrackingSource{
		nearby: func(int, float64) ([]ctdf.Stop, error) {
			return nil, errors.New("store unavailable")
		},
	}
	session := NewTrackingSession(context.Background(), source)
	defer session.Close()

	require.NoError(t, session.SetOrigin(ctdf.GeoPoint{Latitude: 1, Longitude: 1}))
	session.Wait()

	state := session.State()
	assert.Equal(t, "store unavailable", state.Error)
	assert.False(t, state.Loading)
}

func TestTrackingSessionCapturesFetchPanics(t *testing.T) {
	source := &fakeTrackingSource{
		nearby: func(int, float64) ([]ctdf.Stop, error) {
			panic("nil catalog")
		},
	}
	session := NewTrackingSession(context.Background(), source)
	defer session.Close()

	require.NoError(t, session.SetOrigin(ctdf.GeoPoint{Latitude: 1, Longitude: 1}))
	assert.NotPanics(t, session.Wait)

	assert.NotEmpty(t, session.State().Error)
}

func TestTrackingSessionDiscardsStaleNearbyResults(t *testing.T) {
	releaseFirst := make(chan struct{})
	firstStarted := make(chan struct{})

	source := &fakeTrackingSource{
		nearby: func(call int, latitude float64) ([]ctdf.Stop, error) {
			if call == 1 {
				close(firstStarted)
				<-releaseFirst
				return []ctdf.Stop{{ID: "stale"}}, nil
			}
			return []ctdf.Stop{{ID: "fresh"}}, nil
		},
	}
	session := NewTrackingSession(context.Background(), source)
	defer session.Close()

	require.NoError(t, session.SetOrigin(ctdf.GeoPoint{Latitude: 1, Longitude: 1}))
	<-firstStarted
	require.NoError(t, session.SetOrigin(ctdf.GeoPoint{Latitude: 2, Longitude: 2}))

	assert.Eventually(t, func() bool {
		stops := session.State().NearbyStops
		return len(stops) == 1 && stops[0].ID == "fresh"
	}, time.Second, time.Millisecond)

	close(releaseFirst)
	session.Wait()

	stops := session.State().NearbyStops
	require.Len(t, stops, 1)
	assert.Equal(t, "fresh", stops[0].ID)
}

func TestTrackingSessionIgnoresLateCallbacks(t *testing.T) {
	source := &fakeTrackingSource{}
	session := NewTrackingSession(context.Background(), source)

	require.NoError(t, session.SetRoute("r1"))
	require.Len(t, source.routeCallbacks, 1)

	source.routeCallbacks[0](ctdf.Route{ID: "r1", Name: "Line 1"})
	require.Len(t, source.vehicleCallbacks, 1)
	source.vehicleCallbacks[0](ctdf.Vehicle{ID: "bus-1"})

	session.Close()
	assert.Equal(t, 2, source.unsubscribed)

	source.routeCallbacks[0](ctdf.Route{ID: "r1", Name: "Late"})
	source.vehicleCallbacks[0](ctdf.Vehicle{ID: "bus-late"})

	state := session.State()
	assert.Equal(t, "Line 1", state.Route.Name)
	assert.Equal(t, "bus-1", state.Vehicle.ID)
}

func TestTrackingSessionRecordsSubscribeErrors(t *testing.T) {
	source := &fakeTrackingSource{subscribeErr: errors.New("permission denied")}
	session := NewTrackingSession(context.Background(), source)
	defer session.Close()

	err := session.SetRoute("r1")
	assert.Error(t, err)
	assert.Equal(t, "permission denied", session.State().Error)
}

func TestTrackingSessionRetriesRouteAfterSubscribeError(t *testing.T) {
	source := &fakeTrackingSource{subscribeErr: errors.New("permission denied")}
	session := NewTrackingSession(context.Background(), source)
	defer session.Close()

	assert.Error(t, session.SetRoute("r1"))

	source.setErrors(nil, nil)
	require.NoError(t, session.SetRoute("r1"))

	routes, _ := source.subscriptions()
	require.Equal(t, 1, routes)

	source.routeCallbacks[0](ctdf.Route{ID: "r1", Name: "Line 1"})
	assert.Equal(t, "Line 1", session.State().Route.Name)
}

func TestTrackingSessionRetriesVehicleAfterSubscribeError(t *testing.T) {
	source := &fakeTrackingSource{vehicleErr: errors.New("permission denied")}
	session := NewTrackingSession(context.Background(), source)
	defer session.Close()

	require.NoError(t, session.SetRoute("r1"))
	source.routeCallbacks[0](ctdf.Route{ID: "r1", Name: "Line 1"})

	_, vehicles := source.subscriptions()
	require.Equal(t, 0, vehicles)
	assert.Equal(t, "permission denied", session.State().Error)

	source.setErrors(nil, nil)
	source.routeCallbacks[0](ctdf.Route{ID: "r1", Name: "Line 1"})

	_, vehicles = source.subscriptions()
	require.Equal(t, 1, vehicles)

	source.vehicleCallbacks[0](ctdf.Vehicle{ID: "bus-1"})
	assert.Equal(t, "bus-1", session.State().Vehicle.ID)
}

func TestTrackingSessionListenersSeeStatesInOrder(t *testing.T) {
	source := &fakeTrackingSource{}

	var seen []string
	session := NewTrackingSession(context.Background(), source, WithTrackingListener(func(state TrackingState) {
		if state.Vehicle != nil {
			seen = append(seen, state.Vehicle.ID)
		}
	}))
	defer session.Close()

	require.NoError(t, session.SetRoute("r1"))
	source.routeCallbacks[0](ctdf.Route{ID: "r1"})
	require.Len(t, source.vehicleCallbacks, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source.vehicleCallbacks[0](ctdf.Vehicle{ID: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()

	require.NotEmpty(t, seen)
	assert.Equal(t, session.State().Vehicle.ID, seen[len(seen)-1])
}
