package session

import (
	"context"
	"errors"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/travigo/youroute/pkg/ctdf"
)

var ErrSessionClosed = errors.New("session is closed")

// TrackingSource is the live data a tracking session reads from.
// *tracking.Service satisfies it.
type TrackingSource interface {
	SubscribeToRoute(ctx context.Context, routeID string, onUpdate func(ctdf.Route)) (func(), error)
	SubscribeToVehicle(ctx context.Context, vehicleID string, onUpdate func(ctdf.Vehicle)) (func(), error)
	NearbyStops(ctx context.Context, latitude float64, longitude float64) ([]ctdf.Stop, error)
}

type TrackingOption func(*TrackingSession)

// WithTrackingListener registers a callback run after state changes.
// Calls are serialized and never go back to an older state. Listeners must
// not call back into the session.
func WithTrackingListener(listener func(TrackingState)) TrackingOption {
	return func(s *TrackingSession) {
		s.listeners = append(s.listeners, listener)
	}
}

// TrackingSession follows one route at a time. It holds at most one route
// and one vehicle subscription and releases both on Close.
type TrackingSession struct {
	source    TrackingSource
	ctx       context.Context
	cancel    context.CancelFunc
	listeners []func(TrackingState)
	fetches   conc.WaitGroup
	delivery  delivery[TrackingState]

	mu       sync.Mutex
	state    TrackingState
	sequence uint64
	closed   bool

	routeID            string
	routeGeneration    uint64
	unsubscribeRoute   func()
	vehicleID          string
	vehicleGeneration  uint64
	unsubscribeVehicle func()
	originGeneration   uint64
}

func NewTrackingSession(ctx context.Context, source TrackingSource, opts ...TrackingOption) *TrackingSession {
	ctx, cancel := context.WithCancel(ctx)

	s := &TrackingSession{
		source: source,
		ctx:    ctx,
		cancel: cancel,
		state: TrackingState{
			NearbyStops: []ctdf.Stop{},
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns a deep copy of the current state
func (s *TrackingSession) State() TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyTrackingState(s.state)
}

func copyTrackingState(state TrackingState) TrackingState {
	var copied TrackingState
	if err := copier.CopyWithOption(&copied, &state, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Msg("Failed to copy tracking state")
		return state
	}

	return copied
}

type trackingUpdate struct {
	sequence uint64
	state    TrackingState
}

// applyLocked reduces event into the state and returns a copy for listeners.
// Must be called with mu held.
func (s *TrackingSession) applyLocked(event TrackingEvent) trackingUpdate {
	s.state = ReduceTracking(s.state, event)
	s.sequence++

	if len(s.listeners) == 0 {
		return trackingUpdate{sequence: s.sequence}
	}
	return trackingUpdate{sequence: s.sequence, state: copyTrackingState(s.state)}
}

func (s *TrackingSession) notify(update trackingUpdate) {
	if len(s.listeners) == 0 {
		return
	}
	s.delivery.deliver(update.sequence, update.state, s.listeners)
}

// SetRoute switches the tracked route, releasing the previous route and
// vehicle subscriptions first. An empty id stops tracking.
func (s *TrackingSession) SetRoute(routeID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if routeID == s.routeID {
		s.mu.Unlock()
		return nil
	}

	releases := []func(){s.unsubscribeRoute, s.unsubscribeVehicle}
	s.unsubscribeRoute = nil
	s.unsubscribeVehicle = nil
	s.vehicleID = ""
	s.vehicleGeneration++

	s.routeID = routeID
	s.routeGeneration++
	generation := s.routeGeneration
	update := s.applyLocked(RouteCleared{})
	s.mu.Unlock()

	release(releases...)
	s.notify(update)

	if routeID == "" {
		return nil
	}

	unsubscribe, err := s.source.SubscribeToRoute(s.ctx, routeID, func(route ctdf.Route) {
		s.onRoute(generation, route)
	})
	if err != nil {
		s.mu.Lock()
		if generation == s.routeGeneration {
			s.routeID = ""
		}
		s.mu.Unlock()

		s.fail(generation, err)
		return err
	}

	s.mu.Lock()
	if s.closed || generation != s.routeGeneration {
		s.mu.Unlock()
		unsubscribe()
		return nil
	}
	s.unsubscribeRoute = unsubscribe
	s.mu.Unlock()

	return nil
}

func (s *TrackingSession) onRoute(generation uint64, route ctdf.Route) {
	s.mu.Lock()
	if s.closed || generation != s.routeGeneration {
		s.mu.Unlock()
		return
	}

	update := s.applyLocked(RouteUpdated{Route: route})

	if route.ID == "" || route.ID == s.vehicleID {
		s.mu.Unlock()
		s.notify(update)
		return
	}

	// the vehicle feed is keyed by the id carried on the received route
	previous := s.unsubscribeVehicle
	s.unsubscribeVehicle = nil
	s.vehicleID = route.ID
	s.vehicleGeneration++
	vehicleGeneration := s.vehicleGeneration
	s.mu.Unlock()

	release(previous)
	s.notify(update)

	unsubscribe, err := s.source.SubscribeToVehicle(s.ctx, route.ID, func(vehicle ctdf.Vehicle) {
		s.onVehicle(vehicleGeneration, vehicle)
	})
	if err != nil {
		s.mu.Lock()
		if vehicleGeneration == s.vehicleGeneration {
			s.vehicleID = ""
		}
		s.mu.Unlock()

		s.fail(generation, err)
		return
	}

	s.mu.Lock()
	if s.closed || vehicleGeneration != s.vehicleGeneration {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubscribeVehicle = unsubscribe
	s.mu.Unlock()
}

func (s *TrackingSession) onVehicle(generation uint64, vehicle ctdf.Vehicle) {
	s.mu.Lock()
	if s.closed || generation != s.vehicleGeneration {
		s.mu.Unlock()
		return
	}
	update := s.applyLocked(VehicleUpdated{Vehicle: vehicle})
	s.mu.Unlock()

	s.notify(update)
}

func (s *TrackingSession) fail(routeGeneration uint64, err error) {
	log.Error().Err(err).Msg("Tracking subscription failed")

	s.mu.Lock()
	if s.closed || routeGeneration != s.routeGeneration {
		s.mu.Unlock()
		return
	}
	update := s.applyLocked(TrackingFailed{Message: err.Error()})
	s.mu.Unlock()

	s.notify(update)
}

// SetOrigin recomputes the nearby stops for a new origin in the background.
// Results for an older origin or a closed session are discarded.
func (s *TrackingSession) SetOrigin(origin ctdf.GeoPoint) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.originGeneration++
	generation := s.originGeneration
	update := s.applyLocked(NearbyStopsRequested{})
	s.mu.Unlock()

	s.notify(update)

	s.fetches.Go(func() {
		var stops []ctdf.Stop
		var err error

		recovered := panics.Try(func() {
			stops, err = s.source.NearbyStops(s.ctx, origin.Latitude, origin.Longitude)
		})
		if recovered != nil {
			err = recovered.AsError()
		}

		s.mu.Lock()
		if s.closed || generation != s.originGeneration {
			s.mu.Unlock()
			return
		}

		var update trackingUpdate
		if err != nil {
			log.Error().Err(err).Msg("Failed to fetch nearby stops")
			update = s.applyLocked(NearbyStopsFailed{Message: err.Error()})
		} else {
			update = s.applyLocked(NearbyStopsLoaded{Stops: stops})
		}
		s.mu.Unlock()

		s.notify(update)
	})

	return nil
}

// Wait blocks until background nearby stop fetches have finished
func (s *TrackingSession) Wait() {
	s.fetches.Wait()
}

// Close releases every subscription the session holds. Callbacks arriving
// afterwards are ignored.
func (s *TrackingSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	releases := []func(){s.unsubscribeRoute, s.unsubscribeVehicle}
	s.unsubscribeRoute = nil
	s.unsubscribeVehicle = nil
	s.mu.Unlock()

	release(releases...)
	s.cancel()
}

func release(unsubscribes ...func()) {
	for _, unsubscribe := range unsubscribes {
		if unsubscribe != nil {
			unsubscribe()
		}
	}
}
