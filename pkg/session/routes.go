package session

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
	"golang.org/x/exp/slices"
)

// RoutesStore holds the shared routes state. All changes go through Dispatch.
// Listener calls are serialized and never go back to an older state.
type RoutesStore struct {
	delivery delivery[RoutesState]

	mu        sync.Mutex
	state     RoutesState
	sequence  uint64
	nextID    uint64
	listeners map[uint64]func(RoutesState)
}

func NewRoutesStore() *RoutesStore {
	return &RoutesStore{
		state: RoutesState{
			Routes:    []ctdf.Route{},
			Favorites: []string{},
		},
		listeners: map[uint64]func(RoutesState){},
	}
}

func (s *RoutesStore) Dispatch(event RoutesEvent) {
	s.mu.Lock()
	s.state = ReduceRoutes(s.state, event)
	s.sequence++
	sequence := s.sequence

	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}

	state := copyRoutesState(s.state)
	listeners := make([]func(RoutesState), 0, len(s.listeners))
	for _, id := range s.listenerIDsLocked() {
		listeners = append(listeners, s.listeners[id])
	}
	s.mu.Unlock()

	s.delivery.deliver(sequence, state, listeners)
}

func (s *RoutesStore) listenerIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// State returns a deep copy of the current state
func (s *RoutesStore) State() RoutesState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyRoutesState(s.state)
}

// OnChange registers listener for every dispatched event
func (s *RoutesStore) OnChange(listener func(RoutesState)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func copyRoutesState(state RoutesState) RoutesState {
	var copied RoutesState
	if err := copier.CopyWithOption(&copied, &state, copier.Option{DeepCopy: true}); err != nil {
		log.Error().Err(err).Msg("Failed to copy routes state")
		return state
	}

	return copied
}

// RoutesSource is the backing data the routes controller works against.
// *tracking.Service satisfies it.
type RoutesSource interface {
	GetRoutes(ctx context.Context) ([]ctdf.Route, error)
	GetFavoriteRoutes(ctx context.Context, userID string) ([]string, error)
	AddFavoriteRoute(ctx context.Context, userID string, routeID string) error
	RemoveFavoriteRoute(ctx context.Context, userID string, routeID string) error
	SubscribeToVehicle(ctx context.Context, vehicleID string, onUpdate func(ctdf.Vehicle)) (func(), error)
}

// RoutesController loads routes and favorites for one user into a RoutesStore.
// Failures are recorded on the store's Error field as well as returned.
type RoutesController struct {
	source RoutesSource
	store  *RoutesStore
	userID string
}

func NewRoutesController(source RoutesSource, store *RoutesStore, userID string) *RoutesController {
	return &RoutesController{
		source: source,
		store:  store,
		userID: userID,
	}
}

func (c *RoutesController) FetchRoutes(ctx context.Context) error {
	c.store.Dispatch(LoadingSet{Loading: true})
	c.store.Dispatch(ErrorSet{})
	defer c.store.Dispatch(LoadingSet{Loading: false})

	routes, err := c.source.GetRoutes(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch routes")
		c.store.Dispatch(ErrorSet{Message: err.Error()})
		return err
	}

	c.store.Dispatch(RoutesLoaded{Routes: routes})

	return nil
}

func (c *RoutesController) LoadFavorites(ctx context.Context) error {
	if c.userID == "" {
		return nil
	}

	favorites, err := c.source.GetFavoriteRoutes(ctx, c.userID)
	if err != nil {
		c.store.Dispatch(ErrorSet{Message: err.Error()})
		return err
	}

	c.store.Dispatch(FavoritesLoaded{RouteIDs: favorites})

	return nil
}

// ToggleFavorite adds or removes routeID from the user's favorites. Without
// a signed in user it does nothing.
func (c *RoutesController) ToggleFavorite(ctx context.Context, routeID string) error {
	if c.userID == "" {
		return nil
	}

	if slices.Contains(c.store.State().Favorites, routeID) {
		if err := c.source.RemoveFavoriteRoute(ctx, c.userID, routeID); err != nil {
			c.store.Dispatch(ErrorSet{Message: err.Error()})
			return err
		}
		c.store.Dispatch(FavoriteRemoved{RouteID: routeID})
		return nil
	}

	if err := c.source.AddFavoriteRoute(ctx, c.userID, routeID); err != nil {
		c.store.Dispatch(ErrorSet{Message: err.Error()})
		return err
	}
	c.store.Dispatch(FavoriteAdded{RouteID: routeID})

	return nil
}

func (c *RoutesController) SelectRoute(route *ctdf.Route) {
	c.store.Dispatch(SelectedRouteSet{Route: route})
}

// WatchSelectedVehicle feeds the vehicle position published under
// vehicleID into the selected route until the returned function is called
func (c *RoutesController) WatchSelectedVehicle(ctx context.Context, vehicleID string) (func(), error) {
	unsubscribe, err := c.source.SubscribeToVehicle(ctx, vehicleID, func(vehicle ctdf.Vehicle) {
		c.store.Dispatch(SelectedVehicleChanged{Vehicle: vehicle})
	})
	if err != nil {
		c.store.Dispatch(ErrorSet{Message: err.Error()})
		return nil, err
	}

	return unsubscribe, nil
}
