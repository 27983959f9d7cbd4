package tracking

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/datastore"
)

// GetRoutes returns every route ordered by id
func (s *Service) GetRoutes(ctx context.Context) ([]ctdf.Route, error) {
	snapshot, err := s.store.Get(ctx, RoutesPath)
	if err != nil {
		return nil, &QueryError{Path: RoutesPath, Err: err}
	}

	routes, err := decodeRoutes(snapshot)
	if err != nil {
		return nil, &QueryError{Path: RoutesPath, Err: err}
	}

	return routes, nil
}

// SubscribeToRoutes calls onUpdate with the full route list now and after
// every change under routes
func (s *Service) SubscribeToRoutes(ctx context.Context, onUpdate func([]ctdf.Route)) (func(), error) {
	return s.store.Subscribe(ctx, RoutesPath, func(snapshot datastore.Snapshot) {
		routes, err := decodeRoutes(snapshot)
		if err != nil {
			log.Error().Err(err).Str("path", RoutesPath).Msg("Failed to decode routes")
			return
		}

		onUpdate(routes)
	})
}

func decodeRoutes(snapshot datastore.Snapshot) ([]ctdf.Route, error) {
	if !snapshot.Exists() {
		return []ctdf.Route{}, nil
	}

	var routesByID map[string]ctdf.Route
	if err := snapshot.Decode(&routesByID); err != nil {
		return nil, err
	}

	routes := make([]ctdf.Route, 0, len(routesByID))
	for id, route := range routesByID {
		if route.ID == "" {
			route.ID = id
		}
		routes = append(routes, route)
	}

	sort.Slice(routes, func(i, j int) bool {
		return routes[i].ID < routes[j].ID
	})

	return routes, nil
}

func (s *Service) GetRoute(ctx context.Context, routeID string) (*ctdf.Route, error) {
	if routeID == "" {
		return nil, fmt.Errorf("%w: empty route id", ErrInvalidArgument)
	}

	path := RoutePath(routeID)
	snapshot, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, &QueryError{Path: path, Err: err}
	}
	if !snapshot.Exists() {
		return nil, ErrRouteNotFound
	}

	var route ctdf.Route
	if err := snapshot.Decode(&route); err != nil {
		return nil, &QueryError{Path: path, Err: err}
	}
	if route.ID == "" {
		route.ID = routeID
	}

	return &route, nil
}

// PutRoute stores a route under its id
func (s *Service) PutRoute(ctx context.Context, route ctdf.Route) error {
	if route.ID == "" {
		return fmt.Errorf("%w: empty route id", ErrInvalidArgument)
	}

	return s.store.Set(ctx, RoutePath(route.ID), route)
}
