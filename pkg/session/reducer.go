package session

import (
	"github.com/travigo/youroute/pkg/ctdf"
	"golang.org/x/exp/slices"
)

// ReduceTracking returns the state after event. The input state is never
// modified; slices that change are copied first.
func ReduceTracking(state TrackingState, event TrackingEvent) TrackingState {
	switch e := event.(type) {
	case RouteUpdated:
		route := e.Route
		state.Route = &route
	case RouteCleared:
		state.Route = nil
		state.Vehicle = nil
	case VehicleUpdated:
		vehicle := e.Vehicle
		state.Vehicle = &vehicle
	case NearbyStopsRequested:
		state.Loading = true
		state.Error = ""
	case NearbyStopsLoaded:
		state.NearbyStops = slices.Clone(e.Stops)
		if state.NearbyStops == nil {
			state.NearbyStops = []ctdf.Stop{}
		}
		state.Loading = false
	case NearbyStopsFailed:
		state.Error = e.Message
		if state.Error == "" {
			state.Error = "Failed to fetch nearby stops"
		}
		state.Loading = false
	case TrackingFailed:
		state.Error = e.Message
	}

	return state
}

func ReduceRoutes(state RoutesState, event RoutesEvent) RoutesState {
	switch e := event.(type) {
	case RoutesLoaded:
		state.Routes = slices.Clone(e.Routes)
	case RouteChanged:
		index := slices.IndexFunc(state.Routes, func(r ctdf.Route) bool { return r.ID == e.Route.ID })
		if index >= 0 {
			state.Routes = slices.Clone(state.Routes)
			state.Routes[index] = e.Route
		}
		if state.SelectedRoute != nil && state.SelectedRoute.ID == e.Route.ID {
			route := e.Route
			if route.VehicleLocation == nil {
				route.VehicleLocation = state.SelectedRoute.VehicleLocation
			}
			state.SelectedRoute = &route
		}
	case SelectedRouteSet:
		if e.Route == nil {
			state.SelectedRoute = nil
		} else {
			route := *e.Route
			state.SelectedRoute = &route
		}
	case SelectedVehicleChanged:
		if state.SelectedRoute != nil {
			route := *state.SelectedRoute
			vehicle := e.Vehicle
			route.VehicleLocation = &vehicle
			state.SelectedRoute = &route
		}
	case SelectedStopChanged:
		if state.SelectedRoute != nil {
			route := *state.SelectedRoute
			index := slices.IndexFunc(route.Stops, func(s ctdf.Stop) bool { return s.ID == e.Stop.ID })
			if index >= 0 {
				route.Stops = slices.Clone(route.Stops)
				route.Stops[index] = e.Stop
			}
			state.SelectedRoute = &route
		}
	case FavoriteAdded:
		if !slices.Contains(state.Favorites, e.RouteID) {
			state.Favorites = append(slices.Clone(state.Favorites), e.RouteID)
		}
	case FavoriteRemoved:
		favorites := make([]string, 0, len(state.Favorites))
		for _, id := range state.Favorites {
			if id != e.RouteID {
				favorites = append(favorites, id)
			}
		}
		state.Favorites = favorites
	case FavoritesLoaded:
		state.Favorites = slices.Clone(e.RouteIDs)
	case LoadingSet:
		state.Loading = e.Loading
	case ErrorSet:
		state.Error = e.Message
	}

	return state
}
