package session

import "github.com/travigo/youroute/pkg/ctdf"

// TrackingState is what a tracking session exposes to its consumer
type TrackingState struct {
	Vehicle     *ctdf.Vehicle
	Route       *ctdf.Route
	NearbyStops []ctdf.Stop
	Loading     bool
	Error       string
}

type TrackingEvent interface {
	isTrackingEvent()
}

type RouteUpdated struct{ Route ctdf.Route }
type RouteCleared struct{}
type VehicleUpdated struct{ Vehicle ctdf.Vehicle }
type NearbyStopsRequested struct{}
type NearbyStopsLoaded struct{ Stops []ctdf.Stop }
type NearbyStopsFailed struct{ Message string }
type TrackingFailed struct{ Message string }

func (RouteUpdated) isTrackingEvent()         {}
func (RouteCleared) isTrackingEvent()         {}
func (VehicleUpdated) isTrackingEvent()       {}
func (NearbyStopsRequested) isTrackingEvent() {}
func (NearbyStopsLoaded) isTrackingEvent()    {}
func (NearbyStopsFailed) isTrackingEvent()    {}
func (TrackingFailed) isTrackingEvent()       {}

type RoutesState struct {
	Routes        []ctdf.Route
	Favorites     []string
	SelectedRoute *ctdf.Route
	Loading       bool
	Error         string
}

type RoutesEvent interface {
	isRoutesEvent()
}

type RoutesLoaded struct{ Routes []ctdf.Route }
type RouteChanged struct{ Route ctdf.Route }
type SelectedRouteSet struct{ Route *ctdf.Route }
type SelectedVehicleChanged struct{ Vehicle ctdf.Vehicle }
type SelectedStopChanged struct{ Stop ctdf.Stop }
type FavoriteAdded struct{ RouteID string }
type FavoriteRemoved struct{ RouteID string }
type FavoritesLoaded struct{ RouteIDs []string }
type LoadingSet struct{ Loading bool }
type ErrorSet struct{ Message string }

func (RoutesLoaded) isRoutesEvent()           {}
func (RouteChanged) isRoutesEvent()           {}
func (SelectedRouteSet) isRoutesEvent()       {}
func (SelectedVehicleChanged) isRoutesEvent() {}
func (SelectedStopChanged) isRoutesEvent()    {}
func (FavoriteAdded) isRoutesEvent()          {}
func (FavoriteRemoved) isRoutesEvent()        {}
func (FavoritesLoaded) isRoutesEvent()        {}
func (LoadingSet) isRoutesEvent()             {}
func (ErrorSet) isRoutesEvent()               {}
