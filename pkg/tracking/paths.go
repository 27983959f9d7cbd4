package tracking

import "github.com/travigo/youroute/pkg/datastore"

const (
	StopsPath            = "stops"
	RoutesPath           = "routes"
	VehicleLocationsPath = "vehicleLocations"
	UsersPath            = "users"
)

func RoutePath(routeID string) string {
	return datastore.JoinPath(RoutesPath, routeID)
}

func VehicleLocationPath(vehicleID string) string {
	return datastore.JoinPath(VehicleLocationsPath, vehicleID)
}

func FavoritesPath(userID string) string {
	return datastore.JoinPath(UsersPath, userID, "favorites")
}

func FavoritePath(userID string, routeID string) string {
	return datastore.JoinPath(UsersPath, userID, "favorites", routeID)
}

func PushTokenPath(userID string) string {
	return datastore.JoinPath(UsersPath, userID, "pushToken")
}
