package tracking

import (
	"context"
	"fmt"
	"sort"
)

// GetFavoriteRoutes returns the ids of the routes the user marked as favorite
func (s *Service) GetFavoriteRoutes(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}

	path := FavoritesPath(userID)
	snapshot, err := s.store.Get(ctx, path)
	if err != nil {
		return nil, &QueryError{Path: path, Err: err}
	}

	favorites := []string{}
	if !snapshot.Exists() {
		return favorites, nil
	}

	var markers map[string]bool
	if err := snapshot.Decode(&markers); err != nil {
		return nil, &QueryError{Path: path, Err: err}
	}

	for routeID, marked := range markers {
		if marked {
			favorites = append(favorites, routeID)
		}
	}
	sort.Strings(favorites)

	return favorites, nil
}

func (s *Service) AddFavoriteRoute(ctx context.Context, userID string, routeID string) error {
	if userID == "" || routeID == "" {
		return fmt.Errorf("%w: user and route are required", ErrInvalidArgument)
	}

	return s.store.Set(ctx, FavoritePath(userID, routeID), true)
}

func (s *Service) RemoveFavoriteRoute(ctx context.Context, userID string, routeID string) error {
	if userID == "" || routeID == "" {
		return fmt.Errorf("%w: user and route are required", ErrInvalidArgument)
	}

	return s.store.Set(ctx, FavoritePath(userID, routeID), nil)
}

func (s *Service) SetPushToken(ctx context.Context, userID string, token string) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}

	var value interface{}
	if token != "" {
		value = token
	}

	return s.store.Set(ctx, PushTokenPath(userID), value)
}

// PushToken returns the user's push token or an empty string if none is registered
func (s *Service) PushToken(ctx context.Context, userID string) (string, error) {
	path := PushTokenPath(userID)
	snapshot, err := s.store.Get(ctx, path)
	if err != nil {
		return "", &QueryError{Path: path, Err: err}
	}
	if !snapshot.Exists() {
		return "", nil
	}

	var token string
	if err := snapshot.Decode(&token); err != nil {
		return "", &QueryError{Path: path, Err: err}
	}

	return token, nil
}

type userRecord struct {
	Favorites map[string]bool `json:"favorites"`
}

// UsersFavoriting returns the ids of every user with routeID in their favorites
func (s *Service) UsersFavoriting(ctx context.Context, routeID string) ([]string, error) {
	snapshot, err := s.store.Get(ctx, UsersPath)
	if err != nil {
		return nil, &QueryError{Path: UsersPath, Err: err}
	}

	userIDs := []string{}
	if !snapshot.Exists() {
		return userIDs, nil
	}

	var users map[string]userRecord
	if err := snapshot.Decode(&users); err != nil {
		return nil, &QueryError{Path: UsersPath, Err: err}
	}

	for userID, user := range users {
		if user.Favorites[routeID] {
			userIDs = append(userIDs, userID)
		}
	}
	sort.Strings(userIDs)

	return userIDs, nil
}
