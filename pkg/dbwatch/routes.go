package dbwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
)

// RouteSource is satisfied by *tracking.Service
type RouteSource interface {
	SubscribeToRoutes(ctx context.Context, onUpdate func([]ctdf.Route)) (func(), error)
	UsersFavoriting(ctx context.Context, routeID string) ([]string, error)
}

// RouteStatusWatch queues a notification for every user who favorited a
// route whenever that route's status changes
type RouteStatusWatch struct {
	source     RouteSource
	EventQueue rmq.Queue

	mu       sync.Mutex
	statuses map[string]ctdf.RouteStatus
	primed   bool
}

func NewRouteStatusWatch(source RouteSource, eventQueue rmq.Queue) *RouteStatusWatch {
	return &RouteStatusWatch{
		source:     source,
		EventQueue: eventQueue,
		statuses:   map[string]ctdf.RouteStatus{},
	}
}

// Run watches until ctx is cancelled. The first snapshot only records the
// current statuses.
func (w *RouteStatusWatch) Run(ctx context.Context) error {
	log.Info().Msg("Starting dbwatch on routes")

	unsubscribe, err := w.source.SubscribeToRoutes(ctx, func(routes []ctdf.Route) {
		w.handleRoutes(ctx, routes)
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	<-ctx.Done()

	return nil
}

func (w *RouteStatusWatch) handleRoutes(ctx context.Context, routes []ctdf.Route) {
	w.mu.Lock()
	var changed []ctdf.Route
	for _, route := range routes {
		previous, known := w.statuses[route.ID]
		if w.primed && known && previous != route.Status {
			changed = append(changed, route)
		}
		w.statuses[route.ID] = route.Status
	}
	w.primed = true
	w.mu.Unlock()

	for _, route := range changed {
		w.notify(ctx, route)
	}
}

func (w *RouteStatusWatch) notify(ctx context.Context, route ctdf.Route) {
	userIDs, err := w.source.UsersFavoriting(ctx, route.ID)
	if err != nil {
		log.Error().Err(err).Str("route", route.ID).Msg("Failed to find users for route")
		return
	}

	for _, userID := range userIDs {
		notification := StatusNotification(userID, route)

		payload, err := json.Marshal(notification)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode notification")
			continue
		}

		if err := w.EventQueue.PublishBytes(payload); err != nil {
			log.Error().Err(err).Str("user", userID).Msg("Failed to queue notification")
		}
	}

	log.Info().
		Str("route", route.ID).
		Str("status", string(route.Status)).
		Int("users", len(userIDs)).
		Msg("Route status changed")
}

func StatusNotification(userID string, route ctdf.Route) ctdf.Notification {
	notification := ctdf.Notification{
		TargetUser: userID,
		Title:      route.Name,
	}

	switch route.Status {
	case ctdf.RouteStatusSuspended:
		notification.Message = fmt.Sprintf("%s is suspended", route.Name)
	case ctdf.RouteStatusModified:
		notification.Message = fmt.Sprintf("%s is running a modified service", route.Name)
	case ctdf.RouteStatusActive:
		notification.Message = fmt.Sprintf("%s is running normally again", route.Name)
	default:
		notification.Message = fmt.Sprintf("%s status changed to %s", route.Name, route.Status)
	}

	if notification.Title == "" {
		notification.Title = route.ID
	}

	return notification
}
