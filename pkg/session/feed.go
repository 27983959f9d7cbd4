package session

import (
	"sync"

	"github.com/travigo/youroute/pkg/livefeed"
)

// FeedBinding projects live feed messages into a RoutesStore
type FeedBinding struct {
	unsubscribes []func()
	once         sync.Once
}

func BindFeed(feed livefeed.Subscriber, store *RoutesStore) *FeedBinding {
	binding := &FeedBinding{}

	binding.unsubscribes = []func(){
		feed.Subscribe(livefeed.TopicLocationUpdate, func(message livefeed.Message) error {
			vehicle, err := message.Vehicle()
			if err != nil {
				return err
			}
			store.Dispatch(SelectedVehicleChanged{Vehicle: vehicle})
			return nil
		}),
		feed.Subscribe(livefeed.TopicRouteUpdate, func(message livefeed.Message) error {
			route, err := message.Route()
			if err != nil {
				return err
			}
			store.Dispatch(RouteChanged{Route: route})
			return nil
		}),
		feed.Subscribe(livefeed.TopicStopUpdate, func(message livefeed.Message) error {
			stop, err := message.Stop()
			if err != nil {
				return err
			}
			store.Dispatch(SelectedStopChanged{Stop: stop})
			return nil
		}),
	}

	return binding
}

// Close removes every handler the binding registered
func (b *FeedBinding) Close() {
	b.once.Do(func() {
		release(b.unsubscribes...)
	})
}
