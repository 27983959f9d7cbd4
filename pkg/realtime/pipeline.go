package realtime

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/livefeed"
	"github.com/travigo/youroute/pkg/session"
)

// NewClient builds a live feed client from config with its collectors on reg
func NewClient(cfg config.LiveFeedConfig, reg prometheus.Registerer, opts ...livefeed.Option) *livefeed.Client {
	opts = append([]livefeed.Option{livefeed.WithMetrics(livefeed.NewMetrics(reg))}, opts...)

	return livefeed.NewClient(livefeed.Config{
		URL:         cfg.URL,
		BaseDelay:   cfg.BaseDelay,
		MaxAttempts: cfg.MaxAttempts,
		DialTimeout: cfg.DialTimeout,
	}, opts...)
}

// Sink is a consumer that attaches itself to the feed and can be detached
type Sink interface {
	Bind(feed livefeed.Subscriber)
}

// RouteCatalog publishes the full route list on every change.
// *tracking.Service satisfies it.
type RouteCatalog interface {
	SubscribeToRoutes(ctx context.Context, onUpdate func([]ctdf.Route)) (func(), error)
}

// Pipeline keeps the routes projection of the feed together with any
// extra sinks bound to it
type Pipeline struct {
	Routes *session.RoutesStore

	binding  *session.FeedBinding
	detaches []func()
}

func NewPipeline(feed livefeed.Subscriber, sinks ...Sink) *Pipeline {
	p := &Pipeline{
		Routes: session.NewRoutesStore(),
	}

	p.detaches = append(p.detaches, p.Routes.OnChange(func(state session.RoutesState) {
		event := log.Debug().Int("routes", len(state.Routes))
		if state.SelectedRoute != nil {
			event = event.Str("selected", state.SelectedRoute.ID)
		}
		event.Msg("Routes state changed")
	}))

	p.binding = session.BindFeed(feed, p.Routes)

	for _, sink := range sinks {
		sink.Bind(feed)
	}

	return p
}

// FollowRoutes loads the route list from catalog into the projection and
// reloads it whenever the catalog changes
func (p *Pipeline) FollowRoutes(ctx context.Context, catalog RouteCatalog) error {
	unsubscribe, err := catalog.SubscribeToRoutes(ctx, func(routes []ctdf.Route) {
		p.Routes.Dispatch(session.RoutesLoaded{Routes: routes})
	})
	if err != nil {
		return err
	}

	p.detaches = append(p.detaches, unsubscribe)

	return nil
}

func (p *Pipeline) Close() {
	p.binding.Close()

	for _, detach := range p.detaches {
		detach()
	}
	p.detaches = nil
}
