package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesTotal counts applied vote transitions by requested and resulting state.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeexchange_votes_total",
		Help: "Total number of vote transitions applied",
	}, []string{"requested", "result"})

	// SavesTotal counts save toggles by resulting state.
	SavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeexchange_saves_total",
		Help: "Total number of save toggles",
	}, []string{"result"})

	// RecipesTotal counts recipe lifecycle events.
	RecipesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeexchange_recipes_total",
		Help: "Total number of recipe lifecycle events",
	}, []string{"event"})

	// AuthEventsTotal counts auth workflow outcomes.
	AuthEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeexchange_auth_events_total",
		Help: "Total number of auth workflow events by outcome",
	}, []string{"event", "outcome"})

	// UploadsTotal counts image uploads by outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeexchange_uploads_total",
		Help: "Total number of image uploads by outcome",
	}, []string{"outcome"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeexchange_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// WebSocketEventsTotal counts events fanned out to websocket clients.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recipeexchange_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})
)

// RecordAuthEvent increments the auth counter for event with a success or failure outcome.
func RecordAuthEvent(event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}
