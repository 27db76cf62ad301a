// Package metrics holds the Prometheus collectors of the game server.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rocketscienceinc/tictactoe-engine/internal/entity"
)

const (
	ResultPlaced  = "placed"
	ResultIgnored = "ignored"
)

var (
	// MarksTotal counts PlaceMark calls by result and, for ignored moves, reason.
	MarksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tictactoe_marks_total",
			Help: "Mark placements",
		},
		[]string{"result", "reason"},
	)

	// GamesFinishedTotal counts games that reached a terminal outcome.
	GamesFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tictactoe_games_finished_total",
			Help: "Finished games",
		},
		[]string{"outcome", "winner"},
	)

	ResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tictactoe_resets_total",
			Help: "Game resets",
		},
	)

	SessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tictactoe_sessions_started_total",
			Help: "Started sessions",
		},
	)

	// WebSocketConnections tracks open websocket connections.
	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tictactoe_websocket_connections_active",
			Help: "Active websocket connections",
		},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tictactoe_http_requests_total",
			Help: "HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tictactoe_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		MarksTotal,
		GamesFinishedTotal,
		ResetsTotal,
		SessionsStartedTotal,
		WebSocketConnections,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	)
}

// ObserveMark records the result of a TryPlaceMark call. before is the
// outcome prior to the move so a finished game is counted once.
func ObserveMark(before entity.Outcome, after entity.State, err error) {
	if err != nil {
		MarksTotal.WithLabelValues(ResultIgnored, ignoreReason(err)).Inc()
		return
	}

	MarksTotal.WithLabelValues(ResultPlaced, "").Inc()

	if !before.IsFinished() && after.Outcome.IsFinished() {
		GamesFinishedTotal.WithLabelValues(string(after.Outcome.Status), string(after.Outcome.Winner)).Inc()
	}
}

func ignoreReason(err error) string {
	switch {
	case errors.Is(err, entity.ErrInvalidCell):
		return "invalid_cell"
	case errors.Is(err, entity.ErrCellOccupied):
		return "cell_occupied"
	case errors.Is(err, entity.ErrGameFinished):
		return "game_finished"
	default:
		return "other"
	}
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (that *StatusRecorder) WriteHeader(code int) {
	that.Status = code
	that.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the websocket upgrade needs for hijacking.
func (that *StatusRecorder) Unwrap() http.ResponseWriter {
	return that.ResponseWriter
}

func (that *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(that.ResponseWriter).Hijack()
}
