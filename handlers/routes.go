package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes binds the whole HTTP surface onto the serve event.
// Admin operations require a superuser; seat selection and payment
// completion require a validated session.
func RegisterRoutes(
	se *core.ServeEvent,
	admission *AdmissionHandler,
	seats *SeatHandler,
	sessions *SessionHandler,
	enableMetrics bool,
) {
	// session lifecycle
	se.Router.POST("/api/sessions/login", sessions.Login)
	se.Router.POST("/api/sessions/logout", sessions.Logout)

	// waiting room
	se.Router.GET("/api/events/{eventId}/queue/status", admission.GetQueueStatus)
	se.Router.POST("/api/events/{eventId}/queue/complete",
		sessions.RequireSession(admission.CompletePayment))

	// seat selection
	se.Router.GET("/api/events/{eventId}/seats", seats.ListSeats)
	se.Router.POST("/api/events/{eventId}/seats/{seatId}/select",
		sessions.RequireSession(seats.SelectSeat))

	// admin
	se.Router.POST("/api/admin/events/{eventId}/shuffle", admission.ShuffleQueue).
		Bind(apis.RequireSuperuserAuth())
	se.Router.GET("/api/admin/events/{eventId}/queue/statistics", admission.GetStatistics).
		Bind(apis.RequireSuperuserAuth())

	se.Router.GET("/api/health", func(e *core.RequestEvent) error {
		return e.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if enableMetrics {
		se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
	}
}
