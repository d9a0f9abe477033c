package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts what the moderator sees and does.
type Metrics struct {
	MessagesSeen        prometheus.Counter
	LinksDetected       prometheus.Counter
	MessagesDeleted     prometheus.Counter
	DeleteFailures      prometheus.Counter
	ParticipantsRemoved prometheus.Counter
	RemovalFailures     prometheus.Counter
	AdminFetches        prometheus.Counter
	AdminFetchFailures  prometheus.Counter
	IntrosSent          prometheus.Counter
	IntroFailures       prometheus.Counter
}

// NewMetrics registers all moderation metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_group_messages_total",
			Help: "Live group messages with content from other participants",
		}),
		LinksDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_links_detected_total",
			Help: "Group messages containing a link",
		}),
		MessagesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_messages_deleted_total",
			Help: "Messages deleted for containing a link",
		}),
		DeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_message_delete_failures_total",
			Help: "Failed message delete calls",
		}),
		ParticipantsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_participants_removed_total",
			Help: "Participants removed after reaching the violation limit",
		}),
		RemovalFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_participant_removal_failures_total",
			Help: "Failed participant removal calls",
		}),
		AdminFetches: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_admin_fetches_total",
			Help: "Group metadata fetches made to refresh the admin cache",
		}),
		AdminFetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_admin_fetch_failures_total",
			Help: "Failed group metadata fetches",
		}),
		IntrosSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_intros_sent_total",
			Help: "Introduction messages sent after being promoted",
		}),
		IntroFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "linkguard_intro_failures_total",
			Help: "Failed introduction message sends",
		}),
	}
}
