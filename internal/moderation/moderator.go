package moderation

import (
	"context"
	"sync"
	"time"

	"github.com/ailab/linkguard/internal/audit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxViolations is the violation count at which a sender is removed.
const DefaultMaxViolations = 2

// Options configures a Moderator.
type Options struct {
	// Violation count at which the sender is removed from the group.
	MaxViolations int
	// How violation counts are keyed.
	Scope Scope
	// Number of groups kept in the admin cache.
	AdminCacheSize int
	// Lifetime of a cached admin set, zero for no expiry.
	AdminCacheTTL time.Duration
	// Text sent to a group right after the bot is promoted there.
	IntroMessage string
	// Suffix identifying group conversations.
	GroupSuffix string
}

// Moderator deletes links posted by non-admins and removes repeat offenders.
// Handlers are expected to be called one at a time in delivery order.
type Moderator struct {
	messenger     Messenger
	recorder      Recorder
	admins        *AdminCache
	violations    *ViolationTracker
	metrics       *Metrics
	tracer        trace.Tracer
	logger        *zap.Logger
	intro         string
	groupSuffix   string
	maxViolations int
	self          map[string]struct{}
	selfMu        sync.RWMutex
}

var _ EventConsumer = (*Moderator)(nil)

// NewModerator creates a moderator acting through messenger.
func NewModerator(messenger Messenger, recorder Recorder, metrics *Metrics, opts Options, logger *zap.Logger) *Moderator {
	if opts.MaxViolations <= 0 {
		opts.MaxViolations = DefaultMaxViolations
	}

	if opts.GroupSuffix == "" {
		opts.GroupSuffix = DefaultGroupSuffix
	}

	if recorder == nil {
		recorder = audit.NopRecorder{}
	}

	return &Moderator{
		messenger:     messenger,
		recorder:      recorder,
		admins:        NewAdminCache(messenger, opts.AdminCacheSize, opts.AdminCacheTTL, metrics, logger),
		violations:    NewViolationTracker(opts.Scope),
		metrics:       metrics,
		tracer:        otel.Tracer("linkguard/moderation"),
		logger:        logger.Named("moderation"),
		intro:         opts.IntroMessage,
		groupSuffix:   opts.GroupSuffix,
		maxViolations: opts.MaxViolations,
		self:          make(map[string]struct{}),
	}
}

// SetSelf replaces the identities the bot is known by. Empty IDs are skipped.
func (m *Moderator) SetSelf(ids ...string) {
	self := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if id != "" {
			self[id] = struct{}{}
		}
	}

	m.selfMu.Lock()
	m.self = self
	m.selfMu.Unlock()
}

// IsSelf reports whether id is one of the bot's own identities.
func (m *Moderator) IsSelf(id string) bool {
	m.selfMu.RLock()
	defer m.selfMu.RUnlock()

	_, ok := m.self[id]

	return ok
}

// HandleMessage moderates a single message and reports what was done.
func (m *Moderator) HandleMessage(ctx context.Context, msg *Message) Outcome {
	ctx, span := m.tracer.Start(ctx, "moderation.HandleMessage",
		trace.WithAttributes(attribute.String("group.id", msg.Key.GroupID)))
	defer span.End()

	outcome := m.moderate(ctx, msg)
	span.SetAttributes(attribute.String("moderation.outcome", outcome.String()))

	return outcome
}

func (m *Moderator) moderate(ctx context.Context, msg *Message) Outcome {
	groupID := msg.Key.GroupID
	senderID := msg.Key.SenderID

	if msg.Delivery != DeliveryNotify || !msg.HasContent || msg.FromSelf || m.IsSelf(senderID) {
		return OutcomeIgnored
	}

	if !IsGroupID(groupID, m.groupSuffix) {
		return OutcomeIgnored
	}

	m.metrics.MessagesSeen.Inc()

	if !ContainsLink(msg.Text) {
		return OutcomeIgnored
	}

	m.metrics.LinksDetected.Inc()

	if m.admins.IsAdmin(ctx, groupID, senderID) {
		m.logger.Debug("Ignoring link from group admin",
			zap.String("groupID", groupID),
			zap.String("senderID", senderID))

		return OutcomeIgnored
	}

	if err := m.messenger.DeleteMessage(ctx, msg.Key); err != nil {
		m.metrics.DeleteFailures.Inc()
		m.logger.Warn("Failed to delete message with link",
			zap.String("groupID", groupID),
			zap.String("senderID", senderID),
			zap.String("messageID", msg.Key.ID),
			zap.Error(err))

		entry := audit.NewEntry(audit.KindDeleteFailed, groupID, senderID).WithError(err)
		entry.MessageID = msg.Key.ID
		m.record(ctx, entry)

		return OutcomeDeleteFailed
	}

	m.metrics.MessagesDeleted.Inc()

	count := m.violations.Record(groupID, senderID)

	m.logger.Info("Deleted message with link",
		zap.String("groupID", groupID),
		zap.String("senderID", senderID),
		zap.String("messageID", msg.Key.ID),
		zap.Int("count", count),
		zap.Int("maxViolations", m.maxViolations))

	entry := audit.NewEntry(audit.KindMessageDeleted, groupID, senderID)
	entry.MessageID = msg.Key.ID
	entry.Count = count
	m.record(ctx, entry)

	if count < m.maxViolations {
		return OutcomeViolationDeleted
	}

	return m.remove(ctx, groupID, senderID, count)
}

// remove takes the sender out of the group. On failure the count stays so
// the next violation tries again.
func (m *Moderator) remove(ctx context.Context, groupID, senderID string, count int) Outcome {
	if err := m.messenger.RemoveParticipant(ctx, groupID, senderID); err != nil {
		m.metrics.RemovalFailures.Inc()
		m.logger.Error("Failed to remove participant",
			zap.String("groupID", groupID),
			zap.String("senderID", senderID),
			zap.Int("count", count),
			zap.Error(err))

		entry := audit.NewEntry(audit.KindRemovalFailed, groupID, senderID).WithError(err)
		entry.Count = count
		m.record(ctx, entry)

		return OutcomeViolationDeleted
	}

	m.violations.Reset(groupID, senderID)
	m.metrics.ParticipantsRemoved.Inc()

	m.logger.Info("Removed participant after repeated links",
		zap.String("groupID", groupID),
		zap.String("senderID", senderID),
		zap.Int("count", count))

	entry := audit.NewEntry(audit.KindParticipantRemoved, groupID, senderID)
	entry.Count = count
	m.record(ctx, entry)

	return OutcomeViolationDeletedAndRemoved
}

// HandleMembershipChange drops the group's cached admins and greets the
// group when the bot itself was promoted.
func (m *Moderator) HandleMembershipChange(ctx context.Context, change *MembershipChange) {
	m.admins.Invalidate(change.GroupID)

	if change.Action != ActionPromote || !m.containsSelf(change.Participants) {
		return
	}

	if m.intro == "" {
		m.logger.Debug("Promoted in group, no intro configured", zap.String("groupID", change.GroupID))
		return
	}

	if err := m.messenger.SendText(ctx, change.GroupID, m.intro); err != nil {
		m.metrics.IntroFailures.Inc()
		m.logger.Warn("Failed to send intro message",
			zap.String("groupID", change.GroupID),
			zap.Error(err))
		m.record(ctx, audit.NewEntry(audit.KindIntroFailed, change.GroupID, "").WithError(err))

		return
	}

	m.metrics.IntrosSent.Inc()
	m.logger.Info("Bot promoted in group, sent intro message", zap.String("groupID", change.GroupID))
	m.record(ctx, audit.NewEntry(audit.KindIntroSent, change.GroupID, ""))
}

func (m *Moderator) containsSelf(ids []string) bool {
	for _, id := range ids {
		if m.IsSelf(id) {
			return true
		}
	}

	return false
}

// record writes an audit entry; failures only get logged.
func (m *Moderator) record(ctx context.Context, entry *audit.Entry) {
	if err := m.recorder.Record(ctx, entry); err != nil {
		m.logger.Warn("Failed to record audit entry",
			zap.String("kind", string(entry.Kind)),
			zap.String("groupID", entry.GroupID),
			zap.Error(err))
	}
}
