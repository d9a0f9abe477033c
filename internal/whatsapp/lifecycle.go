package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ailab/linkguard/internal/moderation"
	"github.com/ailab/linkguard/internal/setup/config"
	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

var (
	// ErrLoggedOut is returned by Run when the session was logged out remotely.
	ErrLoggedOut = errors.New("session logged out")
	// ErrNotPaired is returned by Logout when no device is paired.
	ErrNotPaired = errors.New("no paired device")
)

// Consumer is the moderation side of the bot.
type Consumer interface {
	moderation.EventConsumer
	SetSelf(ids ...string)
}

// Bot connects the protocol client to the moderation consumer and keeps the
// connection alive until the process stops or the session is logged out.
type Bot struct {
	client       *Client
	consumer     Consumer
	dispatcher   *Dispatcher
	policy       backoff.BackOff
	qrOut        io.Writer
	logger       *zap.Logger
	disconnected chan struct{}
	loggedOut    chan struct{}
}

// NewBot creates a bot serving consumer over client. Pairing codes are
// written to qrOut.
func NewBot(client *Client, consumer Consumer, cfg *config.Reconnect, qrOut io.Writer, logger *zap.Logger) *Bot {
	b := &Bot{
		client:       client,
		consumer:     consumer,
		policy:       newBackOff(cfg),
		qrOut:        qrOut,
		logger:       logger.Named("whatsapp"),
		disconnected: make(chan struct{}, 1),
		loggedOut:    make(chan struct{}, 1),
	}
	b.dispatcher = NewDispatcher(DefaultQueueSize, b.handle, logger)

	return b
}

// Run connects, pairing first when needed, and serves events until ctx is
// done. Dropped connections are reopened per the reconnect policy. Returns
// ErrLoggedOut after a remote logout, with the stored session deleted.
func (b *Bot) Run(ctx context.Context) error {
	var wg conc.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Go(func() { b.dispatcher.Run(ctx) })

	handlerID := b.client.conn.AddEventHandler(b.onEvent)
	defer b.client.conn.RemoveEventHandler(handlerID)

	if err := b.connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return err
	}
	defer b.client.conn.Disconnect()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Shutting down connection")
			return nil
		case <-b.loggedOut:
			b.logger.Warn("Session logged out, pair again to resume")
			b.deleteSession(ctx)

			return ErrLoggedOut
		case <-b.disconnected:
			if b.pendingLogout() {
				signal(b.loggedOut)
				continue
			}

			if err := reconnect(ctx, b.client.conn, b.policy, b.logger); err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return fmt.Errorf("failed to reconnect: %w", err)
			}
		}
	}
}

// Logout connects with the stored session, logs the device out and deletes
// its credentials.
func (b *Bot) Logout(ctx context.Context) error {
	if !b.client.Paired() {
		return ErrNotPaired
	}

	if err := b.client.conn.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer b.client.conn.Disconnect()

	if err := b.client.conn.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	b.logger.Info("Logged out and deleted session")

	return nil
}

// connect opens the first connection, showing pairing codes for a new device.
func (b *Bot) connect(ctx context.Context) error {
	if b.client.Paired() {
		if err := b.client.conn.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}

		return nil
	}

	b.logger.Info("No stored session, waiting for QR pairing")

	qrChan, err := b.client.conn.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get QR channel: %w", err)
	}

	if err := b.client.conn.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := consumeQR(ctx, qrChan, b.qrOut, b.logger); err != nil {
		b.client.conn.Disconnect()
		return err
	}

	return nil
}

// onEvent runs on the protocol client's receive loop. Moderation events are
// queued, connection state changes are signalled to Run.
func (b *Bot) onEvent(evt any) {
	switch v := evt.(type) {
	case *events.Message, *events.GroupInfo:
		b.dispatcher.Enqueue(evt)
	case *events.Connected:
		ids := b.client.SelfIDs()
		b.consumer.SetSelf(ids...)
		b.logger.Info("Bot connected", zap.Strings("selfIDs", ids))
	case *events.Disconnected:
		b.logger.Warn("Connection closed, reconnecting")
		signal(b.disconnected)
	case *events.StreamReplaced:
		b.logger.Warn("Stream replaced by another connection, reconnecting")
		signal(b.disconnected)
	case *events.ConnectFailure:
		b.logger.Error("Connection rejected",
			zap.Int("reason", int(v.Reason)),
			zap.String("message", v.Message))
		signal(b.disconnected)
	case *events.TemporaryBan:
		b.logger.Error("Account temporarily banned", zap.String("ban", v.String()))
	case *events.KeepAliveTimeout:
		b.logger.Warn("Keepalive timed out", zap.Int("errorCount", v.ErrorCount))
	case *events.LoggedOut:
		b.logger.Warn("Logged out by server",
			zap.Bool("onConnect", v.OnConnect),
			zap.Int("reason", int(v.Reason)))
		signal(b.loggedOut)
	case *events.HistorySync:
		b.logger.Debug("Ignoring history sync")
	}
}

// handle runs on the dispatcher goroutine.
func (b *Bot) handle(ctx context.Context, evt any) {
	switch v := evt.(type) {
	case *events.Message:
		b.consumer.HandleMessage(ctx, translateMessage(v))
	case *events.GroupInfo:
		for _, change := range translateGroupInfo(v) {
			b.consumer.HandleMembershipChange(ctx, change)
		}
	}
}

// pendingLogout reports whether a logout arrived along with the disconnect.
func (b *Bot) pendingLogout() bool {
	select {
	case <-b.loggedOut:
		return true
	default:
		return false
	}
}

// deleteSession removes stored credentials left after a remote logout.
func (b *Bot) deleteSession(ctx context.Context) {
	if !b.client.Paired() {
		return
	}

	if err := b.client.session.Delete(ctx); err != nil {
		b.logger.Error("Failed to delete session", zap.Error(err))
	}
}

// signal wakes the receiver of ch without blocking when a wakeup is pending.
func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
