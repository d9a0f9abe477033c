package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// DefaultStream is the Redis stream that receives moderation entries.
	DefaultStream = "linkguard:audit"

	// DefaultMaxLen caps the stream at roughly this many entries.
	DefaultMaxLen = 10000

	entryField = "entry"
)

// RedisRecorder appends moderation entries to a capped Redis stream.
type RedisRecorder struct {
	client rueidis.Client
	stream string
	maxLen string
	logger *zap.Logger
}

// NewRedisRecorder creates a recorder writing to stream.
func NewRedisRecorder(client rueidis.Client, stream string, maxLen int64, logger *zap.Logger) *RedisRecorder {
	if stream == "" {
		stream = DefaultStream
	}

	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}

	return &RedisRecorder{
		client: client,
		stream: stream,
		maxLen: strconv.FormatInt(maxLen, 10),
		logger: logger.Named("audit"),
	}
}

// Record appends the entry to the stream.
func (r *RedisRecorder) Record(ctx context.Context, entry *Entry) error {
	data, err := sonic.MarshalString(entry)
	if err != nil {
		return fmt.Errorf("failed to encode audit entry: %w", err)
	}

	cmd := r.client.B().Xadd().
		Key(r.stream).
		Maxlen().Almost().Threshold(r.maxLen).
		Id("*").
		FieldValue().FieldValue(entryField, data).
		Build()

	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	r.logger.Debug("Recorded audit entry",
		zap.String("kind", string(entry.Kind)),
		zap.String("groupID", entry.GroupID))

	return nil
}

// recent returns up to count entries, newest first.
func (r *RedisRecorder) recent(ctx context.Context, count int64) ([]*Entry, error) {
	cmd := r.client.B().Xrevrange().Key(r.stream).End("+").Start("-").Count(count).Build()

	items, err := r.client.Do(ctx, cmd).AsXRange()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit stream: %w", err)
	}

	entries := make([]*Entry, 0, len(items))

	for _, item := range items {
		var entry Entry
		if err := sonic.UnmarshalString(item.FieldValues[entryField], &entry); err != nil {
			r.logger.Warn("Skipping malformed audit entry",
				zap.String("streamID", item.ID),
				zap.Error(err))

			continue
		}

		entries = append(entries, &entry)
	}

	return entries, nil
}
