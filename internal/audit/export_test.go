package audit

import "context"

func (r *RedisRecorder) Recent(ctx context.Context, count int64) ([]*Entry, error) {
	return r.recent(ctx, count)
}
