package memory

import (
	"context"
	"sort"
	"time"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
)

type logRepository struct{ s *Store }

// IntegrationLogs 集成日志仓储
func (s *Store) IntegrationLogs() integration.LogRepository { return &logRepository{s: s} }

func (r *logRepository) Create(ctx context.Context, l *integration.Log) error {
	return r.s.with(ctx, func(t *tables) error {
		l.ID = t.next("logs")
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now()
		}
		cp := *l
		cp.Payload = append([]byte(nil), l.Payload...)
		t.logs = append(t.logs, &cp)
		return nil
	})
}

func (r *logRepository) FindByID(ctx context.Context, id uint) (*integration.Log, error) {
	var out *integration.Log
	err := r.s.with(ctx, func(t *tables) error {
		for _, l := range t.logs {
			if l.ID == id {
				cp := *l
				out = &cp
				return nil
			}
		}
		return integration.ErrLogNotFound.WithDetail("id=%d", id)
	})
	return out, err
}

func (r *logRepository) List(ctx context.Context, params integration.ListParams) ([]*integration.Log, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = integration.DefaultListLimit
	}
	out := []*integration.Log{}
	err := r.s.with(ctx, func(t *tables) error {
		for i := len(t.logs) - 1; i >= 0 && len(out) < limit; i-- {
			l := t.logs[i]
			if params.Status != "" && l.Status != params.Status {
				continue
			}
			if params.ChannelID != 0 && l.ChannelID != params.ChannelID {
				continue
			}
			if params.Operation != "" && l.Operation != params.Operation {
				continue
			}
			cp := *l
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

type outboxRepository struct{ s *Store }

// Outbox 发件箱仓储
func (s *Store) Outbox() integration.OutboxRepository { return &outboxRepository{s: s} }

func (r *outboxRepository) Enqueue(ctx context.Context, in *integration.OutboxIntent) error {
	return r.s.with(ctx, func(t *tables) error {
		cp := *in
		t.outbox[in.ID] = &cp
		return nil
	})
}

func (r *outboxRepository) FindByID(ctx context.Context, id string) (*integration.OutboxIntent, error) {
	var out *integration.OutboxIntent
	err := r.s.with(ctx, func(t *tables) error {
		in, ok := t.outbox[id]
		if !ok {
			return integration.ErrIntentNotFound.WithDetail("id=%s", id)
		}
		cp := *in
		out = &cp
		return nil
	})
	return out, err
}

func (r *outboxRepository) PullPending(ctx context.Context, now time.Time, limit int) ([]*integration.OutboxIntent, error) {
	out := r.filter(ctx, func(in *integration.OutboxIntent) bool {
		return in.Status == integration.IntentPending && !in.NextAttemptAt.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepository) ListByStatus(ctx context.Context, status integration.IntentStatus, limit int) ([]*integration.OutboxIntent, error) {
	out := r.filter(ctx, func(in *integration.OutboxIntent) bool {
		return status == "" || in.Status == status
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit <= 0 {
		limit = integration.DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepository) filter(ctx context.Context, keep func(*integration.OutboxIntent) bool) []*integration.OutboxIntent {
	out := []*integration.OutboxIntent{}
	_ = r.s.with(ctx, func(t *tables) error {
		for _, in := range t.outbox {
			if keep(in) {
				cp := *in
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out
}

func (r *outboxRepository) Claim(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error) {
	claimed := false
	err := r.s.with(ctx, func(t *tables) error {
		in, ok := t.outbox[id]
		if !ok || in.Status != integration.IntentPending || in.NextAttemptAt.After(now) {
			return nil
		}
		in.NextAttemptAt = leaseUntil
		in.UpdatedAt = time.Now()
		claimed = true
		return nil
	})
	return claimed, err
}

func (r *outboxRepository) MarkDispatched(ctx context.Context, id string, logID uint) error {
	return r.update(ctx, id, func(in *integration.OutboxIntent) error {
		in.Status = integration.IntentDispatched
		in.Attempts++
		in.LogID = &logID
		in.LastError = ""
		return nil
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, logID *uint, errMsg string, next time.Time, dead bool) error {
	return r.update(ctx, id, func(in *integration.OutboxIntent) error {
		in.Status = integration.IntentPending
		if dead {
			in.Status = integration.IntentDead
		}
		in.Attempts++
		in.LogID = logID
		in.LastError = errMsg
		in.NextAttemptAt = next
		return nil
	})
}

func (r *outboxRepository) Requeue(ctx context.Context, id string) error {
	return r.update(ctx, id, func(in *integration.OutboxIntent) error {
		if in.Status != integration.IntentDead {
			return integration.ErrIntentNotDead
		}
		in.Status = integration.IntentPending
		in.Attempts = 0
		in.NextAttemptAt = time.Now()
		return nil
	})
}

func (r *outboxRepository) CountByStatus(ctx context.Context) (map[integration.IntentStatus]int64, error) {
	out := map[integration.IntentStatus]int64{}
	err := r.s.with(ctx, func(t *tables) error {
		for _, in := range t.outbox {
			out[in.Status]++
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) update(ctx context.Context, id string, fn func(*integration.OutboxIntent) error) error {
	return r.s.with(ctx, func(t *tables) error {
		in, ok := t.outbox[id]
		if !ok {
			return integration.ErrIntentNotFound.WithDetail("id=%s", id)
		}
		if err := fn(in); err != nil {
			return err
		}
		in.UpdatedAt = time.Now()
		return nil
	})
}
