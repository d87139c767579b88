package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/redis/go-redis/v9"
)

// markRead sets the read flag only on an existing lead hash
var markRead = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "read", "1")
return 1
`)

// RedisLeadStore keeps each lead in a hash and orders them with a sorted set
// scored by creation time in milliseconds. Leads from the same millisecond
// are ordered by id.
type RedisLeadStore struct {
	client *redis.Client
	prefix string
	index  string
}

// NewRedisLeadStore creates a lead store on top of client
func NewRedisLeadStore(client *redis.Client) *RedisLeadStore {
	return &RedisLeadStore{
		client: client,
		prefix: "cyberaudit:lead:",
		index:  "cyberaudit:leads",
	}
}

func (s *RedisLeadStore) key(id string) string {
	return s.prefix + id
}

// Insert stores a new lead
func (s *RedisLeadStore) Insert(ctx context.Context, lead *core.Lead) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(lead.ID), encodeLead(lead))
		pipe.ZAdd(ctx, s.index, redis.Z{
			Score:  float64(lead.CreatedAt.UnixMilli()),
			Member: lead.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// List returns every lead, newest first
func (s *RedisLeadStore) List(ctx context.Context) ([]*core.Lead, error) {
	ids, err := s.client.ZRevRange(ctx, s.index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	if len(ids) == 0 {
		return []*core.Lead{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.key(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}

	leads := make([]*core.Lead, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		// Index entries can outlive a hash deleted by another instance
		if len(fields) == 0 {
			continue
		}
		lead, err := decodeLead(ids[i], fields)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// Get returns one lead
func (s *RedisLeadStore) Get(ctx context.Context, id string) (*core.Lead, error) {
	fields, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrLeadNotFound
	}
	return decodeLead(id, fields)
}

// MarkRead sets the read flag of a lead
func (s *RedisLeadStore) MarkRead(ctx context.Context, id string) error {
	n, err := markRead.Run(ctx, s.client, []string{s.key(id)}).Int()
	if err != nil {
		return fmt.Errorf("failed to mark lead read: %w", err)
	}
	if n == 0 {
		return core.ErrLeadNotFound
	}
	return nil
}

// Delete removes a lead
func (s *RedisLeadStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.index, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	if del.Val() == 0 {
		return core.ErrLeadNotFound
	}
	return nil
}

func encodeLead(lead *core.Lead) map[string]any {
	read := "0"
	if lead.Read {
		read = "1"
	}
	return map[string]any{
		"name":       lead.Name,
		"company":    lead.Company,
		"email":      lead.Email,
		"phone":      lead.Phone,
		"comment":    lead.Comment,
		"read":       read,
		"created_at": lead.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeLead(id string, fields map[string]string) (*core.Lead, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("lead %s: bad created_at: %w", id, err)
	}
	return &core.Lead{
		ID:        id,
		Name:      fields["name"],
		Company:   fields["company"],
		Email:     fields["email"],
		Phone:     fields["phone"],
		Comment:   fields["comment"],
		Read:      fields["read"] == "1",
		CreatedAt: createdAt,
	}, nil
}
