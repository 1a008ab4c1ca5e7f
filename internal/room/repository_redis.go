package room

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisRepo keeps the registry in a shared Redis keyspace. Keys carry
// the idle TTL, so eviction is native and Sweep is unnecessary.
//
// key layout:
//
//	kv : rm:room:{roomID}   -> Room JSON
//	set: rm:conn:{connID}   -> Set(roomID,...) reverse index
func NewRedisRepo(rdb *redis.Client, ttlSeconds int) Repo {
	return &redisRepo{rdb: rdb, ttl: time.Duration(ttlSeconds) * time.Second}
}

func roomKey(roomID string) string {
	return fmt.Sprintf("rm:room:%s", roomID)
}

func connKey(connID string) string {
	return fmt.Sprintf("rm:conn:%s", connID)
}

func (r *redisRepo) GetOrCreate(ctx context.Context, roomID, creatorConn string) (*Room, error) {
	existing, err := r.Get(ctx, roomID)
	if err == nil {
		return existing, nil
	}
	if err != ErrRoomNotFound {
		return nil, err
	}
	now := time.Now()
	rm := &Room{
		ID:           roomID,
		Creator:      creatorConn,
		State:        StateLobby,
		Participants: []Participant{},
		ChatLog:      []ChatMessage{},
		CreatedAt:    now,
		LastActive:   now,
	}
	if err := r.Save(ctx, rm); err != nil {
		return nil, err
	}
	return rm.Clone(), nil
}

func (r *redisRepo) Get(ctx context.Context, roomID string) (*Room, error) {
	data, err := r.rdb.Get(ctx, roomKey(roomID)).Bytes()
	if err == redis.Nil {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var rm Room
	if err := json.Unmarshal(data, &rm); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *redisRepo) Save(ctx context.Context, rm *Room) error {
	rm.LastActive = time.Now()
	data, err := json.Marshal(rm)
	if err != nil {
		return err
	}
	p := r.rdb.Pipeline()
	p.Set(ctx, roomKey(rm.ID), data, r.ttl)
	for _, pt := range rm.Participants {
		p.SAdd(ctx, connKey(pt.ConnID), rm.ID)
		p.Expire(ctx, connKey(pt.ConnID), r.ttl)
	}
	_, err = p.Exec(ctx)
	return err
}

func (r *redisRepo) RoomsFor(ctx context.Context, connID string) ([]string, error) {
	return r.rdb.SMembers(ctx, connKey(connID)).Result()
}

func (r *redisRepo) RemoveParticipant(ctx context.Context, connID string) ([]*Room, error) {
	roomIDs, err := r.RoomsFor(ctx, connID)
	if err != nil {
		return nil, err
	}

	affected := make([]*Room, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		rm, err := r.Get(ctx, roomID)
		if err == ErrRoomNotFound {
			continue // expired underneath us, nothing to update
		}
		if err != nil {
			return nil, err
		}
		if i := rm.participantIndex(connID); i >= 0 {
			rm.Participants = append(rm.Participants[:i], rm.Participants[i+1:]...)
			if err := r.Save(ctx, rm); err != nil {
				return nil, err
			}
		}
		affected = append(affected, rm)
	}

	if err := r.rdb.Del(ctx, connKey(connID)).Err(); err != nil {
		return nil, err
	}
	return affected, nil
}
