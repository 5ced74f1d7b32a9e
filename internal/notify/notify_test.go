package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	channel string
	payload []byte
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.channel = channel
	p.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if p.err != nil {
		cmd.SetErr(p.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestPublish(t *testing.T) {
	p := &recordingPublisher{}
	err := Publish(context.Background(), p, 9, Message{Status: StatusCompleted, ResumeID: 4, Pages: 2})
	require.NoError(t, err)

	assert.Equal(t, "user_notify:9", p.channel)
	var got map[string]any
	require.NoError(t, json.Unmarshal(p.payload, &got))
	assert.Equal(t, "completed", got["status"])
	assert.EqualValues(t, 4, got["resume_id"])
	assert.EqualValues(t, 2, got["pages"])
	assert.NotContains(t, got, "filename")
}

func TestPublishError(t *testing.T) {
	p := &recordingPublisher{err: errors.New("redis down")}
	err := Publish(context.Background(), p, 1, Message{})
	assert.ErrorContains(t, err, "user_notify:1")
}
