package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prospect-labs/prospect-cli/internal/model"
)

func TestHubReplaysHistoryToLateSubscriber(t *testing.T) {
	hub := NewHub()
	hub.Publish(model.Event{Type: model.EventPipelineStart, JobID: "j1", Start: &model.PipelineStartPayload{}})
	hub.Publish(model.Event{Type: model.EventStatusUpdate, JobID: "j1", Status: &model.StatusUpdatePayload{Stage: "search"}})

	history, live, cancel := hub.Subscribe("j1")
	defer cancel()

	require.Len(t, history, 2)
	assert.Equal(t, model.EventPipelineStart, history[0].Type)
	require.NotNil(t, live)

	hub.Publish(model.Event{Type: model.EventPipelineEnd, JobID: "j1", End: &model.PipelineEndPayload{}})

	ev, ok := <-live
	require.True(t, ok)
	assert.Equal(t, model.EventPipelineEnd, ev.Type)

	_, ok = <-live
	assert.False(t, ok, "channel closes after terminal event")
}

func TestHubFinishedJobHasNoLiveChannel(t *testing.T) {
	hub := NewHub()
	hub.Publish(model.Event{Type: model.EventPipelineEnd, JobID: "j1", End: &model.PipelineEndPayload{}})

	history, live, cancel := hub.Subscribe("j1")
	defer cancel()

	require.Len(t, history, 1)
	assert.Nil(t, live)
}

func TestHubIsolatesJobs(t *testing.T) {
	hub := NewHub()
	hub.Publish(model.Event{Type: model.EventPipelineStart, JobID: "j1", Start: &model.PipelineStartPayload{}})
	hub.Publish(model.Event{Type: model.EventPipelineStart, JobID: "j2", Start: &model.PipelineStartPayload{}})

	history, _, cancel := hub.Subscribe("j1")
	defer cancel()

	require.Len(t, history, 1)
	assert.Equal(t, "j1", history[0].JobID)
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	_, _, cancel := hub.Subscribe("j1")
	cancel()
	cancel()

	// Publishing after cancel must not panic on a removed subscriber.
	hub.Publish(model.Event{Type: model.EventPipelineEnd, JobID: "j1", End: &model.PipelineEndPayload{}})
}

func TestHubForget(t *testing.T) {
	hub := NewHub()
	hub.Publish(model.Event{Type: model.EventPipelineEnd, JobID: "j1", End: &model.PipelineEndPayload{}})
	hub.Forget("j1")

	history, _, cancel := hub.Subscribe("j1")
	defer cancel()
	assert.Empty(t, history)
}
