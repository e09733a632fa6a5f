package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkIDStable(t *testing.T) {
	a := ChunkID("internal/server.go", 3)
	b := ChunkID("internal/server.go", 3)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	assert.NotEqual(t, a, ChunkID("internal/server.go", 4))
	assert.NotEqual(t, a, ChunkID("internal/client.go", 3))
}

func TestCitationTag(t *testing.T) {
	tag := Citation{FilePath: "pkg/api.go", StartLine: 10, EndLine: 25}.Tag()
	assert.Equal(t, "pkg/api.go:10-25", tag)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobQueued.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobSucceeded.Terminal())
	assert.True(t, JobFailed.Terminal())
}

func TestCollectionForRepo(t *testing.T) {
	assert.Equal(t, "acme-widgets", CollectionForRepo("acme/widgets"))
	assert.Equal(t, "plain", CollectionForRepo("plain"))
}

func TestPushEventEmpty(t *testing.T) {
	assert.True(t, (&PushEvent{}).Empty())
	assert.False(t, (&PushEvent{Changed: []string{"a.go"}}).Empty())
	assert.False(t, (&PushEvent{Deleted: []string{"a.go"}}).Empty())
}
