package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/syncer"
)

func TestPublisherRecordsEvents(t *testing.T) {
	t.Parallel()

	p := New()
	require.NoError(t, p.Publish(context.Background(), syncer.DeployEvent{Prefix: "capitol-tracker", Uploaded: 3}))
	require.NoError(t, p.Publish(context.Background(), syncer.DeployEvent{Prefix: "capitol-tracker", Deleted: 1}))

	events := p.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 3, events[0].Uploaded)
	assert.Equal(t, 1, events[1].Deleted)
}
