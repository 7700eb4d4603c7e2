package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserversAreSafeBeforeInit(t *testing.T) {
	// Must not panic even if Init has not run in this process yet.
	ObserveDocumentFetched("amendments", 10)
	ObserveSyncAction("upload", 5)
	ObserveStageDuration("fetch", time.Second)
	ObserveRun("succeeded")
}

func TestCountersAccumulate(t *testing.T) {
	Init()

	before := testutil.ToFloat64(mirrorDocumentsFetchedTotal.WithLabelValues("amendments"))
	ObserveDocumentFetched("amendments", 2048)
	after := testutil.ToFloat64(mirrorDocumentsFetchedTotal.WithLabelValues("amendments"))
	assert.Equal(t, before+1, after)

	bytesBefore := testutil.ToFloat64(mirrorFetchBytesTotal.WithLabelValues("amendments"))
	ObserveDocumentFetched("amendments", 1024)
	bytesAfter := testutil.ToFloat64(mirrorFetchBytesTotal.WithLabelValues("amendments"))
	assert.Equal(t, bytesBefore+1024, bytesAfter)

	upBefore := testutil.ToFloat64(mirrorSyncObjectsTotal.WithLabelValues("upload"))
	ObserveSyncAction("upload", 100)
	ObserveSyncAction("skip", 0)
	upAfter := testutil.ToFloat64(mirrorSyncObjectsTotal.WithLabelValues("upload"))
	assert.Equal(t, upBefore+1, upAfter)
}

func TestHandlerServesRegistry(t *testing.T) {
	Init()
	assert.NotNil(t, Handler())
}
