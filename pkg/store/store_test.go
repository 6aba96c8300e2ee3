package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFenceEpochs(t *testing.T) {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	fence := []time.Time{
		base,
		base.Add(1500 * time.Millisecond),
		base.Add(3 * time.Second),
	}

	epochs := fenceEpochs(fence)

	// Sub-second precision floors to the containing second, matching the
	// second-granularity timestamps both backends store
	assert.Equal(t, []int64{base.Unix(), base.Unix() + 1, base.Unix() + 3}, epochs)
}
