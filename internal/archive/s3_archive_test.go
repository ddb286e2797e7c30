package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotKeyFormat(t *testing.T) {
	takenAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	key := SnapshotKey("main", takenAt)
	assert.Equal(t, "portfolios/main/1717243200.msgpack", key)
}
