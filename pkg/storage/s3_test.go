package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuditTrailKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	assert.Equal(t, "pause-audit/rec-1/1700000000123.json", AuditTrailKey("rec-1", at))
}

func TestS3_PresignExpireDefault(t *testing.T) {
	s := &S3{cfg: S3Config{}}
	assert.Equal(t, 15*time.Minute, s.PresignExpire())

	s.cfg.PresignExpireMinutes = 5
	assert.Equal(t, 5*time.Minute, s.PresignExpire())
}
