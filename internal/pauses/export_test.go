package pauses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	bucket      string
	key         string
	contentType string
	body        []byte
	uploadErr   error
}

func (f *fakeObjectStore) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.bucket, f.key, f.contentType, f.body = bucket, key, contentType, b
	return "s3://" + bucket + "/" + key, nil
}

func (f *fakeObjectStore) GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	return "https://" + bucket + ".s3.amazonaws.com/" + key + "?sig=x", nil
}

func (f *fakeObjectStore) AuditBucket() string { return "pci-audit" }

func (f *fakeObjectStore) PresignExpire() time.Duration { return 15 * time.Minute }

func TestExporter_UploadsHistoryAndSegments(t *testing.T) {
	h := newHarness(t, Config{})
	ctx := context.Background()
	recID := h.newRecording(300000)
	user := uuid.New()

	h.clock.Advance(60 * time.Second)
	_, err := h.svc.Pause(ctx, recID, user, "card entry")
	require.NoError(t, err)
	h.clock.Advance(30 * time.Second)
	_, err = h.svc.Resume(ctx, recID, user)
	require.NoError(t, err)

	store := &fakeObjectStore{}
	out, err := NewExporter(h.svc, store, nil).Export(ctx, recID, user)
	require.NoError(t, err)

	assert.Equal(t, 2, out.EventCount)
	assert.Equal(t, 900, out.ExpiresIn)
	assert.True(t, strings.HasPrefix(out.Key, "pause-audit/"+recID.String()+"/"))
	assert.Equal(t, store.key, out.Key)
	assert.Equal(t, "pci-audit", store.bucket)
	assert.Equal(t, "application/json", store.contentType)
	assert.Contains(t, out.DownloadURL, out.Key)

	var doc AuditExport
	require.NoError(t, json.Unmarshal(store.body, &doc))
	assert.Equal(t, recID, doc.RecordingID)
	assert.Equal(t, user, doc.ExportedBy)
	assert.Equal(t, int64(300000), doc.DurationMs)
	require.Len(t, doc.Events, 2)
	assert.Len(t, doc.Segments, 3)
	require.Len(t, doc.PausedSegments, 1)
	assert.Equal(t, int64(60000), doc.PausedSegments[0].StartMs)
}

func TestExporter_MissingRecording(t *testing.T) {
	h := newHarness(t, Config{})
	store := &fakeObjectStore{}

	_, err := NewExporter(h.svc, store, nil).Export(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrRecordingNotFound)
	assert.Empty(t, store.key)
}

func TestExporter_UploadFailure(t *testing.T) {
	h := newHarness(t, Config{})
	recID := h.newRecording(1000)
	store := &fakeObjectStore{uploadErr: errors.New("access denied")}

	_, err := NewExporter(h.svc, store, nil).Export(context.Background(), recID, uuid.New())
	assert.ErrorContains(t, err, "access denied")
}
