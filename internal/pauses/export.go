package pauses

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calldoc/backend/internal/models"
	"github.com/calldoc/backend/pkg/storage"
)

// ObjectStore is the subset of S3 the exporter uses.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	AuditBucket() string
	PresignExpire() time.Duration
}

// AuditExport is the JSON document written for compliance archival.
type AuditExport struct {
	RecordingID    uuid.UUID            `json:"recording_id"`
	ExportedAt     time.Time            `json:"exported_at"`
	ExportedBy     uuid.UUID            `json:"exported_by"`
	DurationMs     int64                `json:"duration_ms"`
	Events         []models.PauseEvent  `json:"events"`
	Segments       []models.Segment     `json:"segments"`
	PausedSegments []models.PausedRange `json:"paused_segments"`
}

// ExportResult points at an uploaded export.
type ExportResult struct {
	Key         string `json:"key"`
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
	EventCount  int    `json:"event_count"`
}

// Exporter snapshots a recording's pause audit trail to object storage.
type Exporter struct {
	svc    *Service
	store  ObjectStore
	logger *zap.Logger
}

// NewExporter creates an exporter reading through svc.
func NewExporter(svc *Service, store ObjectStore, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{svc: svc, store: store, logger: logger}
}

// Export uploads the full history and derived segments of a recording and returns a presigned URL.
func (e *Exporter) Export(ctx context.Context, recordingID, userID uuid.UUID) (*ExportResult, error) {
	rec, err := e.svc.liveRecording(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	events, err := e.svc.History(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	segments := Reconstruct(rec.TotalDurationMs(), events)
	now := e.svc.now().UTC()
	doc := AuditExport{
		RecordingID:    recordingID,
		ExportedAt:     now,
		ExportedBy:     userID,
		DurationMs:     rec.TotalDurationMs(),
		Events:         events,
		Segments:       segments,
		PausedSegments: PausedRanges(segments),
	}
	if doc.Events == nil {
		doc.Events = []models.PauseEvent{}
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal audit export: %w", err)
	}

	bucket := e.store.AuditBucket()
	key := storage.AuditTrailKey(recordingID.String(), now)
	if _, err := e.store.Upload(ctx, bucket, key, "application/json", bytes.NewReader(body), int64(len(body))); err != nil {
		return nil, fmt.Errorf("upload audit export: %w", err)
	}
	expire := e.store.PresignExpire()
	url, err := e.store.GeneratePresignedDownloadURL(ctx, bucket, key, expire)
	if err != nil {
		return nil, fmt.Errorf("presign audit export: %w", err)
	}
	e.logger.Info("pause audit trail exported", zap.String("recording_id", recordingID.String()), zap.String("key", key), zap.Int("events", len(events)))
	return &ExportResult{Key: key, DownloadURL: url, ExpiresIn: int(expire.Seconds()), EventCount: len(events)}, nil
}
