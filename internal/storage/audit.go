package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
)

// S3API is the subset of the S3 client used by the audit archive.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// AuditEntry is one archived reconciliation.
type AuditEntry struct {
	OrderID             string            `json:"order_id"`
	Status              domain.SyncStatus `json:"status"`
	SyncedAt            time.Time         `json:"synced_at"`
	ConstituentResponse json.RawMessage   `json:"constituent_response"`
	PaymentResponse     json.RawMessage   `json:"payment_response"`
}

// AuditArchive stores a copy of every reconciliation's raw CRM responses in
// S3 under sync-audit/<orderID>/<timestamp>.json. Unlike the sync record,
// which keeps only the latest attempt, the archive keeps every attempt.
type AuditArchive struct {
	client S3API
	bucket string
}

// NewAuditArchive creates an archive writing to bucket.
func NewAuditArchive(client S3API, bucket string) *AuditArchive {
	return &AuditArchive{client: client, bucket: bucket}
}

func auditPrefix(orderID string) string {
	return "sync-audit/" + orderID + "/"
}

// rawJSON returns stored raw text as JSON: valid JSON as-is, anything else as
// a JSON string.
func rawJSON(stored string) json.RawMessage {
	b := syncstatus.DecodeRaw(stored)
	if json.Valid(b) {
		return b
	}
	quoted, _ := json.Marshal(stored)
	return quoted
}

// ArchiveSync implements syncstatus.Archiver.
func (a *AuditArchive) ArchiveSync(ctx context.Context, rec domain.SyncRecord) error {
	entry := AuditEntry{
		OrderID:             rec.OrderID,
		Status:              rec.Status,
		SyncedAt:            rec.SyncedAt.UTC(),
		ConstituentResponse: rawJSON(rec.ConstituentResponseRaw),
		PaymentResponse:     rawJSON(rec.PaymentResponseRaw),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	key := auditPrefix(rec.OrderID) + entry.SyncedAt.Format("20060102T150405.000000000Z") + ".json"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}

// History returns every archived attempt for an order, oldest first.
func (a *AuditArchive) History(ctx context.Context, orderID string) ([]AuditEntry, error) {
	var keys []string
	var token *string
	for {
		out, err := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(a.bucket),
			Prefix:            aws.String(auditPrefix(orderID)),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("listing S3 objects: %w", err)
		}
		for _, obj := range out.Contents {
			if k := aws.ToString(obj.Key); strings.HasSuffix(k, ".json") {
				keys = append(keys, k)
			}
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			break
		}
		token = out.NextContinuationToken
	}
	sort.Strings(keys)

	entries := make([]AuditEntry, 0, len(keys))
	for _, k := range keys {
		e, err := a.get(ctx, k)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func (a *AuditArchive) get(ctx context.Context, key string) (*AuditEntry, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting object from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading S3 object: %w", err)
	}
	var e AuditEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decoding audit entry %s: %w", key, err)
	}
	if e.OrderID == "" {
		return nil, errors.New("audit entry without order id: " + key)
	}
	return &e, nil
}
