// Package dynamo stores sync records in DynamoDB. It is selected with
// storage.type=dynamodb and mirrors the Postgres repository.
package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ignite/lgl-sync/internal/domain"
	"github.com/ignite/lgl-sync/internal/service/syncstatus"
)

const (
	orderPrefix = "ORDER#"
	syncSortKey = "SYNC"
)

// API is the subset of the DynamoDB client used here.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// syncItem is the DynamoDB representation of a SyncRecord.
type syncItem struct {
	PK                     string  `dynamodbav:"PK"`
	SK                     string  `dynamodbav:"SK"`
	OrderID                string  `dynamodbav:"OrderID"`
	Status                 string  `dynamodbav:"Status"`
	ConstituentID          *string `dynamodbav:"ConstituentID,omitempty"`
	MatchMethod            string  `dynamodbav:"MatchMethod"`
	MatchedEmail           *string `dynamodbav:"MatchedEmail,omitempty"`
	PaymentID              *string `dynamodbav:"PaymentID,omitempty"`
	ConstituentResponseRaw string  `dynamodbav:"ConstituentResponseRaw"`
	PaymentResponseRaw     string  `dynamodbav:"PaymentResponseRaw"`
	SyncedAt               string  `dynamodbav:"SyncedAt"`
}

func toItem(rec *domain.SyncRecord) syncItem {
	return syncItem{
		PK:                     orderPrefix + rec.OrderID,
		SK:                     syncSortKey,
		OrderID:                rec.OrderID,
		Status:                 string(rec.Status),
		ConstituentID:          rec.ConstituentID,
		MatchMethod:            string(rec.MatchMethod),
		MatchedEmail:           rec.MatchedEmail,
		PaymentID:              rec.PaymentID,
		ConstituentResponseRaw: rec.ConstituentResponseRaw,
		PaymentResponseRaw:     rec.PaymentResponseRaw,
		SyncedAt:               rec.SyncedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (it syncItem) record() (domain.SyncRecord, error) {
	at, err := time.Parse(time.RFC3339Nano, it.SyncedAt)
	if err != nil {
		return domain.SyncRecord{}, fmt.Errorf("parse SyncedAt for %s: %w", it.OrderID, err)
	}
	return domain.SyncRecord{
		OrderID:                it.OrderID,
		Status:                 domain.SyncStatus(it.Status),
		ConstituentID:          it.ConstituentID,
		MatchMethod:            domain.MatchMethod(it.MatchMethod),
		MatchedEmail:           it.MatchedEmail,
		PaymentID:              it.PaymentID,
		ConstituentResponseRaw: it.ConstituentResponseRaw,
		PaymentResponseRaw:     it.PaymentResponseRaw,
		SyncedAt:               at,
	}, nil
}

// SyncRecordRepo implements syncstatus.Repository on a single table keyed
// by PK=ORDER#<id>, SK=SYNC.
type SyncRecordRepo struct {
	client API
	table  string
}

// NewSyncRecordRepo creates the repository.
func NewSyncRecordRepo(client API, table string) *SyncRecordRepo {
	return &SyncRecordRepo{client: client, table: table}
}

func (r *SyncRecordRepo) Upsert(ctx context.Context, rec *domain.SyncRecord) error {
	av, err := attributevalue.MarshalMap(toItem(rec))
	if err != nil {
		return fmt.Errorf("marshaling sync record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("putting sync record: %w", err)
	}
	return nil
}

func (r *SyncRecordRepo) Get(ctx context.Context, orderID string) (*domain.SyncRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: orderPrefix + orderID},
			"SK": &types.AttributeValueMemberS{Value: syncSortKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("getting sync record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, syncstatus.ErrNotFound
	}
	var it syncItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshaling sync record: %w", err)
	}
	rec, err := it.record()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// scan walks every sync item, optionally filtered by status.
func (r *SyncRecordRepo) scan(ctx context.Context, status domain.SyncStatus) ([]domain.SyncRecord, error) {
	in := &dynamodb.ScanInput{
		TableName:        aws.String(r.table),
		FilterExpression: aws.String("SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: syncSortKey},
		},
	}
	if status != "" {
		in.FilterExpression = aws.String("SK = :sk AND #status = :status")
		in.ExpressionAttributeNames = map[string]string{"#status": "Status"}
		in.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(status)}
	}

	var out []domain.SyncRecord
	for {
		page, err := r.client.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("scanning sync records: %w", err)
		}
		for _, item := range page.Items {
			var it syncItem
			if err := attributevalue.UnmarshalMap(item, &it); err != nil {
				return nil, fmt.Errorf("unmarshaling sync record: %w", err)
			}
			if !strings.HasPrefix(it.PK, orderPrefix) {
				continue
			}
			rec, err := it.record()
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
	return out, nil
}

func (r *SyncRecordRepo) List(ctx context.Context, f syncstatus.ListFilter) ([]domain.SyncRecord, int, error) {
	recs, err := r.scan(ctx, f.Status)
	if err != nil {
		return nil, 0, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].SyncedAt.After(recs[j].SyncedAt) })

	total := len(recs)
	start := f.Offset
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return recs[start:end], total, nil
}

func (r *SyncRecordRepo) CountByStatus(ctx context.Context) (map[domain.SyncStatus]int, error) {
	recs, err := r.scan(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SyncStatus]int)
	for _, rec := range recs {
		out[rec.Status]++
	}
	return out, nil
}
