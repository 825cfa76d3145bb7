package store

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDynamo struct {
	*fakeDynamo
	pages   [][]PodcastItem
	scans   []*dynamodb.ScanInput
	updates []string
}

func (r *recordingDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	page := len(r.scans)
	r.scans = append(r.scans, in)

	items, err := attributevalue.MarshalList(r.pages[page])
	if err != nil {
		return nil, err
	}
	out := &dynamodb.ScanOutput{ScannedCount: int32(len(items) + 1)}
	for _, it := range items {
		out.Items = append(out.Items, it.(*types.AttributeValueMemberM).Value)
	}
	if page+1 < len(r.pages) {
		out.LastEvaluatedKey = podcastKey(r.pages[page][len(r.pages[page])-1].PodcastID)
	}
	return out, nil
}

func (r *recordingDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	r.updates = append(r.updates, pk(in.Key))
	return r.fakeDynamo.UpdateItem(ctx, in, opts...)
}

func TestFailStale(t *testing.T) {
	db := &recordingDynamo{
		fakeDynamo: newFakeDynamo(),
		pages: [][]PodcastItem{
			{{PodcastID: "A", Status: "synthesizing"}},
			{{PodcastID: "B", Status: "submitted"}},
		},
	}
	s := fixedStore(db)

	res, err := s.FailStale(context.Background(), db, time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Stale)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 4, res.Scanned)
	assert.Equal(t, []string{"PODCAST#A", "PODCAST#B"}, db.updates)

	require.Len(t, db.scans, 2)
	assert.Nil(t, db.scans[0].ExclusiveStartKey)
	assert.Equal(t, "PODCAST#A", pk(db.scans[1].ExclusiveStartKey))
	cutoff := db.scans[0].ExpressionAttributeValues[":cutoff"].(*types.AttributeValueMemberS).Value
	assert.Equal(t, "2026-03-01T11:00:00Z", cutoff)
	assert.Equal(t, "podcasts", *db.scans[0].TableName)
}

func TestFailStaleDryRun(t *testing.T) {
	db := &recordingDynamo{
		fakeDynamo: newFakeDynamo(),
		pages:      [][]PodcastItem{{{PodcastID: "A", Status: "assembling"}}},
	}
	s := fixedStore(db)

	res, err := s.FailStale(context.Background(), db, time.Hour, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.Stale)
	assert.Zero(t, res.Failed)
	assert.Empty(t, db.updates)
}
