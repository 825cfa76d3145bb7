package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StaleMessage is recorded on jobs failed by FailStale.
const StaleMessage = "interrupted: the worker stopped before the job finished"

// ScanAPI is the DynamoDB call FailStale needs beyond DynamoAPI.
type ScanAPI interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// SweepResult counts what a FailStale pass saw and changed.
type SweepResult struct {
	Scanned int
	Stale   []string
	Failed  int
}

// FailStale marks every job that is still in progress and was created more
// than olderThan ago as failed. Tasks run in process, so such jobs belong to
// a worker that died. With dryRun the stale IDs are reported but not updated.
func (s *Store) FailStale(ctx context.Context, scanner ScanAPI, olderThan time.Duration, dryRun bool) (SweepResult, error) {
	cutoff := s.now().Add(-olderThan).UTC().Format(time.RFC3339)

	var (
		res     SweepResult
		lastKey map[string]types.AttributeValue
	)
	for {
		out, err := scanner.Scan(ctx, &dynamodb.ScanInput{
			TableName:        &s.tableName,
			FilterExpression: aws.String("begins_with(PK, :prefix) AND createdAt < :cutoff AND NOT #status IN (:complete, :failed)"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prefix":   &types.AttributeValueMemberS{Value: "PODCAST#"},
				":cutoff":   &types.AttributeValueMemberS{Value: cutoff},
				":complete": &types.AttributeValueMemberS{Value: string(JobStatusComplete)},
				":failed":   &types.AttributeValueMemberS{Value: string(JobStatusFailed)},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return res, fmt.Errorf("scan podcasts: %w", err)
		}
		res.Scanned += int(out.ScannedCount)

		var items []PodcastItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return res, fmt.Errorf("unmarshal podcasts: %w", err)
		}
		for _, item := range items {
			res.Stale = append(res.Stale, item.PodcastID)
			if dryRun {
				continue
			}
			if err := s.FailJob(ctx, item.PodcastID, StaleMessage); err != nil {
				return res, err
			}
			res.Failed++
		}

		lastKey = out.LastEvaluatedKey
		if lastKey == nil {
			return res, nil
		}
	}
}
