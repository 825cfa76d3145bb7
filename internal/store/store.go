package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// JobStatus represents the state of a podcast generation job.
type JobStatus string

const (
	JobStatusSubmitted    JobStatus = "submitted"
	JobStatusTranslating  JobStatus = "translating"
	JobStatusSynthesizing JobStatus = "synthesizing"
	JobStatusAssembling   JobStatus = "assembling"
	JobStatusUploading    JobStatus = "uploading"
	JobStatusComplete     JobStatus = "complete"
	JobStatusFailed       JobStatus = "failed"
)

// LanguageAudio is one published language of a podcast.
type LanguageAudio struct {
	AudioKey  string `dynamodbav:"audioKey" json:"audioKey"`
	AudioURL  string `dynamodbav:"audioUrl" json:"audioUrl"`
	Duration  string `dynamodbav:"duration,omitempty" json:"duration,omitempty"`
	SizeBytes int64  `dynamodbav:"sizeBytes,omitempty" json:"sizeBytes,omitempty"`
	Dropped   int    `dynamodbav:"dropped,omitempty" json:"dropped,omitempty"`
}

// PodcastItem is the DynamoDB record for a podcast.
type PodcastItem struct {
	PK     string `dynamodbav:"PK" json:"-"`
	SK     string `dynamodbav:"SK" json:"-"`
	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`

	PodcastID       string                   `dynamodbav:"podcastId" json:"podcastId"`
	Title           string                   `dynamodbav:"title,omitempty" json:"title,omitempty"`
	Description     string                   `dynamodbav:"description,omitempty" json:"description,omitempty"`
	Script          string                   `dynamodbav:"script,omitempty" json:"script,omitempty"`
	Owner           string                   `dynamodbav:"owner" json:"owner"`
	Requested       []string                 `dynamodbav:"requested,omitempty" json:"requested,omitempty"`
	Languages       map[string]LanguageAudio `dynamodbav:"languages,omitempty" json:"languages,omitempty"`
	FailedLanguages map[string]string        `dynamodbav:"failedLanguages,omitempty" json:"failedLanguages,omitempty"`
	TTSProvider     string                   `dynamodbav:"ttsProvider,omitempty" json:"ttsProvider,omitempty"`
	Status          string                   `dynamodbav:"status" json:"status"`
	ProgressPercent float64                  `dynamodbav:"progressPercent,omitempty" json:"progressPercent,omitempty"`
	StageMessage    string                   `dynamodbav:"stageMessage,omitempty" json:"stageMessage,omitempty"`
	ErrorMessage    string                   `dynamodbav:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt       string                   `dynamodbav:"createdAt" json:"createdAt"`
}

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store handles DynamoDB operations for podcasts.
type Store struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// NewStore creates a DynamoDB store.
func NewStore(client DynamoAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

func podcastKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "PODCAST#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func ownerPartition(owner string) string { return "OWNER#" + owner }

// NewJob describes a podcast about to be generated.
type NewJob struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Script      string
	Languages   []string
	TTSProvider string
}

// CreateJob inserts a new podcast job with status=submitted.
func (s *Store) CreateJob(ctx context.Context, job NewJob) error {
	now := s.now().UTC().Format(time.RFC3339)
	item := PodcastItem{
		PK:          "PODCAST#" + job.ID,
		SK:          "METADATA",
		GSI1PK:      ownerPartition(job.Owner),
		GSI1SK:      now + "#" + job.ID,
		PodcastID:   job.ID,
		Title:       job.Title,
		Description: job.Description,
		Script:      job.Script,
		Owner:       job.Owner,
		Requested:   job.Languages,
		TTSProvider: job.TTSProvider,
		Status:      string(JobStatusSubmitted),
		CreatedAt:   now,
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal job item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("put job item: %w", err)
	}
	return nil
}

// UpdateProgress updates the job's status, progress percent, and stage message.
func (s *Store) UpdateProgress(ctx context.Context, id string, status JobStatus, percent float64, message string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              podcastKey(id),
		UpdateExpression: aws.String("SET #status = :status, progressPercent = :pct, stageMessage = :msg"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":pct":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%.2f", percent)},
			":msg":    &types.AttributeValueMemberS{Value: message},
		},
	})
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// CompleteJob records the published languages and marks the job complete.
// failed maps language to error message for languages that did not finish.
func (s *Store) CompleteJob(ctx context.Context, id string, languages map[string]LanguageAudio, failed map[string]string) error {
	langs, err := attributevalue.Marshal(languages)
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}

	updateExpr := "SET #status = :status, progressPercent = :pct, stageMessage = :msg, languages = :langs"
	values := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: string(JobStatusComplete)},
		":pct":    &types.AttributeValueMemberN{Value: "1.00"},
		":msg":    &types.AttributeValueMemberS{Value: fmt.Sprintf("Complete (%d languages)", len(languages))},
		":langs":  langs,
	}
	if len(failed) > 0 {
		fv, err := attributevalue.Marshal(failed)
		if err != nil {
			return fmt.Errorf("marshal failed languages: %w", err)
		}
		updateExpr += ", failedLanguages = :failed"
		values[":failed"] = fv
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              podcastKey(id),
		UpdateExpression: aws.String(updateExpr),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob marks the job as failed with an error message.
func (s *Store) FailJob(ctx context.Context, id, errMsg string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              podcastKey(id),
		UpdateExpression: aws.String("SET #status = :status, errorMessage = :err, stageMessage = :msg"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(JobStatusFailed)},
			":err":    &types.AttributeValueMemberS{Value: errMsg},
			":msg":    &types.AttributeValueMemberS{Value: "Failed: " + errMsg},
		},
	})
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// GetPodcast retrieves a single podcast by ID. It returns nil, nil when the
// podcast does not exist.
func (s *Store) GetPodcast(ctx context.Context, id string) (*PodcastItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       podcastKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get podcast: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item PodcastItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal podcast: %w", err)
	}
	return &item, nil
}

// ListByOwner returns an owner's podcasts, newest first, via GSI1. cursor is
// the GSI1SK of the last item of the previous page.
func (s *Store) ListByOwner(ctx context.Context, owner string, limit int, cursor string) ([]PodcastItem, string, error) {
	if limit <= 0 {
		limit = 20
	}

	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: ownerPartition(owner)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	if cursor != "" {
		// cursor is {timestamp}#{id}; the table key is rebuilt from the id.
		parts := strings.SplitN(cursor, "#", 2)
		if len(parts) != 2 || parts[1] == "" {
			return nil, "", fmt.Errorf("invalid cursor format")
		}
		key := podcastKey(parts[1])
		key["GSI1PK"] = &types.AttributeValueMemberS{Value: ownerPartition(owner)}
		key["GSI1SK"] = &types.AttributeValueMemberS{Value: cursor}
		input.ExclusiveStartKey = key
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("list podcasts: %w", err)
	}

	var items []PodcastItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, "", fmt.Errorf("unmarshal podcast list: %w", err)
	}

	var nextCursor string
	if result.LastEvaluatedKey != nil {
		if gsi1sk, ok := result.LastEvaluatedKey["GSI1SK"].(*types.AttributeValueMemberS); ok {
			nextCursor = gsi1sk.Value
		}
	}

	return items, nextCursor, nil
}
