package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ubuntu-network/api/internal/models"
)

var ErrUserExists = errors.New("user already exists")

// DynamoDBAPI is the subset of *dynamodb.Client used by the repositories.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// UserRepository stores users in a single table. Each user has a primary item
// keyed by phone number (USER!<phone>) and an index item keyed by id
// (USERID!<id>) that points back to the phone number.
type UserRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *logrus.Logger
	now       func() time.Time
}

func NewUserRepository(client DynamoDBAPI, tableName string, logger *logrus.Logger) *UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

func itemKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// GetByPhoneNumber returns nil, nil when no user is registered for phoneNumber.
func (r *UserRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error) {
	user := &models.User{PhoneNumber: phoneNumber}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(user.GetPK()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get user from DynamoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var dbUser models.User
	if err := attributevalue.UnmarshalMap(result.Item, &dbUser); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal user from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &dbUser, nil
}

// GetByID resolves the id index item and then loads the user by phone number.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{ID: id}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(user.GetIDPK()),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user index: %w", err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var index struct {
		PhoneNumber string `dynamodbav:"phone_number"`
	}
	if err := attributevalue.UnmarshalMap(result.Item, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user index: %w", err)
	}

	return r.GetByPhoneNumber(ctx, index.PhoneNumber)
}

// Create writes the user and its id index item in one transaction. It returns
// ErrUserExists when either key is already taken.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := r.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		r.logger.WithError(err).Error("Failed to marshal user for DynamoDB")
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	for k, v := range itemKey(user.GetPK()) {
		item[k] = v
	}

	index := itemKey(user.GetIDPK())
	index["phone_number"] = &types.AttributeValueMemberS{Value: user.PhoneNumber}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                index,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && conditionCheckFailed(canceled) {
			return ErrUserExists
		}
		r.logger.WithError(err).Error("Failed to create user in DynamoDB")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// conditionCheckFailed reports whether a cancelled transaction failed on an
// existing key rather than a conflict or throttling.
func conditionCheckFailed(err *types.TransactionCanceledException) bool {
	for _, reason := range err.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func (r *UserRepository) UpdateDisplayName(ctx context.Context, user *models.User, displayName string) error {
	updatedAt := r.now().UTC()

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 itemKey(user.GetPK()),
		UpdateExpression:    aws.String("SET display_name = :name, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name":       &types.AttributeValueMemberS{Value: displayName},
			":updated_at": &types.AttributeValueMemberS{Value: updatedAt.Format(time.RFC3339Nano)},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to update user in DynamoDB")
		return fmt.Errorf("failed to update user: %w", err)
	}

	user.DisplayName = displayName
	user.UpdatedAt = updatedAt
	return nil
}

// GetOrCreate returns the user registered for phoneNumber, creating one with
// default settings on first sign-in. A create that loses a race re-reads the
// winner.
func (r *UserRepository) GetOrCreate(ctx context.Context, phoneNumber string) (*models.User, bool, error) {
	user, err := r.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return nil, false, err
	}

	if user != nil {
		return user, false, nil
	}

	newUser := models.NewUser(uuid.New().String(), phoneNumber)
	if err := r.Create(ctx, newUser); err != nil {
		if !errors.Is(err, ErrUserExists) {
			return nil, false, err
		}

		existing, err := r.GetByPhoneNumber(ctx, phoneNumber)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("user for %s conflicted but could not be read", phoneNumber)
		}
		return existing, false, nil
	}

	r.logger.WithField("user_id", newUser.ID).Info("Created user on first sign-in")
	return newUser, true, nil
}
