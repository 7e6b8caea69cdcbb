// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
)

// DynamoDB item attributes. The table's hash key must be a string attribute
// named "key". Enabling DynamoDB TTL on "ttl" lets the table purge expired
// entries; reads do not depend on it.
const (
	dynamoKeyAttr       = "key"
	dynamoValueAttr     = "value"
	dynamoExpiredAtAttr = "expired_at"
	dynamoTTLAttr       = "ttl"
)

type DynamoCache struct {
	db    dynamodbiface.DynamoDBAPI
	table string
	now   func() time.Time
}

var _ Cache = (*DynamoCache)(nil)

func NewDynamoCache(db dynamodbiface.DynamoDBAPI, table string) *DynamoCache {
	return &DynamoCache{
		db:    db,
		table: table,
		now:   time.Now,
	}
}

func NewDynamoCacheForRegion(region, table string) (*DynamoCache, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create AWS session")
	}
	return NewDynamoCache(dynamodb.New(sess), table), nil
}

func (c *DynamoCache) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := c.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.table),
		ConsistentRead: aws.Bool(true),
		Key: map[string]*dynamodb.AttributeValue{
			dynamoKeyAttr: {S: aws.String(key)},
		},
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to get %s from dynamodb table %s", key, c.table)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}

	e := Entry{}
	if v := out.Item[dynamoValueAttr]; v != nil {
		e.Value = aws.StringValue(v.S)
	}
	if v := out.Item[dynamoExpiredAtAttr]; v != nil && v.N != nil {
		e.ExpiredAt, err = strconv.ParseInt(*v.N, 10, 64)
		if err != nil {
			return "", false, errors.Wrapf(err, "invalid %s for %s", dynamoExpiredAtAttr, key)
		}
	}
	if e.Expired(c.now()) {
		return "", false, nil
	}
	return e.Value, true, nil
}

func (c *DynamoCache) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	e := NewEntry(value, expiresAt)
	if e.Expired(c.now()) {
		return nil
	}
	item := map[string]*dynamodb.AttributeValue{
		dynamoKeyAttr:   {S: aws.String(key)},
		dynamoValueAttr: {S: aws.String(value)},
	}
	if e.ExpiredAt != 0 {
		item[dynamoExpiredAtAttr] = &dynamodb.AttributeValue{N: aws.String(strconv.FormatInt(e.ExpiredAt, 10))}
		item[dynamoTTLAttr] = &dynamodb.AttributeValue{N: aws.String(strconv.FormatInt(expiresAt.Unix(), 10))}
	}
	_, err := c.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put %s to dynamodb table %s", key, c.table)
	}
	return nil
}
