// Package audit keeps a history of order changes in MongoDB.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/KarenYumi/OrganizationApp/internal/domain"
)

// Log represents an audit log entry
type Log struct {
	ID        string    `bson:"_id,omitempty" json:"-"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"event_id"`
	Data      bson.M    `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

type Auditor struct {
	client  *mongo.Client
	coll    collection
	service string
}

func Connect(ctx context.Context, uri, database, coll, service string) (*Auditor, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Auditor{
		client:  client,
		coll:    client.Database(database).Collection(coll),
		service: service,
	}, nil
}

// Notify implements service.ChangeNotifier.
func (a *Auditor) Notify(ctx context.Context, change domain.EventChange) error {
	entry := &Log{
		Service:   a.service,
		Action:    string(change.Action),
		EntityID:  change.EventID,
		CreatedAt: change.At,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if e := change.Event; e != nil {
		entry.Data = bson.M{
			"title":    e.Title,
			"date":     e.Date,
			"time":     e.Time,
			"address":  e.Address,
			"status":   string(e.Status),
			"products": e.Items,
		}
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// History returns the latest entries for one event, newest first.
func (a *Auditor) History(ctx context.Context, eventID string, limit int64) ([]*Log, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := a.coll.Find(ctx, bson.M{"entity_id": eventID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := make([]*Log, 0)
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (a *Auditor) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}
