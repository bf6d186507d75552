// Package mongo is the MongoDB-backed task store used in production
// deployments.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tjfontaine/kb-agent/internal/taskstore"
)

const connectTimeout = 10 * time.Second

// Store is a MongoDB implementation of taskstore.Store.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ taskstore.Store = (*Store)(nil)

// New connects to MongoDB and pings it before returning; an unreachable
// server fails here rather than on the first task.
func New(uri, database, collection string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongodb connection string not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *Store) CreateTask(ctx context.Context, task *taskstore.Task) (string, error) {
	id, err := s.nextTaskID(ctx)
	if err != nil {
		return "", err
	}

	doc := *task
	doc.ID = id
	if doc.DependsOn == nil {
		doc.DependsOn = []string{}
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}

	task.ID = id
	return id, nil
}

// nextTaskID scans existing task_id values and returns the next numeric id.
// Uniqueness relies on the agent being the collection's only writer.
func (s *Store) nextTaskID(ctx context.Context) (string, error) {
	cursor, err := s.collection.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"task_id": 1, "_id": 0}))
	if err != nil {
		return "", fmt.Errorf("failed to scan task ids: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			TaskID string `bson:"task_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return "", fmt.Errorf("failed to decode task id: %w", err)
		}
		ids = append(ids, doc.TaskID)
	}
	if err := cursor.Err(); err != nil {
		return "", fmt.Errorf("failed to scan task ids: %w", err)
	}

	return taskstore.NextNumericID(ids), nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*taskstore.Task, error) {
	var task taskstore.Task
	err := s.collection.FindOne(ctx, bson.M{"task_id": id}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, taskstore.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, fields map[string]any) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"task_id": id},
		bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return taskstore.ErrTaskNotFound
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, status string) ([]*taskstore.Task, error) {
	filter := bson.M{}
	if status != "" {
		filter["task_status"] = status
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := make([]*taskstore.Task, 0)
	for cursor.Next(ctx) {
		var task taskstore.Task
		if err := cursor.Decode(&task); err != nil {
			return nil, fmt.Errorf("failed to decode task: %w", err)
		}
		tasks = append(tasks, &task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
