package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stocktake/internal/core"
	"stocktake/internal/store"
)

// Store keeps the ledger in a MongoDB collection. Documents carry no
// sequence of their own; ObjectID order is the append order, which is what
// RemoveLast leans on.
type Store struct {
	client   *mongo.Client
	dbName   string
	collName string
}

var _ store.Store = (*Store)(nil)

type txDoc struct {
	Timestamp string `bson:"ts"`
	Action    string `bson:"action"`
	Model     string `bson:"model"`
	Location  string `bson:"location"`
	Quantity  int    `bson:"quantity"`
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &Store{
		client:   client,
		dbName:   dbName,
		collName: "transactions",
	}, nil
}

func (s *Store) collection() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(s.collName)
}

func (s *Store) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.collection().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer cur.Close(ctx)

	var out []core.Transaction
	for cur.Next(ctx) {
		var doc txDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		tx, ok := docToTx(doc)
		if !ok {
			continue
		}
		out = append(out, tx)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

func (s *Store) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	res, err := s.collection().InsertOne(ctx, txToDoc(tx))
	if err != nil {
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *Store) RemoveLast(ctx context.Context) (core.Transaction, error) {
	opts := options.FindOneAndDelete().SetSort(bson.D{{Key: "_id", Value: -1}})
	var doc txDoc
	err := s.collection().FindOneAndDelete(ctx, bson.D{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, store.ErrEmptyLedger
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("failed to delete last transaction: %w", err)
	}
	tx, _ := docToTx(doc)
	return tx, nil
}

func (s *Store) Wipe(ctx context.Context) error {
	if _, err := s.collection().DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to wipe transactions: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func txToDoc(tx core.Transaction) txDoc {
	return txDoc{
		Timestamp: tx.Timestamp.Format(core.TimestampLayout),
		Action:    string(tx.Action),
		Model:     tx.Model,
		Location:  string(tx.Location),
		Quantity:  tx.Quantity,
	}
}

func docToTx(doc txDoc) (core.Transaction, bool) {
	model := core.NormalizeModel(doc.Model)
	if model == "" {
		return core.Transaction{}, false
	}
	ts, _ := time.ParseInLocation(core.TimestampLayout, doc.Timestamp, time.Local)
	action := core.Action(doc.Action)
	if action == "" {
		action = core.ActionFor(doc.Quantity)
	}
	return core.Transaction{
		Timestamp: ts,
		Action:    action,
		Model:     model,
		Location:  core.Location(doc.Location),
		Quantity:  doc.Quantity,
	}, true
}
