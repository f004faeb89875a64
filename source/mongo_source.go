package source

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoSourceOptions struct {
	URI        string `cfg:"uri" def:"mongodb://localhost:27017"`
	Database   string `cfg:"database" validate:"required"`
	Collection string `cfg:"collection" def:"config_files"`
	// 文档 _id
	Name string `cfg:"name" validate:"required"`
	// 保存配置文本的字段
	Field   string        `cfg:"field" def:"content"`
	Timeout time.Duration `cfg:"timeout" def:"10s"`
}

type MongoSource struct {
	client     *mongo.Client
	collection *mongo.Collection
	name       string
	field      string
}

func NewMongoSourceWithOptions(opts *MongoSourceOptions) (*MongoSource, error) {
	if opts == nil {
		return nil, errors.New("options is nil")
	}
	if opts.Database == "" || opts.Name == "" {
		return nil, errors.New("database and name are required")
	}

	uri := opts.URI
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo.Connect failed")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo.Ping failed")
	}

	collection := opts.Collection
	if collection == "" {
		collection = "config_files"
	}
	field := opts.Field
	if field == "" {
		field = "content"
	}

	return &MongoSource{
		client:     client,
		collection: client.Database(opts.Database).Collection(collection),
		name:       opts.Name,
		field:      field,
	}, nil
}

func (s *MongoSource) Name() string {
	return "mongo/" + s.collection.Name() + "/" + s.name
}

func (s *MongoSource) Open(ctx context.Context) (io.ReadCloser, error) {
	var doc bson.M
	err := s.collection.FindOne(ctx, bson.M{"_id": s.name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(ErrNotFound, "_id: %s", s.name)
		}
		return nil, errors.Wrap(err, "mongo.FindOne failed")
	}

	content, ok := doc[s.field].(string)
	if !ok {
		return nil, errors.Errorf("field %q is not a string in document %s", s.field, s.name)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (s *MongoSource) Close() error {
	return s.client.Disconnect(context.Background())
}
