package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/observability"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

const (
	transformColl = "transforms"
	tileSpecColl  = "tilespecs"
)

// MongoStore persists specs in MongoDB, one collection per spec kind.
// Documents carry the stack, the spec id, and the spec's interchange JSON
// as text, so stored specs stay readable from the mongo shell.
type MongoStore struct {
	client *mongo.Client
	txs    *mongo.Collection
	tiles  *mongo.Collection
}

// MongoOptions configure the database connection.
type MongoOptions struct {
	// URI is the connection string, e.g. mongodb://localhost:27017.
	URI string
	// Database names the database holding the spec collections.
	Database string
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping before returning the store.
func NewMongoStore(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connecting to %s", opts.URI)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeStore, err, "pinging %s", opts.URI)
	}

	db := client.Database(opts.Database)
	return &MongoStore{
		client: client,
		txs:    db.Collection(transformColl),
		tiles:  db.Collection(tileSpecColl),
	}, nil
}

type specDoc struct {
	Stack string `bson:"stack"`
	ID    string `bson:"id"`
	Spec  string `bson:"spec"`
}

func (s *MongoStore) Stacks(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for _, coll := range []*mongo.Collection{s.txs, s.tiles} {
		names, err := coll.Distinct(ctx, "stack", bson.D{})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStore, err, "listing stacks")
		}
		for _, n := range names {
			if name, ok := n.(string); ok {
				seen[name] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MongoStore) GetTransform(ctx context.Context, stack, id string) (transform.Transform, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}
	if err := errors.ValidateTransformID(id); err != nil {
		return nil, err
	}

	var doc specDoc
	err := s.txs.FindOne(ctx, bson.M{"stack": stack, "id": id}).Decode(&doc)
	observability.Store().OnStoreGet(ctx, stack, id, err == nil)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.New(errors.ErrCodeNotFound, "transform %q not found in stack %q", id, stack)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "loading transform %q", id)
	}
	return transform.Decode([]byte(doc.Spec))
}

func (s *MongoStore) PutTransform(ctx context.Context, stack string, t transform.Transform) (string, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return "", err
	}
	if err := validateClassNames(t); err != nil {
		return "", err
	}
	id, err := ensureSpecID(t)
	if err != nil {
		return "", err
	}
	data, err := transform.Encode(t)
	if err != nil {
		return "", err
	}

	doc := specDoc{Stack: stack, ID: id, Spec: string(data)}
	_, err = s.txs.ReplaceOne(ctx, bson.M{"stack": stack, "id": id}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStore, err, "storing transform %q", id)
	}
	observability.Store().OnStorePut(ctx, stack, id)
	return id, nil
}

func (s *MongoStore) ListTransforms(ctx context.Context, stack string) ([]string, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}

	cur, err := s.txs.Find(ctx, bson.M{"stack": stack},
		options.Find().SetProjection(bson.M{"id": 1}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "listing transforms in %q", stack)
	}
	var docs []specDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "listing transforms in %q", stack)
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MongoStore) GetTileSpec(ctx context.Context, stack, tileID string) (*tilespec.TileSpec, error) {
	if err := errors.ValidateStackName(stack); err != nil {
		return nil, err
	}
	if err := errors.ValidateTileID(tileID); err != nil {
		return nil, err
	}

	var doc specDoc
	err := s.tiles.FindOne(ctx, bson.M{"stack": stack, "id": tileID}).Decode(&doc)
	observability.Store().OnStoreGet(ctx, stack, tileID, err == nil)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.New(errors.ErrCodeNotFound, "tile %q not found in stack %q", tileID, stack)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "loading tile %q", tileID)
	}

	var ts tilespec.TileSpec
	if err := json.Unmarshal([]byte(doc.Spec), &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

func (s *MongoStore) PutTileSpec(ctx context.Context, stack string, ts *tilespec.TileSpec) error {
	if err := errors.ValidateStackName(stack); err != nil {
		return err
	}
	if err := ts.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(ts)
	if err != nil {
		return err
	}

	doc := specDoc{Stack: stack, ID: ts.TileID, Spec: string(data)}
	_, err = s.tiles.ReplaceOne(ctx, bson.M{"stack": stack, "id": ts.TileID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "storing tile %q", ts.TileID)
	}
	observability.Store().OnStorePut(ctx, stack, ts.TileID)
	return nil
}

// Close disconnects from the database.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
