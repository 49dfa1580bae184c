package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/example/cooltech/internal/models"
)

const (
	mongoUsers     = "users"
	mongoOUs       = "ous"
	mongoDivisions = "divisions"
)

// mongoUser is the stored form of models.User.
type mongoUser struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	FirstName string             `bson:"firstname"`
	LastName  string             `bson:"lastname"`
	Password  string             `bson:"password"`
	Role      string             `bson:"role"`
}

type mongoOU struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	Divisions []primitive.ObjectID `bson:"divisions"`
}

// mongoCredential is embedded in mongoDivision.repo. Its id is generated by
// the service layer, so it is kept as a string.
type mongoCredential struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name"`
	URL         string `bson:"url"`
	UserName    string `bson:"userName"`
	Password    string `bson:"password"`
	Description string `bson:"description"`
}

type mongoDivision struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	Repo      []mongoCredential    `bson:"repo"`
	Employees []primitive.ObjectID `bson:"employees"`
}

// NewMongoStore connects to uri, verifies the connection and makes sure the
// unique indexes exist.
func NewMongoStore(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	mdb := client.Database(database)
	for _, coll := range []struct{ name, key string }{
		{mongoUsers, "email"},
		{mongoOUs, "name"},
		{mongoDivisions, "name"},
	} {
		_, err := mdb.Collection(coll.name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: coll.key, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create unique index on %s.%s: %w", coll.name, coll.key, err)
		}
	}

	return &Store{
		Users:     &mongoUserRepository{coll: mdb.Collection(mongoUsers)},
		OUs:       &mongoOURepository{coll: mdb.Collection(mongoOUs)},
		Divisions: &mongoDivisionRepository{coll: mdb.Collection(mongoDivisions)},
		Close:     func() error { return client.Disconnect(context.Background()) },
	}, nil
}

// objectID parses a hex id. A malformed id can never match a document, so it
// is reported as not found.
func objectID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s with ID '%s' not found: %w", kind, id, ErrNotFound)
	}
	return oid, nil
}

func objectIDs(kind string, ids []string) ([]primitive.ObjectID, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := objectID(kind, id)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

func hexIDs(oids []primitive.ObjectID) []string {
	ids := make([]string, 0, len(oids))
	for _, oid := range oids {
		ids = append(ids, oid.Hex())
	}
	return ids
}

func wrapMongoError(kind, id string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s with ID '%s' not found: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s '%s': %w", kind, id, err)
}

func (u *mongoUser) model() *models.User {
	return &models.User{
		ID:           u.ID.Hex(),
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.Password,
		Role:         models.Role(u.Role),
	}
}

func (o *mongoOU) model() *models.OU {
	return &models.OU{ID: o.ID.Hex(), Name: o.Name, DivisionIDs: hexIDs(o.Divisions)}
}

func (c mongoCredential) model() models.Credential {
	return models.Credential{
		ID:          c.ID,
		Name:        c.Name,
		URL:         c.URL,
		UserName:    c.UserName,
		Password:    c.Password,
		Description: c.Description,
	}
}

func toMongoCredential(c models.Credential) mongoCredential {
	return mongoCredential{
		ID:          c.ID,
		Name:        c.Name,
		URL:         c.URL,
		UserName:    c.UserName,
		Password:    c.Password,
		Description: c.Description,
	}
}

func (d *mongoDivision) model() *models.Division {
	creds := make([]models.Credential, 0, len(d.Repo))
	for _, c := range d.Repo {
		creds = append(creds, c.model())
	}
	return &models.Division{ID: d.ID.Hex(), Name: d.Name, Credentials: creds, EmployeeIDs: hexIDs(d.Employees)}
}
