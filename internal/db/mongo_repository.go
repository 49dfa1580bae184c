package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/cooltech/internal/models"
)

type mongoUserRepository struct {
	coll *mongo.Collection
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	doc := mongoUser{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Password:  user.PasswordHash,
		Role:      string(user.Role),
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user with email '%s': %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	oid, err := objectID("user", userID)
	if err != nil {
		return nil, err
	}
	var doc mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, wrapMongoError("user", userID, err)
	}
	return doc.model(), nil
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc mongoUser
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user with email '%s' not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	return doc.model(), nil
}

func (r *mongoUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	oids, err := objectIDs("user", ids)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(ids))
	if len(oids) == 0 {
		return users, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	byID := make(map[string]*models.User, len(docs))
	for i := range docs {
		byID[docs[i].ID.Hex()] = docs[i].model()
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (r *mongoUserRepository) List(ctx context.Context) ([]*models.User, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	users := make([]*models.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].model())
	}
	return users, nil
}

func (r *mongoUserRepository) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	oid, err := objectID("user", userID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"role": string(role)}})
	if err != nil {
		return fmt.Errorf("failed to update role of user '%s': %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *mongoUserRepository) DeleteAll(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{})
	return err
}

type mongoOURepository struct {
	coll *mongo.Collection
}

func (r *mongoOURepository) Create(ctx context.Context, ou *models.OU) error {
	divisions, err := objectIDs("division", ou.DivisionIDs)
	if err != nil {
		return err
	}
	res, err := r.coll.InsertOne(ctx, mongoOU{Name: ou.Name, Divisions: divisions})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("OU named '%s': %w", ou.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create OU: %w", err)
	}
	ou.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *mongoOURepository) GetByID(ctx context.Context, ouID string) (*models.OU, error) {
	oid, err := objectID("OU", ouID)
	if err != nil {
		return nil, err
	}
	var doc mongoOU
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, wrapMongoError("OU", ouID, err)
	}
	return doc.model(), nil
}

func (r *mongoOURepository) FindByDivision(ctx context.Context, divisionID string) (*models.OU, error) {
	oid, err := objectID("division", divisionID)
	if err != nil {
		return nil, err
	}
	var doc mongoOU
	if err := r.coll.FindOne(ctx, bson.M{"divisions": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("OU owning division '%s' not found: %w", divisionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query OU by division: %w", err)
	}
	return doc.model(), nil
}

func (r *mongoOURepository) List(ctx context.Context) ([]*models.OU, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list OUs: %w", err)
	}
	var docs []mongoOU
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode OUs: %w", err)
	}
	ous := make([]*models.OU, 0, len(docs))
	for i := range docs {
		ous = append(ous, docs[i].model())
	}
	return ous, nil
}

func (r *mongoOURepository) AddDivision(ctx context.Context, ouID, divisionID string) error {
	oid, err := objectID("OU", ouID)
	if err != nil {
		return err
	}
	did, err := objectID("division", divisionID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$addToSet": bson.M{"divisions": did}})
	if err != nil {
		return fmt.Errorf("failed to attach division '%s' to OU '%s': %w", divisionID, ouID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("OU with ID '%s' not found: %w", ouID, ErrNotFound)
	}
	return nil
}

func (r *mongoOURepository) DeleteAll(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{})
	return err
}

// mongoDivisionRepository relies on MongoDB's single-document atomicity: every
// mutation is one update operator, never a read-modify-write.
type mongoDivisionRepository struct {
	coll *mongo.Collection
}

func (r *mongoDivisionRepository) Create(ctx context.Context, division *models.Division) error {
	employees, err := objectIDs("user", division.EmployeeIDs)
	if err != nil {
		return err
	}
	repo := make([]mongoCredential, 0, len(division.Credentials))
	for _, c := range division.Credentials {
		repo = append(repo, toMongoCredential(c))
	}
	res, err := r.coll.InsertOne(ctx, mongoDivision{Name: division.Name, Repo: repo, Employees: employees})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("division named '%s': %w", division.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create division: %w", err)
	}
	division.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return nil
}

func (r *mongoDivisionRepository) GetByID(ctx context.Context, divisionID string) (*models.Division, error) {
	oid, err := objectID("division", divisionID)
	if err != nil {
		return nil, err
	}
	var doc mongoDivision
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, wrapMongoError("division", divisionID, err)
	}
	return doc.model(), nil
}

func (r *mongoDivisionRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Division, error) {
	oids, err := objectIDs("division", ids)
	if err != nil {
		return nil, err
	}
	divisions := make([]*models.Division, 0, len(ids))
	if len(oids) == 0 {
		return divisions, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query divisions: %w", err)
	}
	var docs []mongoDivision
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode divisions: %w", err)
	}
	byID := make(map[string]*models.Division, len(docs))
	for i := range docs {
		byID[docs[i].ID.Hex()] = docs[i].model()
	}
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			divisions = append(divisions, d)
		}
	}
	return divisions, nil
}

func (r *mongoDivisionRepository) List(ctx context.Context) ([]*models.Division, error) {
	cur, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list divisions: %w", err)
	}
	var docs []mongoDivision
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode divisions: %w", err)
	}
	divisions := make([]*models.Division, 0, len(docs))
	for i := range docs {
		divisions = append(divisions, docs[i].model())
	}
	return divisions, nil
}

func (r *mongoDivisionRepository) updateEmployees(ctx context.Context, divisionID, userID, op string) (bool, error) {
	oid, err := objectID("division", divisionID)
	if err != nil {
		return false, err
	}
	uid, err := objectID("user", userID)
	if err != nil {
		return false, err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{op: bson.M{"employees": uid}})
	if err != nil {
		return false, fmt.Errorf("failed to update employees of division '%s': %w", divisionID, err)
	}
	if res.MatchedCount == 0 {
		return false, fmt.Errorf("division with ID '%s' not found: %w", divisionID, ErrNotFound)
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoDivisionRepository) AddEmployee(ctx context.Context, divisionID, userID string) (bool, error) {
	return r.updateEmployees(ctx, divisionID, userID, "$addToSet")
}

func (r *mongoDivisionRepository) RemoveEmployee(ctx context.Context, divisionID, userID string) (bool, error) {
	return r.updateEmployees(ctx, divisionID, userID, "$pull")
}

// updateEmployeesAcross checks that every division exists before issuing one
// UpdateMany. Each document changes atomically; without a replica-set
// transaction the batch as a whole is not.
func (r *mongoDivisionRepository) updateEmployeesAcross(ctx context.Context, divisionIDs []string, userID, op string) error {
	if len(divisionIDs) == 0 {
		return nil
	}
	oids, err := objectIDs("division", divisionIDs)
	if err != nil {
		return err
	}
	uid, err := objectID("user", userID)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": bson.M{"$in": oids}}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to count divisions: %w", err)
	}
	if n != int64(len(uniqueObjectIDs(oids))) {
		return fmt.Errorf("one or more of %d divisions not found: %w", len(divisionIDs), ErrNotFound)
	}
	if _, err := r.coll.UpdateMany(ctx, filter, bson.M{op: bson.M{"employees": uid}}); err != nil {
		return fmt.Errorf("failed to update employees across divisions: %w", err)
	}
	return nil
}

func uniqueObjectIDs(oids []primitive.ObjectID) map[primitive.ObjectID]struct{} {
	set := make(map[primitive.ObjectID]struct{}, len(oids))
	for _, oid := range oids {
		set[oid] = struct{}{}
	}
	return set
}

func (r *mongoDivisionRepository) AddEmployeeToDivisions(ctx context.Context, divisionIDs []string, userID string) error {
	return r.updateEmployeesAcross(ctx, divisionIDs, userID, "$addToSet")
}

func (r *mongoDivisionRepository) RemoveEmployeeFromDivisions(ctx context.Context, divisionIDs []string, userID string) error {
	return r.updateEmployeesAcross(ctx, divisionIDs, userID, "$pull")
}

func (r *mongoDivisionRepository) AddCredentials(ctx context.Context, divisionID string, creds ...models.Credential) error {
	oid, err := objectID("division", divisionID)
	if err != nil {
		return err
	}
	docs := make([]mongoCredential, 0, len(creds))
	for _, c := range creds {
		docs = append(docs, toMongoCredential(c))
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$push": bson.M{"repo": bson.M{"$each": docs}}})
	if err != nil {
		return fmt.Errorf("failed to add credentials to division '%s': %w", divisionID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("division with ID '%s' not found: %w", divisionID, ErrNotFound)
	}
	return nil
}

func (r *mongoDivisionRepository) UpdateCredential(ctx context.Context, divisionID, credentialID string, patch models.CredentialPatch) (*models.Credential, error) {
	oid, err := objectID("division", divisionID)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid, "repo._id": credentialID}

	var doc mongoDivision
	if patch.Empty() {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	} else {
		set := bson.M{}
		for key, v := range patch.Fields() {
			set["repo.$."+key] = v
		}
		err = r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("credential '%s' in division '%s' not found: %w", credentialID, divisionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update credential '%s': %w", credentialID, err)
	}
	for _, c := range doc.Repo {
		if c.ID == credentialID {
			updated := c.model()
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("credential '%s' in division '%s' not found: %w", credentialID, divisionID, ErrNotFound)
}

func (r *mongoDivisionRepository) RemoveCredential(ctx context.Context, divisionID, credentialID string) error {
	oid, err := objectID("division", divisionID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "repo._id": credentialID},
		bson.M{"$pull": bson.M{"repo": bson.M{"_id": credentialID}}})
	if err != nil {
		return fmt.Errorf("failed to remove credential '%s': %w", credentialID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("credential '%s' in division '%s' not found: %w", credentialID, divisionID, ErrNotFound)
	}
	return nil
}

func (r *mongoDivisionRepository) DeleteAll(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{})
	return err
}
