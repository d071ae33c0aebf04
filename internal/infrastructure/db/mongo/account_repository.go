package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/papillon/aggregator/internal/core/domain"
)

const collectionAccounts = "accounts"

type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

// accountDoc is the stored shape of an account. Authentication is a tagged
// union of per-service sub-documents; exactly one is set, matching the
// service field. Session handles are never stored.
type accountDoc struct {
	LocalID         string         `bson:"local_id"`
	Service         string         `bson:"service"`
	IsExternal      bool           `bson:"is_external"`
	FirstName       string         `bson:"first_name,omitempty"`
	LastName        string         `bson:"last_name,omitempty"`
	ClassName       string         `bson:"class_name,omitempty"`
	SchoolName      string         `bson:"school_name,omitempty"`
	LinkedExternals []string       `bson:"linked_external_ids,omitempty"`
	Personalization map[string]any `bson:"personalization,omitempty"`
	Username        string         `bson:"username,omitempty"`
	Auth            authDoc        `bson:"auth"`
	CreatedAt       int64          `bson:"created_at"`
}

type authDoc struct {
	Pronote      *pronoteAuthDoc      `bson:"pronote,omitempty"`
	EcoleDirecte *ecoleDirecteAuthDoc `bson:"ecoledirecte,omitempty"`
	Skolengo     *skolengoAuthDoc     `bson:"skolengo,omitempty"`
	Multi        *multiAuthDoc        `bson:"multi,omitempty"`
	Local        *localAuthDoc        `bson:"local,omitempty"`
	Turboself    *turboselfAuthDoc    `bson:"turboself,omitempty"`
	ARD          *ardAuthDoc          `bson:"ard,omitempty"`
	Izly         *izlyAuthDoc         `bson:"izly,omitempty"`
}

type pronoteAuthDoc struct {
	URL           string `bson:"url"`
	Username      string `bson:"username"`
	DeviceUUID    string `bson:"device_uuid"`
	NextTimeToken string `bson:"next_time_token"`
}

type ecoleDirecteAuthDoc struct {
	Username    string `bson:"username"`
	Password    string `bson:"password"`
	DeviceToken string `bson:"device_token"`
}

type skolengoAuthDoc struct {
	RealmURL     string `bson:"realm_url"`
	AccessToken  string `bson:"access_token"`
	RefreshToken string `bson:"refresh_token"`
}

type multiAuthDoc struct {
	InstanceURL  string `bson:"instance_url"`
	RefreshToken string `bson:"refresh_token"`
}

type localAuthDoc struct {
	Provider    string          `bson:"provider"`
	GradeReport *gradeReportDoc `bson:"grade_report,omitempty"`
}

type gradeReportDoc struct {
	CapturedAt int64                  `bson:"captured_at"`
	Resources  map[string]resourceDoc `bson:"resources"`
}

type resourceDoc struct {
	Title       string          `bson:"title"`
	Evaluations []evaluationDoc `bson:"evaluations"`
}

type evaluationDoc struct {
	Description string   `bson:"description,omitempty"`
	Date        int64    `bson:"date,omitempty"`
	Coefficient float64  `bson:"coefficient"`
	Value       *float64 `bson:"value,omitempty"`
	Min         *float64 `bson:"min,omitempty"`
	Max         *float64 `bson:"max,omitempty"`
	Average     *float64 `bson:"average,omitempty"`
}

type turboselfAuthDoc struct {
	Username string `bson:"username"`
	Password string `bson:"password"`
}

type ardAuthDoc struct {
	PID            string `bson:"pid"`
	Username       string `bson:"username"`
	Password       string `bson:"password"`
	SchoolID       string `bson:"school_id"`
	MealPriceCents int    `bson:"meal_price_cents,omitempty"`
}

type izlyAuthDoc struct {
	Identification string `bson:"identification"`
	Secret         string `bson:"secret"`
	Currency       string `bson:"currency,omitempty"`
}

// Create inserts a new account document.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := fromDomain(account)
	if err != nil {
		return err
	}
	doc.CreatedAt = time.Now().Unix()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// FindByLocalID retrieves one account by its local identifier.
func (r *AccountRepository) FindByLocalID(ctx context.Context, localID string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	err := r.col.FindOne(ctx, bson.M{"local_id": localID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return toDomain(&doc)
}

// List returns all stored accounts in creation order.
func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []*domain.Account
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		account, err := toDomain(&doc)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, cursor.Err()
}

// UpdateAuthentication replaces the stored credential payload. Used by the
// reload path to persist rotated tokens.
func (r *AccountRepository) UpdateAuthentication(ctx context.Context, localID string, auth domain.Authentication) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc, err := authFromDomain(auth)
	if err != nil {
		return err
	}

	result, err := r.col.UpdateOne(ctx, bson.M{"local_id": localID}, bson.M{"$set": bson.M{"auth": doc}})
	if err != nil {
		return fmt.Errorf("update authentication: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Link adds the external account to the primary's linked set, once.
func (r *AccountRepository) Link(ctx context.Context, primaryLocalID, externalLocalID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := r.col.UpdateOne(ctx,
		bson.M{"local_id": primaryLocalID},
		bson.M{"$addToSet": bson.M{"linked_external_ids": externalLocalID}},
	)
	if err != nil {
		return fmt.Errorf("link account: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Remove deletes one account document.
func (r *AccountRepository) Remove(ctx context.Context, localID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := r.col.DeleteOne(ctx, bson.M{"local_id": localID})
	if err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the account collection relies on.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "local_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "is_external", Value: 1}}},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create account indexes: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mapping

func fromDomain(account *domain.Account) (*accountDoc, error) {
	auth, err := authFromDomain(account.Authentication)
	if err != nil {
		return nil, err
	}
	return &accountDoc{
		LocalID:         account.LocalID,
		Service:         account.Service.String(),
		IsExternal:      account.IsExternal,
		FirstName:       account.StudentName.First,
		LastName:        account.StudentName.Last,
		ClassName:       account.ClassName,
		SchoolName:      account.SchoolName,
		LinkedExternals: account.LinkedExternalLocalIDs,
		Personalization: account.Personalization,
		Username:        account.Username,
		Auth:            auth,
	}, nil
}

func authFromDomain(auth domain.Authentication) (authDoc, error) {
	var doc authDoc
	switch a := auth.(type) {
	case nil:
		// accounts can exist briefly without credentials (enrolment flow)
	case domain.PronoteAuth:
		doc.Pronote = &pronoteAuthDoc{URL: a.URL, Username: a.Username, DeviceUUID: a.DeviceUUID, NextTimeToken: a.NextTimeToken}
	case domain.EcoleDirecteAuth:
		doc.EcoleDirecte = &ecoleDirecteAuthDoc{Username: a.Username, Password: a.Password, DeviceToken: a.DeviceToken}
	case domain.SkolengoAuth:
		doc.Skolengo = &skolengoAuthDoc{RealmURL: a.RealmURL, AccessToken: a.AccessToken, RefreshToken: a.RefreshToken}
	case domain.MultiAuth:
		doc.Multi = &multiAuthDoc{InstanceURL: a.InstanceURL, RefreshToken: a.RefreshToken}
	case domain.LocalAuth:
		doc.Local = &localAuthDoc{Provider: a.Provider, GradeReport: reportFromDomain(a.GradeReport)}
	case domain.TurboselfAuth:
		doc.Turboself = &turboselfAuthDoc{Username: a.Username, Password: a.Password}
	case domain.ARDAuth:
		doc.ARD = &ardAuthDoc{PID: a.PID, Username: a.Username, Password: a.Password, SchoolID: a.SchoolID, MealPriceCents: a.MealPriceCents}
	case domain.IzlyAuth:
		doc.Izly = &izlyAuthDoc{Identification: a.Identification, Secret: a.Secret, Currency: a.Currency}
	default:
		return doc, fmt.Errorf("store account: unsupported authentication type %T", auth)
	}
	return doc, nil
}

func toDomain(doc *accountDoc) (*domain.Account, error) {
	account := &domain.Account{
		LocalID:                doc.LocalID,
		Service:                domain.ParseService(doc.Service),
		IsExternal:             doc.IsExternal,
		StudentName:            domain.StudentName{First: doc.FirstName, Last: doc.LastName},
		ClassName:              doc.ClassName,
		SchoolName:             doc.SchoolName,
		LinkedExternalLocalIDs: doc.LinkedExternals,
		Personalization:        doc.Personalization,
		Username:               doc.Username,
	}
	if account.Service == 0 {
		return nil, fmt.Errorf("load account %s: unknown service %q", doc.LocalID, doc.Service)
	}

	switch {
	case doc.Auth.Pronote != nil:
		a := doc.Auth.Pronote
		account.Authentication = domain.PronoteAuth{URL: a.URL, Username: a.Username, DeviceUUID: a.DeviceUUID, NextTimeToken: a.NextTimeToken}
	case doc.Auth.EcoleDirecte != nil:
		a := doc.Auth.EcoleDirecte
		account.Authentication = domain.EcoleDirecteAuth{Username: a.Username, Password: a.Password, DeviceToken: a.DeviceToken}
	case doc.Auth.Skolengo != nil:
		a := doc.Auth.Skolengo
		account.Authentication = domain.SkolengoAuth{RealmURL: a.RealmURL, AccessToken: a.AccessToken, RefreshToken: a.RefreshToken}
	case doc.Auth.Multi != nil:
		a := doc.Auth.Multi
		account.Authentication = domain.MultiAuth{InstanceURL: a.InstanceURL, RefreshToken: a.RefreshToken}
	case doc.Auth.Local != nil:
		a := doc.Auth.Local
		account.Authentication = domain.LocalAuth{Provider: a.Provider, GradeReport: reportToDomain(a.GradeReport)}
	case doc.Auth.Turboself != nil:
		a := doc.Auth.Turboself
		account.Authentication = domain.TurboselfAuth{Username: a.Username, Password: a.Password}
	case doc.Auth.ARD != nil:
		a := doc.Auth.ARD
		account.Authentication = domain.ARDAuth{PID: a.PID, Username: a.Username, Password: a.Password, SchoolID: a.SchoolID, MealPriceCents: a.MealPriceCents}
	case doc.Auth.Izly != nil:
		a := doc.Auth.Izly
		account.Authentication = domain.IzlyAuth{Identification: a.Identification, Secret: a.Secret, Currency: a.Currency}
	}
	return account, nil
}

func reportFromDomain(report *domain.GradeReport) *gradeReportDoc {
	if report == nil {
		return nil
	}
	doc := &gradeReportDoc{
		CapturedAt: report.CapturedAt.Unix(),
		Resources:  make(map[string]resourceDoc, len(report.Resources)),
	}
	for key, resource := range report.Resources {
		evals := make([]evaluationDoc, 0, len(resource.Evaluations))
		for _, e := range resource.Evaluations {
			evals = append(evals, evaluationDoc{
				Description: e.Description,
				Date:        e.Date.Unix(),
				Coefficient: e.Coefficient,
				Value:       e.Value,
				Min:         e.Min,
				Max:         e.Max,
				Average:     e.Average,
			})
		}
		doc.Resources[key] = resourceDoc{Title: resource.Title, Evaluations: evals}
	}
	return doc
}

func reportToDomain(doc *gradeReportDoc) *domain.GradeReport {
	if doc == nil {
		return nil
	}
	report := &domain.GradeReport{
		CapturedAt: unixToTime(doc.CapturedAt),
		Resources:  make(map[string]domain.ResourceGrades, len(doc.Resources)),
	}
	for key, resource := range doc.Resources {
		evals := make([]domain.Evaluation, 0, len(resource.Evaluations))
		for _, e := range resource.Evaluations {
			evals = append(evals, domain.Evaluation{
				Description: e.Description,
				Date:        unixToTime(e.Date),
				Coefficient: e.Coefficient,
				Value:       e.Value,
				Min:         e.Min,
				Max:         e.Max,
				Average:     e.Average,
			})
		}
		report.Resources[key] = domain.ResourceGrades{Title: resource.Title, Evaluations: evals}
	}
	return report
}
