package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/repo"
)

var _ repo.AlertStore = (*Store)(nil)

// Layout names the collections and document fields the alert hierarchy uses.
// The mobile clients own this schema, so every name is configurable.
type Layout struct {
	UsersCollection  string // e.g. "users"
	AlertsCollection string // subcollection under each user, e.g. "alarms"

	TokenField  string // device token, e.g. "FCMDeviceToken"
	TargetField string // vessel identifier, e.g. "vesselMMSI"
	LabelField  string // alert/ship name, e.g. "name"
	ModeField   string // "mode"
	RadiusField string // "radiusMeters"
	LatField    string // "centerLat"
	LonField    string // "centerLon"
}

// Store reads the users/{uid}/alarms/{aid} hierarchy from Firestore.
type Store struct {
	client *firestore.Client
	layout Layout
	log    *zap.Logger
}

func New(client *firestore.Client, layout Layout, log *zap.Logger) *Store {
	return &Store{client: client, layout: layout, log: log}
}

func (s *Store) Owners(ctx context.Context) (repo.OwnerIterator, error) {
	it := s.client.Collection(s.layout.UsersCollection).Documents(ctx)
	return &ownerIter{it: it}, nil
}

func (s *Store) Alerts(ctx context.Context, owner domain.OwnerID) (repo.AlertIterator, error) {
	it := s.client.
		Collection(s.layout.UsersCollection).
		Doc(string(owner)).
		Collection(s.layout.AlertsCollection).
		Documents(ctx)
	return &alertIter{it: it, owner: owner, layout: s.layout}, nil
}

func (s *Store) GetAlert(ctx context.Context, owner domain.OwnerID, id domain.AlertID) (*domain.AlertRecord, error) {
	doc, err := s.client.
		Collection(s.layout.UsersCollection).
		Doc(string(owner)).
		Collection(s.layout.AlertsCollection).
		Doc(string(id)).
		Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get alert %s/%s: %w", owner, id, mapErr(err))
	}
	if !doc.Exists() {
		return nil, repo.ErrNotFound
	}
	rec := recordFromDoc(owner, domain.AlertID(doc.Ref.ID), doc.Data(), s.layout)
	return &rec, nil
}

type ownerIter struct {
	it *firestore.DocumentIterator
}

func (o *ownerIter) Next() (domain.OwnerID, error) {
	doc, err := o.it.Next()
	if err == iterator.Done {
		return "", iterator.Done
	}
	if err != nil {
		return "", mapErr(err)
	}
	return domain.OwnerID(doc.Ref.ID), nil
}

type alertIter struct {
	it     *firestore.DocumentIterator
	owner  domain.OwnerID
	layout Layout
}

func (a *alertIter) Next() (domain.AlertRecord, error) {
	doc, err := a.it.Next()
	if err == iterator.Done {
		return domain.AlertRecord{}, iterator.Done
	}
	if err != nil {
		return domain.AlertRecord{}, mapErr(err)
	}
	return recordFromDoc(a.owner, domain.AlertID(doc.Ref.ID), doc.Data(), a.layout), nil
}

func recordFromDoc(owner domain.OwnerID, id domain.AlertID, data map[string]interface{}, l Layout) domain.AlertRecord {
	return domain.AlertRecord{
		Owner:        owner,
		ID:           id,
		Target:       domain.TargetID(asString(data[l.TargetField])),
		TargetLabel:  asString(data[l.LabelField]),
		DeviceToken:  asString(data[l.TokenField]),
		Mode:         domain.ParseMode(asString(data[l.ModeField])),
		RadiusMeters: asFloat(data[l.RadiusField]),
		CenterLat:    asFloat(data[l.LatField]),
		CenterLon:    asFloat(data[l.LonField]),
	}
}

// Firestore hands numbers back as int64 or float64 depending on how the
// client app wrote them, and the MMSI shows up as either a string or a number.
func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return ""
	}
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	default:
		return 0
	}
}

func mapErr(err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", repo.ErrAccessDenied, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %v", repo.ErrNotFound, err)
	default:
		return err
	}
}
