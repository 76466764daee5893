package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"breathemate/config"
	"breathemate/models"
)

// AnalyticsStore is the durable load/save boundary for per-profile
// analytics. Load is called once at profile activation, Save after every
// completed session.
type AnalyticsStore interface {
	Load(ctx context.Context, profileID string) (*models.Analytics, error)
	Save(ctx context.Context, profileID string, analytics *models.Analytics) error
}

// MongoAnalyticsStore keeps one analytics document per profile.
type MongoAnalyticsStore struct{}

func (MongoAnalyticsStore) Load(ctx context.Context, profileID string) (*models.Analytics, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	coll := config.OpenCollection("analytics")

	var out models.Analytics
	err := coll.FindOne(ctx, bson.M{"profile_id": profileID}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return models.NewAnalytics(profileID), nil
	}
	if err != nil {
		return nil, err
	}
	if out.WeeklyProgress == nil {
		out.WeeklyProgress = map[string]models.WeeklyStats{}
	}
	if out.CategoryPerformance == nil {
		out.CategoryPerformance = map[models.Category]models.CategoryStats{}
	}
	return &out, nil
}

func (MongoAnalyticsStore) Save(ctx context.Context, profileID string, analytics *models.Analytics) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	coll := config.OpenCollection("analytics")

	filter := bson.M{"profile_id": profileID}
	opts := options.Replace().SetUpsert(true)
	doc := analytics.Clone()
	doc.ProfileID = profileID
	_, err := coll.ReplaceOne(ctx, filter, doc, opts)
	return err
}

// MemoryAnalyticsStore backs tests and offline runs.
type MemoryAnalyticsStore struct {
	mu   sync.Mutex
	data map[string]*models.Analytics

	// FailSaves makes Save return this error while set.
	FailSaves error
}

func NewMemoryAnalyticsStore() *MemoryAnalyticsStore {
	return &MemoryAnalyticsStore{data: map[string]*models.Analytics{}}
}

func (m *MemoryAnalyticsStore) Load(ctx context.Context, profileID string) (*models.Analytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.data[profileID]; ok {
		return a.Clone(), nil
	}
	return models.NewAnalytics(profileID), nil
}

func (m *MemoryAnalyticsStore) Save(ctx context.Context, profileID string, analytics *models.Analytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.data[profileID] = analytics.Clone()
	return nil
}
