package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectDB() *mongo.Client {

	log.Println("Attempting to connect to MongoDB...")

	// Read from environment variable
	mongoURI := os.Getenv("MONGO_URI")

	// Fallback for local development
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	log.Println("Using Mongo URI:", mongoURI)

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatalf("MongoDB is not reachable: %v", err)
	}

	log.Println("Successfully connected to MongoDB!")
	return client
}

var (
	Client      *mongo.Client
	connectOnce sync.Once
)

// OpenCollection connects on first use so importing this package (e.g.
// from tests) does not require a reachable database.
func OpenCollection(collectionName string) *mongo.Collection {

	connectOnce.Do(func() { Client = ConnectDB() })

	if Client == nil {
		log.Fatal("MongoDB client is not initialized.")
	}

	return Client.Database("breathemate").Collection(collectionName)
}

// GenerateRandomKey returns a random hex key used to sign JWTs for this
// process lifetime.
func GenerateRandomKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}
	return hex.EncodeToString(b)
}
