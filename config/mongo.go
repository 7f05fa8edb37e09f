package config

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client

func mongoOptions(s StoreSettings) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(s.MongoURI).
		SetAppName("podcaster").
		SetServerSelectionTimeout(20 * time.Second).
		SetConnectTimeout(15 * time.Second).
		SetMaxPoolSize(20).
		SetMinPoolSize(1)
	// Some managed clusters stall on TLS 1.3; mongo_tls12 pins 1.2.
	if s.MongoTLS12 {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12, MaxVersion: tls.VersionTLS12})
	}
	return opts
}

// InitMongo connects to store.mongo_uri and pings the primary.
func InitMongo(s StoreSettings) error {
	if s.MongoURI == "" {
		return errors.New("store.mongo_uri is not set (MONGO_URI)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, mongoOptions(s))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo ping: %w", err)
	}

	MongoClient = client
	return nil
}
