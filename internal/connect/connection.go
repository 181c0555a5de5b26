package connect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/joshua-takyi/airportcar/internal/config"
)

var (
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
)

func InitSupabase(cfg *config.Config) (*supabase.Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	SupabaseClient = client
	return client, nil
}

func MongoDBConnect(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	fullURI := strings.Replace(cfg.MongoDBURI, "<password>", cfg.MongoDBPassword, 1)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(fullURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	MongoDBClient = client
	return client, nil
}

func MongoDBDisconnect() error {
	if MongoDBClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := MongoDBClient.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	MongoDBClient = nil
	return nil
}

func CloudinaryCredentials(cfg *config.Config) (*cloudinary.Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return cld, nil
}

// RabbitMQ holds the broker connection and the channel used for publishing.
type RabbitMQ struct {
	Conn *amqp.Connection
	Chan *amqp.Channel
}

// RabbitMQConnect dials the broker, retrying with exponential backoff.
func RabbitMQConnect(ctx context.Context, url string, attempts int, logger *slog.Logger) (*RabbitMQ, error) {
	var err error
	backoff := time.Second

	for i := 1; i <= attempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			ch, chErr := conn.Channel()
			if chErr != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to open channel: %w", chErr)
			}
			return &RabbitMQ{Conn: conn, Chan: ch}, nil
		}

		logger.Warn("RabbitMQ connect attempt failed", "attempt", i, "error", err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
}

func (r *RabbitMQ) Close() {
	if r == nil {
		return
	}
	if r.Chan != nil {
		_ = r.Chan.Close()
	}
	if r.Conn != nil {
		_ = r.Conn.Close()
	}
}
