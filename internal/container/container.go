package container

import (
	"log/slog"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/joshua-takyi/airportcar/internal/config"
	"github.com/joshua-takyi/airportcar/internal/geo"
	"github.com/joshua-takyi/airportcar/internal/helpers"
	"github.com/joshua-takyi/airportcar/internal/models"
	"github.com/joshua-takyi/airportcar/internal/notify"
	"github.com/joshua-takyi/airportcar/internal/payments"
	"github.com/joshua-takyi/airportcar/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database clients
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	Repo           *models.MongodbRepo

	TokenValidator *helpers.TokenValidator
	Payments       *payments.StripeGateway

	UserService     *services.UserService
	SettingsService *services.SettingsService
	FareService     *services.FareService
	BookingService  *services.BookingService
	CMSService      *services.CMSService
	AdminService    *services.AdminService
	DriverService   *services.DriverService
	FeedbackService *services.FeedbackService
	ReceiptService  *services.ReceiptService
}

// Deps are the connected clients the container wires together. Cloudinary
// and Notifier may be nil; uploads are then disabled and events are only
// logged.
type Deps struct {
	Config         *config.Config
	Logger         *slog.Logger
	SupabaseClient *supabase.Client
	MongoDBClient  *mongo.Client
	Maps           *geo.MapsClient
	TokenValidator *helpers.TokenValidator
	Cloudinary     *cloudinary.Cloudinary
	Notifier       notify.Notifier
}

// NewContainer creates a new dependency injection container
func NewContainer(d Deps) *Container {
	cfg := d.Config

	// Initialize repositories
	supa := models.SupabaseNewRepo(d.SupabaseClient, cfg.SupabaseURL, cfg.SupabaseAnonKey)
	mongoRepo := models.MongodbNewRepo(d.MongoDBClient, cfg.MongoDBDatabase)

	notifier := d.Notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(d.Logger)
	}

	var gateway *payments.StripeGateway
	var paymentGateway services.PaymentGateway
	if cfg.PaymentsEnabled() {
		gateway = payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.PublicBaseURL, cfg.Currency)
		paymentGateway = gateway
	}

	var uploader services.ImageUploader
	if d.Cloudinary != nil {
		uploader = helpers.NewCloudinaryUploader(d.Cloudinary, helpers.CMSFolder)
	}

	settingsService := services.NewSettingsService(mongoRepo, d.Logger)
	fareService := services.NewFareService(d.Maps, settingsService)
	availability := services.NewAvailabilityService(mongoRepo)
	bookingService := services.NewBookingService(
		mongoRepo,
		mongoRepo,
		fareService,
		settingsService,
		availability,
		notifier,
		paymentGateway,
		cfg.QuoteTTL,
		d.Logger,
	)
	cmsService := services.NewCMSService(mongoRepo, uploader, d.Logger)

	return &Container{
		Config:          cfg,
		Logger:          d.Logger,
		SupabaseClient:  d.SupabaseClient,
		MongoDBClient:   d.MongoDBClient,
		Repo:            mongoRepo,
		TokenValidator:  d.TokenValidator,
		Payments:        gateway,
		UserService:     services.NewUserService(supa),
		SettingsService: settingsService,
		FareService:     fareService,
		BookingService:  bookingService,
		CMSService:      cmsService,
		AdminService:    services.NewAdminService(mongoRepo, mongoRepo, mongoRepo, bookingService, d.Logger),
		DriverService:   services.NewDriverService(mongoRepo, d.Logger),
		FeedbackService: services.NewFeedbackService(mongoRepo, mongoRepo, bookingService, d.Logger),
		ReceiptService:  services.NewReceiptService(cmsService, settingsService),
	}
}
