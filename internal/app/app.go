package app

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/withyou-app/withyou/internal/config"
	"github.com/withyou-app/withyou/internal/db"
	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/push"
	"github.com/withyou-app/withyou/internal/repository"
	"github.com/withyou-app/withyou/internal/service"
	"github.com/withyou-app/withyou/internal/storage"
	"google.golang.org/api/option"
)

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Broker              *pubsub.Broker
	ProfileRepository   repository.ProfileRepository
	AuthService         *service.AuthService
	ProfileService      *service.ProfileService
	EmailService        *service.EmailService
	NotificationService *service.NotificationService
	GoalService         *service.GoalService
	BoostService        *service.BoostService
	MissionService      *service.MissionService
	FriendService       *service.FriendService
	ReminderService     *service.ReminderService
	SchedulerService    *service.SchedulerService
	Rotator             *service.Rotator
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	dialect := db.Dialect(cfg.DBDriver)

	// Repositories
	profileRepository := repository.NewProfileRepository(database, dialect)
	goalRepository := repository.NewGoalRepository(database)
	pastGoalRepository := repository.NewPastGoalRepository(database)
	boostRepository := repository.NewBoostRepository(database, dialect)
	missionRepository := repository.NewMissionRepository(database, dialect)
	notificationRepository := repository.NewNotificationRepository(database, dialect)
	deviceTokenRepository := repository.NewDeviceTokenRepository(database)
	friendRepository := repository.NewFriendRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Identity provider and push
	verifier, sender, err := initFirebase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics.Register(prometheus.DefaultRegisterer)

	broker := pubsub.NewBroker()
	loc := cfg.Location()

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(verifier, cfg.JWTSecret, cfg.JWTExpiry, cfg.DevTokensEnabled())
	notificationService := service.NewNotificationService(notificationRepository, deviceTokenRepository, sender, broker, cfg.AppName)
	profileService := service.NewProfileService(profileRepository, broker)
	goalService := service.NewGoalService(
		goalRepository,
		pastGoalRepository,
		boostRepository,
		profileRepository,
		friendRepository,
		fileStorage,
		notificationService,
		broker,
		loc,
	)
	boostService := service.NewBoostService(boostRepository, goalRepository, friendRepository, fileStorage, broker, loc)
	missionService := service.NewMissionService(
		missionRepository,
		friendRepository,
		profileRepository,
		fileStorage,
		notificationService,
		emailService,
		broker,
	)
	friendService := service.NewFriendService(friendRepository, profileRepository, goalRepository, emailService, broker, loc)
	reminderService := service.NewReminderService(goalRepository, notificationService, cfg.AppName, loc)
	schedulerService := service.NewSchedulerService(loc)

	if cfg.ReminderTime != "" {
		_, err = schedulerService.ScheduleDaily(cfg.ReminderTime, "daily_reminder", func(ctx context.Context) error {
			_, err := reminderService.Run(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to schedule reminder: %v", err)
		}
	}

	return &App{
		Cfg:                 cfg,
		DB:                  database,
		Broker:              broker,
		ProfileRepository:   profileRepository,
		AuthService:         authService,
		ProfileService:      profileService,
		EmailService:        emailService,
		NotificationService: notificationService,
		GoalService:         goalService,
		BoostService:        boostService,
		MissionService:      missionService,
		FriendService:       friendService,
		ReminderService:     reminderService,
		SchedulerService:    schedulerService,
		Rotator:             service.NewRotator(cfg.RotationInterval, cfg.RotationFade),
	}, nil
}

// initFirebase returns the ID token verifier and push sender. Without
// credentials only development tokens are accepted and push is disabled.
func initFirebase(ctx context.Context, cfg *config.Config) (service.TokenVerifier, push.Sender, error) {
	if !cfg.FirebaseEnabled() {
		slog.Warn("firebase not configured, push disabled and only development tokens accepted")
		return nil, push.NoopSender{}, nil
	}

	fbApp, err := firebase.NewApp(ctx,
		&firebase.Config{ProjectID: cfg.FirebaseProjectID},
		option.WithCredentialsFile(cfg.FirebaseCredentialsFile),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize firebase: %v", err)
	}

	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize firebase auth: %v", err)
	}

	sender, err := push.NewFCMSender(ctx, fbApp)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize push: %v", err)
	}

	return authClient, sender, nil
}

func (a *App) Close() error {
	if a.Broker != nil {
		a.Broker.Close()
	}
	return db.Close(a.DB)
}
