package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/vulcano-studio/vulcano-backend/config"
	"github.com/vulcano-studio/vulcano-backend/internal/auth"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/files"
)

// MediaPrefix is where the local file store is served from.
const MediaPrefix = "/media"

func NewVerifier(ctx context.Context, cfg config.AuthConfig) (auth.TokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeFirebase:
		v, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, err
		}
		log.Println("auth: firebase ID tokens")
		return v, nil
	case config.AuthModeDev:
		log.Println("Warning: auth: trusting X-User-Id headers (development only)")
		return auth.NewDevVerifier(), nil
	}
	return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
}

// NewFileStore returns the configured store and, for the local driver, the
// directory to serve under MediaPrefix.
func NewFileStore(ctx context.Context, cfg config.StorageConfig) (files.Store, string, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		s, err := files.NewS3Store(ctx, files.S3Options{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, "", err
		}
		log.Printf("storage: s3 bucket %s", cfg.Bucket)
		return s, "", nil
	case config.StorageDriverLocal:
		s, err := files.NewLocalStore(cfg.LocalDir, MediaPrefix)
		if err != nil {
			return nil, "", err
		}
		log.Printf("storage: local dir %s", s.Root())
		return s, s.Root(), nil
	}
	return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
