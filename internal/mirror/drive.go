package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type DriveConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

// DriveProvider mirrors files into a Google Drive folder, the legacy
// backend the server supported before the object store.
type DriveProvider struct {
	service  *drive.Service
	folderID string
}

func NewDriveProvider(ctx context.Context, cfg DriveConfig) (*DriveProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("drive client id, secret and refresh token are required")
	}

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{drive.DriveFileScope},
		Endpoint:     google.Endpoint,
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	client := oauth2Config.Client(ctx, token)

	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}

	return &DriveProvider{service: service, folderID: cfg.FolderID}, nil
}

func (p *DriveProvider) Name() string {
	return "drive"
}

func (p *DriveProvider) Upload(ctx context.Context, sourcePath, key, contentType string) error {
	f, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	// Drive has no key hierarchy; the slash-joined key becomes the display
	// name so mirrored files stay distinguishable across folders.
	file := &drive.File{Name: key}
	if p.folderID != "" {
		file.Parents = []string{p.folderID}
	}

	_, err = p.service.Files.Create(file).Context(ctx).Media(f, googleapi.ContentType(contentType)).Do()
	if err != nil {
		return fmt.Errorf("create drive file %s: %w", key, err)
	}
	return nil
}
