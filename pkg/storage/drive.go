// Package storage implements the event asset tree on top of S3. Folders are
// key prefixes marked by a zero-byte ".folder" object so empty folders
// survive listing.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const folderMarker = ".folder"

// AllowedImageExtensions maps image file extensions to MIME types. Uploads
// and listings are restricted to these.
var AllowedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// MaxImageSize is the maximum allowed upload size (10MB).
const MaxImageSize = 10 * 1024 * 1024

// Folder is a directory node in the asset tree. ID is the full key prefix
// (ending in "/"); Name is its last path element.
type Folder struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}

// File is an object in a folder.
type File struct {
	ID   string `json:"id"` // object key
	Name string `json:"name"`
	Src  string `json:"src"` // public URL
}

// Config holds drive settings.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	RootPrefix      string
}

// Drive provides folder and image operations over one bucket.
type Drive struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      Config
	logger   *zap.Logger
}

// NewDrive creates a drive backed by S3. Falls back to the default AWS
// credential chain when no static keys are configured.
func NewDrive(ctx context.Context, cfg Config, logger *zap.Logger) (*Drive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else {
		logger.Warn("drive using default AWS credential chain")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	return &Drive{client: client, uploader: uploader, cfg: cfg, logger: logger}, nil
}

// SanitizeFolderName replaces characters that are awkward in keys and
// share links with "-". Runs of replaced characters collapse to one dash.
func SanitizeFolderName(name string) string {
	cleaned := invalidFolderChars.ReplaceAllString(name, "-")
	cleaned = dashRuns.ReplaceAllString(cleaned, "-")
	return strings.Trim(cleaned, "- ")
}

var (
	invalidFolderChars = regexp.MustCompile(`[^a-zA-Z0-9 _.&-]+`)
	dashRuns           = regexp.MustCompile(`-{2,}`)
)

// EventFolderName derives the canonical folder name for a session.
func EventFolderName(date, title string) string {
	return strings.TrimSpace(date) + " - " + SanitizeFolderName(title)
}

// rootPrefix returns the tree root, always "/"-terminated (or empty).
func (d *Drive) rootPrefix() string {
	if d.cfg.RootPrefix == "" {
		return ""
	}
	return strings.TrimSuffix(d.cfg.RootPrefix, "/") + "/"
}

func folderFromPrefix(prefix string, link string) *Folder {
	return &Folder{
		ID:          prefix,
		Name:        path.Base(strings.TrimSuffix(prefix, "/")),
		WebViewLink: link,
	}
}

// CreateFolder creates a folder under parentID (or under the root when
// parentID is empty) and returns it. Creation is idempotent: re-putting the
// marker of an existing folder is a no-op at the store.
func (d *Drive) CreateFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	parent := parentID
	if parent == "" {
		parent = d.rootPrefix()
	}
	prefix := parent + name + "/"
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.cfg.Bucket),
		Key:           aws.String(prefix + folderMarker),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", prefix, err)
	}
	return folderFromPrefix(prefix, d.PublicObjectURL(prefix)), nil
}

// SetPublicReadable grants anonymous read on the folder marker; subsequent
// image uploads into the folder carry the same canned ACL.
func (d *Drive) SetPublicReadable(ctx context.Context, folderID string) error {
	_, err := d.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(folderID + folderMarker),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("set public read on %q: %w", folderID, err)
	}
	return nil
}

// FindFolder returns the folder with the given ID (prefix), or nil when its
// marker does not exist.
func (d *Drive) FindFolder(ctx context.Context, folderID string) (*Folder, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(folderID + folderMarker),
	})
	if err != nil {
		return nil, nil
	}
	return folderFromPrefix(folderID, d.PublicObjectURL(folderID)), nil
}

// FindFolderByName searches direct children of the root for a folder with
// the exact name. Returns nil when absent.
func (d *Drive) FindFolderByName(ctx context.Context, name string) (*Folder, error) {
	return d.findChildFolder(ctx, d.rootPrefix(), name)
}

// FindSubfolder searches direct children of parentID for name.
func (d *Drive) FindSubfolder(ctx context.Context, parentID, name string) (*Folder, error) {
	return d.findChildFolder(ctx, parentID, name)
}

func (d *Drive) findChildFolder(ctx context.Context, parent, name string) (*Folder, error) {
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.cfg.Bucket),
		Prefix:    aws.String(parent),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list folders under %q: %w", parent, err)
		}
		for _, cp := range page.CommonPrefixes {
			prefix := aws.ToString(cp.Prefix)
			if path.Base(strings.TrimSuffix(prefix, "/")) == name {
				return folderFromPrefix(prefix, d.PublicObjectURL(prefix)), nil
			}
		}
	}
	return nil, nil
}

// ListImages returns up to limit image files directly inside folderID,
// optionally filtered by a name substring.
func (d *Drive) ListImages(ctx context.Context, folderID, nameContains string, limit int) ([]File, error) {
	if limit <= 0 {
		limit = 10
	}
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(d.cfg.Bucket),
		Prefix:    aws.String(folderID),
		Delimiter: aws.String("/"),
	})
	var files []File
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list images in %q: %w", folderID, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := path.Base(key)
			if _, ok := AllowedImageExtensions[strings.ToLower(path.Ext(name))]; !ok {
				continue
			}
			if nameContains != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(nameContains)) {
				continue
			}
			files = append(files, File{ID: key, Name: name, Src: d.PublicObjectURL(key)})
			if len(files) >= limit {
				return files, nil
			}
		}
	}
	return files, nil
}

// Upload streams an image into a folder, returning its public URL.
func (d *Drive) Upload(ctx context.Context, folderID, filename, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error) {
	key := folderID + path.Base(filename)
	var contentLengthPtr *int64
	if contentLength > 0 {
		contentLengthPtr = &contentLength
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(d.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: contentLengthPtr,
	}
	if publicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}
	if _, err := d.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload %q: %w", key, err)
	}
	return d.PublicObjectURL(key), nil
}

// PublicObjectURL returns the unsigned URL for a key; usable when the object
// carries a public-read ACL.
func (d *Drive) PublicObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", d.cfg.Bucket, d.cfg.Region, key)
}

// ValidateImageType reports whether a filename/content type pair is an
// accepted image upload.
func ValidateImageType(contentType, filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := AllowedImageExtensions[ext]; ok {
		return true
	}
	for _, ct := range AllowedImageExtensions {
		if strings.EqualFold(contentType, ct) {
			return true
		}
	}
	return false
}

// ContentTypeForFilename returns the MIME type for an image filename.
func ContentTypeForFilename(filename string) string {
	if ct, ok := AllowedImageExtensions[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
