package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"ghostpic/internal/config"
	"ghostpic/internal/model"
)

// ObjectPutter is the slice of the S3 API the pinning upload needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// MediaService normalizes post images and pins them through an
// S3-compatible IPFS pinning endpoint.
type MediaService struct {
	store   ObjectPutter // nil when pinning is not configured
	bucket  string
	gateway string
}

// NewMediaService builds the S3 client for the PIN_* endpoint. Without
// pinning configuration it returns a service whose uploads fail with
// ErrPinningUnavailable; clients then submit their own image references.
func NewMediaService(ctx context.Context, cfg *config.Config) (*MediaService, error) {
	if !cfg.PinningEnabled() {
		log.Printf("[MediaService] pinning not configured, image uploads disabled")
		return &MediaService{gateway: cfg.IPFSGatewayURL}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.PinRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.PinAccessKeyID, cfg.PinSecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for pinning: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.PinEndpoint)
		o.UsePathStyle = true
	})

	return NewMediaServiceWithStore(client, cfg.PinBucket, cfg.IPFSGatewayURL), nil
}

func NewMediaServiceWithStore(store ObjectPutter, bucket, gateway string) *MediaService {
	return &MediaService{
		store:   store,
		bucket:  bucket,
		gateway: strings.TrimSuffix(gateway, "/"),
	}
}

// Enabled reports whether uploads can be pinned.
func (s *MediaService) Enabled() bool {
	return s != nil && s.store != nil
}

// PinImage validates a jpeg/png upload, fits it into 1080px as JPEG,
// derives its CIDv1 and stores it under posts/<cid>.jpg.
func (s *MediaService) PinImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.PinnedImage, error) {
	if !s.Enabled() {
		return nil, model.ErrPinningUnavailable
	}

	data, _, err := readAndValidateImage(file, header, model.MaxImageSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := fitToJPEG(data, model.MaxImageDimension, model.ImageJPEGQuality)
	if err != nil {
		return nil, err
	}

	id, err := contentID(jpegBytes)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s.jpg", model.ImageFolder, id)
	if err := s.putObject(ctx, key, id, jpegBytes); err != nil {
		return nil, err
	}

	log.Printf("[MediaService] pinned image cid=%s bytes=%d", id, len(jpegBytes))
	return &model.PinnedImage{
		CID: id,
		Ref: "ipfs://" + id,
		URL: fmt.Sprintf("%s/ipfs/%s", s.gateway, id),
		Key: key,
	}, nil
}

// readAndValidateImage loads the upload into memory with size and type checks.
func readAndValidateImage(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, "", model.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if (contentType == "" || contentType == "application/octet-stream") && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !model.IsAllowedImageType(contentType) {
		return nil, "", model.ErrInvalidImageType
	}

	return data, contentType, nil
}

// fitToJPEG shrinks images larger than maxDim on either side, keeping the
// aspect ratio, and re-encodes as JPEG. Smaller images are only re-encoded.
func fitToJPEG(data []byte, maxDim, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidImageType, err)
	}

	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// contentID is the CIDv1 (raw codec, sha2-256) of data in its default base32 form.
func contentID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash image: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

func (s *MediaService) putObject(ctx context.Context, key, id string, body []byte) error {
	_, err := s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(model.ContentTypeJPEG),
		CacheControl: aws.String(model.ImageCacheControl),
		Metadata:     map[string]string{"cid": id},
	})
	if err != nil {
		return fmt.Errorf("failed to pin image: %w", err)
	}
	return nil
}
