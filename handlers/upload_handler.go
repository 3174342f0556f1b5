package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const profileFolder = "instructor_profiles"

// UploadSigner signs direct browser uploads of instructor profile photos.
type UploadSigner struct {
	apiKey    string
	apiSecret string
	cloudName string
	now       func() time.Time
}

type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

func NewUploadSigner(cloudinaryURL string) (*UploadSigner, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &UploadSigner{
		apiKey:    cld.Config.Cloud.APIKey,
		apiSecret: cld.Config.Cloud.APISecret,
		cloudName: cld.Config.Cloud.CloudName,
		now:       time.Now,
	}, nil
}

func (s *UploadSigner) Sign() (UploadSignature, error) {
	paramsToSign, err := api.StructToParams(uploader.UploadParams{
		Folder: profileFolder,
	})
	if err != nil {
		return UploadSignature{}, fmt.Errorf("failed to prepare signature params: %w", err)
	}

	timestamp := s.now().Unix()
	paramsToSign.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(paramsToSign, s.apiSecret)
	if err != nil {
		return UploadSignature{}, err
	}
	return UploadSignature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    s.apiKey,
		CloudName: s.cloudName,
		Folder:    profileFolder,
	}, nil
}
