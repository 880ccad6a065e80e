package filestorage

import (
	"context"
	"fmt"
	"io"

	"github.com/SeakMengs/CertGate/internal/model"
	"github.com/SeakMengs/CertGate/internal/repository"
	"github.com/SeakMengs/CertGate/internal/util"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MinioArtifactStore moves template backgrounds and rendered certificates in
// and out of object storage, recording a File row for every upload.
type MinioArtifactStore struct {
	s3     *minio.Client
	bucket string
	repo   *repository.Repository
	logger *zap.SugaredLogger
}

func NewMinioArtifactStore(s3 *minio.Client, bucket string, repo *repository.Repository, logger *zap.SugaredLogger) *MinioArtifactStore {
	return &MinioArtifactStore{s3: s3, bucket: bucket, repo: repo, logger: logger}
}

func (m *MinioArtifactStore) FetchBackground(ctx context.Context, file model.File) ([]byte, error) {
	if file.BucketName == "" || file.UniqueFileName == "" {
		return nil, fmt.Errorf("template has no background file")
	}

	object, err := m.s3.GetObject(ctx, file.BucketName, file.UniqueFileName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get background %s: %w", file.UniqueFileName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read background %s: %w", file.UniqueFileName, err)
	}

	return data, nil
}

func (m *MinioArtifactStore) UploadCertificate(ctx context.Context, templateId, fileName string, data []byte) (*model.File, error) {
	info, err := util.UploadBytesToS3(ctx, data, fileName, "image/png", &util.FileUploadOptions{
		DirectoryPath: util.GetIssuedCertificateDirectoryPath(templateId),
		Bucket:        m.bucket,
		S3:            m.s3,
	})
	if err != nil {
		return nil, err
	}

	file, err := m.repo.File.Create(ctx, nil, &model.File{
		FileName:       fileName,
		UniqueFileName: info.Key,
		BucketName:     info.Bucket,
		Size:           info.Size,
	})
	if err != nil {
		// The object is orphaned in the bucket, best effort cleanup
		orphan := model.File{UniqueFileName: info.Key, BucketName: info.Bucket}
		if rmErr := orphan.Delete(ctx, m.s3); rmErr != nil {
			m.logger.Errorw("failed to remove orphaned certificate object", "key", info.Key, "error", rmErr)
		}
		return nil, err
	}

	return file, nil
}
