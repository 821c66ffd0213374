// Package archive persists frozen reports to object storage so the hash in
// the ledger always has a retrievable artifact behind it.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/CarbonProof/Platform/internal/canonical"
	"github.com/CarbonProof/Platform/internal/models"
)

// ReportArchiver writes canonicalized frozen reports to S3 paths like:
//
//	s3://<bucket>/<prefix>/reports/YYYY/MM/DD/<jobID>.json
type ReportArchiver struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
	now      func() time.Time
}

// NewReportArchiver builds the archiver. Region and credentials come from the
// environment (AWS_REGION, AWS_PROFILE, AWS_ACCESS_KEY_ID/SECRET etc.).
func NewReportArchiver(ctx context.Context, bucket, prefix string) (*ReportArchiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &ReportArchiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(s3.NewFromConfig(cfg)),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// ArchiveReport canonicalizes the frozen job envelope and uploads it,
// returning the object key. The stored object carries the proof alongside
// the evidence it covers so a verifier needs nothing else.
func (a *ReportArchiver) ArchiveReport(ctx context.Context, job models.Job, proof *models.CryptographicProof, composite *models.CompositeAnalysis) (string, error) {
	if proof == nil {
		return "", fmt.Errorf("nil proof")
	}

	envelope := map[string]interface{}{
		"jobId":      job.JobID,
		"datacenter": job.Datacenter,
		"period":     job.Period,
		"proof":      proof,
		"analysis":   composite,
		"archivedAt": a.now().Format(time.RFC3339Nano),
	}
	canonBytes, err := canonical.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("canonicalize report envelope: %w", err)
	}

	ts := job.StartedAt
	if ts.IsZero() {
		ts = a.now()
	}
	year, month, day := ts.Date()
	objectKey := path.Join(a.prefix, "reports",
		fmt.Sprintf("%04d", year),
		fmt.Sprintf("%02d", int(month)),
		fmt.Sprintf("%02d", day),
		fmt.Sprintf("%s.json", job.JobID),
	)

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(canonBytes),
		ContentType: aws.String("application/json"),
		// Server-side encryption with S3-managed keys (SSE-S3).
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return objectKey, nil
}
