package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	appconfig "priceflow/config"
	"priceflow/internal/series"
	"priceflow/internal/source"
	"priceflow/logger"
)

// SeriesRecord is the parquet row layout of an exported canonical series.
type SeriesRecord struct {
	Source    string  `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
}

// Exporter archives canonical series to S3 as parquet objects. It is an
// auxiliary sink: export failures are reported to the caller but never block
// the refresh pipeline from training.
type Exporter struct {
	cfg      appconfig.S3Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewExporter configures the AWS SDK and the S3 client. Callers should only
// construct an exporter when storage.s3.enabled is set.
func NewExporter(cfg appconfig.S3Config) (*Exporter, error) {
	log := logger.GetLogger()
	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	log.WithComponent("series_exporter").WithFields(logger.Fields{
		"bucket":     cfg.Bucket,
		"region":     cfg.Region,
		"endpoint":   cfg.Endpoint,
		"path_style": cfg.PathStyle,
	}).Info("series exporter initialized")

	return &Exporter{cfg: cfg, s3Client: s3Client, log: log}, nil
}

// Export encodes the points as a parquet object and uploads it under a
// source- and month-partitioned key.
func (e *Exporter) Export(ctx context.Context, src source.ID, points []series.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	data, err := EncodeParquet(src, points)
	if err != nil {
		return fmt.Errorf("encode parquet: %w", err)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s/%d/%02d/%s.parquet", src, now.Year(), int(now.Month()), uuid.New().String())

	if _, err := e.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	}); err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}

	e.log.WithComponent("series_exporter").WithFields(logger.Fields{
		"source": string(src),
		"key":    key,
		"points": len(points),
		"bytes":  len(data),
	}).Info("exported canonical series")
	return nil
}

// EncodeParquet builds the parquet representation of a canonical series in
// memory.
func EncodeParquet(src source.ID, points []series.PricePoint) ([]byte, error) {
	fw := newMemoryFileWriter()
	pw, err := writer.NewParquetWriter(fw, new(SeriesRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, p := range points {
		record := SeriesRecord{
			Source:    string(src),
			Timestamp: p.Timestamp.UnixMilli(),
			Price:     p.Price,
		}
		if err := pw.Write(record); err != nil {
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet file: %w", err)
	}
	return fw.Bytes(), nil
}
