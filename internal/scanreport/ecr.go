// ABOUTME: AWS ECR scan source converting registry scan findings into vulnerability records.
// ABOUTME: Handles authentication, cross-account role assumption, and per-image retrieval.

package scanreport

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pccs/cvreport/internal/cache"
	"github.com/pccs/cvreport/internal/types"
	"github.com/sirupsen/logrus"
)

// ECRClient is the subset of the ECR API the source needs.
type ECRClient interface {
	DescribeImageScanFindings(ctx context.Context, params *ecr.DescribeImageScanFindingsInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImageScanFindingsOutput, error)
}

// ECRSource produces vulnerability records straight from ECR image scan
// results instead of an uploaded report file. Each distinct ECR image in the
// cleansed inventory is queried once; results are cached per image URI.
type ECRSource struct {
	client    ECRClient
	cache     *cache.FindingsCache
	accountID string
	region    string
	logger    *logrus.Logger
}

// NewECRSource creates an ECR scan source.
func NewECRSource(ctx context.Context, accountID, region string, logger *logrus.Logger) (*ECRSource, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Cross-account access needs an assumed role in the registry account.
	if assumeRoleARN := os.Getenv("AWS_IAM_ASSUME_ROLE_ARN"); assumeRoleARN != "" {
		logger.WithField("role_arn", assumeRoleARN).Info("Assuming role from AWS_IAM_ASSUME_ROLE_ARN environment variable")

		stsClient := sts.NewFromConfig(cfg.Copy())
		cfg.Credentials = stscreds.NewAssumeRoleProvider(stsClient, assumeRoleARN)
	} else {
		stsClient := sts.NewFromConfig(cfg.Copy())

		identity, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
		if err != nil {
			logger.WithError(err).Warn("Could not get caller identity, proceeding with default credentials")
		} else if currentAccountID := aws.ToString(identity.Account); currentAccountID != accountID {
			roleARN := fmt.Sprintf("arn:aws:iam::%s:role/ClusterVulnReportRole", accountID)
			logger.WithFields(logrus.Fields{
				"current_account": currentAccountID,
				"target_account":  accountID,
				"role_arn":        roleARN,
			}).Info("Assuming cross-account role")

			cfg.Credentials = stscreds.NewAssumeRoleProvider(stsClient, roleARN)
		}
	}

	return &ECRSource{
		client:    ecr.NewFromConfig(cfg),
		cache:     cache.NewFindingsCache(logger),
		accountID: accountID,
		region:    region,
		logger:    logger,
	}, nil
}

// Name returns the source name.
func (s *ECRSource) Name() string {
	return "aws-ecr"
}

// IsECRImage checks whether an image reference points at an ECR registry.
func IsECRImage(imageURI string) bool {
	return strings.Contains(imageURI, ".dkr.ecr.") && strings.Contains(imageURI, ".amazonaws.com/")
}

// ParseImageURI extracts repository name and tag from a full ECR image URI.
// Expected format: account.dkr.ecr.region.amazonaws.com/repository:tag
func ParseImageURI(imageURI string) (repository, tag string, err error) {
	parts := strings.Split(imageURI, "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid image URI format: %s", imageURI)
	}

	repoWithTag := strings.Join(parts[1:], "/")

	repoParts := strings.Split(repoWithTag, ":")
	if len(repoParts) != 2 {
		return "", "", fmt.Errorf("invalid image URI format, missing tag: %s", imageURI)
	}

	return repoParts[0], repoParts[1], nil
}

// Findings queries scan results for every distinct ECR image in the
// inventory. Per-image failures are logged and skipped so one unscanned
// image does not empty the whole report; the date parameter only labels the
// run, ECR always returns the latest scan.
func (s *ECRSource) Findings(ctx context.Context, date string, inventory []types.InventoryRecord) ([]types.VulnerabilityRecord, error) {
	log := s.logger.WithFields(logrus.Fields{
		"operation": "fetch_ecr_findings",
		"date":      date,
	})

	images := make(map[string]types.InventoryRecord)
	for _, record := range inventory {
		if IsECRImage(record.Image) {
			if _, ok := images[record.Image]; !ok {
				images[record.Image] = record
			}
		}
	}

	log.WithFields(logrus.Fields{
		"inventory_records": len(inventory),
		"ecr_images":        len(images),
	}).Info("Collecting ECR scan findings")

	var findings []types.VulnerabilityRecord

	// Limit concurrent API calls.
	semaphore := make(chan struct{}, 10)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for imageURI, record := range images {
		wg.Add(1)
		go func(imageURI string, record types.InventoryRecord) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			imageFindings, err := s.imageFindings(ctx, imageURI, record)
			if err != nil {
				log.WithError(err).WithField("image", imageURI).Error("Failed to get scan findings")
				return
			}

			mu.Lock()
			findings = append(findings, imageFindings...)
			mu.Unlock()
		}(imageURI, record)
	}

	wg.Wait()

	// Group output order must not depend on goroutine scheduling.
	sortFindings(findings)

	log.WithField("findings", len(findings)).Info("ECR findings collection completed")
	return findings, nil
}

func (s *ECRSource) imageFindings(ctx context.Context, imageURI string, record types.InventoryRecord) ([]types.VulnerabilityRecord, error) {
	if cached, ok := s.cache.Get(imageURI); ok {
		return cached, nil
	}

	repo, tag, err := ParseImageURI(imageURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse image URI: %w", err)
	}

	input := &ecr.DescribeImageScanFindingsInput{
		RepositoryName: aws.String(repo),
		ImageId:        &ecrtypes.ImageIdentifier{ImageTag: aws.String(tag)},
	}

	output, err := s.client.DescribeImageScanFindings(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to describe image scan findings: %w", err)
	}

	digest := bareDigest(record.ImageID)
	if output.ImageId != nil && output.ImageId.ImageDigest != nil {
		digest = bareDigest(*output.ImageId.ImageDigest)
	}
	assetName := repo + ":" + tag

	findings := convertFindings(output, digest, assetName)
	s.cache.Set(imageURI, findings)
	return findings, nil
}

func convertFindings(output *ecr.DescribeImageScanFindingsOutput, digest, assetName string) []types.VulnerabilityRecord {
	if output.ImageScanFindings == nil {
		return nil
	}

	var findings []types.VulnerabilityRecord

	for _, finding := range output.ImageScanFindings.Findings {
		record := types.VulnerabilityRecord{
			ImageID:   digest,
			AssetName: assetName,
			Severity:  NormalizeSeverity(string(finding.Severity)),
		}
		if finding.Name != nil {
			record.CVEID = *finding.Name
		}
		if record.CVEID != "" {
			findings = append(findings, record)
		}
	}

	// Enhanced scanning (Amazon Inspector) reports through a separate list.
	for _, enhanced := range output.ImageScanFindings.EnhancedFindings {
		record := types.VulnerabilityRecord{
			ImageID:   digest,
			AssetName: assetName,
		}
		if enhanced.Severity != nil {
			record.Severity = NormalizeSeverity(*enhanced.Severity)
		}
		if enhanced.PackageVulnerabilityDetails != nil && enhanced.PackageVulnerabilityDetails.VulnerabilityId != nil {
			record.CVEID = *enhanced.PackageVulnerabilityDetails.VulnerabilityId
		} else if enhanced.Title != nil {
			record.CVEID = *enhanced.Title
		}
		if record.CVEID != "" {
			findings = append(findings, record)
		}
	}

	return findings
}

func sortFindings(findings []types.VulnerabilityRecord) {
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].AssetName != findings[j].AssetName {
			return findings[i].AssetName < findings[j].AssetName
		}
		if ri, rj := types.SeverityRank(findings[i].Severity), types.SeverityRank(findings[j].Severity); ri != rj {
			return ri < rj
		}
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity < findings[j].Severity
		}
		if findings[i].CVEID != findings[j].CVEID {
			return findings[i].CVEID < findings[j].CVEID
		}
		return findings[i].ImageID < findings[j].ImageID
	})
}

// NormalizeSeverity maps registry severity spellings onto the report's
// Critical/High/Medium/Low/Info vocabulary. Unknown values pass through in
// title case and sort behind the ranked ones.
func NormalizeSeverity(severity string) string {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return "Critical"
	case "HIGH":
		return "High"
	case "MEDIUM":
		return "Medium"
	case "LOW":
		return "Low"
	case "INFORMATIONAL", "INFO":
		return "Info"
	case "":
		return ""
	default:
		upper := strings.ToUpper(severity)
		return upper[:1] + strings.ToLower(upper[1:])
	}
}

// bareDigest strips the scheme qualifier so the digest matches the shape an
// external scanner would report.
func bareDigest(imageID string) string {
	if idx := strings.LastIndex(imageID, "sha256:"); idx >= 0 {
		return imageID[idx+len("sha256:"):]
	}
	return imageID
}
