package aws

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	apperrors "github.com/berkguzel/pstar/internal/errors"
	"github.com/berkguzel/pstar/internal/logger"
)

// IAMAPI is the subset of the IAM API used to collect role policies.
type IAMAPI interface {
	ListRolePolicies(ctx context.Context, input *iam.ListRolePoliciesInput, opts ...func(*iam.Options)) (*iam.ListRolePoliciesOutput, error)
	GetRolePolicy(ctx context.Context, input *iam.GetRolePolicyInput, opts ...func(*iam.Options)) (*iam.GetRolePolicyOutput, error)
	ListAttachedRolePolicies(ctx context.Context, input *iam.ListAttachedRolePoliciesInput, opts ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error)
	GetPolicy(ctx context.Context, input *iam.GetPolicyInput, opts ...func(*iam.Options)) (*iam.GetPolicyOutput, error)
	GetPolicyVersion(ctx context.Context, input *iam.GetPolicyVersionInput, opts ...func(*iam.Options)) (*iam.GetPolicyVersionOutput, error)
}

type Client struct {
	iamClient IAMAPI
	log       logger.Logger
}

// NewClient loads the default AWS configuration. region wins over the
// environment when set.
func NewClient(region string) (*Client, error) {
	region = resolveRegion(region)

	opts := []func(*config.LoadOptions) error{
		config.WithSharedConfigProfile(""),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, apperrors.NewAWSError("failed to load AWS config", err)
	}

	if cfg.Region == "" {
		return nil, apperrors.NewAWSError("Please set AWS_REGION environment variable or configure region in ~/.aws/config", apperrors.ErrNoRegion)
	}

	return NewFromAPI(iam.NewFromConfig(cfg)), nil
}

// NewFromAPI wraps an existing IAM API implementation.
func NewFromAPI(api IAMAPI) *Client {
	return &Client{
		iamClient: api,
		log:       logger.New("aws"),
	}
}

func resolveRegion(region string) string {
	if region != "" {
		return region
	}
	if region = os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	if region = os.Getenv("AWS_DEFAULT_REGION"); region != "" {
		return region
	}
	// EKS clusters named <region>.<cluster>
	if cluster := os.Getenv("CLUSTER_NAME"); cluster != "" {
		if parts := strings.SplitN(cluster, ".", 2); len(parts) == 2 {
			return parts[0]
		}
	}
	return ""
}

func getRoleNameFromARN(arn string) string {
	parts := strings.Split(arn, "/")
	return parts[len(parts)-1]
}

func describe(op, target string) string {
	return fmt.Sprintf("failed to %s %s", op, target)
}
