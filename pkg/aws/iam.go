package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	apperrors "github.com/berkguzel/pstar/internal/errors"
	"github.com/berkguzel/pstar/pkg/types"
	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"
)

const (
	maxConcurrentAPICalls = 8
	apiOperationTimeout   = 5 * time.Second
)

// RolePolicyDocuments returns every inline and attached managed policy of
// the role, each wrapped as an AWS::IAM::Role Policy document. Inline
// policies come first, then managed ones, each group sorted by name.
//
// Policies that could not be fetched are reported in the returned error;
// the ones that were fetched are still returned.
func (c *Client) RolePolicyDocuments(ctx context.Context, role string) ([]types.PolicySource, error) {
	roleName := getRoleNameFromARN(role)

	inlineNames, err := c.listInlinePolicies(ctx, roleName)
	if err != nil {
		return nil, apperrors.NewAWSError(describe("list inline policies of role", roleName), err)
	}
	attached, err := c.listAttachedPolicies(ctx, roleName)
	if err != nil {
		return nil, apperrors.NewAWSError(describe("list attached policies of role", roleName), err)
	}
	c.log.Debug("listed role policies", "role", roleName, "inline", len(inlineNames), "managed", len(attached))

	var (
		mu      sync.Mutex
		sources []types.PolicySource
		errs    *multierror.Error
	)
	collect := func(src types.PolicySource, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = multierror.Append(errs, err)
			return
		}
		sources = append(sources, src)
	}

	wp := workerpool.New(maxConcurrentAPICalls)
	for _, name := range inlineNames {
		name := name
		wp.Submit(func() {
			collect(c.inlinePolicy(ctx, roleName, name))
		})
	}
	for _, p := range attached {
		p := p
		wp.Submit(func() {
			collect(c.managedPolicy(ctx, aws.ToString(p.PolicyName), aws.ToString(p.PolicyArn)))
		})
	}
	wp.StopWait()

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Kind != sources[j].Kind {
			return sources[i].Kind == types.PolicyKindInline
		}
		return sources[i].Name < sources[j].Name
	})

	if err := errs.ErrorOrNil(); err != nil {
		return sources, apperrors.NewAWSError(describe("fetch policies of role", roleName), err)
	}
	return sources, nil
}

func (c *Client) listInlinePolicies(ctx context.Context, roleName string) ([]string, error) {
	var names []string
	paginator := iam.NewListRolePoliciesPaginator(c.iamClient, &iam.ListRolePoliciesInput{
		RoleName: aws.String(roleName),
	})
	for paginator.HasMorePages() {
		page, err := withTimeout(ctx, func(ctx context.Context) (*iam.ListRolePoliciesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, err
		}
		names = append(names, page.PolicyNames...)
	}
	return names, nil
}

func (c *Client) listAttachedPolicies(ctx context.Context, roleName string) ([]iamtypes.AttachedPolicy, error) {
	var attached []iamtypes.AttachedPolicy
	paginator := iam.NewListAttachedRolePoliciesPaginator(c.iamClient, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})
	for paginator.HasMorePages() {
		page, err := withTimeout(ctx, func(ctx context.Context) (*iam.ListAttachedRolePoliciesOutput, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, err
		}
		attached = append(attached, page.AttachedPolicies...)
	}
	return attached, nil
}

func (c *Client) inlinePolicy(ctx context.Context, roleName, policyName string) (types.PolicySource, error) {
	out, err := withTimeout(ctx, func(ctx context.Context) (*iam.GetRolePolicyOutput, error) {
		return c.iamClient.GetRolePolicy(ctx, &iam.GetRolePolicyInput{
			RoleName:   aws.String(roleName),
			PolicyName: aws.String(policyName),
		})
	})
	if err != nil {
		return types.PolicySource{}, fmt.Errorf("failed to get inline policy %s: %v", policyName, err)
	}

	doc, err := wrapDocument(policyName, aws.ToString(out.PolicyDocument))
	if err != nil {
		return types.PolicySource{}, fmt.Errorf("failed to decode inline policy %s: %v", policyName, err)
	}
	return types.PolicySource{
		Name:     policyName,
		Kind:     types.PolicyKindInline,
		Document: doc,
	}, nil
}

func (c *Client) managedPolicy(ctx context.Context, name, arn string) (types.PolicySource, error) {
	got, err := withTimeout(ctx, func(ctx context.Context) (*iam.GetPolicyOutput, error) {
		return c.iamClient.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: aws.String(arn)})
	})
	if err != nil {
		return types.PolicySource{}, fmt.Errorf("failed to get policy %s: %v", arn, err)
	}
	policy := got.Policy
	if policy == nil || policy.DefaultVersionId == nil {
		return types.PolicySource{}, fmt.Errorf("policy %s has no default version", arn)
	}

	out, err := withTimeout(ctx, func(ctx context.Context) (*iam.GetPolicyVersionOutput, error) {
		return c.iamClient.GetPolicyVersion(ctx, &iam.GetPolicyVersionInput{
			PolicyArn: aws.String(arn),
			VersionId: policy.DefaultVersionId,
		})
	})
	if err != nil {
		return types.PolicySource{}, fmt.Errorf("failed to get policy version of %s: %v", arn, err)
	}
	version := out.PolicyVersion
	if version == nil {
		return types.PolicySource{}, fmt.Errorf("policy %s returned an empty version", arn)
	}

	doc, err := wrapDocument(name, aws.ToString(version.Document))
	if err != nil {
		return types.PolicySource{}, fmt.Errorf("failed to decode policy document %s: %v", arn, err)
	}
	return types.PolicySource{
		Name:     name,
		Arn:      arn,
		Kind:     types.PolicyKindManaged,
		Document: doc,
	}, nil
}

func withTimeout[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, apiOperationTimeout)
	defer cancel()
	return call(callCtx)
}

// wrapDocument URL-decodes an IAM policy document and embeds it, unparsed,
// under PolicyDocument so malformed documents still reach the verifier.
func wrapDocument(name, encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	quoted, err := json.Marshal(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"PolicyName": %s, "PolicyDocument": %s}`, quoted, decoded), nil
}
