package analyzer

import (
	"context"
	"fmt"

	apperrors "github.com/berkguzel/pstar/internal/errors"
	"github.com/berkguzel/pstar/internal/logger"
	"github.com/berkguzel/pstar/internal/options"
	"github.com/berkguzel/pstar/pkg/policy"
	"github.com/berkguzel/pstar/pkg/types"
)

type K8sClient interface {
	GetPod(ctx context.Context, name, namespace string) (Pod, error)
	GetServiceAccountIAMRole(ctx context.Context, namespace, saName string) (string, error)
}

type AWSClient interface {
	RolePolicyDocuments(ctx context.Context, role string) ([]types.PolicySource, error)
}

type Analyzer struct {
	k8sClient K8sClient
	awsClient AWSClient
	log       logger.Logger
}

// New returns an Analyzer. Either client may be nil when the matching
// lookup is never used.
func New(k8sClient K8sClient, awsClient AWSClient) *Analyzer {
	return &Analyzer{
		k8sClient: k8sClient,
		awsClient: awsClient,
		log:       logger.New("analyzer"),
	}
}

type Pod struct {
	Spec PodSpec
}

type PodSpec struct {
	ServiceAccountName string
}

// VerifyDocument verifies a single role policy document. It returns false
// when the first statement applies to every resource.
func (a *Analyzer) VerifyDocument(text string) (bool, error) {
	ok, err := policy.Verify(text)
	if err != nil {
		return false, apperrors.NewMalformedError(err)
	}
	a.log.Debug("verified document", "acceptable", ok)
	return ok, nil
}

// Analyze verifies the policies of the role or pod named in opts.
func (a *Analyzer) Analyze(ctx context.Context, opts *options.Options) (types.RoleReport, error) {
	switch {
	case opts.Pod != "":
		return a.AnalyzePod(ctx, opts.Pod, opts.Namespace)
	case opts.Role != "":
		return a.AnalyzeRole(ctx, opts.Role)
	}
	return types.RoleReport{}, fmt.Errorf("no role or pod to analyze")
}

func (a *Analyzer) AnalyzePod(ctx context.Context, podName, namespace string) (types.RoleReport, error) {
	if a.k8sClient == nil {
		return types.RoleReport{}, fmt.Errorf("kubernetes client is not configured")
	}

	pod, err := a.k8sClient.GetPod(ctx, podName, namespace)
	if err != nil {
		return types.RoleReport{}, err
	}

	saName := pod.Spec.ServiceAccountName
	if saName == "" {
		saName = "default"
	}

	iamRole, err := a.k8sClient.GetServiceAccountIAMRole(ctx, namespace, saName)
	if err != nil {
		return types.RoleReport{}, err
	}
	a.log.Debug("resolved pod role", "pod", podName, "namespace", namespace, "serviceAccount", saName, "role", iamRole)

	report, err := a.AnalyzeRole(ctx, iamRole)
	report.PodName = podName
	report.Namespace = namespace
	report.ServiceAccount = saName
	return report, err
}

// AnalyzeRole verifies every policy of role independently. A malformed
// policy is recorded on its verdict. Policies that could not be fetched are
// reported in the error alongside the verdicts of those that were.
func (a *Analyzer) AnalyzeRole(ctx context.Context, role string) (types.RoleReport, error) {
	report := types.RoleReport{IAMRole: role}
	if a.awsClient == nil {
		return report, fmt.Errorf("AWS client is not configured")
	}

	sources, err := a.awsClient.RolePolicyDocuments(ctx, role)
	for _, src := range sources {
		report.Verdicts = append(report.Verdicts, a.verdict(src))
	}
	if err != nil {
		a.log.Error("failed to fetch some policies", err)
	}
	return report, err
}

func (a *Analyzer) verdict(src types.PolicySource) types.PolicyVerdict {
	v := types.PolicyVerdict{
		Name: src.Name,
		Arn:  src.Arn,
		Kind: src.Kind,
	}

	resource, err := policy.Locate(src.Document)
	if err != nil {
		v.Err = apperrors.NewMalformedError(err)
		a.log.Debug("malformed policy", "policy", src.Name, "error", err)
		return v
	}
	v.Resource = resource
	v.Acceptable = !policy.IsWildcard(resource)
	a.log.Debug("verified policy", "policy", src.Name, "resource", resource.String(), "acceptable", v.Acceptable)
	return v
}
