package types

import "github.com/berkguzel/pstar/pkg/policy"

type PolicyKind string

const (
	PolicyKindInline  PolicyKind = "inline"
	PolicyKindManaged PolicyKind = "managed"
	PolicyKindFile    PolicyKind = "file"
)

// PolicySource is one role policy in the AWS::IAM::Role Policy shape,
// i.e. {"PolicyName": ..., "PolicyDocument": {...}}.
type PolicySource struct {
	Name     string
	Arn      string
	Kind     PolicyKind
	Document string
}

type PolicyVerdict struct {
	Name     string
	Arn      string
	Kind     PolicyKind
	Resource policy.ResolvedResource

	// Acceptable is false when the first statement applies to "*".
	Acceptable bool
	Err        error
}

// Flagged reports a verified policy whose first statement applies to "*".
func (v PolicyVerdict) Flagged() bool {
	return v.Err == nil && !v.Acceptable
}

type RoleReport struct {
	PodName        string
	Namespace      string
	ServiceAccount string
	IAMRole        string
	Verdicts       []PolicyVerdict
}

// FlaggedCount returns how many verdicts are flagged.
func (r RoleReport) FlaggedCount() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Flagged() {
			n++
		}
	}
	return n
}
