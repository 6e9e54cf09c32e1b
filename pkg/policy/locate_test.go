package policy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rolePolicy wraps a Statement value into a role policy document.
func rolePolicy(statement string) string {
	return fmt.Sprintf(`{
		"PolicyName": "root",
		"PolicyDocument": {
			"Version": "2012-10-17",
			"Statement": %s
		}
	}`, statement)
}

// withResource builds a one-statement array whose Resource is resource.
func withResource(resource string) string {
	return rolePolicy(fmt.Sprintf(`[{
		"Sid": "IamListAccess",
		"Effect": "Allow",
		"Action": ["iam:ListRoles", "iam:ListUsers"],
		"Resource": %s
	}]`, resource))
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ResolvedResource
	}{
		{
			name:  "star in statement array",
			input: withResource(`"*"`),
			want:  Some("*"),
		},
		{
			name: "statement outside of an array",
			input: rolePolicy(`{
				"Effect": "Allow",
				"Action": ["iam:ListRoles"],
				"Resource": "*"
			}`),
			want: Some("*"),
		},
		{
			name:  "another string",
			input: withResource(`"bank_account"`),
			want:  Some("bank_account"),
		},
		{
			name:  "list of resources",
			input: withResource(`["bank_account", "fridge"]`),
			want:  None(),
		},
		{
			name:  "list with only a star",
			input: withResource(`["*"]`),
			want:  Some("*"),
		},
		{
			name:  "list with a star and more elements",
			input: withResource(`["*", "bank"]`),
			want:  None(),
		},
		{
			name:  "list with two stars",
			input: withResource(`["*", "*"]`),
			want:  None(),
		},
		{
			name:  "empty resource list",
			input: withResource(`[]`),
			want:  None(),
		},
		{
			name:  "single non-string element",
			input: withResource(`[42]`),
			want:  None(),
		},
		{
			name:  "single null element",
			input: withResource(`[null]`),
			want:  None(),
		},
		{
			name:  "nested list",
			input: withResource(`[["*"]]`),
			want:  None(),
		},
		{
			name:  "number resource",
			input: withResource(`7`),
			want:  None(),
		},
		{
			name:  "boolean resource",
			input: withResource(`true`),
			want:  None(),
		},
		{
			name:  "null resource",
			input: withResource(`null`),
			want:  None(),
		},
		{
			name:  "object resource",
			input: withResource(`{"Ref": "*"}`),
			want:  None(),
		},
		{
			name:  "empty string resource is present",
			input: withResource(`""`),
			want:  Some(""),
		},
		{
			name:  "resource field missing",
			input: rolePolicy(`[{"Effect": "Allow", "Action": ["iam:ListRoles"]}]`),
			want:  None(),
		},
		{
			name:  "statement list is empty",
			input: rolePolicy(`[]`),
			want:  None(),
		},
		{
			name:  "first statement is not an object",
			input: rolePolicy(`["*", {"Resource": "*"}]`),
			want:  None(),
		},
		{
			name:  "statement is a string",
			input: rolePolicy(`"*"`),
			want:  None(),
		},
		{
			name:  "statement is null",
			input: rolePolicy(`null`),
			want:  None(),
		},
		{
			name:  "statement missing",
			input: `{"PolicyDocument": {"Version": "2012-10-17"}}`,
			want:  None(),
		},
		{
			name:  "policy document is not an object",
			input: `{"PolicyDocument": "*"}`,
			want:  None(),
		},
		{
			name:  "policy document is null",
			input: `{"PolicyDocument": null}`,
			want:  None(),
		},
		{
			name:  "only the first statement counts",
			input: readFixture(t, "scoped.json"),
			want:  Some("arn:aws:s3:::my-bucket/*"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Locate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocate_StatementShapesAgree(t *testing.T) {
	body := `{"Effect": "Allow", "Action": "s3:GetObject", "Resource": ["arn:aws:s3:::bucket"]}`

	fromObject, err := Locate(rolePolicy(body))
	require.NoError(t, err)
	fromArray, err := Locate(rolePolicy("[" + body + "]"))
	require.NoError(t, err)

	assert.Equal(t, fromObject, fromArray)
	assert.Equal(t, Some("arn:aws:s3:::bucket"), fromArray)
}

func TestLocate_ArrayOfOneIsTransparent(t *testing.T) {
	for _, v := range []string{"*", "arn:aws:s3:::bucket/*", "bank_account", ""} {
		t.Run(v, func(t *testing.T) {
			direct, err := Locate(withResource(fmt.Sprintf("%q", v)))
			require.NoError(t, err)
			wrapped, err := Locate(withResource(fmt.Sprintf("[%q]", v)))
			require.NoError(t, err)
			assert.Equal(t, direct, wrapped)
		})
	}
}

func TestLocate_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "not json",
			input:  "PolicyDocument: {}",
			reason: reasonInvalidJSON,
		},
		{
			name:   "empty input",
			input:  "",
			reason: reasonInvalidJSON,
		},
		{
			name:   "whitespace only",
			input:  "  \n\t",
			reason: reasonInvalidJSON,
		},
		{
			name:   "truncated document",
			input:  `{"PolicyDocument": {"Statement": [`,
			reason: reasonInvalidJSON,
		},
		{
			name:   "trailing value",
			input:  `{"PolicyDocument": {}} {}`,
			reason: reasonInvalidJSON,
		},
		{
			name:   "missing policy document",
			input:  readFixture(t, "missing_document.json"),
			reason: reasonMissingDocument,
		},
		{
			name:   "root is an array",
			input:  `[{"PolicyDocument": {}}]`,
			reason: reasonMissingDocument,
		},
		{
			name:   "root is a string",
			input:  `"PolicyDocument"`,
			reason: reasonMissingDocument,
		},
		{
			name:   "field name is case sensitive",
			input:  `{"policyDocument": {"Statement": {"Resource": "*"}}}`,
			reason: reasonMissingDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Locate(tt.input)
			require.Error(t, err)
			assert.False(t, got.IsPresent())

			var malformed *MalformedInputError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.reason, malformed.Reason)
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestLocate_TrailingWhitespaceAllowed(t *testing.T) {
	got, err := Locate(withResource(`"*"`) + "\n\n")
	require.NoError(t, err)
	assert.Equal(t, Some("*"), got)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "star in array statement", input: readFixture(t, "star_in_array.json"), want: false},
		{name: "star in single statement", input: readFixture(t, "star_single_statement.json"), want: false},
		{name: "another string", input: withResource(`"bank_account"`), want: true},
		{name: "list of resources", input: withResource(`["bank_account", "fridge"]`), want: true},
		{name: "list with only a star", input: withResource(`["*"]`), want: false},
		{name: "list with a star and more", input: withResource(`["*", "bank"]`), want: true},
		{name: "empty statement list", input: rolePolicy(`[]`), want: true},
		{name: "resource missing", input: rolePolicy(`[{"Effect": "Allow"}]`), want: true},
		{name: "partial wildcard is not flagged", input: withResource(`"arn:*"`), want: true},
		{name: "padded star is not flagged", input: withResource(`" * "`), want: true},
		{name: "double star is not flagged", input: withResource(`"**"`), want: true},
		{name: "later statements are ignored", input: readFixture(t, "scoped.json"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Verify(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerify_PropagatesMalformedInput(t *testing.T) {
	ok, err := Verify(readFixture(t, "missing_document.json"))
	assert.False(t, ok)

	var malformed *MalformedInputError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "PolicyDocument field is required in the format.", malformed.Error())

	_, err = Verify("{")
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "invalid JSON", malformed.Reason)
}

func TestVerify_Concurrent(t *testing.T) {
	inputs := []struct {
		doc  string
		want bool
	}{
		{withResource(`"*"`), false},
		{withResource(`["bank_account"]`), true},
		{rolePolicy(`[]`), true},
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		in := inputs[i%len(inputs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Verify(in.doc)
			assert.NoError(t, err)
			assert.Equal(t, in.want, got)
		}()
	}
	wg.Wait()
}
