// Package policy decides whether an AWS::IAM::Role Policy document grants
// its first statement access to every resource.
package policy

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Field names of the role policy format.
const (
	fieldPolicyDocument = "PolicyDocument"
	fieldStatement      = "Statement"
	fieldResource       = "Resource"
)

// Locate parses input and returns the Resource of its first statement.
//
// Only invalid JSON and a missing PolicyDocument field are errors. Every
// other shape mismatch resolves to an absent resource.
func Locate(input string) (ResolvedResource, error) {
	root, err := decode(input)
	if err != nil {
		return None(), &MalformedInputError{Reason: reasonInvalidJSON, Err: err}
	}

	obj, ok := root.(map[string]interface{})
	if !ok {
		return None(), &MalformedInputError{Reason: reasonMissingDocument}
	}
	document, ok := obj[fieldPolicyDocument]
	if !ok {
		return None(), &MalformedInputError{Reason: reasonMissingDocument}
	}

	statement, ok := firstStatement(document)
	if !ok {
		return None(), nil
	}

	return resolve(statement[fieldResource]), nil
}

// Verify reports whether the first statement of input is scoped, i.e. its
// resource is anything other than exactly "*". It returns false for a
// wildcard statement.
func Verify(input string) (bool, error) {
	resource, err := Locate(input)
	if err != nil {
		return false, err
	}
	return !IsWildcard(resource), nil
}

func decode(input string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(input))
	dec.UseNumber()

	var root interface{}
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	// Only whitespace may follow the document.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, err
	}
	return root, nil
}

// firstStatement returns the statement object a policy document applies
// first: Statement itself when it is an object, or its first element when
// it is an array.
func firstStatement(document interface{}) (map[string]interface{}, bool) {
	doc, ok := document.(map[string]interface{})
	if !ok {
		return nil, false
	}

	switch s := doc[fieldStatement].(type) {
	case map[string]interface{}:
		return s, true
	case []interface{}:
		if len(s) == 0 {
			return nil, false
		}
		first, ok := s[0].(map[string]interface{})
		return first, ok
	}
	return nil, false
}

// resolve classifies a Resource value. A string, or an array holding exactly
// one string, is present; everything else is absent.
func resolve(resource interface{}) ResolvedResource {
	switch v := resource.(type) {
	case string:
		return Some(v)
	case []interface{}:
		if len(v) != 1 {
			return None()
		}
		if s, ok := v[0].(string); ok {
			return Some(s)
		}
	}
	return None()
}
