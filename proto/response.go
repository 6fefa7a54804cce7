package proto

import (
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Response represents a parsed beanstalkd reply.
type Response struct {
	// Status is the reply keyword
	Status Status

	// Params are the tokens following the status, kept as strings.
	// Use Param, IntParam or JobID for typed access.
	Params []string

	// Body is the data block for OK, RESERVED and FOUND replies, nil otherwise.
	// It never includes the trailing CRLF.
	Body []byte
}

// JobID returns the first param as a job id.
// INSERTED, BURIED (from put), RESERVED and FOUND carry the id there.
func (r *Response) JobID() (uint64, error) {
	return r.IntParam(0)
}

// Param returns the param at index.
func (r *Response) Param(index int) (string, error) {
	if index < 0 || index >= len(r.Params) {
		return "", &UnexpectedResponseError{Message: "parameter missing: " + strconv.Itoa(index)}
	}
	return r.Params[index], nil
}

// IntParam returns the param at index parsed as an unsigned integer.
func (r *Response) IntParam(index int) (uint64, error) {
	token, err := r.Param(index)
	if err != nil {
		return 0, err
	}

	value, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, &UnexpectedResponseError{Message: "invalid integer parameter " + strconv.Itoa(index), Err: err}
	}
	return value, nil
}

// BodyAsMap parses the body as a flat YAML mapping, as returned by the stats
// commands:
//
//	---
//	current-jobs-urgent: 0
//	name: default
//
// Values are kept verbatim, so a tube named "null" stays "null".
// Returns an empty map when there is no body.
func (r *Response) BodyAsMap() (map[string]string, error) {
	m := make(map[string]string)

	node, err := r.decodeBody()
	if err != nil || node == nil {
		return m, err
	}
	if node.Kind != yaml.MappingNode {
		return nil, &UnexpectedResponseError{Message: "body is not a mapping"}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return nil, &UnexpectedResponseError{Message: "mapping entry is not a scalar pair"}
		}
		if _, ok := m[key.Value]; ok {
			return nil, &UnexpectedResponseError{Message: "duplicate key " + quote(key.Value)}
		}
		m[key.Value] = value.Value
	}
	return m, nil
}

// BodyAsList parses the body as a YAML sequence, as returned by the
// list-tubes commands:
//
//	---
//	- default
//	- emails
//
// Items are kept verbatim, one per line.
// Returns an empty slice when there is no body.
func (r *Response) BodyAsList() ([]string, error) {
	list := []string{}

	node, err := r.decodeBody()
	if err != nil || node == nil {
		return list, err
	}
	if node.Kind != yaml.SequenceNode {
		return nil, &UnexpectedResponseError{Message: "body is not a sequence"}
	}

	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, &UnexpectedResponseError{Message: "sequence item is not a scalar"}
		}
		list = append(list, item.Value)
	}
	return list, nil
}

// decodeBody returns the root node of the body, nil when the body is empty.
func (r *Response) decodeBody() (*yaml.Node, error) {
	if len(r.Body) == 0 {
		return nil, nil
	}

	if !utf8.Valid(r.Body) {
		return nil, &UnexpectedResponseError{Message: "body is not valid UTF-8"}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(r.Body, &doc); err != nil {
		return nil, &UnexpectedResponseError{Message: "malformed body", Err: err}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	// A bare "---" holds a single empty null scalar
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Value == "" && root.ShortTag() == "!!null" {
		return nil, nil
	}
	return root, nil
}
