package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseJobID(t *testing.T) {
	resp := &Response{Status: StatusInserted, Params: []string{"42"}}
	id, err := resp.JobID()
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)

	_, err = (&Response{Status: StatusInserted}).JobID()
	var unexpected *UnexpectedResponseError
	require.ErrorAs(t, err, &unexpected)
	require.Contains(t, err.Error(), "parameter missing")

	_, err = (&Response{Status: StatusInserted, Params: []string{"x42"}}).JobID()
	require.ErrorAs(t, err, &unexpected)
}

func TestResponseParams(t *testing.T) {
	resp := &Response{Status: StatusReserved, Params: []string{"5", "11"}}

	p, err := resp.Param(1)
	require.NoError(t, err)
	require.Equal(t, "11", p)

	n, err := resp.IntParam(1)
	require.NoError(t, err)
	require.Equal(t, uint64(11), n)

	_, err = resp.Param(2)
	require.Error(t, err)
	_, err = resp.Param(-1)
	require.Error(t, err)
	_, err = resp.IntParam(5)
	require.Error(t, err)

	// an unused malformed param does not affect the others
	resp = &Response{Status: StatusUsing, Params: []string{"jobs"}}
	name, err := resp.Param(0)
	require.NoError(t, err)
	require.Equal(t, "jobs", name)
	_, err = resp.IntParam(0)
	require.Error(t, err)
}

func TestResponseBodyAsList(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want []string
	}{
		{"list", []byte("- default\n- jobs\n"), []string{"default", "jobs"}},
		{"document marker", []byte("---\n- default\n"), []string{"default"}},
		{"numeric names", []byte("- 2024\n- 1.5\n"), []string{"2024", "1.5"}},
		{"null names", []byte("---\n- default\n- null\n- Null\n- NULL\n"), []string{"default", "null", "Null", "NULL"}},
		{"tilde and booleans", []byte("- ~\n- true\n- no\n"), []string{"~", "true", "no"}},
		{"document marker only", []byte("---\n"), []string{}},
		{"no body", nil, []string{}},
		{"empty body", []byte{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Status: StatusOK, Body: tt.body}
			got, err := resp.BodyAsList()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResponseBodyAsMap(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want map[string]string
	}{
		{"map", []byte("name: default\nuptime: 12345"), map[string]string{"name": "default", "uptime": "12345"}},
		{
			"stats job",
			[]byte("---\nid: 1\ntube: default\nstate: reserved\npri: 1024\nage: 0\n"),
			map[string]string{"id": "1", "tube": "default", "state": "reserved", "pri": "1024", "age": "0"},
		},
		{"version string", []byte("version: 1.12\nhostname: box"), map[string]string{"version": "1.12", "hostname": "box"}},
		{"null values", []byte("name: null\nhostname: NULL\nid: ~\n"), map[string]string{"name": "null", "hostname": "NULL", "id": "~"}},
		{"empty value", []byte("draining: false\nos: \n"), map[string]string{"draining": "false", "os": ""}},
		{"no body", nil, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Status: StatusOK, Body: tt.body}
			got, err := resp.BodyAsMap()
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResponseBodyErrors(t *testing.T) {
	var unexpected *UnexpectedResponseError

	_, err := (&Response{Status: StatusOK, Body: []byte{0xff, 0xfe, '\n'}}).BodyAsList()
	require.ErrorAs(t, err, &unexpected)
	require.Contains(t, err.Error(), "UTF-8")

	_, err = (&Response{Status: StatusOK, Body: []byte{0xff}}).BodyAsMap()
	require.ErrorAs(t, err, &unexpected)

	_, err = (&Response{Status: StatusOK, Body: []byte("- a\n- b\n")}).BodyAsMap()
	require.ErrorAs(t, err, &unexpected, "list is not a map")

	_, err = (&Response{Status: StatusOK, Body: []byte("a: 1\n")}).BodyAsList()
	require.ErrorAs(t, err, &unexpected, "map is not a list")

	_, err = (&Response{Status: StatusOK, Body: []byte("a: 1\na: 2\n")}).BodyAsMap()
	require.ErrorAs(t, err, &unexpected, "duplicate keys are rejected")

	_, err = (&Response{Status: StatusOK, Body: []byte("- a\n- [b, c]\n")}).BodyAsList()
	require.ErrorAs(t, err, &unexpected, "nested sequence is not a tube name")

	_, err = (&Response{Status: StatusOK, Body: []byte("name: {a: 1}\n")}).BodyAsMap()
	require.ErrorAs(t, err, &unexpected, "nested mapping is not a stat")

	_, err = (&Response{Status: StatusOK, Body: []byte("just text\n")}).BodyAsList()
	require.ErrorAs(t, err, &unexpected, "scalar is not a list")
}
