package ir

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementFingerprintDeterminism(t *testing.T) {
	frags := []string{"MATCH (ob1:OB)", "OPTIONAL MATCH (ob1)-[*]-(run2:Run)"}
	params := IRObject{"p0": IRString("red"), "p1": IRInt(3)}

	a, err := StatementFingerprint(frags, params, "run2")
	require.NoError(t, err)
	b, err := StatementFingerprint(frags, IRObject{"p1": IRInt(3), "p0": IRString("red")}, "run2")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), a)
}

func TestStatementFingerprintChangesWithInput(t *testing.T) {
	base := MustStatementFingerprint([]string{"MATCH (ob1:OB)"}, nil, "ob1")

	testCases := []struct {
		name   string
		frags  []string
		params IRObject
		ret    string
	}{
		{"fragment", []string{"MATCH (ob1:Run)"}, nil, "ob1"},
		{"order", []string{"MATCH (ob1:OB)", ""}, nil, "ob1"},
		{"params", []string{"MATCH (ob1:OB)"}, IRObject{"p0": IRInt(1)}, "ob1"},
		{"returns", []string{"MATCH (ob1:OB)"}, nil, "ob2"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t, base, MustStatementFingerprint(tc.frags, tc.params, tc.ret))
		})
	}
}

func TestStatementFingerprintNilParamsEqualsEmpty(t *testing.T) {
	assert.Equal(t,
		MustStatementFingerprint([]string{"x"}, nil, "r"),
		MustStatementFingerprint([]string{"x"}, IRObject{}, "r"))
}

func TestStatementFingerprintErrorHandling(t *testing.T) {
	_, err := StatementFingerprint([]string{"x"}, IRObject{"p": IRNull{}}, "r")
	assert.Error(t, err)

	assert.Panics(t, func() {
		MustStatementFingerprint([]string{"x"}, IRObject{"p": IRNull{}}, "r")
	})
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t, hashWithDomain(DomainStatement, data), hashWithDomain(DomainGraph, data))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must differ from "a" + 0x00 + "bc"
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestGraphFingerprint(t *testing.T) {
	assert.Equal(t, GraphFingerprint("n0 start"), GraphFingerprint("n0 start"))
	assert.NotEqual(t, GraphFingerprint("n0 start"), GraphFingerprint("n0 start\n"))
}
