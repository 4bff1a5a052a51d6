package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/credstore/internal/errors"
)

func TestParseParameters_Defaults(t *testing.T) {
	tests := []struct {
		name     string
		credType CredentialType
		raw      string
		want     Parameters
	}{
		{
			name:     "password omitted",
			credType: TypePassword,
			raw:      "",
			want:     &PasswordParameters{Length: DefaultPasswordLength},
		},
		{
			name:     "password null",
			credType: TypePassword,
			raw:      "null",
			want:     &PasswordParameters{Length: DefaultPasswordLength},
		},
		{
			name:     "rsa empty object",
			credType: TypeRSA,
			raw:      "{}",
			want:     &RSAParameters{KeyLength: DefaultKeyLength},
		},
		{
			name:     "ssh with comment",
			credType: TypeSSH,
			raw:      `{"ssh_comment":"deploy"}`,
			want:     &SSHParameters{KeyLength: DefaultKeyLength, SSHComment: "deploy"},
		},
		{
			name:     "certificate normalizes ca name and empty lists",
			credType: TypeCertificate,
			raw:      `{"common_name":"example.com","ca":"root-ca","alternative_names":[]}`,
			want: &CertificateParameters{
				KeyLength:  DefaultKeyLength,
				Duration:   DefaultCertificateDuration,
				CommonName: "example.com",
				CAName:     "/root-ca",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParameters(tt.credType, json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEqualParameters_DefaultEquivalence(t *testing.T) {
	explicit, err := ParseParameters(TypeRSA, json.RawMessage(`{"key_length":2048}`))
	require.NoError(t, err)
	omitted, err := ParseParameters(TypeRSA, nil)
	require.NoError(t, err)
	other, err := ParseParameters(TypeRSA, json.RawMessage(`{"key_length":4096}`))
	require.NoError(t, err)

	assert.True(t, EqualParameters(explicit, omitted))
	assert.False(t, EqualParameters(explicit, other))

	// round trip through storage keeps equality
	stored, err := json.Marshal(explicit)
	require.NoError(t, err)
	restored, err := ParseParameters(TypeRSA, stored)
	require.NoError(t, err)
	assert.True(t, EqualParameters(omitted, restored))

	cert := `{"common_name":"a","self_sign":true}`
	c1, err := ParseParameters(TypeCertificate, json.RawMessage(cert))
	require.NoError(t, err)
	stored, err = json.Marshal(c1)
	require.NoError(t, err)
	c2, err := ParseParameters(TypeCertificate, stored)
	require.NoError(t, err)
	assert.True(t, EqualParameters(c1, c2))
}

func TestParseParameters_Errors(t *testing.T) {
	tests := []struct {
		name     string
		credType CredentialType
		raw      string
		wantErr  error
	}{
		{"not generatable", TypeValue, "{}", ErrInvalidType},
		{"unknown field", TypePassword, `{"lenght":10}`, ErrInvalidParameters},
		{"password too short", TypePassword, `{"length":2}`, ErrInvalidParameters},
		{
			"every character set excluded",
			TypePassword,
			`{"exclude_upper":true,"exclude_lower":true,"exclude_number":true}`,
			ErrExcludedAllCharacterSets,
		},
		{"bad rsa key length", TypeRSA, `{"key_length":1024}`, ErrInvalidParameters},
		{"certificate without signer", TypeCertificate, `{"common_name":"a"}`, ErrMissingSigner},
		{"certificate without subject", TypeCertificate, `{"is_ca":true}`, ErrInvalidParameters},
		{
			"certificate bad key usage",
			TypeCertificate,
			`{"common_name":"a","self_sign":true,"key_usage":["everything"]}`,
			ErrInvalidParameters,
		},
		{"certificate duration", TypeCertificate, `{"common_name":"a","is_ca":true,"duration":5000}`, ErrInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParameters(tt.credType, json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestPasswordParameters_SpecialCharactersAlone(t *testing.T) {
	p, err := ParseParameters(TypePassword, json.RawMessage(
		`{"exclude_upper":true,"exclude_lower":true,"exclude_number":true,"include_special":true}`,
	))
	require.NoError(t, err)
	assert.True(t, p.(*PasswordParameters).IncludeSpecial)
}
