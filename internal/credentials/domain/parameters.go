package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	validation "github.com/jellydator/validation"
)

// Parameters are typed generation parameters. Values returned by ParseParameters have every
// omitted field set to its documented default, so two requests that differ only by omitted
// defaults compare equal.
type Parameters interface {
	// CredentialType returns the type these parameters generate.
	CredentialType() CredentialType

	// Validate checks the effective parameters.
	Validate() error

	applyDefaults()
}

// PasswordParameters generate a password.
type PasswordParameters struct {
	Length         int  `json:"length"`
	ExcludeUpper   bool `json:"exclude_upper"`
	ExcludeLower   bool `json:"exclude_lower"`
	ExcludeNumber  bool `json:"exclude_number"`
	IncludeSpecial bool `json:"include_special"`
	OnlyHex        bool `json:"only_hex"`
}

func (p *PasswordParameters) CredentialType() CredentialType { return TypePassword }

func (p *PasswordParameters) applyDefaults() {
	if p.Length == 0 {
		p.Length = DefaultPasswordLength
	}
}

// Validate rejects lengths out of range and requests that exclude every character set.
func (p *PasswordParameters) Validate() error {
	if !p.OnlyHex && !p.IncludeSpecial && p.ExcludeUpper && p.ExcludeLower && p.ExcludeNumber {
		return ErrExcludedAllCharacterSets
	}
	return validation.ValidateStruct(p,
		validation.Field(&p.Length, validation.Min(MinPasswordLength), validation.Max(MaxPasswordLength)),
	)
}

// RSAParameters generate an RSA key pair.
type RSAParameters struct {
	KeyLength int `json:"key_length"`
}

func (p *RSAParameters) CredentialType() CredentialType { return TypeRSA }

func (p *RSAParameters) applyDefaults() {
	if p.KeyLength == 0 {
		p.KeyLength = DefaultKeyLength
	}
}

func (p *RSAParameters) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.KeyLength, validation.In(keyLengths()...)),
	)
}

// SSHParameters generate an SSH key pair.
type SSHParameters struct {
	KeyLength  int    `json:"key_length"`
	SSHComment string `json:"ssh_comment"`
}

func (p *SSHParameters) CredentialType() CredentialType { return TypeSSH }

func (p *SSHParameters) applyDefaults() {
	if p.KeyLength == 0 {
		p.KeyLength = DefaultKeyLength
	}
}

func (p *SSHParameters) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.KeyLength, validation.In(keyLengths()...)),
		validation.Field(&p.SSHComment, validation.Length(0, 255)),
	)
}

// Key usages accepted on generated certificates.
var (
	KeyUsages = []string{
		"digital_signature", "non_repudiation", "key_encipherment", "data_encipherment",
		"key_agreement", "key_cert_sign", "crl_sign", "encipher_only", "decipher_only",
	}
	ExtendedKeyUsages = []string{
		"server_auth", "client_auth", "code_signing", "email_protection", "timestamping",
	}
)

// CertificateParameters generate a certificate signed by a CA credential, a self-signed
// certificate or a CA.
type CertificateParameters struct {
	KeyLength        int      `json:"key_length"`
	Duration         int      `json:"duration"`
	CommonName       string   `json:"common_name"`
	Organization     string   `json:"organization"`
	OrganizationUnit string   `json:"organization_unit"`
	Locality         string   `json:"locality"`
	State            string   `json:"state"`
	Country          string   `json:"country"`
	AlternativeNames []string `json:"alternative_names"`
	KeyUsage         []string `json:"key_usage"`
	ExtendedKeyUsage []string `json:"extended_key_usage"`
	CAName           string   `json:"ca"`
	IsCA             bool     `json:"is_ca"`
	SelfSign         bool     `json:"self_sign"`
}

func (p *CertificateParameters) CredentialType() CredentialType { return TypeCertificate }

func (p *CertificateParameters) applyDefaults() {
	if p.KeyLength == 0 {
		p.KeyLength = DefaultKeyLength
	}
	if p.Duration == 0 {
		p.Duration = DefaultCertificateDuration
	}
	if p.CAName != "" {
		if name, err := NormalizeName(p.CAName); err == nil {
			p.CAName = name
		}
	}
	// nil and empty lists are the same request
	if len(p.AlternativeNames) == 0 {
		p.AlternativeNames = nil
	}
	if len(p.KeyUsage) == 0 {
		p.KeyUsage = nil
	}
	if len(p.ExtendedKeyUsage) == 0 {
		p.ExtendedKeyUsage = nil
	}
}

// SelfSigned reports whether the certificate signs itself.
func (p *CertificateParameters) SelfSigned() bool {
	return p.CAName == "" && (p.SelfSign || p.IsCA)
}

func (p *CertificateParameters) Validate() error {
	if p.CAName == "" && !p.IsCA && !p.SelfSign {
		return ErrMissingSigner
	}
	if p.CommonName == "" && p.Organization == "" && p.OrganizationUnit == "" &&
		p.Locality == "" && p.State == "" && p.Country == "" {
		return fmt.Errorf("%w: you must provide at least one distinguished name field", ErrInvalidParameters)
	}
	return validation.ValidateStruct(p,
		validation.Field(&p.KeyLength, validation.In(keyLengths()...)),
		validation.Field(&p.Duration, validation.Min(1), validation.Max(MaxCertificateDuration)),
		validation.Field(&p.CommonName, validation.Length(0, 64)),
		validation.Field(&p.Country, validation.Length(0, 2)),
		validation.Field(&p.KeyUsage, validation.Each(validation.In(toAny(KeyUsages)...))),
		validation.Field(&p.ExtendedKeyUsage, validation.Each(validation.In(toAny(ExtendedKeyUsages)...))),
	)
}

// ParseParameters decodes raw parameters for a generatable type, applies defaults and
// validates the result. Unknown fields are rejected.
func ParseParameters(t CredentialType, raw json.RawMessage) (Parameters, error) {
	var p Parameters
	switch t {
	case TypePassword:
		p = &PasswordParameters{}
	case TypeRSA:
		p = &RSAParameters{}
	case TypeSSH:
		p = &SSHParameters{}
	case TypeCertificate:
		p = &CertificateParameters{}
	default:
		return nil, fmt.Errorf("%w: %q cannot be generated", ErrInvalidType, t)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
	}
	p.applyDefaults()

	if err := p.Validate(); err != nil {
		if _, ok := err.(validation.Errors); ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
		return nil, err
	}
	return p, nil
}

// EqualParameters compares effective parameters field by field.
func EqualParameters(a, b Parameters) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.DeepEqual(a, b)
}

func keyLengths() []any {
	out := make([]any, len(ValidKeyLengths))
	for i, l := range ValidKeyLengths {
		out[i] = l
	}
	return out
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
