package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/jellydator/validation"
)

// Value is a typed credential value.
type Value interface {
	CredentialType() CredentialType
	Validate() error
}

// StringValue is an opaque string supplied by the caller.
type StringValue struct {
	Value string `json:"value"`
}

func (v *StringValue) CredentialType() CredentialType { return TypeValue }

func (v *StringValue) Validate() error {
	return validation.ValidateStruct(v, validation.Field(&v.Value, validation.Required))
}

// JSONValue is an arbitrary JSON object supplied by the caller.
type JSONValue struct {
	Value json.RawMessage `json:"value"`
}

func (v *JSONValue) CredentialType() CredentialType { return TypeJSON }

func (v *JSONValue) Validate() error {
	trimmed := bytes.TrimSpace(v.Value)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("%w: value must be a JSON object", ErrInvalidValue)
	}
	return nil
}

// PasswordValue is a generated or supplied password.
type PasswordValue struct {
	Password string `json:"password"`
}

func (v *PasswordValue) CredentialType() CredentialType { return TypePassword }

func (v *PasswordValue) Validate() error {
	return validation.ValidateStruct(v, validation.Field(&v.Password, validation.Required))
}

// RSAValue is a PEM encoded RSA key pair.
type RSAValue struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

func (v *RSAValue) CredentialType() CredentialType { return TypeRSA }

func (v *RSAValue) Validate() error {
	if v.PublicKey == "" && v.PrivateKey == "" {
		return fmt.Errorf("%w: you must provide at least one of public_key or private_key", ErrInvalidValue)
	}
	return nil
}

// SSHValue is an SSH key pair: an authorized_keys public key and a PEM private key.
type SSHValue struct {
	PublicKey            string `json:"public_key"`
	PrivateKey           string `json:"private_key"`
	PublicKeyFingerprint string `json:"public_key_fingerprint,omitempty"`
}

func (v *SSHValue) CredentialType() CredentialType { return TypeSSH }

func (v *SSHValue) Validate() error {
	if v.PublicKey == "" && v.PrivateKey == "" {
		return fmt.Errorf("%w: you must provide at least one of public_key or private_key", ErrInvalidValue)
	}
	return nil
}

// CertificateValue is a certificate credential. ExpiryDate is derived from Certificate and
// never taken from the caller.
type CertificateValue struct {
	CA                   string     `json:"ca,omitempty"`
	Certificate          string     `json:"certificate,omitempty"`
	PrivateKey           string     `json:"private_key,omitempty"`
	CAName               string     `json:"ca_name,omitempty"`
	Transitional         bool       `json:"transitional"`
	CertificateAuthority bool       `json:"certificate_authority"`
	SelfSigned           bool       `json:"self_signed"`
	ExpiryDate           *time.Time `json:"expiry_date,omitempty"`
}

func (v *CertificateValue) CredentialType() CredentialType { return TypeCertificate }

// Validate enforces the structural invariants. Chain and key consistency need a certificate
// parser and are checked by the certificate validator.
func (v *CertificateValue) Validate() error {
	if v.CA == "" && v.Certificate == "" && v.PrivateKey == "" {
		return ErrMissingCertificateValue
	}
	if v.CA != "" && v.CAName != "" {
		return ErrMixedCAFields
	}
	return nil
}

// NewValue returns an empty value of type t.
func NewValue(t CredentialType) (Value, error) {
	switch t {
	case TypeValue:
		return &StringValue{}, nil
	case TypeJSON:
		return &JSONValue{}, nil
	case TypePassword:
		return &PasswordValue{}, nil
	case TypeRSA:
		return &RSAValue{}, nil
	case TypeSSH:
		return &SSHValue{}, nil
	case TypeCertificate:
		return &CertificateValue{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
}

// ParseValue decodes and validates a caller supplied value of type t.
//
// The value and json types take the raw JSON as their content; every other type decodes an
// object with the type's fields.
func ParseValue(t CredentialType, raw json.RawMessage) (Value, error) {
	value, err := NewValue(t)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case *StringValue:
		if err := json.Unmarshal(raw, &v.Value); err != nil {
			return nil, fmt.Errorf("%w: value must be a string", ErrInvalidValue)
		}
	case *JSONValue:
		v.Value = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}

	if c, ok := value.(*CertificateValue); ok {
		c.ExpiryDate = nil
		if c.CAName != "" {
			name, err := NormalizeName(c.CAName)
			if err != nil {
				return nil, err
			}
			c.CAName = name
		}
	}

	if err := value.Validate(); err != nil {
		if _, ok := err.(validation.Errors); ok {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return nil, err
	}
	return value, nil
}

// DecodeValue decodes a stored value of type t.
func DecodeValue(t CredentialType, data []byte) (Value, error) {
	value, err := NewValue(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return nil, fmt.Errorf("failed to decode %s value: %w", t, err)
	}
	return value, nil
}

// PresentValue renders a value the way clients read it back: the bare content for value and
// json credentials, the typed object otherwise.
func PresentValue(value Value) (json.RawMessage, error) {
	switch v := value.(type) {
	case *StringValue:
		return json.Marshal(v.Value)
	case *JSONValue:
		return v.Value, nil
	default:
		return json.Marshal(v)
	}
}
