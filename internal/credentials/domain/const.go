// Package domain defines credentials, their append-only versions, typed generation
// parameters and typed secret values.
package domain

// CredentialType identifies the shape of a credential value.
type CredentialType string

const (
	TypeValue       CredentialType = "value"
	TypeJSON        CredentialType = "json"
	TypePassword    CredentialType = "password"
	TypeRSA         CredentialType = "rsa"
	TypeSSH         CredentialType = "ssh"
	TypeCertificate CredentialType = "certificate"
)

// Generatable reports whether values of this type can be generated.
func (t CredentialType) Generatable() bool {
	switch t {
	case TypePassword, TypeRSA, TypeSSH, TypeCertificate:
		return true
	default:
		return false
	}
}

// Valid reports whether t is a known type.
func (t CredentialType) Valid() bool {
	return t == TypeValue || t == TypeJSON || t.Generatable()
}

// WriteMode selects what a generate request does when the credential already exists.
type WriteMode string

const (
	// ModeOverwrite always generates a new version.
	ModeOverwrite WriteMode = "overwrite"
	// ModeConverge generates a new version only when the effective parameters differ from
	// the ones recorded on the current version.
	ModeConverge WriteMode = "converge"
	// ModeNoOverwrite never replaces an existing credential.
	ModeNoOverwrite WriteMode = "no-overwrite"
)

// Valid reports whether m is a known mode.
func (m WriteMode) Valid() bool {
	return m == ModeOverwrite || m == ModeConverge || m == ModeNoOverwrite
}

// Defaults applied to omitted generation parameters.
const (
	DefaultPasswordLength      = 30
	MinPasswordLength          = 4
	MaxPasswordLength          = 200
	DefaultKeyLength           = 2048
	DefaultCertificateDuration = 365
	MaxCertificateDuration     = 3650
	MaxNameLength              = 1024
)

// ValidKeyLengths lists the accepted RSA key lengths.
var ValidKeyLengths = []int{2048, 3072, 4096}
