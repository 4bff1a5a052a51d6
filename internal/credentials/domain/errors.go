package domain

import (
	"github.com/allisson/credstore/internal/errors"
)

// Credential errors.
var (
	// ErrCredentialNotFound indicates no version exists for the requested name or id.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")

	// ErrInvalidName indicates the credential name is empty, too long or malformed.
	ErrInvalidName = errors.Wrap(errors.ErrInvalidInput, "invalid credential name")

	// ErrInvalidType indicates an unknown credential type or a type that cannot be generated.
	ErrInvalidType = errors.Wrap(errors.ErrInvalidInput, "invalid credential type")

	// ErrInvalidMode indicates an unknown write mode.
	ErrInvalidMode = errors.Wrap(errors.ErrInvalidInput, "invalid mode")

	// ErrInvalidParameters indicates generation parameters failed validation.
	ErrInvalidParameters = errors.Wrap(errors.ErrInvalidInput, "invalid generation parameters")

	// ErrInvalidValue indicates a supplied value does not match its type.
	ErrInvalidValue = errors.Wrap(errors.ErrInvalidInput, "invalid credential value")

	// ErrTypeMismatch indicates a write would change the type of an existing credential.
	ErrTypeMismatch = errors.Wrap(
		errors.ErrInvalidInput,
		"the credential type cannot be modified, delete the credential to recreate it with a different type",
	)

	// ErrExcludedAllCharacterSets indicates a password request excluded every character set.
	ErrExcludedAllCharacterSets = errors.Wrap(
		errors.ErrInvalidInput,
		"the combination of parameters in the request is not allowed, please validate your input and retry",
	)

	// ErrMissingCertificateValue indicates none of ca, certificate and private_key is set.
	ErrMissingCertificateValue = errors.Wrap(
		errors.ErrInvalidInput,
		"you must provide at least one of ca, certificate or private_key",
	)

	// ErrMixedCAFields indicates both ca and ca_name are set.
	ErrMixedCAFields = errors.Wrap(errors.ErrInvalidInput, "ca and ca_name are mutually exclusive")

	// ErrInvalidCertificate indicates a PEM block that does not parse as a certificate.
	ErrInvalidCertificate = errors.Wrap(errors.ErrInvalidInput, "the provided certificate value is not valid")

	// ErrInvalidPrivateKey indicates a PEM block that does not parse as a private key.
	ErrInvalidPrivateKey = errors.Wrap(errors.ErrInvalidInput, "the provided private key value is not valid")

	// ErrCertificateNotSignedByCA indicates the certificate issuer does not validate against the ca.
	ErrCertificateNotSignedByCA = errors.Wrap(
		errors.ErrInvalidInput,
		"the provided certificate was not signed by the ca",
	)

	// ErrCertificateKeyMismatch indicates the certificate public key does not match the private key.
	ErrCertificateKeyMismatch = errors.Wrap(
		errors.ErrInvalidInput,
		"the provided certificate does not match the private key",
	)

	// ErrCANotFound indicates the credential named by ca_name does not exist.
	ErrCANotFound = errors.Wrap(errors.ErrInvalidInput, "the ca could not be found")

	// ErrNotACA indicates the credential named by ca_name is not a certificate authority.
	ErrNotACA = errors.Wrap(errors.ErrInvalidInput, "the provided ca is not a certificate authority")

	// ErrMissingSigner indicates a certificate request without ca_name, is_ca or self_sign.
	ErrMissingSigner = errors.Wrap(
		errors.ErrInvalidInput,
		"a certificate requires ca_name, is_ca or self_sign",
	)
)
