package service

import (
	"fmt"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

type credentialGenerator struct {
	passwords    *PasswordGenerator
	rsaKeys      *RSAGenerator
	sshKeys      *SSHGenerator
	certificates *CertificateGenerator
}

// NewGenerator creates a Generator dispatching on the parameter type.
func NewGenerator() Generator {
	return &credentialGenerator{
		passwords:    NewPasswordGenerator(),
		rsaKeys:      NewRSAGenerator(),
		sshKeys:      NewSSHGenerator(),
		certificates: NewCertificateGenerator(),
	}
}

func (g *credentialGenerator) Generate(
	params credentialsDomain.Parameters,
	ca *CertificateAuthority,
) (credentialsDomain.Value, error) {
	var (
		value credentialsDomain.Value
		err   error
	)
	switch p := params.(type) {
	case *credentialsDomain.PasswordParameters:
		value, err = g.passwords.Generate(p)
	case *credentialsDomain.RSAParameters:
		value, err = g.rsaKeys.Generate(p)
	case *credentialsDomain.SSHParameters:
		value, err = g.sshKeys.Generate(p)
	case *credentialsDomain.CertificateParameters:
		value, err = g.certificates.Generate(p, ca)
	default:
		return nil, fmt.Errorf("%w: %T", credentialsDomain.ErrInvalidType, params)
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}
