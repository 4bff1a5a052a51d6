package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/sethvargo/go-password/password"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
)

// PasswordGenerator generates passwords from character set rules.
type PasswordGenerator struct{}

// NewPasswordGenerator creates a new PasswordGenerator.
func NewPasswordGenerator() *PasswordGenerator {
	return &PasswordGenerator{}
}

// Generate returns a password honoring the excluded and included character sets.
func (g *PasswordGenerator) Generate(params *credentialsDomain.PasswordParameters) (*credentialsDomain.PasswordValue, error) {
	if params.OnlyHex {
		return g.hex(params.Length)
	}

	letters := !params.ExcludeUpper || !params.ExcludeLower
	digits := !params.ExcludeNumber
	symbols := params.IncludeSpecial
	if !letters && !digits && !symbols {
		return nil, credentialsDomain.ErrExcludedAllCharacterSets
	}

	numDigits, numSymbols := split(params.Length, letters, digits, symbols)

	input := &password.GeneratorInput{}
	noUpper := params.ExcludeUpper
	if params.ExcludeLower {
		// the library always draws from lower letters, so point them at the upper set
		input.LowerLetters = password.UpperLetters
		noUpper = true
	}
	gen, err := password.NewGenerator(input)
	if err != nil {
		return nil, fmt.Errorf("failed to create password generator: %w", err)
	}

	pw, err := gen.Generate(params.Length, numDigits, numSymbols, noUpper, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	return &credentialsDomain.PasswordValue{Password: pw}, nil
}

func (g *PasswordGenerator) hex(length int) (*credentialsDomain.PasswordValue, error) {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return &credentialsDomain.PasswordValue{Password: hex.EncodeToString(buf)[:length]}, nil
}

// split spreads length across the enabled character classes. Letters take whatever the
// digits and symbols leave.
func split(length int, letters, digits, symbols bool) (numDigits, numSymbols int) {
	if !letters {
		switch {
		case digits && symbols:
			numDigits = length / 2
			return numDigits, length - numDigits
		case digits:
			return length, 0
		default:
			return 0, length
		}
	}
	if digits {
		numDigits = length / 4
	}
	if symbols {
		numSymbols = length / 4
	}
	return numDigits, numSymbols
}
