package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	credentialsService "github.com/allisson/credstore/internal/credentials/service"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

type credentialFixture struct {
	useCase    CredentialUseCase
	repo       *memCredentialRepo
	encryption *memEncryption
	tx         *fakeTxManager
}

func newCredentialFixture() *credentialFixture {
	return newCredentialFixtureWithValidator(
		credentialsService.NewCertificateValidator(credentialsService.NewCertificateReader()),
	)
}

func newCredentialFixtureWithValidator(validator credentialsService.CertificateValidator) *credentialFixture {
	repo := newMemCredentialRepo()
	f := &credentialFixture{
		repo:       repo,
		encryption: newMemEncryption(),
		tx:         &fakeTxManager{repo: repo},
	}
	f.useCase = NewCredentialUseCase(
		f.tx,
		f.repo,
		f.encryption,
		credentialsService.NewGenerator(),
		validator,
		discardLogger(),
	)
	return f
}

func passwordOf(t *testing.T, version *credentialsDomain.CredentialVersion) string {
	t.Helper()
	var value credentialsDomain.PasswordValue
	require.NoError(t, json.Unmarshal(version.Value, &value))
	require.NotEmpty(t, value.Password)
	return value.Password
}

func certificateOf(t *testing.T, version *credentialsDomain.CredentialVersion) credentialsDomain.CertificateValue {
	t.Helper()
	var value credentialsDomain.CertificateValue
	require.NoError(t, json.Unmarshal(version.Value, &value))
	return value
}

func generate(
	t *testing.T,
	uc CredentialUseCase,
	name string,
	credType credentialsDomain.CredentialType,
	mode credentialsDomain.WriteMode,
	params string,
) *credentialsDomain.CredentialVersion {
	t.Helper()
	version, err := uc.GenerateOrConverge(context.Background(), GenerateInput{
		Name:       name,
		Type:       credType,
		Mode:       mode,
		Parameters: json.RawMessage(params),
	})
	require.NoError(t, err)
	return version
}

func TestGenerateOrConverge_ConvergeIsIdempotent(t *testing.T) {
	f := newCredentialFixture()

	first := generate(t, f.useCase, "db-password", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{"length":20}`)
	second := generate(t, f.useCase, "/db-password", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{"length":20}`)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, passwordOf(t, first), passwordOf(t, second))
	assert.Equal(t, "/db-password", first.Name)
	assert.Equal(t, 1, f.repo.count("/db-password"))
}

func TestGenerateOrConverge_DefaultsAreEquivalent(t *testing.T) {
	f := newCredentialFixture()

	first := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, "", `{}`)
	second := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{"length":30}`)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, passwordOf(t, first), credentialsDomain.DefaultPasswordLength)
}

func TestGenerateOrConverge_ParameterChangeRegenerates(t *testing.T) {
	f := newCredentialFixture()

	first := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{"length":20}`)
	second := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{"length":25}`)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, passwordOf(t, second), 25)
	assert.Equal(t, 2, f.repo.count("/pw"))
	assert.JSONEq(t, `{"length":25,"exclude_upper":false,"exclude_lower":false,"exclude_number":false,"include_special":false,"only_hex":false}`,
		string(second.GenerationParameters))
}

func TestGenerateOrConverge_OverwriteAlwaysGenerates(t *testing.T) {
	f := newCredentialFixture()

	first := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeOverwrite, `{}`)
	second := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeOverwrite, `{}`)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, passwordOf(t, first), passwordOf(t, second))
	assert.Equal(t, 2, f.repo.count("/pw"))
}

func TestGenerateOrConverge_NoOverwriteKeepsCurrent(t *testing.T) {
	f := newCredentialFixture()

	first := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeNoOverwrite, `{"length":10}`)
	second := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeNoOverwrite, `{"length":40}`)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, passwordOf(t, second), 10)
}

func TestGenerateOrConverge_SetValueIsReplacedOnConverge(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	set, err := f.useCase.Set(ctx, SetInput{
		Name:  "/pw",
		Type:  credentialsDomain.TypePassword,
		Value: json.RawMessage(`{"password":"supplied"}`),
	})
	require.NoError(t, err)

	generated := generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{}`)
	assert.NotEqual(t, set.ID, generated.ID)
}

func TestGenerateOrConverge_Errors(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()
	generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{}`)

	tests := []struct {
		name    string
		input   GenerateInput
		wantErr error
	}{
		{
			name:    "type change",
			input:   GenerateInput{Name: "/pw", Type: credentialsDomain.TypeRSA},
			wantErr: credentialsDomain.ErrTypeMismatch,
		},
		{
			name:    "value cannot be generated",
			input:   GenerateInput{Name: "/v", Type: credentialsDomain.TypeValue},
			wantErr: credentialsDomain.ErrInvalidType,
		},
		{
			name:    "unknown mode",
			input:   GenerateInput{Name: "/pw", Type: credentialsDomain.TypePassword, Mode: "replace"},
			wantErr: credentialsDomain.ErrInvalidMode,
		},
		{
			name:    "bad name",
			input:   GenerateInput{Name: "/a//b", Type: credentialsDomain.TypePassword},
			wantErr: credentialsDomain.ErrInvalidName,
		},
		{
			name: "all character sets excluded",
			input: GenerateInput{
				Name:       "/other",
				Type:       credentialsDomain.TypePassword,
				Parameters: json.RawMessage(`{"exclude_upper":true,"exclude_lower":true,"exclude_number":true}`),
			},
			wantErr: credentialsDomain.ErrExcludedAllCharacterSets,
		},
		{
			name: "missing ca",
			input: GenerateInput{
				Name:       "/leaf",
				Type:       credentialsDomain.TypeCertificate,
				Parameters: json.RawMessage(`{"common_name":"leaf","ca":"/nope"}`),
			},
			wantErr: credentialsDomain.ErrCANotFound,
		},
		{
			name: "ca is not a certificate",
			input: GenerateInput{
				Name:       "/leaf",
				Type:       credentialsDomain.TypeCertificate,
				Parameters: json.RawMessage(`{"common_name":"leaf","ca":"/pw"}`),
			},
			wantErr: credentialsDomain.ErrNotACA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.useCase.GenerateOrConverge(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
	assert.Equal(t, 1, f.repo.count("/pw"))
	assert.Equal(t, 0, f.repo.count("/leaf"))
}

func TestGenerateOrConverge_CertificateFollowsCARotation(t *testing.T) {
	f := newCredentialFixture()
	caParams := `{"common_name":"root","is_ca":true,"duration":30}`
	leafParams := `{"common_name":"leaf.internal","ca":"root","duration":10}`

	ca := generate(t, f.useCase, "/root", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge, caParams)
	leaf := generate(t, f.useCase, "/leaf", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge, leafParams)

	require.True(t, leaf.SignedBy.Valid)
	assert.Equal(t, ca.ID, leaf.SignedBy.UUID)
	require.NotNil(t, leaf.ExpiresAt)
	leafValue := certificateOf(t, leaf)
	assert.Equal(t, "/root", leafValue.CAName)
	assert.Empty(t, leafValue.CA)
	assert.NoError(t, leafValue.Validate())
	assertSignedBy(t, leafValue, certificateOf(t, ca))

	same := generate(t, f.useCase, "/leaf", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge, leafParams)
	assert.Equal(t, leaf.ID, same.ID)

	rotated := generate(t, f.useCase, "/root", credentialsDomain.TypeCertificate, credentialsDomain.ModeOverwrite, caParams)
	reissued := generate(t, f.useCase, "/leaf", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge, leafParams)

	assert.NotEqual(t, leaf.ID, reissued.ID)
	assert.Equal(t, rotated.ID, reissued.SignedBy.UUID)
	assertSignedBy(t, certificateOf(t, reissued), certificateOf(t, rotated))
}

func assertSignedBy(t *testing.T, leaf, ca credentialsDomain.CertificateValue) {
	t.Helper()
	validator := credentialsService.NewCertificateValidator(credentialsService.NewCertificateReader())
	_, err := validator.Validate(&credentialsDomain.CertificateValue{Certificate: leaf.Certificate, CA: ca.Certificate})
	assert.NoError(t, err)
}

// rejectingValidator fails every certificate check.
type rejectingValidator struct {
	credentialsService.CertificateValidator
	calls int
}

func (v *rejectingValidator) Validate(*credentialsDomain.CertificateValue) (*time.Time, error) {
	v.calls++
	return nil, credentialsDomain.ErrCertificateKeyMismatch
}

func TestGenerateOrConverge_CertificateIsValidatedBeforeStoring(t *testing.T) {
	validator := &rejectingValidator{
		CertificateValidator: credentialsService.NewCertificateValidator(credentialsService.NewCertificateReader()),
	}
	f := newCredentialFixtureWithValidator(validator)
	ctx := context.Background()

	_, err := f.useCase.GenerateOrConverge(ctx, GenerateInput{
		Name:       "/self",
		Type:       credentialsDomain.TypeCertificate,
		Parameters: json.RawMessage(`{"common_name":"self","self_sign":true}`),
	})
	assert.ErrorIs(t, err, credentialsDomain.ErrCertificateKeyMismatch)
	assert.Equal(t, 1, validator.calls)
	assert.Equal(t, 0, f.repo.count("/self"))
	assert.ErrorIs(t, f.useCase.Delete(ctx, "/self"), credentialsDomain.ErrCredentialNotFound)
}

func TestSet_GeneratedCertificateRoundTrips(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	generate(t, f.useCase, "/root", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge,
		`{"common_name":"root","is_ca":true}`)
	leaf := generate(t, f.useCase, "/leaf", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge,
		`{"common_name":"leaf","ca":"/root"}`)

	read, err := f.useCase.Get(ctx, "/leaf")
	require.NoError(t, err)

	written, err := f.useCase.Set(ctx, SetInput{Name: "/leaf", Type: credentialsDomain.TypeCertificate, Value: read.Value})
	require.NoError(t, err)
	assert.NotEqual(t, leaf.ID, written.ID)
	assert.Equal(t, leaf.SignedBy, written.SignedBy)
	assert.Equal(t, "/root", certificateOf(t, written).CAName)
}

func TestSet_CertificateKeyMismatchWritesNothing(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	a := certificateOf(t, generate(t, f.useCase, "/a", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge,
		`{"common_name":"a","self_sign":true}`))
	b := certificateOf(t, generate(t, f.useCase, "/b", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge,
		`{"common_name":"b","self_sign":true}`))

	raw, err := json.Marshal(map[string]string{"certificate": a.Certificate, "private_key": b.PrivateKey})
	require.NoError(t, err)

	_, err = f.useCase.Set(ctx, SetInput{Name: "/mixed", Type: credentialsDomain.TypeCertificate, Value: raw})
	assert.ErrorIs(t, err, credentialsDomain.ErrCertificateKeyMismatch)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 0, f.repo.count("/mixed"))

	_, err = f.useCase.Get(ctx, "/mixed")
	assert.ErrorIs(t, err, credentialsDomain.ErrCredentialNotFound)
	assert.ErrorIs(t, f.useCase.Delete(ctx, "/mixed"), credentialsDomain.ErrCredentialNotFound)
}

func TestSet_CertificateWithCAName(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	ca := generate(t, f.useCase, "/root", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge,
		`{"common_name":"root","is_ca":true}`)
	leaf := certificateOf(t, generate(t, f.useCase, "/issued", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge,
		`{"common_name":"issued","ca":"/root"}`))

	raw, err := json.Marshal(map[string]string{
		"certificate": leaf.Certificate,
		"private_key": leaf.PrivateKey,
		"ca_name":     "root",
	})
	require.NoError(t, err)

	version, err := f.useCase.Set(ctx, SetInput{Name: "/imported", Type: credentialsDomain.TypeCertificate, Value: raw})
	require.NoError(t, err)

	value := certificateOf(t, version)
	assert.Empty(t, value.CA)
	assert.Equal(t, "/root", value.CAName)
	assert.NoError(t, value.Validate())
	require.NotNil(t, value.ExpiryDate)
	assert.Equal(t, ca.ID, version.SignedBy.UUID)
	assert.Empty(t, version.GenerationParameters)
}

func TestSet_CertificateNotSignedByCA(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	generate(t, f.useCase, "/root", credentialsDomain.TypeCertificate, credentialsDomain.ModeConverge,
		`{"common_name":"root","is_ca":true}`)
	other := certificateOf(t, generate(t, f.useCase, "/other", credentialsDomain.TypeCertificate,
		credentialsDomain.ModeConverge, `{"common_name":"other","self_sign":true}`))

	raw, err := json.Marshal(map[string]string{"certificate": other.Certificate, "ca_name": "/root"})
	require.NoError(t, err)

	_, err = f.useCase.Set(ctx, SetInput{Name: "/imported", Type: credentialsDomain.TypeCertificate, Value: raw})
	assert.ErrorIs(t, err, credentialsDomain.ErrCertificateNotSignedByCA)
	assert.Equal(t, 0, f.repo.count("/imported"))
}

func TestSetAndRead(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	first, err := f.useCase.Set(ctx, SetInput{Name: "app/token", Type: credentialsDomain.TypeValue, Value: json.RawMessage(`"one"`)})
	require.NoError(t, err)
	second, err := f.useCase.Set(ctx, SetInput{Name: "app/token", Type: credentialsDomain.TypeValue, Value: json.RawMessage(`"two"`)})
	require.NoError(t, err)
	assert.JSONEq(t, `"two"`, string(second.Value))

	current, err := f.useCase.Get(ctx, "/app/token")
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.JSONEq(t, `"two"`, string(current.Value))

	versions, err := f.useCase.GetVersions(ctx, "/app/token", 0)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, second.ID, versions[0].ID)
	assert.JSONEq(t, `"one"`, string(versions[1].Value))

	limited, err := f.useCase.GetVersions(ctx, "/app/token", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	byID, err := f.useCase.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `"one"`, string(byID.Value))

	_, err = f.useCase.Set(ctx, SetInput{Name: "/app/token", Type: credentialsDomain.TypeJSON, Value: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, credentialsDomain.ErrTypeMismatch)
}

func TestGet_UnknownKeyOnlyAffectsThatValue(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	lost, err := f.useCase.Set(ctx, SetInput{Name: "/lost", Type: credentialsDomain.TypeValue, Value: json.RawMessage(`"x"`)})
	require.NoError(t, err)
	_, err = f.useCase.Set(ctx, SetInput{Name: "/kept", Type: credentialsDomain.TypeValue, Value: json.RawMessage(`"y"`)})
	require.NoError(t, err)

	f.encryption.mu.Lock()
	delete(f.encryption.values, lost.EncryptedValueID)
	f.encryption.mu.Unlock()

	_, err = f.useCase.Get(ctx, "/lost")
	assert.ErrorIs(t, err, encryptionDomain.ErrKeyNotFound)

	kept, err := f.useCase.Get(ctx, "/kept")
	require.NoError(t, err)
	assert.JSONEq(t, `"y"`, string(kept.Value))
}

func TestDelete(t *testing.T) {
	f := newCredentialFixture()
	ctx := context.Background()

	generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeConverge, `{}`)
	generate(t, f.useCase, "/pw", credentialsDomain.TypePassword, credentialsDomain.ModeOverwrite, `{}`)

	require.NoError(t, f.useCase.Delete(ctx, "pw"))
	assert.Equal(t, 0, f.repo.count("/pw"))

	_, err := f.useCase.Get(ctx, "/pw")
	assert.ErrorIs(t, err, credentialsDomain.ErrCredentialNotFound)
	assert.ErrorIs(t, f.useCase.Delete(ctx, "/pw"), apperrors.ErrNotFound)
}

func TestGenerateOrConverge_ConcurrentWritersConvergeOnOneVersion(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newCredentialFixture()
	ctx := context.Background()

	const writers = 8
	ids := make(chan string, writers)
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			version, err := f.useCase.GenerateOrConverge(ctx, GenerateInput{
				Name: "/shared",
				Type: credentialsDomain.TypePassword,
				Mode: credentialsDomain.ModeConverge,
			})
			if assert.NoError(t, err) {
				ids <- version.ID.String()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
	assert.Equal(t, 1, f.repo.count("/shared"))
}
