package auth_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/auth"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

// Mock credential repository for testing
type mockCredentials struct {
	records map[string]*auth.Credentials
	err     error
}

func (m *mockCredentials) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records[email], nil
}

var _ = Describe("Service", func() {
	var (
		service *auth.Service
		repo    *mockCredentials
		ctx     context.Context
	)

	const password = "correct-horse-battery"

	BeforeEach(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())

		repo = &mockCredentials{records: map[string]*auth.Credentials{
			"head@keswick.org": {
				Email:        "head@keswick.org",
				PasswordHash: string(hash),
				Role:         "executive",
				IsActive:     true,
			},
			"former.staff@keswick.org": {
				Email:        "former.staff@keswick.org",
				PasswordHash: string(hash),
				Role:         "principal",
				IsActive:     false,
			},
		}}
		tokens := auth.NewJWTTokenGenerator(
			"test-access-secret-with-enough-length!!",
			"test-refresh-secret-with-enough-length!",
		)
		service = auth.NewService(repo, tokens, bcrypt.MinCost)
		ctx = context.Background()
	})

	Describe("Authenticate", func() {
		It("should issue a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "head@keswick.org",
				Password: password,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Email).To(Equal("head@keswick.org"))
			Expect(claims.Role).To(Equal("executive"))
		})

		It("should reject a wrong password", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "head@keswick.org",
				Password: "wrong",
			})
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("should reject an unknown email with the same error", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "nobody@keswick.org",
				Password: password,
			})
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("should reject an inactive account", func() {
			_, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "former.staff@keswick.org",
				Password: password,
			})
			Expect(err).To(MatchError(internal.ErrUserInactive))
		})

		It("should reject a missing password before touching the directory", func() {
			repo.err = errors.New("should not be called")
			_, err := service.Authenticate(ctx, auth.LoginDTO{Email: "head@keswick.org"})
			var validationErr auth.ValidationError
			Expect(errors.As(err, &validationErr)).To(BeTrue())
		})
	})

	Describe("RefreshTokens", func() {
		It("should rotate tokens for an active identity", func() {
			tokens, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "head@keswick.org",
				Password: password,
			})
			Expect(err).NotTo(HaveOccurred())

			rotated, err := service.RefreshTokens(ctx, tokens.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(rotated.AccessToken).NotTo(BeEmpty())
		})

		It("should not accept an access token as a refresh token", func() {
			tokens, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "head@keswick.org",
				Password: password,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.RefreshTokens(ctx, tokens.AccessToken)
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})

		It("should deny refresh for an identity deactivated since login", func() {
			tokens, err := service.Authenticate(ctx, auth.LoginDTO{
				Email:    "head@keswick.org",
				Password: password,
			})
			Expect(err).NotTo(HaveOccurred())

			repo.records["head@keswick.org"].IsActive = false
			_, err = service.RefreshTokens(ctx, tokens.RefreshToken)
			Expect(err).To(MatchError(internal.ErrUserInactive))
		})

		It("should reject garbage tokens", func() {
			_, err := service.RefreshTokens(ctx, "not-a-token")
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})
})
