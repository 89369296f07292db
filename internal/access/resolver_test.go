package access_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/keswickschool/budget-dashboard/internal/access"
	"github.com/keswickschool/budget-dashboard/internal/cache"
	"github.com/keswickschool/budget-dashboard/internal/core/events"
)

func TestAccess(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Access Suite")
}

// Mock directory for testing
type mockDirectory struct {
	entries   map[string]*access.DirectoryEntry
	findError error
	calls     int
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{entries: make(map[string]*access.DirectoryEntry)}
}

func (m *mockDirectory) FindByEmail(ctx context.Context, email string) (*access.DirectoryEntry, error) {
	m.calls++
	if m.findError != nil {
		return nil, m.findError
	}
	return m.entries[email], nil
}

var _ = Describe("Resolver", func() {
	var (
		resolver *access.Resolver
		repo     *mockDirectory
		c        *cache.Cache
		logger   *slog.Logger
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockDirectory()
		c = cache.New()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus := events.NewEventBus(logger)
		resolver = access.NewResolver(repo, c, bus, 5*time.Minute, logger)
		ctx = context.Background()
	})

	Describe("Resolve", func() {
		Context("with a known identity", func() {
			BeforeEach(func() {
				repo.entries["principal.us@keswick.org"] = &access.DirectoryEntry{
					Email:     "principal.us@keswick.org",
					Role:      access.RolePrincipal,
					Divisions: []string{"US"},
					Active:    true,
				}
			})

			It("should return the directory grant", func() {
				grant := resolver.Resolve(ctx, "principal.us@keswick.org")
				Expect(grant.Denied()).To(BeFalse())
				Expect(grant.Role).To(Equal(access.RolePrincipal))
				Expect(grant.Divisions).To(Equal([]string{"US"}))
			})

			It("should serve repeated lookups from the cache", func() {
				resolver.Resolve(ctx, "principal.us@keswick.org")
				resolver.Resolve(ctx, "principal.us@keswick.org")
				Expect(repo.calls).To(Equal(1))
			})
		})

		Context("with an unknown identity", func() {
			It("should deny rather than fall back to a privileged role", func() {
				grant := resolver.Resolve(ctx, "stranger@example.com")
				Expect(grant.Denied()).To(BeTrue())
				Expect(grant.Role).To(Equal(access.RoleDenied))
				Expect(grant.Divisions).To(BeEmpty())
			})
		})

		Context("with an empty identity", func() {
			It("should deny without consulting the directory", func() {
				grant := resolver.Resolve(ctx, "")
				Expect(grant.Denied()).To(BeTrue())
				Expect(repo.calls).To(Equal(0))
			})
		})

		Context("with an inactive directory entry", func() {
			It("should deny", func() {
				repo.entries["gone@keswick.org"] = &access.DirectoryEntry{
					Email:  "gone@keswick.org",
					Role:   access.RoleExecutive,
					Active: false,
				}

				grant := resolver.Resolve(ctx, "gone@keswick.org")
				Expect(grant.Denied()).To(BeTrue())
			})
		})

		Context("when the directory is unreadable", func() {
			It("should deny instead of erroring", func() {
				repo.findError = errors.New("directory sheet missing")

				grant := resolver.Resolve(ctx, "principal.us@keswick.org")
				Expect(grant.Denied()).To(BeTrue())
			})
		})
	})

	Describe("Grant scoping", func() {
		It("should leave executives unrestricted", func() {
			grant := access.Grant{Role: access.RoleExecutive, Divisions: []string{"US"}}
			Expect(grant.ScopedDivisions()).To(BeNil())
		})

		It("should restrict principals to their divisions", func() {
			grant := access.Grant{Role: access.RolePrincipal, Divisions: []string{"LS"}}
			Expect(grant.ScopedDivisions()).To(Equal([]string{"LS"}))
		})
	})
})
