package packages

import (
	"errors"
	"fmt"

	"github.com/hostforge/hostforge/internal/config"
)

// ErrNoRepository is returned for an OS identifier without a vendor
// repository. Preflight only admits distributions present in the table, so
// reaching it means the two lists drifted apart.
var ErrNoRepository = errors.New("no database repository for operating system")

// Repository locates the vendor apt tree for one distribution.
type Repository struct {
	Distro    string
	Suite     string
	Component string
}

var repositories = map[string]Repository{
	"ubuntu": {Distro: "ubuntu", Suite: "jammy", Component: "multiverse"},
	"debian": {Distro: "debian", Suite: "bookworm", Component: "main"},
}

// RepositoryFor returns the repository for a validated OS identifier.
func RepositoryFor(osID string) (Repository, error) {
	repo, ok := repositories[osID]
	if !ok {
		return Repository{}, fmt.Errorf("%w %q", ErrNoRepository, osID)
	}
	return repo, nil
}

// SourceLine renders the apt source entry for db.
func (r Repository) SourceLine(db config.DatabaseConfig) string {
	return fmt.Sprintf("deb [ arch=amd64,arm64 signed-by=%s ] %s/%s %s/mongodb-org/%s %s",
		db.KeyringPath, db.RepoBaseURL, r.Distro, r.Suite, db.Series, r.Component)
}

// CheckCoverage verifies that every configured distribution has a
// repository entry.
func CheckCoverage(distros []config.Distro) error {
	var errs []error
	for _, d := range distros {
		if _, err := RepositoryFor(d.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
