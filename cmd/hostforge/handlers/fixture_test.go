package handlers

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"gopkg.in/yaml.v3"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/platform/system/systemtest"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/runlock"
	"github.com/hostforge/hostforge/internal/ui/report"
)

const (
	ubuntuRelease = "ID=ubuntu\nVERSION_ID=\"22.04\"\nVERSION_CODENAME=jammy\n"
	avxCPU        = "processor\t: 0\nflags\t\t: fpu sse sse2 avx avx2\n"
	legacyCPU     = "processor\t: 0\nflags\t\t: fpu sse sse2 ssse3\n"
)

var (
	keyOnce sync.Once
	keyData []byte
	keyErr  error
)

func armoredKey(t *testing.T) []byte {
	t.Helper()
	keyOnce.Do(func() {
		var e *openpgp.Entity
		e, keyErr = openpgp.NewEntity("hostforge test", "", "test@example.com", nil)
		if keyErr != nil {
			return
		}
		var buf bytes.Buffer
		var w io.WriteCloser
		w, keyErr = armor.Encode(&buf, openpgp.PublicKeyType, nil)
		if keyErr != nil {
			return
		}
		if keyErr = e.Serialize(w); keyErr != nil {
			return
		}
		keyErr = w.Close()
		keyData = buf.Bytes()
	})
	require.NoError(t, keyErr)
	return keyData
}

func bundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// fixture is a simulated host: temp files for every host path, an HTTP
// release server and a fake command runner.
type fixture struct {
	t       *testing.T
	dir     string
	cfg     *config.Config
	cfgPath string
	runner  *systemtest.FakeRunner
	output  *bytes.Buffer
	routes  map[string][]byte
	handoff *provisioning.Handoff
}

func newFixture(t *testing.T, cpuinfo string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		t:      t,
		dir:    dir,
		runner: systemtest.NewFakeRunner(),
		output: &bytes.Buffer{},
		routes: map[string][]byte{
			"/server-7.0.asc": armoredKey(t),
			"/appstack-linux-amd64.tar.gz": bundle(t, map[string]string{
				"menu.sh":                 "#!/bin/sh\necho menu\n",
				"requirements.txt":        "requests\n",
				"scripts/appstack-cli.sh": "#!/bin/sh\n",
			}),
			"/geoip.dat": []byte("geoip"),
			"/dlc.dat":   []byte("geosite"),
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := f.routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	cfg := config.Default()
	cfg.InstallRoot = filepath.Join(dir, "opt", "appstack")
	cfg.Host.OSReleasePath = write("os-release", ubuntuRelease)
	cfg.Host.CPUInfoPath = write("cpuinfo", cpuinfo)
	cfg.Database.KeyURL = srv.URL + "/server-7.0.asc"
	cfg.Database.KeyringPath = filepath.Join(dir, "keyrings", "mongodb.gpg")
	cfg.Database.SourcesFile = filepath.Join(dir, "sources.list.d", "mongodb-org-7.0.list")
	cfg.Artifact.BundleURL = srv.URL + "/appstack-linux-{arch}.tar.gz"
	cfg.Artifact.GeoData = []config.GeoFile{
		{URL: srv.URL + "/geoip.dat", Name: "geoip.dat"},
		{URL: srv.URL + "/dlc.dat", Name: "geosite.dat"},
	}
	cfg.Shell.ProfileFile = filepath.Join(dir, "home", ".bashrc")
	cfg.State.LockFile = filepath.Join(dir, "run", "hostforge.lock")
	cfg.State.JournalPath = filepath.Join(dir, "state", "journal.db")
	cfg.State.MetricsTextfile = filepath.Join(dir, "textfile", "hostforge.prom")
	f.cfg = cfg

	f.runner.On("apt-get install -y mongodb-org", func(r *systemtest.FakeRunner, _ system.Command) ([]byte, error) {
		r.Provide("mongod")
		return nil, nil
	})

	f.writeConfig()
	f.install()
	return f
}

// writeConfig stores cfg as the YAML file the handlers load.
func (f *fixture) writeConfig() {
	data, err := yaml.Marshal(f.cfg)
	require.NoError(f.t, err)
	f.cfgPath = filepath.Join(f.dir, "hostforge.yaml")
	require.NoError(f.t, os.WriteFile(f.cfgPath, data, 0o644))
}

// install swaps the handler factories for the simulated host.
func (f *fixture) install() {
	origReporter, origRunner, origHost := newReporter, newRunner, currentHost
	origHandoff, origInteractive, origStdout := handoff, isInteractive, stdout
	origLock := acquireLock
	f.t.Cleanup(func() {
		newReporter, newRunner, currentHost = origReporter, origRunner, origHost
		handoff, isInteractive, stdout = origHandoff, origInteractive, origStdout
		acquireLock = origLock
	})

	newReporter = func(v int) *report.Reporter {
		return report.NewWriters(f.output, f.output, false, false, v)
	}
	newRunner = func(logr.Logger, *config.Timeouts) system.Runner { return f.runner }
	currentHost = func() hostEnv {
		return hostEnv{
			EUID:       func() int { return 0 },
			Machine:    func() (string, error) { return "x86_64", nil },
			Getenv:     func(k string) string { return map[string]string{"PATH": "/usr/bin:/bin"}[k] },
			Environ:    func() []string { return []string{"PATH=/usr/bin:/bin", "LANG=C"} },
			LookupUser: func(string) (*user.User, error) { return nil, user.UnknownUserError("none") },
		}
	}
	handoff = func(h *provisioning.Handoff) error {
		f.handoff = h
		return nil
	}
	isInteractive = func() bool { return false }
	stdout = f.output
	acquireLock = runlock.Acquire
}

func (f *fixture) root(name string) string {
	return filepath.Join(f.cfg.InstallRoot, name)
}
