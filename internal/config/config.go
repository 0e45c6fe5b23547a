package config

// Config is the complete provisioning configuration.
type Config struct {
	// InstallRoot is the directory that receives the application bundle and
	// its runtime environment. It is deleted and recreated on every run.
	InstallRoot string `yaml:"install_root" toml:"install_root"`

	Host     HostConfig     `yaml:"host" toml:"host"`
	Packages []string       `yaml:"packages" toml:"packages"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Artifact ArtifactConfig `yaml:"artifact" toml:"artifact"`
	Runtime  RuntimeConfig  `yaml:"runtime" toml:"runtime"`
	Shell    ShellConfig    `yaml:"shell" toml:"shell"`
	Launch   LaunchConfig   `yaml:"launch" toml:"launch"`
	State    StateConfig    `yaml:"state" toml:"state"`
}

// HostConfig describes the precondition policy.
type HostConfig struct {
	OSReleasePath string   `yaml:"os_release_path" toml:"os_release_path"`
	CPUInfoPath   string   `yaml:"cpuinfo_path" toml:"cpuinfo_path"`
	Distros       []Distro `yaml:"distros" toml:"distros"`

	// CPUFlags lists acceptable CPU feature tokens; at least one must be present.
	CPUFlags []string `yaml:"cpu_flags" toml:"cpu_flags"`

	// CPUFallbackURL is suggested to the operator when no CPU flag matches.
	// "{arch}" is replaced with the architecture tag.
	CPUFallbackURL string `yaml:"cpu_fallback_url" toml:"cpu_fallback_url"`

	// HelperTools answer the codename query when os-release has none. They
	// are looked up, never installed.
	HelperTools []Tool `yaml:"helper_tools" toml:"helper_tools"`
}

// Distro is a supported operating system and its minimum version.
type Distro struct {
	ID         string `yaml:"id" toml:"id"`
	MinVersion string `yaml:"min_version" toml:"min_version"`
}

// Tool is a host binary and the package that provides it.
type Tool struct {
	Name    string `yaml:"name" toml:"name"`
	Package string `yaml:"package" toml:"package"`
}

// DatabaseConfig describes the database engine installation.
type DatabaseConfig struct {
	Binary      string `yaml:"binary" toml:"binary"`
	Package     string `yaml:"package" toml:"package"`
	Service     string `yaml:"service" toml:"service"`
	Series      string `yaml:"series" toml:"series"`
	KeyURL      string `yaml:"key_url" toml:"key_url"`
	KeyringPath string `yaml:"keyring_path" toml:"keyring_path"`
	RepoBaseURL string `yaml:"repo_base_url" toml:"repo_base_url"`
	SourcesFile string `yaml:"sources_file" toml:"sources_file"`
}

// ArtifactConfig describes the application bundle and auxiliary downloads.
type ArtifactConfig struct {
	// BundleURL is a template; "{arch}" is replaced with the architecture tag.
	// Supported schemes: http, https, s3 and oci.
	BundleURL string `yaml:"bundle_url" toml:"bundle_url"`

	// ExecutableScript is made executable after extraction when it exists.
	ExecutableScript string `yaml:"executable_script" toml:"executable_script"`

	GeoData []GeoFile `yaml:"geo_data" toml:"geo_data"`

	// GeoDataPolicy is GeoDataFatal or GeoDataWarn.
	GeoDataPolicy string `yaml:"geo_data_policy" toml:"geo_data_policy"`

	S3 S3Config `yaml:"s3" toml:"s3"`
}

// Geo data failure policies.
const (
	GeoDataFatal = "fatal"
	GeoDataWarn  = "warn"
)

// GeoFile is an auxiliary file downloaded into the install root.
type GeoFile struct {
	URL  string `yaml:"url" toml:"url"`
	Name string `yaml:"name" toml:"name"`
}

// S3Config holds credentials for s3:// bundle sources.
// Empty keys fall back to the default AWS credential chain.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	Region    string `yaml:"region" toml:"region"`
	AccessKey string `yaml:"access_key" toml:"access_key"`
	SecretKey string `yaml:"secret_key" toml:"secret_key"`
}

// RuntimeConfig describes the isolated Python environment.
type RuntimeConfig struct {
	Python   string `yaml:"python" toml:"python"`
	VenvDir  string `yaml:"venv_dir" toml:"venv_dir"`
	Manifest string `yaml:"manifest" toml:"manifest"`
}

// ShellConfig describes the convenience alias.
type ShellConfig struct {
	AliasName string `yaml:"alias_name" toml:"alias_name"`

	// ProfileFile is absolute, or relative to the invoking user's home.
	ProfileFile string `yaml:"profile_file" toml:"profile_file"`

	// MatchMode is MatchSubstring or MatchLine.
	MatchMode string `yaml:"match_mode" toml:"match_mode"`
}

// Alias presence match modes.
const (
	MatchSubstring = "substring"
	MatchLine      = "line"
)

// LaunchConfig describes the entry point control is handed to.
type LaunchConfig struct {
	EntryPoint string `yaml:"entry_point" toml:"entry_point"`
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
}

// StateConfig locates the run lock, journal and metrics files.
type StateConfig struct {
	LockFile        string `yaml:"lock_file" toml:"lock_file"`
	JournalPath     string `yaml:"journal_path" toml:"journal_path"`
	MetricsTextfile string `yaml:"metrics_textfile" toml:"metrics_textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		InstallRoot: "/opt/appstack",
		Host: HostConfig{
			OSReleasePath: "/etc/os-release",
			CPUInfoPath:   "/proc/cpuinfo",
			Distros: []Distro{
				{ID: "ubuntu", MinVersion: "22"},
				{ID: "debian", MinVersion: "12"},
			},
			CPUFlags:       []string{"avx", "avx2", "avx512f"},
			CPUFallbackURL: "https://github.com/appstack/appstack/releases/latest/download/appstack-linux-{arch}-noavx.tar.gz",
			HelperTools: []Tool{
				{Name: "lsb_release", Package: "lsb-release"},
			},
		},
		Packages: []string{
			"python3", "python3-venv", "python3-pip",
			"curl", "gnupg", "ca-certificates", "unzip", "tar",
		},
		Database: DatabaseConfig{
			Binary:      "mongod",
			Package:     "mongodb-org",
			Service:     "mongod",
			Series:      "7.0",
			KeyURL:      "https://www.mongodb.org/static/pgp/server-7.0.asc",
			KeyringPath: "/usr/share/keyrings/mongodb-server-7.0.gpg",
			RepoBaseURL: "https://repo.mongodb.org/apt",
			SourcesFile: "/etc/apt/sources.list.d/mongodb-org-7.0.list",
		},
		Artifact: ArtifactConfig{
			BundleURL:        "https://github.com/appstack/appstack/releases/latest/download/appstack-linux-{arch}.tar.gz",
			ExecutableScript: "scripts/appstack-cli.sh",
			GeoData: []GeoFile{
				{URL: "https://github.com/v2fly/geoip/releases/latest/download/geoip.dat", Name: "geoip.dat"},
				{URL: "https://github.com/v2fly/domain-list-community/releases/latest/download/dlc.dat", Name: "geosite.dat"},
			},
			GeoDataPolicy: GeoDataFatal,
			S3:            S3Config{Region: "us-east-1"},
		},
		Runtime: RuntimeConfig{
			Python:   "python3",
			VenvDir:  "venv",
			Manifest: "requirements.txt",
		},
		Shell: ShellConfig{
			AliasName:   "appstack",
			ProfileFile: ".bashrc",
			MatchMode:   MatchSubstring,
		},
		Launch: LaunchConfig{
			EntryPoint: "menu.sh",
			Enabled:    true,
		},
		State: StateConfig{
			LockFile:    "/run/hostforge.lock",
			JournalPath: "/var/lib/hostforge/journal.db",
		},
	}
}
