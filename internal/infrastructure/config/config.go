package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Registry struct {
		BaseURL string        `yaml:"base_url"`
		Package string        `yaml:"package"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"registry"`

	Secret struct {
		Dir  string `yaml:"dir"`
		Name string `yaml:"name"`
	} `yaml:"secret"`

	Toolchain struct {
		Spec       string   `yaml:"spec"`
		InstallCmd []string `yaml:"install_cmd"`
		StateDir   string   `yaml:"state_dir"`
	} `yaml:"toolchain"`

	Build struct {
		Command  []string `yaml:"command"`
		Workdir  string   `yaml:"workdir"`
		Artifact string   `yaml:"artifact"`
		Lockfile string   `yaml:"lockfile"`
	} `yaml:"build"`

	Cache struct {
		Dir string `yaml:"dir"`
	} `yaml:"cache"`

	Watch struct {
		SpoolDir  string `yaml:"spool_dir"`
		PauseFile string `yaml:"pause_file"`
	} `yaml:"watch"`

	Report struct {
		Path string `yaml:"path"`
	} `yaml:"report"`
}

// TokenEnvVar overrides the secret store for local runs.
const TokenEnvVar = "TAGSHIP_TOKEN"

func Load(path string) (Config, error) {
	var c Config

	c.Registry.Timeout = 30 * time.Second
	c.Secret.Name = "registry-token"
	c.Toolchain.StateDir = expandHome("~/.cache/tagship/toolchains")
	c.Cache.Dir = expandHome("~/.cache/tagship/artifacts")
	c.Build.Lockfile = "Cargo.lock"
	c.Report.Path = expandHome("~/.cache/tagship/last_run.json")

	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}

	if v := os.Getenv("TAGSHIP_REGISTRY_URL"); v != "" {
		c.Registry.BaseURL = v
	}
	if v := os.Getenv("TAGSHIP_PACKAGE"); v != "" {
		c.Registry.Package = v
	}
	if v := os.Getenv("TAGSHIP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Registry.Timeout = d
		}
	}
	if v := os.Getenv("TAGSHIP_SECRET_DIR"); v != "" {
		c.Secret.Dir = expandHome(v)
	}
	if v := os.Getenv("TAGSHIP_SECRET_NAME"); v != "" {
		c.Secret.Name = v
	}
	if v := os.Getenv("TAGSHIP_TOOLCHAIN"); v != "" {
		c.Toolchain.Spec = v
	}
	if v := os.Getenv("TAGSHIP_CACHE_DIR"); v != "" {
		c.Cache.Dir = expandHome(v)
	}
	if v := os.Getenv("TAGSHIP_SPOOL_DIR"); v != "" {
		c.Watch.SpoolDir = expandHome(v)
	}

	c.Secret.Dir = expandHome(c.Secret.Dir)
	c.Cache.Dir = expandHome(c.Cache.Dir)
	c.Toolchain.StateDir = expandHome(c.Toolchain.StateDir)
	c.Report.Path = expandHome(c.Report.Path)
	c.Watch.SpoolDir = expandHome(c.Watch.SpoolDir)
	c.Watch.PauseFile = expandHome(c.Watch.PauseFile)

	if c.Registry.Timeout <= 0 {
		c.Registry.Timeout = 30 * time.Second
	}

	if c.Registry.BaseURL == "" {
		return c, errors.New("registry.base_url is required (YAML or TAGSHIP_REGISTRY_URL)")
	}
	if c.Registry.Package == "" {
		return c, errors.New("registry.package is required (YAML or TAGSHIP_PACKAGE)")
	}
	if c.Toolchain.Spec == "" {
		return c, errors.New("toolchain.spec is required (YAML or TAGSHIP_TOOLCHAIN)")
	}
	if len(c.Toolchain.InstallCmd) == 0 {
		return c, errors.New("toolchain.install_cmd is required")
	}
	if len(c.Build.Command) == 0 {
		return c, errors.New("build.command is required")
	}
	if c.Build.Artifact == "" {
		return c, errors.New("build.artifact is required")
	}

	return c, nil
}

func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lockFile := path + ".lock"
	lf, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = lf.Close() }()

	if runtime.GOOS != "windows" {
		if err := syscall.Flock(int(lf.Fd()), syscall.LOCK_EX); err != nil {
			return err
		}
		defer func() { _ = syscall.Flock(int(lf.Fd()), syscall.LOCK_UN) }()
	}

	b, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Default is the config written by `tagship init`: a crates.io-style
// release of the package in the current directory.
func Default() Config {
	var c Config
	c.Registry.BaseURL = "https://registry.example.com"
	c.Registry.Package = "my-package"
	c.Registry.Timeout = 30 * time.Second
	c.Secret.Dir = "/run/secrets"
	c.Secret.Name = "registry-token"
	c.Toolchain.Spec = "stable"
	c.Toolchain.InstallCmd = []string{"rustup", "toolchain", "install"}
	c.Toolchain.StateDir = "~/.cache/tagship/toolchains"
	c.Build.Command = []string{"cargo", "package", "--allow-dirty"}
	c.Build.Workdir = "."
	c.Build.Artifact = "target/package/my-package.crate"
	c.Build.Lockfile = "Cargo.lock"
	c.Cache.Dir = "~/.cache/tagship/artifacts"
	c.Watch.SpoolDir = "~/.cache/tagship/spool"
	c.Watch.PauseFile = "~/.cache/tagship/paused"
	c.Report.Path = "~/.cache/tagship/last_run.json"
	return c
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
