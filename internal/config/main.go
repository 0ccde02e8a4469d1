package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v3"
)

// Config holds everything the commands need besides their own arguments.
type Config struct {
	// Prefixed to every upstream URL, e.g. "https://proxy.example/"
	Proxy     string        `yaml:"proxy"`
	APIBase   string        `yaml:"api_base"`
	AssetBase string        `yaml:"asset_base"`
	Server    string        `yaml:"server"`
	Cache     string        `yaml:"cache"`
	Listen    string        `yaml:"listen"`
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
	Verbose   bool          `yaml:"verbose"`
}

// Servers in the order Bestdori lists localized titles.
var Servers = []string{"jp", "en", "tw", "cn", "kr"}

func Default() Config {
	return Config{
		APIBase:   "https://bestdori.com/api/",
		AssetBase: "https://bestdori.com/assets/",
		Server:    "jp",
		Cache:     "./lanecut.db",
		Listen:    ":8080",
		Workers:   8,
		Timeout:   30 * time.Second,
	}
}

// ServerIndex is the position of the configured server in localized arrays.
func (c *Config) ServerIndex() int {
	for i, s := range Servers {
		if s == c.Server {
			return i
		}
	}
	return 0
}

func (c *Config) validate() error {
	for _, s := range Servers {
		if s == c.Server {
			if c.Workers < 1 {
				return fmt.Errorf("workers must be positive, got %d", c.Workers)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown server %q", c.Server)
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if nil != err {
		return c, fmt.Errorf("unable to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); nil != err {
		return c, fmt.Errorf("unable to parse config %s: %w", path, err)
	}
	return c, c.validate()
}

// Flags registers the global flags on app. Values given on the command line
// win over the config file, which wins over the defaults.
type Flags struct {
	File      *string
	Proxy     *string
	APIBase   *string
	AssetBase *string
	Server    *string
	Cache     *string
	Workers   *int
	Timeout   *time.Duration
	Verbose   *bool
}

func Register(app *kingpin.Application) *Flags {
	return &Flags{
		File:      app.Flag("config", "YAML config file").Short('c').Envar("LANECUT_CONFIG").String(),
		Proxy:     app.Flag("proxy", "Prefix for every upstream request").String(),
		APIBase:   app.Flag("api-base", "Bestdori API base URL").String(),
		AssetBase: app.Flag("asset-base", "Bestdori asset base URL").String(),
		Server:    app.Flag("server", "Asset server and title language").Enum(Servers...),
		Cache:     app.Flag("cache", "Catalog cache database").Envar("LANECUT_CACHE").String(),
		Workers:   app.Flag("workers", "Concurrent downloads and conversions").Short('w').Int(),
		Timeout:   app.Flag("timeout", "Upstream request timeout").Duration(),
		Verbose:   app.Flag("verbose", "Debug logging").Short('v').Bool(),
	}
}

// Resolve loads the config file and applies any flags that were set.
func (f *Flags) Resolve() (Config, error) {
	c, err := Load(*f.File)
	if nil != err {
		return c, err
	}
	set := func(dst *string, v *string) {
		if *v != "" {
			*dst = *v
		}
	}
	set(&c.Proxy, f.Proxy)
	set(&c.APIBase, f.APIBase)
	set(&c.AssetBase, f.AssetBase)
	set(&c.Server, f.Server)
	set(&c.Cache, f.Cache)
	if *f.Workers != 0 {
		c.Workers = *f.Workers
	}
	if *f.Timeout != 0 {
		c.Timeout = *f.Timeout
	}
	c.Verbose = c.Verbose || *f.Verbose
	return c, c.validate()
}
