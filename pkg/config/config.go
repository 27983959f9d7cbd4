package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/travigo/youroute/pkg/util"
	"gopkg.in/yaml.v3"
)

const EnvironmentPrefix = "YOUROUTE_"

type Config struct {
	LiveFeed      LiveFeedConfig      `yaml:"livefeed"`
	Datastore     DatastoreConfig     `yaml:"datastore"`
	Redis         RedisConfig         `yaml:"redis"`
	Firebase      FirebaseConfig      `yaml:"firebase"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Tracking      TrackingConfig      `yaml:"tracking"`
	Feeder        FeederConfig        `yaml:"feeder"`
	API           APIConfig           `yaml:"api"`
}

type LiveFeedConfig struct {
	URL         string        `yaml:"url" validate:"required,url"`
	BaseDelay   time.Duration `yaml:"base_delay" validate:"gt=0"`
	MaxAttempts int           `yaml:"max_attempts" validate:"gt=0"`
	DialTimeout time.Duration `yaml:"dial_timeout" validate:"gt=0"`
}

type DatastoreConfig struct {
	Backend         string        `yaml:"backend" validate:"oneof=memory firebase mongo"`
	MongoConnection string        `yaml:"mongo_connection" validate:"required_if=Backend mongo"`
	MongoDatabase   string        `yaml:"mongo_database" validate:"required_if=Backend mongo"`
	PollInterval    time.Duration `yaml:"poll_interval" validate:"gt=0"`
}

type RedisConfig struct {
	Address  string `yaml:"address" validate:"required,hostname_port"`
	Password string `yaml:"password"`
	Database int    `yaml:"database" validate:"gte=0"`
}

type FirebaseConfig struct {
	DatabaseURL string `yaml:"database_url"`
	// ServiceAccount is the base64 encoded service account JSON
	ServiceAccount string `yaml:"service_account"`
}

type ElasticsearchConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Index    string `yaml:"index"`
}

type TrackingConfig struct {
	NearbyRadiusKm float64       `yaml:"nearby_radius_km" validate:"gte=0"`
	StopCacheTTL   time.Duration `yaml:"stop_cache_ttl" validate:"gte=0"`
}

type FeederConfig struct {
	URL          string        `yaml:"url"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
	MaxAge       time.Duration `yaml:"max_age" validate:"gt=0"`
}

type APIConfig struct {
	ListenAddress string `yaml:"listen_address" validate:"required"`
	AuthDomain    string `yaml:"auth_domain"`
	AuthAudience  string `yaml:"auth_audience"`
}

func Default() Config {
	return Config{
		LiveFeed: LiveFeedConfig{
			URL:         "wss://api.youroute.com/ws",
			BaseDelay:   1000 * time.Millisecond,
			MaxAttempts: 5,
			DialTimeout: 15 * time.Second,
		},
		Datastore: DatastoreConfig{
			Backend:         "memory",
			MongoConnection: "mongodb://localhost:27017/",
			MongoDatabase:   "youroute",
			PollInterval:    2 * time.Second,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Elasticsearch: ElasticsearchConfig{
			Index: "youroute-vehicle-locations",
		},
		Tracking: TrackingConfig{
			NearbyRadiusKm: 5,
			StopCacheTTL:   5 * time.Minute,
		},
		Feeder: FeederConfig{
			PollInterval: 30 * time.Second,
			MaxAge:       20 * time.Minute,
		},
		API: APIConfig{
			ListenAddress: ":8080",
		},
	}
}

// Load reads .env, the optional YAML file named by YOUROUTE_CONFIG and then
// the process environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	return LoadWithEnvironment(util.GetEnvironmentVariables())
}

func LoadWithEnvironment(env map[string]string) (*Config, error) {
	cfg := Default()

	if path := env[EnvironmentPrefix+"CONFIG"]; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnvironment(&cfg, env); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyEnvironment(cfg *Config, env map[string]string) error {
	overrides := environment{env: env}

	overrides.string("LIVEFEED_URL", &cfg.LiveFeed.URL)
	overrides.duration("LIVEFEED_BASE_DELAY", &cfg.LiveFeed.BaseDelay)
	overrides.int("LIVEFEED_MAX_ATTEMPTS", &cfg.LiveFeed.MaxAttempts)
	overrides.duration("LIVEFEED_DIAL_TIMEOUT", &cfg.LiveFeed.DialTimeout)

	overrides.string("DATASTORE", &cfg.Datastore.Backend)
	overrides.string("MONGODB_CONNECTION", &cfg.Datastore.MongoConnection)
	overrides.string("MONGODB_DATABASE", &cfg.Datastore.MongoDatabase)
	overrides.duration("DATASTORE_POLL_INTERVAL", &cfg.Datastore.PollInterval)

	overrides.string("REDIS_ADDRESS", &cfg.Redis.Address)
	overrides.string("REDIS_PASSWORD", &cfg.Redis.Password)
	overrides.int("REDIS_DATABASE", &cfg.Redis.Database)

	overrides.string("FIREBASE_DATABASE_URL", &cfg.Firebase.DatabaseURL)
	overrides.string("FIREBASE_SERVICE_ACCOUNT", &cfg.Firebase.ServiceAccount)

	overrides.string("ELASTICSEARCH_ADDRESS", &cfg.Elasticsearch.Address)
	overrides.string("ELASTICSEARCH_USERNAME", &cfg.Elasticsearch.Username)
	overrides.string("ELASTICSEARCH_PASSWORD", &cfg.Elasticsearch.Password)
	overrides.string("ELASTICSEARCH_INDEX", &cfg.Elasticsearch.Index)

	overrides.float("NEARBY_RADIUS_KM", &cfg.Tracking.NearbyRadiusKm)
	overrides.duration("STOP_CACHE_TTL", &cfg.Tracking.StopCacheTTL)

	overrides.string("FEEDER_URL", &cfg.Feeder.URL)
	overrides.duration("FEEDER_POLL_INTERVAL", &cfg.Feeder.PollInterval)
	overrides.duration("FEEDER_MAX_AGE", &cfg.Feeder.MaxAge)

	overrides.string("API_LISTEN", &cfg.API.ListenAddress)
	overrides.string("AUTH0_DOMAIN", &cfg.API.AuthDomain)
	overrides.string("AUTH0_AUDIENCE", &cfg.API.AuthAudience)

	return overrides.err
}

// environment applies YOUROUTE_ prefixed overrides and keeps the first parse error
type environment struct {
	env map[string]string
	err error
}

func (e *environment) lookup(name string) (string, bool) {
	value := e.env[EnvironmentPrefix+name]
	return value, value != ""
}

func (e *environment) fail(name string, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s%s %q: %w", EnvironmentPrefix, name, value, err)
	}
}

func (e *environment) string(name string, target *string) {
	if value, ok := e.lookup(name); ok {
		*target = value
	}
}

func (e *environment) int(name string, target *int) {
	value, ok := e.lookup(name)
	if !ok {
		return
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		e.fail(name, value, err)
		return
	}
	*target = n
}

func (e *environment) float(name string, target *float64) {
	value, ok := e.lookup(name)
	if !ok {
		return
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.fail(name, value, err)
		return
	}
	*target = f
}

// duration accepts Go duration strings or a bare number of milliseconds
func (e *environment) duration(name string, target *time.Duration) {
	value, ok := e.lookup(name)
	if !ok {
		return
	}

	if ms, err := strconv.Atoi(value); err == nil {
		*target = time.Duration(ms) * time.Millisecond
		return
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(name, value, err)
		return
	}
	*target = d
}
