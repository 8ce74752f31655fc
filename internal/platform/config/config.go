package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration. Every key can come from the
// optional config file or from the environment: "esi.max_batch" is read from
// ESI_MAX_BATCH.
type Config struct {
	Server    Server
	ESI       ESI
	Reconcile Reconcile
	Roles     Roles
	Discord   Discord
	Store     Store
	Redis     RedisConfig
	Kafka     Kafka
	Auth      Auth
	RateLimit RateLimit
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// ESI configures the affiliation source client.
type ESI struct {
	BaseURL    string
	Datasource string
	Maintainer string
	Timeout    time.Duration
	MaxBatch   int
}

// UserAgent is sent on every upstream call, as the API's etiquette requires.
func (e ESI) UserAgent() string {
	return fmt.Sprintf("corpauth (maintainer: %s)", e.Maintainer)
}

// Reconcile configures the reconciliation engine and its schedule.
type Reconcile struct {
	Interval         time.Duration
	ConvergeAttempts int
	ProbeConcurrency int
	// Scope is "present" (only members on the chat server) or "linked"
	// (every identity with a chat user).
	Scope          string
	SweepPresence  bool
	NotifyOnRepair bool
	LockTTL        time.Duration
}

// RoleRule grants RoleName to members of CorporationID.
type RoleRule struct {
	CorporationID int64  `mapstructure:"corporation_id"`
	RoleName      string `mapstructure:"role_name"`
}

type Roles struct {
	BaseRole string
	Rules    []RoleRule
}

type Discord struct {
	Token         string
	GuildID       string
	CommandPrefix string
}

// Store selects the identity store backend: "sqlite", "postgres" or "memory".
type Store struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
}

// RedisConfig enables the cross-instance pass lock when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka enables the audit topic when Brokers is non-empty.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

type Auth struct {
	AdminJWTSecret string
	LinkJWTSecret  string
	Issuer         string
	LinkTokenTTL   time.Duration
}

// RateLimit bounds rejected "!auth" claims per chat user. ClaimAttempts 0
// disables the limit.
type RateLimit struct {
	ClaimAttempts int
	ClaimWindow   time.Duration
}

type Log struct {
	Level  string
	Format string
}

// Load reads configuration from defaults, the optional file at path and the
// environment, in increasing order of precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	rules, err := roleRules(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: Server{Addr: v.GetString("server.addr")},
		ESI: ESI{
			BaseURL:    strings.TrimRight(v.GetString("esi.base_url"), "/"),
			Datasource: v.GetString("esi.datasource"),
			Maintainer: v.GetString("esi.maintainer"),
			Timeout:    v.GetDuration("esi.timeout"),
			MaxBatch:   v.GetInt("esi.max_batch"),
		},
		Reconcile: Reconcile{
			Interval:         v.GetDuration("reconcile.interval"),
			ConvergeAttempts: v.GetInt("reconcile.converge_attempts"),
			ProbeConcurrency: v.GetInt("reconcile.probe_concurrency"),
			Scope:            strings.ToLower(v.GetString("reconcile.scope")),
			SweepPresence:    v.GetBool("reconcile.sweep_presence"),
			NotifyOnRepair:   v.GetBool("reconcile.notify_on_repair"),
			LockTTL:          v.GetDuration("reconcile.lock_ttl"),
		},
		Roles: Roles{
			BaseRole: strings.TrimSpace(v.GetString("roles.base_role")),
			Rules:    rules,
		},
		Discord: Discord{
			Token:         v.GetString("discord.token"),
			GuildID:       v.GetString("discord.guild_id"),
			CommandPrefix: v.GetString("discord.command_prefix"),
		},
		Store: Store{
			Driver:      strings.ToLower(v.GetString("store.driver")),
			DatabaseURL: v.GetString("store.database_url"),
			SQLitePath:  v.GetString("store.sqlite_path"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Kafka: Kafka{
			Brokers:    splitList(v.GetString("kafka.brokers")),
			AuditTopic: v.GetString("kafka.audit_topic"),
		},
		Auth: Auth{
			AdminJWTSecret: v.GetString("auth.admin_jwt_secret"),
			LinkJWTSecret:  v.GetString("auth.link_jwt_secret"),
			Issuer:         v.GetString("auth.issuer"),
			LinkTokenTTL:   v.GetDuration("auth.link_token_ttl"),
		},
		RateLimit: RateLimit{
			ClaimAttempts: v.GetInt("ratelimit.claim_attempts"),
			ClaimWindow:   v.GetDuration("ratelimit.claim_window"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("esi.base_url", "https://esi.evetech.net/latest")
	v.SetDefault("esi.datasource", "tranquility")
	v.SetDefault("esi.maintainer", "unknown")
	v.SetDefault("esi.timeout", 10*time.Second)
	v.SetDefault("esi.max_batch", 20)

	v.SetDefault("reconcile.interval", 300*time.Second)
	v.SetDefault("reconcile.converge_attempts", 3)
	v.SetDefault("reconcile.probe_concurrency", 4)
	v.SetDefault("reconcile.scope", "present")
	v.SetDefault("reconcile.sweep_presence", true)
	v.SetDefault("reconcile.notify_on_repair", false)
	v.SetDefault("reconcile.lock_ttl", 10*time.Minute)

	v.SetDefault("roles.base_role", "Member")
	v.SetDefault("roles.rules", "")

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("discord.command_prefix", "!")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "data.db")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 1)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.audit_topic", "corpauth.audit")

	// Development defaults; override in production.
	v.SetDefault("auth.admin_jwt_secret", "dev-admin-secret-change-in-production")
	v.SetDefault("auth.link_jwt_secret", "dev-link-secret-change-in-production")
	v.SetDefault("auth.issuer", "corpauth")
	v.SetDefault("auth.link_token_ttl", 24*time.Hour)

	v.SetDefault("ratelimit.claim_attempts", 5)
	v.SetDefault("ratelimit.claim_window", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// roleRules accepts either a list of {corporation_id, role_name} maps from
// the config file or the compact env form "100=Pilots,200=Allies".
func roleRules(v *viper.Viper) ([]RoleRule, error) {
	if raw, ok := v.Get("roles.rules").(string); ok {
		return ParseRoleRules(raw)
	}
	var rules []RoleRule
	if err := v.UnmarshalKey("roles.rules", &rules); err != nil {
		return nil, fmt.Errorf("decode roles.rules: %w", err)
	}
	return rules, nil
}

// ParseRoleRules parses "corp=role" pairs separated by commas.
func ParseRoleRules(raw string) ([]RoleRule, error) {
	var rules []RoleRule
	for _, part := range splitList(raw) {
		corp, role, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid role rule %q: want corporation_id=role_name", part)
		}
		corpID, err := strconv.ParseInt(strings.TrimSpace(corp), 10, 64)
		if err != nil || corpID <= 0 {
			return nil, fmt.Errorf("invalid corporation id in role rule %q", part)
		}
		role = strings.TrimSpace(role)
		if role == "" {
			return nil, fmt.Errorf("empty role name in role rule %q", part)
		}
		rules = append(rules, RoleRule{CorporationID: corpID, RoleName: role})
	}
	return rules, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.ESI.MaxBatch <= 0 {
		errs = append(errs, errors.New("esi.max_batch must be positive"))
	}
	if c.Reconcile.ConvergeAttempts <= 0 {
		errs = append(errs, errors.New("reconcile.converge_attempts must be positive"))
	}
	if c.Reconcile.Interval <= 0 {
		errs = append(errs, errors.New("reconcile.interval must be positive"))
	}
	if c.Reconcile.Scope != "present" && c.Reconcile.Scope != "linked" {
		errs = append(errs, fmt.Errorf("reconcile.scope must be present or linked, got %q", c.Reconcile.Scope))
	}
	if c.RateLimit.ClaimAttempts < 0 {
		errs = append(errs, errors.New("ratelimit.claim_attempts must not be negative"))
	}
	if c.Roles.BaseRole == "" {
		errs = append(errs, errors.New("roles.base_role is required"))
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.driver %q", c.Store.Driver))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
