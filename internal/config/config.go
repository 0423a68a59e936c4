package config

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fletes-app/service-quote/internal/common/database"
	"github.com/fletes-app/service-quote/internal/domain/pricing"
)

const envPrefix = "QUOTE"

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver        string // postgres | dynamodb | memory
	Postgres      database.PostgresConfig
	Dynamo        database.DynamoConfig
	DaysTable     string
	QuotesTable   string
	BookingsTable string
}

// KafkaConfig configures event publishing. No brokers means notifications are sent
// directly from the service.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// RoutingConfig configures geocoders, route providers and the heuristic.
type RoutingConfig struct {
	Providers []string
	Geocoders []string

	GoogleAPIKey  string
	GoogleBaseURL string
	Region        string
	Language      string

	ORSAPIKey  string
	ORSBaseURL string
	ORSCountry string

	OSRMBaseURL string

	MapboxToken   string
	MapboxBaseURL string
	MapboxCountry string

	ProviderTimeout time.Duration
	GeocodeTimeout  time.Duration
	CacheSize       int

	TraceFactor float64
	AvgSpeedKmh float64
	FallbackKm  float64

	DefaultLocality     string
	LocalityMarkers     []string
	BaseAddress         string
	ReturnToBaseDefault bool
}

// AgendaConfig configures "today" and the periodic sweep.
type AgendaConfig struct {
	Timezone      string
	SweepInterval time.Duration
}

// NotifyConfig configures the WhatsApp notifier.
type NotifyConfig struct {
	Provider  string // ultramsg | twilio | log
	Recipient string
	Timeout   time.Duration

	UltraMsgInstance string
	UltraMsgToken    string
	UltraMsgBaseURL  string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioBaseURL    string
}

// ContactConfig is the professional customers are pointed to.
type ContactConfig struct {
	Name  string
	Phone string
}

// ServiceConfig holds all configuration for the quote service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	ServiceName string
	ConfigFile  string

	Store   StoreConfig
	Kafka   KafkaConfig
	Routing RoutingConfig
	Pricing pricing.Config
	Buffer  pricing.Buffer
	Agenda  AgendaConfig
	Notify  NotifyConfig
	Contact ContactConfig

	v *viper.Viper
}

// Load reads configuration from .env, the environment and an optional YAML file named by
// QUOTE_CONFIG_FILE. Environment variables win over the file.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	pricingCfg, err := loadPricing(v)
	if err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Port:        v.GetString("app.port"),
		AppEnv:      v.GetString("app.env"),
		ServiceName: v.GetString("app.service_name"),
		ConfigFile:  v.GetString("config_file"),
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("store.driver")),
			Postgres: database.PostgresConfig{
				Host:     v.GetString("db.host"),
				Port:     v.GetString("db.port"),
				User:     v.GetString("db.user"),
				Password: v.GetString("db.password"),
				DBName:   v.GetString("db.name"),
				SSLMode:  v.GetString("db.sslmode"),
			},
			Dynamo: database.DynamoConfig{
				Region:    v.GetString("dynamo.region"),
				Endpoint:  v.GetString("dynamo.endpoint"),
				AccessKey: v.GetString("dynamo.access_key"),
				SecretKey: v.GetString("dynamo.secret_key"),
			},
			DaysTable:     v.GetString("dynamo.days_table"),
			QuotesTable:   v.GetString("dynamo.quotes_table"),
			BookingsTable: v.GetString("dynamo.bookings_table"),
		},
		Kafka: KafkaConfig{
			Brokers: stringList(v, "kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
			GroupID: v.GetString("kafka.group_id"),
		},
		Routing: RoutingConfig{
			Providers:           stringList(v, "routing.providers"),
			Geocoders:           stringList(v, "routing.geocoders"),
			GoogleAPIKey:        v.GetString("routing.google.api_key"),
			GoogleBaseURL:       v.GetString("routing.google.base_url"),
			Region:              v.GetString("routing.google.region"),
			Language:            v.GetString("routing.google.language"),
			ORSAPIKey:           v.GetString("routing.ors.api_key"),
			ORSBaseURL:          v.GetString("routing.ors.base_url"),
			ORSCountry:          v.GetString("routing.ors.country"),
			OSRMBaseURL:         v.GetString("routing.osrm.base_url"),
			MapboxToken:         v.GetString("routing.mapbox.token"),
			MapboxBaseURL:       v.GetString("routing.mapbox.base_url"),
			MapboxCountry:       v.GetString("routing.mapbox.country"),
			ProviderTimeout:     v.GetDuration("routing.provider_timeout"),
			GeocodeTimeout:      v.GetDuration("routing.geocode_timeout"),
			CacheSize:           v.GetInt("routing.cache_size"),
			TraceFactor:         v.GetFloat64("routing.trace_factor"),
			AvgSpeedKmh:         v.GetFloat64("routing.avg_speed_kmh"),
			FallbackKm:          v.GetFloat64("routing.fallback_km"),
			DefaultLocality:     v.GetString("routing.default_locality"),
			LocalityMarkers:     stringList(v, "routing.locality_markers"),
			BaseAddress:         v.GetString("routing.base_address"),
			ReturnToBaseDefault: v.GetBool("routing.return_to_base_default"),
		},
		Pricing: pricingCfg,
		Buffer: pricing.Buffer{
			DefaultMin:  v.GetInt("buffer.default_min"),
			MoveMin:     v.GetInt("buffer.move_min"),
			MoveKeyword: v.GetString("buffer.move_keyword"),
		},
		Agenda: AgendaConfig{
			Timezone:      v.GetString("agenda.timezone"),
			SweepInterval: v.GetDuration("agenda.sweep_interval"),
		},
		Notify: NotifyConfig{
			Provider:         strings.ToLower(v.GetString("notify.provider")),
			Recipient:        v.GetString("notify.recipient"),
			Timeout:          v.GetDuration("notify.timeout"),
			UltraMsgInstance: v.GetString("notify.ultramsg.instance_id"),
			UltraMsgToken:    v.GetString("notify.ultramsg.token"),
			UltraMsgBaseURL:  v.GetString("notify.ultramsg.base_url"),
			TwilioAccountSID: v.GetString("notify.twilio.account_sid"),
			TwilioAuthToken:  v.GetString("notify.twilio.auth_token"),
			TwilioFrom:       v.GetString("notify.twilio.from"),
			TwilioBaseURL:    v.GetString("notify.twilio.base_url"),
		},
		Contact: ContactConfig{
			Name:  v.GetString("contact.name"),
			Phone: v.GetString("contact.phone"),
		},
		v: v,
	}

	switch cfg.Store.Driver {
	case "postgres", "dynamodb", "memory":
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_file", "")

	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.service_name", "service-quote")

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "fletes_quotes")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("dynamo.region", "us-east-1")
	v.SetDefault("dynamo.endpoint", "")
	v.SetDefault("dynamo.access_key", "")
	v.SetDefault("dynamo.secret_key", "")
	v.SetDefault("dynamo.days_table", "availability_days")
	v.SetDefault("dynamo.quotes_table", "quotes")
	v.SetDefault("dynamo.bookings_table", "bookings")

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "quote.events")
	v.SetDefault("kafka.group_id", "service-quote-notifications")

	v.SetDefault("routing.providers", "google,ors,osrm")
	v.SetDefault("routing.geocoders", "google,ors,mapbox")
	v.SetDefault("routing.google.api_key", "")
	v.SetDefault("routing.google.base_url", "")
	v.SetDefault("routing.google.region", "ar")
	v.SetDefault("routing.google.language", "es")
	v.SetDefault("routing.ors.api_key", "")
	v.SetDefault("routing.ors.base_url", "")
	v.SetDefault("routing.ors.country", "ARG")
	v.SetDefault("routing.osrm.base_url", "")
	v.SetDefault("routing.mapbox.token", "")
	v.SetDefault("routing.mapbox.base_url", "")
	v.SetDefault("routing.mapbox.country", "ar")
	v.SetDefault("routing.provider_timeout", "12s")
	v.SetDefault("routing.geocode_timeout", "8s")
	v.SetDefault("routing.cache_size", 512)
	v.SetDefault("routing.trace_factor", 1.25)
	v.SetDefault("routing.avg_speed_kmh", 35)
	v.SetDefault("routing.fallback_km", 10)
	v.SetDefault("routing.default_locality", "Córdoba, Argentina")
	v.SetDefault("routing.locality_markers", "")
	v.SetDefault("routing.base_address", "Córdoba, Argentina")
	v.SetDefault("routing.return_to_base_default", true)

	v.SetDefault("pricing.base_fee", 0)
	v.SetDefault("pricing.hourly_rate", 25000)
	v.SetDefault("pricing.weight_factor", 1.5)
	v.SetDefault("pricing.rounding_block_min", 30)
	v.SetDefault("pricing.min_hours", 0)
	v.SetDefault("pricing.maintenance_mode", "per_km")
	v.SetDefault("pricing.maintenance_per_km", 0)
	v.SetDefault("pricing.maintenance_pct", 0.20)
	v.SetDefault("pricing.km_per_liter", 8)
	v.SetDefault("pricing.liter_price", 1600)
	v.SetDefault("pricing.toll_unit_price", 2000)
	v.SetDefault("pricing.assistant_hourly_rate", 10000)
	v.SetDefault("pricing.assistant_in_total", true)
	v.SetDefault("pricing.driver_hourly_rate", 7500)
	v.SetDefault("pricing.admin_hourly_rate", 3500)
	v.SetDefault("pricing.minimum_total", 0)
	v.SetDefault("pricing.currency_decimals", 2)

	v.SetDefault("buffer.default_min", 30)
	v.SetDefault("buffer.move_min", 60)
	v.SetDefault("buffer.move_keyword", "mudanza")

	v.SetDefault("agenda.timezone", "America/Argentina/Cordoba")
	v.SetDefault("agenda.sweep_interval", "1h")

	v.SetDefault("notify.provider", "log")
	v.SetDefault("notify.recipient", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.ultramsg.instance_id", "")
	v.SetDefault("notify.ultramsg.token", "")
	v.SetDefault("notify.ultramsg.base_url", "")
	v.SetDefault("notify.twilio.account_sid", "")
	v.SetDefault("notify.twilio.auth_token", "")
	v.SetDefault("notify.twilio.from", "whatsapp:+14155238886")
	v.SetDefault("notify.twilio.base_url", "")

	v.SetDefault("contact.name", "Fletes Javier")
	v.SetDefault("contact.phone", "+5493516678989")
}

func loadPricing(v *viper.Viper) (pricing.Config, error) {
	mode, err := pricing.ParseMaintenanceMode(v.GetString("pricing.maintenance_mode"))
	if err != nil {
		return pricing.Config{}, err
	}
	cfg := pricing.Config{
		BaseFee:             v.GetFloat64("pricing.base_fee"),
		HourlyRate:          v.GetFloat64("pricing.hourly_rate"),
		WeightFactor:        v.GetFloat64("pricing.weight_factor"),
		RoundingBlockMin:    v.GetInt("pricing.rounding_block_min"),
		MinHours:            v.GetFloat64("pricing.min_hours"),
		MaintenanceMode:     mode,
		MaintenancePerKm:    v.GetFloat64("pricing.maintenance_per_km"),
		MaintenancePct:      v.GetFloat64("pricing.maintenance_pct"),
		KmPerLiter:          v.GetFloat64("pricing.km_per_liter"),
		LiterPrice:          v.GetFloat64("pricing.liter_price"),
		TollUnitPrice:       v.GetFloat64("pricing.toll_unit_price"),
		AssistantHourlyRate: v.GetFloat64("pricing.assistant_hourly_rate"),
		AssistantInTotal:    v.GetBool("pricing.assistant_in_total"),
		DriverHourlyRate:    v.GetFloat64("pricing.driver_hourly_rate"),
		AdminHourlyRate:     v.GetFloat64("pricing.admin_hourly_rate"),
		MinimumTotal:        v.GetFloat64("pricing.minimum_total"),
		CurrencyDecimals:    v.GetInt("pricing.currency_decimals"),
	}
	if cfg.HourlyRate < 0 || cfg.MinimumTotal < 0 || cfg.RoundingBlockMin < 0 {
		return pricing.Config{}, fmt.Errorf("pricing values cannot be negative")
	}
	return cfg, nil
}

// stringList reads a list given either as a YAML sequence or a comma separated string.
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	if s, ok := v.Get(key).(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = v.GetStringSlice(key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PricingStore holds the tariff in force. Readers get an immutable snapshot; a config file
// change swaps in a new one.
type PricingStore struct {
	current atomic.Pointer[pricing.Config]
}

// NewPricingStore creates a store holding initial.
func NewPricingStore(initial pricing.Config) *PricingStore {
	s := &PricingStore{}
	s.current.Store(&initial)
	return s
}

// Current implements pricing.Source.
func (s *PricingStore) Current() pricing.Config {
	return *s.current.Load()
}

// Swap replaces the tariff.
func (s *PricingStore) Swap(cfg pricing.Config) {
	s.current.Store(&cfg)
}

// WatchPricing reloads the pricing section whenever the config file changes. It is a no-op
// without a config file. Invalid edits are logged and the previous tariff stays in force.
func (c *ServiceConfig) WatchPricing(store *PricingStore, logger *zap.Logger) {
	if c.ConfigFile == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := loadPricing(c.v)
		if err != nil {
			logger.Error("ignoring invalid pricing change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		store.Swap(next)
		logger.Info("pricing reloaded", zap.String("file", e.Name))
	})
	c.v.WatchConfig()
}
