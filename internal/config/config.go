// Package config provides the configuration bundle for the dataset generator
// and the warehouse/export tooling around it.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// BotSelection controls how bot users are chosen.
type BotSelection string

const (
	// BotSelectionExact flags floor(users × fraction) users, chosen without replacement.
	BotSelectionExact BotSelection = "exact"

	// BotSelectionBernoulli flags each user independently with probability fraction.
	BotSelectionBernoulli BotSelection = "bernoulli"
)

// weightTolerance bounds how far a weight table may sum away from 1.
const weightTolerance = 1e-6

// Config holds the full configuration bundle.
type Config struct {
	// Seed seeds the single generator stream (or every derived sub-stream)
	Seed uint64 `json:"seed" yaml:"seed"`

	// Workers > 1 switches to sharded generation with per-user sub-streams
	Workers int `json:"workers" yaml:"workers" validate:"gte=1,lte=256"`

	// DataDir is the base directory for all generated artifacts
	DataDir string `json:"data_dir" yaml:"data_dir" validate:"required"`

	// OutputDir holds the raw users/events/orders files
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// WarehousePath is the SQLite database file
	WarehousePath string `json:"warehouse_path" yaml:"warehouse_path"`

	// ExportDir receives the BI view exports
	ExportDir string `json:"export_dir" yaml:"export_dir"`

	// MetricsPath is the Prometheus textfile written by the report
	MetricsPath string `json:"metrics_path" yaml:"metrics_path"`

	// Compress writes raw files as Snappy-framed .csv.sz
	Compress bool `json:"compress" yaml:"compress"`

	// LogLevel is info, debug or trace
	LogLevel string `json:"log_level" yaml:"log_level" validate:"oneof=info debug trace"`

	Window     WindowConfig     `json:"window" yaml:"window"`
	Population PopulationConfig `json:"population" yaml:"population"`
	Sessions   SessionConfig    `json:"sessions" yaml:"sessions"`
	Funnel     FunnelConfig     `json:"funnel" yaml:"funnel"`
	Noise      NoiseConfig      `json:"noise" yaml:"noise"`
	Orders     OrderConfig      `json:"orders" yaml:"orders"`
	Targets    TargetConfig     `json:"targets" yaml:"targets"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
}

// WindowConfig bounds every generated date, inclusive, as YYYY-MM-DD.
type WindowConfig struct {
	Start string `json:"start" yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `json:"end" yaml:"end" validate:"required,datetime=2006-01-02"`
}

// StartTime returns the window start at midnight UTC.
func (w WindowConfig) StartTime() time.Time {
	t, _ := time.Parse(types.DateLayout, w.Start)
	return t
}

// EndTime returns the window end at midnight UTC.
func (w WindowConfig) EndTime() time.Time {
	t, _ := time.Parse(types.DateLayout, w.End)
	return t
}

// Days returns the number of whole days between start and end.
func (w WindowConfig) Days() int {
	return int(w.EndTime().Sub(w.StartTime()).Hours() / 24)
}

// Range is a closed probability interval a per-session threshold is drawn from.
type Range struct {
	Min float64 `json:"min" yaml:"min" validate:"gte=0,lte=1"`
	Max float64 `json:"max" yaml:"max" validate:"gte=0,lte=1,gtefield=Min"`
}

// PopulationConfig shapes the user universe.
type PopulationConfig struct {
	Users    int `json:"users" yaml:"users" validate:"gt=0"`
	Products int `json:"products" yaml:"products" validate:"gt=0"`

	DeviceWeights  map[types.Device]float64  `json:"device_weights" yaml:"device_weights"`
	CountryWeights map[types.Country]float64 `json:"country_weights" yaml:"country_weights"`

	BotFraction  float64      `json:"bot_fraction" yaml:"bot_fraction" validate:"gte=0,lte=1"`
	BotSelection BotSelection `json:"bot_selection" yaml:"bot_selection" validate:"oneof=exact bernoulli"`

	// Signup dates follow Beta(SignupAlpha, SignupBeta) over the window
	SignupAlpha float64 `json:"signup_alpha" yaml:"signup_alpha" validate:"gt=0"`
	SignupBeta  float64 `json:"signup_beta" yaml:"signup_beta" validate:"gt=0"`

	// Loyalty bands are fractions of the signup-sorted population, earliest first
	PlatinumShare float64 `json:"platinum_share" yaml:"platinum_share" validate:"gte=0,lte=1"`
	GoldShare     float64 `json:"gold_share" yaml:"gold_share" validate:"gte=0,lte=1"`
	SilverShare   float64 `json:"silver_share" yaml:"silver_share" validate:"gte=0,lte=1"`
}

// SessionConfig shapes the session scheduler.
type SessionConfig struct {
	// Target is the approximate total session count
	Target int `json:"target" yaml:"target" validate:"gt=0"`

	// BotRate is the Poisson mean of sessions per bot. From 30 up the count
	// is drawn from the normal approximation (see rng.Poisson).
	BotRate   float64                       `json:"bot_rate" yaml:"bot_rate" validate:"gt=0"`
	TierRates map[types.LoyaltyTier]float64 `json:"tier_rates" yaml:"tier_rates"`

	// Floor is added to every Poisson draw
	Floor int `json:"floor" yaml:"floor" validate:"gte=1"`

	OffsetMeanDays float64 `json:"offset_mean_days" yaml:"offset_mean_days" validate:"gt=0"`

	SourceWeights map[types.Source]float64 `json:"source_weights" yaml:"source_weights"`

	// Downsample to DownsampleTo × Target when the total exceeds DownsampleTrigger × Target
	DownsampleTrigger float64 `json:"downsample_trigger" yaml:"downsample_trigger" validate:"gte=1"`
	DownsampleTo      float64 `json:"downsample_to" yaml:"downsample_to" validate:"gte=1,ltefield=DownsampleTrigger"`
}

// FunnelConfig holds the stage probabilities and timing of the state machine.
type FunnelConfig struct {
	ProductView Range   `json:"product_view" yaml:"product_view"`
	ViewRate    float64 `json:"view_rate" yaml:"view_rate" validate:"gte=0"`
	ViewCap     int     `json:"view_cap" yaml:"view_cap" validate:"gte=1"`

	AddToCart    Range   `json:"add_to_cart" yaml:"add_to_cart"`
	LoyaltyBoost float64 `json:"loyalty_boost" yaml:"loyalty_boost" validate:"gt=0"`
	BoostCeiling float64 `json:"boost_ceiling" yaml:"boost_ceiling" validate:"gte=0,lte=1"`
	MaxCartItems int     `json:"max_cart_items" yaml:"max_cart_items" validate:"gte=1"`

	Checkout     Range   `json:"checkout" yaml:"checkout"`
	MobileFactor float64 `json:"mobile_factor" yaml:"mobile_factor" validate:"gte=0,lte=1"`

	// Purchase is fixed per arm, never re-sampled
	Purchase map[types.Variant]float64 `json:"purchase" yaml:"purchase"`
	ABTestID string                    `json:"ab_test_id" yaml:"ab_test_id" validate:"required"`

	Timing TimingConfig `json:"timing" yaml:"timing"`
}

// TimingConfig holds exponential mean gaps between funnel events, in seconds.
type TimingConfig struct {
	FirstView          float64 `json:"first_view" yaml:"first_view" validate:"gt=0"`
	BetweenViews       float64 `json:"between_views" yaml:"between_views" validate:"gt=0"`
	ViewToCart         float64 `json:"view_to_cart" yaml:"view_to_cart" validate:"gt=0"`
	BetweenCart        float64 `json:"between_cart" yaml:"between_cart" validate:"gt=0"`
	CartToCheckout     float64 `json:"cart_to_checkout" yaml:"cart_to_checkout" validate:"gt=0"`
	CheckoutToPurchase float64 `json:"checkout_to_purchase" yaml:"checkout_to_purchase" validate:"gt=0"`
}

// NoiseConfig holds the target corruption rates over all events.
type NoiseConfig struct {
	Missing   float64 `json:"missing" yaml:"missing" validate:"gte=0,lt=1"`
	Duplicate float64 `json:"duplicate" yaml:"duplicate" validate:"gte=0,lt=1"`
}

// OrderConfig shapes the order synthesizer.
type OrderConfig struct {
	PriceMu      float64 `json:"price_mu" yaml:"price_mu"`
	PriceSigma   float64 `json:"price_sigma" yaml:"price_sigma" validate:"gte=0"`
	PriceFloor   float64 `json:"price_floor" yaml:"price_floor" validate:"gt=0"`
	PriceCeiling float64 `json:"price_ceiling" yaml:"price_ceiling" validate:"gtfield=PriceFloor"`

	// QuantityWeights[i] is the weight of quantity i+1
	QuantityWeights []float64 `json:"quantity_weights" yaml:"quantity_weights" validate:"min=1,dive,gte=0,lte=1"`

	DiscountGate float64 `json:"discount_gate" yaml:"discount_gate" validate:"gte=0,lte=1"`
	Discount     Range   `json:"discount" yaml:"discount"`
	FailureRate  float64 `json:"failure_rate" yaml:"failure_rate" validate:"gte=0,lte=1"`
}

// TargetConfig holds the counts the report compares against. They are never enforced.
type TargetConfig struct {
	Events int `json:"events" yaml:"events" validate:"gte=0"`
	Orders int `json:"orders" yaml:"orders" validate:"gte=0"`
}

// StorageConfig holds publishing configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type" validate:"oneof=local s3"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// Prefix is prepended to every published object key
	Prefix string `json:"prefix" yaml:"prefix"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the configuration of the reference dataset.
func DefaultConfig() *Config {
	return &Config{
		Seed:     42,
		Workers:  1,
		DataDir:  "./data",
		LogLevel: "info",
		Window: WindowConfig{
			Start: "2023-01-01",
			End:   "2024-12-31",
		},
		Population: PopulationConfig{
			Users:    120000,
			Products: 2000,
			DeviceWeights: map[types.Device]float64{
				types.DeviceMobile:  0.65,
				types.DeviceDesktop: 0.30,
				types.DeviceTablet:  0.05,
			},
			CountryWeights: map[types.Country]float64{
				types.CountryUS: 0.40,
				types.CountryIN: 0.25,
				types.CountryUK: 0.15,
				types.CountryDE: 0.12,
				types.CountryAU: 0.08,
			},
			BotFraction:   0.02,
			BotSelection:  BotSelectionExact,
			SignupAlpha:   2,
			SignupBeta:    3,
			PlatinumShare: 0.03,
			GoldShare:     0.12,
			SilverShare:   0.25,
		},
		Sessions: SessionConfig{
			Target:  350000,
			BotRate: 10,
			TierRates: map[types.LoyaltyTier]float64{
				types.TierPlatinum: 4,
				types.TierGold:     3,
				types.TierSilver:   2,
				types.TierBronze:   1.5,
			},
			Floor:          1,
			OffsetMeanDays: 30,
			SourceWeights: map[types.Source]float64{
				types.SourceOrganic:  0.45,
				types.SourcePaid:     0.35,
				types.SourceEmail:    0.12,
				types.SourceReferral: 0.08,
			},
			DownsampleTrigger: 1.10,
			DownsampleTo:      1.05,
		},
		Funnel: FunnelConfig{
			ProductView:  Range{Min: 0.75, Max: 0.85},
			ViewRate:     2.5,
			ViewCap:      4,
			AddToCart:    Range{Min: 0.30, Max: 0.40},
			LoyaltyBoost: 1.15,
			BoostCeiling: 0.95,
			MaxCartItems: 3,
			Checkout:     Range{Min: 0.45, Max: 0.55},
			MobileFactor: 0.95,
			Purchase: map[types.Variant]float64{
				types.VariantControl: 0.85,
				types.VariantTest:    0.92,
			},
			ABTestID: "checkout_layout_test_1",
			Timing: TimingConfig{
				FirstView:          30,
				BetweenViews:       20,
				ViewToCart:         60,
				BetweenCart:        10,
				CartToCheckout:     45,
				CheckoutToPurchase: 120,
			},
		},
		Noise: NoiseConfig{
			Missing:   0.03,
			Duplicate: 0.01,
		},
		Orders: OrderConfig{
			PriceMu:         3.5,
			PriceSigma:      0.8,
			PriceFloor:      9.99,
			PriceCeiling:    999.99,
			QuantityWeights: []float64{0.70, 0.20, 0.07, 0.03},
			DiscountGate:    0.40,
			Discount:        Range{Min: 0.05, Max: 0.25},
			FailureRate:     0.08,
		},
		Targets: TargetConfig{
			Events: 950000,
			Orders: 50000,
		},
		Storage: StorageConfig{
			Type:   "local",
			Prefix: "ecommerce",
		},
	}
}

// Resolve fills derived paths from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.DataDir, "raw")
	}
	if c.WarehousePath == "" {
		c.WarehousePath = filepath.Join(c.DataDir, "warehouse.db")
	}
	if c.ExportDir == "" {
		c.ExportDir = filepath.Join(c.DataDir, "powerbi")
	}
	if c.MetricsPath == "" {
		c.MetricsPath = filepath.Join(c.DataDir, "metrics.prom")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
}

var validate = validator.New()

// Validate checks scalar ranges with struct tags, then the weight tables
// and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.NewConfigError(errors.CodeInvalidConfig, describeValidation(err))
	}

	if !c.Window.EndTime().After(c.Window.StartTime()) {
		return errors.NewConfigError(errors.CodeInvalidConfig,
			fmt.Sprintf("window end %s must be after start %s", c.Window.End, c.Window.Start))
	}

	p := c.Population
	if share := p.PlatinumShare + p.GoldShare + p.SilverShare; share > 1+weightTolerance {
		return errors.NewConfigError(errors.CodeInvalidConfig,
			fmt.Sprintf("loyalty shares sum to %.4f, must not exceed 1", share))
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return errors.NewConfigError(errors.CodeInvalidConfig, "storage.s3.bucket is required when storage type is s3")
	}

	if c.Noise.Missing+c.Noise.Duplicate >= 1 {
		return errors.NewConfigError(errors.CodeInvalidConfig, "noise.missing + noise.duplicate must be below 1")
	}

	if err := checkWeights("population.device_weights", types.Devices(), p.DeviceWeights); err != nil {
		return err
	}
	if err := checkWeights("population.country_weights", types.Countries(), p.CountryWeights); err != nil {
		return err
	}
	if err := checkWeights("sessions.source_weights", types.Sources(), c.Sessions.SourceWeights); err != nil {
		return err
	}
	if err := checkSum("orders.quantity_weights", c.Orders.QuantityWeights); err != nil {
		return err
	}
	if err := checkRates("sessions.tier_rates", types.LoyaltyTiers(), c.Sessions.TierRates, false); err != nil {
		return err
	}
	if err := checkRates("funnel.purchase", types.Variants(), c.Funnel.Purchase, true); err != nil {
		return err
	}

	return nil
}

// checkWeights validates a categorical table over a closed enum: every key
// known, every weight in [0,1], sum 1.
func checkWeights[K types.Enum](name string, allowed []K, weights map[K]float64) error {
	if len(weights) == 0 {
		return weightsError(name, "table is empty")
	}
	values := make([]float64, 0, len(weights))
	for _, k := range allowed {
		if w, ok := weights[k]; ok {
			values = append(values, w)
		}
	}
	if len(values) != len(weights) {
		for k := range weights {
			if !types.Contains(allowed, k) {
				return weightsError(name, fmt.Sprintf("unknown key %q", string(k)))
			}
		}
	}
	return checkSum(name, values)
}

func checkSum(name string, values []float64) error {
	if len(values) == 0 {
		return weightsError(name, "table is empty")
	}
	var sum float64
	for _, w := range values {
		if w < 0 || w > 1 || math.IsNaN(w) {
			return weightsError(name, fmt.Sprintf("weight %v outside [0,1]", w))
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return weightsError(name, fmt.Sprintf("weights sum to %.6f, want 1", sum))
	}
	return nil
}

// checkRates requires one entry per enum value. Probabilities are bounded to
// [0,1]; plain rates only need to be positive.
func checkRates[K types.Enum](name string, allowed []K, rates map[K]float64, probability bool) error {
	for k := range rates {
		if !types.Contains(allowed, k) {
			return weightsError(name, fmt.Sprintf("unknown key %q", string(k)))
		}
	}
	for _, k := range allowed {
		v, ok := rates[k]
		switch {
		case !ok:
			return weightsError(name, fmt.Sprintf("missing key %q", string(k)))
		case probability && (v < 0 || v > 1):
			return weightsError(name, fmt.Sprintf("%s = %v outside [0,1]", string(k), v))
		case !probability && v <= 0:
			return weightsError(name, fmt.Sprintf("%s = %v must be positive", string(k), v))
		}
	}
	return nil
}

func weightsError(name, msg string) error {
	return errors.NewConfigError(errors.CodeInvalidWeights, name+": "+msg).
		WithDetails(map[string]interface{}{"table": name})
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return strings.Join(msgs, "; ")
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overlays environment variables with the ECOMSIM_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("ECOMSIM_SEED"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Seed)
	}
	if v := os.Getenv("ECOMSIM_WORKERS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Workers)
	}
	if v := os.Getenv("ECOMSIM_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ECOMSIM_COMPRESS"); v != "" {
		cfg.Compress = v == "true" || v == "1"
	}
	if v := os.Getenv("ECOMSIM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Window
	if v := os.Getenv("ECOMSIM_START_DATE"); v != "" {
		cfg.Window.Start = v
	}
	if v := os.Getenv("ECOMSIM_END_DATE"); v != "" {
		cfg.Window.End = v
	}

	// Population and sessions
	if v := os.Getenv("ECOMSIM_USERS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Population.Users)
	}
	if v := os.Getenv("ECOMSIM_PRODUCTS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Population.Products)
	}
	if v := os.Getenv("ECOMSIM_BOT_FRACTION"); v != "" {
		fmt.Sscanf(v, "%g", &cfg.Population.BotFraction)
	}
	if v := os.Getenv("ECOMSIM_BOT_SELECTION"); v != "" {
		cfg.Population.BotSelection = BotSelection(v)
	}
	if v := os.Getenv("ECOMSIM_SESSION_TARGET"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Sessions.Target)
	}

	// Noise
	if v := os.Getenv("ECOMSIM_NOISE_MISSING"); v != "" {
		fmt.Sscanf(v, "%g", &cfg.Noise.Missing)
	}
	if v := os.Getenv("ECOMSIM_NOISE_DUPLICATE"); v != "" {
		fmt.Sscanf(v, "%g", &cfg.Noise.Duplicate)
	}

	// Storage
	if v := os.Getenv("ECOMSIM_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("ECOMSIM_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("ECOMSIM_STORAGE_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := os.Getenv("ECOMSIM_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("ECOMSIM_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("ECOMSIM_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}

// EnsureDirectories creates all output directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.OutputDir,
		c.ExportDir,
		filepath.Dir(c.WarehousePath),
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
