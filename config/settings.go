package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/hybridrec/eventlog"
	"github.com/rushteam/hybridrec/lexical"
	"github.com/rushteam/hybridrec/model"
	"github.com/rushteam/hybridrec/pkg/logging"
	"github.com/rushteam/hybridrec/rank"
	"github.com/rushteam/hybridrec/recall"
	"github.com/rushteam/hybridrec/store"
)

// EnvPrefix 是环境变量前缀。层级用双下划线分隔：
//
//	HYBRIDREC_ALS__FACTORS=32            -> als.factors
//	HYBRIDREC_RETRAIN__POLICY=interval   -> retrain.policy
//	HYBRIDREC_STORE__REDIS__ADDR=...     -> store.redis.addr
const EnvPrefix = "HYBRIDREC_"

// ConfigPathEnvVar 可覆盖配置文件路径。
const ConfigPathEnvVar = EnvPrefix + "CONFIG"

// 重训策略
const (
	RetrainEager     = "eager"     // 每次追加事件后同步重训
	RetrainThreshold = "threshold" // 待训练事件数达到阈值时重训
	RetrainInterval  = "interval"  // 后台按固定间隔重训
)

// Settings 是引擎的全部配置。
type Settings struct {
	Logging       logging.Config      `koanf:"logging"`
	Store         store.Config        `koanf:"store"`
	EventLog      EventLogConfig      `koanf:"eventlog"`
	ALS           model.ALSConfig     `koanf:"als"`
	Lexical       LexicalConfig       `koanf:"lexical"`
	Collaborative CollaborativeConfig `koanf:"collaborative"`
	Fusion        FusionConfig        `koanf:"fusion"`
	Retrain       RetrainConfig       `koanf:"retrain"`
	Pipeline      PipelineConfig      `koanf:"pipeline"`
	Catalog       CatalogConfig       `koanf:"catalog"`
}

// EventLogConfig 交互日志配置。
type EventLogConfig struct {
	// Prefix 是存储中的 key 前缀，多个引擎共享一个 Redis 时用它隔离
	Prefix string `koanf:"prefix" validate:"required"`
}

// LexicalConfig 文本索引配置。
type LexicalConfig struct {
	Strategy    string   `koanf:"strategy" validate:"oneof=bm25 jaccard"`
	K1          float64  `koanf:"k1" validate:"gte=0"`
	B           float64  `koanf:"b" validate:"gte=0,lte=1"`
	MaxKeywords int      `koanf:"max_keywords" validate:"gte=1"`
	GraphWeight float64  `koanf:"graph_weight" validate:"gte=0"`
	Stopwords   []string `koanf:"stopwords"`
}

// Options 转为 lexical.Option。
func (c LexicalConfig) Options() []lexical.Option {
	return []lexical.Option{
		lexical.WithTokenizer(lexical.NewFieldsTokenizer(c.Stopwords...)),
		lexical.WithBM25Params(c.K1, c.B),
		lexical.WithMaxKeywords(c.MaxKeywords),
		lexical.WithGraphWeight(c.GraphWeight),
	}
}

// CollaborativeConfig 协同召回配置。
type CollaborativeConfig struct {
	// CandidatePool 协同召回的候选数
	CandidatePool int `koanf:"candidate_pool" validate:"gte=1"`

	// Timeout 单次召回的超时，0 表示不限制
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
}

// FusionConfig 融合配置。
type FusionConfig struct {
	LexicalWeight       float64 `koanf:"lexical_weight" validate:"gte=0"`
	CollaborativeWeight float64 `koanf:"collaborative_weight" validate:"gte=0"`
	TopN                int     `koanf:"top_n" validate:"gte=0"`
	DedupTitles         bool    `koanf:"dedup_titles"`
}

// Options 转为 rank.FuseOptions（Title 由引擎注入）。
func (c FusionConfig) Options() rank.FuseOptions {
	return rank.FuseOptions{
		LexicalWeight:       c.LexicalWeight,
		CollaborativeWeight: c.CollaborativeWeight,
		TopN:                c.TopN,
		DedupTitles:         c.DedupTitles,
	}
}

// RetrainConfig 重训策略配置。
type RetrainConfig struct {
	Policy string `koanf:"policy" validate:"oneof=eager threshold interval"`

	// Threshold 在 threshold 策略下触发重训的待训练事件数
	Threshold int `koanf:"threshold" validate:"gte=1"`

	// Interval 在 interval 策略下的重训间隔
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

// PipelineConfig 指向可选的 YAML pipeline；为空时使用内置 pipeline。
type PipelineConfig struct {
	Path string `koanf:"path"`
}

// CatalogConfig 目录文件（JSON 或 YAML 数组）。
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// Default 返回默认配置。
func Default() *Settings {
	return &Settings{
		Logging: logging.DefaultConfig(),
		Store: store.Config{
			Backend: store.BackendMemory,
			Redis:   store.RedisConfig{Addr: "127.0.0.1:6379", DialTimeout: 5 * time.Second},
		},
		EventLog: EventLogConfig{Prefix: eventlog.DefaultPrefix},
		ALS:      model.DefaultALSConfig(),
		Lexical: LexicalConfig{
			Strategy:    lexical.StrategyBM25,
			K1:          lexical.DefaultK1,
			B:           lexical.DefaultB,
			MaxKeywords: lexical.DefaultMaxKeywords,
			GraphWeight: lexical.DefaultGraphWeight,
			Stopwords:   lexical.DefaultStopwords,
		},
		Collaborative: CollaborativeConfig{CandidatePool: recall.DefaultCandidatePool},
		Fusion: FusionConfig{
			LexicalWeight:       rank.DefaultLexicalWeight,
			CollaborativeWeight: rank.DefaultCollaborativeWeight,
			TopN:                rank.DefaultTopN,
		},
		Retrain: RetrainConfig{
			Policy:    RetrainEager,
			Threshold: 1,
			Interval:  time.Minute,
		},
	}
}

// Load 按层加载配置：默认值 -> YAML 文件 -> HYBRIDREC_ 环境变量，然后校验。
//
// path 为空时读取 HYBRIDREC_CONFIG；两者都为空则不读文件。
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := splitStopwords(k); err != nil {
		return nil, err
	}

	cfg := &Settings{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc: HYBRIDREC_STORE__BADGER__PATH -> store.badger.path
func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// splitStopwords 允许用逗号分隔的字符串覆盖停用词。
func splitStopwords(k *koanf.Koanf) error {
	const key = "lexical.stopwords"
	raw, ok := k.Get(key).(string)
	if !ok {
		return nil
	}
	words := make([]string, 0)
	for _, w := range strings.Split(raw, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return k.Set(key, words)
}

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate 校验字段取值与字段间约束。
func (s *Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return err
	}
	if s.Fusion.LexicalWeight+s.Fusion.CollaborativeWeight == 0 {
		return fmt.Errorf("fusion: lexical_weight and collaborative_weight cannot both be 0")
	}
	if s.Store.Backend == store.BackendBadger && s.Store.Badger.Path == "" && !s.Store.Badger.InMemory {
		return fmt.Errorf("store.badger.path is required unless store.badger.in_memory is set")
	}
	if s.Store.Backend == store.BackendRedis && s.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required for the redis backend")
	}
	return nil
}
