package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultConfigPath = "/etc/stock-parody/config.ini"
	configPathEnv     = "STOCK_PARODY_CONFIG"

	DefaultModel      = "claude-3-haiku-20240307"
	DefaultDisclaimer = "면책조항:패러디/특정기관,개인과 무관/투자조언아님/재미목적"
	DefaultSheetTab   = "today_stock_parody"
)

type Config struct {
	Hostname         string
	AppEnv           string
	BaseOutputFolder string
	AssetFolder      string
	RawDataPath      string
	Timezone         string
	Disclaimer       string

	LLMProvider          string
	LLMModel             string
	RankModel            string
	RankTemperature      float64
	RankMaxTokens        int
	GenerateTemperature  float64
	GenerateMaxTokens    int
	GenerationAttempts   int
	LLMMaxRetries        int
	LLMBaseDelayMS       int
	LLMMaxDelayMS        int
	LLMRequestsPerMinute int
	LLMTimeoutSeconds    int

	AnthropicAPIKey string
	OpenAIAPIKey    string
	GeminiAPIKey    string
	OllamaHostname  string
	OllamaPort      int
	OllamaModel     string

	RSSURLs             []string
	NewsDays            int
	NewsMinItems        int
	TopN                int
	SimilarityThreshold float64

	SheetID               string
	SheetTab              string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	CSVPath               string
	FeedPath              string
	FeedLink              string

	CardTemplate    string
	CardFontRegular string
	CardFontBold    string

	FFmpegPath    string
	IntroImage    string
	BGMPath       string
	IntroDuration int
	CardDuration  int

	YouTubeClientSecrets string
	YouTubeTokenFile     string
	YouTubeMetadataFile  string
	YouTubePrivacy       string
	YouTubeCategory      string

	DriveFolderID string
	WebhookURL    string

	DBURL      string
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	RabbitMQURLOverride string
	RabbitMQHost        string
	RabbitMQPort        int
	RabbitMQUser        string
	RabbitMQPassword    string
	RabbitMQVHost       string
}

// Load reads .env, the INI file (optional) and the process environment, in that order of
// precedence: INI values win, env fills the gaps, defaults fill the rest. The bracketed
// rawdata file supplies feed URLs and the card duration when the INI leaves them unset.
func Load() (Config, error) {
	// .env never overrides variables already present in the environment.
	_ = godotenv.Load()

	configPath := os.Getenv(configPathEnv)
	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath
	}

	ini, err := readINI(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return Config{}, fmt.Errorf("load config %s: %w", configPath, err)
		}
		ini = iniData{sections: map[string]map[string]string{}}
	}

	cfg := fromINI(ini)

	raw, err := ParseRawData(cfg.RawDataPath)
	if err != nil {
		return cfg, fmt.Errorf("load rawdata %s: %w", cfg.RawDataPath, err)
	}
	cfg.applyRawData(raw)
	return cfg, nil
}

func fromINI(ini iniData) Config {
	cfg := Config{}
	cfg.Hostname = ini.get("app", "hostname")
	if cfg.Hostname == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Hostname = host
		}
	}
	cfg.AppEnv = ini.getDefault("app", "env", "production")
	cfg.BaseOutputFolder = firstNonEmpty(ini.get("app", "base_output_folder"), os.Getenv("BASE_OUTPUT_FOLDER"), ".")
	cfg.AssetFolder = ini.getDefault("app", "asset_folder", filepath.Join(cfg.BaseOutputFolder, "asset"))
	cfg.RawDataPath = ini.getDefault("app", "rawdata", filepath.Join(cfg.AssetFolder, "rawdata.txt"))
	cfg.Timezone = ini.getDefault("app", "timezone", "Asia/Seoul")
	cfg.Disclaimer = ini.getDefault("app", "disclaimer", DefaultDisclaimer)

	cfg.LLMProvider = strings.ToLower(ini.getDefault("llm", "provider", "anthropic"))
	cfg.OllamaModel = ini.getDefault("ollama", "model", "llama3.2")
	cfg.LLMModel = firstNonEmpty(ini.get("llm", "model"), os.Getenv("LLM_MODEL"), defaultModelFor(cfg.LLMProvider, cfg.OllamaModel))
	cfg.RankModel = ini.getDefault("llm", "rank_model", cfg.LLMModel)
	cfg.RankTemperature = ini.getFloatDefault("llm", "rank_temperature", 0.1)
	cfg.RankMaxTokens = ini.getIntDefault("llm", "rank_max_tokens", 1000)
	cfg.GenerateTemperature = ini.getFloatDefault("llm", "temperature", 0.7)
	cfg.GenerateMaxTokens = ini.getIntDefault("llm", "max_tokens", 2000)
	cfg.GenerationAttempts = ini.getIntDefault("llm", "attempts", 3)
	cfg.LLMMaxRetries = ini.getIntDefault("llm", "max_retries", 5)
	cfg.LLMBaseDelayMS = ini.getIntDefault("llm", "base_delay_ms", 1000)
	cfg.LLMMaxDelayMS = ini.getIntDefault("llm", "max_delay_ms", 60000)
	cfg.LLMRequestsPerMinute = ini.getIntDefault("llm", "requests_per_minute", 50)
	cfg.LLMTimeoutSeconds = ini.getIntDefault("llm", "timeout_seconds", 120)

	cfg.AnthropicAPIKey = firstNonEmpty(ini.get("anthropic", "api_key"), os.Getenv("CLAUDE_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"))
	cfg.OpenAIAPIKey = firstNonEmpty(ini.get("openai", "api_key"), os.Getenv("OPENAI_API_KEY"))
	cfg.GeminiAPIKey = firstNonEmpty(ini.get("gemini", "api_key"), os.Getenv("GEMINI_API_KEY"))
	cfg.OllamaHostname = firstNonEmpty(ini.get("ollama", "hostname"), os.Getenv("OLLAMA_HOST"))
	cfg.OllamaPort = ini.getIntDefault("ollama", "port", 11434)

	if urls := ini.get("news", "rss_urls"); urls != "" {
		cfg.RSSURLs = splitList(urls)
	}
	cfg.NewsDays = ini.getIntDefault("news", "days", 7)
	cfg.NewsMinItems = ini.getIntDefault("news", "min_items", 20)
	cfg.TopN = ini.getIntDefault("news", "top", 20)
	cfg.SimilarityThreshold = ini.getFloatDefault("news", "similarity_threshold", 0.8)

	cfg.SheetID = firstNonEmpty(ini.get("sheets", "id"), os.Getenv("GSHEET_ID"))
	cfg.SheetTab = ini.getDefault("sheets", "tab", DefaultSheetTab)
	cfg.GoogleCredentialsJSON = os.Getenv("GOOGLE_CREDENTIALS_JSON")
	cfg.GoogleCredentialsFile = ini.getDefault("sheets", "credentials_file", "service_account.json")
	cfg.CSVPath = ini.getDefault("output", "csv", filepath.Join(cfg.BaseOutputFolder, "parody_data", "today_stock_parody.csv"))
	cfg.FeedPath = ini.get("output", "feed")
	cfg.FeedLink = ini.get("output", "feed_link")

	cfg.CardTemplate = ini.getDefault("card", "template", filepath.Join(cfg.AssetFolder, "card_1080x1920.png"))
	cfg.CardFontRegular = ini.getDefault("card", "font_regular", filepath.Join(cfg.AssetFolder, "Pretendard-Regular.ttf"))
	cfg.CardFontBold = ini.getDefault("card", "font_bold", filepath.Join(cfg.AssetFolder, "Pretendard-Bold.ttf"))

	cfg.FFmpegPath = ini.getDefault("video", "ffmpeg", "ffmpeg")
	cfg.IntroImage = ini.getDefault("video", "intro_image", filepath.Join(cfg.AssetFolder, "intro_ou_stock.png"))
	cfg.BGMPath = ini.getDefault("video", "bgm", filepath.Join(cfg.AssetFolder, "bgm.mp3"))
	cfg.IntroDuration = ini.getIntDefault("video", "intro_duration", 2)
	cfg.CardDuration = ini.getIntDefault("video", "card_duration", 0)

	cfg.YouTubeClientSecrets = ini.getDefault("youtube", "client_secrets", filepath.Join("youtube_uploader", "client_secrets.json"))
	cfg.YouTubeTokenFile = ini.getDefault("youtube", "token_file", filepath.Join("youtube_uploader", "token.json"))
	cfg.YouTubeMetadataFile = ini.getDefault("youtube", "metadata_file", filepath.Join(cfg.AssetFolder, "upload.yaml"))
	cfg.YouTubePrivacy = ini.getDefault("youtube", "privacy", "private")
	cfg.YouTubeCategory = ini.getDefault("youtube", "category", "24")

	cfg.DriveFolderID = firstNonEmpty(ini.get("drive", "folder_id"), os.Getenv("DRIVE_FOLDER_ID"))
	cfg.WebhookURL = firstNonEmpty(ini.get("drive", "webhook_url"), os.Getenv("MAKE_WEBHOOK_URL"))

	cfg.DBURL = firstNonEmpty(ini.get("db", "url"), ini.get("db", "database_url"), os.Getenv("DATABASE_URL"))
	cfg.DBHost = ini.get("db", "host")
	cfg.DBPort = ini.getIntDefault("db", "port", 5432)
	cfg.DBName = ini.getDefault("db", "name", "stock_parody")
	cfg.DBUser = ini.getDefault("db", "user", "postgres")
	cfg.DBPassword = ini.get("db", "password")
	cfg.DBSSLMode = ini.getDefault("db", "sslmode", "prefer")

	cfg.RabbitMQURLOverride = firstNonEmpty(ini.get("rabbitmq", "url"), os.Getenv("RABBITMQ_URL"))
	cfg.RabbitMQHost = ini.get("rabbitmq", "host")
	cfg.RabbitMQPort = ini.getIntDefault("rabbitmq", "port", 5672)
	cfg.RabbitMQUser = ini.getDefault("rabbitmq", "user", "guest")
	cfg.RabbitMQPassword = ini.getDefault("rabbitmq", "password", "guest")
	cfg.RabbitMQVHost = ini.getDefault("rabbitmq", "vhost", "/")
	return cfg
}

func (c *Config) applyRawData(raw RawData) {
	if len(c.RSSURLs) == 0 {
		c.RSSURLs = raw.Values(KeyRSSURL)
	}
	if c.CardDuration <= 0 {
		c.CardDuration = raw.IntValue(KeyVideoLength, 4)
	}
}

// DBEnabled reports whether run history should be written to Postgres.
func (c Config) DBEnabled() bool {
	return c.DBURL != "" || c.DBHost != ""
}

// QueueEnabled reports whether stages hand off through RabbitMQ.
func (c Config) QueueEnabled() bool {
	return c.RabbitMQURLOverride != "" || c.RabbitMQHost != ""
}

func (c Config) DBConnString() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBUser,
		c.DBPassword,
		c.DBSSLMode,
	)
}

func (c Config) RabbitMQURL() string {
	if c.RabbitMQURLOverride != "" {
		return c.RabbitMQURLOverride
	}
	vhost := strings.TrimPrefix(c.RabbitMQVHost, "/")
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d/%s",
		urlEscape(c.RabbitMQUser),
		urlEscape(c.RabbitMQPassword),
		c.RabbitMQHost,
		c.RabbitMQPort,
		vhost,
	)
}

func defaultModelFor(provider, ollamaModel string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-2.0-flash"
	case "ollama":
		return ollamaModel
	default:
		return DefaultModel
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func urlEscape(value string) string {
	return strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F").Replace(value)
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}
