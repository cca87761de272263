package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Discord DiscordConfig
	LLM     LLMConfig
	Bot     BotConfig
	Infra   InfraConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string `validate:"required,numeric"`
	Environment        string `validate:"oneof=development production test"`
	LogFilePath        string `validate:"required"`
	WebSocketLogPath   string
	HTTPEnabled        bool
	JwtSecret          string `validate:"required_if=HTTPEnabled true"`
	CorsAllowedOrigins string
}

type DiscordConfig struct {
	Token           string   `validate:"required"`
	AllowedServerID string   `validate:"required"`
	AllowedUserIDs  []string `validate:"min=1,dive,required"`
	AskCommand      string   `validate:"required,max=32"`
	ModeCommand     string   `validate:"required,max=32"`
}

type LLMConfig struct {
	Provider          string `validate:"oneof=anthropic ollama huggingface"`
	Model             string
	BaseURL           string
	MaxTokens         int    `validate:"gte=1"`
	AnthropicAPIKey   string `validate:"required_if=Provider anthropic"`
	HuggingFaceAPIKey string
	SystemPrompt      string
}

type BotConfig struct {
	StyleMarker      string `validate:"required"`
	StyleModeDefault bool
	// QueueCapacity of zero keeps the queue unbounded.
	QueueCapacity int `validate:"gte=0"`
}

type InfraConfig struct {
	NatsURL     string
	RedisURL    string
	EventsTopic string `validate:"required"`
}

type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/bot.log"),
			WebSocketLogPath:   getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
			HTTPEnabled:        getEnvAsBool("HTTP_ENABLED", true),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		},
		Discord: DiscordConfig{
			Token:           getEnv("DISCORD_BOT_TOKEN", ""),
			AllowedServerID: getEnv("ALLOWED_SERVER_ID", ""),
			AllowedUserIDs:  getEnvAsList("ALLOWED_USER_IDS"),
			AskCommand:      getEnv("ASK_COMMAND_NAME", "nbz"),
			ModeCommand:     getEnv("MODE_COMMAND_NAME", "nyanmode"),
		},
		LLM: LLMConfig{
			Provider:          getEnv("LLM_PROVIDER", "anthropic"),
			Model:             getEnv("LLM_MODEL", "claude-3-sonnet-20240229"),
			BaseURL:           getEnv("LLM_BASE_URL", ""),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 1000),
			AnthropicAPIKey:   getEnv("CLAUDE_API_KEY", ""),
			HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
			SystemPrompt:      getEnv("LLM_SYSTEM_PROMPT", ""),
		},
		Bot: BotConfig{
			StyleMarker:      getEnv("STYLE_MARKER", "냥!"),
			StyleModeDefault: getEnvAsBool("STYLE_MODE_DEFAULT", true),
			QueueCapacity:    getEnvAsInt("QUEUE_CAPACITY", 0),
		},
		Infra: InfraConfig{
			NatsURL:     getEnv("NATS_URL", ""),
			RedisURL:    getEnv("REDIS_URL", ""),
			EventsTopic: getEnv("EVENTS_TOPIC", "bot.events"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "nyan-bot"),
		},
	}
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			fieldErrs := make([]string, 0, len(errs))
			for _, fe := range errs {
				fieldErrs = append(fieldErrs, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fieldErrs, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
