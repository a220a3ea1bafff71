package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/applizz/jobmail/internal/adapters/bedrock"
	"github.com/applizz/jobmail/internal/adapters/gemini"
	"github.com/applizz/jobmail/internal/adapters/openai"
	"github.com/applizz/jobmail/internal/config"
	"github.com/applizz/jobmail/internal/core"
	"github.com/applizz/jobmail/internal/utils"
)

// LLMFactory creates LLM clients
type LLMFactory struct {
	cfg       *config.Config
	logger    *zap.Logger
	processor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, processor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:       cfg,
		logger:    logger,
		processor: processor,
	}
}

// CreateLLMClient creates a new LLM client based on the configuration.
// Provider "none" disables the LLM tier; classification then stops at the
// keyword tier.
func (f *LLMFactory) CreateLLMClient() (core.LLMClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "none", "":
		return nil, nil
	case "bedrock":
		factory := bedrock.NewFactory(f.cfg, f.logger, f.processor)
		return factory.CreateClient()
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		if geminiCfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		return gemini.NewGeminiClient(
			geminiCfg.APIKey,
			geminiCfg.ModelName,
			geminiCfg.MaxTokens,
			geminiCfg.Temperature,
			geminiCfg.TopP,
			geminiCfg.MaxBodySize,
			f.processor,
			f.logger,
		)
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return openai.NewOpenAIClient(
			openaiCfg.APIKey,
			openaiCfg.ModelName,
			openaiCfg.MaxTokens,
			openaiCfg.Temperature,
			openaiCfg.TopP,
			openaiCfg.MaxBodySize,
			f.logger,
			f.processor,
		), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
