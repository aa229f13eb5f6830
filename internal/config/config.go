package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Data      DataConfig
	Chunk     ChunkConfig
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
	Rerank    RerankConfig
	LLM       LLMConfig
}

type DataConfig struct {
	DataDir  string `validate:"required"`
	IndexDir string `validate:"required"`
}

type ChunkConfig struct {
	Size    int `validate:"gt=0"`
	Overlap int `validate:"gte=0"`
}

type EmbeddingConfig struct {
	Provider string `validate:"oneof=openai dashscope"`
	Model    string `validate:"required"`
}

type RetrievalConfig struct {
	TopK                int `validate:"gt=0"`
	OverfetchMultiplier int `validate:"gte=1"`
}

type RerankConfig struct {
	Enabled   bool
	Model     string
	BatchSize int `validate:"gt=0"`
}

type LLMConfig struct {
	Provider        string `validate:"oneof=ollama openai dashscope"`
	Model           string
	OpenAIModel     string
	OpenAIAPIKey    string
	DashScopeAPIKey string
	OllamaHost      string
	SystemPrompt    string
}

// DefaultSystemPrompt 未配置SYSTEM_PROMPT时使用
const DefaultSystemPrompt = "You are a helpful assistant. Answer the question using only the provided context. If the context does not contain the answer, say so."

// LoadConfig 加载并校验配置，启动时调用一次
func LoadConfig() (*Config, error) {
	// 设置默认值
	viper.SetDefault("data.data_dir", "./data")
	viper.SetDefault("data.index_dir", "./rag_index")
	viper.SetDefault("chunk.size", 500)
	viper.SetDefault("chunk.overlap", 50)
	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("retrieval.top_k", 3)
	viper.SetDefault("retrieval.overfetch_multiplier", 3)
	viper.SetDefault("rerank.enabled", false)
	viper.SetDefault("rerank.model", "gte-rerank")
	viper.SetDefault("rerank.batch_size", 32)
	viper.SetDefault("llm.provider", "ollama")
	viper.SetDefault("llm.model", "mistral")
	viper.SetDefault("llm.openai_model", "gpt-3.5-turbo")
	viper.SetDefault("llm.ollama_host", "http://localhost:11434")
	viper.SetDefault("llm.system_prompt", DefaultSystemPrompt)

	// 从环境变量读取
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		viper.Set("data.data_dir", dataDir)
	}
	if indexDir := os.Getenv("INDEX_DIR"); indexDir != "" {
		viper.Set("data.index_dir", indexDir)
	}
	if chunkSize := os.Getenv("CHUNK_SIZE"); chunkSize != "" {
		n, err := strconv.Atoi(chunkSize)
		if err != nil {
			return nil, fmt.Errorf("CHUNK_SIZE无效: %w", err)
		}
		viper.Set("chunk.size", n)
	}
	if chunkOverlap := os.Getenv("CHUNK_OVERLAP"); chunkOverlap != "" {
		n, err := strconv.Atoi(chunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("CHUNK_OVERLAP无效: %w", err)
		}
		viper.Set("chunk.overlap", n)
	}
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		viper.Set("embedding.provider", provider)
	}
	if model := os.Getenv("EMBEDDING_MODEL_NAME"); model != "" {
		viper.Set("embedding.model", model)
	}
	if topK := os.Getenv("TOP_K"); topK != "" {
		n, err := strconv.Atoi(topK)
		if err != nil {
			return nil, fmt.Errorf("TOP_K无效: %w", err)
		}
		viper.Set("retrieval.top_k", n)
	}
	if multiplier := os.Getenv("OVERFETCH_MULTIPLIER"); multiplier != "" {
		n, err := strconv.Atoi(multiplier)
		if err != nil {
			return nil, fmt.Errorf("OVERFETCH_MULTIPLIER无效: %w", err)
		}
		viper.Set("retrieval.overfetch_multiplier", n)
	}
	if useReranking := os.Getenv("USE_RERANKING"); useReranking == "true" {
		viper.Set("rerank.enabled", true)
	}
	if rerankModel := os.Getenv("RERANK_MODEL"); rerankModel != "" {
		viper.Set("rerank.model", rerankModel)
	}
	if batchSize := os.Getenv("RERANK_BATCH_SIZE"); batchSize != "" {
		n, err := strconv.Atoi(batchSize)
		if err != nil {
			return nil, fmt.Errorf("RERANK_BATCH_SIZE无效: %w", err)
		}
		viper.Set("rerank.batch_size", n)
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		viper.Set("llm.provider", provider)
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		viper.Set("llm.model", model)
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		viper.Set("llm.openai_model", model)
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		viper.Set("llm.ollama_host", host)
	}
	if prompt := os.Getenv("SYSTEM_PROMPT"); prompt != "" {
		viper.Set("llm.system_prompt", prompt)
	}

	cfg := &Config{
		Data: DataConfig{
			DataDir:  viper.GetString("data.data_dir"),
			IndexDir: viper.GetString("data.index_dir"),
		},
		Chunk: ChunkConfig{
			Size:    viper.GetInt("chunk.size"),
			Overlap: viper.GetInt("chunk.overlap"),
		},
		Embedding: EmbeddingConfig{
			Provider: viper.GetString("embedding.provider"),
			Model:    viper.GetString("embedding.model"),
		},
		Retrieval: RetrievalConfig{
			TopK:                viper.GetInt("retrieval.top_k"),
			OverfetchMultiplier: viper.GetInt("retrieval.overfetch_multiplier"),
		},
		Rerank: RerankConfig{
			Enabled:   viper.GetBool("rerank.enabled"),
			Model:     viper.GetString("rerank.model"),
			BatchSize: viper.GetInt("rerank.batch_size"),
		},
		LLM: LLMConfig{
			Provider:        viper.GetString("llm.provider"),
			Model:           viper.GetString("llm.model"),
			OpenAIModel:     viper.GetString("llm.openai_model"),
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			DashScopeAPIKey: os.Getenv("DASHSCOPE_API_KEY"),
			OllamaHost:      viper.GetString("llm.ollama_host"),
			SystemPrompt:    viper.GetString("llm.system_prompt"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置合法性，启动阶段失败即退出
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	// 跨字段约束
	if c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("配置校验失败: chunk overlap (%d) 必须小于 chunk size (%d)", c.Chunk.Overlap, c.Chunk.Size)
	}
	if c.Embedding.Provider == "openai" && c.LLM.OpenAIAPIKey == "" {
		return fmt.Errorf("配置校验失败: 使用openai embedding时必须设置OPENAI_API_KEY")
	}
	if c.Embedding.Provider == "dashscope" && c.LLM.DashScopeAPIKey == "" {
		return fmt.Errorf("配置校验失败: 使用dashscope embedding时必须设置DASHSCOPE_API_KEY")
	}
	if c.LLM.Provider == "openai" && c.LLM.OpenAIAPIKey == "" {
		return fmt.Errorf("配置校验失败: 使用openai provider时必须设置OPENAI_API_KEY")
	}
	if c.LLM.Provider == "dashscope" && c.LLM.DashScopeAPIKey == "" {
		return fmt.Errorf("配置校验失败: 使用dashscope provider时必须设置DASHSCOPE_API_KEY")
	}
	if c.Rerank.Enabled && c.LLM.DashScopeAPIKey == "" {
		return fmt.Errorf("配置校验失败: 启用rerank时必须设置DASHSCOPE_API_KEY")
	}
	return nil
}
