package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aihub/rag-go/internal/config"
	"github.com/aihub/rag-go/internal/dashscope"
	"github.com/aihub/rag-go/internal/knowledge"
	"github.com/aihub/rag-go/internal/llm"
	"github.com/aihub/rag-go/internal/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	indexMode := flag.Bool("index", false, "索引文档后退出")
	dataDir := flag.String("data", "", "覆盖配置中的文档目录")
	flag.Parse()

	// .env存在时自动加载
	_ = godotenv.Load()

	if err := logger.InitLogger(); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	ds := dashscope.NewService(cfg.LLM.DashScopeAPIKey)
	embedder := newEmbedder(cfg, ds)
	if !embedder.Ready() {
		fmt.Fprintf(os.Stderr, "embedding提供方未配置: %s\n", cfg.Embedding.Provider)
		os.Exit(1)
	}

	if *indexMode {
		runIndexing(cfg, embedder, *dataDir)
		return
	}

	var reranker knowledge.Reranker
	if cfg.Rerank.Enabled {
		reranker = knowledge.NewDashScopeReranker(ds, cfg.Rerank.Model)
	}

	retriever := knowledge.NewRetriever(cfg, embedder, reranker)
	completer, err := llm.NewCompleter(cfg, ds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化LLM失败: %v\n", err)
		os.Exit(1)
	}

	runChatLoop(cfg, retriever, completer)
}

// newEmbedder 按配置选择embedding提供方
func newEmbedder(cfg *config.Config, ds *dashscope.Service) knowledge.Embedder {
	switch cfg.Embedding.Provider {
	case "dashscope":
		return knowledge.NewDashScopeEmbedder(ds, cfg.Embedding.Model)
	default:
		return knowledge.NewOpenAIEmbedder(cfg.LLM.OpenAIAPIKey, cfg.Embedding.Model)
	}
}

// runIndexing 执行索引构建，成功退出码0，失败输出错误并退出码1
func runIndexing(cfg *config.Config, embedder knowledge.Embedder, dataDir string) {
	if dataDir == "" {
		dataDir = cfg.Data.DataDir
	}

	indexer := knowledge.NewIndexer(cfg, embedder)
	if err := indexer.Build(context.Background(), dataDir); err != nil {
		if errors.Is(err, knowledge.ErrNoDocuments) {
			fmt.Fprintf(os.Stderr, "索引失败: 目录 %s 中没有可索引的文档\n", dataDir)
		} else {
			fmt.Fprintf(os.Stderr, "索引失败: %v\n", err)
		}
		os.Exit(1)
	}
	fmt.Println("✅ 索引构建完成，现在可以直接运行程序开始问答。")
}

// runChatLoop 交互式问答循环
func runChatLoop(cfg *config.Config, retriever *knowledge.Retriever, completer llm.Completer) {
	if !retriever.Ready() {
		fmt.Println("⚠️  未找到索引，请先运行 rag -index 构建索引。")
	}

	logger.Info("🚀 RAG问答已启动",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("rerank", cfg.Rerank.Enabled))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n💬 请输入问题（exit退出）: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if strings.EqualFold(query, "exit") {
			break
		}

		answer := answerQuery(cfg, retriever, completer, query)
		fmt.Println("\n🤖 回答:")
		fmt.Println(answer)
	}
}

// answerQuery 检索上下文并调用LLM，所有失败都转为用户可读的错误文本
func answerQuery(cfg *config.Config, retriever *knowledge.Retriever, completer llm.Completer, query string) string {
	ctx := context.Background()

	contexts, err := retriever.Retrieve(ctx, query, cfg.Retrieval.TopK)
	if err != nil {
		if errors.Is(err, knowledge.ErrIndexNotAvailable) {
			return "⚠️  未找到索引，请先运行 rag -index 构建索引。"
		}
		logger.Error("检索失败", zap.String("query", query), zap.Error(err))
		return fmt.Sprintf("检索失败: %v", err)
	}

	prompt := llm.BuildUserPrompt(query, contexts)
	answer, err := completer.Complete(ctx, cfg.LLM.SystemPrompt, prompt)
	if err != nil {
		logger.Error("调用LLM失败", zap.String("query", query), zap.Error(err))
		return fmt.Sprintf("调用LLM失败: %v", err)
	}
	return answer
}
