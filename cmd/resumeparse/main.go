package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resume-parser-go/internal/config"
	appLogger "resume-parser-go/internal/logger"
	"resume-parser-go/internal/processor"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/pflag"
)

// 命令行参数定义
var (
	configPath = pflag.StringP("config", "c", "", "配置文件路径")
	inputFile  = pflag.StringP("file", "f", "", "简历文件路径 (必填), 支持 pdf/docx/txt/图片")
	useRefine  = pflag.Bool("refine", false, "是否调用模型精炼解析结果")
	outputFile = pflag.StringP("output", "o", "", "输出 JSON 文件, 为空时打印到标准输出")
	timeout    = pflag.Duration("timeout", 2*time.Minute, "整体超时")
)

func main() {
	pflag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "错误: 必须提供简历文件路径。使用 -f 参数。")
		pflag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	// 日志写到 stderr, 标准输出只保留 JSON
	if err := appLogger.Init(appLogger.Config{Level: "warn", Format: "json"}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	logger := appLogger.Logger.Output(os.Stderr)

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法读取文件 %s: %v\n", *inputFile, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	extractor, err := processor.NewTextExtractorFromConfig(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建文本提取器失败: %v\n", err)
		os.Exit(1)
	}

	var refiner processor.Refiner
	if *useRefine {
		refiner, err = processor.NewRefinerFromConfig(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "创建模型客户端失败: %v\n", err)
			os.Exit(1)
		}
		if refiner == nil {
			fmt.Fprintln(os.Stderr, "警告: 未配置 OPENAI_API_KEY, 跳过模型精炼")
		}
	}
	assembler := processor.NewAssemblerFromConfig(cfg, refiner, logger)

	id, err := uuid.NewV7()
	if err != nil {
		fmt.Fprintf(os.Stderr, "生成 id 失败: %v\n", err)
		os.Exit(1)
	}

	filename := filepath.Base(*inputFile)
	text := extractor.Extract(ctx, filename, data)
	result := assembler.Assemble(ctx, text, id.String())
	result.Resume.Metadata[processor.MetaFilename] = filename
	result.Resume.Metadata[processor.MetaSize] = len(data)
	result.Resume.Metadata[processor.MetaParserVersion] = cfg.Parser.Version
	if result.RefineErr != nil {
		fmt.Fprintf(os.Stderr, "模型精炼失败, 输出启发式结果: %v\n", result.RefineErr)
	}

	out, err := json.MarshalIndent(result.Resume, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "序列化结果失败: %v\n", err)
		os.Exit(1)
	}

	if *outputFile == "" {
		fmt.Println(string(out))
		return
	}
	if err := os.WriteFile(*outputFile, out, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "保存到文件失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "结果已保存到: %s\n", *outputFile)
}
