package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/cldeng/scp-exemption-trigger/internal/automation"
	"github.com/cldeng/scp-exemption-trigger/internal/config"
	"github.com/cldeng/scp-exemption-trigger/internal/processor"
)

func main() {
	// ── Load config ──────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// ── SSM client ───────────────────────────────────────────────────────────
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}
	client := ssm.NewFromConfig(awsCfg)

	// ── Pipeline ─────────────────────────────────────────────────────────────
	proc := processor.New(automation.New(client, cfg), cfg)

	lambda.Start(proc.HandleBatch)
}
