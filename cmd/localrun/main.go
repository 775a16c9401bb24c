// localrun feeds fixture stream events through the real pipeline for
// local development. By default submissions go to a dry-run stub that
// prints what would have been sent; -live uses the real SSM client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cldeng/scp-exemption-trigger/internal/automation"
	"github.com/cldeng/scp-exemption-trigger/internal/config"
	"github.com/cldeng/scp-exemption-trigger/internal/devserver"
	"github.com/cldeng/scp-exemption-trigger/internal/processor"
	"github.com/cldeng/scp-exemption-trigger/internal/stream"
)

func main() {
	eventPath := flag.String("event", "", "Path to a DynamoDB stream event JSON file")
	itemsPath := flag.String("items", "", "Path to a YAML file of exemption items to synthesize INSERT records from")
	table := flag.String("table", "scp-exemptions", "Table name used in synthesized stream ARNs")
	live := flag.Bool("live", false, "Submit to the real SSM API instead of the dry-run stub")
	watch := flag.Bool("watch", false, "Re-run whenever the fixture file changes")
	serve := flag.Bool("serve", false, "Also serve the dev HTTP harness")
	addr := flag.String("addr", ":8080", "Dev harness listen address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration invalid", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx := context.Background()

	var client automation.StartAutomationAPI = &dryRunClient{}
	if *live {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}
		client = ssm.NewFromConfig(awsCfg)
	}
	proc := processor.New(automation.New(client, cfg), cfg)

	if *serve {
		go func() {
			slog.Info("dev harness listening", "addr", *addr)
			if err := http.ListenAndServe(*addr, devserver.New(proc)); err != nil {
				slog.Error("dev harness stopped", "err", err)
				os.Exit(1)
			}
		}()
	}

	path := *eventPath
	if path == "" {
		path = *itemsPath
	}
	if path == "" {
		if *serve {
			select {} // harness-only mode
		}
		slog.Error("one of -event or -items is required")
		os.Exit(1)
	}

	run := func() {
		batch, err := loadBatch(*eventPath, *itemsPath, *table)
		if err != nil {
			slog.Error("fixture load failed", "path", path, "err", err)
			return
		}
		if err := proc.HandleBatch(ctx, batch); err != nil {
			slog.Error("batch failed", "err", err)
			return
		}
		slog.Info("batch processed", "records", len(batch.Records))
	}
	run()

	if !*watch {
		return
	}

	// Watch the fixture and re-run on every write.
	w, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("fixture watcher unavailable", "err", err)
		os.Exit(1)
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		slog.Error("fixture watcher add failed", "path", path, "err", err)
		os.Exit(1)
	}
	slog.Info("watching fixture", "path", path)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				run()
			}
		case <-w.Errors:
			// Ignore watcher errors.
		}
	}
}

// fixtureItem is one exemption row in a -items YAML file.
type fixtureItem struct {
	AccountID string   `yaml:"account_id"`
	RoleName  string   `yaml:"role_name"`
	TagKeys   []string `yaml:"tag_keys"`
	TTL       int64    `yaml:"ttl"`
}

func loadBatch(eventPath, itemsPath, table string) (events.DynamoDBEvent, error) {
	if eventPath != "" {
		var batch events.DynamoDBEvent
		data, err := os.ReadFile(eventPath)
		if err != nil {
			return batch, err
		}
		if err := json.Unmarshal(data, &batch); err != nil {
			return batch, fmt.Errorf("parse event %s: %w", eventPath, err)
		}
		return batch, nil
	}

	data, err := os.ReadFile(itemsPath)
	if err != nil {
		return events.DynamoDBEvent{}, err
	}
	var items []fixtureItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return events.DynamoDBEvent{}, fmt.Errorf("parse items %s: %w", itemsPath, err)
	}

	batch := events.DynamoDBEvent{Records: make([]events.DynamoDBEventRecord, 0, len(items))}
	for _, it := range items {
		batch.Records = append(batch.Records, synthesizeRecord(it, table))
	}
	return batch, nil
}

// synthesizeRecord builds the INSERT record the stream would deliver for
// one exemption item.
func synthesizeRecord(it fixtureItem, table string) events.DynamoDBEventRecord {
	tagKeys := make([]events.DynamoDBAttributeValue, len(it.TagKeys))
	for i, k := range it.TagKeys {
		tagKeys[i] = events.NewStringAttribute(k)
	}
	image := map[string]events.DynamoDBAttributeValue{
		"AccountId":        events.NewStringAttribute(it.AccountID),
		"RoleName":         events.NewStringAttribute(it.RoleName),
		"ExemptionTagKeys": events.NewListAttribute(tagKeys),
	}
	if it.TTL > 0 {
		image["ttl"] = events.NewNumberAttribute(strconv.FormatInt(it.TTL, 10))
	}
	return events.DynamoDBEventRecord{
		EventID:   uuid.New().String(),
		EventName: stream.EventInsert,
		EventSourceArn: fmt.Sprintf(
			"arn:aws:dynamodb:us-east-1:000000000000:table/%s/stream/2024-01-01T00:00:00.000", table),
		Change: events.DynamoDBStreamRecord{NewImage: image},
	}
}

// dryRunClient satisfies automation.StartAutomationAPI and prints what
// would have been submitted.
type dryRunClient struct {
	n atomic.Int64
}

func (c *dryRunClient) StartAutomationExecution(ctx context.Context, in *ssm.StartAutomationExecutionInput, _ ...func(*ssm.Options)) (*ssm.StartAutomationExecutionOutput, error) {
	id := fmt.Sprintf("dry-run-%d", c.n.Add(1))
	slog.Info("dry-run submission",
		"document", aws.ToString(in.DocumentName),
		"parameters", in.Parameters,
		"targets", len(in.TargetLocations),
		"execution_id", id)
	return &ssm.StartAutomationExecutionOutput{AutomationExecutionId: aws.String(id)}, nil
}
