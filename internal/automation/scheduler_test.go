package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/cldeng/scp-exemption-trigger/internal/stream"
)

const sourceARN = "arn:aws:dynamodb:us-east-1:111111111111:table/scp-exemptions/stream/2024-01-01T00:00:00.000"

func insertRecord(image map[string]interface{}) *stream.Record {
	return &stream.Record{
		EventID:   "evt-1",
		EventName: stream.EventInsert,
		SourceARN: sourceARN,
		NewImage:  image,
	}
}

func TestScheduleCleanup(t *testing.T) {
	client := &stubClient{execID: "exec-456"}
	d := New(client, testConfig())

	scheduled, err := d.ScheduleCleanup(context.Background(), insertRecord(map[string]interface{}{
		"AccountId": "111111111111",
		"RoleName":  "Admin",
		"ttl":       "1700000000",
	}))
	if err != nil {
		t.Fatalf("ScheduleCleanup: %v", err)
	}
	if !scheduled {
		t.Fatal("ScheduleCleanup reported nothing scheduled")
	}
	if len(client.inputs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(client.inputs))
	}

	in := client.inputs[0]
	if got := aws.ToString(in.DocumentName); got != "cldeng-scp-exemption-cleanup-v1" {
		t.Errorf("DocumentName = %q", got)
	}
	if got := aws.ToString(in.DocumentVersion); got != "$DEFAULT" {
		t.Errorf("DocumentVersion = %q", got)
	}
	if in.Mode != types.ExecutionModeAuto {
		t.Errorf("Mode = %v", in.Mode)
	}
	if in.TargetLocations != nil {
		t.Errorf("cleanup must run untargeted, got %v", in.TargetLocations)
	}

	wantParams := map[string]string{
		"DynamoDBTableName":    "scp-exemptions",
		"WaitTimeStamp":        "2023-11-14T22:13:20Z",
		"PrimaryKey":           "111111111111",
		"SortKey":              "Admin",
		"automationAssumeRole": "arn:aws:iam::123456789012:role/assume",
	}
	for key, want := range wantParams {
		got := in.Parameters[key]
		if len(got) != 1 || got[0] != want {
			t.Errorf("Parameters[%s] = %v, want [%s]", key, got, want)
		}
	}
}

func TestScheduleCleanupNoTTL(t *testing.T) {
	cases := []struct {
		name  string
		image map[string]interface{}
	}{
		{
			name: "ttl absent",
			image: map[string]interface{}{
				"AccountId": "111111111111", "RoleName": "Admin",
			},
		},
		{
			name: "ttl empty",
			image: map[string]interface{}{
				"AccountId": "111111111111", "RoleName": "Admin", "ttl": "",
			},
		},
		{
			name: "ttl zero",
			image: map[string]interface{}{
				"AccountId": "111111111111", "RoleName": "Admin", "ttl": "0",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{execID: "exec-456"}
			d := New(client, testConfig())

			scheduled, err := d.ScheduleCleanup(context.Background(), insertRecord(tc.image))
			if err != nil {
				t.Fatalf("ScheduleCleanup: %v", err)
			}
			if scheduled {
				t.Error("scheduled cleanup without a usable ttl")
			}
			if len(client.inputs) != 0 {
				t.Errorf("submissions = %d, want 0", len(client.inputs))
			}
		})
	}
}

func TestScheduleCleanupFailures(t *testing.T) {
	cases := []struct {
		name   string
		image  map[string]interface{}
		arn    string
		client *stubClient
	}{
		{
			name: "bad ttl",
			image: map[string]interface{}{
				"AccountId": "111111111111", "RoleName": "Admin", "ttl": "soon",
			},
			arn:    sourceARN,
			client: &stubClient{execID: "x"},
		},
		{
			name: "missing role name",
			image: map[string]interface{}{
				"AccountId": "111111111111", "ttl": "1700000000",
			},
			arn:    sourceARN,
			client: &stubClient{execID: "x"},
		},
		{
			name: "malformed arn",
			image: map[string]interface{}{
				"AccountId": "111111111111", "RoleName": "Admin", "ttl": "1700000000",
			},
			arn:    "not-an-arn",
			client: &stubClient{execID: "x"},
		},
		{
			name: "client error is fatal",
			image: map[string]interface{}{
				"AccountId": "111111111111", "RoleName": "Admin", "ttl": "1700000000",
			},
			arn:    sourceARN,
			client: &stubClient{err: errors.New("permission denied")},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := New(tc.client, testConfig())
			rec := insertRecord(tc.image)
			rec.SourceARN = tc.arn

			scheduled, err := d.ScheduleCleanup(context.Background(), rec)
			if err == nil {
				t.Fatal("ScheduleCleanup did not fail")
			}
			if scheduled {
				t.Error("reported scheduled despite failure")
			}
		})
	}
}
