package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/cldeng/scp-exemption-trigger/internal/intent"
	"github.com/cldeng/scp-exemption-trigger/internal/stream"
)

// ScheduleCleanup submits the deferred cleanup automation for an INSERT
// record carrying a ttl. Records without a ttl schedule nothing and report
// false. The submission carries no target locations; the document runs
// untargeted. Unlike the exemption path every failure here is fatal —
// a silently missing cleanup is worse than stopping the batch.
func (d *Dispatcher) ScheduleCleanup(ctx context.Context, rec *stream.Record) (bool, error) {
	ttl := rec.NewImage[intent.FieldTTL]
	if !ttlSet(ttl) {
		return false, nil
	}

	waitTS, err := waitTimestamp(ttl)
	if err != nil {
		slog.Error("cleanup ttl unusable", "event_id", rec.EventID, "err", err)
		return false, err
	}
	tableName, err := rec.TableName()
	if err != nil {
		slog.Error("cleanup table name unavailable", "event_id", rec.EventID, "err", err)
		return false, err
	}

	// These were not presence-checked by the extractor's exemption gate,
	// so their absence here is a malformed record, not a skip.
	accountID, ok := rec.NewImage[intent.FieldAccountID].(string)
	if !ok {
		err := fmt.Errorf("automation: record %s has no usable %s", rec.EventID, intent.FieldAccountID)
		slog.Error("cleanup key missing", "event_id", rec.EventID, "err", err)
		return false, err
	}
	roleName, ok := rec.NewImage[intent.FieldRoleName].(string)
	if !ok {
		err := fmt.Errorf("automation: record %s has no usable %s", rec.EventID, intent.FieldRoleName)
		slog.Error("cleanup key missing", "event_id", rec.EventID, "err", err)
		return false, err
	}

	_, err = d.client.StartAutomationExecution(ctx, &ssm.StartAutomationExecutionInput{
		DocumentName:    aws.String(d.cfg.CleanupDocumentName),
		DocumentVersion: aws.String(documentVersion),
		Parameters: map[string][]string{
			"DynamoDBTableName":    {tableName},
			"WaitTimeStamp":        {waitTS},
			"PrimaryKey":           {accountID},
			"SortKey":              {roleName},
			"automationAssumeRole": {d.cfg.AutomationAssumeRole},
		},
		Mode: types.ExecutionModeAuto,
	})
	if err != nil {
		slog.Error("start cleanup automation failed",
			"event_id", rec.EventID, "code", errorCode(err), "err", err)
		return false, err
	}
	return true, nil
}

// ttlSet reports whether the ttl attribute carries a usable nonzero
// value. Absent, empty, and zero ttls gate cleanup off entirely; a
// present non-string value passes so the conversion below can reject it
// as malformed.
func ttlSet(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != "" && t != "0"
	default:
		return true
	}
}

// waitTimestamp converts a ttl attribute (epoch seconds, normalized to
// string form) into the UTC RFC3339 timestamp the cleanup document waits
// on.
func waitTimestamp(ttl interface{}) (string, error) {
	s, ok := ttl.(string)
	if !ok {
		return "", fmt.Errorf("automation: ttl is %T, want string", ttl)
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return "", fmt.Errorf("automation: ttl %q is not epoch seconds: %w", s, err)
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339), nil
}
