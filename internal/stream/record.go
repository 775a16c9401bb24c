package stream

import (
	"fmt"
	"strings"
)

// Event names delivered on a DynamoDB stream.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Record is the canonical input model: one table change with both images
// decoded into plain Go values. Images are nil when the stream did not
// deliver them (OldImage on INSERT, NewImage on REMOVE).
type Record struct {
	EventID   string
	EventName string
	SourceARN string
	NewImage  map[string]interface{}
	OldImage  map[string]interface{}
}

// TableName extracts the table name from the stream source ARN, which has
// the shape arn:aws:dynamodb:<region>:<account>:table/<name>/stream/<ts>.
func (r *Record) TableName() (string, error) {
	parts := strings.Split(r.SourceARN, "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("stream: no table name in source ARN %q", r.SourceARN)
	}
	return parts[1], nil
}
