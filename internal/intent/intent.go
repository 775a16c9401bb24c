package intent

import (
	"fmt"

	"github.com/cldeng/scp-exemption-trigger/internal/stream"
)

// Exemption table fields consulted by the extractor.
const (
	FieldAccountID = "AccountId"
	FieldRoleName  = "RoleName"
	FieldTagKeys   = "ExemptionTagKeys"
	FieldTTL       = "ttl"
)

// Tag directions passed to the automation document.
const (
	DirectionTag   = "Tag"
	DirectionUntag = "Untag"
)

// Request describes one exemption automation to start. It is built fresh
// per record and handed straight to the dispatcher.
type Request struct {
	AccountID  string
	Parameters map[string][]string
}

// Extract maps a normalized record to zero or one exemption requests.
// INSERT reads the new image and tags; REMOVE reads the old image and
// untags; MODIFY is deliberately ignored. A nil Request with a nil error
// means the record carries no actionable intent.
func Extract(rec *stream.Record, assumeRole string) (*Request, error) {
	var image map[string]interface{}
	var direction string

	switch rec.EventName {
	case stream.EventInsert:
		if rec.NewImage == nil {
			return nil, fmt.Errorf("intent: %s record %s delivered no new image", rec.EventName, rec.EventID)
		}
		image, direction = rec.NewImage, DirectionTag
	case stream.EventRemove:
		if rec.OldImage == nil {
			return nil, fmt.Errorf("intent: %s record %s delivered no old image", rec.EventName, rec.EventID)
		}
		image, direction = rec.OldImage, DirectionUntag
	default:
		return nil, nil
	}

	if !hasAll(image, FieldAccountID, FieldRoleName, FieldTagKeys) {
		return nil, nil
	}

	// Presence is established; a type mismatch past this point means the
	// record is structurally malformed and the batch must stop.
	accountID, err := stringField(image, FieldAccountID)
	if err != nil {
		return nil, err
	}
	roleName, err := stringField(image, FieldRoleName)
	if err != nil {
		return nil, err
	}
	tagKeys, err := stringListField(image, FieldTagKeys)
	if err != nil {
		return nil, err
	}

	return &Request{
		AccountID: accountID,
		Parameters: map[string][]string{
			"RoleName":             {roleName},
			"ExemptionTagKeys":     tagKeys,
			"TagUntag":             {direction},
			"automationAssumeRole": {assumeRole},
		},
	}, nil
}

// hasAll reports whether every key holds a non-empty value.
func hasAll(image map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if !present(image[k]) {
			return false
		}
	}
	return true
}

func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	default:
		return true
	}
}

func stringField(image map[string]interface{}, key string) (string, error) {
	s, ok := image[key].(string)
	if !ok {
		return "", fmt.Errorf("intent: field %s is %T, want string", key, image[key])
	}
	return s, nil
}

func stringListField(image map[string]interface{}, key string) ([]string, error) {
	switch t := image[key].(type) {
	case []string:
		return t, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, v := range t {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("intent: field %s contains %T, want string", key, v)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("intent: field %s is %T, want string list", key, image[key])
	}
}
