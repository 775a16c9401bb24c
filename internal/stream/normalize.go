package stream

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// Normalize converts a raw stream record into a Record with both images
// fully decoded.
func Normalize(raw events.DynamoDBEventRecord) (*Record, error) {
	newImage, err := NormalizeImage(raw.Change.NewImage)
	if err != nil {
		return nil, err
	}
	oldImage, err := NormalizeImage(raw.Change.OldImage)
	if err != nil {
		return nil, err
	}
	return &Record{
		EventID:   raw.EventID,
		EventName: raw.EventName,
		SourceARN: raw.EventSourceArn,
		NewImage:  newImage,
		OldImage:  oldImage,
	}, nil
}

// NormalizeImage decodes a full attribute map. A nil input stays nil so
// callers can tell "image absent" from "image empty".
func NormalizeImage(image map[string]events.DynamoDBAttributeValue) (map[string]interface{}, error) {
	if image == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(image))
	for k, av := range image {
		v, err := NormalizeValue(av)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// NormalizeValue decodes one type-tagged attribute value into a plain Go
// value, recursing into lists and maps. The union is switched on its
// explicit discriminant; numbers stay in string form so no precision is
// lost. An unrecognized marker is a decoding failure the caller must
// propagate.
func NormalizeValue(av events.DynamoDBAttributeValue) (interface{}, error) {
	switch av.DataType() {
	case events.DataTypeString:
		return av.String(), nil
	case events.DataTypeNumber:
		return av.Number(), nil
	case events.DataTypeBoolean:
		return av.Boolean(), nil
	case events.DataTypeNull:
		return nil, nil
	case events.DataTypeBinary:
		return av.Binary(), nil
	case events.DataTypeStringSet:
		return av.StringSet(), nil
	case events.DataTypeNumberSet:
		return av.NumberSet(), nil
	case events.DataTypeBinarySet:
		return av.BinarySet(), nil
	case events.DataTypeList:
		items := av.List()
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			v, err := NormalizeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case events.DataTypeMap:
		return NormalizeImage(av.Map())
	default:
		return nil, fmt.Errorf("stream: unsupported attribute type %v", av.DataType())
	}
}
