package feed

import (
	"errors"
	"fmt"

	gtfsrt "github.com/OneBusAway/go-gtfs/proto"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ErrMalformed is returned when bytes do not decode as a GTFS-realtime
// FeedMessage. A bad entity fails the whole feed.
var ErrMalformed = errors.New("malformed GTFS-realtime feed")

// entityJSON renders entities with the schema's lowerCamelCase field names,
// enums by name and 64-bit integers as strings.
var entityJSON = protojson.MarshalOptions{}

// Decode parses a GTFS-realtime FeedMessage and flattens each entity into a
// record.
func Decode(raw []byte) (*RecordSet, error) {
	var msg gtfsrt.FeedMessage
	if err := proto.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return DecodeMessage(&msg)
}

// DecodeMessage flattens an already parsed FeedMessage.
func DecodeMessage(msg *gtfsrt.FeedMessage) (*RecordSet, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	}
	records := make([]Record, 0, len(msg.GetEntity()))
	for i, entity := range msg.GetEntity() {
		tree, err := EntityValue(entity)
		if err != nil {
			return nil, fmt.Errorf("%w: entity %d: %v", ErrMalformed, i, err)
		}
		record, err := recordFromValue(tree)
		if err != nil {
			return nil, fmt.Errorf("%w: entity %d: %v", ErrMalformed, i, err)
		}
		records = append(records, record)
	}
	return NewRecordSet(records), nil
}

// EntityValue converts one entity to its nested value form.
func EntityValue(entity *gtfsrt.FeedEntity) (Value, error) {
	b, err := entityJSON.Marshal(entity)
	if err != nil {
		return Value{}, err
	}
	return ParseJSON(b)
}

// recordFromValue flattens tree and stores tree itself, serialized, under
// the reserved column. Both come from the same value.
func recordFromValue(tree Value) (Record, error) {
	original, err := tree.MarshalJSON()
	if err != nil {
		return Record{}, err
	}
	return NewRecord(Flatten(tree), original), nil
}

// Reconstruct returns the nested value stored in a record's reserved column.
func Reconstruct(r Record) (Value, error) {
	if len(r.original) == 0 {
		return Value{}, errors.New("record has no original structure")
	}
	return ParseJSON(r.original)
}
