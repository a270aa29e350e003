// Package feed turns GTFS-realtime feed messages into flat, sparse tables.
//
// Each entity is rendered to a tagged value tree (Scalar, Mapping or
// Sequence) using the schema's canonical JSON field names, then flattened
// into columns whose names join the path components with "_":
//
//	vehicle.position.latitude   -> vehicle_position_latitude
//	tripUpdate.stopTimeUpdate[0].stopId -> tripUpdate_stopTimeUpdate_0_stopId
//
// The tree itself is kept, serialized, in the reserved OriginalColumn so
// exports can rebuild every entity exactly.
package feed
