// Package analysiscache stores analyzer events and keyframe lists in SQLite so
// repeated runs over the same input skip the decode pass.
//
// Entries are keyed by a Fingerprint of the input (absolute path, size,
// modification time) and the analyzer filter string. A changed file or filter
// misses the cache; changing min_drop or min_keep does not, because the
// builder replays the cached events.
package analysiscache
