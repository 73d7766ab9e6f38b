// Package buffer holds the container: an in-memory, insertion-ordered
// sequence of monotonically tagged items whose removal policy depends on
// occupancy, plus the background sweep that expires items older than a TTL.
//
// Consume removes the oldest item while the container holds fewer than
// Threshold items (queue mode) and the newest item once it holds Threshold or
// more (stack mode). The policy is recomputed on every call.
//
// Expire removes the expired prefix from the head. Run drives Expire from a
// ticker until its context is cancelled.
package buffer
