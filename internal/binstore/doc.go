// Package binstore holds the authoritative in-memory set of trash bins.
//
// The store assigns identities from a monotonic counter that is never rewound, so ids are
// not reused after deletion. Records live in an insertion-ordered map: Snapshot and the
// first-match search in EditLocation both walk bins in creation order. A single mutex
// guards the map and the counter, so every operation is atomic to callers and a rejected
// mutation leaves state untouched. Nothing here performs I/O or knows about connections.
package binstore
