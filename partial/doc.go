// Package partial is the runtime half of partial-generator.
//
// Every type T that takes part in partial updates has a partial counterpart P
// and a Converter[T, P] that moves values between the two:
//   - IntoPartial: total, structural descent from T to P
//   - FromPartial: rebuilds T, failing with *MissingFields when P lacks data
//   - Merge: applies P onto an existing T in place
//
// Leaf types are their own partial. Containers map their elements:
// slices, sets and results are rebuilt wholesale on merge, maps are merged
// key by key, pointers merge the value they point to.
//
// Merge is not atomic. When a merge fails part way, every field applied
// before the failure stays applied on the destination.
package partial
