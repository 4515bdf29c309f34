// Package sholl owns the radial intersection profile of a traced structure.
//
// Responsibilities: center selection from primary paths, the crossing event
// index built from a flat segment list, continuous and fixed-step profile
// sampling, and per-voxel evaluation of the index into a labels volume.
// Key types: CrossingIndex, TreeParser, Profile, LabelsVolume.
//
// Dependency rule: this package consumes structures only through the
// Structure interface. File formats, persistence and plotting live in
// internal/swc, internal/db and internal/report respectively.
// No SQL or HTTP code is allowed in this package.
package sholl
