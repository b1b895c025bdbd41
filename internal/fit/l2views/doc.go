// Package l2views owns Layer 2 (Views) of the track-fitting data model.
//
// Responsibilities: projection of 3D hits into the two 2D fit views.
// In the R-Z plane a track from the luminous region is a straight line;
// in the X-Y plane it is a circle through the origin, which the conformal
// map (u, v) = (x, y)/r² turns into a straight line as well.
// Key types: ZR, UV, Point.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2views
