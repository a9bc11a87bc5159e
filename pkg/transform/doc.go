// Package transform models the 2-D coordinate transforms used to align
// overlapping image tiles into a shared montage space.
//
// # Overview
//
// Tilewarp stitches large microscopy mosaics by assigning every tile a
// chain of geometric transforms. This package provides the transform
// model itself: parametric leaves that map points, structural nodes that
// combine other transforms, point estimation, and the JSON interchange
// format shared with TrakEM2-style render services.
//
// # Basic Usage
//
// Construct leaves directly or fit them to point correspondences:
//
//	tr := transform.NewTranslation(120, -45)
//	moved, _ := tr.Apply([]transform.Point{{X: 1, Y: 2}})
//
//	fit, err := transform.FitAffine(srcPts, dstPts)
//
// Chains are evaluated with [ResolvePoints] and reduced to a single
// equivalent leaf with [Collapse].
//
// # Transform Kinds
//
// The affine family shares one parametric matrix and is distinguished by
// a [Kind] tag that controls fitting and serialization:
//
//   - [KindAffine]: six free parameters
//   - [KindTranslation]: offset only
//   - [KindRigid]: rotation plus offset
//   - [KindSimilarity]: uniform scale, rotation and offset
//
// [Polynomial] covers non-linear distortion with degree-n polynomials in
// x and y. Structural nodes compose other transforms: [List] applies its
// members in order, [Interpolated] blends two transforms point-wise, and
// [Reference] names a transform stored elsewhere. References must be
// materialized (see the store package) before points can flow through
// them.
//
// # Estimation
//
// [FitAffine], [FitTranslation], [FitRigid], [FitSimilarity] and
// [FitPolynomial] compute least-squares estimates from matched point
// sets. Rigid and similarity fits use the Umeyama closed form so the
// linear part stays a proper rotation. [Polynomial.Estimate] retries
// transient numeric failures and verifies the fit against the requested
// tolerance.
//
// # Interchange Format
//
// [Decode] and [Encode] convert between transform trees and the JSON
// wire format. Leaves carry a Java-style className plus a whitespace
// separated dataString; class names this package does not implement
// round-trip through [Unknown] without loss.
//
// # Concurrency
//
// Transform values are not safe for concurrent mutation. Treat them as
// immutable after construction and they can be shared freely across
// goroutines.
package transform
