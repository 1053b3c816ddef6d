package geomodel

// Transform maps between world coordinates and a block model's local frame.
// Rotation is row-major 3x3 (world-from-local); Origin is the model origin in
// world coordinates. The same transform must be applied to block centroids and
// sample points before any containment comparison.
type Transform struct {
	Origin   [3]float64
	Rotation [9]float64
}

// IdentityTransform returns a transform whose local frame coincides with the
// world frame.
func IdentityTransform() Transform {
	return Transform{Rotation: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// ToLocal converts a world-space point into the model's local frame by
// removing the origin offset and applying the inverse (transposed) rotation.
func (t Transform) ToLocal(p [3]float64) [3]float64 {
	dx := p[0] - t.Origin[0]
	dy := p[1] - t.Origin[1]
	dz := p[2] - t.Origin[2]
	r := t.Rotation
	return [3]float64{
		r[0]*dx + r[3]*dy + r[6]*dz,
		r[1]*dx + r[4]*dy + r[7]*dz,
		r[2]*dx + r[5]*dy + r[8]*dz,
	}
}

// ToWorld converts a local-frame point back into world coordinates. It is the
// exact inverse of ToLocal for any orthonormal rotation.
func (t Transform) ToWorld(p [3]float64) [3]float64 {
	r := t.Rotation
	return [3]float64{
		r[0]*p[0] + r[1]*p[1] + r[2]*p[2] + t.Origin[0],
		r[3]*p[0] + r[4]*p[1] + r[5]*p[2] + t.Origin[1],
		r[6]*p[0] + r[7]*p[1] + r[8]*p[2] + t.Origin[2],
	}
}
