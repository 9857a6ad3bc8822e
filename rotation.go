package seam

import "fmt"

// RotationPolicy decides the effective rotation change when a transition
// carries several app targets that disagree.
type RotationPolicy uint8

const (
	// RotationMaxMagnitude picks the change with the largest absolute value.
	RotationMaxMagnitude RotationPolicy = iota
	// RotationFirstOpening picks the first opening target's change.
	RotationFirstOpening
)

// String returns the policy name used in configuration files.
func (p RotationPolicy) String() string {
	switch p {
	case RotationMaxMagnitude:
		return "max-magnitude"
	case RotationFirstOpening:
		return "first-opening"
	default:
		return fmt.Sprintf("RotationPolicy(%d)", uint8(p))
	}
}

// ParseRotationPolicy parses a policy name produced by String.
func ParseRotationPolicy(s string) (RotationPolicy, error) {
	switch s {
	case "", "max-magnitude":
		return RotationMaxMagnitude, nil
	case "first-opening":
		return RotationFirstOpening, nil
	}
	return 0, fmt.Errorf("seam: unknown rotation policy %q", s)
}

// Resolve returns the rotation change to apply for apps.
func (p RotationPolicy) Resolve(apps []WindowTarget) int {
	if p == RotationFirstOpening {
		for _, t := range apps {
			if t.Mode == ModeOpening {
				return t.RotationChange
			}
		}
		return 0
	}
	change := 0
	for _, t := range apps {
		if abs(t.RotationChange) > abs(change) {
			change = t.RotationChange
		}
	}
	return change
}

// normalizeRotation maps any quarter-turn count into [0, 3].
func normalizeRotation(delta int) int {
	return ((delta % 4) + 4) % 4
}

// RemapCrop moves crop to the origin and swaps its width and height when the
// rotation change is an odd number of quarter turns.
func RemapCrop(crop Rect, rotationChange int) Rect {
	crop = crop.OffsetTo(0, 0)
	if normalizeRotation(rotationChange)%2 == 1 {
		crop.Width, crop.Height = crop.Height, crop.Width
	}
	return crop
}

// RotateBounds rotates r inside a parent of size parentW x parentH by delta
// quarter turns.
func RotateBounds(r Rect, parentW, parentH float64, delta int) Rect {
	l, t, rt, b := r.X, r.Y, r.Right(), r.Bottom()
	switch normalizeRotation(delta) {
	case 1:
		return RectLTRB(t, parentW-rt, b, parentW-l)
	case 2:
		return RectLTRB(parentW-rt, parentH-b, parentW-l, parentH-t)
	case 3:
		return RectLTRB(parentH-b, l, parentH-t, rt)
	default:
		return r
	}
}

// rotatedTranslation expresses an unrotated translation in the coordinate
// space of a surface rotated by rotationChange quarter turns.
func rotatedTranslation(rotationChange int, tx, ty, scaledW, scaledH, screenW, screenH float64) (float64, float64) {
	switch normalizeRotation(rotationChange) {
	case 1:
		return ty, screenW - (tx + scaledW)
	case 2:
		return screenW - (tx + scaledW), screenH - (ty + scaledH)
	case 3:
		return screenH - (ty + scaledH), tx
	default:
		return tx, ty
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
