package cuvslam

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Rotation is a 3x3 rotation matrix stored column-major, matching the
// native layout.
type Rotation [9]float64

// IdentityRotation returns the identity rotation.
func IdentityRotation() Rotation {
	return Rotation{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// At returns the element at row i, column j.
func (r Rotation) At(i, j int) float64 {
	return r[j*3+i]
}

// Mat returns the rotation as a freshly allocated gonum dense matrix in
// row-major convention.
func (r Rotation) Mat() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, r.At(i, j))
		}
	}
	return m
}

// Quaternion converts the rotation to a unit quaternion.
func (r Rotation) Quaternion() quat.Number {
	m00, m01, m02 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m10, m11, m12 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	m20, m21, m22 := r.At(2, 0), r.At(2, 1), r.At(2, 2)
	tr := m00 + m11 + m22
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		return quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		return quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		return quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		return quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}
}

// Pose is a rigid transform: a rotation plus a translation in meters.
type Pose struct {
	Rotation    Rotation
	Translation r3.Vector
}

// NewPose returns a pose with the given rotation and translation.
func NewPose(rotation Rotation, translation r3.Vector) Pose {
	return Pose{Rotation: rotation, Translation: translation}
}

// IdentityPose returns the identity transform.
func IdentityPose() Pose {
	return Pose{Rotation: IdentityRotation()}
}

// PoseEstimate is the result of one successful Track call. It is caller
// owned; the engine keeps no reference to it.
type PoseEstimate struct {
	Pose        Pose
	TimestampNs int64
	// Covariance is row-major over (rot_x, rot_y, rot_z, x, y, z).
	Covariance [36]float64
}

// CovarianceMatrix returns the 6x6 covariance as a freshly allocated gonum
// matrix; mutating it does not touch the estimate.
func (pe *PoseEstimate) CovarianceMatrix() *mat.Dense {
	data := make([]float64, len(pe.Covariance))
	copy(data, pe.Covariance[:])
	return mat.NewDense(6, 6, data)
}
