package tracking

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrFilterNotInitialized is returned by Predict and Correct before Init.
	ErrFilterNotInitialized = errors.New("tracking: motion filter used before init")
	// ErrCorrectWithoutPredict is returned when Correct is not preceded by
	// Predict on the same step.
	ErrCorrectWithoutPredict = errors.New("tracking: correct called without predict")
	// ErrSingularInnovation is returned when the innovation covariance
	// cannot be inverted.
	ErrSingularInnovation = errors.New("tracking: singular innovation covariance")
	// ErrNonFiniteState is returned when a step produces NaN or Inf.
	ErrNonFiniteState = errors.New("tracking: non-finite filter state")
)

// FilterConfig holds the noise parameters of the motion filter.
type FilterConfig struct {
	ProcessNoisePos         float64 // Process noise on x, y (σ² per frame)
	ProcessNoiseVel         float64 // Process noise on vx, vy (σ² per frame)
	MeasurementNoise        float64 // Measurement noise on x, y (σ²)
	InitialPositionVariance float64 // Posterior covariance diagonal after Init
	InitialVelocityVariance float64
}

// DefaultFilterConfig returns the production noise parameters. Velocity is
// expected to change abruptly relative to position, and the visual tracker
// is trusted far more than the motion prediction.
//
// OpenCV's KalmanFilter starts from a zero posterior covariance, which
// leaves velocity at zero through the first correction. The non-zero
// initial variances here let the first correction estimate velocity and
// keep the covariance trace from growing while a target is tracked. Set
// both to 0 to get the OpenCV behaviour.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ProcessNoisePos:         1e-2,
		ProcessNoiseVel:         5.0,
		MeasurementNoise:        1e-1,
		InitialPositionVariance: 1.0,
		InitialVelocityVariance: 10.0,
	}
}

// MotionFilter is a constant-velocity Kalman filter over the state
// [x, y, vx, vy] with position-only measurements. One step is one frame.
//
// A MotionFilter is owned by a single session and is not safe for
// concurrent use.
type MotionFilter struct {
	cfg FilterConfig

	a *mat.Dense    // 4x4 transition
	h *mat.Dense    // 2x4 measurement
	q *mat.SymDense // 4x4 process noise
	r *mat.SymDense // 2x2 measurement noise

	x *mat.VecDense // state
	p *mat.Dense    // error covariance

	initialized bool
	predicted   bool
}

// NewMotionFilter builds an uninitialised filter; call Init before use.
func NewMotionFilter(cfg FilterConfig) *MotionFilter {
	// A = [1 0 1 0]
	//     [0 1 0 1]
	//     [0 0 1 0]
	//     [0 0 0 1]
	a := mat.NewDense(4, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	h := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	q := mat.NewSymDense(4, nil)
	q.SetSym(0, 0, cfg.ProcessNoisePos)
	q.SetSym(1, 1, cfg.ProcessNoisePos)
	q.SetSym(2, 2, cfg.ProcessNoiseVel)
	q.SetSym(3, 3, cfg.ProcessNoiseVel)

	r := mat.NewSymDense(2, nil)
	r.SetSym(0, 0, cfg.MeasurementNoise)
	r.SetSym(1, 1, cfg.MeasurementNoise)

	return &MotionFilter{cfg: cfg, a: a, h: h, q: q, r: r}
}

// Config returns the parameters the filter was built with.
func (f *MotionFilter) Config() FilterConfig {
	return f.cfg
}

// Init sets the posterior state to p with zero velocity and resets the
// covariance to the configured initial variances.
func (f *MotionFilter) Init(p Point) {
	f.x = mat.NewVecDense(4, []float64{p.X, p.Y, 0, 0})
	f.p = mat.NewDense(4, 4, nil)
	f.p.Set(0, 0, f.cfg.InitialPositionVariance)
	f.p.Set(1, 1, f.cfg.InitialPositionVariance)
	f.p.Set(2, 2, f.cfg.InitialVelocityVariance)
	f.p.Set(3, 3, f.cfg.InitialVelocityVariance)
	f.initialized = true
	f.predicted = false
}

// Predict advances the state one frame (x' = A·x, P' = A·P·Aᵗ + Q) and
// returns the predicted position. The prediction also becomes the
// posterior, so calling Predict repeatedly without Correct keeps
// extrapolating with the velocity frozen at the last correction.
func (f *MotionFilter) Predict() (Point, error) {
	if !f.initialized {
		return Point{}, ErrFilterNotInitialized
	}

	var x mat.VecDense
	x.MulVec(f.a, f.x)

	var ap, p mat.Dense
	ap.Mul(f.a, f.p)
	p.Mul(&ap, f.a.T())
	p.Add(&p, f.q)

	if !finiteVec(&x) || !finiteDense(&p) {
		return Point{}, ErrNonFiniteState
	}

	f.x = &x
	f.p = &p
	f.predicted = true
	return f.Position(), nil
}

// Correct folds a position measurement into the predicted state:
//
//	K = P'·Hᵗ·(H·P'·Hᵗ + R)⁻¹
//	x = x' + K·(z − H·x')
//	P = (I − K·H)·P'
//
// and returns the corrected position.
func (f *MotionFilter) Correct(z Point) (Point, error) {
	if !f.initialized {
		return Point{}, ErrFilterNotInitialized
	}
	if !f.predicted {
		return Point{}, ErrCorrectWithoutPredict
	}

	// Innovation covariance S = H·P'·Hᵗ + R
	var hp, s mat.Dense
	hp.Mul(f.h, f.p)
	s.Mul(&hp, f.h.T())
	s.Add(&s, f.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrSingularInnovation, err)
	}

	var pht, k mat.Dense
	pht.Mul(f.p, f.h.T())
	k.Mul(&pht, &sInv)

	// Innovation y = z − H·x'
	var hx, y mat.VecDense
	hx.MulVec(f.h, f.x)
	y.SubVec(mat.NewVecDense(2, []float64{z.X, z.Y}), &hx)

	var ky, x mat.VecDense
	ky.MulVec(&k, &y)
	x.AddVec(f.x, &ky)

	var kh, ikh, p mat.Dense
	kh.Mul(&k, f.h)
	ikh.Sub(identity4(), &kh)
	p.Mul(&ikh, f.p)

	if !finiteVec(&x) || !finiteDense(&p) {
		return Point{}, ErrNonFiniteState
	}

	f.x = &x
	f.p = &p
	f.predicted = false
	return f.Position(), nil
}

// Initialized reports whether Init has been called.
func (f *MotionFilter) Initialized() bool {
	return f.initialized
}

// Position returns the current position estimate.
func (f *MotionFilter) Position() Point {
	if f.x == nil {
		return Point{}
	}
	return Point{X: f.x.AtVec(0), Y: f.x.AtVec(1)}
}

// Velocity returns the current velocity estimate in pixels per frame.
func (f *MotionFilter) Velocity() Point {
	if f.x == nil {
		return Point{}
	}
	return Point{X: f.x.AtVec(2), Y: f.x.AtVec(3)}
}

// CovarianceTrace returns the trace of the error covariance.
func (f *MotionFilter) CovarianceTrace() float64 {
	if f.p == nil {
		return 0
	}
	return mat.Trace(f.p)
}

// Covariance returns a copy of the 4x4 error covariance.
func (f *MotionFilter) Covariance() *mat.Dense {
	if f.p == nil {
		return nil
	}
	return mat.DenseCopyOf(f.p)
}

func identity4() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

func finiteVec(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		if x := v.AtVec(i); math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func finiteDense(m *mat.Dense) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if x := m.At(i, j); math.IsNaN(x) || math.IsInf(x, 0) {
				return false
			}
		}
	}
	return true
}
