package fec

import (
	"math"
	"sync"

	"github.com/atgjack/prob"
)

// DelaySensitiveController adapts the repair-symbol count to a running
// estimate of the loss probability, modeled as a Normal distribution
// over recent inter-loss distances — the same modeling tool the teacher
// reaches for in its traffic generator (traffic-gen/traffic-gen.go builds
// a prob.Distribution to script loss injection); here the same
// distribution estimates rather than injects loss, following
// delay_sensitive_redundancy_controller.go's intent of keeping repair
// overhead proportional to observed burstiness instead of fixed.
type DelaySensitiveController struct {
	mu sync.Mutex

	maxSourceSymbols int
	maxRepairSymbols int

	lastLost      int64
	haveLastLost  bool
	sampleCount   int
	meanDistance  float64
	varDistance   float64
}

var _ RedundancyController = &DelaySensitiveController{}

// NewDelaySensitiveController seeds the controller with the widest block
// shape it is allowed to use.
func NewDelaySensitiveController(maxSourceSymbols, maxRepairSymbols int) *DelaySensitiveController {
	return &DelaySensitiveController{
		maxSourceSymbols: maxSourceSymbols,
		maxRepairSymbols: maxRepairSymbols,
		meanDistance:     float64(maxSourceSymbols),
	}
}

func (c *DelaySensitiveController) OnPacketSent(int64, bool) {}

func (c *DelaySensitiveController) OnPacketLost(pn int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveLastLost {
		distance := float64(pn - c.lastLost)
		c.sampleCount++
		delta := distance - c.meanDistance
		c.meanDistance += delta / float64(c.sampleCount)
		c.varDistance += delta * (distance - c.meanDistance)
	}
	c.lastLost = pn
	c.haveLastLost = true
}

func (c *DelaySensitiveController) OnPacketReceived(int64, bool) {}

// lossDistribution builds the Normal(meanDistance, stddev) model of
// inter-loss distances observed so far, mirroring how the teacher
// constructs a prob.Distribution from measured parameters rather than
// fixed constants.
func (c *DelaySensitiveController) lossDistribution() (prob.Normal, bool) {
	if c.sampleCount < 2 {
		return prob.Normal{}, false
	}
	variance := c.varDistance / float64(c.sampleCount-1)
	if variance <= 0 {
		variance = 1
	}
	dist, err := prob.NewNormal(c.meanDistance, math.Sqrt(variance))
	if err != nil {
		return prob.Normal{}, false
	}
	return dist, true
}

func (c *DelaySensitiveController) NumberOfSourceSymbols() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := int(c.meanDistance)
	if n < 1 {
		n = 1
	}
	if n > c.maxSourceSymbols {
		n = c.maxSourceSymbols
	}
	return n
}

func (c *DelaySensitiveController) NumberOfRepairSymbols() int {
	c.mu.Lock()
	dist, ok := c.lossDistribution()
	c.mu.Unlock()
	if !ok {
		return 1
	}
	// 1 - CDF(mean - stddev), the probability that an inter-loss
	// distance exceeds one standard deviation below the mean, scales
	// the repair-symbol count.
	risk := 1 - dist.Cdf(dist.Mu-dist.Sigma)
	n := int(risk*float64(c.maxRepairSymbols)) + 1
	if n > c.maxRepairSymbols {
		n = c.maxRepairSymbols
	}
	return n
}
