package fec

// RedundancyController sizes a block's source/repair symbol counts from
// observed loss behavior, adapted from the teacher's RedundancyController
// (redundancy_control.go); the congestion/ackhandler feedback arguments
// the teacher threads through are represented here as plain packet-number
// events, since congestion control itself is out of scope (§1).
type RedundancyController interface {
	OnPacketSent(pn int64, hasRepairFrame bool)
	OnPacketLost(pn int64)
	OnPacketReceived(pn int64, recovered bool)
	NumberOfSourceSymbols() int
	NumberOfRepairSymbols() int
}

// ConstantController always returns the same (k, r) pair, adapted from
// constant_redundancy_controller.go.
type ConstantController struct {
	SourceSymbols int
	RepairSymbols int
}

var _ RedundancyController = ConstantController{}

func (ConstantController) OnPacketSent(int64, bool)         {}
func (ConstantController) OnPacketLost(int64)                {}
func (ConstantController) OnPacketReceived(int64, bool)      {}
func (c ConstantController) NumberOfSourceSymbols() int      { return c.SourceSymbols }
func (c ConstantController) NumberOfRepairSymbols() int      { return c.RepairSymbols }
