package fec

import (
	"errors"
	"sync"

	"github.com/klauspost/reedsolomon"
)

// ReedSolomonCoder wraps klauspost/reedsolomon, caching one Encoder per
// (dataShards, parityShards) pair the way the teacher's
// ReedSolomonFECScheme does (fec/reed_solomon_fec_scheme_test.go builds
// exactly this map key). Reed-Solomon needs every shard normalized to
// the same width, so both RepairSymbols and Recover zero-pad first.
type ReedSolomonCoder struct {
	mu      sync.Mutex
	schemes map[[2]int]reedsolomon.Encoder
}

var _ Coder = &ReedSolomonCoder{}

// NewReedSolomonCoder constructs an empty, cache-backed coder.
func NewReedSolomonCoder() *ReedSolomonCoder {
	return &ReedSolomonCoder{schemes: make(map[[2]int]reedsolomon.Encoder)}
}

func (c *ReedSolomonCoder) encoder(dataShards, parityShards int) (reedsolomon.Encoder, error) {
	key := [2]int{dataShards, parityShards}
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.schemes[key]; ok {
		return enc, nil
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	c.schemes[key] = enc
	return enc, nil
}

func (c *ReedSolomonCoder) RepairSymbols(sourceSymbols [][]byte, n int) ([][]byte, error) {
	if len(sourceSymbols) == 0 || n <= 0 {
		return nil, ErrNoSymbols
	}
	for _, s := range sourceSymbols {
		if s == nil {
			return nil, errors.New("fec: reed-solomon encoding requires every source symbol present")
		}
	}
	width := maxSymbolLength(sourceSymbols)
	shards := make([][]byte, len(sourceSymbols)+n)
	for i, s := range sourceSymbols {
		shards[i] = normalize(s, width)
	}
	for i := len(sourceSymbols); i < len(shards); i++ {
		shards[i] = make([]byte, width)
	}
	enc, err := c.encoder(len(sourceSymbols), n)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards[len(sourceSymbols):], nil
}

func (c *ReedSolomonCoder) Recover(sourceSymbols [][]byte, repairSymbols []*RepairSymbol, totalSource int) (map[int][]byte, error) {
	if totalSource == 0 || len(repairSymbols) == 0 {
		return nil, ErrCannotRecover
	}
	present := 0
	for i := 0; i < totalSource; i++ {
		if i < len(sourceSymbols) && sourceSymbols[i] != nil {
			present++
		}
	}
	if present+len(repairSymbols) < totalSource {
		return nil, ErrCannotRecover
	}

	width := maxSymbolLength(sourceSymbols)
	for _, r := range repairSymbols {
		if len(r.Data) > width {
			width = len(r.Data)
		}
	}

	numRepair := repairSymbols[0].NumberOfRepairSymbols
	if numRepair == 0 {
		numRepair = len(repairSymbols)
	}
	shards := make([][]byte, totalSource+numRepair)
	missing := make([]int, 0, totalSource)
	for i := 0; i < totalSource; i++ {
		if i < len(sourceSymbols) && sourceSymbols[i] != nil {
			shards[i] = normalize(sourceSymbols[i], width)
		} else {
			missing = append(missing, i)
		}
	}
	for _, r := range repairSymbols {
		idx := totalSource + int(r.SymbolNumber)
		if idx >= len(shards) {
			continue
		}
		shards[idx] = normalize(r.Data, width)
	}

	enc, err := c.encoder(totalSource, numRepair)
	if err != nil {
		return nil, err
	}
	if err := enc.Reconstruct(shards); err != nil {
		return nil, ErrCannotRecover
	}

	recovered := make(map[int][]byte, len(missing))
	for _, idx := range missing {
		recovered[idx] = shards[idx]
	}
	return recovered, nil
}
