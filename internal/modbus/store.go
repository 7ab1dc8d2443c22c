package modbus

import (
	"math"
	"slices"
	"sync"

	"github.com/berfenger/yasdi2mqtt/internal/core/domain"
)

// REGISTERS_PER_VALUE is the width of one float32 value.
const REGISTERS_PER_VALUE = 2

// RegisterStore keeps the last reading of every configured channel as input
// registers. Devices get a slot the first time one of their values is seen
// and keep it for the life of the process. Within a slot, channels follow the
// configured order.
type RegisterStore struct {
	mu       sync.RWMutex
	channels []string
	slots    map[uint32]int
	serials  []uint32
	regs     []uint16
}

func NewRegisterStore(channels []string) *RegisterStore {
	norm := make([]string, len(channels))
	for i, c := range channels {
		norm[i] = domain.NormalizeChannelName(c)
	}
	return &RegisterStore{
		channels: norm,
		slots:    make(map[uint32]int),
	}
}

// Update stores values. Failed reads and channels outside the configured list
// are ignored; a failed read leaves the previous value in place.
func (s *RegisterStore) Update(values []domain.ChannelValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		ch := slices.Index(s.channels, domain.NormalizeChannelName(v.Channel))
		if ch < 0 {
			continue
		}
		slot := s.slot(v.Serial)
		if !v.Valid() {
			continue
		}
		addr := s.address(slot, ch)
		bits := math.Float32bits(float32(v.Value))
		s.regs[addr] = uint16(bits >> 16)
		s.regs[addr+1] = uint16(bits)
	}
}

// Address returns the first register of a channel value.
func (s *RegisterStore) Address(serial uint32, channel string) (uint16, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[serial]
	if !ok {
		return 0, false
	}
	ch := slices.Index(s.channels, domain.NormalizeChannelName(channel))
	if ch < 0 {
		return 0, false
	}
	return uint16(s.address(slot, ch)), true
}

// Devices lists serial numbers in slot order.
func (s *RegisterStore) Devices() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.serials)
}

// Read copies quantity registers starting at addr. ok is false when the range
// leaves the allocated registers.
func (s *RegisterStore) Read(addr, quantity uint16) ([]uint16, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	end := int(addr) + int(quantity)
	if quantity == 0 || end > len(s.regs) {
		return nil, false
	}
	return slices.Clone(s.regs[addr:end]), true
}

func (s *RegisterStore) slot(serial uint32) int {
	if slot, ok := s.slots[serial]; ok {
		return slot
	}
	slot := len(s.serials)
	s.slots[serial] = slot
	s.serials = append(s.serials, serial)
	// unseen values read as NaN
	nan := math.Float32bits(float32(math.NaN()))
	for range s.channels {
		s.regs = append(s.regs, uint16(nan>>16), uint16(nan))
	}
	return slot
}

func (s *RegisterStore) address(slot, ch int) int {
	return (slot*len(s.channels) + ch) * REGISTERS_PER_VALUE
}
