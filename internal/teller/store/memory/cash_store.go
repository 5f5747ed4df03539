package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ksundaram/teller/internal/teller/store"
)

type CashStore struct {
	mu       sync.RWMutex
	machines map[string]store.MachineRecord
	notes    map[string]map[int64]int64 // machine id -> note value -> count
}

func NewCashStore(machines ...store.MachineRecord) *CashStore {
	s := &CashStore{
		machines: make(map[string]store.MachineRecord, len(machines)),
		notes:    make(map[string]map[int64]int64),
	}
	for _, m := range machines {
		s.machines[m.ID] = m
		s.notes[m.ID] = make(map[int64]int64)
	}
	return s
}

// SeedNotes loads an initial note mix and sets the machine's aggregate
// balance to match.  Test/dev helper.
func (s *CashStore) SeedNotes(machineID string, notes map[int64]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machines[machineID]
	drawer := s.notes[machineID]
	if drawer == nil {
		drawer = make(map[int64]int64)
		s.notes[machineID] = drawer
	}
	for value, count := range notes {
		drawer[value] += count
		m.CashBalance += value * count
	}
	s.machines[machineID] = m
}

func (s *CashStore) GetMachine(_ context.Context, machineID string) (store.MachineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.machines[machineID]
	if !ok {
		return store.MachineRecord{}, fmt.Errorf("%w: machine %s", store.ErrNotFound, machineID)
	}
	return m, nil
}

// SetOnline flips the machine's availability flag.  Test/dev helper.
func (s *CashStore) SetOnline(machineID string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.machines[machineID]
	m.Online = online
	s.machines[machineID] = m
}

func (s *CashStore) ListDenominations(_ context.Context, machineID string) ([]store.DenominationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	drawer, ok := s.notes[machineID]
	if !ok {
		return nil, fmt.Errorf("%w: machine %s", store.ErrNotFound, machineID)
	}
	out := make([]store.DenominationRecord, 0, len(drawer))
	for value, count := range drawer {
		out = append(out, store.DenominationRecord{MachineID: machineID, Value: value, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, nil
}

func (s *CashStore) ApplyDispense(_ context.Context, machineID string, allocation map[int64]int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[machineID]
	if !ok {
		return fmt.Errorf("%w: machine %s", store.ErrNotFound, machineID)
	}
	drawer := s.notes[machineID]
	for value, count := range allocation {
		if drawer[value] < count {
			return fmt.Errorf("dispense %d x %d from machine %s: insufficient notes", count, value, machineID)
		}
	}
	for value, count := range allocation {
		drawer[value] -= count
	}
	m.CashBalance -= amount
	s.machines[machineID] = m
	return nil
}

func (s *CashStore) ApplyDeposit(_ context.Context, machineID string, notes map[int64]int64, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[machineID]
	if !ok {
		return fmt.Errorf("%w: machine %s", store.ErrNotFound, machineID)
	}
	drawer := s.notes[machineID]
	if drawer == nil {
		drawer = make(map[int64]int64)
		s.notes[machineID] = drawer
	}
	for value, count := range notes {
		drawer[value] += count
	}
	m.CashBalance += amount
	s.machines[machineID] = m
	return nil
}
