package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MemoryRepository keeps balances in process. It backs the service tests of
// packages that move value, which roll it back with Snapshot and Restore.
type MemoryRepository struct {
	mu       sync.Mutex
	accounts map[common.Address]models.Account
	entries  []models.LedgerEntry
	now      func() time.Time
}

// MemorySnapshot is a point-in-time copy of a MemoryRepository.
type MemorySnapshot struct {
	accounts map[common.Address]models.Account
	entries  int
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts: make(map[common.Address]models.Account),
		now:      time.Now,
	}
}

func (m *MemoryRepository) WithTx(_ *gorm.DB) Repository {
	return m
}

func (m *MemoryRepository) GetAccount(_ context.Context, address common.Address) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[address]
	if !ok {
		return nil, models.ErrRecordNotFound
	}
	return &account, nil
}

func (m *MemoryRepository) LockAccount(_ context.Context, address common.Address) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[address]
	if !ok {
		now := m.now()
		account = models.Account{Address: address, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
		m.accounts[address] = account
	}
	return &account, nil
}

func (m *MemoryRepository) SaveAccount(_ context.Context, account *models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *account
	stored.UpdatedAt = m.now()
	m.accounts[account.Address] = stored
	return nil
}

func (m *MemoryRepository) CreateEntries(_ context.Context, entries []*models.LedgerEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = m.now()
		m.entries = append(m.entries, *e)
	}
	return nil
}

func (m *MemoryRepository) ListEntries(_ context.Context, filter EntryFilter) ([]models.LedgerEntry, int64, error) {
	filter.normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.LedgerEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.Account != filter.Account {
			continue
		}
		if filter.OptionID != nil && (e.OptionID == nil || *e.OptionID != *filter.OptionID) {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		matched = append(matched, e)
	}

	total := int64(len(matched))
	start := filter.offset()
	if start >= len(matched) {
		return []models.LedgerEntry{}, total, nil
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// Set overwrites a balance without writing entries, for seeding fixtures.
func (m *MemoryRepository) Set(address common.Address, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[address] = models.Account{Address: address, Balance: balance}
}

// BalanceOf returns the stored balance, zero when unknown.
func (m *MemoryRepository) BalanceOf(address common.Address) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[address].Balance
}

// Total sums every balance. Transfers never change it.
func (m *MemoryRepository) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := decimal.Zero
	for _, a := range m.accounts {
		sum = sum.Add(a.Balance)
	}
	return sum
}

// Entries returns every recorded entry ordered by creation.
func (m *MemoryRepository) Entries() []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LedgerEntry, len(m.entries))
	copy(out, m.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryRepository) Snapshot() MemorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make(map[common.Address]models.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	return MemorySnapshot{accounts: accounts, entries: len(m.entries)}
}

func (m *MemoryRepository) Restore(s MemorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = s.accounts
	m.entries = m.entries[:s.entries]
}
