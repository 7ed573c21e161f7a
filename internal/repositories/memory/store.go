// Package memory is a process-local implementation of every repository port,
// used by STORAGE_DRIVER=memory and by service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	"github.com/uqar-pharmacy/moneybox/internal/utils/pagination"
)

type state struct {
	boxes        map[string]domain.MoneyBox
	boxByPharm   map[string]string
	transactions map[string]domain.Transaction
	txnOrder     []string
	rates        map[string]domain.ExchangeRate
	debts        map[string]domain.CustomerDebt
}

func newState() *state {
	return &state{
		boxes:        make(map[string]domain.MoneyBox),
		boxByPharm:   make(map[string]string),
		transactions: make(map[string]domain.Transaction),
		rates:        make(map[string]domain.ExchangeRate),
		debts:        make(map[string]domain.CustomerDebt),
	}
}

// clone copies the maps. Stored values are replaced, never mutated in place,
// so a shallow copy is enough.
func (s *state) clone() *state {
	c := &state{
		boxes:        make(map[string]domain.MoneyBox, len(s.boxes)),
		boxByPharm:   make(map[string]string, len(s.boxByPharm)),
		transactions: make(map[string]domain.Transaction, len(s.transactions)),
		txnOrder:     append([]string(nil), s.txnOrder...),
		rates:        make(map[string]domain.ExchangeRate, len(s.rates)),
		debts:        make(map[string]domain.CustomerDebt, len(s.debts)),
	}
	for k, v := range s.boxes {
		c.boxes[k] = v
	}
	for k, v := range s.boxByPharm {
		c.boxByPharm[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.rates {
		c.rates[k] = v
	}
	for k, v := range s.debts {
		c.debts[k] = v
	}
	return c
}

// Store holds all data behind one mutex. A unit of work runs on a copy of the
// state that replaces the live one only when the unit succeeds.
type Store struct {
	mu sync.RWMutex
	st *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

var (
	_ portsrepo.MoneyBoxRepositoryFacade     = (*Store)(nil)
	_ portsrepo.TransactionRepositoryFacade  = (*Store)(nil)
	_ portsrepo.ExchangeRateRepositoryFacade = (*Store)(nil)
	_ portsrepo.CustomerDebtRepositoryFacade = (*Store)(nil)
)

// NewRepositoryProvider exposes the store through every repository port.
func NewRepositoryProvider(store *Store) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		MoneyBoxRepo:     store,
		TransactionRepo:  store,
		ExchangeRateRepo: store,
		DebtRepo:         store,
	}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// unit runs fn against a copy of the state and publishes the copy on success.
func (s *Store) unit(ctx context.Context, fn func(t *memTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// --- money boxes ---

func (s *Store) FindMoneyBoxByID(_ context.Context, moneyBoxID string) (*domain.MoneyBox, error) {
	var box *domain.MoneyBox
	s.read(func(st *state) {
		if b, ok := st.boxes[moneyBoxID]; ok {
			box = &b
		}
	})
	if box == nil {
		return nil, apperrors.NewNotFoundError("money box " + moneyBoxID)
	}
	return box, nil
}

func (s *Store) FindMoneyBoxByPharmacyID(ctx context.Context, pharmacyID string) (*domain.MoneyBox, error) {
	var id string
	s.read(func(st *state) { id = st.boxByPharm[pharmacyID] })
	if id == "" {
		return nil, apperrors.NewNotFoundError("money box for pharmacy " + pharmacyID)
	}
	return s.FindMoneyBoxByID(ctx, id)
}

func insertBox(st *state, box domain.MoneyBox) error {
	if _, ok := st.boxByPharm[box.PharmacyID]; ok {
		return fmt.Errorf("%w: money box for pharmacy %s already exists", apperrors.ErrDuplicate, box.PharmacyID)
	}
	if _, ok := st.boxes[box.MoneyBoxID]; ok {
		return fmt.Errorf("%w: money box %s already exists", apperrors.ErrDuplicate, box.MoneyBoxID)
	}
	st.boxes[box.MoneyBoxID] = box
	st.boxByPharm[box.PharmacyID] = box.MoneyBoxID
	return nil
}

func (s *Store) SaveMoneyBox(_ context.Context, box domain.MoneyBox) error {
	return s.write(func(st *state) error { return insertBox(st, box) })
}

func updateBox(st *state, moneyBoxID string, fn func(b *domain.MoneyBox)) error {
	b, ok := st.boxes[moneyBoxID]
	if !ok {
		return apperrors.NewNotFoundError("money box " + moneyBoxID)
	}
	fn(&b)
	st.boxes[moneyBoxID] = b
	return nil
}

func (s *Store) UpdateMoneyBoxStatus(_ context.Context, moneyBoxID string, status domain.MoneyBoxStatus, userID string, now time.Time) error {
	return s.write(func(st *state) error {
		return updateBox(st, moneyBoxID, func(b *domain.MoneyBox) {
			b.Status = status
			b.Touch(userID, now)
		})
	})
}

func (s *Store) UpdateReconciliation(_ context.Context, moneyBoxID string, reconciled decimal.Decimal, userID string, now time.Time) error {
	return s.write(func(st *state) error {
		return updateBox(st, moneyBoxID, func(b *domain.MoneyBox) {
			b.ReconciledBalance = &reconciled
			at := now
			b.LastReconciled = &at
			b.Touch(userID, now)
		})
	})
}

func (s *Store) RunInLedgerTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return s.unit(ctx, func(t *memTx) error { return fn(ctx, t) })
}

// --- transactions ---

func saveTransaction(st *state, txn domain.Transaction) error {
	if _, ok := st.transactions[txn.TransactionID]; ok {
		return fmt.Errorf("%w: transaction %s already exists", apperrors.ErrDuplicate, txn.TransactionID)
	}
	if _, ok := st.boxes[txn.MoneyBoxID]; !ok {
		return apperrors.NewNotFoundError("money box " + txn.MoneyBoxID)
	}
	st.transactions[txn.TransactionID] = txn
	st.txnOrder = append(st.txnOrder, txn.TransactionID)
	return nil
}

func (s *Store) SaveTransaction(_ context.Context, txn domain.Transaction) error {
	return s.write(func(st *state) error { return saveTransaction(st, txn) })
}

func (s *Store) FindTransactionByID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	var txn *domain.Transaction
	s.read(func(st *state) {
		if t, ok := st.transactions[transactionID]; ok {
			txn = &t
		}
	})
	if txn == nil {
		return nil, apperrors.NewNotFoundError("transaction " + transactionID)
	}
	return txn, nil
}

func (s *Store) boxTransactions(moneyBoxID string, keep func(domain.Transaction) bool) []domain.Transaction {
	var out []domain.Transaction
	s.read(func(st *state) {
		for _, id := range st.txnOrder {
			t := st.transactions[id]
			if t.MoneyBoxID == moneyBoxID && keep(t) {
				out = append(out, t)
			}
		}
	})
	return out
}

// newer orders by (created_at, id) descending.
func newer(a, b domain.Transaction) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.TransactionID > b.TransactionID
}

func (s *Store) ListTransactions(_ context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	var cursor *domain.Transaction
	if nextToken != nil && *nextToken != "" {
		createdAt, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		cursor = &domain.Transaction{CreatedAt: createdAt, TransactionID: id}
	}

	txns := s.boxTransactions(filter.MoneyBoxID, func(t domain.Transaction) bool {
		switch {
		case filter.Type != "" && t.TransactionType != filter.Type:
			return false
		case filter.Status != "" && t.OperationStatus != filter.Status:
			return false
		case filter.From != nil && t.CreatedAt.Before(*filter.From):
			return false
		case filter.To != nil && !t.CreatedAt.Before(*filter.To):
			return false
		case cursor != nil && !newer(*cursor, t):
			return false
		}
		return true
	})
	sort.Slice(txns, func(i, j int) bool { return newer(txns[i], txns[j]) })

	var next *string
	if limit > 0 && len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		next = &token
	}
	return txns, next, nil
}

func (s *Store) ListTransactionsByReference(_ context.Context, moneyBoxID, referenceType, referenceID string) ([]domain.Transaction, error) {
	txns := s.boxTransactions(moneyBoxID, func(t domain.Transaction) bool {
		return t.ReferenceType == referenceType && t.ReferenceID == referenceID
	})
	sort.SliceStable(txns, func(i, j int) bool { return newer(txns[j], txns[i]) })
	return txns, nil
}

func (s *Store) ListTransactionsInPeriod(_ context.Context, moneyBoxID string, status domain.OperationStatus, from, to time.Time) ([]domain.Transaction, error) {
	txns := s.boxTransactions(moneyBoxID, func(t domain.Transaction) bool {
		if status != "" && t.OperationStatus != status {
			return false
		}
		return !t.CreatedAt.Before(from) && t.CreatedAt.Before(to)
	})
	sort.SliceStable(txns, func(i, j int) bool { return newer(txns[j], txns[i]) })
	return txns, nil
}

func (s *Store) SummarizeTransactions(_ context.Context, moneyBoxID string, from, to time.Time) ([]domain.TransactionTotal, error) {
	type key struct {
		t domain.TransactionType
		s domain.OperationStatus
		c string
	}
	buckets := make(map[key]*domain.TransactionTotal)
	var keys []key
	for _, t := range s.boxTransactions(moneyBoxID, func(t domain.Transaction) bool {
		return !t.CreatedAt.Before(from) && t.CreatedAt.Before(to)
	}) {
		k := key{t.TransactionType, t.OperationStatus, t.OriginalCurrency}
		b, ok := buckets[k]
		if !ok {
			b = &domain.TransactionTotal{
				TransactionType:  k.t,
				OperationStatus:  k.s,
				OriginalCurrency: k.c,
				Inflow:           decimal.Zero,
				Outflow:          decimal.Zero,
				OriginalAmount:   decimal.Zero,
			}
			buckets[k] = b
			keys = append(keys, k)
		}
		b.Count++
		if t.Amount.IsPositive() {
			b.Inflow = b.Inflow.Add(t.Amount)
		} else {
			b.Outflow = b.Outflow.Add(t.Amount)
		}
		b.OriginalAmount = b.OriginalAmount.Add(t.OriginalAmount)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].t != keys[j].t {
			return keys[i].t < keys[j].t
		}
		if keys[i].s != keys[j].s {
			return keys[i].s < keys[j].s
		}
		return keys[i].c < keys[j].c
	})
	out := make([]domain.TransactionTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, *buckets[k])
	}
	return out, nil
}

// --- exchange rates ---

func (s *Store) FindActiveRate(_ context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error) {
	var rate *domain.ExchangeRate
	s.read(func(st *state) { rate = activeRate(st, fromCurrencyCode, toCurrencyCode) })
	if rate == nil {
		return nil, apperrors.NewNotFoundError("exchange rate " + fromCurrencyCode + "/" + toCurrencyCode)
	}
	return rate, nil
}

func activeRate(st *state, from, to string) *domain.ExchangeRate {
	for _, r := range st.rates {
		if r.IsActive && r.FromCurrencyCode == from && r.ToCurrencyCode == to {
			return &r
		}
	}
	return nil
}

func (s *Store) FindRateByID(_ context.Context, rateID string) (*domain.ExchangeRate, error) {
	var rate *domain.ExchangeRate
	s.read(func(st *state) {
		if r, ok := st.rates[rateID]; ok {
			rate = &r
		}
	})
	if rate == nil {
		return nil, apperrors.NewNotFoundError("exchange rate " + rateID)
	}
	return rate, nil
}

func (s *Store) ListActiveRates(_ context.Context) ([]domain.ExchangeRate, error) {
	var out []domain.ExchangeRate
	s.read(func(st *state) {
		for _, r := range st.rates {
			if r.IsActive {
				out = append(out, r)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].FromCurrencyCode != out[j].FromCurrencyCode {
			return out[i].FromCurrencyCode < out[j].FromCurrencyCode
		}
		return out[i].ToCurrencyCode < out[j].ToCurrencyCode
	})
	return out, nil
}

func (s *Store) ListRateHistory(_ context.Context, fromCurrencyCode, toCurrencyCode string) ([]domain.ExchangeRate, error) {
	var out []domain.ExchangeRate
	s.read(func(st *state) {
		for _, r := range st.rates {
			if r.FromCurrencyCode == fromCurrencyCode && r.ToCurrencyCode == toCurrencyCode {
				out = append(out, r)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EffectiveFrom.Equal(out[j].EffectiveFrom) {
			return out[i].EffectiveFrom.After(out[j].EffectiveFrom)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) RunInRateTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.ExchangeRateTx) error) error {
	return s.unit(ctx, func(t *memTx) error { return fn(ctx, t) })
}

// --- customer debts ---

func (s *Store) FindDebtByID(_ context.Context, debtID string) (*domain.CustomerDebt, error) {
	var debt *domain.CustomerDebt
	s.read(func(st *state) {
		if d, ok := st.debts[debtID]; ok {
			debt = &d
		}
	})
	if debt == nil {
		return nil, apperrors.NewNotFoundError("customer debt " + debtID)
	}
	return debt, nil
}

func oldestFirst(debts []domain.CustomerDebt) {
	sort.Slice(debts, func(i, j int) bool {
		if !debts[i].CreatedAt.Equal(debts[j].CreatedAt) {
			return debts[i].CreatedAt.Before(debts[j].CreatedAt)
		}
		return debts[i].DebtID < debts[j].DebtID
	})
}

func customerDebts(st *state, pharmacyID, customerID string, keep func(domain.CustomerDebt) bool) []domain.CustomerDebt {
	var out []domain.CustomerDebt
	for _, d := range st.debts {
		if d.PharmacyID == pharmacyID && d.CustomerID == customerID && keep(d) {
			out = append(out, d)
		}
	}
	oldestFirst(out)
	return out
}

func (s *Store) ListDebtsByCustomer(_ context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error) {
	var out []domain.CustomerDebt
	s.read(func(st *state) {
		out = customerDebts(st, pharmacyID, customerID, func(domain.CustomerDebt) bool { return true })
	})
	return out, nil
}

func (s *Store) ListOverdueDebts(_ context.Context, pharmacyID string, asOf time.Time) ([]domain.CustomerDebt, error) {
	var out []domain.CustomerDebt
	s.read(func(st *state) {
		for _, d := range st.debts {
			if d.PharmacyID == pharmacyID && d.IsOverdue(asOf) {
				out = append(out, d)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].DebtID < out[j].DebtID
	})
	return out, nil
}

func (s *Store) SummarizeDebts(_ context.Context, pharmacyID string) ([]domain.DebtStatusTotal, error) {
	buckets := make(map[domain.DebtStatus]*domain.DebtStatusTotal)
	s.read(func(st *state) {
		for _, d := range st.debts {
			if d.PharmacyID != pharmacyID {
				continue
			}
			b, ok := buckets[d.Status]
			if !ok {
				b = &domain.DebtStatusTotal{Status: d.Status, Amount: decimal.Zero, PaidAmount: decimal.Zero, RemainingAmount: decimal.Zero}
				buckets[d.Status] = b
			}
			b.Count++
			b.Amount = b.Amount.Add(d.Amount)
			b.PaidAmount = b.PaidAmount.Add(d.PaidAmount)
			b.RemainingAmount = b.RemainingAmount.Add(d.RemainingAmount)
		}
	})
	out := make([]domain.DebtStatusTotal, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (s *Store) SaveDebt(_ context.Context, debt domain.CustomerDebt) error {
	return s.write(func(st *state) error {
		if _, ok := st.debts[debt.DebtID]; ok {
			return fmt.Errorf("%w: customer debt %s already exists", apperrors.ErrDuplicate, debt.DebtID)
		}
		st.debts[debt.DebtID] = debt
		return nil
	})
}

func (s *Store) RunInDebtTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.DebtTx) error) error {
	return s.unit(ctx, func(t *memTx) error { return fn(ctx, t) })
}

// memTx is the handle of every unit of work. The whole store is held for the
// duration of the unit, so "locking" is a plain read.
type memTx struct {
	st *state
}

func (t *memTx) InsertMoneyBox(_ context.Context, box domain.MoneyBox) error {
	return insertBox(t.st, box)
}

func (t *memTx) LockMoneyBox(_ context.Context, moneyBoxID string) (*domain.MoneyBox, error) {
	b, ok := t.st.boxes[moneyBoxID]
	if !ok {
		return nil, apperrors.NewNotFoundError("money box " + moneyBoxID)
	}
	return &b, nil
}

func (t *memTx) UpdateMoneyBoxBalance(_ context.Context, moneyBoxID string, balance decimal.Decimal, userID string, now time.Time) error {
	return updateBox(t.st, moneyBoxID, func(b *domain.MoneyBox) {
		b.CurrentBalance = balance
		b.Touch(userID, now)
	})
}

func (t *memTx) SaveTransaction(_ context.Context, txn domain.Transaction) error {
	return saveTransaction(t.st, txn)
}

func (t *memTx) DeactivateActiveRate(_ context.Context, fromCurrencyCode, toCurrencyCode string, userID string, now time.Time) (*domain.ExchangeRate, error) {
	r := activeRate(t.st, fromCurrencyCode, toCurrencyCode)
	if r == nil {
		return nil, nil
	}
	closed := now
	r.IsActive = false
	r.EffectiveTo = &closed
	r.Touch(userID, now)
	t.st.rates[r.ExchangeRateID] = *r
	return r, nil
}

func (t *memTx) SaveExchangeRate(_ context.Context, rate domain.ExchangeRate) error {
	if _, ok := t.st.rates[rate.ExchangeRateID]; ok {
		return fmt.Errorf("%w: exchange rate %s already exists", apperrors.ErrDuplicate, rate.ExchangeRateID)
	}
	if rate.IsActive && activeRate(t.st, rate.FromCurrencyCode, rate.ToCurrencyCode) != nil {
		return fmt.Errorf("%w: an active rate for %s/%s already exists", apperrors.ErrDuplicate, rate.FromCurrencyCode, rate.ToCurrencyCode)
	}
	t.st.rates[rate.ExchangeRateID] = rate
	return nil
}

func (t *memTx) LockDebt(_ context.Context, debtID string) (*domain.CustomerDebt, error) {
	d, ok := t.st.debts[debtID]
	if !ok {
		return nil, apperrors.NewNotFoundError("customer debt " + debtID)
	}
	return &d, nil
}

func (t *memTx) LockActiveDebtsByCustomer(_ context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error) {
	return customerDebts(t.st, pharmacyID, customerID, func(d domain.CustomerDebt) bool {
		return d.Status == domain.DebtActive
	}), nil
}

func (t *memTx) UpdateDebtPayment(_ context.Context, debt domain.CustomerDebt) error {
	if _, ok := t.st.debts[debt.DebtID]; !ok {
		return apperrors.NewNotFoundError("customer debt " + debt.DebtID)
	}
	t.st.debts[debt.DebtID] = debt
	return nil
}

func (t *memTx) DeleteDebt(_ context.Context, debtID string) error {
	if _, ok := t.st.debts[debtID]; !ok {
		return apperrors.NewNotFoundError("customer debt " + debtID)
	}
	delete(t.st.debts, debtID)
	return nil
}
