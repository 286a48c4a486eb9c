package reservations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dentbook/clinic/services/booking-service/internal/model"
	"github.com/dentbook/clinic/services/booking-service/internal/notify"
	"github.com/dentbook/clinic/services/booking-service/internal/storage"
)

// memStore serialises transactions behind one mutex and applies a
// transaction's writes only when fn succeeds, which is enough to model row
// locks plus rollback for the workflow tests.
type memStore struct {
	mu           sync.Mutex
	slots        map[int64]model.TimeSlot
	reservations map[int64]model.Reservation
	nextResID    int64

	txErr      error
	failInsert error
	txCalls    int
}

func newMemStore(slots ...model.TimeSlot) *memStore {
	s := &memStore{
		slots:        map[int64]model.TimeSlot{},
		reservations: map[int64]model.Reservation{},
	}
	for _, slot := range slots {
		s.slots[slot.ID] = slot
	}
	return s
}

func (s *memStore) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCalls++
	if s.txErr != nil {
		return s.txErr
	}

	tx := &memTx{
		store:        s,
		slots:        map[int64]model.TimeSlot{},
		reservations: map[int64]model.Reservation{},
		nextResID:    s.nextResID,
	}
	for k, v := range s.slots {
		tx.slots[k] = v
	}
	for k, v := range s.reservations {
		tx.reservations[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.slots, s.reservations, s.nextResID = tx.slots, tx.reservations, tx.nextResID
	return nil
}

func (s *memStore) ListSlots(context.Context) ([]model.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txErr != nil {
		return nil, s.txErr
	}
	out := make([]model.TimeSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) slot(id int64) (model.TimeSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	return slot, ok
}

func (s *memStore) reservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

// consistent reports whether each slot is taken exactly when one reservation references it.
func (s *memStore) consistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := map[int64]int{}
	for _, r := range s.reservations {
		refs[r.SlotID]++
	}
	for id, slot := range s.slots {
		if slot.IsTaken != (refs[id] == 1) || refs[id] > 1 {
			return false
		}
	}
	return true
}

type memTx struct {
	store        *memStore
	slots        map[int64]model.TimeSlot
	reservations map[int64]model.Reservation
	nextResID    int64
}

func (t *memTx) SlotForUpdate(_ context.Context, id int64) (model.TimeSlot, error) {
	slot, ok := t.slots[id]
	if !ok {
		return model.TimeSlot{}, storage.ErrNotFound
	}
	return slot, nil
}

func (t *memTx) SetSlotTaken(_ context.Context, id int64, taken bool) error {
	slot, ok := t.slots[id]
	if !ok {
		return storage.ErrNotFound
	}
	slot.IsTaken = taken
	t.slots[id] = slot
	return nil
}

func (t *memTx) DeleteSlot(_ context.Context, id int64) error {
	if _, ok := t.slots[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.slots, id)
	return nil
}

func (t *memTx) InsertReservation(_ context.Context, r *model.Reservation) error {
	if t.store.failInsert != nil {
		return t.store.failInsert
	}
	t.nextResID++
	r.ID = t.nextResID
	r.CreatedAt = time.Now()
	t.reservations[r.ID] = *r
	return nil
}

func (t *memTx) ReservationByTokenForUpdate(_ context.Context, digest string) (model.Reservation, error) {
	for _, r := range t.reservations {
		if r.TokenDigest == digest {
			return r, nil
		}
	}
	return model.Reservation{}, storage.ErrNotFound
}

func (t *memTx) DeleteReservation(_ context.Context, id int64) error {
	if _, ok := t.reservations[id]; !ok {
		return storage.ErrNotFound
	}
	delete(t.reservations, id)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Enqueue(msgs ...notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msgs...)
}

func (n *recordingNotifier) messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) ReportFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}
